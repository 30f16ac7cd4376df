package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/api/transport"
	"github.com/campuskit/checkin/pkg/httpcontext"
	attendanceUC "github.com/campuskit/checkin/usecase/attendance"
)

type AttendanceHandler struct {
	baseHandler
	uc *attendanceUC.UseCase
}

func NewAttendanceHandler(uc *attendanceUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Mark a student present
// @Tags attendance
// @Router /api/v1/attendance [post]
func (h *AttendanceHandler) Mark(ctx *fasthttp.RequestCtx) {
	var req transport.MarkRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	if req.SessionID == "" || req.StudentID == "" {
		h.respondInvalid(ctx, "session_id and student_id are required")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	conf, err := h.uc.Mark(stdCtx, attendanceUC.MarkRequest{
		SessionID:         req.SessionID,
		StudentIdentifier: req.StudentID,
		StudentName:       req.StudentName,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, conf)
}
