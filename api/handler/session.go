package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/api/transport"
	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/pkg/httpcontext"
	sessionUC "github.com/campuskit/checkin/usecase/session"
)

type SessionHandler struct {
	baseHandler
	uc *sessionUC.UseCase
}

func NewSessionHandler(uc *sessionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Issue a new check-in session
// @Tags sessions
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Issue(ctx *fasthttp.RequestCtx) {
	var req transport.IssueSessionRequest
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			h.respondInvalid(ctx, "invalid payload")
			return
		}
	}

	var location *domain.Location
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		location = &domain.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	case req.Latitude != nil || req.Longitude != nil:
		h.respondInvalid(ctx, "latitude and longitude must be supplied together")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.uc.Issue(stdCtx, req.ClassID, req.ClassName, location)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondSuccess(ctx, http.StatusCreated, transport.IssueSessionResponse{
		SessionID: sess.ID,
		ClassID:   sess.ClassID,
		ClassName: sess.ClassName,
		ExpiresAt: sess.ExpiresAt,
		Geofenced: sess.RequiresGeofence(),
	})
}

// @Summary Poll a session's status
// @Tags sessions
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Status(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing session id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status, err := h.uc.GetStatus(stdCtx, id, httpcontext.ClientKey(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, status)
}

// @Summary Close a session before its TTL
// @Tags sessions
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Close(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing session id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Close(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
