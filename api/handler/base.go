package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/api/transport"
	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), message, nil))
}

// respondError maps the check-in error taxonomy onto HTTP. Geofence and
// rate-limit rejections attach the detail the client needs to explain the
// outcome to the end user.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) {
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
		h.respondJSON(ctx, http.StatusTooManyRequests, transport.NewError(
			string(domain.ErrCodeRateLimited),
			err.Error(),
			map[string]interface{}{"retry_after_seconds": rlErr.RetryAfterSeconds},
		))
		return
	}

	var gErr *domain.GeofenceError
	if errors.As(err, &gErr) {
		h.respondJSON(ctx, http.StatusForbidden, transport.NewError(
			"GEOFENCE_VIOLATION",
			err.Error(),
			map[string]interface{}{
				"distance_meters":       gErr.DistanceMeters,
				"allowed_radius_meters": gErr.AllowedRadiusMeters,
			},
		))
		return
	}

	status, code := mapError(err)
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

func mapError(err error) (int, string) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeExpired):
		return http.StatusGone, string(domain.ErrCodeExpired)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict)
	case domain.IsDomainError(err, domain.ErrCodeUnavailable):
		return http.StatusServiceUnavailable, string(domain.ErrCodeUnavailable)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
