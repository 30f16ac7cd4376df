// Package session issues and serves QR check-in windows.
package session

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/internal/ratelimit"
	"github.com/campuskit/checkin/repository"
)

const (
	defaultClassID   = "unassigned"
	defaultClassName = "Unassigned Class"
)

// Config carries the issuance tunables.
type Config struct {
	TTL            time.Duration
	PollIntervalMs int
}

type UseCase struct {
	store   repository.SessionStore
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *zap.Logger
}

func New(store repository.SessionStore, limiter *ratelimit.Limiter, cfg Config, logger *zap.Logger) *UseCase {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 2000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:   store,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Issue creates a session with a fresh unguessable id, stores it, and arms a
// one-shot eviction for when the TTL elapses. The timer and lazy Get eviction
// may both fire; deletes are idempotent so the race is harmless.
func (uc *UseCase) Issue(ctx context.Context, classID, className string, requiredLocation *domain.Location) (*domain.Session, error) {
	if classID == "" {
		classID = defaultClassID
	}
	if className == "" {
		className = defaultClassName
	}

	now := time.Now()
	sess := &domain.Session{
		// uuid v4 carries 122 bits of crypto randomness; the id cannot be
		// enumerated the way a timestamp-derived one could.
		ID:               uuid.NewString(),
		ClassID:          classID,
		ClassName:        className,
		RequiredLocation: requiredLocation,
		CreatedAt:        now,
		ExpiresAt:        now.Add(uc.cfg.TTL),
	}

	if err := uc.store.Put(ctx, sess); err != nil {
		return nil, err
	}

	time.AfterFunc(uc.cfg.TTL, func() {
		uc.expire(sess.ID)
	})

	uc.logger.Info("session issued",
		zap.String("session_id", sess.ID),
		zap.String("class_id", sess.ClassID),
		zap.Time("expires_at", sess.ExpiresAt),
		zap.Bool("geofenced", sess.RequiresGeofence()),
	)
	return sess.Clone(), nil
}

// Status is the polling view of a session.
type Status struct {
	Active                  bool              `json:"active"`
	TimeLeftSeconds         int               `json:"time_left_seconds"`
	AttendeeCount           int               `json:"attendee_count"`
	Attendees               []domain.Attendee `json:"attendees"`
	SuggestedPollIntervalMs int               `json:"suggested_poll_interval_ms"`
}

// GetStatus serves the polling path. The rate limiter runs before the store
// is touched so a hot client cannot hammer session lookups.
func (uc *UseCase) GetStatus(ctx context.Context, sessionID, clientKey string) (*Status, error) {
	if uc.limiter != nil && !uc.limiter.Allow(clientKey, sessionID) {
		return nil, &domain.RateLimitError{RetryAfterSeconds: uc.limiter.RetryAfterSeconds()}
	}

	sess, err := uc.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	timeLeft := int(math.Ceil(time.Until(sess.ExpiresAt).Seconds()))
	if timeLeft < 0 {
		timeLeft = 0
	}

	return &Status{
		Active:                  timeLeft > 0,
		TimeLeftSeconds:         timeLeft,
		AttendeeCount:           len(sess.Attendees),
		Attendees:               sess.Attendees,
		SuggestedPollIntervalMs: uc.cfg.PollIntervalMs,
	}, nil
}

// Close ends a session before its TTL (faculty closing the window early).
func (uc *UseCase) Close(ctx context.Context, sessionID string) error {
	if err := uc.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	if uc.limiter != nil {
		uc.limiter.PurgeSession(sessionID)
	}
	uc.logger.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

func (uc *UseCase) expire(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := uc.store.Delete(ctx, sessionID); err != nil {
		uc.logger.Warn("timer eviction failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if uc.limiter != nil {
		uc.limiter.PurgeSession(sessionID)
	}
	uc.logger.Debug("session expired", zap.String("session_id", sessionID))
}
