package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const (
	defaultActivityWriteTimeout = 2 * time.Second
	activityErrorBuffer         = 64
)

// ActivityRecorder is the narrow view other services use to emit activity.
type ActivityRecorder interface {
	Record(ctx context.Context, kind domain.ActivityKind, userID, detail string)
}

// ActivityLogger writes activity events to the log and to a durable sink.
// Failures never reach the caller.
type ActivityLogger struct {
	repo         ports.ActivityRepository
	log          zerolog.Logger
	writeTimeout time.Duration
	errs         chan error
}

func NewActivityLogger(repo ports.ActivityRepository, writeTimeout time.Duration, log zerolog.Logger) *ActivityLogger {
	if writeTimeout <= 0 {
		writeTimeout = defaultActivityWriteTimeout
	}
	return &ActivityLogger{
		repo:         repo,
		log:          log.With().Str("component", "activity").Logger(),
		writeTimeout: writeTimeout,
		errs:         make(chan error, activityErrorBuffer),
	}
}

// Record appends one event. It returns once the sink write finishes or times out.
func (a *ActivityLogger) Record(ctx context.Context, kind domain.ActivityKind, userID, detail string) {
	e := &domain.ActivityEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		UserID:    userID,
		ClientIP:  domain.ClientIPFrom(ctx),
		Detail:    detail,
	}

	a.log.Info().
		Str("event_id", e.ID).
		Str("kind", string(kind)).
		Str("user_id", userID).
		Str("client_ip", e.ClientIP).
		Str("detail", detail).
		Msg("activity")

	if a.repo == nil {
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.writeTimeout)
	defer cancel()
	if err := a.repo.Insert(wctx, e); err != nil {
		a.log.Error().Err(err).Str("event_id", e.ID).Msg("failed to persist activity event")
		a.publish(fmt.Errorf("activity %s: %w", e.ID, err))
	}
}

// Errors exposes sink failures. Errors are dropped when nobody drains the channel.
func (a *ActivityLogger) Errors() <-chan error {
	return a.errs
}

func (a *ActivityLogger) publish(err error) {
	select {
	case a.errs <- err:
	default:
	}
}
