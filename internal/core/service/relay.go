package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const defaultProviderTimeout = 30 * time.Second

// RelayObserver receives one notification per resolved message.
type RelayObserver interface {
	Resolved(status domain.MessageStatus, failure domain.ProviderErrorKind, attempts int, elapsed time.Duration)
}

// Relay forwards pending messages to the AI provider and resolves them.
type Relay struct {
	ledger   *Ledger
	provider ports.Provider
	claimer  ports.Claimer
	activity ActivityRecorder
	timeout  time.Duration
	observer RelayObserver
	log      zerolog.Logger
}

// RelayOption customises a Relay.
type RelayOption func(*Relay)

// WithClaimer replaces the in-process claim set, e.g. with Redis.
func WithClaimer(c ports.Claimer) RelayOption {
	return func(r *Relay) { r.claimer = c }
}

func WithObserver(o RelayObserver) RelayOption {
	return func(r *Relay) { r.observer = o }
}

func NewRelay(
	ledger *Ledger,
	provider ports.Provider,
	activity ActivityRecorder,
	timeout time.Duration,
	log zerolog.Logger,
	opts ...RelayOption,
) *Relay {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	r := &Relay{
		ledger:   ledger,
		provider: provider,
		claimer:  NewLocalClaimer(),
		activity: activity,
		timeout:  timeout,
		log:      log.With().Str("component", "relay").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process relays one message. Messages that are no longer pending, or that
// another worker owns, are skipped without error.
func (r *Relay) Process(ctx context.Context, id int64) error {
	msg, err := r.ledger.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("relay %d: %w", id, err)
	}
	if msg.Status != domain.StatusPending {
		r.log.Debug().Int64("message_id", id).Str("status", string(msg.Status)).Msg("message already resolved, skipping")
		return nil
	}

	claimed, err := r.claimer.Claim(ctx, id)
	if err != nil {
		r.log.Warn().Err(err).Int64("message_id", id).Msg("claim failed, processing anyway")
	} else if !claimed {
		r.log.Debug().Int64("message_id", id).Msg("message claimed by another worker")
		return nil
	} else {
		defer func() {
			if err := r.claimer.Release(context.WithoutCancel(ctx), id); err != nil {
				r.log.Warn().Err(err).Int64("message_id", id).Msg("failed to release claim")
			}
		}()
		// the message may have been resolved between the read and the claim
		if msg, err = r.ledger.Get(ctx, id); err != nil {
			return fmt.Errorf("relay %d: %w", id, err)
		}
		if msg.Status != domain.StatusPending {
			return nil
		}
	}

	start := time.Now()
	reply, attempts, perr := r.complete(ctx, msg.Body)
	if ctx.Err() != nil {
		// shutting down; the message stays pending for the next sweep
		return fmt.Errorf("relay %d: %w", id, ctx.Err())
	}

	out := domain.Delivered(reply)
	var failure domain.ProviderErrorKind
	if perr != nil {
		out = domain.Failed()
		failure = perr.Kind
	}

	if err := r.ledger.Resolve(ctx, id, out); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			r.log.Warn().Int64("message_id", id).Msg("message resolved concurrently, discarding outcome")
			return nil
		}
		return fmt.Errorf("relay %d: %w", id, err)
	}

	if r.observer != nil {
		r.observer.Resolved(out.Status, failure, attempts, time.Since(start))
	}

	if perr != nil {
		detail := fmt.Sprintf("message %d: %v", id, perr)
		r.activity.Record(ctx, domain.ActivityMessageFailed, msg.SenderID, detail)
		r.log.Warn().Err(perr).Int64("message_id", id).Int("attempts", attempts).Msg("message failed")
		return nil
	}

	r.activity.Record(ctx, domain.ActivityMessageDelivered, msg.SenderID, fmt.Sprintf("message %d", id))
	r.log.Info().Int64("message_id", id).Int("attempts", attempts).Msg("message delivered")
	return nil
}

// complete calls the provider, retrying transient failures exactly once.
func (r *Relay) complete(ctx context.Context, prompt string) (string, int, *domain.ProviderError) {
	var last *domain.ProviderError
	for attempt := 1; attempt <= 2; attempt++ {
		reply, err := r.call(ctx, prompt)
		if err == nil {
			return reply, attempt, nil
		}
		last = err
		if !err.Retryable() {
			return "", attempt, err
		}
		r.log.Debug().Err(err).Int("attempt", attempt).Msg("transient provider failure")
	}
	return "", 2, last
}

func (r *Relay) call(ctx context.Context, prompt string) (string, *domain.ProviderError) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.provider.Complete(cctx, prompt)
	if err != nil {
		pe := domain.ClassifyProviderError(err)
		// our own deadline always counts as a timeout
		if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			pe = &domain.ProviderError{Kind: domain.ProviderTimeout, Err: err}
		}
		return "", pe
	}
	if reply == "" {
		return "", &domain.ProviderError{Kind: domain.ProviderRejected, Err: errors.New("empty reply")}
	}
	return reply, nil
}

// Sweep hands every pending message to enq. It returns how many were enqueued.
func (r *Relay) Sweep(ctx context.Context, enq ports.Enqueuer) (int, error) {
	pending, err := r.ledger.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	n := 0
	for _, m := range pending {
		if err := enq.Enqueue(ctx, m.ID, m.SenderID); err != nil {
			return n, fmt.Errorf("sweep: enqueue %d: %w", m.ID, err)
		}
		n++
	}
	if n > 0 {
		r.log.Info().Int("count", n).Msg("requeued pending messages")
	}
	return n, nil
}

// LocalClaimer is an in-process claim set used when Redis is disabled.
type LocalClaimer struct {
	mu      sync.Mutex
	claimed map[int64]struct{}
}

func NewLocalClaimer() *LocalClaimer {
	return &LocalClaimer{claimed: make(map[int64]struct{})}
}

func (c *LocalClaimer) Claim(_ context.Context, id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.claimed[id]; ok {
		return false, nil
	}
	c.claimed[id] = struct{}{}
	return true, nil
}

func (c *LocalClaimer) Release(_ context.Context, id int64) error {
	c.mu.Lock()
	delete(c.claimed, id)
	c.mu.Unlock()
	return nil
}
