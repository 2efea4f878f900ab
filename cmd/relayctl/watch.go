package main

import (
	"context"
	"io"
	"time"

	"github.com/99minutos/ai-messenger/pkg/client"
)

// messageSource is the subset of the relay client the watcher needs.
type messageSource interface {
	Poll(ctx context.Context, token string, since int64, limit int) ([]client.Message, error)
	Ack(ctx context.Context, token string, messageID int64) error
}

// watcher polls for resolved messages, prints and acknowledges them. The
// interval doubles while nothing new arrives and resets on activity.
type watcher struct {
	client      messageSource
	token       string
	out         io.Writer
	minInterval time.Duration
	maxInterval time.Duration

	since int64
}

func (w *watcher) run(ctx context.Context) error {
	wait := w.minInterval
	for {
		progressed, err := w.tick(ctx)
		if err != nil {
			if client.IsUnauthorized(err) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if progressed {
			wait = w.minInterval
		} else {
			wait = w.nextInterval(wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tick runs one poll. The cursor only advances over resolved messages so a
// pending message is seen again once the relay finishes it.
func (w *watcher) tick(ctx context.Context) (bool, error) {
	msgs, err := w.client.Poll(ctx, w.token, w.since, 0)
	if err != nil {
		return false, err
	}
	progressed := false
	for _, m := range msgs {
		if !m.Resolved() {
			break
		}
		if !m.Consumed {
			printMessage(w.out, m)
			if err := w.client.Ack(ctx, w.token, m.ID); err != nil {
				return progressed, err
			}
		}
		w.since = m.ID
		progressed = true
	}
	return progressed, nil
}

func (w *watcher) nextInterval(cur time.Duration) time.Duration {
	next := cur * 2
	if next > w.maxInterval {
		next = w.maxInterval
	}
	if next < w.minInterval {
		next = w.minInterval
	}
	return next
}
