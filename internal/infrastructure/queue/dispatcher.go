package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/api/metrics"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Processor relays a single message.
type Processor interface {
	Process(ctx context.Context, messageID int64) error
}

// Sweeper requeues every message still pending in the ledger.
type Sweeper interface {
	Sweep(ctx context.Context, enq ports.Enqueuer) (int, error)
}

type job struct {
	messageID int64
	senderID  string
}

// Dispatcher routes messages to a fixed set of workers using consistent
// hashing on the sender id, so one sender's messages are relayed in order.
type Dispatcher struct {
	workers   []chan job
	processor Processor
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor Processor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan job, numWorkers),
		processor: processor,
		log:       log.With().Str("component", "dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a message to the worker responsible for its sender.
// It blocks while that worker's buffer is full, up to ctx.
func (d *Dispatcher) Enqueue(ctx context.Context, messageID int64, senderID string) error {
	idx := d.shardIndex(senderID)
	select {
	case d.workers[idx] <- job{messageID: messageID, senderID: senderID}:
		metrics.RelayQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunSweeps calls s.Sweep every interval until ctx is cancelled.
func (d *Dispatcher) RunSweeps(ctx context.Context, interval time.Duration, s Sweeper) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, d); err != nil && ctx.Err() == nil {
				metrics.RelayErrorsTotal.WithLabelValues("sweep").Inc()
				d.log.Error().Err(err).Msg("periodic sweep failed")
			}
		}
	}
}

// shardIndex maps a sender id deterministically to a worker index.
func (d *Dispatcher) shardIndex(senderID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			metrics.RelayQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.processor.Process(ctx, j.messageID); err != nil {
				metrics.RelayErrorsTotal.WithLabelValues("process").Inc()
				d.log.Error().Err(err).
					Int64("message_id", j.messageID).
					Int("worker_id", id).
					Msg("message relay failed")
			}
		}
	}
}
