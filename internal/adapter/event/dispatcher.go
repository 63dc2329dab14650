package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/sales/internal/core/domain"
)

const deliveryTimeout = 5 * time.Second

// Subscriber receives every published event.
type Subscriber interface {
	Handle(ctx context.Context, event domain.Event) error
}

// Dispatcher fans committed events out to subscribers from a pool of
// workers. Publish never blocks: when the queue is full, or the dispatcher
// is closed, the event is delivered on the caller's goroutine.
type Dispatcher struct {
	queue       chan domain.Event
	subscribers []Subscriber
	logger      *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, queueSize int, subscribers ...Subscriber) *Dispatcher {
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{
		queue:       make(chan domain.Event, queueSize),
		subscribers: subscribers,
		logger:      logger,
	}
}

// Start launches workers goroutines draining the queue.
func (d *Dispatcher) Start(workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.logger.Info("event workers started", zap.Int("workers", workers))
}

func (d *Dispatcher) Publish(ctx context.Context, event domain.Event) {
	d.mu.RLock()
	if !d.closed {
		select {
		case d.queue <- event:
			d.mu.RUnlock()
			return
		default:
		}
	}
	d.mu.RUnlock()

	d.logger.Warn("event queue unavailable, delivering inline", zap.String("event", event.EventName()))
	d.deliver(context.WithoutCancel(ctx), -1, event)
}

// Close stops accepting queued events, drains the queue and waits for the
// workers to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("event workers stopped")
}

func (d *Dispatcher) workerLoop(id int) {
	for event := range d.queue {
		d.deliver(context.Background(), id, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, worker int, event domain.Event) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	for _, sub := range d.subscribers {
		if err := sub.Handle(ctx, event); err != nil {
			d.logger.Error("failed to deliver event",
				zap.Int("worker", worker),
				zap.String("event", event.EventName()),
				zap.Error(err),
			)
		}
	}
}
