// Package async hands updates to a fixed pool of workers, sharded by submitter.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/receipts-bot/internal/chat"
)

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("dispatcher is shutting down")

// Handler processes one update.
type Handler func(ctx context.Context, u chat.Update) error

// Dispatcher runs one goroutine per shard. Updates from the same submitter always land
// on the same shard, so they are handled in arrival order; different submitters run
// concurrently.
type Dispatcher struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	size    int
	timeout time.Duration

	shards []chan chat.Update
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the buffer of each shard.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.size = n
		}
	}
}

func WithProcessTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func NewDispatcher(handle Handler, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handle:  handle,
		logger:  logger,
		workers: 4,
		size:    64,
		timeout: 3 * time.Minute,
	}
	for _, o := range opts {
		o(d)
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		d.shards = make([]chan chat.Update, d.workers)
		for i := range d.shards {
			d.shards[i] = make(chan chat.Update, d.size)
			d.wg.Add(1)
			go d.work(i, d.shards[i])
		}
	})
}

func (d *Dispatcher) work(shard int, ch <-chan chat.Update) {
	defer d.wg.Done()
	d.logger.Debug("worker started", "shard", shard)

	for u := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.handle(ctx, u)
		cancel()

		if err != nil {
			d.logger.Error("dispatch.handle.failed", "shard", shard, "submitter_id", u.SubmitterID,
				"update_id", u.UpdateID, "error", err)
		}
	}

	d.logger.Debug("worker stopped", "shard", shard)
}

// Shard returns the worker index for a submitter.
func (d *Dispatcher) Shard(submitterID int64) int {
	n := int64(len(d.shards))
	s := submitterID % n
	if s < 0 {
		s += n
	}
	return int(s)
}

// Enqueue blocks while the submitter's shard is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, u chat.Update) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("cannot enqueue: dispatcher is shutting down", "update_id", u.UpdateID)
		return ErrClosed
	}

	ch := d.shards[d.Shard(u.SubmitterID)]
	select {
	case ch <- u:
		return nil
	default:
	}
	d.logger.Warn("shard full, applying backpressure", "submitter_id", u.SubmitterID)
	select {
	case ch <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued updates to drain, or for ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); d.wg.Wait() }()

	select {
	case <-ctx.Done():
		d.logger.Warn("shutdown interrupted by context")
	case <-done:
		d.logger.Info("dispatcher drained, shutdown complete")
	}
}
