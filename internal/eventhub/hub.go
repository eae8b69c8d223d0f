// SPDX-License-Identifier: MPL-2.0

package eventhub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker count used when Config.Workers is not positive.
const DefaultWorkers = 1

type (
	// Subscriber receives events from a Hub. Handle may be called concurrently
	// with other subscribers for the same event, and, with more than one
	// worker, concurrently with itself.
	Subscriber interface {
		Name() string
		Interested(e Event) bool
		Handle(ctx context.Context, e Event) error
	}

	// Publisher is the producer side of a Hub.
	Publisher interface {
		Publish(e Event)
	}

	// Config configures a Hub.
	Config struct {
		// Workers is the number of dispatch goroutines. Values above one
		// trade publish-order delivery for throughput.
		Workers int
		// Logger receives subscriber failures. Defaults to slog.Default().
		Logger *slog.Logger
	}

	// Hub is an unbounded, non-blocking event bus.
	Hub struct {
		ctx    context.Context
		cancel context.CancelFunc
		logger *slog.Logger

		mu      sync.Mutex
		ready   *sync.Cond
		queue   []Event
		pending int
		drained []chan struct{}
		closed  bool

		subsMu sync.RWMutex
		subs   []Subscriber

		workers sync.WaitGroup
		failed  atomic.Int64
	}
)

var defaultHub = sync.OnceValue(func() *Hub {
	return New(Config{})
})

// Default returns the process-wide hub, starting it on first use. It is
// never closed; use Flush before exiting.
func Default() *Hub {
	return defaultHub()
}

// New starts a hub with cfg.Workers dispatch goroutines.
func New(cfg Config) *Hub {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{ctx: ctx, cancel: cancel, logger: logger}
	h.ready = sync.NewCond(&h.mu)

	for range workers {
		h.workers.Go(h.work)
	}
	return h
}

// Subscribe registers s for all subsequently dispatched events.
func (h *Hub) Subscribe(s Subscriber) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	h.subs = append(h.subs, s)
}

// Publish enqueues e and returns immediately. Events published after Close
// are dropped.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		h.logger.Debug("event dropped after hub close", "event", e.ID, "type", e.Type.String())
		return
	}
	h.queue = append(h.queue, e)
	h.pending++
	h.ready.Signal()
}

// Flush blocks until the queue is empty and no event is being handled, or
// until ctx is done.
func (h *Hub) Flush(ctx context.Context) error {
	h.mu.Lock()
	if h.pending == 0 {
		h.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	h.drained = append(h.drained, done)
	h.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush event hub: %w", ctx.Err())
	}
}

// Close drains the queue, then stops the workers.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	h.ready.Broadcast()
	h.mu.Unlock()

	h.workers.Wait()
	h.cancel()
}

// FailedEvents returns how many events had at least one failing subscriber.
func (h *Hub) FailedEvents() int64 {
	return h.failed.Load()
}

func (h *Hub) work() {
	for {
		h.mu.Lock()
		for len(h.queue) == 0 && !h.closed {
			h.ready.Wait()
		}
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		e := h.queue[0]
		h.queue[0] = Event{}
		h.queue = h.queue[1:]
		h.mu.Unlock()

		h.dispatch(e)

		h.mu.Lock()
		h.pending--
		if h.pending == 0 {
			for _, ch := range h.drained {
				close(ch)
			}
			h.drained = nil
		}
		h.mu.Unlock()
	}
}

// dispatch runs every interested subscriber concurrently and waits for all
// of them. A failing subscriber does not affect the others.
func (h *Hub) dispatch(e Event) {
	h.subsMu.RLock()
	interested := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		if s.Interested(e) {
			interested = append(interested, s)
		}
	}
	h.subsMu.RUnlock()

	var g errgroup.Group
	for _, s := range interested {
		g.Go(func() error {
			if err := s.Handle(h.ctx, e); err != nil {
				h.logger.Warn("event subscriber failed",
					"subscriber", s.Name(), "event", e.ID, "type", e.Type.String(), "error", err)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.failed.Add(1)
	}
}
