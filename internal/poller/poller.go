// Package poller drives scheduled delivery. One goroutine per named queue
// wakes on a fixed interval, drains everything due, hands it to the
// notification handler, and only then removes it from the queue. Removal
// after handling is what makes delivery at-least-once: a crash mid-cycle
// leaves the entries for the next tick.
package poller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/domain"
)

// Handler is the dispatch seam, satisfied by *notifier.Notifier. Update
// events are handed over pre-grouped per recipient; everything else goes
// through Dispatch one event at a time.
type Handler interface {
	Dispatch(ctx context.Context, e *domain.NotificationEvent)
	HandleUpdate(ctx context.Context, userID string, events []*domain.NotificationEvent)
}

// Poller watches every named delay queue.
type Poller struct {
	queue    delayqueue.Queue
	handler  Handler
	interval time.Duration
	logger   *zap.Logger

	// metric hooks; nil means no metrics wiring
	onCycle  func(queue string, elapsed time.Duration)
	onPoison func(queue string)
	onDepth  func(queue string, depth int64)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the default 5s poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithPollHooks wires cycle-duration and poison-message instruments.
func WithPollHooks(onCycle func(string, time.Duration), onPoison func(string)) Option {
	return func(p *Poller) {
		p.onCycle = onCycle
		p.onPoison = onPoison
	}
}

// WithDepthGauge wires a per-queue depth observation taken each cycle.
func WithDepthGauge(fn func(queue string, depth int64)) Option {
	return func(p *Poller) { p.onDepth = fn }
}

func New(queue delayqueue.Queue, handler Handler, logger *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		queue:    queue,
		handler:  handler,
		interval: 5 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls every named queue until ctx is cancelled. Blocks; callers run
// it in a goroutine and cancel ctx to stop.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range delayqueue.Names() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			p.watch(ctx, name)
		}(name)
	}
	wg.Wait()
	p.logger.Info("poller stopped")
}

func (p *Poller) watch(ctx context.Context, queue string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("watching queue", zap.String("queue", queue), zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx, queue)
		}
	}
}

// PollOnce runs a single drain-dispatch-remove cycle for one queue.
// Exported so operational tooling can force a cycle outside the ticker.
func (p *Poller) PollOnce(ctx context.Context, queue string) {
	start := time.Now()

	due, err := p.queue.DrainDue(ctx, queue, time.Now().UnixMilli())
	if err != nil {
		p.logger.Error("drain failed", zap.String("queue", queue), zap.Error(err))
		return
	}

	if len(due) > 0 {
		entries := p.parse(ctx, queue, due)
		if queue == delayqueue.QueueTaskUpdates {
			p.dispatchGrouped(ctx, queue, entries)
		} else {
			p.dispatchEach(ctx, queue, entries)
		}
	}

	if p.onDepth != nil {
		if depth, err := p.queue.Len(ctx, queue); err == nil {
			p.onDepth(queue, depth)
		}
	}
	if p.onCycle != nil {
		p.onCycle(queue, time.Since(start))
	}
}

// entry pairs a decoded event with the raw payload needed for removal.
type entry struct {
	event   *domain.NotificationEvent
	payload []byte
}

// parse decodes the due payloads. Poison entries (unparseable, or carrying
// an unknown event type) are logged and removed immediately so they cannot
// wedge the queue on every subsequent tick.
func (p *Poller) parse(ctx context.Context, queue string, due [][]byte) []entry {
	entries := make([]entry, 0, len(due))
	for _, payload := range due {
		var e domain.NotificationEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			p.logger.Warn("removing unparseable queue entry",
				zap.String("queue", queue), zap.Error(err))
			p.discard(ctx, queue, payload)
			continue
		}
		if !e.Type.IsValid() {
			p.logger.Warn("removing entry with unknown event type",
				zap.String("queue", queue), zap.String("type", string(e.Type)))
			p.discard(ctx, queue, payload)
			continue
		}
		entries = append(entries, entry{event: &e, payload: payload})
	}
	return entries
}

// dispatchEach handles one entry at a time, removing each only after its
// handler returns. The handler is best-effort and never signals failure, so
// removal is unconditional.
func (p *Poller) dispatchEach(ctx context.Context, queue string, entries []entry) {
	for _, ent := range entries {
		p.handler.Dispatch(ctx, ent.event)
		p.remove(ctx, queue, ent.payload)
	}
}

// dispatchGrouped batches due update events per recipient so a user editing
// five tasks gets one handler call, then removes the whole group after it
// was handled.
func (p *Poller) dispatchGrouped(ctx context.Context, queue string, entries []entry) {
	groups := make(map[string][]entry)
	order := make([]string, 0)
	for _, ent := range entries {
		userID := ent.event.UserID
		if _, ok := groups[userID]; !ok {
			order = append(order, userID)
		}
		groups[userID] = append(groups[userID], ent)
	}

	for _, userID := range order {
		group := groups[userID]
		events := make([]*domain.NotificationEvent, len(group))
		for i, ent := range group {
			events[i] = ent.event
		}

		p.handler.HandleUpdate(ctx, userID, events)
		for _, ent := range group {
			p.remove(ctx, queue, ent.payload)
		}
	}
}

func (p *Poller) discard(ctx context.Context, queue string, payload []byte) {
	if p.onPoison != nil {
		p.onPoison(queue)
	}
	p.remove(ctx, queue, payload)
}

func (p *Poller) remove(ctx context.Context, queue string, payload []byte) {
	if err := p.queue.Remove(ctx, queue, payload); err != nil {
		// Leaving the entry behind means redelivery next tick, which the
		// at-least-once contract allows.
		p.logger.Error("queue removal failed", zap.String("queue", queue), zap.Error(err))
	}
}
