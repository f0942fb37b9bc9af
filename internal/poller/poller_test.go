package poller

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/domain"
)

type recordingHandler struct {
	mu         sync.Mutex
	dispatched []*domain.NotificationEvent
	batches    map[string][]*domain.NotificationEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{batches: make(map[string][]*domain.NotificationEvent)}
}

func (h *recordingHandler) Dispatch(_ context.Context, e *domain.NotificationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatched = append(h.dispatched, e)
}

func (h *recordingHandler) HandleUpdate(_ context.Context, userID string, events []*domain.NotificationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches[userID] = append(h.batches[userID], events...)
}

func enqueue(t *testing.T, q delayqueue.Queue, queue string, score int64, e domain.NotificationEvent) []byte {
	t.Helper()
	payload, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if err := q.Enqueue(context.Background(), queue, score, payload); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return payload
}

func queueLen(t *testing.T, q delayqueue.Queue, queue string) int64 {
	t.Helper()
	n, err := q.Len(context.Background(), queue)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	return n
}

func TestPollOnceDispatchesDueEntries(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	h := newRecordingHandler()
	p := New(q, h, zap.NewNop())

	now := time.Now().UnixMilli()
	enqueue(t, q, delayqueue.QueueDeadlineReminders, now-1000, domain.NotificationEvent{
		Type: domain.EventDeadlineReminder, ResourceID: "t1", UserID: "u1",
	})
	enqueue(t, q, delayqueue.QueueDeadlineReminders, now+60_000, domain.NotificationEvent{
		Type: domain.EventDeadlineReminder, ResourceID: "t2", UserID: "u1",
	})

	p.PollOnce(ctx, delayqueue.QueueDeadlineReminders)

	if len(h.dispatched) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(h.dispatched))
	}
	if h.dispatched[0].ResourceID != "t1" {
		t.Errorf("dispatched resource = %q, want t1", h.dispatched[0].ResourceID)
	}
	// the future entry must survive, the handled one must not
	if n := queueLen(t, q, delayqueue.QueueDeadlineReminders); n != 1 {
		t.Errorf("remaining entries = %d, want 1", n)
	}
}

func TestPollOnceGroupsUpdatesPerRecipient(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	h := newRecordingHandler()
	p := New(q, h, zap.NewNop())

	now := time.Now().UnixMilli()
	for i, userID := range []string{"u1", "u1", "u2"} {
		enqueue(t, q, delayqueue.QueueTaskUpdates, now-int64(i+1), domain.NotificationEvent{
			Type: domain.EventUpdated, ResourceType: domain.ResourceTask,
			ResourceID: "t" + string(rune('0'+i)), UserID: userID,
		})
	}

	p.PollOnce(ctx, delayqueue.QueueTaskUpdates)

	if len(h.dispatched) != 0 {
		t.Errorf("updates must not go through Dispatch, got %d", len(h.dispatched))
	}
	if got := len(h.batches["u1"]); got != 2 {
		t.Errorf("u1 batch = %d events, want 2", got)
	}
	if got := len(h.batches["u2"]); got != 1 {
		t.Errorf("u2 batch = %d events, want 1", got)
	}
	if n := queueLen(t, q, delayqueue.QueueTaskUpdates); n != 0 {
		t.Errorf("remaining entries = %d, want 0", n)
	}
}

func TestPollOnceDiscardsPoisonEntries(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	h := newRecordingHandler()

	var poisoned []string
	p := New(q, h, zap.NewNop(),
		WithPollHooks(nil, func(queue string) { poisoned = append(poisoned, queue) }))

	now := time.Now().UnixMilli()
	if err := q.Enqueue(ctx, delayqueue.QueueAdded, now-1, []byte("{not json")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	enqueue(t, q, delayqueue.QueueAdded, now-1, domain.NotificationEvent{
		Type: "mystery", ResourceID: "t1",
	})
	enqueue(t, q, delayqueue.QueueAdded, now-1, domain.NotificationEvent{
		Type: domain.EventAdded, ResourceID: "t2", CollaboratorIDs: []string{"u1"},
	})

	p.PollOnce(ctx, delayqueue.QueueAdded)

	if len(h.dispatched) != 1 || h.dispatched[0].ResourceID != "t2" {
		t.Fatalf("dispatched = %+v, want only t2", h.dispatched)
	}
	if len(poisoned) != 2 {
		t.Errorf("poison hook fired %d times, want 2", len(poisoned))
	}
	// poison entries are removed so they cannot wedge the next tick
	if n := queueLen(t, q, delayqueue.QueueAdded); n != 0 {
		t.Errorf("remaining entries = %d, want 0", n)
	}
}

func TestPollOnceReportsDepthAndCycle(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	h := newRecordingHandler()

	var gotQueue string
	var gotDepth int64
	cycles := 0
	p := New(q, h, zap.NewNop(),
		WithPollHooks(func(string, time.Duration) { cycles++ }, nil),
		WithDepthGauge(func(queue string, depth int64) {
			gotQueue, gotDepth = queue, depth
		}))

	enqueue(t, q, delayqueue.QueueAdded, time.Now().UnixMilli()+60_000, domain.NotificationEvent{
		Type: domain.EventAdded, CollaboratorIDs: []string{"u1"},
	})

	p.PollOnce(ctx, delayqueue.QueueAdded)

	if cycles != 1 {
		t.Errorf("cycle hook fired %d times, want 1", cycles)
	}
	if gotQueue != delayqueue.QueueAdded || gotDepth != 1 {
		t.Errorf("depth hook got (%q, %d), want (%q, 1)", gotQueue, gotDepth, delayqueue.QueueAdded)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	q := delayqueue.NewMemoryQueue()
	h := newRecordingHandler()
	p := New(q, h, zap.NewNop(), WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	enqueue(t, q, delayqueue.QueueDeadlineReminders, time.Now().UnixMilli()-1, domain.NotificationEvent{
		Type: domain.EventDeadlineReminder, ResourceID: "t1", UserID: "u1",
	})

	deadline := time.After(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.dispatched)
		h.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never dispatched the due entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
