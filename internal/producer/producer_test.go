package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/domain"
)

type fakeBroadcaster struct {
	published []*domain.NotificationEvent
}

func (f *fakeBroadcaster) Publish(_ context.Context, e *domain.NotificationEvent) error {
	f.published = append(f.published, e)
	return nil
}

func drainAll(t *testing.T, q delayqueue.Queue, queue string) []*domain.NotificationEvent {
	t.Helper()
	payloads, err := q.DrainDue(context.Background(), queue, time.Now().AddDate(1, 0, 0).UnixMilli())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	events := make([]*domain.NotificationEvent, len(payloads))
	for i, payload := range payloads {
		var e domain.NotificationEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		events[i] = &e
	}
	return events
}

func TestScheduleDeadlineReminders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newProducer := func(q delayqueue.Queue) *Producer {
		p := New(q, &fakeBroadcaster{}, zap.NewNop())
		p.now = func() time.Time { return now }
		return p
	}

	t.Run("fans out one reminder per day offset", func(t *testing.T) {
		q := delayqueue.NewMemoryQueue()
		p := newProducer(q)

		deadline := now.AddDate(0, 0, 10)
		n, err := p.ScheduleDeadlineReminders(ctx, ReminderRequest{
			ResourceID: "t1", ResourceName: "Ship it", UserID: "u1",
			Deadline: deadline.Format(time.RFC3339),
		})
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if n != 3 {
			t.Fatalf("scheduled = %d, want 3", n)
		}

		events := drainAll(t, q, delayqueue.QueueDeadlineReminders)
		if len(events) != 3 {
			t.Fatalf("queued = %d, want 3", len(events))
		}
		// ordered by score: 7-day reminder fires first
		wantDays := []int{7, 3, 1}
		for i, e := range events {
			if e.Day != wantDays[i] {
				t.Errorf("event %d day = %d, want %d", i, e.Day, wantDays[i])
			}
			wantKey := "t1:u1:" + string(rune('0'+e.Day))
			if e.Key != wantKey {
				t.Errorf("event %d key = %q, want %q", i, e.Key, wantKey)
			}
			wantAt := deadline.AddDate(0, 0, -e.Day).UnixMilli()
			if e.NotifyAt != wantAt {
				t.Errorf("event %d notify_at = %d, want %d", i, e.NotifyAt, wantAt)
			}
		}
	})

	t.Run("skips offsets already in the past", func(t *testing.T) {
		q := delayqueue.NewMemoryQueue()
		p := newProducer(q)

		// due in 2 days: only the 1-day reminder is still ahead
		n, err := p.ScheduleDeadlineReminders(ctx, ReminderRequest{
			ResourceID: "t1", UserID: "u1",
			Deadline: now.AddDate(0, 0, 2).Format(time.RFC3339),
		})
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if n != 1 {
			t.Errorf("scheduled = %d, want 1", n)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			req     ReminderRequest
			wantErr error
		}{
			{"missing user", ReminderRequest{ResourceID: "t1", Deadline: "2026-06-01T00:00:00Z"}, domain.ErrMissingRecipient},
			{"missing resource", ReminderRequest{UserID: "u1", Deadline: "2026-06-01T00:00:00Z"}, domain.ErrMissingResource},
			{"bad deadline", ReminderRequest{ResourceID: "t1", UserID: "u1", Deadline: "tomorrow"}, domain.ErrInvalidDeadline},
			{"empty deadline", ReminderRequest{ResourceID: "t1", UserID: "u1"}, domain.ErrInvalidDeadline},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				q := delayqueue.NewMemoryQueue()
				_, err := newProducer(q).ScheduleDeadlineReminders(ctx, tt.req)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})
}

func TestPublishUpdate(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	p := New(q, &fakeBroadcaster{}, zap.NewNop())

	err := p.PublishUpdate(ctx, &domain.NotificationEvent{
		ResourceType: domain.ResourceTask, ResourceID: "t1", UserID: "u1", UpdatedBy: "Bob",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	events := drainAll(t, q, delayqueue.QueueTaskUpdates)
	if len(events) != 1 {
		t.Fatalf("queued = %d, want 1", len(events))
	}
	if events[0].Type != domain.EventUpdated {
		t.Errorf("type = %q, want %q", events[0].Type, domain.EventUpdated)
	}
	if events[0].NotifyAt == 0 {
		t.Error("notify_at must be stamped")
	}

	if err := p.PublishUpdate(ctx, &domain.NotificationEvent{ResourceID: "t1", ResourceType: domain.ResourceTask}); !errors.Is(err, domain.ErrMissingRecipient) {
		t.Errorf("err = %v, want ErrMissingRecipient", err)
	}
	if err := p.PublishUpdate(ctx, &domain.NotificationEvent{UserID: "u1"}); !errors.Is(err, domain.ErrMissingResource) {
		t.Errorf("err = %v, want ErrMissingResource", err)
	}
}

func TestPublishAdded(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	p := New(q, &fakeBroadcaster{}, zap.NewNop())

	err := p.PublishAdded(ctx, &domain.NotificationEvent{
		ResourceType: domain.ResourceTask, ResourceID: "t1",
		CollaboratorIDs: []string{"u1", "u2"}, AddedBy: "boss",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	events := drainAll(t, q, delayqueue.QueueAdded)
	if len(events) != 1 {
		t.Fatalf("queued = %d, want 1", len(events))
	}
	if events[0].Type != domain.EventAdded {
		t.Errorf("type = %q, want %q", events[0].Type, domain.EventAdded)
	}

	if err := p.PublishAdded(ctx, &domain.NotificationEvent{ResourceID: "t1"}); !errors.Is(err, domain.ErrMissingRecipient) {
		t.Errorf("err = %v, want ErrMissingRecipient", err)
	}
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	q := delayqueue.NewMemoryQueue()
	p := New(q, &fakeBroadcaster{}, zap.NewNop())

	at := time.Now().Add(time.Hour).UnixMilli()
	err := p.Schedule(ctx, delayqueue.QueueAdded, &domain.NotificationEvent{
		Type: domain.EventAdded, ResourceID: "t1", CollaboratorIDs: []string{"u1"}, NotifyAt: at,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	events := drainAll(t, q, delayqueue.QueueAdded)
	if len(events) != 1 || events[0].NotifyAt != at {
		t.Fatalf("queued = %+v, want 1 event at %d", events, at)
	}

	if err := p.Schedule(ctx, "nope", &domain.NotificationEvent{Type: domain.EventAdded}); err == nil {
		t.Error("unknown queue must be rejected")
	}
	if err := p.Schedule(ctx, delayqueue.QueueAdded, &domain.NotificationEvent{Type: "mystery"}); !errors.Is(err, domain.ErrUnknownEventType) {
		t.Errorf("err = %v, want ErrUnknownEventType", err)
	}
}

func TestPublishImmediate(t *testing.T) {
	ctx := context.Background()
	b := &fakeBroadcaster{}
	p := New(delayqueue.NewMemoryQueue(), b, zap.NewNop())

	err := p.PublishImmediate(ctx, &domain.NotificationEvent{
		Type: domain.EventAdded, ResourceID: "t1", CollaboratorIDs: []string{"u1"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(b.published) != 1 {
		t.Fatalf("published = %d, want 1", len(b.published))
	}

	if err := p.PublishImmediate(ctx, &domain.NotificationEvent{Type: "mystery"}); !errors.Is(err, domain.ErrUnknownEventType) {
		t.Errorf("err = %v, want ErrUnknownEventType", err)
	}
}
