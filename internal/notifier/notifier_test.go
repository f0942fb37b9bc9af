package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/domain"
	"github.com/taskgrid/notification-service/internal/mailer"
	"github.com/taskgrid/notification-service/internal/ratelimiter"
	"github.com/taskgrid/notification-service/internal/repository"
)

type fakePusher struct {
	mu   sync.Mutex
	sent []pushMessage
	to   []string
}

func (f *fakePusher) Broadcast(_ context.Context, userID string, msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg.(pushMessage))
	f.to = append(f.to, userID)
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Payload
	kinds   []mailer.TemplateKind
	sendErr error
}

func (f *fakeMailer) Send(_ context.Context, kind mailer.TemplateKind, p mailer.Payload) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	f.kinds = append(f.kinds, kind)
	return nil
}

type fakeDirectory struct {
	names map[string]string
	prefs map[string]domain.Preferences
}

func (f *fakeDirectory) DisplayName(_ context.Context, userID string) string {
	if name, ok := f.names[userID]; ok {
		return name
	}
	return "Unknown"
}

func (f *fakeDirectory) Preferences(_ context.Context, userID string) domain.Preferences {
	return f.prefs[userID]
}

type fakeLookup struct {
	tasks map[string]domain.TaskDetail
}

func (f *fakeLookup) TaskDetail(_ context.Context, resourceID string) domain.TaskDetail {
	return f.tasks[resourceID]
}

type fixture struct {
	notifier *Notifier
	push     *fakePusher
	records  *repository.MockRecordRepository
	mail     *fakeMailer
}

func newFixture(dir *fakeDirectory, lookup *fakeLookup) *fixture {
	push := &fakePusher{}
	records := repository.NewMockRecordRepository()
	mail := &fakeMailer{}
	if dir == nil {
		dir = &fakeDirectory{}
	}
	if lookup == nil {
		lookup = &fakeLookup{}
	}

	n := New(push, records, mail, dir, lookup, ratelimiter.New(1000), zap.NewNop())
	return &fixture{notifier: n, push: push, records: records, mail: mail}
}

func emailPrefs(addr string) domain.Preferences {
	return domain.Preferences{Email: addr, DeliveryMethods: []string{domain.DeliveryInApp, domain.DeliveryEmail}}
}

func strptr(s string) *string { return &s }

func TestHandleDeadlineReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to all three channels", func(t *testing.T) {
		dir := &fakeDirectory{
			names: map[string]string{"u1": "Alice"},
			prefs: map[string]domain.Preferences{"u1": emailPrefs("alice@example.com")},
		}
		lookup := &fakeLookup{tasks: map[string]domain.TaskDetail{
			"t1": {ID: "t1", Title: "Ship it", Status: "in-progress", Priority: 9, ProjectID: "p1"},
		}}
		f := newFixture(dir, lookup)

		f.notifier.HandleDeadlineReminder(ctx, &domain.NotificationEvent{
			Type: domain.EventDeadlineReminder, ResourceID: "t1", UserID: "u1", Day: 3,
		})

		if len(f.push.sent) != 1 {
			t.Fatalf("pushes = %d, want 1", len(f.push.sent))
		}
		if got := f.push.sent[0].Notification.Title; got != "Upcoming Deadline: Ship it" {
			t.Errorf("push title = %q", got)
		}
		recs := f.records.Records()
		if len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
		if recs[0].ToUserID != "u1" || recs[0].TaskPriority != 9 || recs[0].ProjectID != "p1" {
			t.Errorf("record = %+v", recs[0])
		}
		if len(f.mail.sent) != 1 {
			t.Fatalf("emails = %d, want 1", len(f.mail.sent))
		}
		if f.mail.kinds[0] != mailer.TemplateReminderOrAdded {
			t.Errorf("template = %q", f.mail.kinds[0])
		}
		if f.mail.sent[0].To != "alice@example.com" || f.mail.sent[0].UserName != "Alice" {
			t.Errorf("email payload = %+v", f.mail.sent[0])
		}
	})

	t.Run("missing recipient drops event", func(t *testing.T) {
		f := newFixture(nil, nil)
		f.notifier.HandleDeadlineReminder(ctx, &domain.NotificationEvent{
			Type: domain.EventDeadlineReminder, ResourceID: "t1",
		})
		if len(f.push.sent) != 0 || len(f.records.Records()) != 0 {
			t.Error("expected no deliveries without a recipient")
		}
	})

	t.Run("failed task lookup degrades to event snapshot", func(t *testing.T) {
		f := newFixture(nil, nil)
		f.notifier.HandleDeadlineReminder(ctx, &domain.NotificationEvent{
			Type: domain.EventDeadlineReminder, ResourceID: "t1", ResourceName: "Ship it", UserID: "u1", Day: 1,
		})
		if len(f.push.sent) != 1 {
			t.Fatalf("pushes = %d, want 1", len(f.push.sent))
		}
		if got := f.push.sent[0].Notification.Title; got != "Upcoming Deadline: Ship it" {
			t.Errorf("push title = %q", got)
		}
	})

	t.Run("no email without opt-in", func(t *testing.T) {
		dir := &fakeDirectory{prefs: map[string]domain.Preferences{
			"u1": {Email: "alice@example.com", DeliveryMethods: []string{domain.DeliveryInApp}},
		}}
		f := newFixture(dir, nil)
		f.notifier.HandleDeadlineReminder(ctx, &domain.NotificationEvent{
			Type: domain.EventDeadlineReminder, ResourceID: "t1", UserID: "u1", Day: 1,
		})
		if len(f.mail.sent) != 0 {
			t.Errorf("emails = %d, want 0", len(f.mail.sent))
		}
		if len(f.push.sent) != 1 || len(f.records.Records()) != 1 {
			t.Error("push and persist must still run")
		}
	})
}

func TestHandleAddedToResource(t *testing.T) {
	ctx := context.Background()

	event := func() *domain.NotificationEvent {
		return &domain.NotificationEvent{
			Type:            domain.EventAdded,
			ResourceType:    domain.ResourceTask,
			ResourceID:      "t1",
			CollaboratorIDs: []string{"u1", "u2"},
			AddedBy:         "boss",
			ResourceContent: &domain.ResourceContent{ResourceSnapshot: domain.ResourceSnapshot{
				ID: "t1", Title: "Ship it", Status: "open", Priority: 8, ProjectID: strptr("p1"),
			}},
		}
	}

	t.Run("fans out to every collaborator", func(t *testing.T) {
		dir := &fakeDirectory{
			names: map[string]string{"boss": "The Boss"},
			prefs: map[string]domain.Preferences{
				"u1": emailPrefs("u1@example.com"),
				"u2": emailPrefs("u2@example.com"),
			},
		}
		f := newFixture(dir, nil)

		f.notifier.HandleAddedToResource(ctx, event())

		if len(f.push.sent) != 2 {
			t.Fatalf("pushes = %d, want 2", len(f.push.sent))
		}
		if f.push.sent[0].Notification.ID == f.push.sent[1].Notification.ID {
			t.Error("each collaborator must get a fresh notification ID")
		}
		for _, msg := range f.push.sent {
			if got := msg.Notification.Title; got != "[HIGH] Added to Project Subtask: Ship it" {
				t.Errorf("push title = %q", got)
			}
			if !strings.Contains(msg.Notification.Description, "The Boss has added you to") {
				t.Errorf("push description = %q", msg.Notification.Description)
			}
		}
		if len(f.records.Records()) != 2 {
			t.Errorf("records = %d, want 2", len(f.records.Records()))
		}
		if len(f.mail.sent) != 2 {
			t.Errorf("emails = %d, want 2", len(f.mail.sent))
		}
	})

	t.Run("no collaborators drops event", func(t *testing.T) {
		f := newFixture(nil, nil)
		e := event()
		e.CollaboratorIDs = nil
		f.notifier.HandleAddedToResource(ctx, e)
		if len(f.push.sent) != 0 {
			t.Error("expected no deliveries without collaborators")
		}
	})

	t.Run("email failure never blocks push or persist", func(t *testing.T) {
		dir := &fakeDirectory{prefs: map[string]domain.Preferences{
			"u1": emailPrefs("u1@example.com"),
			"u2": emailPrefs("u2@example.com"),
		}}
		f := newFixture(dir, nil)
		f.mail.sendErr = errors.New("smtp down")

		f.notifier.HandleAddedToResource(ctx, event())

		if len(f.push.sent) != 2 || len(f.records.Records()) != 2 {
			t.Errorf("push = %d, records = %d, want 2 each", len(f.push.sent), len(f.records.Records()))
		}
	})

	t.Run("persist failure never blocks push or email", func(t *testing.T) {
		dir := &fakeDirectory{prefs: map[string]domain.Preferences{
			"u1": emailPrefs("u1@example.com"),
			"u2": emailPrefs("u2@example.com"),
		}}
		f := newFixture(dir, nil)
		f.records.CreateErr = errors.New("db down")

		f.notifier.HandleAddedToResource(ctx, event())

		if len(f.push.sent) != 2 || len(f.mail.sent) != 2 {
			t.Errorf("push = %d, emails = %d, want 2 each", len(f.push.sent), len(f.mail.sent))
		}
	})
}

func TestHandleUpdate(t *testing.T) {
	ctx := context.Background()

	updateEvent := func(resourceType domain.ResourceType, id, title string) *domain.NotificationEvent {
		return &domain.NotificationEvent{
			Type:         domain.EventUpdated,
			ResourceType: resourceType,
			ResourceID:   id,
			UserID:       "u1",
			UpdatedBy:    "Bob",
			ResourceContent: &domain.ResourceContent{
				Updated: &domain.ResourceSnapshot{ID: id, Title: title, Status: "open"},
			},
		}
	}

	t.Run("one notification per payload", func(t *testing.T) {
		dir := &fakeDirectory{prefs: map[string]domain.Preferences{"u1": emailPrefs("u1@example.com")}}
		f := newFixture(dir, nil)

		f.notifier.HandleUpdate(ctx, "u1", []*domain.NotificationEvent{
			updateEvent(domain.ResourceTask, "t1", "Ship it"),
			updateEvent(domain.ResourceProject, "p1", "Launch"),
		})

		if len(f.push.sent) != 2 {
			t.Fatalf("pushes = %d, want 2", len(f.push.sent))
		}
		titles := []string{f.push.sent[0].Notification.Title, f.push.sent[1].Notification.Title}
		want := map[string]bool{
			"Project Launch updated by: Bob": true,
			"Task Ship it updated by: Bob":   true,
		}
		for _, title := range titles {
			if !want[title] {
				t.Errorf("unexpected push title %q", title)
			}
		}
		if len(f.mail.sent) != 2 {
			t.Fatalf("emails = %d, want 2", len(f.mail.sent))
		}
		for _, kind := range f.mail.kinds {
			if kind != mailer.TemplateUpdates {
				t.Errorf("template = %q, want %q", kind, mailer.TemplateUpdates)
			}
		}
	})

	t.Run("malformed payload abandons whole batch", func(t *testing.T) {
		f := newFixture(nil, nil)

		poison := updateEvent(domain.ResourceTask, "t2", "Bad")
		poison.ResourceContent = nil

		f.notifier.HandleUpdate(ctx, "u1", []*domain.NotificationEvent{
			updateEvent(domain.ResourceTask, "t1", "Ship it"),
			poison,
		})

		if len(f.push.sent) != 0 || len(f.records.Records()) != 0 {
			t.Error("a malformed payload must abandon the whole batch")
		}
	})

	t.Run("entries without resource identity are skipped individually", func(t *testing.T) {
		f := newFixture(nil, nil)

		incomplete := updateEvent(domain.ResourceTask, "", "Nameless")

		f.notifier.HandleUpdate(ctx, "u1", []*domain.NotificationEvent{
			updateEvent(domain.ResourceTask, "t1", "Ship it"),
			incomplete,
		})

		if len(f.push.sent) != 1 {
			t.Errorf("pushes = %d, want 1", len(f.push.sent))
		}
	})
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		event     *domain.NotificationEvent
		wantPush  int
		wantTitle string
	}{
		{
			name: "routes reminders",
			event: &domain.NotificationEvent{
				Type: domain.EventDeadlineReminder, ResourceID: "t1", ResourceName: "Ship it", UserID: "u1", Day: 1,
			},
			wantPush:  1,
			wantTitle: "Upcoming Deadline: Ship it",
		},
		{
			name: "routes added events",
			event: &domain.NotificationEvent{
				Type: domain.EventAdded, ResourceType: domain.ResourceTask, ResourceID: "t1",
				CollaboratorIDs: []string{"u1"}, AddedBy: "boss",
				ResourceContent: &domain.ResourceContent{ResourceSnapshot: domain.ResourceSnapshot{Title: "Ship it"}},
			},
			wantPush:  1,
			wantTitle: "Added to Task: Ship it",
		},
		{
			name: "routes updates",
			event: &domain.NotificationEvent{
				Type: domain.EventUpdated, ResourceType: domain.ResourceTask, ResourceID: "t1",
				UserID: "u1", UpdatedBy: "Bob",
				ResourceContent: &domain.ResourceContent{Updated: &domain.ResourceSnapshot{ID: "t1", Title: "Ship it"}},
			},
			wantPush:  1,
			wantTitle: "Task Ship it updated by: Bob",
		},
		{
			name:     "drops unknown types",
			event:    &domain.NotificationEvent{Type: "mystery", UserID: "u1"},
			wantPush: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil, nil)
			f.notifier.Dispatch(ctx, tt.event)
			if len(f.push.sent) != tt.wantPush {
				t.Fatalf("pushes = %d, want %d", len(f.push.sent), tt.wantPush)
			}
			if tt.wantPush > 0 && f.push.sent[0].Notification.Title != tt.wantTitle {
				t.Errorf("push title = %q, want %q", f.push.sent[0].Notification.Title, tt.wantTitle)
			}
		})
	}
}
