package domain_test

import (
	"testing"

	"github.com/taskgrid/notification-service/internal/domain"
)

func TestPreferences_WantsEmail(t *testing.T) {
	t.Run("email method with address", func(t *testing.T) {
		p := domain.Preferences{Email: "a@b.com", DeliveryMethods: []string{"in-app", "email"}}
		if !p.WantsEmail() {
			t.Fatal("expected WantsEmail=true")
		}
	})

	t.Run("email method without address", func(t *testing.T) {
		p := domain.Preferences{DeliveryMethods: []string{"email"}}
		if p.WantsEmail() {
			t.Fatal("expected WantsEmail=false when no address is known")
		}
	})

	t.Run("zero value disables email only", func(t *testing.T) {
		var p domain.Preferences
		if p.WantsEmail() {
			t.Fatal("zero-value preferences must not enable email")
		}
		if p.WantsInApp() {
			t.Fatal("zero-value preferences must not enable in-app")
		}
	})
}

func TestEventType_IsValid(t *testing.T) {
	for _, tt := range []struct {
		typ  domain.EventType
		want bool
	}{
		{domain.EventDeadlineReminder, true},
		{domain.EventAdded, true},
		{domain.EventUpdated, true},
		{"task_update", false},
		{"", false},
	} {
		if got := tt.typ.IsValid(); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestNotificationEvent_Content(t *testing.T) {
	e := &domain.NotificationEvent{Type: domain.EventAdded}
	if e.Content() == nil {
		t.Fatal("Content must never return nil")
	}
}
