// Package mailer delivers the email channel. Sends are best-effort and
// independently failing: the dispatcher logs errors and never lets them
// block the push or persisted channels.
package mailer

import "context"

// TemplateKind selects the transactional template for a send.
type TemplateKind string

const (
	// TemplateReminderOrAdded covers deadline reminders and
	// added-to-resource notifications, which share one layout.
	TemplateReminderOrAdded TemplateKind = "resource-notification"

	// TemplateUpdates covers batched task/project update notifications.
	TemplateUpdates TemplateKind = "update-notification"
)

// Payload is the template model for a single email.
type Payload struct {
	To          string `json:"to"`
	UserName    string `json:"user_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Mailer sends one templated email per notification.
type Mailer interface {
	Send(ctx context.Context, kind TemplateKind, p Payload) error
}
