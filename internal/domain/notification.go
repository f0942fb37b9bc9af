package domain

import "time"

// FormattedNotification is the channel-facing view of an event. It is
// derived per delivery, never stored as the source of truth: redelivering
// the same event regenerates identical content under a fresh ID.
type FormattedNotification struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Record is the durable, per-recipient copy of a delivered notification.
type Record struct {
	ID           string       `json:"id"`
	ToUserID     string       `json:"to_user_id"`
	FromUserID   string       `json:"from_user_id,omitempty"`
	NotifType    EventType    `json:"notif_type"`
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`
	ProjectID    string       `json:"project_id,omitempty"`
	TaskPriority int          `json:"task_priority"`
	Title        string       `json:"title"`
	Body         string       `json:"body"`
	LinkURL      string       `json:"link_url,omitempty"`
	Read         bool         `json:"read"`
	UserSetRead  bool         `json:"user_set_read"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Delivery method identifiers stored in a user's preferences.
const (
	DeliveryInApp = "in-app"
	DeliveryEmail = "email"
)

// Channel identifies one of the three independent delivery channels the
// dispatcher scatters each notification across.
type Channel string

const (
	ChannelPush    Channel = "push"
	ChannelPersist Channel = "persist"
	ChannelEmail   Channel = "email"
)

// Preferences is a recipient's delivery configuration as returned by the
// profile collaborator. A user unknown to the profile service gets the
// zero value, which disables the email channel and nothing else.
type Preferences struct {
	Email           string   `json:"email"`
	DeliveryMethods []string `json:"delivery_method"`
}

func (p Preferences) wants(method string) bool {
	for _, m := range p.DeliveryMethods {
		if m == method {
			return true
		}
	}
	return false
}

// WantsEmail reports whether the email channel is enabled and addressable.
func (p Preferences) WantsEmail() bool {
	return p.Email != "" && p.wants(DeliveryEmail)
}

// WantsInApp reports whether the recipient opted into in-app delivery.
func (p Preferences) WantsInApp() bool {
	return p.wants(DeliveryInApp)
}

// FrequencyPreferences controls digest-style delivery timing.
type FrequencyPreferences struct {
	DeliveryFrequency string `json:"delivery_frequency"`
	DeliveryTime      string `json:"delivery_time"`
	DeliveryDay       string `json:"delivery_day"`
}

// TaskDetail is the resource lookup result used to enrich reminders.
// On collaborator failure the zero value is used so delivery proceeds
// with blank fields rather than aborting.
type TaskDetail struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Priority    int    `json:"priority"`
	Status      string `json:"status"`
	ProjectID   string `json:"project_id"`
}
