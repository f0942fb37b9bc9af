package domain

// EventType tags a NotificationEvent flowing through the pipeline.
// The dispatch tables in the poller and pub/sub listener switch on it;
// unknown values are logged and dropped, never retried.
type EventType string

const (
	EventDeadlineReminder EventType = "deadline_reminder"
	EventAdded            EventType = "added"
	EventUpdated          EventType = "updated"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventDeadlineReminder, EventAdded, EventUpdated:
		return true
	}
	return false
}

// ResourceType identifies the subject of an event.
type ResourceType string

const (
	ResourceTask    ResourceType = "task"
	ResourceProject ResourceType = "project"
)

// ResourceSnapshot is a point-in-time view of a task or project carried
// inside an event payload. Producers fill only the fields they know about.
//
// ProjectID is a pointer because its absence and its emptiness mean
// different things to the resource-kind decision table: a task payload
// without the field is a standalone task, while an empty string marks a
// subtask of a standalone task.
type ResourceSnapshot struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
	Priority    int     `json:"priority,omitempty"`
	ProjectID   *string `json:"project_id,omitempty"`
	Parent      *string `json:"parent,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// ResourceContent is the snapshot payload of an event. For update events it
// carries both the updated and the original sub-documents so formatters can
// diff them; for the other event kinds the flat fields are used directly.
type ResourceContent struct {
	ResourceSnapshot
	Updated  *ResourceSnapshot `json:"updated,omitempty"`
	Original *ResourceSnapshot `json:"original,omitempty"`
}

// NotificationEvent is the unit flowing through the delay queues and the
// pub/sub channel. It is created by a producer, consumed logically once and
// physically at least once: queue removal happens only after handling, so a
// crash mid-handling redelivers the entry.
type NotificationEvent struct {
	Type         EventType    `json:"type"`
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`
	ResourceName string       `json:"resource_name,omitempty"`

	// Recipients: a reminder targets one user, an added event fans out to
	// every collaborator, an update carries the single affected user and is
	// grouped per recipient by the poller.
	UserID          string   `json:"user_id,omitempty"`
	CollaboratorIDs []string `json:"collaborator_ids,omitempty"`

	AddedBy    string `json:"added_by,omitempty"`
	UpdatedBy  string `json:"updated_by,omitempty"`
	UpdateType string `json:"update_type,omitempty"`

	// Day is the number of days before the deadline a reminder fires.
	Day int `json:"day,omitempty"`

	// Key is the producer-side dedup key, typically "resourceId:userId:day".
	// The delay queue does not enforce uniqueness; producers must not
	// double-schedule the same key.
	Key string `json:"key,omitempty"`

	// NotifyAt is the scheduled delivery instant in epoch milliseconds and
	// doubles as the delay-queue score.
	NotifyAt int64 `json:"notify_at,omitempty"`

	OriginalSent    string           `json:"original_sent,omitempty"`
	ResourceContent *ResourceContent `json:"resource_content,omitempty"`
}

// Content returns the event's resource content, never nil.
func (e *NotificationEvent) Content() *ResourceContent {
	if e.ResourceContent == nil {
		return &ResourceContent{}
	}
	return e.ResourceContent
}
