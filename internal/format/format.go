// Package format derives the channel-facing view of a notification event.
// Formatting is pure apart from ID generation: redelivering the same event
// produces identical content under a fresh ID.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskgrid/notification-service/internal/domain"
)

// Reminder builds the push view of a deadline reminder. Degraded task
// details (blank title, zero priority) still format; the collaborator
// lookup failing must not abort delivery.
func Reminder(task domain.TaskDetail, day int) domain.FormattedNotification {
	band := domain.ClassifyPriority(task.Priority)

	status := task.Status
	if status == "" {
		status = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Due in %d day(s). Status: %s.", band.Tag(), day, status)
	if task.Description != "" {
		fmt.Fprintf(&b, " Description: %q", task.Description)
	}

	return domain.FormattedNotification{
		ID:          uuid.New().String(),
		Title:       "Upcoming Deadline: " + task.Title,
		Description: b.String(),
		Link:        taskLink(task.ProjectID, task.Title),
	}
}

// AddedParams carries everything the added-to-resource formatter needs.
type AddedParams struct {
	Kind    domain.ResourceKind
	Band    domain.PriorityBand
	Content *domain.ResourceContent
	AddedBy string
}

// Added builds the push view of an added-to-resource notification.
// High-priority resources get the band tag in the title so they stand out
// in the notification tray.
func Added(p AddedParams) domain.FormattedNotification {
	content := p.Content
	if content == nil {
		content = &domain.ResourceContent{}
	}

	title := fmt.Sprintf("Added to %s: %s", p.Kind, content.Title)
	if p.Band == domain.BandHigh {
		title = p.Band.Tag() + " " + title
	}

	desc := fmt.Sprintf("%s has added you to %q", p.AddedBy, content.Title)
	if content.Status != "" {
		desc += fmt.Sprintf(" (%s)", content.Status)
	}

	return domain.FormattedNotification{
		ID:          uuid.New().String(),
		Title:       title,
		Description: desc,
		Link:        resourceLink(p.Kind, &content.ResourceSnapshot),
	}
}

// Batch is the per-recipient grouping of due update events, partitioned by
// resource type before formatting.
type Batch struct {
	Project []*domain.NotificationEvent
	Task    []*domain.NotificationEvent
}

// Updates formats a recipient's batch into one notification per payload.
// A payload without an updated snapshot poisons the whole batch: that
// indicates a producer defect, and the caller abandons the batch for this
// cycle rather than delivering a partial view.
func Updates(batch Batch) ([]domain.FormattedNotification, error) {
	out := make([]domain.FormattedNotification, 0, len(batch.Project)+len(batch.Task))

	for _, e := range batch.Project {
		n, err := updateNotification(e, false)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	for _, e := range batch.Task {
		n, err := updateNotification(e, true)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func updateNotification(e *domain.NotificationEvent, isTask bool) (domain.FormattedNotification, error) {
	if e.ResourceContent == nil || e.ResourceContent.Updated == nil {
		return domain.FormattedNotification{}, fmt.Errorf("update %s/%s: missing updated snapshot", e.ResourceType, e.ResourceID)
	}
	updated := e.ResourceContent.Updated

	verb := e.UpdateType
	if verb == "" {
		verb = "updated"
	}

	label := "Project"
	if isTask {
		label = "Task"
		if updated.Parent != nil && *updated.Parent != "" {
			label = "Subtask"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%q", updated.Title)
	if updated.Status != "" {
		fmt.Fprintf(&b, " (%s)", updated.Status)
	}
	if d, ok := parseDeadline(updated.Deadline); ok {
		fmt.Fprintf(&b, ". Deadline: %s", d.Format("Jan 2, 2006"))
	}

	var link string
	if isTask {
		pid := ""
		if updated.ProjectID != nil {
			pid = *updated.ProjectID
		}
		link = taskLink(pid, updated.Title)
	} else {
		id := updated.ID
		if id == "" && updated.ProjectID != nil {
			id = *updated.ProjectID
		}
		link = "/app/project/" + id
	}

	return domain.FormattedNotification{
		ID:          uuid.New().String(),
		Title:       fmt.Sprintf("%s %s %s by: %s", label, updated.Title, verb, e.UpdatedBy),
		Description: b.String(),
		Link:        link,
	}, nil
}

// taskLink routes to the owning project when one exists, otherwise to the
// task search view.
func taskLink(projectID, title string) string {
	if projectID != "" {
		return "/app/project/" + projectID
	}
	return "/app?taskName=" + title
}

func resourceLink(kind domain.ResourceKind, s *domain.ResourceSnapshot) string {
	pid := ""
	if s.ProjectID != nil {
		pid = *s.ProjectID
	}
	switch kind {
	case domain.KindProject:
		return "/app/project/" + s.ID
	case domain.KindProjectTask, domain.KindProjectSubtask:
		return "/app/project/" + pid
	default:
		return "/app?taskName=" + s.Title
	}
}

func parseDeadline(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
