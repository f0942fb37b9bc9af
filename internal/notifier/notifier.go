// Package notifier is the delivery heart of the pipeline. For every due or
// immediate event it formats a per-recipient notification and scatters it
// across three independent channels: live push, durable record, email. Each
// channel is best-effort; one failing never blocks the others, and the
// notifier itself never propagates delivery errors to its callers.
package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/directory"
	"github.com/taskgrid/notification-service/internal/domain"
	"github.com/taskgrid/notification-service/internal/format"
	"github.com/taskgrid/notification-service/internal/mailer"
	"github.com/taskgrid/notification-service/internal/ratelimiter"
	"github.com/taskgrid/notification-service/internal/repository"
	"github.com/taskgrid/notification-service/internal/resources"
)

// Pusher is the live-push seam, satisfied by *registry.Registry.
type Pusher interface {
	Broadcast(ctx context.Context, userID string, msg any)
}

// pushMessage is the wire shape sent over a live connection.
type pushMessage struct {
	Type         domain.EventType             `json:"type"`
	Notification domain.FormattedNotification `json:"notification"`
}

// Notifier dispatches events to recipients. Safe for concurrent use by the
// pollers and the pub/sub listener.
type Notifier struct {
	push     Pusher
	records  repository.RecordRepository
	mail     mailer.Mailer
	dir      directory.Directory
	tasks    resources.Lookup
	limiters *ratelimiter.ChannelLimiters
	logger   *zap.Logger

	// metric hooks; nil means no metrics wiring
	onDelivered func(domain.Channel)
	onFailed    func(domain.Channel)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDeliveryHooks wires per-channel delivered/failed counters.
func WithDeliveryHooks(onDelivered, onFailed func(domain.Channel)) Option {
	return func(n *Notifier) {
		n.onDelivered = onDelivered
		n.onFailed = onFailed
	}
}

func New(
	push Pusher,
	records repository.RecordRepository,
	mail mailer.Mailer,
	dir directory.Directory,
	tasks resources.Lookup,
	limiters *ratelimiter.ChannelLimiters,
	logger *zap.Logger,
	opts ...Option,
) *Notifier {
	n := &Notifier{
		push:     push,
		records:  records,
		mail:     mail,
		dir:      dir,
		tasks:    tasks,
		limiters: limiters,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dispatch routes a single event by type. Used by the pub/sub listener for
// immediate delivery and by the poller for the non-batched queues.
func (n *Notifier) Dispatch(ctx context.Context, e *domain.NotificationEvent) {
	switch e.Type {
	case domain.EventDeadlineReminder:
		n.HandleDeadlineReminder(ctx, e)
	case domain.EventAdded:
		n.HandleAddedToResource(ctx, e)
	case domain.EventUpdated:
		n.HandleUpdate(ctx, e.UserID, []*domain.NotificationEvent{e})
	default:
		n.logger.Warn("dropping event with unknown type", zap.String("type", string(e.Type)))
	}
}

// HandleDeadlineReminder delivers one reminder to its single recipient.
// An event without a recipient is a producer defect: logged and dropped.
// The task service is consulted for fresh detail; a failed lookup degrades
// to the snapshot carried in the event rather than aborting.
func (n *Notifier) HandleDeadlineReminder(ctx context.Context, e *domain.NotificationEvent) {
	if e.UserID == "" {
		n.logger.Warn("deadline reminder without recipient, dropping",
			zap.String("resource_id", e.ResourceID))
		return
	}

	task := n.tasks.TaskDetail(ctx, e.ResourceID)
	if task.ID == "" {
		task.ID = e.ResourceID
	}
	if task.Title == "" {
		task.Title = e.ResourceName
	}

	fn := format.Reminder(task, e.Day)
	prefs := n.dir.Preferences(ctx, e.UserID)

	n.scatter(ctx, delivery{
		userID:    e.UserID,
		event:     e,
		formatted: fn,
		prefs:     prefs,
		template:  mailer.TemplateReminderOrAdded,
		priority:  task.Priority,
		projectID: task.ProjectID,
	})
}

// HandleAddedToResource fans one added event out to every collaborator.
// Each collaborator is delivered to independently: a failure for one never
// affects the rest, and each gets a freshly formatted notification.
func (n *Notifier) HandleAddedToResource(ctx context.Context, e *domain.NotificationEvent) {
	if len(e.CollaboratorIDs) == 0 {
		n.logger.Warn("added event without collaborators, dropping",
			zap.String("resource_id", e.ResourceID))
		return
	}

	content := e.Content()
	kind := domain.ClassifyResource(e.ResourceType, content)
	band := domain.ClassifyPriority(content.Priority)
	addedBy := n.dir.DisplayName(ctx, e.AddedBy)

	projectID := ""
	if content.ProjectID != nil {
		projectID = *content.ProjectID
	}

	for _, userID := range e.CollaboratorIDs {
		fn := format.Added(format.AddedParams{
			Kind:    kind,
			Band:    band,
			Content: content,
			AddedBy: addedBy,
		})
		prefs := n.dir.Preferences(ctx, userID)

		n.scatter(ctx, delivery{
			userID:    userID,
			event:     e,
			formatted: fn,
			prefs:     prefs,
			template:  mailer.TemplateReminderOrAdded,
			priority:  content.Priority,
			projectID: projectID,
		})
	}
}

// HandleUpdate delivers a recipient's batch of due update events, one
// notification per payload. Entries missing their resource identity are
// dropped individually; a payload the formatter rejects abandons the whole
// batch for this cycle, since partial delivery would misrepresent the
// update set.
func (n *Notifier) HandleUpdate(ctx context.Context, userID string, events []*domain.NotificationEvent) {
	if userID == "" {
		n.logger.Warn("update batch without recipient, dropping", zap.Int("events", len(events)))
		return
	}

	var batch format.Batch
	for _, e := range events {
		if e.ResourceType == "" || e.ResourceID == "" {
			n.logger.Warn("update event missing resource identity, skipping",
				zap.String("user_id", userID))
			continue
		}
		switch e.ResourceType {
		case domain.ResourceProject:
			batch.Project = append(batch.Project, e)
		default:
			batch.Task = append(batch.Task, e)
		}
	}

	ordered := make([]*domain.NotificationEvent, 0, len(batch.Project)+len(batch.Task))
	ordered = append(ordered, batch.Project...)
	ordered = append(ordered, batch.Task...)
	if len(ordered) == 0 {
		return
	}

	fns, err := format.Updates(batch)
	if err != nil {
		n.logger.Warn("abandoning update batch, malformed payload",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	prefs := n.dir.Preferences(ctx, userID)

	for i, fn := range fns {
		e := ordered[i]
		projectID := ""
		if c := e.Content(); c.Updated != nil && c.Updated.ProjectID != nil {
			projectID = *c.Updated.ProjectID
		}

		n.scatter(ctx, delivery{
			userID:    userID,
			event:     e,
			formatted: fn,
			prefs:     prefs,
			template:  mailer.TemplateUpdates,
			projectID: projectID,
		})
	}
}

// delivery carries everything one scatter needs.
type delivery struct {
	userID    string
	event     *domain.NotificationEvent
	formatted domain.FormattedNotification
	prefs     domain.Preferences
	template  mailer.TemplateKind
	priority  int
	projectID string
}

// scatter delivers one notification across the three channels. Channel order
// is push, persist, email; each runs regardless of the others' outcome.
func (n *Notifier) scatter(ctx context.Context, d delivery) {
	// live push: offline users are a silent no-op inside Broadcast
	if err := n.limiters.Wait(ctx, domain.ChannelPush); err == nil {
		n.push.Broadcast(ctx, d.userID, pushMessage{
			Type:         d.event.Type,
			Notification: d.formatted,
		})
		n.delivered(domain.ChannelPush)
	} else {
		n.failed(domain.ChannelPush, d, err)
	}

	// durable record
	if err := n.persist(ctx, d); err != nil {
		n.failed(domain.ChannelPersist, d, err)
	} else {
		n.delivered(domain.ChannelPersist)
	}

	// email, only when the recipient opted in and is addressable
	if !d.prefs.WantsEmail() {
		return
	}
	if err := n.email(ctx, d); err != nil {
		n.failed(domain.ChannelEmail, d, err)
	} else {
		n.delivered(domain.ChannelEmail)
	}
}

func (n *Notifier) persist(ctx context.Context, d delivery) error {
	if err := n.limiters.Wait(ctx, domain.ChannelPersist); err != nil {
		return err
	}

	from := d.event.AddedBy
	if from == "" {
		from = d.event.UpdatedBy
	}

	return n.records.Create(ctx, &domain.Record{
		ID:           d.formatted.ID,
		ToUserID:     d.userID,
		FromUserID:   from,
		NotifType:    d.event.Type,
		ResourceType: d.event.ResourceType,
		ResourceID:   d.event.ResourceID,
		ProjectID:    d.projectID,
		TaskPriority: d.priority,
		Title:        d.formatted.Title,
		Body:         d.formatted.Description,
		LinkURL:      d.formatted.Link,
		CreatedAt:    time.Now().UTC(),
	})
}

func (n *Notifier) email(ctx context.Context, d delivery) error {
	if err := n.limiters.Wait(ctx, domain.ChannelEmail); err != nil {
		return err
	}

	return n.mail.Send(ctx, d.template, mailer.Payload{
		To:          d.prefs.Email,
		UserName:    n.dir.DisplayName(ctx, d.userID),
		Title:       d.formatted.Title,
		Description: d.formatted.Description,
		Link:        d.formatted.Link,
	})
}

func (n *Notifier) delivered(ch domain.Channel) {
	if n.onDelivered != nil {
		n.onDelivered(ch)
	}
}

func (n *Notifier) failed(ch domain.Channel, d delivery, err error) {
	n.logger.Error("channel delivery failed",
		zap.String("channel", string(ch)),
		zap.String("user_id", d.userID),
		zap.String("type", string(d.event.Type)),
		zap.Error(err))
	if n.onFailed != nil {
		n.onFailed(ch)
	}
}
