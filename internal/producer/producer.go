// Package producer is the write side of the pipeline: it validates incoming
// scheduling requests, expands them into notification events, and places
// them on the delay queues or the immediate fan-out channel.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/domain"
)

// ReminderDays are the offsets before a deadline at which reminders fire.
var ReminderDays = []int{1, 3, 7}

// Broadcaster is the immediate fan-out seam, satisfied by *pubsub.Publisher.
type Broadcaster interface {
	Publish(ctx context.Context, e *domain.NotificationEvent) error
}

// Producer schedules and publishes notification events.
type Producer struct {
	queue  delayqueue.Queue
	pub    Broadcaster
	logger *zap.Logger
	now    func() time.Time
}

func New(queue delayqueue.Queue, pub Broadcaster, logger *zap.Logger) *Producer {
	return &Producer{
		queue:  queue,
		pub:    pub,
		logger: logger,
		now:    time.Now,
	}
}

// ReminderRequest describes a task whose deadline reminders should be
// scheduled.
type ReminderRequest struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	UserID       string `json:"user_id"`
	Deadline     string `json:"deadline"`
}

// ScheduleDeadlineReminders fans one task deadline out into a reminder per
// configured day offset. Offsets already in the past are skipped, so a task
// due tomorrow gets only its 1-day reminder. The dedup key is
// "resourceId:userId:day"; callers re-scheduling the same task must clear
// the old entries first.
func (p *Producer) ScheduleDeadlineReminders(ctx context.Context, req ReminderRequest) (int, error) {
	if req.UserID == "" {
		return 0, domain.ErrMissingRecipient
	}
	if req.ResourceID == "" {
		return 0, domain.ErrMissingResource
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return 0, domain.ErrInvalidDeadline
	}

	now := p.now()
	scheduled := 0
	for _, day := range ReminderDays {
		notifyAt := deadline.AddDate(0, 0, -day)
		if !notifyAt.After(now) {
			continue
		}

		e := &domain.NotificationEvent{
			Type:         domain.EventDeadlineReminder,
			ResourceType: domain.ResourceTask,
			ResourceID:   req.ResourceID,
			ResourceName: req.ResourceName,
			UserID:       req.UserID,
			Day:          day,
			Key:          fmt.Sprintf("%s:%s:%d", req.ResourceID, req.UserID, day),
			NotifyAt:     notifyAt.UnixMilli(),
		}
		if err := p.enqueue(ctx, delayqueue.QueueDeadlineReminders, e); err != nil {
			return scheduled, err
		}
		scheduled++
	}

	p.logger.Info("deadline reminders scheduled",
		zap.String("resource_id", req.ResourceID),
		zap.String("user_id", req.UserID),
		zap.Int("count", scheduled))
	return scheduled, nil
}

// PublishUpdate queues one update event for the next poll cycle, where it
// is batched with the recipient's other pending updates.
func (p *Producer) PublishUpdate(ctx context.Context, e *domain.NotificationEvent) error {
	if e.UserID == "" {
		return domain.ErrMissingRecipient
	}
	if e.ResourceID == "" || e.ResourceType == "" {
		return domain.ErrMissingResource
	}

	e.Type = domain.EventUpdated
	e.NotifyAt = p.now().UnixMilli()
	return p.enqueue(ctx, delayqueue.QueueTaskUpdates, e)
}

// PublishAdded queues one added-to-resource event for the next poll cycle.
func (p *Producer) PublishAdded(ctx context.Context, e *domain.NotificationEvent) error {
	if len(e.CollaboratorIDs) == 0 {
		return domain.ErrMissingRecipient
	}
	if e.ResourceID == "" {
		return domain.ErrMissingResource
	}

	e.Type = domain.EventAdded
	e.NotifyAt = p.now().UnixMilli()
	return p.enqueue(ctx, delayqueue.QueueAdded, e)
}

// Schedule places a raw event on a named queue at its NotifyAt instant.
// Operational escape hatch for replaying or hand-crafting entries.
func (p *Producer) Schedule(ctx context.Context, queue string, e *domain.NotificationEvent) error {
	if !validQueue(queue) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownQueue, queue)
	}
	if !e.Type.IsValid() {
		return domain.ErrUnknownEventType
	}
	if e.NotifyAt == 0 {
		e.NotifyAt = p.now().UnixMilli()
	}
	return p.enqueue(ctx, queue, e)
}

func validQueue(queue string) bool {
	for _, name := range delayqueue.Names() {
		if name == queue {
			return true
		}
	}
	return false
}

// PublishImmediate bypasses the delay queues and fans the event out over
// pub/sub for same-instant delivery. No durability: a subscriber that is
// down misses the event.
func (p *Producer) PublishImmediate(ctx context.Context, e *domain.NotificationEvent) error {
	if !e.Type.IsValid() {
		return domain.ErrUnknownEventType
	}
	return p.pub.Publish(ctx, e)
}

func (p *Producer) enqueue(ctx context.Context, queue string, e *domain.NotificationEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.queue.Enqueue(ctx, queue, e.NotifyAt, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", queue, err)
	}
	return nil
}
