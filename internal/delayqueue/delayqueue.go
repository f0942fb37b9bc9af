// Package delayqueue implements the named, score-ordered queues that hold
// pending notification payloads until their scheduled delivery instant.
package delayqueue

import "context"

// Named queues. Deadline reminders and added events dispatch per entry;
// task updates are grouped per recipient before dispatch.
const (
	QueueDeadlineReminders = "deadline_reminders"
	QueueTaskUpdates       = "task_updates"
	QueueAdded             = "added"
)

// Names returns every queue the poller must watch.
func Names() []string {
	return []string{QueueDeadlineReminders, QueueTaskUpdates, QueueAdded}
}

// Queue is a set of named, score-ordered collections of raw payloads.
// Scores are epoch milliseconds. DrainDue does not remove: callers process
// an entry and then Remove it, so a crash mid-handling leaves the entry for
// the next tick (at-least-once).
//
// No uniqueness is enforced here; producers track the dedup key themselves.
type Queue interface {
	Enqueue(ctx context.Context, queue string, score int64, payload []byte) error
	DrainDue(ctx context.Context, queue string, now int64) ([][]byte, error)
	Remove(ctx context.Context, queue string, payload []byte) error
	Len(ctx context.Context, queue string) (int64, error)
}
