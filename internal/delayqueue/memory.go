package delayqueue

import (
	"context"
	"sort"
	"sync"
)

// MemoryQueue is an in-memory Queue used in unit tests and local runs
// without Redis. Entries keep insertion order among equal scores.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[string][]memberEntry
}

type memberEntry struct {
	score   int64
	payload string
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{queues: make(map[string][]memberEntry)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, queue string, score int64, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := append(q.queues[queue], memberEntry{score: score, payload: string(payload)})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score < entries[j].score })
	q.queues[queue] = entries
	return nil
}

func (q *MemoryQueue) DrainDue(_ context.Context, queue string, now int64) ([][]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due [][]byte
	for _, e := range q.queues[queue] {
		if e.score <= now {
			due = append(due, []byte(e.payload))
		}
	}
	return due, nil
}

func (q *MemoryQueue) Remove(_ context.Context, queue string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.queues[queue]
	for i, e := range entries {
		if e.payload == string(payload) {
			q.queues[queue] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) Len(_ context.Context, queue string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.queues[queue])), nil
}

var _ Queue = (*MemoryQueue)(nil)
