package repository

import (
	"context"
	"sync"

	"github.com/taskgrid/notification-service/internal/domain"
)

// MockRecordRepository is a hand-written, in-memory implementation of
// RecordRepository used in unit tests. No mock-generation library needed.
type MockRecordRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
	methods map[string][]string
	freq    map[string]domain.FrequencyPreferences

	// Optional error override — set in tests to simulate the durable
	// channel failing.
	CreateErr error
}

func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		records: make(map[string]*domain.Record),
		methods: make(map[string][]string),
		freq:    make(map[string]domain.FrequencyPreferences),
	}
}

func (m *MockRecordRepository) Create(_ context.Context, rec *domain.Record) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *rec
	m.records[rec.ID] = &clone
	return nil
}

func (m *MockRecordRepository) ListByUser(_ context.Context, userID string) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Record
	for _, rec := range m.records {
		if rec.ToUserID == userID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockRecordRepository) MarkRead(_ context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domain.ErrNoIDs
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			rec.Read = true
			count++
		}
	}
	return count, nil
}

func (m *MockRecordRepository) ToggleRead(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	rec.UserSetRead = !rec.UserSetRead
	return rec.UserSetRead, nil
}

func (m *MockRecordRepository) DeleteOne(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || rec.ToUserID != userID {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MockRecordRepository) DeleteAll(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for id, rec := range m.records {
		if rec.ToUserID == userID {
			delete(m.records, id)
			count++
		}
	}
	return count, nil
}

func (m *MockRecordRepository) DeliveryPreferences(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	methods, ok := m.methods[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]string(nil), methods...), nil
}

func (m *MockRecordRepository) UpdateDeliveryPreferences(_ context.Context, userID string, methods []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods[userID] = append([]string(nil), methods...)
	return m.methods[userID], nil
}

func (m *MockRecordRepository) FrequencyPreferences(_ context.Context, userID string) (*domain.FrequencyPreferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefs, ok := m.freq[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := prefs
	return &clone, nil
}

func (m *MockRecordRepository) UpdateFrequencyPreferences(_ context.Context, userID string, prefs domain.FrequencyPreferences) (*domain.FrequencyPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freq[userID] = prefs
	clone := prefs
	return &clone, nil
}

// Records returns a snapshot of everything persisted, for test assertions.
func (m *MockRecordRepository) Records() []*domain.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Record, 0, len(m.records))
	for _, rec := range m.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out
}
