package repository

import (
	"context"

	"github.com/taskgrid/notification-service/internal/domain"
)

// RecordRepository defines all persistence operations for durable
// notification records and per-user preferences.
// The pgx implementation is in pg_record_repo.go.
// Tests use a hand-written mock (mock_record_repo.go).
type RecordRepository interface {
	// Create writes one per-recipient record. Called by the dispatcher as
	// the persisted delivery channel; its failure is logged by the caller
	// and never blocks the other channels.
	Create(ctx context.Context, rec *domain.Record) error

	ListByUser(ctx context.Context, userID string) ([]*domain.Record, error)
	MarkRead(ctx context.Context, ids []string) (int, error)
	ToggleRead(ctx context.Context, id string) (bool, error)
	DeleteOne(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int, error)

	DeliveryPreferences(ctx context.Context, userID string) ([]string, error)
	UpdateDeliveryPreferences(ctx context.Context, userID string, methods []string) ([]string, error)
	FrequencyPreferences(ctx context.Context, userID string) (*domain.FrequencyPreferences, error)
	UpdateFrequencyPreferences(ctx context.Context, userID string, prefs domain.FrequencyPreferences) (*domain.FrequencyPreferences, error)
}
