package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskgrid/notification-service/internal/domain"
)

type pgRecordRepository struct {
	pool *pgxpool.Pool
}

// NewPgRecordRepository returns a RecordRepository backed by PostgreSQL.
func NewPgRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &pgRecordRepository{pool: pool}
}

func (r *pgRecordRepository) Create(ctx context.Context, rec *domain.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, to_user_id, from_user_id, notif_type, resource_type, resource_id,
			 project_id, task_priority, title, body, link_url, read, user_set_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.ToUserID, rec.FromUserID, rec.NotifType, rec.ResourceType, rec.ResourceID,
		rec.ProjectID, rec.TaskPriority, rec.Title, rec.Body, rec.LinkURL,
		rec.Read, rec.UserSetRead, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification record: %w", err)
	}
	return nil
}

func (r *pgRecordRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, to_user_id, from_user_id, notif_type, resource_type, resource_id,
		       project_id, task_priority, title, body, link_url, read, user_set_read, created_at
		FROM notifications
		WHERE to_user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *pgRecordRepository) MarkRead(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domain.ErrNoIDs
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgRecordRepository) ToggleRead(ctx context.Context, id string) (bool, error) {
	var newValue bool
	err := r.pool.QueryRow(ctx, `
		UPDATE notifications SET user_set_read = NOT user_set_read
		WHERE id = $1
		RETURNING user_set_read`, id).Scan(&newValue)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle read: %w", err)
	}
	return newValue, nil
}

func (r *pgRecordRepository) DeleteOne(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE to_user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgRecordRepository) DeleteAll(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE to_user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete all notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgRecordRepository) DeliveryPreferences(ctx context.Context, userID string) ([]string, error) {
	var methods []string
	err := r.pool.QueryRow(ctx, `
		SELECT delivery_method FROM notification_preferences
		WHERE user_id = $1`, userID).Scan(&methods)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery preferences: %w", err)
	}
	return methods, nil
}

func (r *pgRecordRepository) UpdateDeliveryPreferences(ctx context.Context, userID string, methods []string) ([]string, error) {
	var updated []string
	err := r.pool.QueryRow(ctx, `
		UPDATE notification_preferences SET delivery_method = $1
		WHERE user_id = $2
		RETURNING delivery_method`, methods, userID).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update delivery preferences: %w", err)
	}
	return updated, nil
}

func (r *pgRecordRepository) FrequencyPreferences(ctx context.Context, userID string) (*domain.FrequencyPreferences, error) {
	var prefs domain.FrequencyPreferences
	err := r.pool.QueryRow(ctx, `
		SELECT delivery_frequency, delivery_time, delivery_day
		FROM notification_preferences
		WHERE user_id = $1`, userID).Scan(
		&prefs.DeliveryFrequency, &prefs.DeliveryTime, &prefs.DeliveryDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get frequency preferences: %w", err)
	}
	return &prefs, nil
}

func (r *pgRecordRepository) UpdateFrequencyPreferences(ctx context.Context, userID string, prefs domain.FrequencyPreferences) (*domain.FrequencyPreferences, error) {
	// Defaults mirror the preference bootstrap: 9am Mondays.
	if prefs.DeliveryTime == "" {
		prefs.DeliveryTime = "1970-01-01T09:00:00+00:00"
	}
	if prefs.DeliveryDay == "" {
		prefs.DeliveryDay = "Monday"
	}

	var updated domain.FrequencyPreferences
	err := r.pool.QueryRow(ctx, `
		UPDATE notification_preferences
		SET delivery_frequency = $1, delivery_time = $2, delivery_day = $3
		WHERE user_id = $4
		RETURNING delivery_frequency, delivery_time, delivery_day`,
		prefs.DeliveryFrequency, prefs.DeliveryTime, prefs.DeliveryDay, userID).Scan(
		&updated.DeliveryFrequency, &updated.DeliveryTime, &updated.DeliveryDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update frequency preferences: %w", err)
	}
	return &updated, nil
}

func scanRecord(row pgx.Row) (*domain.Record, error) {
	var rec domain.Record
	err := row.Scan(
		&rec.ID, &rec.ToUserID, &rec.FromUserID, &rec.NotifType, &rec.ResourceType,
		&rec.ResourceID, &rec.ProjectID, &rec.TaskPriority, &rec.Title, &rec.Body,
		&rec.LinkURL, &rec.Read, &rec.UserSetRead, &rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan notification record: %w", err)
	}
	return &rec, nil
}
