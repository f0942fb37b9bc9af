// Package resources fetches task and project detail from the task service.
// Lookups degrade to blank detail on failure so delivery proceeds with
// whatever is known rather than aborting.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/domain"
)

// Lookup is the resource-detail collaborator contract.
type Lookup interface {
	// TaskDetail returns the task's current detail, or the zero value when
	// the task service is unavailable or the task is unknown.
	TaskDetail(ctx context.Context, resourceID string) domain.TaskDetail
}

// HTTPLookup talks to the task service over its REST API.
type HTTPLookup struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPLookup(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPLookup {
	return &HTTPLookup{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (l *HTTPLookup) TaskDetail(ctx context.Context, resourceID string) domain.TaskDetail {
	var detail domain.TaskDetail
	if err := l.get(ctx, "/task/"+resourceID, &detail); err != nil {
		l.logger.Warn("task detail lookup failed, proceeding with blank detail",
			zap.String("resource_id", resourceID), zap.Error(err))
		return domain.TaskDetail{}
	}
	return detail
}

func (l *HTTPLookup) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("task service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("task service status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ Lookup = (*HTTPLookup)(nil)
