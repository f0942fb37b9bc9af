package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/domain"
)

// HTTPDirectory talks to the profile service over its REST API.
type HTTPDirectory struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPDirectory(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (d *HTTPDirectory) DisplayName(ctx context.Context, userID string) string {
	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := d.get(ctx, "/users/"+userID, &body); err != nil || body.DisplayName == "" {
		if err != nil {
			d.logger.Warn("display name lookup failed",
				zap.String("user_id", userID), zap.Error(err))
		}
		return "Unknown"
	}
	return body.DisplayName
}

func (d *HTTPDirectory) Preferences(ctx context.Context, userID string) domain.Preferences {
	var prefs domain.Preferences
	if err := d.get(ctx, "/notifications/preferences/delivery-method/"+userID, &prefs); err != nil {
		d.logger.Warn("preferences lookup failed, defaulting to none",
			zap.String("user_id", userID), zap.Error(err))
		return domain.Preferences{}
	}
	return prefs
}

func (d *HTTPDirectory) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile service status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var _ Directory = (*HTTPDirectory)(nil)
