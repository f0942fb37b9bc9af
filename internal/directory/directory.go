// Package directory looks up user display names and delivery preferences
// from the profile service. Lookups are best-effort: unknown users and
// transport failures yield safe defaults, never errors, because a missing
// profile must not abort a notification.
package directory

import (
	"context"

	"github.com/taskgrid/notification-service/internal/domain"
)

// Directory is the profile collaborator contract.
type Directory interface {
	// DisplayName returns the user's display name, or "Unknown" when the
	// user cannot be resolved.
	DisplayName(ctx context.Context, userID string) string

	// Preferences returns the user's delivery preferences, or the zero
	// value (no email, no methods) when the user cannot be resolved.
	Preferences(ctx context.Context, userID string) domain.Preferences
}
