package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/taskgrid/notification-service/internal/api/middleware"
	"github.com/taskgrid/notification-service/internal/repository"
)

// NotificationHandler serves the durable notification records: the copy of
// every delivered notification a user can read back, mark, and delete.
type NotificationHandler struct {
	repo   repository.RecordRepository
	logger *zap.Logger
}

func NewNotificationHandler(repo repository.RecordRepository, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, logger: logger}
}

// List handles GET /api/v1/notifications/{userID}
//
// @Summary  List a user's notifications, newest first
// @Tags     notifications
// @Produce  json
// @Param    userID  path      string  true  "Recipient user ID"
// @Success  200     {object}  map[string]any
// @Router   /api/v1/notifications/{userID} [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	records, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Warn("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"total": len(records),
	})
}

// MarkRead handles PATCH /api/v1/notifications/read
//
// @Summary  Mark a set of notifications as read
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      object{ids=[]string}  true  "Record IDs"
// @Success  200   {object}  map[string]int
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications/read [patch]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	count, err := h.repo.MarkRead(r.Context(), req.IDs)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": count})
}

// ToggleRead handles PATCH /api/v1/notifications/{id}/toggle-read
//
// @Summary  Flip a notification's user-set read flag
// @Tags     notifications
// @Produce  json
// @Param    id   path      string  true  "Record ID"
// @Success  200  {object}  map[string]bool
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/toggle-read [patch]
func (h *NotificationHandler) ToggleRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	newValue, err := h.repo.ToggleRead(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"user_set_read": newValue})
}

// DeleteOne handles DELETE /api/v1/notifications/{userID}/{id}
//
// @Summary  Delete one of a user's notifications
// @Tags     notifications
// @Param    userID  path  string  true  "Recipient user ID"
// @Param    id      path  string  true  "Record ID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/notifications/{userID}/{id} [delete]
func (h *NotificationHandler) DeleteOne(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteOne(r.Context(), userID, id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /api/v1/notifications/{userID}
//
// @Summary  Delete all of a user's notifications
// @Tags     notifications
// @Produce  json
// @Param    userID  path      string  true  "Recipient user ID"
// @Success  200     {object}  map[string]int
// @Router   /api/v1/notifications/{userID} [delete]
func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	count, err := h.repo.DeleteAll(r.Context(), userID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": count})
}
