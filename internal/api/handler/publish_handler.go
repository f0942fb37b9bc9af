package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/taskgrid/notification-service/internal/api/middleware"
	"github.com/taskgrid/notification-service/internal/domain"
	"github.com/taskgrid/notification-service/internal/producer"
)

// PublishHandler is the producer surface: sibling services schedule
// reminders and queue update/added events through these endpoints.
type PublishHandler struct {
	producer *producer.Producer
	logger   *zap.Logger
}

func NewPublishHandler(p *producer.Producer, logger *zap.Logger) *PublishHandler {
	return &PublishHandler{producer: p, logger: logger}
}

// DeadlineReminder handles POST /api/v1/publish/deadline-reminder
//
// @Summary  Schedule deadline reminders for a task
// @Tags     publish
// @Accept   json
// @Produce  json
// @Param    body  body      producer.ReminderRequest  true  "Task deadline"
// @Success  202   {object}  map[string]int
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/publish/deadline-reminder [post]
func (h *PublishHandler) DeadlineReminder(w http.ResponseWriter, r *http.Request) {
	var req producer.ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	scheduled, err := h.producer.ScheduleDeadlineReminders(r.Context(), req)
	if err != nil {
		h.logger.Warn("schedule reminders failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]int{"scheduled": scheduled})
}

// Update handles POST /api/v1/publish/update
//
// @Summary  Queue an update notification event
// @Tags     publish
// @Accept   json
// @Success  202
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/publish/update [post]
func (h *PublishHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.publishEvent(w, r, h.producer.PublishUpdate)
}

// Added handles POST /api/v1/publish/added
//
// @Summary  Queue an added-to-resource notification event
// @Tags     publish
// @Accept   json
// @Success  202
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/publish/added [post]
func (h *PublishHandler) Added(w http.ResponseWriter, r *http.Request) {
	h.publishEvent(w, r, h.producer.PublishAdded)
}

// Immediate handles POST /api/v1/publish/immediate
//
// @Summary  Fan an event out for same-instant delivery, bypassing the queues
// @Tags     publish
// @Accept   json
// @Success  202
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/publish/immediate [post]
func (h *PublishHandler) Immediate(w http.ResponseWriter, r *http.Request) {
	h.publishEvent(w, r, h.producer.PublishImmediate)
}

// Schedule handles POST /api/v1/schedule
//
// @Summary  Place a raw event on a named queue at a chosen instant
// @Tags     publish
// @Accept   json
// @Success  202
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/schedule [post]
func (h *PublishHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Queue string                   `json:"queue"`
		Event domain.NotificationEvent `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.producer.Schedule(r.Context(), req.Queue, &req.Event); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type publishFn func(ctx context.Context, e *domain.NotificationEvent) error

func (h *PublishHandler) publishEvent(w http.ResponseWriter, r *http.Request, publish publishFn) {
	var e domain.NotificationEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := publish(r.Context(), &e); err != nil {
		h.logger.Warn("publish failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
