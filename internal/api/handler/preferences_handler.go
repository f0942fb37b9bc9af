package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/domain"
	"github.com/taskgrid/notification-service/internal/repository"
)

// PreferencesHandler serves per-user delivery and frequency preferences.
type PreferencesHandler struct {
	repo   repository.RecordRepository
	logger *zap.Logger
}

func NewPreferencesHandler(repo repository.RecordRepository, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{repo: repo, logger: logger}
}

// GetDelivery handles GET /api/v1/preferences/{userID}/delivery
//
// @Summary  Get a user's delivery methods
// @Tags     preferences
// @Produce  json
// @Param    userID  path      string  true  "User ID"
// @Success  200     {object}  map[string][]string
// @Failure  404     {object}  map[string]string
// @Router   /api/v1/preferences/{userID}/delivery [get]
func (h *PreferencesHandler) GetDelivery(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	methods, err := h.repo.DeliveryPreferences(r.Context(), userID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"delivery_method": methods})
}

// UpdateDelivery handles PUT /api/v1/preferences/{userID}/delivery
//
// @Summary  Replace a user's delivery methods
// @Tags     preferences
// @Accept   json
// @Produce  json
// @Param    userID  path      string                           true  "User ID"
// @Param    body    body      object{delivery_method=[]string} true  "Methods"
// @Success  200     {object}  map[string][]string
// @Failure  422     {object}  map[string]string
// @Router   /api/v1/preferences/{userID}/delivery [put]
func (h *PreferencesHandler) UpdateDelivery(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		DeliveryMethods []string `json:"delivery_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, m := range req.DeliveryMethods {
		if m != domain.DeliveryInApp && m != domain.DeliveryEmail {
			mapError(w, domain.ErrInvalidDelivery)
			return
		}
	}

	methods, err := h.repo.UpdateDeliveryPreferences(r.Context(), userID, req.DeliveryMethods)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"delivery_method": methods})
}

// GetFrequency handles GET /api/v1/preferences/{userID}/frequency
//
// @Summary  Get a user's delivery frequency settings
// @Tags     preferences
// @Produce  json
// @Param    userID  path      string  true  "User ID"
// @Success  200     {object}  domain.FrequencyPreferences
// @Failure  404     {object}  map[string]string
// @Router   /api/v1/preferences/{userID}/frequency [get]
func (h *PreferencesHandler) GetFrequency(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	prefs, err := h.repo.FrequencyPreferences(r.Context(), userID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdateFrequency handles PUT /api/v1/preferences/{userID}/frequency
//
// @Summary  Replace a user's delivery frequency settings
// @Tags     preferences
// @Accept   json
// @Produce  json
// @Param    userID  path      string                      true  "User ID"
// @Param    body    body      domain.FrequencyPreferences true  "Settings"
// @Success  200     {object}  domain.FrequencyPreferences
// @Failure  404     {object}  map[string]string
// @Router   /api/v1/preferences/{userID}/frequency [put]
func (h *PreferencesHandler) UpdateFrequency(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req domain.FrequencyPreferences
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prefs, err := h.repo.UpdateFrequencyPreferences(r.Context(), userID, req)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
