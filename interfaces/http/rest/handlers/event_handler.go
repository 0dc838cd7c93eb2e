package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citypulse/application/services"
	"citypulse/pkg/common"
	apperrors "citypulse/pkg/errors"
)

// EventHandler serves event discovery queries.
type EventHandler struct {
	events *services.EventService
	logger *zap.Logger
}

// NewEventHandler creates an event handler.
func NewEventHandler(events *services.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// Search handles GET /events?keyword=&city=&page=&size=.
func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntParam(q.Get("page"), 0)
	size := parseIntParam(q.Get("size"), 0)

	result, err := h.events.Search(r.Context(), q.Get("keyword"), q.Get("city"), page, size)
	if err != nil {
		h.respondErr(w, err, "event search")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Detail handles GET /events/{eventID}.
func (h *EventHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")

	result, err := h.events.Detail(r.Context(), id)
	if err != nil {
		h.respondErr(w, err, "event detail")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Nearby handles GET /events/nearby?lat=&lng=&radius=&unit=.
func (h *EventHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	nq, err := parseNearbyQuery(r)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	result, err := h.events.Nearby(r.Context(), nq.Lat, nq.Lng, nq.Radius, nq.Unit)
	if err != nil {
		h.respondErr(w, err, "events nearby")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ByCategory handles GET /events/category/{classification}?city=.
func (h *EventHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	classification := chi.URLParam(r, "classification")

	result, err := h.events.ByCategory(r.Context(), classification, r.URL.Query().Get("city"))
	if err != nil {
		h.respondErr(w, err, "events by category")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Refresh handles POST /events/refresh. It marks every cached event query
// stale so the next observation refetches.
func (h *EventHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	invalidated := h.events.Refresh()
	common.RespondJSON(w, http.StatusOK, map[string]int{"invalidated": invalidated})
}

func (h *EventHandler) respondErr(w http.ResponseWriter, err error, op string) {
	if !apperrors.IsValidation(err) && !apperrors.IsNotFound(err) {
		h.logger.Error("event query failed", zap.String("operation", op), zap.Error(err))
	}
	common.RespondAppError(w, err)
}
