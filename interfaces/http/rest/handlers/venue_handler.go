package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citypulse/application/services"
	"citypulse/pkg/common"
	apperrors "citypulse/pkg/errors"
)

// VenueHandler serves venue discovery queries.
type VenueHandler struct {
	venues *services.VenueService
	logger *zap.Logger
}

// NewVenueHandler creates a venue handler.
func NewVenueHandler(venues *services.VenueService, logger *zap.Logger) *VenueHandler {
	return &VenueHandler{venues: venues, logger: logger}
}

// Search handles GET /venues?keyword=&city=.
func (h *VenueHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.venues.Search(r.Context(), q.Get("keyword"), q.Get("city"))
	if err != nil {
		h.respondErr(w, err, "venue search")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Detail handles GET /venues/{venueID}.
func (h *VenueHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "venueID")

	result, err := h.venues.Detail(r.Context(), id)
	if err != nil {
		h.respondErr(w, err, "venue detail")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Nearby handles GET /venues/nearby?lat=&lng=&radius=&unit=.
func (h *VenueHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	nq, err := parseNearbyQuery(r)
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	result, err := h.venues.Nearby(r.Context(), nq.Lat, nq.Lng, nq.Radius, nq.Unit)
	if err != nil {
		h.respondErr(w, err, "venues nearby")
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// Refresh handles POST /venues/refresh.
func (h *VenueHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	invalidated := h.venues.Refresh()
	common.RespondJSON(w, http.StatusOK, map[string]int{"invalidated": invalidated})
}

func (h *VenueHandler) respondErr(w http.ResponseWriter, err error, op string) {
	if !apperrors.IsValidation(err) && !apperrors.IsNotFound(err) {
		h.logger.Error("venue query failed", zap.String("operation", op), zap.Error(err))
	}
	common.RespondAppError(w, err)
}
