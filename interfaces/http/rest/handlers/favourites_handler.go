package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citypulse/application/favourites"
	"citypulse/pkg/common"
)

// FavouritesHandler serves the per-session favourites set.
type FavouritesHandler struct {
	favourites *favourites.Store
	logger     *zap.Logger
}

// NewFavouritesHandler creates a favourites handler.
func NewFavouritesHandler(store *favourites.Store, logger *zap.Logger) *FavouritesHandler {
	return &FavouritesHandler{favourites: store, logger: logger}
}

type favouriteStatus struct {
	EventID   string `json:"eventId"`
	Favourite bool   `json:"favourite"`
}

// List handles GET /favourites.
func (h *FavouritesHandler) List(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"eventIds": h.favourites.List(),
		"count":    h.favourites.Len(),
	})
}

// Get handles GET /favourites/{eventID}.
func (h *FavouritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	common.RespondJSON(w, http.StatusOK, favouriteStatus{EventID: id, Favourite: h.favourites.IsFavourite(id)})
}

// Put handles PUT /favourites/{eventID}. Adding twice is a no-op.
func (h *FavouritesHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	if id == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", "event id is required")
		return
	}
	h.favourites.Add(id)
	common.RespondJSON(w, http.StatusOK, favouriteStatus{EventID: id, Favourite: true})
}

// Delete handles DELETE /favourites/{eventID}. Removing an absent id is a
// no-op.
func (h *FavouritesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventID")
	h.favourites.Remove(id)
	common.RespondJSON(w, http.StatusOK, favouriteStatus{EventID: id, Favourite: false})
}
