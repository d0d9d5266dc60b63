package handlers

import (
	"context"
	"net/http"
	"time"

	"sipHappensAPI/internal/venue"
	"sipHappensAPI/middleware"
	"sipHappensAPI/services"
)

type VenueHandler struct {
	venueService *services.VenueService
}

func NewVenueHandler(venueService *services.VenueService) *VenueHandler {
	return &VenueHandler{
		venueService: venueService,
	}
}

// GetAllVenues lists venues ordered by rating. An optional ?type= query
// narrows to one venue category.
func (h *VenueHandler) GetAllVenues(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	category := venue.VenueCategory(r.URL.Query().Get("type"))
	if category != "" && !category.Valid() {
		respondWithError(w, http.StatusBadRequest, "Unknown venue type")
		return
	}

	venues, err := h.venueService.GetVenues(ctx, category)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch venues")
		return
	}

	respondWithJSON(w, http.StatusOK, venues)
}
