package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sipHappensAPI/middleware"
	"sipHappensAPI/services"
)

func authedRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(r.Context(), middleware.ClerkIDKey, "user_test")
	return r.WithContext(ctx)
}

func TestGetAllVenuesRejectsUnknownType(t *testing.T) {
	h := NewVenueHandler(services.NewVenueService(nil))

	w := httptest.NewRecorder()
	h.GetAllVenues(w, authedRequest(http.MethodGet, "/api/v1/venues?type=Casino"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown venue type")
}

func TestGetAllVenuesRequiresAuth(t *testing.T) {
	h := NewVenueHandler(services.NewVenueService(nil))

	w := httptest.NewRecorder()
	h.GetAllVenues(w, httptest.NewRequest(http.MethodGet, "/api/v1/venues", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
