package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"sipHappensAPI/middleware"
	"sipHappensAPI/services"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	achievements, err := h.achievementService.GetAchievements(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

// CheckAchievements re-evaluates the caller's full history on demand and
// returns anything newly unlocked.
func (h *AchievementHandler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	unlocked, err := h.achievementService.CheckAchievements(ctx, clerkID)
	if err != nil {
		log.Printf("CheckAchievements Handler: Service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to check achievements")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"unlocked_achievements": unlocked,
	})
}

// NextCelebration peeks at the oldest pending celebration without removing
// it. The client calls DismissCelebration once the animation has played.
func (h *AchievementHandler) NextCelebration(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	next := h.achievementService.NextCelebration(clerkID)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"celebration": next,
	})
}

func (h *AchievementHandler) DismissCelebration(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	h.achievementService.DismissCelebration(clerkID)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Celebration dismissed"})
}

// RunBackfill sweeps every user's unlock records and corrects their
// timestamps to the historical instant the unlock condition was first met.
// Heavy; exposed only behind the admin basic-auth middleware.
func (h *AchievementHandler) RunBackfill(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	report, err := h.achievementService.BackfillUnlockDates(ctx)
	if err != nil {
		log.Printf("RunBackfill Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Backfill failed")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
