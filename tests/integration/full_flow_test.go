package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipHappensAPI/handlers"
	"sipHappensAPI/internal/achievement"
	modelUser "sipHappensAPI/internal/user"
	"sipHappensAPI/middleware"
	"sipHappensAPI/services"
	"sipHappensAPI/tests/helpers"
)

// TestFullSignUpAndLoginFlow simulates the complete flow
func TestFullSignUpAndLoginFlow(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService, nil)
	userHandler := handlers.NewUserHandler(userService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	// Step 1: Simulate user signs up with Google via Clerk
	t.Log("Step 1: User signs up with Google")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	// Step 2: Verify user exists in database
	t.Log("Step 2: Verify user in database")

	ctx := context.Background()
	user, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	// Step 3: Simulate user logs in and gets profile
	t.Log("Step 3: User gets profile")

	req2 := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	ctx = context.WithValue(req2.Context(), middleware.ClerkIDKey, clerkID)
	req2 = req2.WithContext(ctx)
	rr2 := httptest.NewRecorder()

	userHandler.GetProfile(rr2, req2)
	assert.Equal(t, http.StatusOK, rr2.Code)

	var profile modelUser.User
	err = json.Unmarshal(rr2.Body.Bytes(), &profile)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)

	// Step 4: User updates profile
	t.Log("Step 4: User updates profile")

	updateData := `{"firstName": "NewFirst", "username": "newusername123"}`
	req3 := httptest.NewRequest(http.MethodPut, "/api/user/profile", strings.NewReader(updateData))
	req3.Header.Set("Content-Type", "application/json")
	ctx = context.WithValue(req3.Context(), middleware.ClerkIDKey, clerkID)
	req3 = req3.WithContext(ctx)
	rr3 := httptest.NewRecorder()

	userHandler.UpdateProfile(rr3, req3)
	assert.Equal(t, http.StatusOK, rr3.Code)

	// Step 5: Verify update
	t.Log("Step 5: Verify profile update")

	updatedUser, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "NewFirst", updatedUser.FirstName)
	assert.Equal(t, "newusername123", updatedUser.Username)

	// Step 6: User logs out (no server action needed for Clerk)
	// Step 7: User logs back in (same as step 3)

	// Step 8: User deletes account
	t.Log("Step 6: User deletes account")

	req4 := httptest.NewRequest(http.MethodDelete, "/api/user/account", nil)
	ctx = context.WithValue(req4.Context(), middleware.ClerkIDKey, clerkID)
	req4 = req4.WithContext(ctx)
	rr4 := httptest.NewRecorder()

	userHandler.DeleteAccount(rr4, req4)
	assert.Equal(t, http.StatusOK, rr4.Code)

	// Verify deletion
	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "User should be deleted")
}

// authedJSONRequest builds a request carrying the Clerk ID the auth
// middleware would have extracted.
func authedJSONRequest(method, target, body, clerkID string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	return req.WithContext(ctx)
}

// TestDrinkUnlockCelebrationAndBackfillFlow walks the engine's core loop
// end to end: sign up, log a drink, receive the unlock in the response,
// celebrate it over the celebration endpoints, then run backfill against a
// deliberately skewed unlock timestamp.
func TestDrinkUnlockCelebrationAndBackfillFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	ctx := context.Background()

	// Seed one rule before any evaluation runs so the lazy definition
	// cache picks it up.
	achID := uuid.New()
	achName := "Test First Sip " + time.Now().Format("20060102150405")
	_, err := pool.Exec(ctx, `
		INSERT INTO achievements (id, name, description, icon, category, tier, requirement_type, requirement_value, created_at)
		VALUES ($1, $2, 'Log your first drink', 'beer-icon', 'milestones', 'bronze', 'total_drinks', '1', NOW())
	`, achID, achName)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DELETE FROM achievements WHERE id = $1`, achID)
	defer pool.Exec(ctx, `DELETE FROM user_achievements WHERE achievement_id = $1`, achID)

	notificationService := services.NewNotificationService(pool)
	achievementService := services.NewAchievementService(pool, notificationService)
	userService := services.NewUserService(pool, achievementService, nil)
	userHandler := handlers.NewUserHandler(userService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_flow_" + time.Now().Format("20060102150405")

	// Step 1: sign up via the Clerk webhook, onboarding metadata included.
	t.Log("Step 1: User signs up")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload)))
	require.Equal(t, http.StatusOK, rr.Code)

	created, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Sofia", created.Timezone, "timezone from signup metadata should land in the user row")
	assert.True(t, created.BetaTester, "beta flag from signup metadata should land in the user row")

	// Step 2: log a drink and receive the unlock in the same response.
	t.Log("Step 2: User logs a drink and unlocks")

	rr = httptest.NewRecorder()
	userHandler.LogDrink(rr, authedJSONRequest(http.MethodPost, "/api/v1/user/drink", `{"drink_type": "beer"}`, clerkID))
	require.Equal(t, http.StatusCreated, rr.Code)

	var logResp struct {
		UnlockedAchievements []achievement.Achievement `json:"unlocked_achievements"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logResp))

	unlockedIDs := make(map[uuid.UUID]bool)
	for _, a := range logResp.UnlockedAchievements {
		unlockedIDs[a.ID] = true
	}
	assert.True(t, unlockedIDs[achID], "logging the first drink should unlock the seeded rule")

	// Step 3: walk the celebration queue over the endpoints until drained.
	t.Log("Step 3: User celebrates")

	celebrated := make(map[uuid.UUID]bool)
	for {
		rr = httptest.NewRecorder()
		achievementHandler.NextCelebration(rr, authedJSONRequest(http.MethodGet, "/api/v1/user/achievements/celebration", "", clerkID))
		require.Equal(t, http.StatusOK, rr.Code)

		var peek struct {
			Celebration *achievement.Achievement `json:"celebration"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &peek))
		if peek.Celebration == nil {
			break
		}
		celebrated[peek.Celebration.ID] = true

		rr = httptest.NewRecorder()
		achievementHandler.DismissCelebration(rr, authedJSONRequest(http.MethodDelete, "/api/v1/user/achievements/celebration", "", clerkID))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.True(t, celebrated[achID], "the unlock should have been queued for celebration")

	// Step 4: backfill. A fresh unlock already carries the right instant,
	// so the first run must change nothing.
	t.Log("Step 4: Backfill corrects a skewed unlock date")

	var userID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID))

	defs := []achievement.Achievement{{
		ID:               achID,
		Name:             achName,
		RequirementType:  achievement.ReqTotalDrinks,
		RequirementValue: "1",
	}}

	corrections, err := achievementService.BackfillUser(ctx, userID, defs)
	require.NoError(t, err)
	assert.Empty(t, corrections, "a fresh unlock needs no correction")

	// Skew the stored instant the way a bulk import would, then re-run.
	_, err = pool.Exec(ctx, `
		UPDATE user_achievements
		SET unlocked_at = unlocked_at + interval '2 hours'
		WHERE user_id = $1 AND achievement_id = $2
	`, userID, achID)
	require.NoError(t, err)

	corrections, err = achievementService.BackfillUser(ctx, userID, defs)
	require.NoError(t, err)
	require.Len(t, corrections, 1)
	assert.Equal(t, achID, corrections[0].AchievementID)

	var loggedAt, unlockedAt time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT logged_at FROM drink_logs WHERE user_id = $1 ORDER BY logged_at ASC, created_at ASC, id ASC LIMIT 1`, userID).Scan(&loggedAt))
	require.NoError(t, pool.QueryRow(ctx, `SELECT unlocked_at FROM user_achievements WHERE user_id = $1 AND achievement_id = $2`, userID, achID).Scan(&unlockedAt))
	assert.WithinDuration(t, loggedAt, unlockedAt, time.Second, "backfill should pin the unlock to the qualifying drink")

	// Re-running over the corrected row changes nothing.
	corrections, err = achievementService.BackfillUser(ctx, userID, defs)
	require.NoError(t, err)
	assert.Empty(t, corrections, "backfill is idempotent")
}
