package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"sipHappensAPI/internal/achievement"
	"sipHappensAPI/middleware"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementService struct {
	db                  *pgxpool.Pool
	notificationService *NotificationService

	celebrations *celebrationQueue

	// Cached rule table. Definitions are immutable in the DB, so the first
	// successful load serves the rest of the process lifetime. Failures are
	// never cached: a transient DB error on one evaluation must not poison
	// the next.
	defsCache ruleCache
}

func NewAchievementService(db *pgxpool.Pool, notificationService *NotificationService) *AchievementService {
	return &AchievementService{
		db:                  db,
		notificationService: notificationService,
		celebrations:        newCelebrationQueue(),
	}
}

// ruleCache holds the definitions after the first load that succeeds.
type ruleCache struct {
	mu   sync.Mutex
	defs []achievement.Achievement
}

func (c *ruleCache) load(ctx context.Context, fetch func(context.Context) ([]achievement.Achievement, error)) ([]achievement.Achievement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defs != nil {
		return c.defs, nil
	}
	defs, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []achievement.Achievement{}
	}
	c.defs = defs
	return c.defs, nil
}

func (s *AchievementService) definitions(ctx context.Context) ([]achievement.Achievement, error) {
	return s.defsCache.load(ctx, s.fetchDefinitions)
}

func (s *AchievementService) fetchDefinitions(ctx context.Context) ([]achievement.Achievement, error) {
	query := `
	SELECT id, name, description, icon, category, tier, requirement_type, requirement_value, created_at
	FROM achievements
	ORDER BY tier, requirement_value
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement definitions: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Achievement
	for rows.Next() {
		var def achievement.Achievement
		if err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.Description,
			&def.Icon,
			&def.Category,
			&def.Tier,
			&def.RequirementType,
			&def.RequirementValue,
			&def.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement definition: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievement definitions: %w", err)
	}
	return defs, nil
}

// loadHistory fetches everything one evaluation pass needs, up front: the
// account facts, the full drink log in ascending order, accepted friendship
// edge instants, and cheer instants targeting this user's drinks.
func (s *AchievementService) loadHistory(ctx context.Context, userID uuid.UUID) (achievement.UserHistory, error) {
	hist := achievement.UserHistory{UserID: userID}

	var tz string
	err := s.db.QueryRow(ctx,
		`SELECT created_at, beta_tester, COALESCE(timezone, 'UTC') FROM users WHERE id = $1`,
		userID,
	).Scan(&hist.AccountCreatedAt, &hist.BetaTester, &tz)
	if err != nil {
		return hist, fmt.Errorf("failed to load account metadata: %w", err)
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("loadHistory: unknown timezone %q for user %s, falling back to UTC", tz, userID)
		loc = time.UTC
	}
	hist.Loc = loc

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, drink_type, drink_id, caption, image_url, logged_at
		FROM drink_logs
		WHERE user_id = $1
		ORDER BY logged_at ASC, created_at ASC, id ASC
	`, userID)
	if err != nil {
		return hist, fmt.Errorf("failed to load drink logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev achievement.DrinkEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.DrinkType, &ev.DrinkID, &ev.Caption, &ev.ImageURL, &ev.LoggedAt); err != nil {
			return hist, fmt.Errorf("failed to scan drink log: %w", err)
		}
		hist.Events = append(hist.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return hist, fmt.Errorf("error iterating drink logs: %w", err)
	}

	friendRows, err := s.db.Query(ctx, `
		SELECT created_at
		FROM friendships
		WHERE (user_id = $1 OR friend_id = $1) AND status = 'accepted'
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return hist, fmt.Errorf("failed to load friendships: %w", err)
	}
	defer friendRows.Close()

	for friendRows.Next() {
		var at time.Time
		if err := friendRows.Scan(&at); err != nil {
			return hist, fmt.Errorf("failed to scan friendship: %w", err)
		}
		hist.FriendshipTimes = append(hist.FriendshipTimes, at)
	}
	if err := friendRows.Err(); err != nil {
		return hist, fmt.Errorf("error iterating friendships: %w", err)
	}

	cheerRows, err := s.db.Query(ctx, `
		SELECT dc.created_at
		FROM drink_cheers dc
		JOIN drink_logs dl ON dl.id = dc.drink_log_id
		WHERE dl.user_id = $1
		ORDER BY dc.created_at ASC
	`, userID)
	if err != nil {
		return hist, fmt.Errorf("failed to load cheers: %w", err)
	}
	defer cheerRows.Close()

	for cheerRows.Next() {
		var at time.Time
		if err := cheerRows.Scan(&at); err != nil {
			return hist, fmt.Errorf("failed to scan cheer: %w", err)
		}
		hist.CheerTimes = append(hist.CheerTimes, at)
	}
	if err := cheerRows.Err(); err != nil {
		return hist, fmt.Errorf("error iterating cheers: %w", err)
	}

	return hist, nil
}

func (s *AchievementService) unlockedSet(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	rows, err := s.db.Query(ctx,
		`SELECT achievement_id, unlocked_at FROM user_achievements WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var achID uuid.UUID
		var at time.Time
		if err := rows.Scan(&achID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		unlocked[achID] = at
	}
	return unlocked, rows.Err()
}

// CheckAchievements is the online path, invoked after a user logs a drink,
// adds a friend or receives a cheer. It refolds the full history, evaluates
// every still-locked definition against the final accumulator, records the
// new unlocks with unlocked_at = now, and queues them for celebration.
func (s *AchievementService) CheckAchievements(ctx context.Context, clerkID string) ([]*achievement.Achievement, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}

	unlockedAt, err := s.unlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[uuid.UUID]bool, len(unlockedAt))
	for achID := range unlockedAt {
		unlocked[achID] = true
	}

	hist, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	acc := achievement.BuildAccumulator(hist)
	satisfied := achievement.NewlySatisfied(defs, unlocked, acc, now)

	var newlyUnlocked []*achievement.Achievement
	for i := range satisfied {
		def := satisfied[i]
		inserted, err := s.recordUnlock(ctx, userID, def.ID, now)
		if err != nil {
			log.Printf("CheckAchievements: failed to record unlock %s for user %s: %v", def.Name, userID, err)
			continue
		}
		if !inserted {
			// Lost a race with a concurrent evaluation; the achievement is
			// already unlocked, which is the outcome we wanted.
			continue
		}
		middleware.ObserveAchievementUnlock(string(def.RequirementType))
		newlyUnlocked = append(newlyUnlocked, &def)
	}

	if len(newlyUnlocked) > 0 {
		s.celebrations.Enqueue(clerkID, newlyUnlocked)
		s.notifyUnlocks(ctx, userID, newlyUnlocked)
	}

	return newlyUnlocked, nil
}

// recordUnlock inserts one unlock record. The DB enforces at most one row
// per (user, achievement); a conflict means somebody beat us to it.
func (s *AchievementService) recordUnlock(ctx context.Context, userID, achievementID uuid.UUID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, uuid.New(), userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *AchievementService) notifyUnlocks(ctx context.Context, userID uuid.UUID, unlocks []*achievement.Achievement) {
	if s.notificationService == nil {
		return
	}
	for _, def := range unlocks {
		if err := s.notificationService.NotifyAchievementUnlock(ctx, userID, def.Name, def.Icon); err != nil {
			log.Printf("notifyUnlocks: push for %s failed: %v", def.Name, err)
		}
	}
}

// NextCelebration returns the oldest undismissed unlock for the user, or
// nil when the queue is empty. The UI shows one at a time and dismisses
// explicitly.
func (s *AchievementService) NextCelebration(clerkID string) *achievement.Achievement {
	return s.celebrations.Peek(clerkID)
}

func (s *AchievementService) DismissCelebration(clerkID string) {
	s.celebrations.Dismiss(clerkID)
}

// GetAchievements lists every definition with the user's unlock status.
func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) ([]*achievement.AchievementWithStatus, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	query := `
	SELECT
		a.id,
		a.name,
		a.description,
		a.icon,
		a.category,
		a.tier,
		a.requirement_type,
		a.requirement_value,
		a.created_at,
		CASE WHEN ua.id IS NOT NULL THEN true ELSE false END as unlocked,
		ua.unlocked_at
	FROM achievements a
	LEFT JOIN user_achievements ua ON a.id = ua.achievement_id AND ua.user_id = $1
	ORDER BY unlocked DESC, a.tier, a.name
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.AchievementWithStatus
	for rows.Next() {
		ach := &achievement.AchievementWithStatus{}
		if err := rows.Scan(
			&ach.ID,
			&ach.Name,
			&ach.Description,
			&ach.Icon,
			&ach.Category,
			&ach.Tier,
			&ach.RequirementType,
			&ach.RequirementValue,
			&ach.CreatedAt,
			&ach.Unlocked,
			&ach.UnlockedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, ach)
	}
	return achievements, rows.Err()
}

// BackfillReport summarizes one administrative backfill run.
type BackfillReport struct {
	UsersProcessed int                      `json:"users_processed"`
	UsersFailed    int                      `json:"users_failed"`
	UpdatedCount   int                      `json:"updated_count"`
	Sample         []achievement.Correction `json:"sample"`
	Duration       string                   `json:"duration"`
}

const backfillSampleSize = 25

// BackfillUnlockDates recovers the historically accurate unlock instant for
// every already-unlocked achievement, across all users with unlock records.
// Users are processed in parallel; within one user the replay is strictly
// sequential. One user's failure never aborts the batch. Idempotent: a
// second run over unchanged history updates nothing.
func (s *AchievementService) BackfillUnlockDates(ctx context.Context) (*BackfillReport, error) {
	start := time.Now()

	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id FROM user_achievements`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with unlocks: %w", err)
	}
	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	var (
		processed int64
		failed    int64
		updated   int64
		sampleMu  sync.Mutex
		sample    []achievement.Correction
	)

	pool := pond.NewPool(8, pond.WithContext(ctx))
	for _, userID := range userIDs {
		uid := userID
		pool.Submit(func() {
			corrections, err := s.BackfillUser(ctx, uid, defs)
			if err != nil {
				log.Printf("BackfillUnlockDates: user %s failed: %v", uid, err)
				atomic.AddInt64(&failed, 1)
				return
			}
			atomic.AddInt64(&processed, 1)
			atomic.AddInt64(&updated, int64(len(corrections)))

			sampleMu.Lock()
			for _, c := range corrections {
				if len(sample) >= backfillSampleSize {
					break
				}
				sample = append(sample, c)
			}
			sampleMu.Unlock()
		})
	}
	pool.StopAndWait()

	middleware.ObserveBackfillCorrections(int(updated))

	report := &BackfillReport{
		UsersProcessed: int(processed),
		UsersFailed:    int(failed),
		UpdatedCount:   int(updated),
		Sample:         sample,
		Duration:       time.Since(start).String(),
	}
	log.Printf("BackfillUnlockDates: %d users processed, %d failed, %d records corrected in %s",
		report.UsersProcessed, report.UsersFailed, report.UpdatedCount, report.Duration)
	return report, nil
}

// BackfillUser replays one user's history and corrects stored unlock
// instants. Corrections are written as one batch after the replay
// completes, so a long replay never exposes a half-updated unlock set.
// Backfill corrects dates only; it never grants or revokes.
func (s *AchievementService) BackfillUser(ctx context.Context, userID uuid.UUID, defs []achievement.Achievement) ([]achievement.Correction, error) {
	unlocked, err := s.unlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(unlocked) == 0 {
		return nil, nil
	}

	hist, err := s.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	corrections := achievement.ResolveUnlockInstants(hist, defs, unlocked)
	if len(corrections) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin backfill transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range corrections {
		tag, err := tx.Exec(ctx, `
			UPDATE user_achievements
			SET unlocked_at = $3
			WHERE user_id = $1 AND achievement_id = $2
		`, c.UserID, c.AchievementID, c.ResolvedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to update unlock record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, errors.New("unlock record vanished mid-backfill")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit backfill transaction: %w", err)
	}

	log.Printf("BackfillUser: corrected %d unlock dates for user %s", len(corrections), userID)
	return corrections, nil
}
