package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sipHappensAPI/internal/achievement"
	"sipHappensAPI/internal/calendar"
	"sipHappensAPI/internal/drink"
	"sipHappensAPI/internal/friendship"
	"sipHappensAPI/internal/leaderboard"
	"sipHappensAPI/internal/stats"
	"sipHappensAPI/internal/urlcache"
	"sipHappensAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserService struct {
	db                 *pgxpool.Pool
	achievementService *AchievementService
	photoCache         *urlcache.Cache
}

func NewUserService(db *pgxpool.Pool, achievementService *AchievementService, photoCache *urlcache.Cache) *UserService {
	return &UserService{
		db:                 db,
		achievementService: achievementService,
		photoCache:         photoCache,
	}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	u := &user.User{
		ID:         uuid.New().String(),
		ClerkID:    req.ClerkID,
		Email:      req.Email,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		ImageURL:   req.ImageURL,
		Timezone:   tz,
		BetaTester: req.BetaTester,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, timezone, beta_tester, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, timezone, beta_tester, created_at, updated_at
	`

	err := s.db.QueryRow(
		ctx,
		query,
		u.ID,
		u.ClerkID,
		u.Email,
		u.Username,
		u.FirstName,
		u.LastName,
		u.ImageURL,
		u.Timezone,
		u.BetaTester,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.Timezone,
		&u.BetaTester,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT
		u.id, u.clerk_id, u.email, u.username, u.first_name, u.last_name,
		u.image_url, u.email_verified, COALESCE(u.timezone, 'UTC'), u.beta_tester,
		u.created_at, u.updated_at,
		(SELECT COUNT(*) FROM drink_logs dl WHERE dl.user_id = u.id) as total_drinks,
		(SELECT COUNT(*) FROM user_achievements ua WHERE ua.user_id = u.id) as achievements
	FROM users u
	WHERE u.clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.Timezone,
		&u.BetaTester,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.TotalDrinkCount,
		&u.AchievementCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		timezone = COALESCE(NULLIF($6, ''), timezone),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING id, clerk_id, email, username, first_name, last_name, image_url, email_verified, COALESCE(timezone, 'UTC'), beta_tester, created_at, updated_at
	`

	u := &user.User{}
	err := s.db.QueryRow(
		ctx,
		query,
		clerkID,
		req.Username,
		req.FirstName,
		req.LastName,
		req.ImageURL,
		req.Timezone,
	).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.EmailVerified,
		&u.Timezone,
		&u.BetaTester,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUserByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	_, err := s.db.Exec(ctx, `
	UPDATE users SET email_verified = $2, updated_at = NOW() WHERE clerk_id = $1
	`, clerkID, verified)
	return err
}

func (s *UserService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

// LogDrink records one drink event and immediately runs the incremental
// achievement evaluation. Returns the log plus anything newly unlocked.
func (s *UserService) LogDrink(ctx context.Context, clerkID string, req *drink.LogDrinkRequest) (*drink.DrinkLog, []*achievement.Achievement, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, nil, err
	}

	loggedAt := time.Now()
	if req.LoggedAt != nil && !req.LoggedAt.After(time.Now().Add(time.Minute)) {
		loggedAt = *req.LoggedAt
	}

	dl := &drink.DrinkLog{
		ID:        uuid.New(),
		UserID:    userID,
		DrinkType: strings.ToLower(strings.TrimSpace(req.DrinkType)),
		DrinkID:   req.DrinkID,
		Caption:   req.Caption,
		ImageURL:  req.ImageURL,
		LoggedAt:  loggedAt,
	}
	if dl.DrinkType == "" {
		return nil, nil, fmt.Errorf("drink_type is required")
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO drink_logs (id, user_id, drink_type, drink_id, caption, image_url, logged_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`, dl.ID, dl.UserID, dl.DrinkType, dl.DrinkID, dl.Caption, dl.ImageURL, dl.LoggedAt).Scan(&dl.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to log drink: %w", err)
	}

	newlyUnlocked, err := s.achievementService.CheckAchievements(ctx, clerkID)
	if err != nil {
		// The drink is saved; the evaluation will catch up on the next log.
		log.Printf("LogDrink: achievement check failed for %s: %v", clerkID, err)
		newlyUnlocked = nil
	}

	return dl, newlyUnlocked, nil
}

func (s *UserService) RemoveDrink(ctx context.Context, clerkID string, drinkLogID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM drink_logs WHERE id = $1 AND user_id = $2`,
		drinkLogID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove drink log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("drink log not found")
	}
	return nil
}

// AddCheer reacts to someone's drink post. The post owner's cheers_received
// stats move, so the evaluation runs for the owner, not the reactor.
func (s *UserService) AddCheer(ctx context.Context, clerkID string, drinkLogID uuid.UUID) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return err
	}

	var ownerClerkID string
	err = s.db.QueryRow(ctx, `
		SELECT u.clerk_id FROM drink_logs dl JOIN users u ON u.id = dl.user_id WHERE dl.id = $1
	`, drinkLogID).Scan(&ownerClerkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("drink log not found")
		}
		return fmt.Errorf("failed to find drink log: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO drink_cheers (id, drink_log_id, user_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (drink_log_id, user_id) DO NOTHING
	`, uuid.New(), drinkLogID, userID)
	if err != nil {
		return fmt.Errorf("failed to add cheer: %w", err)
	}

	if _, err := s.achievementService.CheckAchievements(ctx, ownerClerkID); err != nil {
		log.Printf("AddCheer: achievement check failed for post owner %s: %v", ownerClerkID, err)
	}
	return nil
}

func (s *UserService) GetFriends(ctx context.Context, clerkID string) ([]*user.User, error) {
	query := `
	SELECT DISTINCT
		u.id, u.clerk_id, u.email, u.username, u.first_name, u.last_name,
		u.image_url, u.email_verified, COALESCE(u.timezone, 'UTC'), u.beta_tester,
		u.created_at, u.updated_at
	FROM users u
	INNER JOIN friendships f ON (
		(f.user_id = u.id AND f.friend_id = (SELECT id FROM users WHERE clerk_id = $1))
		OR
		(f.friend_id = u.id AND f.user_id = (SELECT id FROM users WHERE clerk_id = $1))
	)
	WHERE f.status = 'accepted'
	AND u.clerk_id != $1
	ORDER BY u.username
	`

	rows, err := s.db.Query(ctx, query, clerkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []*user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(
			&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
			&u.ImageURL, &u.EmailVerified, &u.Timezone, &u.BetaTester,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		friends = append(friends, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if friends == nil {
		friends = []*user.User{}
	}
	return friends, nil
}

// AddFriend creates an accepted edge. Both sides' friend counts move, so the
// evaluation runs for both users.
func (s *UserService) AddFriend(ctx context.Context, clerkID string, friendClerkID string) (*friendship.Friendship, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		log.Printf("AddFriend: failed to find user with clerk_id %s: %v", clerkID, err)
		return nil, fmt.Errorf("user not found")
	}

	friendID, err := s.resolveUserID(ctx, friendClerkID)
	if err != nil {
		log.Printf("AddFriend: failed to find friend with clerk_id %s: %v", friendClerkID, err)
		return nil, fmt.Errorf("friend user not found")
	}

	if userID == friendID {
		return nil, fmt.Errorf("cannot add yourself as a friend")
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE (user_id = $1 AND friend_id = $2)
			   OR (user_id = $2 AND friend_id = $1)
		)
	`, userID, friendID).Scan(&exists)
	if err != nil {
		log.Printf("AddFriend: failed to check existing friendship: %v", err)
		return nil, fmt.Errorf("failed to check existing friendship")
	}
	if exists {
		return nil, fmt.Errorf("friendship already exists")
	}

	edge := friendship.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   friendship.FriendshipAccepted,
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO friendships (user_id, friend_id, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, userID, friendID, edge.Status).Scan(&edge.ID, &edge.CreatedAt)
	if err != nil {
		log.Printf("AddFriend: failed to insert friendship: %v", err)
		return nil, fmt.Errorf("failed to create friendship")
	}

	for _, id := range []string{clerkID, friendClerkID} {
		if _, err := s.achievementService.CheckAchievements(ctx, id); err != nil {
			log.Printf("AddFriend: achievement check failed for %s: %v", id, err)
		}
	}
	return &edge, nil
}

func (s *UserService) RemoveFriend(ctx context.Context, clerkID string, friendClerkID string) error {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return fmt.Errorf("user not found")
	}
	friendID, err := s.resolveUserID(ctx, friendClerkID)
	if err != nil {
		return fmt.Errorf("friend user not found")
	}

	result, err := s.db.Exec(ctx, `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2)
		   OR (user_id = $2 AND friend_id = $1)
	`, userID, friendID)
	if err != nil {
		log.Printf("RemoveFriend: failed to delete friendship: %v", err)
		return fmt.Errorf("failed to remove friendship")
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friendship not found")
	}
	return nil
}

func (s *UserService) GetDiscovery(ctx context.Context, clerkID string) ([]*user.User, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
		u.id, u.clerk_id, u.email, u.username, u.first_name, u.last_name,
		u.image_url, u.email_verified, COALESCE(u.timezone, 'UTC'), u.beta_tester,
		u.created_at, u.updated_at
	FROM users u
	WHERE u.id != $1
		AND u.id NOT IN (
			SELECT f.friend_id FROM friendships f
			WHERE f.user_id = $1 AND f.status = 'accepted'
			UNION
			SELECT f.user_id FROM friendships f
			WHERE f.friend_id = $1 AND f.status = 'accepted'
		)
	ORDER BY RANDOM()
	LIMIT 30
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(
			&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
			&u.ImageURL, &u.EmailVerified, &u.Timezone, &u.BetaTester,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if users == nil {
		users = []*user.User{}
	}
	return users, nil
}

// DisplayProfile assembles the discovery profile card: user, stats,
// achievements, friendship status.
func (s *UserService) DisplayProfile(ctx context.Context, clerkID string, targetID string) (*user.DisplayProfileResponse, error) {
	currentUserID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("user not authenticated")
	}

	targetUUID, err := uuid.Parse(targetID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id")
	}

	var targetClerkID string
	err = s.db.QueryRow(ctx, `SELECT clerk_id FROM users WHERE id = $1`, targetUUID).Scan(&targetClerkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	targetUser, err := s.GetUserByClerkID(ctx, targetClerkID)
	if err != nil {
		return nil, err
	}

	targetStats, err := s.GetUserStats(ctx, targetClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	targetAchievements, err := s.achievementService.GetAchievements(ctx, targetClerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}

	var isFriend bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE ((user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1))
			AND status = 'accepted'
		)
	`, currentUserID, targetUUID).Scan(&isFriend)
	if err != nil {
		log.Printf("DisplayProfile: failed to check friendship: %v", err)
		isFriend = false
	}

	return &user.DisplayProfileResponse{
		User:         targetUser,
		Stats:        targetStats,
		Achievements: targetAchievements,
		IsFriend:     isFriend,
	}, nil
}

// GetUserStats folds the user's full history through the same accumulator
// the achievement evaluation uses, so profile numbers and unlock conditions
// can never disagree.
func (s *UserService) GetUserStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	hist, err := s.achievementService.loadHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	acc := achievement.BuildAccumulator(hist)
	now := time.Now()

	out := &stats.UserStats{
		TotalDrinks:        acc.TotalDrinks,
		UniqueTypes:        len(acc.UniqueTypes),
		TotalDaysDrank:     len(acc.DaysWithDrinks),
		MaxInDay:           acc.MaxInDay,
		CurrentStreak:      acc.CurrentStreak(now),
		LongestStreak:      acc.LongestStreak,
		WeeklyStreakCount:  acc.WeeklyStreakCount,
		MonthlyStreakCount: acc.MonthlyStreakCount,
		CheersReceived:     acc.TotalCheersReceived,
		FriendsCount:       acc.FriendCount,
	}

	err = s.db.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT DATE(logged_at)) FILTER (WHERE logged_at >= DATE_TRUNC('week', NOW())),
			COUNT(DISTINCT DATE(logged_at)) FILTER (WHERE logged_at >= DATE_TRUNC('month', NOW()))
		FROM drink_logs
		WHERE user_id = $1
	`, userID).Scan(&out.DaysThisWeek, &out.DaysThisMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to get period stats: %w", err)
	}

	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_achievements WHERE user_id = $1`,
		userID,
	).Scan(&out.AchievementsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count achievements: %w", err)
	}

	out.Score = float64(out.CurrentStreak*out.CurrentStreak)*0.3 +
		float64(out.TotalDrinks)*0.05 +
		float64(out.AchievementsCount)*1.0

	rankQuery := `
	WITH totals AS (
		SELECT
			u.id,
			COALESCE(COUNT(dl.id), 0) as total_drinks,
			COALESCE((SELECT COUNT(*) FROM user_achievements ua WHERE ua.user_id = u.id), 0) as achievements
		FROM users u
		LEFT JOIN drink_logs dl ON dl.user_id = u.id
		GROUP BY u.id
	),
	ranked AS (
		SELECT id,
			RANK() OVER (ORDER BY total_drinks * 0.05 + achievements * 1.0 DESC) as rank
		FROM totals
	)
	SELECT rank FROM ranked WHERE id = $1
	`
	if err := s.db.QueryRow(ctx, rankQuery, userID).Scan(&out.Rank); err != nil {
		return nil, fmt.Errorf("failed to calculate rank: %w", err)
	}

	return out, nil
}

func (s *UserService) GetCalendar(ctx context.Context, clerkID string, year int, month int) (*calendar.CalendarResponse, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	rows, err := s.db.Query(ctx, `
		SELECT DATE(logged_at) as day, COUNT(*)
		FROM drink_logs
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		GROUP BY day
		ORDER BY day
	`, userID, startDate, endDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer rows.Close()

	dayMap := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		dayMap[day.Format("2006-01-02")] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar rows: %w", err)
	}

	var days []*calendar.CalendarDay
	today := time.Now().Format("2006-01-02")
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		dateStr := d.Format("2006-01-02")
		days = append(days, &calendar.CalendarDay{
			Date:       d,
			DrinkCount: dayMap[dateStr],
			IsToday:    dateStr == today,
		})
	}

	return &calendar.CalendarResponse{Year: year, Month: month, Days: days}, nil
}

func (s *UserService) GetFriendsLeaderboard(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.leaderboard(ctx, userID, true)
}

func (s *UserService) GetGlobalLeaderboard(ctx context.Context, clerkID string) (*leaderboard.Leaderboard, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.leaderboard(ctx, userID, false)
}

func (s *UserService) leaderboard(ctx context.Context, userID uuid.UUID, friendsOnly bool) (*leaderboard.Leaderboard, error) {
	filter := ""
	if friendsOnly {
		filter = `
		AND (u.id = $1 OR u.id IN (
			SELECT friend_id FROM friendships WHERE user_id = $1 AND status = 'accepted'
			UNION
			SELECT user_id FROM friendships WHERE friend_id = $1 AND status = 'accepted'
		))`
	}

	query := `
	SELECT
		u.id as user_id,
		u.username,
		u.image_url,
		COALESCE(w.drinks_this_week, 0) as drinks_this_week,
		RANK() OVER (ORDER BY COALESCE(w.drinks_this_week, 0) DESC) as rank,
		COALESCE((SELECT COUNT(*) FROM user_achievements ua WHERE ua.user_id = u.id), 0) as achievements
	FROM users u
	LEFT JOIN (
		SELECT user_id, COUNT(*) as drinks_this_week
		FROM drink_logs
		WHERE logged_at >= DATE_TRUNC('week', NOW())
		GROUP BY user_id
	) w ON w.user_id = u.id
	WHERE true` + filter + `
	ORDER BY drinks_this_week DESC, u.username
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.LeaderboardEntry
	var userPosition *leaderboard.LeaderboardEntry
	for rows.Next() {
		entry := &leaderboard.LeaderboardEntry{}
		if err := rows.Scan(
			&entry.UserID,
			&entry.Username,
			&entry.ImageURL,
			&entry.DrinksThisWeek,
			&entry.Rank,
			&entry.Achievements,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, entry)
		if entry.UserID == userID {
			userPosition = entry
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	return &leaderboard.Leaderboard{
		Entries:      entries,
		UserPosition: userPosition,
		TotalUsers:   len(entries),
	}, nil
}

// GetFeed returns recent drink posts with photos: friends first, topped up
// with posts from outside the friend graph. Photo keys are swapped for
// signed URLs through the TTL cache.
func (s *UserService) GetFeed(ctx context.Context, clerkID string) ([]drink.FeedPost, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	WITH friend_posts AS (
		SELECT
			dl.id, dl.user_id, u.username, u.image_url AS user_image_url,
			dl.drink_type, dl.caption, dl.image_url AS post_image_url, dl.logged_at,
			(SELECT COUNT(*) FROM drink_cheers dc WHERE dc.drink_log_id = dl.id) as cheer_count,
			'friend' AS source_type
		FROM drink_logs dl
		JOIN users u ON u.id = dl.user_id
		WHERE dl.user_id != $1
			AND dl.logged_at >= NOW() - INTERVAL '5 days'
			AND dl.image_url IS NOT NULL
			AND dl.image_url != ''
			AND dl.user_id IN (
				SELECT friend_id FROM friendships
				WHERE user_id = $1 AND status = 'accepted'
				UNION
				SELECT user_id FROM friendships
				WHERE friend_id = $1 AND status = 'accepted'
			)
		ORDER BY dl.logged_at DESC
		LIMIT 30
	),
	friend_count AS (
		SELECT COUNT(*) as cnt FROM friend_posts
	),
	other_posts AS (
		SELECT
			dl.id, dl.user_id, u.username, u.image_url AS user_image_url,
			dl.drink_type, dl.caption, dl.image_url AS post_image_url, dl.logged_at,
			(SELECT COUNT(*) FROM drink_cheers dc WHERE dc.drink_log_id = dl.id) as cheer_count,
			'other' AS source_type
		FROM drink_logs dl
		JOIN users u ON u.id = dl.user_id
		WHERE dl.user_id != $1
			AND dl.logged_at >= NOW() - INTERVAL '5 days'
			AND dl.image_url IS NOT NULL
			AND dl.image_url != ''
			AND dl.user_id NOT IN (
				SELECT friend_id FROM friendships
				WHERE user_id = $1 AND status = 'accepted'
				UNION
				SELECT user_id FROM friendships
				WHERE friend_id = $1 AND status = 'accepted'
			)
		ORDER BY dl.logged_at DESC
		LIMIT GREATEST(20, 50 - (SELECT cnt FROM friend_count))
	)
	SELECT id, user_id, username, user_image_url, drink_type, caption, post_image_url, logged_at, cheer_count, source_type
	FROM (
		SELECT * FROM friend_posts
		UNION ALL
		SELECT * FROM other_posts
	) AS combined_feed
	ORDER BY logged_at DESC
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	defer rows.Close()

	var posts []drink.FeedPost
	for rows.Next() {
		var post drink.FeedPost
		if err := rows.Scan(
			&post.ID,
			&post.UserID,
			&post.Username,
			&post.UserImageURL,
			&post.DrinkType,
			&post.Caption,
			&post.ImageURL,
			&post.LoggedAt,
			&post.CheerCount,
			&post.SourceType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		if s.photoCache != nil && post.ImageURL != nil && *post.ImageURL != "" {
			signed, err := s.photoCache.SignedURL(ctx, *post.ImageURL)
			if err != nil {
				log.Printf("GetFeed: failed to sign photo url for post %s: %v", post.ID, err)
			} else {
				post.ImageURL = &signed
			}
		}

		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, nil
}

func (s *UserService) SearchUsers(ctx context.Context, clerkID string, query string) ([]*user.User, error) {
	cleanQuery := strings.TrimSpace(query)
	searchPattern := "%" + cleanQuery + "%"
	startsWithPattern := cleanQuery + "%"

	sqlQuery := `
	SELECT
		id, clerk_id, email, username, first_name, last_name, image_url,
		email_verified, COALESCE(timezone, 'UTC'), beta_tester, created_at, updated_at
	FROM (
		SELECT
			*,
			GREATEST(
				CASE
					WHEN LOWER(username) = LOWER($2) THEN 100
					WHEN LOWER(email) = LOWER($2) THEN 100
					WHEN LOWER(first_name) = LOWER($2) THEN 95
					WHEN LOWER(last_name) = LOWER($2) THEN 95
					ELSE 0
				END,
				CASE
					WHEN LOWER(username) LIKE LOWER($3) THEN 90
					WHEN LOWER(first_name) LIKE LOWER($3) THEN 85
					WHEN LOWER(last_name) LIKE LOWER($3) THEN 85
					ELSE 0
				END,
				CASE
					WHEN LOWER(username) LIKE LOWER($1) THEN 70
					WHEN LOWER(first_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(last_name) LIKE LOWER($1) THEN 60
					WHEN LOWER(email) LIKE LOWER($1) THEN 50
					ELSE 0
				END
			) AS similarity_score
		FROM users
		WHERE
			(
				username ILIKE $1 OR
				email ILIKE $1 OR
				first_name ILIKE $1 OR
				last_name ILIKE $1
			)
			AND clerk_id != $4
	) AS scored_users
	WHERE similarity_score >= 30
	ORDER BY similarity_score DESC, username
	LIMIT 50
	`

	rows, err := s.db.Query(ctx, sqlQuery, searchPattern, cleanQuery, startsWithPattern, clerkID)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u := &user.User{}
		if err := rows.Scan(
			&u.ID, &u.ClerkID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
			&u.ImageURL, &u.EmailVerified, &u.Timezone, &u.BetaTester,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if users == nil {
		users = []*user.User{}
	}
	return users, nil
}

func (s *UserService) GetDaysDrank(ctx context.Context, clerkID string, period string) (*stats.DaysStat, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var trunc string
	stat := &stats.DaysStat{Period: period}
	now := time.Now()
	switch period {
	case "week":
		trunc = "week"
		stat.TotalDays = 7
	case "month":
		trunc = "month"
		stat.TotalDays = now.AddDate(0, 1, -now.Day()).Day()
	case "year":
		trunc = "year"
		stat.TotalDays = 365
		if y := now.Year(); y%4 == 0 && (y%100 != 0 || y%400 == 0) {
			stat.TotalDays = 366
		}
	case "all_time":
		err := s.db.QueryRow(ctx, `
			SELECT COUNT(DISTINCT DATE(logged_at)) FROM drink_logs WHERE user_id = $1
		`, userID).Scan(&stat.DaysDrank)
		if err != nil {
			return nil, fmt.Errorf("failed to get all time stats: %w", err)
		}
		stat.TotalDays = stat.DaysDrank
		return stat, nil
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT DATE(logged_at))
		FROM drink_logs
		WHERE user_id = $1
			AND logged_at >= DATE_TRUNC('`+trunc+`', NOW())
	`, userID).Scan(&stat.DaysDrank)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s stats: %w", period, err)
	}
	return stat, nil
}
