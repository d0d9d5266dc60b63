package achievement

import (
	"strconv"
	"strings"
	"time"

	"sipHappensAPI/internal/drink"

	"github.com/google/uuid"
)

// RequirementType is the closed set of rules the engine knows how to
// evaluate. Anything outside this set evaluates to false.
type RequirementType string

const (
	// Stat-threshold requirements, evaluated against the accumulator.
	ReqTotalDrinks        RequirementType = "total_drinks"
	ReqUniqueTypes        RequirementType = "unique_types"
	ReqMaxInDay           RequirementType = "max_in_day"
	ReqStreakDays         RequirementType = "streak_days"
	ReqWeeklyStreak       RequirementType = "weekly_streak"
	ReqMonthlyStreak      RequirementType = "monthly_streak"
	ReqSpecificDrinkCount RequirementType = "specific_drink_count"
	ReqSameTypeCount      RequirementType = "same_type_count"
	ReqDaysInactive       RequirementType = "days_inactive"
	ReqFriendCount        RequirementType = "friend_count"
	ReqAccountAgeDays     RequirementType = "account_age_days"
	ReqCheersReceived     RequirementType = "cheers_received"
	ReqShareCount         RequirementType = "share_count"

	// Per-event temporal requirements. The unlock instant is the instant of
	// the qualifying drink, so backfill checks these against each replayed
	// event rather than the final accumulator.
	ReqEarlyBird         RequirementType = "early_bird"
	ReqWeekendBrunch     RequirementType = "weekend_brunch"
	ReqAfternoonDrink    RequirementType = "afternoon_drink"
	ReqHappyHour         RequirementType = "happy_hour"
	ReqNightOwl          RequirementType = "night_owl"
	ReqAfterThreeAM      RequirementType = "after_3am"
	ReqSpecificWeekday   RequirementType = "specific_weekday"
	ReqSpecificDate      RequirementType = "specific_date"
	ReqWeekendBoth       RequirementType = "weekend_both"
	ReqTimePalindrome    RequirementType = "time_palindrome"
	ReqLuckySeven        RequirementType = "lucky_seven"
	ReqNewYears          RequirementType = "new_years"
	ReqQuickSuccession   RequirementType = "quick_succession"
	ReqTripleHour        RequirementType = "triple_hour"
	ReqHourGap           RequirementType = "hour_gap"
	ReqSameTimeStreak    RequirementType = "same_time_streak"
	ReqSameWeekdayStreak RequirementType = "same_weekday_streak"
	ReqAscendingStreak   RequirementType = "ascending_streak"

	// Resolved from account facts rather than the drink fold.
	ReqFirstDayLog RequirementType = "first_day_log"
	ReqBetaTester  RequirementType = "beta_tester"
)

type Tier string

const (
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
)

type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Icon             string          `json:"icon" db:"icon"`
	Category         string          `json:"category" db:"category"`
	Tier             Tier            `json:"tier" db:"tier"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue string          `json:"requirement_value" db:"requirement_value"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// UserAchievement is the unlock record. At most one row exists per
// (user, achievement) pair; the DB enforces that.
type UserAchievement struct {
	ID            uuid.UUID `json:"id" db:"id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type AchievementWithStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// IsEventScoped reports whether the requirement must be matched against a
// single qualifying drink during replay.
func (rt RequirementType) IsEventScoped() bool {
	switch rt {
	case ReqEarlyBird, ReqWeekendBrunch, ReqAfternoonDrink, ReqHappyHour,
		ReqNightOwl, ReqAfterThreeAM, ReqSpecificWeekday, ReqSpecificDate,
		ReqWeekendBoth, ReqTimePalindrome, ReqLuckySeven, ReqNewYears,
		ReqQuickSuccession, ReqTripleHour, ReqHourGap, ReqSameTimeStreak,
		ReqSameWeekdayStreak, ReqAscendingStreak:
		return true
	}
	return false
}

// IsAccountScoped reports whether the requirement resolves from account
// facts (creation instant, friendship edges, cheers, event ordinals)
// instead of the per-step replay. Backfill computes these unlock instants
// directly.
func (rt RequirementType) IsAccountScoped() bool {
	switch rt {
	case ReqAccountAgeDays, ReqBetaTester, ReqFriendCount, ReqCheersReceived,
		ReqShareCount, ReqFirstDayLog:
		return true
	}
	return false
}

// threshold parses an integer requirement value. Display tokens map to
// their numeric meaning. Returns ok=false on garbage so the caller can fail
// closed.
func threshold(value string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "all":
		return len(drink.Categories), true
	case "perfect_week":
		return 7, true
	case "perfect_month":
		return 30, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// typeCount parses a "type:count" requirement value, e.g. "ipa:5".
func typeCount(value string) (string, int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	drinkType := strings.ToLower(strings.TrimSpace(parts[0]))
	if drinkType == "" {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return drinkType, n, true
}

var weekdayTokens = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func weekdayToken(value string) (time.Weekday, bool) {
	wd, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(value))]
	return wd, ok
}
