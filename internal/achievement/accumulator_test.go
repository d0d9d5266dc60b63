package achievement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drinkAt(ts string, drinkType string) DrinkEvent {
	t, err := time.Parse("2006-01-02 15:04", ts)
	if err != nil {
		panic(err)
	}
	return DrinkEvent{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		DrinkType: drinkType,
		LoggedAt:  t.UTC(),
	}
}

func foldAll(events ...DrinkEvent) *Accumulator {
	acc := NewAccumulator(time.UTC)
	for _, ev := range events {
		acc.Fold(ev)
	}
	return acc
}

func TestFoldCounts(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-03-03 18:00", "Beer"),
		drinkAt("2025-03-03 19:00", "beer "),
		drinkAt("2025-03-03 20:00", "wine"),
		drinkAt("2025-03-04 18:00", "whiskey"),
	)

	assert.Equal(t, 4, acc.TotalDrinks)
	assert.Len(t, acc.UniqueTypes, 3)
	assert.Equal(t, 2, acc.DrinksByType["beer"], "type matching is case and space insensitive")
	assert.Equal(t, 3, acc.MaxInDay)
	assert.Len(t, acc.DaysWithDrinks, 2)
}

func TestFoldFirstMinuteKeepsEarliest(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-03-03 18:30", "beer"),
		drinkAt("2025-03-03 09:15", "beer"),
		drinkAt("2025-03-03 22:00", "beer"),
	)

	ord := dayOrdinal(mustParse(t, "2025-03-03 12:00"), time.UTC)
	assert.Equal(t, 9*60+15, acc.FirstMinuteByDay[ord])
}

func TestDayOrdinalWeekday(t *testing.T) {
	// 1970-01-01 was a Thursday.
	assert.Equal(t, time.Thursday, ordinalWeekday(0))
	assert.Equal(t, time.Monday, ordinalWeekday(-3))

	// 2025-03-03 was a Monday.
	ord := dayOrdinal(mustParse(t, "2025-03-03 12:00"), time.UTC)
	assert.Equal(t, time.Monday, ordinalWeekday(ord))
}

func TestDayOrdinalUsesLocalCalendarDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on March 4 is still March 3 in New York.
	instant := mustParse(t, "2025-03-04 02:00")
	assert.Equal(t,
		dayOrdinal(mustParse(t, "2025-03-03 12:00"), time.UTC),
		dayOrdinal(instant, ny),
	)
}

func TestLongestStreak(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
		drinkAt("2025-03-05 18:00", "beer"),
		drinkAt("2025-03-08 18:00", "beer"),
		drinkAt("2025-03-09 18:00", "beer"),
	)

	assert.Equal(t, 3, acc.LongestStreak)
	assert.Equal(t, 3, acc.MaxDaysInactive, "gap between Mar 5 and Mar 8")
}

func TestFoldOutOfOrderDaysSameResult(t *testing.T) {
	ordered := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
		drinkAt("2025-03-05 18:00", "beer"),
	)
	shuffled := foldAll(
		drinkAt("2025-03-05 18:00", "beer"),
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
	)

	assert.Equal(t, ordered.LongestStreak, shuffled.LongestStreak)
	assert.Equal(t, ordered.SortedDays(), shuffled.SortedDays())
}

func TestCurrentStreak(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
		drinkAt("2025-03-05 18:00", "beer"),
	)

	assert.Equal(t, 3, acc.CurrentStreak(mustParse(t, "2025-03-05 23:00")), "last day is today")
	assert.Equal(t, 3, acc.CurrentStreak(mustParse(t, "2025-03-06 10:00")), "last day is yesterday")
	assert.Equal(t, 0, acc.CurrentStreak(mustParse(t, "2025-03-08 10:00")), "streak broken")
}

func TestCurrentStreakSingleDay(t *testing.T) {
	acc := foldAll(drinkAt("2025-03-05 18:00", "beer"))
	assert.Equal(t, 1, acc.CurrentStreak(mustParse(t, "2025-03-05 20:00")))
}

func TestWeeklyStreak(t *testing.T) {
	// One drink in each of three consecutive Monday-anchored weeks.
	acc := foldAll(
		drinkAt("2025-03-04 18:00", "beer"), // week of Mar 3
		drinkAt("2025-03-12 18:00", "beer"), // week of Mar 10
		drinkAt("2025-03-17 18:00", "beer"), // week of Mar 17
	)
	assert.Equal(t, 3, acc.WeeklyStreakCount)

	// Skipping a week resets the run.
	acc2 := foldAll(
		drinkAt("2025-03-04 18:00", "beer"),
		drinkAt("2025-03-18 18:00", "beer"),
	)
	assert.Equal(t, 1, acc2.WeeklyStreakCount)
}

func TestMonthlyStreak(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-01-15 18:00", "beer"),
		drinkAt("2025-02-02 18:00", "beer"),
		drinkAt("2025-02-20 18:00", "beer"),
		drinkAt("2025-03-01 18:00", "beer"),
		drinkAt("2025-06-01 18:00", "beer"),
	)
	assert.Equal(t, 3, acc.MonthlyStreakCount)
}

func TestMonthlyStreakAcrossYearBoundary(t *testing.T) {
	acc := foldAll(
		drinkAt("2024-12-20 18:00", "beer"),
		drinkAt("2025-01-05 18:00", "beer"),
	)
	assert.Equal(t, 2, acc.MonthlyStreakCount)
}

func TestAccountAgeDays(t *testing.T) {
	acc := NewAccumulator(time.UTC)
	acc.AccountCreatedAt = mustParse(t, "2025-01-01 12:00")

	assert.Equal(t, 0, acc.AccountAgeDays(mustParse(t, "2025-01-01 18:00")))
	assert.Equal(t, 30, acc.AccountAgeDays(mustParse(t, "2025-01-31 13:00")))
	assert.Equal(t, 0, acc.AccountAgeDays(mustParse(t, "2024-12-31 12:00")), "asOf before creation")
}

func mustParse(t *testing.T, ts string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", ts)
	require.NoError(t, err)
	return parsed.UTC()
}
