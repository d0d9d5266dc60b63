package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sipHappensAPI/internal/drink"
)

func def(rt RequirementType, value string) Achievement {
	return Achievement{
		Name:             string(rt),
		RequirementType:  rt,
		RequirementValue: value,
	}
}

func TestThresholdTokens(t *testing.T) {
	n, ok := threshold("5")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = threshold("all")
	assert.True(t, ok)
	assert.Equal(t, len(drink.Categories), n, "\"all\" means one of every known category")
	assert.Equal(t, 7, n)

	n, ok = threshold("perfect_week")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = threshold("perfect_month")
	assert.True(t, ok)
	assert.Equal(t, 30, n)

	_, ok = threshold("banana")
	assert.False(t, ok)
	_, ok = threshold("-3")
	assert.False(t, ok)
	_, ok = threshold("0")
	assert.False(t, ok)
}

func TestTypeCount(t *testing.T) {
	dt, n, ok := typeCount("IPA:5")
	assert.True(t, ok)
	assert.Equal(t, "ipa", dt)
	assert.Equal(t, 5, n)

	_, _, ok = typeCount("ipa")
	assert.False(t, ok)
	_, _, ok = typeCount(":5")
	assert.False(t, ok)
	_, _, ok = typeCount("ipa:zero")
	assert.False(t, ok)
}

func TestSatisfiedFailsClosed(t *testing.T) {
	acc := foldAll(drinkAt("2025-03-03 18:00", "beer"))
	now := mustParse(t, "2025-03-03 19:00")

	assert.False(t, Satisfied(def("made_up_type", "1"), acc, now), "unknown requirement type")
	assert.False(t, Satisfied(def(ReqTotalDrinks, "banana"), acc, now), "malformed value")
}

func TestStatThresholds(t *testing.T) {
	acc := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-03 19:00", "beer"),
		drinkAt("2025-03-04 18:00", "wine"),
	)
	now := mustParse(t, "2025-03-04 20:00")

	assert.True(t, Satisfied(def(ReqTotalDrinks, "3"), acc, now))
	assert.False(t, Satisfied(def(ReqTotalDrinks, "4"), acc, now))
	assert.True(t, Satisfied(def(ReqUniqueTypes, "2"), acc, now))
	assert.True(t, Satisfied(def(ReqMaxInDay, "2"), acc, now))
	assert.True(t, Satisfied(def(ReqStreakDays, "2"), acc, now))
	assert.True(t, Satisfied(def(ReqSpecificDrinkCount, "beer:2"), acc, now))
	assert.False(t, Satisfied(def(ReqSpecificDrinkCount, "wine:2"), acc, now))
	assert.True(t, Satisfied(def(ReqSameTypeCount, "2"), acc, now), "any type at the count qualifies")
	assert.True(t, Satisfied(def(ReqShareCount, "3"), acc, now), "every log counts as a share")
}

func TestAccountFactPredicates(t *testing.T) {
	acc := foldAll(drinkAt("2025-01-01 18:00", "beer"))
	acc.AccountCreatedAt = mustParse(t, "2025-01-01 09:00")
	acc.FriendCount = 3
	acc.TotalCheersReceived = 10
	acc.BetaTester = true
	now := mustParse(t, "2025-02-15 12:00")

	assert.True(t, Satisfied(def(ReqFriendCount, "3"), acc, now))
	assert.False(t, Satisfied(def(ReqFriendCount, "4"), acc, now))
	assert.True(t, Satisfied(def(ReqCheersReceived, "10"), acc, now))
	assert.True(t, Satisfied(def(ReqAccountAgeDays, "30"), acc, now))
	assert.True(t, Satisfied(def(ReqBetaTester, ""), acc, now))
	assert.True(t, Satisfied(def(ReqFirstDayLog, ""), acc, now), "logged on the account's creation day")

	late := foldAll(drinkAt("2025-01-02 18:00", "beer"))
	late.AccountCreatedAt = mustParse(t, "2025-01-01 09:00")
	assert.False(t, Satisfied(def(ReqFirstDayLog, ""), late, now))
}

func TestTimeOfDayWindows(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	cases := []struct {
		rt   RequirementType
		ts   string
		want bool
	}{
		{ReqEarlyBird, "2025-03-03 09:59", true},
		{ReqEarlyBird, "2025-03-03 10:00", false},
		{ReqAfternoonDrink, "2025-03-03 14:00", true},
		{ReqAfternoonDrink, "2025-03-03 17:00", false},
		{ReqHappyHour, "2025-03-03 18:30", true},
		{ReqHappyHour, "2025-03-03 19:00", false},
		{ReqNightOwl, "2025-03-03 04:59", true},
		{ReqNightOwl, "2025-03-03 05:00", false},
		{ReqAfterThreeAM, "2025-03-03 03:30", true},
		{ReqAfterThreeAM, "2025-03-03 06:00", false},
		// Mar 8/9 2025 are Saturday/Sunday.
		{ReqWeekendBrunch, "2025-03-08 11:00", true},
		{ReqWeekendBrunch, "2025-03-05 11:00", false},
		{ReqWeekendBrunch, "2025-03-08 12:00", false},
	}
	for _, tc := range cases {
		acc := foldAll(drinkAt(tc.ts, "beer"))
		assert.Equalf(t, tc.want, Satisfied(def(tc.rt, ""), acc, now), "%s at %s", tc.rt, tc.ts)
	}
}

func TestSpecificWeekdayAndDate(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")
	tuesday := foldAll(drinkAt("2025-03-04 18:00", "beer"))

	assert.True(t, Satisfied(def(ReqSpecificWeekday, "tuesday"), tuesday, now))
	assert.False(t, Satisfied(def(ReqSpecificWeekday, "friday"), tuesday, now))
	assert.False(t, Satisfied(def(ReqSpecificWeekday, "someday"), tuesday, now))

	patricks := foldAll(drinkAt("2025-03-17 18:00", "beer"))
	assert.True(t, Satisfied(def(ReqSpecificDate, "3-17"), patricks, now))
	assert.False(t, Satisfied(def(ReqSpecificDate, "10-31"), patricks, now))

	// Fourth Thursday of November 2025 is the 27th.
	thanksgiving := foldAll(drinkAt("2025-11-27 18:00", "beer"))
	assert.True(t, Satisfied(def(ReqSpecificDate, "thanksgiving"), thanksgiving, now))
	week3 := foldAll(drinkAt("2025-11-20 18:00", "beer"))
	assert.False(t, Satisfied(def(ReqSpecificDate, "thanksgiving"), week3, now))
}

func TestNewYearsAndPalindrome(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	assert.True(t, Satisfied(def(ReqNewYears, ""), foldAll(drinkAt("2025-01-01 00:09", "beer")), now))
	assert.False(t, Satisfied(def(ReqNewYears, ""), foldAll(drinkAt("2025-01-01 00:10", "beer")), now))

	assert.True(t, Satisfied(def(ReqTimePalindrome, ""), foldAll(drinkAt("2025-03-03 12:21", "beer")), now))
	assert.True(t, Satisfied(def(ReqTimePalindrome, ""), foldAll(drinkAt("2025-03-03 13:31", "beer")), now))
	assert.False(t, Satisfied(def(ReqTimePalindrome, ""), foldAll(drinkAt("2025-03-03 12:22", "beer")), now))
}

func TestWeekendBoth(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	pair := foldAll(
		drinkAt("2025-03-08 18:00", "beer"), // Saturday
		drinkAt("2025-03-09 18:00", "beer"), // Sunday
	)
	assert.True(t, Satisfied(def(ReqWeekendBoth, ""), pair, now))

	// Sunday then the following Saturday is not a pair.
	split := foldAll(
		drinkAt("2025-03-09 18:00", "beer"),
		drinkAt("2025-03-15 18:00", "beer"),
	)
	assert.False(t, Satisfied(def(ReqWeekendBoth, ""), split, now))
}

func TestLuckySeven(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	events := make([]DrinkEvent, 0, 7)
	for i := 0; i < 7; i++ {
		events = append(events, drinkAt("2025-03-07 15:00", "beer"))
	}
	assert.True(t, Satisfied(def(ReqLuckySeven, "7"), foldAll(events...), now))
	assert.False(t, Satisfied(def(ReqLuckySeven, "7"), foldAll(events[:6]...), now))

	// Seven drinks on the 8th does not count.
	off := make([]DrinkEvent, 0, 7)
	for i := 0; i < 7; i++ {
		off = append(off, drinkAt("2025-03-08 15:00", "beer"))
	}
	assert.False(t, Satisfied(def(ReqLuckySeven, "7"), foldAll(off...), now))
}

func TestGapPredicates(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	quick := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-03 18:25", "beer"),
	)
	assert.True(t, Satisfied(def(ReqQuickSuccession, ""), quick, now))

	slow := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-03 18:45", "beer"),
	)
	assert.False(t, Satisfied(def(ReqQuickSuccession, ""), slow, now))
	assert.False(t, Satisfied(def(ReqHourGap, ""), slow, now))

	hourish := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-03 19:02", "beer"),
	)
	assert.True(t, Satisfied(def(ReqHourGap, ""), hourish, now))

	triple := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-03 18:25", "beer"),
		drinkAt("2025-03-03 18:55", "beer"),
	)
	assert.True(t, Satisfied(def(ReqTripleHour, ""), triple, now))
	assert.False(t, Satisfied(def(ReqTripleHour, ""), quick, now), "needs three drinks")
}

func TestSameTimeStreak(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	acc := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:20", "beer"),
		drinkAt("2025-03-05 18:05", "beer"),
	)
	assert.True(t, Satisfied(def(ReqSameTimeStreak, "3"), acc, now))

	drift := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 19:00", "beer"),
		drinkAt("2025-03-05 19:10", "beer"),
	)
	assert.False(t, Satisfied(def(ReqSameTimeStreak, "3"), drift, now))
}

func TestSameWeekdayStreak(t *testing.T) {
	now := mustParse(t, "2025-04-10 12:00")

	mondays := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-10 18:00", "beer"),
		drinkAt("2025-03-17 18:00", "beer"),
	)
	assert.True(t, Satisfied(def(ReqSameWeekdayStreak, "3"), mondays, now))

	skipped := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-17 18:00", "beer"),
	)
	assert.False(t, Satisfied(def(ReqSameWeekdayStreak, "2"), skipped, now))
}

func TestAscendingStreak(t *testing.T) {
	now := mustParse(t, "2025-03-10 12:00")

	acc := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
		drinkAt("2025-03-04 19:00", "beer"),
		drinkAt("2025-03-05 18:00", "beer"),
		drinkAt("2025-03-05 19:00", "beer"),
		drinkAt("2025-03-05 20:00", "beer"),
	)
	assert.True(t, Satisfied(def(ReqAscendingStreak, "3"), acc, now), "1, 2, 3 drinks on consecutive days")

	flat := foldAll(
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
	)
	assert.False(t, Satisfied(def(ReqAscendingStreak, "2"), flat, now))
}

func TestEventSatisfiesFirstQualifyingEvent(t *testing.T) {
	acc := NewAccumulator(time.UTC)

	early := drinkAt("2025-03-03 08:00", "beer")
	late := drinkAt("2025-03-03 20:00", "beer")

	acc.Fold(late)
	assert.False(t, EventSatisfies(def(ReqEarlyBird, ""), acc, late))

	acc.Fold(early)
	assert.True(t, EventSatisfies(def(ReqEarlyBird, ""), acc, early))
}

func TestEventSatisfiesWeekendBothFiresOnCompletion(t *testing.T) {
	acc := NewAccumulator(time.UTC)

	sat := drinkAt("2025-03-08 18:00", "beer")
	sun := drinkAt("2025-03-09 13:00", "beer")

	acc.Fold(sat)
	assert.False(t, EventSatisfies(def(ReqWeekendBoth, ""), acc, sat), "only half the pair so far")

	acc.Fold(sun)
	assert.True(t, EventSatisfies(def(ReqWeekendBoth, ""), acc, sun), "the Sunday completes the pair")
}

func TestEventSatisfiesIgnoresNonEventScoped(t *testing.T) {
	acc := NewAccumulator(time.UTC)
	ev := drinkAt("2025-03-03 18:00", "beer")
	acc.Fold(ev)

	assert.False(t, EventSatisfies(def(ReqTotalDrinks, "1"), acc, ev))
	assert.True(t, ReqTotalDrinks.IsEventScoped() == false)
}

func TestRequirementScopeClassification(t *testing.T) {
	assert.True(t, ReqEarlyBird.IsEventScoped())
	assert.False(t, ReqEarlyBird.IsAccountScoped())
	assert.True(t, ReqFriendCount.IsAccountScoped())
	assert.False(t, ReqFriendCount.IsEventScoped())
	assert.False(t, ReqTotalDrinks.IsEventScoped())
	assert.False(t, ReqTotalDrinks.IsAccountScoped())
}
