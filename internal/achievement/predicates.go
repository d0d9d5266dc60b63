package achievement

import (
	"fmt"
	"strings"
	"time"
)

// Satisfied answers whether the requirement holds given the fully folded
// accumulator, as of the given instant. This is the incremental-evaluator
// entry point: temporal requirements are checked as "did any historical
// drink qualify", scanning the retained drink times and day buckets, since
// only current-state truth matters online. Unknown requirement types and
// malformed values evaluate false, never panic.
func Satisfied(def Achievement, acc *Accumulator, asOf time.Time) bool {
	switch def.RequirementType {
	case ReqTotalDrinks:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.TotalDrinks >= n
	case ReqUniqueTypes:
		n, ok := threshold(def.RequirementValue)
		return ok && len(acc.UniqueTypes) >= n
	case ReqMaxInDay:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.MaxInDay >= n
	case ReqStreakDays:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.LongestStreak >= n
	case ReqWeeklyStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.WeeklyStreakCount >= n
	case ReqMonthlyStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.MonthlyStreakCount >= n
	case ReqSpecificDrinkCount:
		drinkType, n, ok := typeCount(def.RequirementValue)
		return ok && acc.DrinksByType[drinkType] >= n
	case ReqSameTypeCount:
		n, ok := threshold(def.RequirementValue)
		if !ok {
			return false
		}
		for _, count := range acc.DrinksByType {
			if count >= n {
				return true
			}
		}
		return false
	case ReqDaysInactive:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.MaxDaysInactive >= n
	case ReqFriendCount:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.FriendCount >= n
	case ReqAccountAgeDays:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.AccountAgeDays(asOf) >= n
	case ReqCheersReceived:
		n, ok := threshold(def.RequirementValue)
		return ok && acc.TotalCheersReceived >= n
	case ReqShareCount:
		// Every logged drink is implicitly shared.
		n, ok := threshold(def.RequirementValue)
		return ok && acc.TotalDrinks >= n
	case ReqFirstDayLog:
		if acc.AccountCreatedAt.IsZero() {
			return false
		}
		createdOrd := dayOrdinal(acc.AccountCreatedAt, acc.Loc)
		_, ok := acc.DaysWithDrinks[createdOrd]
		return ok
	case ReqBetaTester:
		return acc.BetaTester

	case ReqEarlyBird:
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Hour() < 10 })
	case ReqWeekendBrunch:
		return anyDrinkAt(acc, func(lt time.Time) bool {
			return isWeekendDay(lt.Weekday()) && lt.Hour() >= 10 && lt.Hour() < 12
		})
	case ReqAfternoonDrink:
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Hour() >= 14 && lt.Hour() < 17 })
	case ReqHappyHour:
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Hour() >= 17 && lt.Hour() < 19 })
	case ReqNightOwl:
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Hour() < 5 })
	case ReqAfterThreeAM:
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Hour() >= 3 && lt.Hour() < 6 })
	case ReqSpecificWeekday:
		wd, ok := weekdayToken(def.RequirementValue)
		if !ok {
			return false
		}
		return anyDrinkAt(acc, func(lt time.Time) bool { return lt.Weekday() == wd })
	case ReqSpecificDate:
		return anyDrinkAt(acc, func(lt time.Time) bool {
			return matchesCalendarDate(def.RequirementValue, lt)
		})
	case ReqNewYears:
		return anyDrinkAt(acc, isNewYearsMinute)
	case ReqTimePalindrome:
		return anyDrinkAt(acc, isPalindromeTime)
	case ReqWeekendBoth:
		for ord := range acc.DaysWithDrinks {
			if ordinalWeekday(ord) == time.Saturday {
				if _, ok := acc.DaysWithDrinks[ord+1]; ok {
					return true
				}
			}
		}
		return false
	case ReqLuckySeven:
		n, ok := threshold(def.RequirementValue)
		if !ok {
			n = 7
		}
		for ord, count := range acc.DrinksByDay {
			if dayOfMonth(ord) == 7 && count >= n {
				return true
			}
		}
		return false
	case ReqQuickSuccession:
		return anyGapWithin(acc.DrinkTimes, 30*time.Minute)
	case ReqTripleHour:
		return anyTripleWithin(acc.DrinkTimes, time.Hour)
	case ReqHourGap:
		return anyGapBetween(acc.DrinkTimes, 55*time.Minute, 65*time.Minute)
	case ReqSameTimeStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && maxSameTimeRun(acc) >= n
	case ReqSameWeekdayStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && maxSameWeekdayRun(acc) >= n
	case ReqAscendingStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && maxAscendingRun(acc) >= n
	}
	return false
}

// EventSatisfies answers whether the event just folded into the accumulator
// is the qualifying drink for an event-scoped requirement. The backfill
// replay calls this after every fold step; the first event it returns true
// for fixes the unlock instant. Requirements that are not event-scoped
// always return false here.
func EventSatisfies(def Achievement, acc *Accumulator, ev DrinkEvent) bool {
	lt := ev.LoggedAt.In(acc.Loc)

	switch def.RequirementType {
	case ReqEarlyBird:
		return lt.Hour() < 10
	case ReqWeekendBrunch:
		return isWeekendDay(lt.Weekday()) && lt.Hour() >= 10 && lt.Hour() < 12
	case ReqAfternoonDrink:
		return lt.Hour() >= 14 && lt.Hour() < 17
	case ReqHappyHour:
		return lt.Hour() >= 17 && lt.Hour() < 19
	case ReqNightOwl:
		return lt.Hour() < 5
	case ReqAfterThreeAM:
		return lt.Hour() >= 3 && lt.Hour() < 6
	case ReqSpecificWeekday:
		wd, ok := weekdayToken(def.RequirementValue)
		return ok && lt.Weekday() == wd
	case ReqSpecificDate:
		return matchesCalendarDate(def.RequirementValue, lt)
	case ReqNewYears:
		return isNewYearsMinute(lt)
	case ReqTimePalindrome:
		return isPalindromeTime(lt)
	case ReqWeekendBoth:
		// Whichever weekend day lands second completes the pair, so the
		// check fires on the fold step that makes both days present.
		var satOrd int
		switch lt.Weekday() {
		case time.Saturday:
			satOrd = dayOrdinal(ev.LoggedAt, acc.Loc)
		case time.Sunday:
			satOrd = dayOrdinal(ev.LoggedAt, acc.Loc) - 1
		default:
			return false
		}
		_, hasSat := acc.DaysWithDrinks[satOrd]
		_, hasSun := acc.DaysWithDrinks[satOrd+1]
		return hasSat && hasSun
	case ReqLuckySeven:
		n, ok := threshold(def.RequirementValue)
		if !ok {
			n = 7
		}
		return lt.Day() == 7 && acc.DrinksByDay[dayOrdinal(ev.LoggedAt, acc.Loc)] >= n
	case ReqQuickSuccession:
		return lastGapWithin(acc.DrinkTimes, 30*time.Minute)
	case ReqTripleHour:
		return lastTripleWithin(acc.DrinkTimes, time.Hour)
	case ReqHourGap:
		n := len(acc.DrinkTimes)
		if n < 2 {
			return false
		}
		gap := acc.DrinkTimes[n-1].Sub(acc.DrinkTimes[n-2])
		return gap >= 55*time.Minute && gap <= 65*time.Minute
	case ReqSameTimeStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && sameTimeRunEndingAt(acc, dayOrdinal(ev.LoggedAt, acc.Loc)) >= n
	case ReqSameWeekdayStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && sameWeekdayRunEndingAt(acc, dayOrdinal(ev.LoggedAt, acc.Loc)) >= n
	case ReqAscendingStreak:
		n, ok := threshold(def.RequirementValue)
		return ok && ascendingRunEndingAt(acc, dayOrdinal(ev.LoggedAt, acc.Loc)) >= n
	}
	return false
}

func anyDrinkAt(acc *Accumulator, pred func(time.Time) bool) bool {
	for _, t := range acc.DrinkTimes {
		if pred(t.In(acc.Loc)) {
			return true
		}
	}
	return false
}

func isWeekendDay(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

// matchesCalendarDate matches "MM-DD" values plus the computed
// "thanksgiving" token (fourth Thursday of November).
func matchesCalendarDate(value string, lt time.Time) bool {
	if strings.EqualFold(strings.TrimSpace(value), "thanksgiving") {
		return lt.Month() == time.November &&
			lt.Weekday() == time.Thursday &&
			(lt.Day()-1)/7 == 3
	}
	var month, day int
	if _, err := fmt.Sscanf(value, "%d-%d", &month, &day); err != nil {
		return false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	return int(lt.Month()) == month && lt.Day() == day
}

// isNewYearsMinute matches the first ten minutes of January 1, local time.
func isNewYearsMinute(lt time.Time) bool {
	return lt.Month() == time.January && lt.Day() == 1 &&
		lt.Hour() == 0 && lt.Minute() < 10
}

// isPalindromeTime matches clock times whose HHMM digits read the same
// reversed, e.g. 12:21 -> "1221".
func isPalindromeTime(lt time.Time) bool {
	hhmm := fmt.Sprintf("%02d%02d", lt.Hour(), lt.Minute())
	for i, j := 0, len(hhmm)-1; i < j; i, j = i+1, j-1 {
		if hhmm[i] != hhmm[j] {
			return false
		}
	}
	return true
}

func dayOfMonth(ord int) int {
	return time.Unix(int64(ord)*86400, 0).UTC().Day()
}

func anyGapWithin(times []time.Time, max time.Duration) bool {
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) <= max {
			return true
		}
	}
	return false
}

func anyGapBetween(times []time.Time, lo, hi time.Duration) bool {
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		if gap >= lo && gap <= hi {
			return true
		}
	}
	return false
}

func anyTripleWithin(times []time.Time, span time.Duration) bool {
	for i := 2; i < len(times); i++ {
		if times[i].Sub(times[i-2]) <= span {
			return true
		}
	}
	return false
}

func lastGapWithin(times []time.Time, max time.Duration) bool {
	n := len(times)
	return n >= 2 && times[n-1].Sub(times[n-2]) <= max
}

func lastTripleWithin(times []time.Time, span time.Duration) bool {
	n := len(times)
	return n >= 3 && times[n-1].Sub(times[n-3]) <= span
}

// sameTimeRunEndingAt counts consecutive drink-days ending at ord whose
// first-drink clock times stay within 30 minutes of the previous day's.
func sameTimeRunEndingAt(acc *Accumulator, ord int) int {
	if _, ok := acc.DaysWithDrinks[ord]; !ok {
		return 0
	}
	run := 1
	for d := ord; ; d-- {
		prev, ok := acc.FirstMinuteByDay[d-1]
		if !ok {
			break
		}
		cur := acc.FirstMinuteByDay[d]
		if absInt(cur-prev) > 30 {
			break
		}
		run++
	}
	return run
}

func maxSameTimeRun(acc *Accumulator) int {
	best := 0
	for _, ord := range acc.sortedDays {
		if r := sameTimeRunEndingAt(acc, ord); r > best {
			best = r
		}
	}
	return best
}

// sameWeekdayRunEndingAt counts occurrences of the same weekday at exactly
// seven-day spacing, ending at ord.
func sameWeekdayRunEndingAt(acc *Accumulator, ord int) int {
	if _, ok := acc.DaysWithDrinks[ord]; !ok {
		return 0
	}
	run := 1
	for d := ord - 7; ; d -= 7 {
		if _, ok := acc.DaysWithDrinks[d]; !ok {
			break
		}
		run++
	}
	return run
}

func maxSameWeekdayRun(acc *Accumulator) int {
	best := 0
	for _, ord := range acc.sortedDays {
		if r := sameWeekdayRunEndingAt(acc, ord); r > best {
			best = r
		}
	}
	return best
}

// ascendingRunEndingAt counts consecutive drink-days ending at ord with
// strictly increasing per-day totals.
func ascendingRunEndingAt(acc *Accumulator, ord int) int {
	if _, ok := acc.DaysWithDrinks[ord]; !ok {
		return 0
	}
	run := 1
	for d := ord; ; d-- {
		prevCount, ok := acc.DrinksByDay[d-1]
		if !ok || acc.DrinksByDay[d] <= prevCount {
			break
		}
		run++
	}
	return run
}

func maxAscendingRun(acc *Accumulator) int {
	best := 0
	for _, ord := range acc.sortedDays {
		if r := ascendingRunEndingAt(acc, ord); r > best {
			best = r
		}
	}
	return best
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
