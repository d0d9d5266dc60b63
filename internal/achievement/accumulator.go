package achievement

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DrinkEvent is one logged drink as the engine sees it. LoggedAt is a full
// instant; calendar bucketing happens in the user's location.
type DrinkEvent struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	DrinkType string    `json:"drink_type" db:"drink_type"`
	DrinkID   *string   `json:"drink_id,omitempty" db:"drink_id"`
	Caption   *string   `json:"caption,omitempty" db:"caption"`
	ImageURL  *string   `json:"image_url,omitempty" db:"image_url"`
	LoggedAt  time.Time `json:"logged_at" db:"logged_at"`
}

// Accumulator is the running fold of one user's drink history. It is owned
// by a single evaluation pass and rebuilt from scratch per run; every
// derived field depends only on events already folded in, which is what lets
// the backfill replay read historically accurate values mid-stream.
type Accumulator struct {
	Loc *time.Location

	TotalDrinks  int
	UniqueTypes  map[string]struct{}
	DrinksByType map[string]int
	DrinkTimes   []time.Time

	// Calendar-day buckets, keyed by local day ordinal (days since the
	// Unix epoch of the local calendar date).
	DaysWithDrinks   map[int]struct{}
	DrinksByDay      map[int]int
	FirstMinuteByDay map[int]int
	MaxInDay         int

	sortedDays []int

	LongestStreak      int
	WeeklyStreakCount  int
	MonthlyStreakCount int
	MaxDaysInactive    int

	// Account facts, fixed for the duration of a pass.
	FriendCount         int
	TotalCheersReceived int
	AccountCreatedAt    time.Time
	BetaTester          bool
}

func NewAccumulator(loc *time.Location) *Accumulator {
	if loc == nil {
		loc = time.UTC
	}
	return &Accumulator{
		Loc:              loc,
		UniqueTypes:      make(map[string]struct{}),
		DrinksByType:     make(map[string]int),
		DaysWithDrinks:   make(map[int]struct{}),
		DrinksByDay:      make(map[int]int),
		FirstMinuteByDay: make(map[int]int),
	}
}

// dayOrdinal returns the number of whole days between the Unix epoch and
// the local calendar date of t. Consecutive calendar days differ by exactly
// one, which makes streak and gap arithmetic plain integer math.
func dayOrdinal(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	y, m, d := lt.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / 86400)
}

// ordinalWeekday maps a day ordinal back to its weekday. The epoch day,
// 1970-01-01, was a Thursday.
func ordinalWeekday(ord int) time.Weekday {
	wd := (ord + 4) % 7
	if wd < 0 {
		wd += 7
	}
	return time.Weekday(wd)
}

// weekIndex buckets a day ordinal into its Monday-anchored ISO week.
func weekIndex(ord int) int {
	// 1969-12-29 (ordinal -3) was a Monday.
	shifted := ord + 3
	if shifted < 0 {
		return (shifted - 6) / 7
	}
	return shifted / 7
}

func minuteOfDay(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	return lt.Hour()*60 + lt.Minute()
}

// Fold incorporates one event into the accumulator. Pure in the sense that
// it depends only on prior state plus the event; it never fails on
// well-formed input. Events are expected in ascending LoggedAt order, but an
// out-of-order day falls back to a full recompute rather than corrupting the
// streak bookkeeping.
func (a *Accumulator) Fold(ev DrinkEvent) {
	a.TotalDrinks++
	a.DrinkTimes = append(a.DrinkTimes, ev.LoggedAt)

	dt := normalizeType(ev.DrinkType)
	if dt != "" {
		a.UniqueTypes[dt] = struct{}{}
		a.DrinksByType[dt]++
	}

	ord := dayOrdinal(ev.LoggedAt, a.Loc)
	a.DrinksByDay[ord]++
	if a.DrinksByDay[ord] > a.MaxInDay {
		a.MaxInDay = a.DrinksByDay[ord]
	}

	minute := minuteOfDay(ev.LoggedAt, a.Loc)
	if _, seen := a.DaysWithDrinks[ord]; !seen {
		a.DaysWithDrinks[ord] = struct{}{}
		a.FirstMinuteByDay[ord] = minute
		a.insertDay(ord)
		a.recomputeRuns()
	} else if minute < a.FirstMinuteByDay[ord] {
		a.FirstMinuteByDay[ord] = minute
	}
}

func (a *Accumulator) insertDay(ord int) {
	n := len(a.sortedDays)
	if n == 0 || ord > a.sortedDays[n-1] {
		a.sortedDays = append(a.sortedDays, ord)
		return
	}
	i := sort.SearchInts(a.sortedDays, ord)
	a.sortedDays = append(a.sortedDays, 0)
	copy(a.sortedDays[i+1:], a.sortedDays[i:])
	a.sortedDays[i] = ord
}

// recomputeRuns rebuilds every run-length statistic from the distinct
// drink-day set. Invoked once per new drink-day, so the cost stays
// proportional to the number of distinct days.
func (a *Accumulator) recomputeRuns() {
	a.LongestStreak = 0
	a.MaxDaysInactive = 0

	run := 0
	prev := 0
	for i, ord := range a.sortedDays {
		if i == 0 || ord != prev+1 {
			run = 1
		} else {
			run++
		}
		if run > a.LongestStreak {
			a.LongestStreak = run
		}
		if i > 0 {
			if gap := ord - prev; gap > a.MaxDaysInactive {
				a.MaxDaysInactive = gap
			}
		}
		prev = ord
	}
	if len(a.sortedDays) < 2 {
		a.MaxDaysInactive = 0
	}

	a.WeeklyStreakCount = longestRun(a.sortedDays, weekIndex)
	a.MonthlyStreakCount = longestRun(a.sortedDays, func(ord int) int {
		return monthOfOrdinal(ord)
	})
}

// longestRun maps sorted day ordinals into coarser buckets and returns the
// longest run of consecutive bucket keys that contain at least one day.
func longestRun(sortedDays []int, bucket func(int) int) int {
	longest, run := 0, 0
	havePrev := false
	prev := 0
	for _, ord := range sortedDays {
		b := bucket(ord)
		switch {
		case !havePrev:
			run = 1
		case b == prev:
			// same bucket, run unchanged
		case b == prev+1:
			run++
		default:
			run = 1
		}
		havePrev = true
		prev = b
		if run > longest {
			longest = run
		}
	}
	return longest
}

func monthOfOrdinal(ord int) int {
	t := time.Unix(int64(ord)*86400, 0).UTC()
	return t.Year()*12 + int(t.Month()) - 1
}

// CurrentStreak counts backward from the most recent drink-day, but only
// when that day is today or yesterday relative to the evaluation instant;
// otherwise the streak is broken and reads 0. A single drink-day that is
// current yields 1.
func (a *Accumulator) CurrentStreak(now time.Time) int {
	n := len(a.sortedDays)
	if n == 0 {
		return 0
	}
	today := dayOrdinal(now, a.Loc)
	last := a.sortedDays[n-1]
	if last != today && last != today-1 {
		return 0
	}
	streak := 1
	for i := n - 1; i > 0; i-- {
		if a.sortedDays[i-1] == a.sortedDays[i]-1 {
			streak++
		} else {
			break
		}
	}
	return streak
}

// AccountAgeDays is the whole-day age of the account as of the given
// instant.
func (a *Accumulator) AccountAgeDays(asOf time.Time) int {
	if a.AccountCreatedAt.IsZero() || asOf.Before(a.AccountCreatedAt) {
		return 0
	}
	return int(asOf.Sub(a.AccountCreatedAt).Hours() / 24)
}

// SortedDays exposes the distinct drink-day ordinals in ascending order.
// Callers must not mutate the returned slice.
func (a *Accumulator) SortedDays() []int {
	return a.sortedDays
}

func normalizeType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
