package achievement

import (
	"time"

	"github.com/google/uuid"
)

// UserHistory is everything backfill needs for one user, fetched up front
// and held immutable for the duration of the replay. Events, friendship
// edges and cheers must be in ascending time order.
type UserHistory struct {
	UserID           uuid.UUID
	Events           []DrinkEvent
	FriendshipTimes  []time.Time
	CheerTimes       []time.Time
	AccountCreatedAt time.Time
	BetaTester       bool
	Loc              *time.Location
}

// Correction is one unlock record whose stored instant disagrees with the
// historically accurate one.
type Correction struct {
	UserID        uuid.UUID `json:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id"`
	StoredAt      time.Time `json:"stored_at"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

// Stored timestamps round-trip through the database with sub-second
// precision loss; anything closer than this counts as unchanged.
const instantTolerance = time.Second

// ResolveUnlockInstants recovers the exact historical instant each
// already-unlocked achievement first became true, and returns the set of
// corrections where that instant differs from what is stored. It never
// grants: achievements absent from unlocked are ignored even if the history
// satisfies them. Pure and deterministic, so re-running it over unchanged
// history yields no corrections the second time.
func ResolveUnlockInstants(hist UserHistory, defs []Achievement, unlocked map[uuid.UUID]time.Time) []Correction {
	if len(unlocked) == 0 {
		return nil
	}

	defByID := make(map[uuid.UUID]Achievement, len(defs))
	for _, d := range defs {
		defByID[d.ID] = d
	}

	loc := hist.Loc
	if loc == nil {
		loc = time.UTC
	}

	resolved := make(map[uuid.UUID]time.Time)
	var replayDefs []Achievement

	for achID := range unlocked {
		def, ok := defByID[achID]
		if !ok {
			continue
		}
		if def.RequirementType.IsAccountScoped() {
			if at, ok := resolveAccountScoped(def, hist, loc); ok {
				resolved[achID] = at
			}
			continue
		}
		replayDefs = append(replayDefs, def)
	}

	if len(replayDefs) > 0 && len(hist.Events) > 0 {
		acc := NewAccumulator(loc)
		acc.AccountCreatedAt = hist.AccountCreatedAt
		acc.BetaTester = hist.BetaTester
		// Friend and cheer counts resolve directly above; the replay
		// accumulator only ever sees the drink stream.

		for _, ev := range hist.Events {
			acc.Fold(ev)

			remaining := replayDefs[:0]
			for _, def := range replayDefs {
				hit := false
				if def.RequirementType.IsEventScoped() {
					hit = EventSatisfies(def, acc, ev)
				} else {
					hit = Satisfied(def, acc, ev.LoggedAt)
				}
				if hit {
					resolved[def.ID] = ev.LoggedAt
				} else {
					remaining = append(remaining, def)
				}
			}
			replayDefs = remaining
			if len(replayDefs) == 0 {
				break
			}
		}
	}

	var corrections []Correction
	for achID, storedAt := range unlocked {
		resolvedAt, ok := resolved[achID]
		if !ok {
			continue
		}
		if diff := storedAt.Sub(resolvedAt); diff > -instantTolerance && diff < instantTolerance {
			continue
		}
		corrections = append(corrections, Correction{
			UserID:        hist.UserID,
			AchievementID: achID,
			StoredAt:      storedAt,
			ResolvedAt:    resolvedAt,
		})
	}
	return corrections
}

// resolveAccountScoped pins the unlock instant of requirements derived from
// account facts rather than the drink fold: the account-age offset, the
// beta flag, the Nth friendship edge, the Nth cheer, the Nth logged drink,
// and the creation-day log.
func resolveAccountScoped(def Achievement, hist UserHistory, loc *time.Location) (time.Time, bool) {
	switch def.RequirementType {
	case ReqAccountAgeDays:
		n, ok := threshold(def.RequirementValue)
		if !ok || hist.AccountCreatedAt.IsZero() {
			return time.Time{}, false
		}
		return hist.AccountCreatedAt.AddDate(0, 0, n), true
	case ReqBetaTester:
		if !hist.BetaTester || hist.AccountCreatedAt.IsZero() {
			return time.Time{}, false
		}
		return hist.AccountCreatedAt, true
	case ReqFriendCount:
		return nthInstant(hist.FriendshipTimes, def.RequirementValue)
	case ReqCheersReceived:
		return nthInstant(hist.CheerTimes, def.RequirementValue)
	case ReqShareCount:
		n, ok := threshold(def.RequirementValue)
		if !ok || len(hist.Events) < n {
			return time.Time{}, false
		}
		return hist.Events[n-1].LoggedAt, true
	case ReqFirstDayLog:
		if hist.AccountCreatedAt.IsZero() {
			return time.Time{}, false
		}
		createdOrd := dayOrdinal(hist.AccountCreatedAt, loc)
		for _, ev := range hist.Events {
			if dayOrdinal(ev.LoggedAt, loc) == createdOrd {
				return ev.LoggedAt, true
			}
		}
	}
	return time.Time{}, false
}

func nthInstant(times []time.Time, value string) (time.Time, bool) {
	n, ok := threshold(value)
	if !ok || len(times) < n {
		return time.Time{}, false
	}
	return times[n-1], true
}
