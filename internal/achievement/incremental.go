package achievement

import (
	"time"

	"github.com/google/uuid"
)

// BuildAccumulator folds a complete user history into a fresh accumulator.
// The full refold is deliberate: streak-style requirements are not
// monotonic, so a delta update over the newest event alone would drift.
func BuildAccumulator(hist UserHistory) *Accumulator {
	acc := NewAccumulator(hist.Loc)
	acc.AccountCreatedAt = hist.AccountCreatedAt
	acc.BetaTester = hist.BetaTester
	acc.FriendCount = len(hist.FriendshipTimes)
	acc.TotalCheersReceived = len(hist.CheerTimes)
	for _, ev := range hist.Events {
		acc.Fold(ev)
	}
	return acc
}

// NewlySatisfied returns the achievements that are not yet unlocked but
// whose requirement holds against the accumulator as of now. Order follows
// the definitions slice, so callers control celebration order.
func NewlySatisfied(defs []Achievement, unlocked map[uuid.UUID]bool, acc *Accumulator, now time.Time) []Achievement {
	var out []Achievement
	for _, def := range defs {
		if unlocked[def.ID] {
			continue
		}
		if Satisfied(def, acc, now) {
			out = append(out, def)
		}
	}
	return out
}
