package achievement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAccumulatorCarriesAccountFacts(t *testing.T) {
	hist := historyOf(t,
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "wine"),
	)
	hist.AccountCreatedAt = mustParse(t, "2025-01-01 09:00")
	hist.BetaTester = true
	hist.FriendshipTimes = []time.Time{
		mustParse(t, "2025-01-05 10:00"),
		mustParse(t, "2025-01-09 10:00"),
	}
	hist.CheerTimes = []time.Time{mustParse(t, "2025-01-06 10:00")}

	acc := BuildAccumulator(hist)

	assert.Equal(t, 2, acc.TotalDrinks)
	assert.Equal(t, 2, acc.FriendCount)
	assert.Equal(t, 1, acc.TotalCheersReceived)
	assert.True(t, acc.BetaTester)
	assert.Equal(t, hist.AccountCreatedAt, acc.AccountCreatedAt)
}

func TestNewlySatisfiedSkipsUnlocked(t *testing.T) {
	hist := historyOf(t,
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "beer"),
	)
	acc := BuildAccumulator(hist)

	already := def(ReqTotalDrinks, "1")
	already.ID = uuid.New()
	fresh := def(ReqTotalDrinks, "2")
	fresh.ID = uuid.New()
	notYet := def(ReqTotalDrinks, "10")
	notYet.ID = uuid.New()

	out := NewlySatisfied(
		[]Achievement{already, fresh, notYet},
		map[uuid.UUID]bool{already.ID: true},
		acc,
		mustParse(t, "2025-03-04 19:00"),
	)

	require.Len(t, out, 1)
	assert.Equal(t, fresh.ID, out[0].ID)
}

func TestNewlySatisfiedPreservesDefinitionOrder(t *testing.T) {
	hist := historyOf(t,
		drinkAt("2025-03-03 18:00", "beer"),
		drinkAt("2025-03-04 18:00", "wine"),
		drinkAt("2025-03-05 18:00", "cider"),
	)
	acc := BuildAccumulator(hist)

	defs := []Achievement{
		def(ReqUniqueTypes, "3"),
		def(ReqTotalDrinks, "3"),
		def(ReqStreakDays, "3"),
	}
	for i := range defs {
		defs[i].ID = uuid.New()
	}

	out := NewlySatisfied(defs, nil, acc, mustParse(t, "2025-03-05 19:00"))

	require.Len(t, out, 3)
	for i := range defs {
		assert.Equal(t, defs[i].ID, out[i].ID)
	}
}

func TestNewlySatisfiedEmptyWhenNothingHolds(t *testing.T) {
	acc := BuildAccumulator(historyOf(t, drinkAt("2025-03-03 18:00", "beer")))

	d := def(ReqTotalDrinks, "5")
	d.ID = uuid.New()

	out := NewlySatisfied([]Achievement{d}, nil, acc, mustParse(t, "2025-03-03 19:00"))
	assert.Empty(t, out)
}
