package gen

import (
	"github.com/vantis-labs/expedition/internal/content"
	"github.com/vantis-labs/expedition/internal/rng"
)

// PickBudgetEntry draws one weighted entry from the candidates whose cost
// still fits the remaining budget, proportionally to weight, and subtracts
// its cost from the budget. Returns nil when no entry fits or all fitting
// weights sum to zero; callers treat nil as end of the pass.
//
// The same entry kind may be drawn repeatedly — this is budget exhaustion,
// not sampling without replacement.
func PickBudgetEntry(budget *float64, entries []content.SpawnEntry, r *rng.Source) *content.SpawnEntry {
	if *budget <= 0 {
		return nil
	}

	var probSum float64
	for i := range entries {
		if entries[i].Cost <= *budget && entries[i].Weight > 0 {
			probSum += entries[i].Weight
		}
	}
	if probSum <= 0 {
		return nil
	}

	roll := r.Float64() * probSum
	for i := range entries {
		e := &entries[i]
		if e.Cost > *budget || e.Weight <= 0 {
			continue
		}
		roll -= e.Weight
		if roll <= 0 {
			*budget -= e.Cost
			return e
		}
	}

	// Float round-off: fall back to the last fitting entry.
	for i := len(entries) - 1; i >= 0; i-- {
		e := &entries[i]
		if e.Cost <= *budget && e.Weight > 0 {
			*budget -= e.Cost
			return e
		}
	}
	return nil
}
