package services

import (
	"cmp"
	"slices"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"
)

// quartileBands static labels of the four budget bands.
var quartileBands = [4]struct {
	label       string
	description string
}{
	{"Q1 (0-25%)", "Budget le plus bas"},
	{"Q2 (25-50%)", "Budget inférieur à la moyenne"},
	{"Q3 (50-75%)", "Budget supérieur à la moyenne"},
	{"Q4 (75-100%)", "Budget le plus élevé"},
}

// budgetStatistics computes the budget block over the records that carry a budget.
// Every figure is truncated toward zero. With no budget at all the block is
// zeroed, quartiles are empty and the estimated budget has no band.
func budgetStatistics(subset []dataset.HistoricalRecord, estimatedBudget int64, topN int) models.Budget {
	var withBudget []dataset.HistoricalRecord
	for _, r := range subset {
		if r.HasBudget {
			withBudget = append(withBudget, r)
		}
	}

	out := models.Budget{
		FiveMostExpensive:  []models.ProjectExample{},
		FiveLeastExpensive: []models.ProjectExample{},
		Position:           models.Position{Quartiles: []models.Quartile{}},
	}
	if len(withBudget) == 0 {
		return out
	}

	values := make([]float64, len(withBudget))
	for i, r := range withBudget {
		values[i] = r.AwardedBudget
	}
	sorted := sortedCopy(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	q1 := percentileLinear(sorted, 0.25)
	q2 := percentileLinear(sorted, 0.50)
	q3 := percentileLinear(sorted, 0.75)

	out.Median = truncate(q2)
	out.Average = truncate(calculateMean(values))
	out.Min = truncate(lo)
	out.Max = truncate(hi)
	out.FiveMostExpensive = rankByBudget(withBudget, topN, true)
	out.FiveLeastExpensive = rankByBudget(withBudget, topN, false)

	bounds := [5]float64{lo, q1, q2, q3, hi}
	out.Position.Quartiles = make([]models.Quartile, 0, len(quartileBands))
	for i, band := range quartileBands {
		out.Position.Quartiles = append(out.Position.Quartiles, models.Quartile{
			Quartile:    i + 1,
			Label:       band.label,
			Min:         truncate(bounds[i]),
			Max:         truncate(bounds[i+1]),
			Description: band.description,
		})
	}
	band := budgetBand(float64(estimatedBudget), q1, q2, q3)
	out.Position.EstimatedBudgetQuartile = &band
	return out
}

// budgetBand 1 if v <= q1, 2 if v <= q2, 3 if v <= q3, else 4.
// The bounds are the untruncated quartiles.
func budgetBand(v, q1, q2, q3 float64) int {
	switch {
	case v <= q1:
		return 1
	case v <= q2:
		return 2
	case v <= q3:
		return 3
	}
	return 4
}

// rankByBudget top (desc) or bottom (asc) n records by budget.
// The stable sort keeps dataset order among equal budgets.
func rankByBudget(records []dataset.HistoricalRecord, n int, desc bool) []models.ProjectExample {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b dataset.HistoricalRecord) int {
		if desc {
			return cmp.Compare(b.AwardedBudget, a.AwardedBudget)
		}
		return cmp.Compare(a.AwardedBudget, b.AwardedBudget)
	})

	ranked = ranked[:min(n, len(ranked))]
	out := make([]models.ProjectExample, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, toExample(r))
	}
	return out
}
