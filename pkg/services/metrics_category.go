package services

import (
	"cmp"
	"iter"
	"slices"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"
)

// MatchCategory returns the records whose theme contains label, ignoring case.
// The label is a literal string, never a pattern. Records without theme never match.
func MatchCategory(snap *dataset.Snapshot, label string) []dataset.HistoricalRecord {
	return snap.Filter(func(r dataset.HistoricalRecord) bool {
		return dataset.ContainsFold(r.Theme, label)
	})
}

// countEntry is one distinct value with its count, in first-appearance order.
type countEntry struct {
	value string
	count int
}

// countByFirstAppearance counts non-empty values and orders them by
// descending count, ties keeping the order in which values first appeared.
func countByFirstAppearance(values iter.Seq[string]) []countEntry {
	index := make(map[string]int)
	var entries []countEntry
	for v := range values {
		if v == "" {
			continue
		}
		if i, ok := index[v]; ok {
			entries[i].count++
			continue
		}
		index[v] = len(entries)
		entries = append(entries, countEntry{value: v, count: 1})
	}
	slices.SortStableFunc(entries, func(a, b countEntry) int {
		return cmp.Compare(b.count, a.count)
	})
	return entries
}

// CategoryBreakdown share of every theme over the whole dataset.
// percentage = floor(count*100/total) where total counts every row, themed or not,
// so the percentages do not have to add up to 100.
// An empty label selects nothing.
func CategoryBreakdown(snap *dataset.Snapshot, label string) []models.CategoryBreakdown {
	total := snap.Len()
	if total == 0 {
		return []models.CategoryBreakdown{}
	}
	entries := countByFirstAppearance(func(yield func(string) bool) {
		for _, r := range snap.All() {
			if !yield(r.Theme) {
				return
			}
		}
	})

	out := make([]models.CategoryBreakdown, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.CategoryBreakdown{
			Category:   e.value,
			Percentage: e.count * 100 / total,
			Selected:   label != "" && dataset.ContainsFold(e.value, label),
		})
	}
	return out
}

// districtDistribution project count per district, missing districts skipped.
func districtDistribution(subset []dataset.HistoricalRecord) []models.PostalCodeDistribution {
	entries := countByFirstAppearance(func(yield func(string) bool) {
		for _, r := range subset {
			if !yield(r.District) {
				return
			}
		}
	})

	out := make([]models.PostalCodeDistribution, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.PostalCodeDistribution{PostalCode: e.value, Count: e.count})
	}
	return out
}
