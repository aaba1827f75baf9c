package services

import (
	"math/rand/v2"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"
)

const (
	statusAbandoned = "ABANDONNÉ"
	statusCompleted = "FIN"
	priorityHigh    = "Oui"
	priorityLow     = "Non"
)

func isAbandoned(r dataset.HistoricalRecord) bool {
	return dataset.ContainsFold(r.ProgressStatus, statusAbandoned)
}

func isCompleted(r dataset.HistoricalRecord) bool {
	return dataset.ContainsFold(r.ProgressStatus, statusCompleted)
}

// tallyStatuses counts progress statuses. Missing statuses count nowhere.
//
// With the legacy policy the three tallies are independent substring tests,
// so abandoned+completed may exceed the subset size.
func tallyStatuses(subset []dataset.HistoricalRecord, policy StatusPolicy) models.StatusesPieChart {
	var pie models.StatusesPieChart
	for _, r := range subset {
		if r.ProgressStatus == "" {
			continue
		}
		abandoned, completed := isAbandoned(r), isCompleted(r)

		if policy == StatusPolicyStrict {
			switch {
			case abandoned:
				pie.Abandoned++
			case completed:
				pie.Completed++
			default:
				pie.InProgress++
			}
			continue
		}

		if abandoned {
			pie.Abandoned++
		}
		if completed {
			pie.Completed++
		}
		if !abandoned && !completed {
			pie.InProgress++
		}
	}
	return pie
}

// sampleAbandoned draws min(n, |abandoned|) abandoned records uniformly
// without replacement (partial Fisher-Yates on a copy).
func sampleAbandoned(subset []dataset.HistoricalRecord, n int, rng *rand.Rand) []models.ProjectExample {
	var pool []dataset.HistoricalRecord
	for _, r := range subset {
		if isAbandoned(r) {
			pool = append(pool, r)
		}
	}

	k := min(n, len(pool))
	out := make([]models.ProjectExample, 0, k)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, toExample(pool[i]))
	}
	return out
}

// tallyPriority counts "Oui" and "Non" independently. A value holding both
// is counted twice, one holding neither is not counted.
func tallyPriority(subset []dataset.HistoricalRecord) models.PriorityArea {
	var area models.PriorityArea
	for _, r := range subset {
		if dataset.ContainsFold(r.IsPriorityDistrict, priorityHigh) {
			area.HighPriority++
		}
		if dataset.ContainsFold(r.IsPriorityDistrict, priorityLow) {
			area.LowPriority++
		}
	}
	return area
}
