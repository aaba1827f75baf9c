package services

import (
	"math"
	"slices"
)

// percentileLinear returns the p-th quantile (0 <= p <= 1) of sorted values,
// interpolating linearly between the order statistics around rank (n-1)*p.
// This is the "linear" method of numpy and pandas.
func percentileLinear(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	rank := float64(n-1) * p
	lo := int(math.Floor(rank))
	hi := lo + 1
	if hi >= n {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// sortedCopy returns an ascending copy of values.
func sortedCopy(values []float64) []float64 {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

// calculateMean arithmetic mean, 0 for an empty slice.
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// truncate casts toward zero, never rounds.
func truncate(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}
