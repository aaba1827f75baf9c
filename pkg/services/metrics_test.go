package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allColumns = dataset.Columns{Edition: true, Budget: true}

func record(theme string, budget float64, opts ...func(*dataset.HistoricalRecord)) dataset.HistoricalRecord {
	r := dataset.HistoricalRecord{
		Title:              fmt.Sprintf("Projet %s %.0f", theme, budget),
		Theme:              theme,
		Edition:            2020,
		HasEdition:         true,
		District:           "75011",
		ProgressStatus:     "En cours",
		IsPriorityDistrict: "Non",
		AwardedBudget:      budget,
		HasBudget:          true,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func withStatus(s string) func(*dataset.HistoricalRecord) {
	return func(r *dataset.HistoricalRecord) { r.ProgressStatus = s }
}

func withDistrict(d string) func(*dataset.HistoricalRecord) {
	return func(r *dataset.HistoricalRecord) { r.District = d }
}

func withEdition(y int) func(*dataset.HistoricalRecord) {
	return func(r *dataset.HistoricalRecord) { r.Edition = y }
}

func withTitle(t string) func(*dataset.HistoricalRecord) {
	return func(r *dataset.HistoricalRecord) { r.Title = t }
}

// tenBudgetSnapshot: one category, budgets 1000..10000.
func tenBudgetSnapshot() *dataset.Snapshot {
	records := make([]dataset.HistoricalRecord, 0, 10)
	for i := 1; i <= 10; i++ {
		records = append(records, record("Environnement", float64(i*1000), withEdition(2015+i)))
	}
	return dataset.NewSnapshot("test", allColumns, records)
}

func buildReport(t *testing.T, svc *MetricsService, snap *dataset.Snapshot, label string, budget int64) *models.PredictResponse {
	t.Helper()
	info := models.PredictionInfo{Name: label, Confidence: 0.91, Analyse: "Prédiction Test : " + label}
	resp, err := svc.BuildReport(context.Background(), info, "Mon projet", budget, snap, NewSeededRand(42))
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestBuildReportBudgetScenario(t *testing.T) {
	svc := NewMetricsService(MetricsOptions{})
	resp := buildReport(t, svc, tenBudgetSnapshot(), "Environnement", 5500)

	pc := resp.PredictedCategory
	assert.Equal(t, "Environnement", pc.Name)
	assert.Equal(t, 0.91, pc.Confidence)
	assert.Equal(t, "Mon projet", pc.ProjectTitle)
	assert.Equal(t, int64(5500), pc.EstimatedBudget)
	require.NotNil(t, pc.Metrics)

	m := pc.Metrics
	assert.Equal(t, 10, m.NumberOfRecords)
	assert.Equal(t, 2016, m.StartingYear)
	assert.Equal(t, 2025, m.EndingYear)

	b := m.Budget
	assert.Equal(t, int64(5500), b.Median)
	assert.Equal(t, int64(5500), b.Average)
	assert.Equal(t, int64(1000), b.Min)
	assert.Equal(t, int64(10000), b.Max)

	expected := []models.Quartile{
		{Quartile: 1, Label: "Q1 (0-25%)", Min: 1000, Max: 3250, Description: "Budget le plus bas"},
		{Quartile: 2, Label: "Q2 (25-50%)", Min: 3250, Max: 5500, Description: "Budget inférieur à la moyenne"},
		{Quartile: 3, Label: "Q3 (50-75%)", Min: 5500, Max: 7750, Description: "Budget supérieur à la moyenne"},
		{Quartile: 4, Label: "Q4 (75-100%)", Min: 7750, Max: 10000, Description: "Budget le plus élevé"},
	}
	assert.Equal(t, expected, b.Position.Quartiles)
	require.NotNil(t, b.Position.EstimatedBudgetQuartile)
	// 5500 equals Q2 exactly, and the bands are closed on the right
	assert.Equal(t, 2, *b.Position.EstimatedBudgetQuartile)

	require.Len(t, b.FiveMostExpensive, 5)
	require.Len(t, b.FiveLeastExpensive, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, int64((10-i)*1000), b.FiveMostExpensive[i].Budget)
		assert.Equal(t, int64((i+1)*1000), b.FiveLeastExpensive[i].Budget)
	}
	assert.Equal(t, "2025", b.FiveMostExpensive[0].Year)
}

func TestEstimatedBudgetQuartileBoundaries(t *testing.T) {
	svc := NewMetricsService(MetricsOptions{})
	snap := tenBudgetSnapshot()

	testCases := []struct {
		budget int64
		want   int
	}{
		{0, 1},
		{1000, 1},
		{3250, 1},
		{3251, 2},
		{5500, 2},
		{5501, 3},
		{7750, 3},
		{7751, 4},
		{10000, 4},
		{1_000_000, 4},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("budget=%d", tc.budget), func(t *testing.T) {
			resp := buildReport(t, svc, snap, "Environnement", tc.budget)
			got := resp.PredictedCategory.Metrics.Budget.Position.EstimatedBudgetQuartile
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestEstimatedBudgetQuartileIsMonotonic(t *testing.T) {
	svc := NewMetricsService(MetricsOptions{})
	snap := dataset.NewSnapshot("test", allColumns, []dataset.HistoricalRecord{
		record("Sport", 120), record("Sport", 4500), record("Sport", 4500),
		record("Sport", 80000), record("Sport", 15250.5), record("Sport", 9999),
		record("Sport", 0, func(r *dataset.HistoricalRecord) { r.HasBudget = false }),
	})

	prev := 0
	for budget := int64(0); budget <= 100_000; budget += 250 {
		resp := buildReport(t, svc, snap, "Sport", budget)
		band := *resp.PredictedCategory.Metrics.Budget.Position.EstimatedBudgetQuartile
		assert.GreaterOrEqual(t, band, prev, "budget=%d", budget)
		prev = band
	}
	assert.Equal(t, 4, prev)
}

func TestQuartileBandsAreNonDecreasing(t *testing.T) {
	samples := [][]float64{
		{42},
		{10, 10, 10},
		{5, 1, 9, 3},
		{100.9, 0.5, 77, 77, 12, 3000, 2.2},
	}
	for _, values := range samples {
		records := make([]dataset.HistoricalRecord, 0, len(values))
		for _, v := range values {
			records = append(records, record("Culture", v))
		}
		b := budgetStatistics(records, 0, DefaultExampleCount)
		q := b.Position.Quartiles
		require.Len(t, q, 4)
		assert.Equal(t, b.Min, q[0].Min)
		assert.Equal(t, b.Max, q[3].Max)
		for i := 0; i < 4; i++ {
			assert.LessOrEqual(t, q[i].Min, q[i].Max, "values=%v", values)
			if i > 0 {
				assert.Equal(t, q[i-1].Max, q[i].Min)
			}
		}
	}
}

func TestBuildReportNoMatchingCategory(t *testing.T) {
	snap := tenBudgetSnapshot()

	resp := buildReport(t, NewMetricsService(MetricsOptions{}), snap, "Sport", 100)
	assert.Nil(t, resp.PredictedCategory.Metrics)
	assert.Equal(t, DefaultNoDataMessage, resp.PredictedCategory.Analyse)
	assert.Equal(t, "Sport", resp.PredictedCategory.Name)
	assert.Equal(t, int64(100), resp.PredictedCategory.EstimatedBudget)

	custom := NewMetricsService(MetricsOptions{NoDataMessage: "No data available for this predicted category"})
	resp = buildReport(t, custom, snap, "Sport", 100)
	assert.Equal(t, "No data available for this predicted category", resp.PredictedCategory.Analyse)
}

func TestBuildReportWithoutOptionalColumns(t *testing.T) {
	records := []dataset.HistoricalRecord{
		{Title: "A", Theme: "Sport", District: "75001", ProgressStatus: "FIN", IsPriorityDistrict: "Oui"},
		{Title: "B", Theme: "Sport", District: "75002", ProgressStatus: "En cours", IsPriorityDistrict: "Non"},
	}
	snap := dataset.NewSnapshot("test", dataset.Columns{}, records)

	resp := buildReport(t, NewMetricsService(MetricsOptions{}), snap, "sport", 5000)
	m := resp.PredictedCategory.Metrics
	require.NotNil(t, m)
	assert.Equal(t, 2000, m.StartingYear)
	assert.Equal(t, 2025, m.EndingYear)

	assert.Zero(t, m.Budget.Median)
	assert.Zero(t, m.Budget.Average)
	assert.Zero(t, m.Budget.Min)
	assert.Zero(t, m.Budget.Max)
	assert.Empty(t, m.Budget.Position.Quartiles)
	assert.NotNil(t, m.Budget.Position.Quartiles)
	assert.Nil(t, m.Budget.Position.EstimatedBudgetQuartile)
	assert.Empty(t, m.Budget.FiveMostExpensive)
}

func TestYearRangeFallsBackWhenNoEditionValue(t *testing.T) {
	subset := []dataset.HistoricalRecord{{Theme: "Sport"}, {Theme: "Sport"}}
	start, end := yearRange(subset, allColumns)
	assert.Equal(t, 2000, start)
	assert.Equal(t, 2025, end)
}

func TestNumberOfRecordsMatchesDistrictCounts(t *testing.T) {
	snap := dataset.NewSnapshot("test", allColumns, []dataset.HistoricalRecord{
		record("Culture", 10, withDistrict("75011")),
		record("Culture", 20, withDistrict("75012")),
		record("Culture", 30, withDistrict("75011")),
		record("Culture", 40, withDistrict("")),
		record("Sport", 50, withDistrict("75013")),
	})

	m := buildReport(t, NewMetricsService(MetricsOptions{}), snap, "Culture", 0).PredictedCategory.Metrics
	require.NotNil(t, m)

	assert.Equal(t, []models.PostalCodeDistribution{
		{PostalCode: "75011", Count: 2},
		{PostalCode: "75012", Count: 1},
	}, m.PostalCodeDistribution)

	sum := 0
	for _, d := range m.PostalCodeDistribution {
		sum += d.Count
	}
	assert.Equal(t, m.NumberOfRecords, sum+1)
}

func TestCategoryBreakdown(t *testing.T) {
	snap := dataset.NewSnapshot("test", allColumns, []dataset.HistoricalRecord{
		record("Cadre de vie", 1),
		record("Environnement", 1),
		record("Sport", 1),
		record("Environnement", 1),
		record("Sport", 1),
		record("Culture", 1),
		record("", 1),
	})

	got := CategoryBreakdown(snap, "environnement")
	assert.Equal(t, []models.CategoryBreakdown{
		{Category: "Environnement", Percentage: 28, Selected: true},
		{Category: "Sport", Percentage: 28, Selected: false},
		{Category: "Cadre de vie", Percentage: 14, Selected: false},
		{Category: "Culture", Percentage: 14, Selected: false},
	}, got)

	// floor division: the total is allowed to stay under 100
	total := 0
	for _, c := range got {
		total += c.Percentage
	}
	assert.Less(t, total, 100)

	for _, c := range CategoryBreakdown(snap, "") {
		assert.False(t, c.Selected)
	}
}

func TestMatchCategoryIsLiteralAndCaseInsensitive(t *testing.T) {
	snap := dataset.NewSnapshot("test", allColumns, []dataset.HistoricalRecord{
		record("Environnement", 1),
		record("ENVIRONNEMENT ET CLIMAT", 1),
		record("Propreté (quartiers)", 1),
		record("", 1),
	})

	assert.Len(t, MatchCategory(snap, "environnement"), 2)
	assert.Len(t, MatchCategory(snap, "(quartiers)"), 1)
	assert.Empty(t, MatchCategory(snap, "Env.*"))
}

func TestStatusTallies(t *testing.T) {
	subset := []dataset.HistoricalRecord{
		record("Sport", 1, withStatus("PROJET ABANDONNÉ")),
		record("Sport", 1, withStatus("Projet terminé - FIN")),
		record("Sport", 1, withStatus("abandonné puis FIN")),
		record("Sport", 1, withStatus("En cours")),
		record("Sport", 1, withStatus("")),
	}

	legacy := tallyStatuses(subset, StatusPolicyLegacy)
	assert.Equal(t, models.StatusesPieChart{Abandoned: 2, InProgress: 1, Completed: 2}, legacy)
	// overlapping statuses are counted twice under the legacy policy
	assert.Greater(t, legacy.Abandoned+legacy.Completed+legacy.InProgress, len(subset)-1)

	strict := tallyStatuses(subset, StatusPolicyStrict)
	assert.Equal(t, models.StatusesPieChart{Abandoned: 2, InProgress: 1, Completed: 1}, strict)
	assert.Equal(t, len(subset)-1, strict.Abandoned+strict.Completed+strict.InProgress)
}

func TestPriorityTallies(t *testing.T) {
	subset := []dataset.HistoricalRecord{
		{IsPriorityDistrict: "Oui"},
		{IsPriorityDistrict: "non"},
		{IsPriorityDistrict: "Oui / Non"},
		{IsPriorityDistrict: ""},
		{IsPriorityDistrict: "Peut-être"},
	}
	assert.Equal(t, models.PriorityArea{HighPriority: 2, LowPriority: 2}, tallyPriority(subset))
}

func TestAbandonedExamplesSample(t *testing.T) {
	var records []dataset.HistoricalRecord
	abandonedTitles := map[string]bool{}
	for i := 0; i < 8; i++ {
		title := fmt.Sprintf("Abandonné %d", i)
		abandonedTitles[title] = true
		records = append(records, record("Sport", float64(i), withStatus("ABANDONNÉ"), withTitle(title)))
	}
	records = append(records, record("Sport", 99, withStatus("FIN")))

	for seed := uint64(0); seed < 20; seed++ {
		got := sampleAbandoned(records, 5, NewSeededRand(seed))
		require.Len(t, got, 5)
		seen := map[string]bool{}
		for _, ex := range got {
			assert.True(t, abandonedTitles[ex.Title], ex.Title)
			assert.False(t, seen[ex.Title], "duplicate %s", ex.Title)
			seen[ex.Title] = true
		}
	}

	assert.Equal(t, sampleAbandoned(records, 5, NewSeededRand(7)), sampleAbandoned(records, 5, NewSeededRand(7)))
	assert.Len(t, sampleAbandoned(records[:2], 5, NewSeededRand(1)), 2)
	assert.Empty(t, sampleAbandoned(records[8:], 5, NewSeededRand(1)))
}

func TestExampleFallbacks(t *testing.T) {
	r := dataset.HistoricalRecord{Theme: "Sport", ProgressStatus: "ABANDONNÉ"}
	got := sampleAbandoned([]dataset.HistoricalRecord{r}, 5, NewSeededRand(1))
	require.Len(t, got, 1)
	assert.Equal(t, models.ProjectExample{Title: "Titre indisponible", Budget: 0, Year: "N/A"}, got[0])
}

func TestRankByBudgetKeepsDatasetOrderOnTies(t *testing.T) {
	records := []dataset.HistoricalRecord{
		record("Sport", 500, withTitle("first")),
		record("Sport", 900, withTitle("big")),
		record("Sport", 500, withTitle("second")),
		record("Sport", 100, withTitle("small")),
		record("Sport", 500, withTitle("third")),
	}

	most := rankByBudget(records, 3, true)
	assert.Equal(t, []string{"big", "first", "second"}, titles(most))

	least := rankByBudget(records, 3, false)
	assert.Equal(t, []string{"small", "first", "second"}, titles(least))
}

func TestBudgetTruncatesTowardZero(t *testing.T) {
	records := []dataset.HistoricalRecord{
		record("Sport", 1000.9), record("Sport", 1001.9),
	}
	b := budgetStatistics(records, 0, 5)
	assert.Equal(t, int64(1001), b.Median)
	assert.Equal(t, int64(1001), b.Average)
	assert.Equal(t, int64(1000), b.Min)
	assert.Equal(t, int64(1001), b.Max)
	assert.Equal(t, int64(1001), b.FiveMostExpensive[0].Budget)
}

func TestBuildReportWithoutDataset(t *testing.T) {
	_, err := NewMetricsService(MetricsOptions{}).BuildReport(context.Background(), models.PredictionInfo{Name: "Sport"}, "x", 1, nil, nil)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
}

func TestBuildReportRejectsBlankCategory(t *testing.T) {
	svc := NewMetricsService(MetricsOptions{})
	for _, name := range []string{"", "   "} {
		_, err := svc.BuildReport(context.Background(), models.PredictionInfo{Name: name}, "x", 1, tenBudgetSnapshot(), NewSeededRand(1))
		assert.ErrorIs(t, err, ErrMalformedInput, "%q", name)
	}
}

func TestBuildReportCountsPlaceholderStatusesAndDistricts(t *testing.T) {
	snap := dataset.NewSnapshot("test", allColumns, []dataset.HistoricalRecord{
		record("Sport", 1000, withStatus("Néant"), withDistrict("-")),
		record("Sport", 2000, withStatus("Projet terminé - FIN")),
	})

	m := buildReport(t, NewMetricsService(MetricsOptions{}), snap, "Sport", 1500).PredictedCategory.Metrics
	require.NotNil(t, m)
	assert.Equal(t, models.StatusesPieChart{InProgress: 1, Completed: 1}, m.Statuses.PieChart)
	assert.ElementsMatch(t, []models.PostalCodeDistribution{
		{PostalCode: "-", Count: 1},
		{PostalCode: "75011", Count: 1},
	}, m.PostalCodeDistribution)
}

func TestBuildReportConcurrentUse(t *testing.T) {
	svc := NewMetricsService(MetricsOptions{})
	var records []dataset.HistoricalRecord
	for i := 0; i < 200; i++ {
		status := "En cours"
		if i%3 == 0 {
			status = "ABANDONNÉ"
		}
		records = append(records, record("Environnement", float64(i*37%1000), withStatus(status), withDistrict(fmt.Sprintf("750%02d", i%20))))
	}
	snap := dataset.NewSnapshot("test", allColumns, records)
	want := buildReport(t, svc, snap, "Environnement", 400).PredictedCategory.Metrics

	var wg sync.WaitGroup
	results := make([]*models.Metrics, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info := models.PredictionInfo{Name: "Environnement"}
			resp, err := svc.BuildReport(context.Background(), info, "p", 400, snap, nil)
			if err == nil {
				results[i] = resp.PredictedCategory.Metrics
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.Budget, got.Budget)
		assert.Equal(t, want.Statuses.PieChart, got.Statuses.PieChart)
		assert.Equal(t, want.PostalCodeDistribution, got.PostalCodeDistribution)
		assert.Len(t, got.Statuses.AbandonedExamples, 5)
	}
}

func TestPercentileLinear(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, percentileLinear(sorted, 0.25))
	assert.Equal(t, 2.5, percentileLinear(sorted, 0.5))
	assert.Equal(t, 3.25, percentileLinear(sorted, 0.75))
	assert.Equal(t, 1.0, percentileLinear(sorted, 0))
	assert.Equal(t, 4.0, percentileLinear(sorted, 1))
	assert.Equal(t, 7.0, percentileLinear([]float64{7}, 0.3))
	assert.Equal(t, 0.0, percentileLinear(nil, 0.5))
}

func TestParseStatusPolicy(t *testing.T) {
	p, err := ParseStatusPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StatusPolicyLegacy, p)

	p, err = ParseStatusPolicy(" STRICT ")
	require.NoError(t, err)
	assert.Equal(t, StatusPolicyStrict, p)

	_, err = ParseStatusPolicy("partition")
	assert.Error(t, err)
}

func titles(examples []models.ProjectExample) []string {
	out := make([]string, len(examples))
	for i, e := range examples {
		out[i] = e.Title
	}
	return out
}
