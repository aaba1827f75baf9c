package services

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// StatusPolicy decides how progress statuses are tallied.
type StatusPolicy string

const (
	// StatusPolicyLegacy three independent substring tallies. A record whose
	// status holds both "ABANDONNÉ" and "FIN" is counted twice.
	StatusPolicyLegacy StatusPolicy = "legacy"
	// StatusPolicyStrict each record lands in at most one bucket,
	// precedence abandoned > completed > in progress.
	StatusPolicyStrict StatusPolicy = "strict"
)

// ParseStatusPolicy accepts "legacy", "strict" or "" (legacy).
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch StatusPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusPolicyLegacy:
		return StatusPolicyLegacy, nil
	case StatusPolicyStrict:
		return StatusPolicyStrict, nil
	}
	return "", fmt.Errorf("unknown status policy %q (expected legacy or strict)", s)
}

const (
	// DefaultNoDataMessage analysis text of the degraded report.
	DefaultNoDataMessage = "Aucune donnée disponible pour cette catégorie prédite"
	// DefaultExampleCount size of the exemplar lists.
	DefaultExampleCount = 5

	tracerName = "budget-insight-api/services"

	fallbackStartingYear = 2000
	fallbackEndingYear   = 2025
	unknownTitle         = "Titre indisponible"
	unknownYear          = "N/A"
)

// MetricsOptions tunes the metrics engine.
type MetricsOptions struct {
	StatusPolicy  StatusPolicy
	NoDataMessage string
	ExampleCount  int
}

// MetricsService builds the statistical report of a predicted category.
// It holds no per-request state and is safe for concurrent use.
type MetricsService struct {
	opts MetricsOptions
}

// NewMetricsService applies defaults to opts.
func NewMetricsService(opts MetricsOptions) *MetricsService {
	if opts.StatusPolicy == "" {
		opts.StatusPolicy = StatusPolicyLegacy
	}
	if opts.NoDataMessage == "" {
		opts.NoDataMessage = DefaultNoDataMessage
	}
	if opts.ExampleCount <= 0 {
		opts.ExampleCount = DefaultExampleCount
	}
	return &MetricsService{opts: opts}
}

// Options returns the effective options.
func (s *MetricsService) Options() MetricsOptions { return s.opts }

// BuildReport computes the report of info.Name over snap.
// rng drives the abandoned exemplar sample; nil means a fresh unseeded source.
// No matching record is not an error: the report then has nil Metrics.
// A blank category is ErrMalformedInput, since it would match every record.
func (s *MetricsService) BuildReport(ctx context.Context, info models.PredictionInfo, projectTitle string, estimatedBudget int64, snap *dataset.Snapshot, rng *rand.Rand) (*models.PredictResponse, error) {
	if snap == nil {
		return nil, ErrDatasetUnavailable
	}
	if strings.TrimSpace(info.Name) == "" {
		return nil, fmt.Errorf("%w: category is empty", ErrMalformedInput)
	}
	if rng == nil {
		rng = NewRequestRand()
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "metrics.BuildReport")
	defer span.End()

	resp := &models.PredictResponse{
		PredictedCategory: models.PredictedCategory{
			Name:            info.Name,
			Confidence:      info.Confidence,
			Analyse:         info.Analyse,
			ProjectTitle:    projectTitle,
			EstimatedBudget: estimatedBudget,
		},
	}

	subset := MatchCategory(snap, info.Name)
	span.SetAttributes(
		attribute.String("category", info.Name),
		attribute.Int("dataset.records", snap.Len()),
		attribute.Int("category.records", len(subset)),
	)
	if len(subset) == 0 {
		log.Printf("⚠️ [metrics] no record for category %q, degraded report", info.Name)
		resp.PredictedCategory.Analyse = s.opts.NoDataMessage
		return resp, nil
	}

	startYear, endYear := yearRange(subset, snap.Columns())
	resp.PredictedCategory.Metrics = &models.Metrics{
		StartingYear:           startYear,
		EndingYear:             endYear,
		NumberOfRecords:        len(subset),
		BreakdownByCategory:    CategoryBreakdown(snap, info.Name),
		PostalCodeDistribution: districtDistribution(subset),
		Statuses: models.Statuses{
			PieChart:          tallyStatuses(subset, s.opts.StatusPolicy),
			AbandonedExamples: sampleAbandoned(subset, s.opts.ExampleCount, rng),
		},
		PriorityArea: tallyPriority(subset),
		Budget:       budgetStatistics(subset, estimatedBudget, s.opts.ExampleCount),
	}
	log.Printf("📊 [metrics] %d record(s) for category %q", len(subset), info.Name)
	return resp, nil
}

// NewRequestRand returns a random source owned by one request.
func NewRequestRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededRand returns a deterministic source, used by tests and the CLI --seed flag.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// yearRange min and max edition of the subset, 2000/2025 when unknown.
func yearRange(subset []dataset.HistoricalRecord, cols dataset.Columns) (int, int) {
	if !cols.Edition {
		return fallbackStartingYear, fallbackEndingYear
	}
	start, end, found := 0, 0, false
	for _, r := range subset {
		if !r.HasEdition {
			continue
		}
		if !found {
			start, end, found = r.Edition, r.Edition, true
			continue
		}
		start = min(start, r.Edition)
		end = max(end, r.Edition)
	}
	if !found {
		return fallbackStartingYear, fallbackEndingYear
	}
	return start, end
}

// toExample converts a record for display.
func toExample(r dataset.HistoricalRecord) models.ProjectExample {
	ex := models.ProjectExample{Title: r.Title, Year: unknownYear}
	if ex.Title == "" {
		ex.Title = unknownTitle
	}
	if r.HasBudget {
		ex.Budget = truncate(r.AwardedBudget)
	}
	if r.HasEdition {
		ex.Year = fmt.Sprintf("%d", r.Edition)
	}
	return ex
}
