package services

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DatasetRecorder receives dataset load results. *observability.Metrics implements it.
type DatasetRecorder interface {
	ObserveDatasetLoad(rows int, err error)
}

// DatasetService exposes the reference dataset: summary, global breakdown,
// reload, and reports over an uploaded dataset.
type DatasetService struct {
	store    *dataset.Store
	metrics  *MetricsService
	recorder DatasetRecorder
}

func NewDatasetService(store *dataset.Store, metrics *MetricsService, recorder DatasetRecorder) *DatasetService {
	return &DatasetService{store: store, metrics: metrics, recorder: recorder}
}

// Load reads the dataset file into the store.
func (s *DatasetService) Load() (*dataset.Snapshot, error) {
	snap, err := s.store.Load()
	if s.recorder != nil {
		rows := 0
		if snap != nil {
			rows = snap.Len()
		}
		s.recorder.ObserveDatasetLoad(rows, err)
	}
	return snap, err
}

// Reload re-reads the dataset file. A failed reload keeps serving the previous snapshot.
func (s *DatasetService) Reload(ctx context.Context) (*models.DatasetSummary, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "dataset.Reload")
	defer span.End()

	snap, err := s.Load()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	summary := Summarize(snap)
	return &summary, nil
}

// Summary describes the current snapshot.
func (s *DatasetService) Summary() (*models.DatasetSummary, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrDatasetUnavailable
	}
	summary := Summarize(snap)
	return &summary, nil
}

// Categories global theme breakdown of the current snapshot, nothing selected.
func (s *DatasetService) Categories() ([]models.CategoryBreakdown, error) {
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrDatasetUnavailable
	}
	return CategoryBreakdown(snap, ""), nil
}

// AnalyzeUpload builds the report of category over an uploaded dataset instead
// of the reference one. The category is taken as given, with confidence 1.
func (s *DatasetService) AnalyzeUpload(ctx context.Context, r io.Reader, filename, category string, estimatedBudget int64, rng *rand.Rand) (*models.PredictResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dataset.AnalyzeUpload")
	defer span.End()

	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is empty", ErrMalformedInput)
	}

	snap, err := dataset.Read(r, filename)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("upload.name", filename), attribute.Int("upload.records", snap.Len()))

	info := models.PredictionInfo{
		Name:       category,
		Confidence: 1,
		Analyse:    fmt.Sprintf("Analyse de %s : %s", filename, category),
	}
	return s.metrics.BuildReport(ctx, info, filename, estimatedBudget, snap, rng)
}

// Summarize counts rows, distinct themes and the edition range of snap.
func Summarize(snap *dataset.Snapshot) models.DatasetSummary {
	cols := snap.Columns()
	summary := models.DatasetSummary{
		Source:          snap.Source(),
		LoadedAt:        snap.LoadedAt().Format(time.RFC3339),
		NumberOfRecords: snap.Len(),
		HasEdition:      cols.Edition,
		HasBudget:       cols.Budget,
		Themes:          []string{},
	}

	seen := make(map[string]bool)
	for _, r := range snap.All() {
		if r.Theme != "" && !seen[r.Theme] {
			seen[r.Theme] = true
			summary.Themes = append(summary.Themes, r.Theme)
		}
		if !r.HasEdition {
			continue
		}
		if summary.StartingYear == nil {
			start, end := r.Edition, r.Edition
			summary.StartingYear, summary.EndingYear = &start, &end
			continue
		}
		*summary.StartingYear = min(*summary.StartingYear, r.Edition)
		*summary.EndingYear = max(*summary.EndingYear, r.Edition)
	}
	slices.Sort(summary.Themes)
	summary.NumberOfThemes = len(summary.Themes)
	return summary
}
