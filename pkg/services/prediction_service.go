package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/models"
	"budget-insight-api/pkg/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PredictionRecorder receives the outcome of every prediction.
// *observability.Metrics implements it.
type PredictionRecorder interface {
	ObservePrediction(outcome, category string, matched int)
	ObserveClassifier(backend string, d time.Duration, err error)
}

// PredictionOptions optional collaborators of a PredictionService.
type PredictionOptions struct {
	// RandSource returns the random source of one request. Defaults to NewRequestRand.
	RandSource func() *rand.Rand
	Recorder   PredictionRecorder
}

// PredictionService classifies a project title and builds the report of the
// predicted category against the current reference dataset.
type PredictionService struct {
	classifier Classifier
	metrics    *MetricsService
	store      *dataset.Store
	randSource func() *rand.Rand
	recorder   PredictionRecorder
}

func NewPredictionService(classifier Classifier, metrics *MetricsService, store *dataset.Store, opts PredictionOptions) *PredictionService {
	if opts.RandSource == nil {
		opts.RandSource = NewRequestRand
	}
	return &PredictionService{
		classifier: classifier,
		metrics:    metrics,
		store:      store,
		randSource: opts.RandSource,
		recorder:   opts.Recorder,
	}
}

// ClassifierName name of the configured backend.
func (s *PredictionService) ClassifierName() string { return s.classifier.Name() }

// Predict runs classifier then metrics engine. Errors wrap ErrMalformedInput,
// ErrClassifierUnavailable or ErrDatasetUnavailable.
func (s *PredictionService) Predict(ctx context.Context, projectTitle string, estimatedBudget int64) (*models.PredictResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "prediction.Predict")
	defer span.End()

	resp, err := s.predict(ctx, projectTitle, estimatedBudget)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.observe(observability.OutcomeError, "", 0)
		return nil, err
	}

	pc := resp.PredictedCategory
	span.SetAttributes(attribute.String("category", pc.Name), attribute.Float64("confidence", pc.Confidence))
	if pc.Metrics == nil {
		s.observe(observability.OutcomeNoMatch, pc.Name, 0)
	} else {
		s.observe(observability.OutcomeMatched, pc.Name, pc.Metrics.NumberOfRecords)
	}
	return resp, nil
}

func (s *PredictionService) predict(ctx context.Context, projectTitle string, estimatedBudget int64) (*models.PredictResponse, error) {
	title := strings.TrimSpace(projectTitle)
	if title == "" {
		return nil, fmt.Errorf("%w: projectTitle is empty", ErrMalformedInput)
	}

	// Checked before the classifier so a missing dataset never costs an upstream call.
	snap := s.store.Snapshot()
	if snap == nil {
		return nil, ErrDatasetUnavailable
	}

	prediction, err := s.classify(ctx, title)
	if err != nil {
		return nil, err
	}

	return s.metrics.BuildReport(ctx, prediction.Info(), projectTitle, estimatedBudget, snap, s.randSource())
}

func (s *PredictionService) classify(ctx context.Context, title string) (*Prediction, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "classifier.Classify")
	defer span.End()
	span.SetAttributes(attribute.String("classifier.backend", s.classifier.Name()))

	start := time.Now()
	prediction, err := s.classifier.Classify(ctx, title)
	if err == nil && prediction == nil {
		err = errors.New("empty prediction")
	}
	if err != nil && !errors.Is(err, ErrClassifierUnavailable) {
		err = classifierError(s.classifier.Name(), err)
	}
	if s.recorder != nil {
		s.recorder.ObserveClassifier(s.classifier.Name(), time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		log.Printf("❌ [prediction] %s classifier failed: %v", s.classifier.Name(), err)
		return nil, err
	}

	span.SetAttributes(attribute.String("category", prediction.Label))
	log.Printf("🔍 [prediction] %q -> %s (%.2f, %s)", title, prediction.Label, prediction.Confidence, prediction.Backend)
	return prediction, nil
}

func (s *PredictionService) observe(outcome, category string, matched int) {
	if s.recorder != nil {
		s.recorder.ObservePrediction(outcome, category, matched)
	}
}
