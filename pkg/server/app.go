package server

import (
	"context"
	"fmt"
	"log"
	"time"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/azure"
	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/observability"
	"budget-insight-api/pkg/resilience"
	"budget-insight-api/pkg/services"

	"google.golang.org/genai"
)

// App is the wired application shared by cmd/server and the serverless entry.
type App struct {
	Config     *config.Config
	Store      *dataset.Store
	Classifier services.Classifier
	Metrics    *observability.Metrics
	Monitoring *services.MonitoringService
	Prediction *services.PredictionService
	Datasets   *services.DatasetService
}

// New wires every service from cfg and loads the reference dataset.
// A dataset that cannot be loaded is an error: the server refuses to start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	policy, err := services.ParseStatusPolicy(cfg.StatusPolicy)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(cfg.ServiceName)
	engine := services.NewMetricsService(services.MetricsOptions{
		StatusPolicy:  policy,
		NoDataMessage: cfg.NoDataMessage,
	})

	store := dataset.NewStore(cfg.DatasetPath)
	datasets := services.NewDatasetService(store, engine, metrics)
	if _, err := datasets.Load(); err != nil {
		return nil, fmt.Errorf("load reference dataset %s: %w", cfg.DatasetPath, err)
	}

	classifier, err := NewClassifier(ctx, cfg, resilience.NewExecutor(ResilienceConfig(cfg)))
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	log.Printf("✅ Classifier backend: %s", classifier.Name())

	return &App{
		Config:     cfg,
		Store:      store,
		Classifier: classifier,
		Metrics:    metrics,
		Monitoring: services.NewMonitoringService(services.DefaultLogCapacity),
		Prediction: services.NewPredictionService(classifier, engine, store, services.PredictionOptions{Recorder: metrics}),
		Datasets:   datasets,
	}, nil
}

// ResilienceConfig retry and breaker settings of the upstream classifier calls.
func ResilienceConfig(cfg *config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMillis) * time.Millisecond,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second,
	}
}

// NewClassifier builds the backend selected by CLASSIFIER_BACKEND.
func NewClassifier(ctx context.Context, cfg *config.Config, executor *resilience.Executor) (services.Classifier, error) {
	switch cfg.ClassifierBackend {
	case config.BackendRemote:
		mapping, err := config.LoadLabelMapping(cfg.LabelMappingPath)
		if err != nil {
			return nil, err
		}
		return services.NewRemoteClassifier(services.RemoteClassifierOptions{
			URL:      cfg.ClassifierURL,
			Timeout:  cfg.ClassifierTimeout(),
			Mapping:  mapping,
			Executor: executor,
		})

	case config.BackendAzure:
		glossary, err := config.LoadCategoryGlossary(cfg.CategoryGlossaryPath)
		if err != nil {
			return nil, err
		}
		client := azure.NewOpenAIClient(
			cfg.AzureOpenAIEndpoint,
			cfg.AzureOpenAIAPIKey,
			cfg.AzureOpenAIAPIVersion,
			cfg.AzureOpenAIChatDeploymentName,
			cfg.ClassifierTimeout(),
		)
		return services.NewAzureOpenAIClassifier(client, glossary, executor)

	case config.BackendGemini:
		glossary, err := config.LoadCategoryGlossary(cfg.CategoryGlossaryPath)
		if err != nil {
			return nil, err
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return services.NewGeminiClassifier(client, cfg.GeminiChatModel, glossary, executor)

	case config.BackendKeyword:
		glossary, err := config.LoadCategoryGlossary(cfg.CategoryGlossaryPath)
		if err != nil {
			return nil, err
		}
		return services.NewKeywordClassifier(glossary)
	}
	return nil, fmt.Errorf("unknown classifier backend %q", cfg.ClassifierBackend)
}
