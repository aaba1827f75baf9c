package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
// Values come from an optional YAML file (CONFIG_PATH, default config.yaml)
// and environment variables, the latter taking precedence.
type Config struct {
	Port          string `yaml:"port"`
	Environment   string `yaml:"environment"`
	APIKey        string `yaml:"api_key"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`

	DatasetPath   string `yaml:"dataset_path"`
	StatusPolicy  string `yaml:"status_policy"`
	NoDataMessage string `yaml:"no_data_message"`

	ClassifierBackend        string `yaml:"classifier_backend"`
	ClassifierURL            string `yaml:"classifier_url"`
	ClassifierTimeoutSeconds int    `yaml:"classifier_timeout_seconds"`
	LabelMappingPath         string `yaml:"label_mapping_path"`
	CategoryGlossaryPath     string `yaml:"category_glossary_path"`

	AzureOpenAIEndpoint           string `yaml:"azure_openai_endpoint"`
	AzureOpenAIAPIKey             string `yaml:"azure_openai_api_key"`
	AzureOpenAIAPIVersion         string `yaml:"azure_openai_api_version"`
	AzureOpenAIChatDeploymentName string `yaml:"azure_openai_chat_deployment_name"`

	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiChatModel string `yaml:"gemini_chat_model"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	ServiceName     string `yaml:"service_name"`
	MetricsEnabled  bool   `yaml:"metrics_enabled"`

	RetryMaxAttempts          int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMillis int     `yaml:"retry_initial_backoff_ms"`
	BreakerEnabled            bool    `yaml:"breaker_enabled"`
	BreakerMinRequests        int     `yaml:"breaker_min_requests"`
	BreakerFailureRatio       float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSeconds int     `yaml:"breaker_open_timeout_seconds"`
}

// Classifier backends.
const (
	BackendRemote  = "remote"
	BackendAzure   = "azure"
	BackendGemini  = "gemini"
	BackendKeyword = "keyword"
)

func defaults() Config {
	return Config{
		Port:                          "8080",
		Environment:                   "development",
		DatasetPath:                   "data/initial-budget-participatif.csv",
		StatusPolicy:                  "legacy",
		ClassifierBackend:             BackendKeyword,
		ClassifierTimeoutSeconds:      10,
		LabelMappingPath:              "configs/label_mapping.json",
		CategoryGlossaryPath:          "configs/category_glossary.yaml",
		AzureOpenAIAPIVersion:         "2024-06-01",
		AzureOpenAIChatDeploymentName: "gpt-4o-mini",
		GeminiChatModel:               "gemini-2.0-flash",
		TracingEndpoint:               "localhost:4317",
		ServiceName:                   "budget-insight-api",
		MetricsEnabled:                true,
		RetryMaxAttempts:              2,
		RetryInitialBackoffMillis:     200,
		BreakerEnabled:                true,
		BreakerMinRequests:            5,
		BreakerFailureRatio:           0.6,
		BreakerOpenTimeoutSeconds:     30,
	}
}

// LoadConfig loads configuration from the YAML file, if any, then environment variables.
func LoadConfig() *Config {
	cfg := defaults()

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Printf("⚠️ [config] ignoring %s: %v", configPath, err)
		} else {
			log.Printf("✅ [config] loaded %s", configPath)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	cfg.DatasetPath = getEnv("DATASET_PATH", cfg.DatasetPath)
	cfg.StatusPolicy = getEnv("STATUS_POLICY", cfg.StatusPolicy)
	cfg.NoDataMessage = getEnv("NO_DATA_MESSAGE", cfg.NoDataMessage)

	cfg.ClassifierBackend = strings.ToLower(getEnv("CLASSIFIER_BACKEND", cfg.ClassifierBackend))
	cfg.ClassifierURL = getEnv("CLASSIFIER_URL", cfg.ClassifierURL)
	cfg.ClassifierTimeoutSeconds = getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", cfg.ClassifierTimeoutSeconds)
	cfg.LabelMappingPath = getEnv("LABEL_MAPPING_PATH", cfg.LabelMappingPath)
	cfg.CategoryGlossaryPath = getEnv("CATEGORY_GLOSSARY_PATH", cfg.CategoryGlossaryPath)

	cfg.AzureOpenAIEndpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.AzureOpenAIEndpoint)
	cfg.AzureOpenAIAPIKey = getEnv("AZURE_OPENAI_API_KEY", cfg.AzureOpenAIAPIKey)
	cfg.AzureOpenAIAPIVersion = getEnv("AZURE_OPENAI_API_VERSION", cfg.AzureOpenAIAPIVersion)
	cfg.AzureOpenAIChatDeploymentName = getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", cfg.AzureOpenAIChatDeploymentName)

	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiChatModel = getEnv("GEMINI_CHAT_MODEL", cfg.GeminiChatModel)

	cfg.TracingEnabled = getEnvBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = getEnv("TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)

	cfg.RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryInitialBackoffMillis = getEnvInt("RETRY_INITIAL_BACKOFF_MS", cfg.RetryInitialBackoffMillis)
	cfg.BreakerEnabled = getEnvBool("BREAKER_ENABLED", cfg.BreakerEnabled)
	cfg.BreakerMinRequests = getEnvInt("BREAKER_MIN_REQUESTS", cfg.BreakerMinRequests)
	cfg.BreakerFailureRatio = getEnvFloat("BREAKER_FAILURE_RATIO", cfg.BreakerFailureRatio)
	cfg.BreakerOpenTimeoutSeconds = getEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", cfg.BreakerOpenTimeoutSeconds)

	return &cfg
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("DATASET_PATH is required")
	}
	switch strings.ToLower(c.StatusPolicy) {
	case "legacy", "strict":
	default:
		return fmt.Errorf("STATUS_POLICY must be legacy or strict, got %q", c.StatusPolicy)
	}
	switch c.ClassifierBackend {
	case BackendRemote:
		if c.ClassifierURL == "" {
			return fmt.Errorf("CLASSIFIER_URL is required when CLASSIFIER_BACKEND=remote")
		}
	case BackendAzure:
		if c.AzureOpenAIEndpoint == "" || c.AzureOpenAIAPIKey == "" {
			return fmt.Errorf("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required when CLASSIFIER_BACKEND=azure")
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when CLASSIFIER_BACKEND=gemini")
		}
	case BackendKeyword:
	default:
		return fmt.Errorf("CLASSIFIER_BACKEND must be one of remote, azure, gemini, keyword, got %q", c.ClassifierBackend)
	}
	return nil
}

// ClassifierTimeout per call timeout of the classification backend.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.ClassifierTimeoutSeconds) * time.Second
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ [config] %s=%q is not an integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️ [config] %s=%q is not a number, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️ [config] %s=%q is not a boolean, using %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}
