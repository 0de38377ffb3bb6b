// Package config defines the configuration structure for the growthwatch
// services. Configuration is loaded once at process start (Lambda cold start
// or API boot) and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails the load, and the binaries
// exit immediately.
package config

import "time"

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Reference     ReferenceConfig
	Batch         BatchConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ReferenceConfig selects where the reference tables come from: a local file,
// a URL, or (when both are empty) the tables compiled into the binary. Path
// and URL are mutually exclusive.
type ReferenceConfig struct {
	Path         string        `envconfig:"REFERENCE_TABLES_PATH"`
	URL          string        `envconfig:"REFERENCE_TABLES_URL" validate:"omitempty,url,excluded_with=Path"`
	FetchTimeout time.Duration `envconfig:"REFERENCE_FETCH_TIMEOUT" default:"10s" validate:"gt=0"`
}

// BatchConfig bounds the batch interpretation endpoint.
type BatchConfig struct {
	MaxItems    int `envconfig:"BATCH_MAX_ITEMS" default:"100" validate:"min=1,max=500"`
	Concurrency int `envconfig:"BATCH_CONCURRENCY" default:"8" validate:"min=1,max=64"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Destination of interpretation results produced by the worker. Optional
	// for the API, which never publishes.
	ResultsQueue string `envconfig:"SQS_RESULTS_QUEUE" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"GrowthWatch"`

	// How often the API flushes aggregated request latency.
	MetricFlushInterval time.Duration `envconfig:"METRIC_FLUSH_INTERVAL" default:"1m" validate:"gt=0"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

// IsLocal reports whether the process runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}
