package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const localEnv = "local"

// ConfigError tells the operator which stage of loading failed.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "[" + string(e.Type) + "] " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// loaderDeps isolates the process environment and the .env file in tests.
type loaderDeps struct {
	lookupEnv  func(key string) (string, bool)
	loadDotenv func(filenames ...string) error
}

func defaultDeps() loaderDeps {
	return loaderDeps{lookupEnv: os.LookupEnv, loadDotenv: godotenv.Load}
}

// LoadConfig reads the configuration from the environment, with a .env file
// in the working directory filling in anything the environment lacks. It
// also pins time.Local to UTC so visit dates never shift with the host zone.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(defaultDeps())
}

func loadConfigWithDeps(deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// A missing .env is normal outside development. godotenv never
	// overrides variables that are already set.
	_ = deps.loadDotenv()

	if env, _ := deps.lookupEnv("APP_ENV"); env == "" {
		return nil, &ConfigError{Type: ErrMissingEnv, Message: "APP_ENV must be set"}
	}

	cfg := &Config{Build: NewBuildInfo()}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: describeValidation(err), Err: err}
	}
	return cfg, nil
}

// describeValidation lists the offending fields, e.g.
// "invalid configuration: Batch.MaxItems (max), AWS.ResultsQueue (url)".
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "configuration validation failed"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.TrimPrefix(fe.Namespace(), "Config.")
		fields = append(fields, fmt.Sprintf("%s (%s)", name, fe.Tag()))
	}
	return "invalid configuration: " + strings.Join(fields, ", ")
}
