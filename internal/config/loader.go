package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the variable pointing at an optional YAML file.
const EnvConfigFile = "CONFERENCE_CONFIG_FILE"

// Config captures environment driven configuration values for the conference service.
type Config struct {
	HTTPPort             int           `yaml:"http_port" env:"CONFERENCE_HTTP_PORT"`
	SQLiteDSN            string        `yaml:"sqlite_dsn" env:"CONFERENCE_SQLITE_DSN"`
	TokenSecret          string        `yaml:"token_secret" env:"CONFERENCE_TOKEN_SECRET"`
	TokenIssuer          string        `yaml:"token_issuer" env:"CONFERENCE_TOKEN_ISSUER"`
	CacheSize            int           `yaml:"cache_size" env:"CONFERENCE_CACHE_SIZE"`
	TaskPollInterval     time.Duration `yaml:"task_poll_interval" env:"CONFERENCE_TASK_POLL_INTERVAL"`
	TaskMaxAttempts      int           `yaml:"task_max_attempts" env:"CONFERENCE_TASK_MAX_ATTEMPTS"`
	AnnouncementInterval time.Duration `yaml:"announcement_interval" env:"CONFERENCE_ANNOUNCEMENT_INTERVAL"`
	LogLevel             string        `yaml:"log_level" env:"CONFERENCE_LOG_LEVEL"`
	OTelEndpoint         string        `yaml:"otel_endpoint" env:"CONFERENCE_OTEL_ENDPOINT"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		HTTPPort:             8080,
		SQLiteDSN:            "conference.db",
		CacheSize:            1024,
		TaskPollInterval:     time.Second,
		TaskMaxAttempts:      5,
		AnnouncementInterval: time.Hour,
		LogLevel:             "info",
	}
}

// Load reads the file named by CONFERENCE_CONFIG_FILE, if any, and then the
// process environment.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv(EnvConfigFile)))
}

// LoadFile layers defaults, the YAML file at path (skipped when empty) and the
// environment, in that order. Missing and invalid values are reported
// together by variable name.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)
	if err := env.Parse(&cfg); err != nil {
		names := invalidVariables(err)
		if len(names) == 0 {
			return Config{}, fmt.Errorf("parse environment: %w", err)
		}
		invalid = append(invalid, names...)
	}

	cfg.TokenSecret = strings.TrimSpace(cfg.TokenSecret)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	missing := make([]string, 0, 1)
	if cfg.TokenSecret == "" {
		missing = append(missing, "CONFERENCE_TOKEN_SECRET")
	}
	invalid = append(invalid, cfg.invalidFields()...)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(dedupe(invalid), ", "))
	}
	return cfg, nil
}

func (c Config) invalidFields() []string {
	var invalid []string
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "CONFERENCE_HTTP_PORT")
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		invalid = append(invalid, "CONFERENCE_SQLITE_DSN")
	}
	if c.CacheSize <= 0 {
		invalid = append(invalid, "CONFERENCE_CACHE_SIZE")
	}
	if c.TaskPollInterval <= 0 {
		invalid = append(invalid, "CONFERENCE_TASK_POLL_INTERVAL")
	}
	if c.TaskMaxAttempts <= 0 {
		invalid = append(invalid, "CONFERENCE_TASK_MAX_ATTEMPTS")
	}
	if c.AnnouncementInterval <= 0 {
		invalid = append(invalid, "CONFERENCE_ANNOUNCEMENT_INTERVAL")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "CONFERENCE_LOG_LEVEL")
	}
	return invalid
}

// invalidVariables maps env parse failures back to the variable names.
func invalidVariables(err error) []string {
	var errs []error
	var agg env.AggregateError
	var aggPtr *env.AggregateError
	switch {
	case errors.As(err, &agg):
		errs = agg.Errors
	case errors.As(err, &aggPtr):
		errs = aggPtr.Errors
	default:
		errs = []error{err}
	}

	configType := reflect.TypeFor[Config]()
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		var field string
		var parseErr env.ParseError
		var parseErrPtr *env.ParseError
		switch {
		case errors.As(e, &parseErr):
			field = parseErr.Name
		case errors.As(e, &parseErrPtr):
			field = parseErrPtr.Name
		default:
			continue
		}
		if sf, ok := configType.FieldByName(field); ok {
			names = append(names, sf.Tag.Get("env"))
		}
	}
	return names
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
