package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the guardian binaries.
type Config struct {
	// BackendURL is the base URL of the alert backend API.
	BackendURL string `yaml:"backend_url"`
	// Timeout bounds every backend call.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the refresh period of the responder dashboard.
	PollInterval time.Duration `yaml:"poll_interval"`
	// UserID labels log lines; the backend identifies users by token.
	UserID string `yaml:"user_id,omitempty"`
	// Location configures how position fixes are acquired.
	Location Location `yaml:"location"`
	// HealthAddress is where the watch daemon serves gRPC health checks; empty disables it.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// MetricsAddress is where the watch daemon serves Prometheus metrics; empty disables it.
	MetricsAddress string `yaml:"metrics_addr,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`
	// DraftFile stores the responder registration draft between commands.
	DraftFile string `yaml:"draft_file,omitempty"`
	// Token is the bearer token. It is read from the environment, never from YAML.
	Token string `yaml:"-"`
}

// Location selects the position source. A fix file takes precedence over
// static coordinates.
type Location struct {
	// FixFile is written by a positioning daemon with the latest fix.
	FixFile string `yaml:"fix_file,omitempty"`
	// MaxAge is the oldest fix that may still be used.
	MaxAge time.Duration `yaml:"max_age,omitempty"`
	// AcquireTimeout bounds a single acquisition.
	AcquireTimeout time.Duration `yaml:"acquire_timeout,omitempty"`
	// Latitude and Longitude pin a fixed position, e.g. for a wall-mounted kiosk.
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
	// Accuracy is reported with static coordinates, in meters.
	Accuracy float64 `yaml:"accuracy,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "guardian-settings.yaml"

	// DefaultEnvFilename is the optional dotenv file holding the token.
	DefaultEnvFilename = ".env"

	// DefaultDraftFilename is the default responder registration draft file.
	DefaultDraftFilename = "guardian-responder-draft.yaml"

	// TokenEnv is the environment variable carrying the bearer token.
	TokenEnv = "GUARDIAN_TOKEN"

	// DefaultTimeout is the default duration for backend calls.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval is the responder dashboard refresh period.
	DefaultPollInterval = 30 * time.Second

	// DefaultFixMaxAge is the oldest acceptable position fix.
	DefaultFixMaxAge = 2 * time.Minute

	// DefaultAcquireTimeout bounds one location acquisition.
	DefaultAcquireTimeout = 10 * time.Second

	// DefaultFilePermissions is the default file permission for config and draft files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBackendURLRequired is returned when the backend URL is missing.
	errBackendURLRequired = errors.New("backend URL must be provided")
	// errUnsupportedScheme is returned for backend URLs other than http(s).
	errUnsupportedScheme = errors.New("backend URL must use http or https")
	// errPartialCoordinates is returned when only one static coordinate is set.
	errPartialCoordinates = errors.New("static location needs both latitude and longitude")
)

// Load reads configuration from the provided path, validates it and resolves
// the token from the environment or the dotenv file next to the settings.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	token, err := LoadToken(filepath.Join(filepath.Dir(path), DefaultEnvFilename))
	if err != nil {
		return nil, err
	}

	cfg.Token = token

	return &cfg, nil
}

// LoadToken returns the token from the process environment, falling back to
// the dotenv file. A missing file is not an error.
func LoadToken(envFile string) (string, error) {
	if token := os.Getenv(TokenEnv); token != "" {
		return token, nil
	}

	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("read %s: %w", envFile, err)
	}

	return values[TokenEnv], nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.BackendURL == "" {
		return errBackendURLRequired
	}

	u, err := url.ParseRequestURI(settings.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: %w", settings.BackendURL, errUnsupportedScheme)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}

	if settings.DraftFile == "" {
		settings.DraftFile = DefaultDraftFilename
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	return validateLocation(&settings.Location)
}

// validateLocation fills location defaults and rejects half-set coordinates.
func validateLocation(loc *Location) error {
	if loc.MaxAge <= 0 {
		loc.MaxAge = DefaultFixMaxAge
	}

	if loc.AcquireTimeout <= 0 {
		loc.AcquireTimeout = DefaultAcquireTimeout
	}

	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return errPartialCoordinates
	}

	return nil
}
