package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings for the backend client.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is sent with every request (e.g. "acceptance-predictor/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BackendConfig locates the remote collaborators (settings, orders, payment
// status, prediction).
type BackendConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the service root, e.g. "http://127.0.0.1:8000".
	BaseURL string `json:"base_url" yaml:"base_url" validate:"required,url"`

	// MaxRetries bounds retries on 429 and 5xx gateway responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`

	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" validate:"min=0"`

	// APIToken is sent as a bearer token when set. Loaded from .secrets/.
	APIToken string `json:"-" yaml:"-"`
}

// GateVariant selects the payment gating strategy.
type GateVariant string

const (
	GateCountdown GateVariant = "countdown"
	GatePoll      GateVariant = "poll"
)

// GateConfig holds settings for the payment gate.
type GateConfig struct {
	// Variant is countdown or poll.
	Variant GateVariant `json:"variant" yaml:"variant" validate:"required,oneof=countdown poll"`

	// PollInterval is the wait before each payment-status check (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"gt=0"`

	// PollAttempts is the poll ceiling (default 30).
	PollAttempts int `json:"poll_attempts" yaml:"poll_attempts" validate:"min=1,max=600"`

	// Tick is the countdown granularity (default 1s).
	Tick time.Duration `json:"tick" yaml:"tick" validate:"gt=0"`

	// RequireElapsed blocks the countdown confirm until the timer reaches zero.
	RequireElapsed bool `json:"require_elapsed" yaml:"require_elapsed"`
}

// SettingsConfig controls the settings provider refresh loop.
type SettingsConfig struct {
	// RefreshInterval is how often the settings snapshot is re-fetched (default 30s).
	RefreshInterval time.Duration `json:"refresh_interval" yaml:"refresh_interval" validate:"gt=0"`

	// DataStatusInterval is how often historical stats are re-fetched (default 60s).
	DataStatusInterval time.Duration `json:"data_status_interval" yaml:"data_status_interval" validate:"gt=0"`
}

// StatsConfig holds the bucket thresholds for the statistics engine.
type StatsConfig struct {
	// PositiveAbove: scores strictly above count as positive (default 6).
	PositiveAbove float64 `json:"positive_above" yaml:"positive_above"`

	// NegativeBelow: scores strictly below count as negative (default 5).
	NegativeBelow float64 `json:"negative_below" yaml:"negative_below" validate:"ltefield=PositiveAbove"`
}

// HistoryConfig holds settings for the local prediction history.
type HistoryConfig struct {
	// Dir contains history.db and exports.
	Dir string `json:"dir" yaml:"dir" validate:"required_if=Enabled true"`

	// Enabled turns recording on.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
}

// Config groups every section of the client configuration.
type Config struct {
	Backend  BackendConfig  `json:"backend" yaml:"backend"`
	Gate     GateConfig     `json:"gate" yaml:"gate"`
	Settings SettingsConfig `json:"settings" yaml:"settings"`
	Stats    StatsConfig    `json:"stats" yaml:"stats"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

var configValidator = validator.New()

// Validate checks the struct tags of every section and reports all
// problems at once.
func (c Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validating config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}
