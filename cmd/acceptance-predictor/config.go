// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/acceptance-predictor/internal/secrets"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

const (
	defaultUserAgent = "acceptance-predictor/0.1"
	defaultBaseURL   = "http://127.0.0.1:8000"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.requests_per_second", 5.0)

	v.SetDefault("gate.variant", string(types.GatePoll))
	v.SetDefault("gate.poll_interval", 2*time.Second)
	v.SetDefault("gate.poll_attempts", 30)
	v.SetDefault("gate.tick", time.Second)
	v.SetDefault("gate.require_elapsed", true)

	v.SetDefault("settings.refresh_interval", 30*time.Second)
	v.SetDefault("settings.data_status_interval", 60*time.Second)

	v.SetDefault("stats.positive_above", 6.0)
	v.SetDefault("stats.negative_below", 5.0)

	v.SetDefault("history.dir", ".acceptance-predictor")
	v.SetDefault("history.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// buildConfig reads every section from v, overlays the credentials and
// validates the result. backend.base_url falls back to the
// predictor-base-url secret and then to defaultBaseURL.
func buildConfig(v *viper.Viper, creds secrets.Credentials) (types.Config, error) {
	c := types.Config{
		Backend: types.BackendConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("backend.timeout"),
				UserAgent: defaultUserAgent,
			},
			BaseURL:           v.GetString("backend.base_url"),
			MaxRetries:        v.GetInt("backend.max_retries"),
			RequestsPerSecond: v.GetFloat64("backend.requests_per_second"),
			APIToken:          creds.APIToken,
		},
		Gate: types.GateConfig{
			Variant:        types.GateVariant(v.GetString("gate.variant")),
			PollInterval:   v.GetDuration("gate.poll_interval"),
			PollAttempts:   v.GetInt("gate.poll_attempts"),
			Tick:           v.GetDuration("gate.tick"),
			RequireElapsed: v.GetBool("gate.require_elapsed"),
		},
		Settings: types.SettingsConfig{
			RefreshInterval:    v.GetDuration("settings.refresh_interval"),
			DataStatusInterval: v.GetDuration("settings.data_status_interval"),
		},
		Stats: types.StatsConfig{
			PositiveAbove: v.GetFloat64("stats.positive_above"),
			NegativeBelow: v.GetFloat64("stats.negative_below"),
		},
		History: types.HistoryConfig{
			Dir:     v.GetString("history.dir"),
			Enabled: v.GetBool("history.enabled"),
		},
		Log: types.LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = creds.BaseURL
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL
	}

	if err := c.Validate(); err != nil {
		return types.Config{}, err
	}
	return c, nil
}
