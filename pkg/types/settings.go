// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Settings is the operator-configured snapshot served by the settings
// service. Consumers treat a Settings value as immutable; a refresh replaces
// the whole snapshot.
type Settings struct {
	Price             float64       `json:"price" yaml:"price"`
	QRCodeURL         string        `json:"qr_code_url" yaml:"qr_code_url"`
	ScoreOptions      []float64     `json:"score_options" yaml:"score_options"`
	ConfidenceOptions []float64     `json:"confidence_options" yaml:"confidence_options"`
	ContactPhone      string        `json:"contact_phone" yaml:"contact_phone"`
	Conference        string        `json:"conference" yaml:"conference"`
	Year              string        `json:"year" yaml:"year"`
	Model             string        `json:"model" yaml:"model"`
	PaymentWaitTime   time.Duration `json:"payment_wait_time" yaml:"payment_wait_time"`
}

// DefaultSettings returns the values used before the first successful fetch
// and for any field the settings service omits.
func DefaultSettings() Settings {
	return Settings{
		Price:             9.90,
		ScoreOptions:      []float64{1, 3, 5, 6, 8, 10},
		ConfidenceOptions: []float64{1, 2, 3, 4, 5},
		ContactPhone:      "13109973548",
		Conference:        "ICLR",
		Year:              "2024",
		Model:             "ensemble_v1",
		PaymentWaitTime:   60 * time.Second,
	}
}

// Clone returns a deep copy so callers can never alias the option slices of
// a published snapshot.
func (s Settings) Clone() Settings {
	c := s
	c.ScoreOptions = append([]float64(nil), s.ScoreOptions...)
	c.ConfidenceOptions = append([]float64(nil), s.ConfidenceOptions...)
	return c
}

// WaitSeconds is the payment wait time in whole seconds, never negative.
func (s Settings) WaitSeconds() int {
	if s.PaymentWaitTime <= 0 {
		return 0
	}
	return int(s.PaymentWaitTime / time.Second)
}

// HistoricalStats summarizes the reference year the prediction service ranks
// against.
type HistoricalStats struct {
	Year           string  `json:"year,omitempty" yaml:"year,omitempty"`
	TotalPapers    int     `json:"total_papers" yaml:"total_papers"`
	AcceptedPapers int     `json:"accepted_papers" yaml:"accepted_papers"`
	AcceptanceRate float64 `json:"acceptance_rate" yaml:"acceptance_rate"`
}

// DefaultHistoricalStats is used until the data-status service answers.
func DefaultHistoricalStats() HistoricalStats {
	return HistoricalStats{
		TotalPapers:    12000,
		AcceptedPapers: 3000,
		AcceptanceRate: 0.25,
	}
}

// Health is the backend health report.
type Health struct {
	Status          string   `json:"status" yaml:"status"`
	Version         string   `json:"version" yaml:"version"`
	DataLoaded      bool     `json:"data_loaded" yaml:"data_loaded"`
	HistoricalYears []string `json:"historical_years" yaml:"historical_years"`
}
