// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// FetchSettings fetches the settings snapshot. Fields the service omits
// keep their value from prev, so callers pass the last known snapshot (or
// types.DefaultSettings on first fetch). A relative qr_code_url is resolved
// against the base URL.
func (c *Client) FetchSettings(ctx context.Context, prev types.Settings) (types.Settings, error) {
	var w settingsWire
	if err := c.do(ctx, "settings", http.MethodGet, "/settings", nil, &w); err != nil {
		return prev, err
	}
	return w.apply(prev, c.baseURL), nil
}

// FetchDataStatus returns the historical stats of the latest loaded year.
// Without any loaded year the defaults are returned.
func (c *Client) FetchDataStatus(ctx context.Context) (types.HistoricalStats, error) {
	var w dataStatusWire
	if err := c.do(ctx, "data-status", http.MethodGet, "/data-status", nil, &w); err != nil {
		return types.DefaultHistoricalStats(), err
	}
	return w.latest(), nil
}

// Health returns the backend health report.
func (c *Client) Health(ctx context.Context) (types.Health, error) {
	var w healthWire
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, &w); err != nil {
		return types.Health{}, err
	}
	return types.Health{
		Status:          w.Status,
		Version:         w.Version,
		DataLoaded:      w.DataLoaded,
		HistoricalYears: w.HistoricalYears,
	}, nil
}

// Settings API JSON structures. Pointers distinguish "absent" from zero.
type settingsWire struct {
	Price             *float64  `json:"price" validate:"omitempty,gte=0"`
	QRCodeURL         *string   `json:"qr_code_url"`
	ScoreOptions      []float64 `json:"score_options" validate:"omitempty,min=1"`
	ConfidenceOptions []float64 `json:"confidence_options" validate:"omitempty,min=1"`
	ContactPhone      *string   `json:"contact_phone"`
	Conference        *string   `json:"conference"`
	Year              *string   `json:"year"`
	Model             *string   `json:"model"`
	PaymentWaitTime   *int      `json:"payment_wait_time" validate:"omitempty,gte=0,lte=3600"`
}

func (w settingsWire) apply(prev types.Settings, baseURL string) types.Settings {
	s := prev.Clone()
	if w.Price != nil {
		s.Price = *w.Price
	}
	if w.QRCodeURL != nil {
		s.QRCodeURL = resolveURL(baseURL, *w.QRCodeURL)
	}
	if len(w.ScoreOptions) > 0 {
		s.ScoreOptions = append([]float64(nil), w.ScoreOptions...)
	}
	if len(w.ConfidenceOptions) > 0 {
		s.ConfidenceOptions = append([]float64(nil), w.ConfidenceOptions...)
	}
	if w.ContactPhone != nil && *w.ContactPhone != "" {
		s.ContactPhone = *w.ContactPhone
	}
	if w.Conference != nil && *w.Conference != "" {
		s.Conference = *w.Conference
	}
	if w.Year != nil && *w.Year != "" {
		s.Year = *w.Year
	}
	if w.Model != nil && *w.Model != "" {
		s.Model = *w.Model
	}
	if w.PaymentWaitTime != nil {
		s.PaymentWaitTime = time.Duration(*w.PaymentWaitTime) * time.Second
	}
	return s
}

func resolveURL(baseURL, ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, "/"):
		return baseURL + ref
	default:
		return baseURL + "/" + ref
	}
}

type dataStatusWire struct {
	HistoricalDataLoaded []string                  `json:"historical_data_loaded"`
	DataDetails          map[string]yearDetailWire `json:"data_details" validate:"dive"`
	PredictionMethod     string                    `json:"prediction_method"`
}

type yearDetailWire struct {
	TotalPapers    int `json:"total_papers" validate:"gte=0"`
	AcceptedPapers int `json:"accepted_papers" validate:"gte=0,ltefield=TotalPapers"`
}

func (w dataStatusWire) latest() types.HistoricalStats {
	out := types.DefaultHistoricalStats()
	if len(w.DataDetails) == 0 {
		return out
	}
	years := make([]string, 0, len(w.DataDetails))
	for y := range w.DataDetails {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))

	d := w.DataDetails[years[0]]
	out.Year = years[0]
	if d.TotalPapers > 0 {
		out.TotalPapers = d.TotalPapers
		out.AcceptedPapers = d.AcceptedPapers
		out.AcceptanceRate = float64(d.AcceptedPapers) / float64(d.TotalPapers)
	}
	return out
}

type healthWire struct {
	Status          string   `json:"status" validate:"required"`
	Version         string   `json:"version"`
	DataLoaded      bool     `json:"data_loaded"`
	HistoricalYears []string `json:"historical_years"`
}
