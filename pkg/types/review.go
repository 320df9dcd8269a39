// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Reviewer count bounds. A panel always has at least one slot.
const (
	MinReviewers     = 1
	MaxReviewers     = 10
	DefaultReviewers = 4
)

// Sentinel is rendered in place of any summary field when no slot is scored.
const Sentinel = "--"

// ReviewerInput is one reviewer slot addressed by a 1-based index.
// Score and Confidence are nil until the user picks a value.
type ReviewerInput struct {
	Index      int      `json:"index" yaml:"index"`
	Score      *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Scored reports whether the slot holds a score.
func (r ReviewerInput) Scored() bool { return r.Score != nil }

// StatsSummary describes the scored slots of a panel. It is derived on every
// read and has no identity of its own.
//
// A zero Count is the empty summary: every field, counts included, renders
// as Sentinel. A non-empty summary never renders Sentinel.
type StatsSummary struct {
	Count    int     `json:"count" yaml:"count"`
	Average  float64 `json:"average" yaml:"average"`
	Variance float64 `json:"variance" yaml:"variance"`
	Highest  float64 `json:"highest" yaml:"highest"`
	Lowest   float64 `json:"lowest" yaml:"lowest"`
	Positive int     `json:"positive_count" yaml:"positive_count"`
	Negative int     `json:"negative_count" yaml:"negative_count"`
	Neutral  int     `json:"neutral_count" yaml:"neutral_count"`
}

// emptySummary is the encoded form of the empty summary: every field holds
// Sentinel so no zero reads as a computed value.
type emptySummary struct {
	Count    string `json:"count" yaml:"count"`
	Average  string `json:"average" yaml:"average"`
	Variance string `json:"variance" yaml:"variance"`
	Highest  string `json:"highest" yaml:"highest"`
	Lowest   string `json:"lowest" yaml:"lowest"`
	Positive string `json:"positive_count" yaml:"positive_count"`
	Negative string `json:"negative_count" yaml:"negative_count"`
	Neutral  string `json:"neutral_count" yaml:"neutral_count"`
}

var sentinelSummary = emptySummary{
	Count: Sentinel, Average: Sentinel, Variance: Sentinel, Highest: Sentinel,
	Lowest: Sentinel, Positive: Sentinel, Negative: Sentinel, Neutral: Sentinel,
}

// plainSummary drops the custom encoding methods.
type plainSummary StatsSummary

// MarshalJSON writes Sentinel for every field of the empty summary.
func (s StatsSummary) MarshalJSON() ([]byte, error) {
	if s.IsEmpty() {
		return json.Marshal(sentinelSummary)
	}
	return json.Marshal(plainSummary(s))
}

// UnmarshalJSON accepts both encodings written by MarshalJSON.
func (s *StatsSummary) UnmarshalJSON(data []byte) error {
	var p plainSummary
	if err := json.Unmarshal(data, &p); err == nil {
		*s = StatsSummary(p)
		return nil
	}
	var e emptySummary
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("decoding stats summary: %w", err)
	}
	if e != sentinelSummary {
		return fmt.Errorf("decoding stats summary: mixed sentinel and numeric fields")
	}
	*s = StatsSummary{}
	return nil
}

// MarshalYAML mirrors MarshalJSON for exports.
func (s StatsSummary) MarshalYAML() (any, error) {
	if s.IsEmpty() {
		return sentinelSummary, nil
	}
	return plainSummary(s), nil
}

// IsEmpty reports whether the summary was computed over zero scored slots.
func (s StatsSummary) IsEmpty() bool { return s.Count == 0 }

// AverageText is the mean rounded to one decimal, or Sentinel.
func (s StatsSummary) AverageText() string {
	if s.IsEmpty() {
		return Sentinel
	}
	return strconv.FormatFloat(RoundTenth(s.Average), 'f', 1, 64)
}

// VarianceText is the population variance rounded to one decimal, or Sentinel.
func (s StatsSummary) VarianceText() string {
	if s.IsEmpty() {
		return Sentinel
	}
	return strconv.FormatFloat(RoundTenth(s.Variance), 'f', 1, 64)
}

// HighestText is the highest score as entered, or Sentinel.
func (s StatsSummary) HighestText() string {
	if s.IsEmpty() {
		return Sentinel
	}
	return FormatScore(s.Highest)
}

// LowestText is the lowest score as entered, or Sentinel.
func (s StatsSummary) LowestText() string {
	if s.IsEmpty() {
		return Sentinel
	}
	return FormatScore(s.Lowest)
}

// PositiveText, NegativeText and NeutralText render the bucket counts.
func (s StatsSummary) PositiveText() string { return s.countText(s.Positive) }
func (s StatsSummary) NegativeText() string { return s.countText(s.Negative) }
func (s StatsSummary) NeutralText() string  { return s.countText(s.Neutral) }

func (s StatsSummary) countText(n int) string {
	if s.IsEmpty() {
		return Sentinel
	}
	return strconv.Itoa(n)
}

// RoundTenth rounds v to one decimal digit, halves away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatScore prints a score with the shortest exact representation
// ("8", "5.5").
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
