// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats summarizes reviewer scores: mean, population variance,
// extrema, and positive/negative/neutral bucket counts.
package stats

import (
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// Thresholds are the bucket boundaries. A score strictly above
// PositiveAbove is positive, strictly below NegativeBelow is negative, and
// anything else is neutral. The boundaries do not follow the configured
// score options.
type Thresholds struct {
	PositiveAbove float64
	NegativeBelow float64
}

// DefaultThresholds matches the 1-10 review scale: >6 positive, <5 negative.
var DefaultThresholds = Thresholds{PositiveAbove: 6, NegativeBelow: 5}

// FromConfig returns thresholds from cfg, falling back to the defaults when
// both fields are unset.
func FromConfig(cfg types.StatsConfig) Thresholds {
	if cfg.PositiveAbove == 0 && cfg.NegativeBelow == 0 {
		return DefaultThresholds
	}
	return Thresholds{PositiveAbove: cfg.PositiveAbove, NegativeBelow: cfg.NegativeBelow}
}

// Classify returns which bucket a single score falls into.
func (t Thresholds) Classify(score float64) Bucket {
	switch {
	case score > t.PositiveAbove:
		return Positive
	case score < t.NegativeBelow:
		return Negative
	default:
		return Neutral
	}
}

// Bucket is a score category.
type Bucket int

const (
	Neutral Bucket = iota
	Positive
	Negative
)

// Summarize computes the summary over the scored slots. Unscored slots are
// ignored; with no scored slot the empty summary is returned before any
// arithmetic happens.
func Summarize(slots []types.ReviewerInput, t Thresholds) types.StatsSummary {
	scores := make([]float64, 0, len(slots))
	for _, s := range slots {
		if s.Scored() {
			scores = append(scores, *s.Score)
		}
	}
	return SummarizeScores(scores, t)
}

// SummarizeScores is Summarize over bare score values.
func SummarizeScores(scores []float64, t Thresholds) types.StatsSummary {
	if len(scores) == 0 {
		return types.StatsSummary{}
	}

	n := float64(len(scores))
	sum := 0.0
	hi, lo := scores[0], scores[0]
	for _, v := range scores {
		sum += v
		hi = max(hi, v)
		lo = min(lo, v)
	}
	mean := sum / n

	sq := 0.0
	for _, v := range scores {
		d := v - mean
		sq += d * d
	}

	out := types.StatsSummary{
		Count:    len(scores),
		Average:  mean,
		Variance: sq / n,
		Highest:  hi,
		Lowest:   lo,
	}
	for _, v := range scores {
		switch t.Classify(v) {
		case Positive:
			out.Positive++
		case Negative:
			out.Negative++
		default:
			out.Neutral++
		}
	}
	return out
}
