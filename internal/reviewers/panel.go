// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reviewers holds the reviewer-indexed score and confidence inputs
// for one paper.
package reviewers

import (
	"slices"
	"sync"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// Panel is the dynamic set of reviewer slots 1..Count. Removing a slot
// always drops the highest index, so indices stay contiguous.
// A Panel is safe for concurrent use.
type Panel struct {
	mu          sync.RWMutex
	count       int
	scores      map[int]float64
	confidences map[int]float64
}

// NewPanel returns a panel with count slots, clamped to
// [types.MinReviewers, types.MaxReviewers].
func NewPanel(count int) *Panel {
	return &Panel{
		count:       clamp(count),
		scores:      make(map[int]float64),
		confidences: make(map[int]float64),
	}
}

func clamp(n int) int {
	return min(max(n, types.MinReviewers), types.MaxReviewers)
}

// Count returns the current number of slots.
func (p *Panel) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.count
}

// Add appends a slot. It is a no-op at the upper bound and reports whether
// a slot was added.
func (p *Panel) Add() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count >= types.MaxReviewers {
		return false
	}
	p.count++
	return true
}

// Remove drops the highest-indexed slot with its score and confidence.
// It is a no-op at the lower bound.
func (p *Panel) Remove() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.count <= types.MinReviewers {
		return false
	}
	delete(p.scores, p.count)
	delete(p.confidences, p.count)
	p.count--
	return true
}

// SetScore stores the score for reviewer i.
func (p *Panel) SetScore(i int, v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkIndex(i); err != nil {
		return err
	}
	p.scores[i] = v
	return nil
}

// ClearScore empties the score for reviewer i.
func (p *Panel) ClearScore(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkIndex(i); err != nil {
		return err
	}
	delete(p.scores, i)
	return nil
}

// SetConfidence stores the confidence for reviewer i.
func (p *Panel) SetConfidence(i int, v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkIndex(i); err != nil {
		return err
	}
	p.confidences[i] = v
	return nil
}

// ClearConfidence empties the confidence for reviewer i.
func (p *Panel) ClearConfidence(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkIndex(i); err != nil {
		return err
	}
	delete(p.confidences, i)
	return nil
}

func (p *Panel) checkIndex(i int) error {
	if i < 1 || i > p.count {
		return apperr.Validation("reviewer %d out of range 1..%d", i, p.count)
	}
	return nil
}

// Slots returns a copy of every slot in index order.
func (p *Panel) Slots() []types.ReviewerInput {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.ReviewerInput, p.count)
	for i := range out {
		idx := i + 1
		out[i].Index = idx
		if v, ok := p.scores[idx]; ok {
			out[i].Score = &v
		}
		if v, ok := p.confidences[idx]; ok {
			out[i].Confidence = &v
		}
	}
	return out
}

// HasScore reports whether at least one slot is scored.
func (p *Panel) HasScore() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.scores) > 0
}

// Flatten returns the populated scores and the populated confidences, each
// in reviewer-index order. The two lists are filtered independently, so
// they can differ in length.
func (p *Panel) Flatten() (scores, confidences []float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	scores = []float64{}
	confidences = []float64{}
	for idx := 1; idx <= p.count; idx++ {
		if v, ok := p.scores[idx]; ok {
			scores = append(scores, v)
		}
		if v, ok := p.confidences[idx]; ok {
			confidences = append(confidences, v)
		}
	}
	return scores, confidences
}

// CheckOptions rejects any populated value that is not one of the
// configured options. Empty option lists accept everything.
func (p *Panel) CheckOptions(scoreOpts, confOpts []float64) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for idx := 1; idx <= p.count; idx++ {
		if v, ok := p.scores[idx]; ok && len(scoreOpts) > 0 && !slices.Contains(scoreOpts, v) {
			return apperr.Validation("reviewer %d score %s is not one of %v", idx, types.FormatScore(v), scoreOpts)
		}
		if v, ok := p.confidences[idx]; ok && len(confOpts) > 0 && !slices.Contains(confOpts, v) {
			return apperr.Validation("reviewer %d confidence %s is not one of %v", idx, types.FormatScore(v), confOpts)
		}
	}
	return nil
}
