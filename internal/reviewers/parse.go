// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reviewers

import (
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// FromLists builds a panel from comma-separated score and confidence lists
// such as "8,6,,3". An empty entry leaves that slot unset. The panel gets
// max(len(scores), len(confidences), count) slots.
func FromLists(scores, confidences string, count int) (*Panel, error) {
	sv, err := parseList(scores, "score")
	if err != nil {
		return nil, err
	}
	cv, err := parseList(confidences, "confidence")
	if err != nil {
		return nil, err
	}

	n := max(len(sv), len(cv), count)
	if n > types.MaxReviewers {
		return nil, apperr.Validation("at most %d reviewers are supported, got %d", types.MaxReviewers, n)
	}
	p := NewPanel(n)
	for i, v := range sv {
		if v != nil {
			if err := p.SetScore(i+1, *v); err != nil {
				return nil, err
			}
		}
	}
	for i, v := range cv {
		if v != nil {
			if err := p.SetConfidence(i+1, *v); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func parseList(s, what string) ([]*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]*float64, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, apperr.Validation("reviewer %d %s %q is not a number", i+1, what, part)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperr.Validation("reviewer %d %s %q is not a finite number", i+1, what, part)
		}
		out[i] = &v
	}
	return out, nil
}
