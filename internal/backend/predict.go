// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/pdiddy/acceptance-predictor/internal/apperr"
	"github.com/pdiddy/acceptance-predictor/pkg/types"
)

// Predict asks the prediction service for the acceptance probability.
// A non-2xx answer is a Prediction error; the cycle gets no partial result.
func (c *Client) Predict(ctx context.Context, req types.PredictionRequest) (types.Prediction, error) {
	if len(req.Scores) == 0 {
		return types.Prediction{}, apperr.Validation("prediction needs at least one score")
	}
	if req.Confidences == nil {
		req.Confidences = []float64{}
	}

	var w predictionWire
	if err := c.do(ctx, "predict", http.MethodPost, "/predict", req, &w); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return types.Prediction{}, apperr.Prediction("prediction service rejected the request", se)
		}
		return types.Prediction{}, err
	}

	return types.Prediction{
		Probability:      *w.Probability,
		AvgScore:         w.AvgScore,
		MinScore:         w.MinScore,
		RankInAll:        w.RankInAll,
		RankInAccepted:   w.RankInAccepted,
		TotalPapers:      w.TotalPapers,
		AcceptedPapers:   w.AcceptedPapers,
		PredictionMethod: w.PredictionMethod,
	}, nil
}

// Prediction API JSON structure.
type predictionWire struct {
	Probability      *float64 `json:"probability" validate:"required,gte=0,lte=1"`
	AvgScore         float64  `json:"avg_score"`
	MinScore         float64  `json:"min_score"`
	RankInAll        int      `json:"rank_in_all" validate:"gte=0"`
	RankInAccepted   int      `json:"rank_in_accepted" validate:"gte=0"`
	TotalPapers      int      `json:"total_papers" validate:"gte=0"`
	AcceptedPapers   int      `json:"accepted_papers" validate:"gte=0"`
	PredictionMethod string   `json:"prediction_method"`
	PredictionTimeMS *int     `json:"prediction_time_ms"`
}
