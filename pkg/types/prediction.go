// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PredictionRequest is the body sent to the prediction service. Scores and
// Confidences hold only populated slots, in reviewer-index order.
type PredictionRequest struct {
	Scores      []float64 `json:"scores"`
	Confidences []float64 `json:"confidences"`
	Conference  string    `json:"conference"`
}

// Prediction is the result of one successful gate cycle. A new cycle
// replaces it wholesale.
type Prediction struct {
	Probability      float64 `json:"probability" yaml:"probability"`
	AvgScore         float64 `json:"avg_score" yaml:"avg_score"`
	MinScore         float64 `json:"min_score" yaml:"min_score"`
	RankInAll        int     `json:"rank_in_all" yaml:"rank_in_all"`
	RankInAccepted   int     `json:"rank_in_accepted" yaml:"rank_in_accepted"`
	TotalPapers      int     `json:"total_papers" yaml:"total_papers"`
	AcceptedPapers   int     `json:"accepted_papers" yaml:"accepted_papers"`
	PredictionMethod string  `json:"prediction_method" yaml:"prediction_method"`
}

// OrderRequest asks the order service for a new payment order.
type OrderRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// PaymentStatus is the state of a remote payment order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
	PaymentExpired PaymentStatus = "expired"
)
