package model

import (
	"math"
	"time"
)

// PriceBand is the fair price range the platform estimates for a job.
// It is computed once when the job is created and embedded in the job spec.
type PriceBand struct {
	MinAmount          float64 `json:"min_amount"`
	MaxAmount          float64 `json:"max_amount"`
	RecommendedAmount  float64 `json:"recommended_amount"`
	EstimatorGenerated bool    `json:"estimator_generated"`
	Reasoning          string  `json:"reasoning,omitempty"`
}

// Width returns MaxAmount - MinAmount.
func (b PriceBand) Width() float64 {
	return b.MaxAmount - b.MinAmount
}

// Degenerate reports whether the band cannot be used as a scoring reference:
// zero or inverted width, non-positive bounds, or non-finite values.
func (b PriceBand) Degenerate() bool {
	for _, v := range []float64{b.MinAmount, b.MaxAmount, b.RecommendedAmount} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return b.MinAmount <= 0 || b.MaxAmount <= b.MinAmount
}

// Ordered reports whether Min <= Recommended <= Max.
func (b PriceBand) Ordered() bool {
	return b.MinAmount <= b.RecommendedAmount && b.RecommendedAmount <= b.MaxAmount
}

// BandRequest carries the job attributes a price band is generated from.
type BandRequest struct {
	Category       Category   `json:"category"`
	City           string     `json:"city"`
	Description    string     `json:"description"`
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	PassengerCount *int       `json:"passenger_count,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	BudgetHint     *float64   `json:"budget_hint,omitempty"`
}
