package model

import "time"

// OfferScoreInput is assembled from the job, the offer and the provider at
// the moment an offer is submitted.
type OfferScoreInput struct {
	OfferPrice       float64   `json:"offer_price"`
	OfferETAMinutes  int       `json:"offer_eta_minutes"`
	OfferNotes       string    `json:"offer_notes,omitempty"`
	JobCategory      Category  `json:"job_category"`
	JobCity          string    `json:"job_city"`
	JobDescription   string    `json:"job_description"`
	JobBudgetHint    *float64  `json:"job_budget_hint,omitempty"`
	ProviderRating   float64   `json:"provider_rating"`
	ProviderVerified bool      `json:"provider_verified"`
	PriceBand        PriceBand `json:"price_band"`
}

// OfferScore is the 0-1 ranking value stored on an offer.
type OfferScore struct {
	Score              float64            `json:"score"`
	EstimatorGenerated bool               `json:"estimator_generated"`
	Reasoning          string             `json:"reasoning,omitempty"`
	Components         map[string]float64 `json:"components,omitempty"`
}

// Offer is a provider's priced response to a job.
type Offer struct {
	ID         string     `json:"id"`
	JobID      string     `json:"job_id"`
	ProviderID string     `json:"provider_id"`
	Price      float64    `json:"price"`
	ETAMinutes int        `json:"eta_minutes"`
	Notes      string     `json:"notes,omitempty"`
	Score      OfferScore `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
}
