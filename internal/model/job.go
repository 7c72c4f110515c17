package model

import "time"

// JobSpec is the opaque specification blob stored with a job. The price
// band is written once at creation and never recomputed.
type JobSpec struct {
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	PassengerCount *int       `json:"passenger_count,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	BudgetHint     *float64   `json:"budget_hint,omitempty"`
	PriceBand      PriceBand  `json:"price_band"`
}

// Job is a buyer's request for work.
type Job struct {
	ID          string    `json:"id"`
	BuyerID     string    `json:"buyer_id,omitempty"`
	Category    Category  `json:"category"`
	City        string    `json:"city"`
	Description string    `json:"description"`
	Spec        JobSpec   `json:"spec"`
	CreatedAt   time.Time `json:"created_at"`
}

// BandRequest rebuilds the request the job's band was generated from.
func (j *Job) BandRequest() BandRequest {
	return BandRequest{
		Category:       j.Category,
		City:           j.City,
		Description:    j.Description,
		DistanceKm:     j.Spec.DistanceKm,
		PassengerCount: j.Spec.PassengerCount,
		Timestamp:      j.Spec.Timestamp,
		BudgetHint:     j.Spec.BudgetHint,
	}
}

// Provider is a seller of services on the marketplace.
type Provider struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    float64   `json:"rating"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}
