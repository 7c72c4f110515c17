// Package market ties together persistence, price band generation and
// offer scoring for the marketplace workflow: providers register, buyers
// post jobs, providers submit offers, buyers review ranked offers.
package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/estimator"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/pricing"
	"github.com/sells-group/market-pricing/internal/scorer"
	"github.com/sells-group/market-pricing/internal/store"
)

const maxDescriptionLen = 4000

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ProviderRequest registers a provider.
type ProviderRequest struct {
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Verified bool    `json:"verified"`
}

// JobRequest posts a new job.
type JobRequest struct {
	BuyerID        string     `json:"buyer_id"`
	Category       string     `json:"category"`
	City           string     `json:"city"`
	Description    string     `json:"description"`
	DistanceKm     *float64   `json:"distance_km,omitempty"`
	PassengerCount *int       `json:"passenger_count,omitempty"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	BudgetHint     *float64   `json:"budget_hint,omitempty"`
}

// OfferRequest submits a provider's offer on a job.
type OfferRequest struct {
	JobID      string  `json:"job_id"`
	ProviderID string  `json:"provider_id"`
	Price      float64 `json:"price"`
	ETAMinutes int     `json:"eta_minutes"`
	Notes      string  `json:"notes,omitempty"`
}

// Service implements the marketplace operations.
type Service struct {
	store     store.Store
	generator *pricing.Generator
	scorer    *scorer.Scorer
}

// NewService creates a Service.
func NewService(st store.Store, gen *pricing.Generator, sc *scorer.Scorer) *Service {
	return &Service{store: st, generator: gen, scorer: sc}
}

// EstimatorStatus reports whether the estimator is disabled, or the state
// of its circuit breaker.
func (s *Service) EstimatorStatus() string {
	return estimator.Status(s.generator.Estimator())
}

// RegisterProvider validates and persists a provider.
func (s *Service) RegisterProvider(ctx context.Context, req ProviderRequest) (*model.Provider, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if math.IsNaN(req.Rating) || req.Rating < 0 || req.Rating > 5 {
		return nil, invalid("rating", "must be between 0 and 5")
	}

	p, err := s.store.CreateProvider(ctx, model.Provider{Name: name, Rating: req.Rating, Verified: req.Verified})
	if err != nil {
		return nil, eris.Wrap(err, "market: register provider")
	}
	return p, nil
}

// BandRequest validates a job request and converts it to the input of
// price band generation.
func (r JobRequest) BandRequest() (model.BandRequest, error) {
	cat, err := model.ParseCategory(r.Category)
	if err != nil {
		return model.BandRequest{}, invalid("category", "must be one of transport, tour, service, financing")
	}
	city := strings.TrimSpace(r.City)
	if city == "" {
		return model.BandRequest{}, invalid("city", "is required")
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return model.BandRequest{}, invalid("description", "is required")
	}
	if len(desc) > maxDescriptionLen {
		return model.BandRequest{}, invalid("description", "must be at most %d bytes", maxDescriptionLen)
	}
	if r.DistanceKm != nil && !finiteNonNegative(*r.DistanceKm) {
		return model.BandRequest{}, invalid("distance_km", "must be a non-negative number")
	}
	if r.PassengerCount != nil && *r.PassengerCount < 0 {
		return model.BandRequest{}, invalid("passenger_count", "must be >= 0")
	}
	if r.BudgetHint != nil && !finiteNonNegative(*r.BudgetHint) {
		return model.BandRequest{}, invalid("budget_hint", "must be a non-negative number")
	}

	return model.BandRequest{
		Category:       cat,
		City:           city,
		Description:    desc,
		DistanceKm:     r.DistanceKm,
		PassengerCount: r.PassengerCount,
		Timestamp:      r.Timestamp,
		BudgetHint:     r.BudgetHint,
	}, nil
}

// PriceBand computes a band without persisting anything.
func (s *Service) PriceBand(ctx context.Context, req JobRequest) (model.PriceBand, error) {
	br, err := req.BandRequest()
	if err != nil {
		return model.PriceBand{}, err
	}
	return s.generator.Generate(ctx, br), nil
}

// CreateJob validates the request, generates the job's price band once
// and stores it in the job spec.
func (s *Service) CreateJob(ctx context.Context, req JobRequest) (*model.Job, error) {
	br, err := req.BandRequest()
	if err != nil {
		return nil, err
	}

	band := s.generator.Generate(ctx, br)
	job, err := s.store.CreateJob(ctx, model.Job{
		BuyerID:     strings.TrimSpace(req.BuyerID),
		Category:    br.Category,
		City:        br.City,
		Description: br.Description,
		Spec: model.JobSpec{
			DistanceKm:     br.DistanceKm,
			PassengerCount: br.PassengerCount,
			Timestamp:      br.Timestamp,
			BudgetHint:     br.BudgetHint,
			PriceBand:      band,
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "market: create job")
	}

	zap.L().Info("market: job created",
		zap.String("job_id", job.ID),
		zap.String("category", string(job.Category)),
		zap.Float64("band_min", band.MinAmount),
		zap.Float64("band_max", band.MaxAmount),
		zap.Bool("estimator_generated", band.EstimatorGenerated),
	)
	return job, nil
}

// GetJob returns a stored job.
func (s *Service) GetJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "market: get job")
	}
	return job, nil
}

// SubmitOffer scores an offer against the job's stored band and persists
// it with its score.
func (s *Service) SubmitOffer(ctx context.Context, req OfferRequest) (*model.Offer, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return nil, invalid("job_id", "is required")
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		return nil, invalid("provider_id", "is required")
	}
	if !finiteNonNegative(req.Price) || req.Price == 0 {
		return nil, invalid("price", "must be a positive number")
	}
	if req.ETAMinutes < 0 {
		return nil, invalid("eta_minutes", "must be >= 0")
	}

	job, err := s.store.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, eris.Wrap(err, "market: load job for offer")
	}
	provider, err := s.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		return nil, eris.Wrap(err, "market: load provider for offer")
	}

	notes := strings.TrimSpace(req.Notes)
	score := s.scorer.Score(ctx, ScoreInput(job, provider, req.Price, req.ETAMinutes, notes))

	offer, err := s.store.CreateOffer(ctx, model.Offer{
		JobID:      job.ID,
		ProviderID: provider.ID,
		Price:      req.Price,
		ETAMinutes: req.ETAMinutes,
		Notes:      notes,
		Score:      score,
	})
	if err != nil {
		return nil, eris.Wrap(err, "market: submit offer")
	}

	zap.L().Info("market: offer scored",
		zap.String("job_id", job.ID),
		zap.String("offer_id", offer.ID),
		zap.Float64("score", score.Score),
		zap.Bool("estimator_generated", score.EstimatorGenerated),
	)
	return offer, nil
}

// RankedOffers returns a job's offers, best first.
func (s *Service) RankedOffers(ctx context.Context, jobID string) ([]model.Offer, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, eris.Wrap(err, "market: ranked offers")
	}
	offers, err := s.store.ListOffers(ctx, jobID)
	if err != nil {
		return nil, eris.Wrap(err, "market: ranked offers")
	}
	return scorer.Rank(offers), nil
}

// ScoreOffer scores an ad-hoc input without persisting it.
func (s *Service) ScoreOffer(ctx context.Context, in model.OfferScoreInput) (model.OfferScore, error) {
	if !finiteNonNegative(in.OfferPrice) || in.OfferPrice == 0 {
		return model.OfferScore{}, invalid("offer_price", "must be a positive number")
	}
	if in.OfferETAMinutes < 0 {
		return model.OfferScore{}, invalid("offer_eta_minutes", "must be >= 0")
	}
	cat, err := model.ParseCategory(string(in.JobCategory))
	if err != nil {
		return model.OfferScore{}, invalid("job_category", "must be one of transport, tour, service, financing")
	}
	in.JobCategory = cat
	return s.scorer.Score(ctx, in), nil
}

// ScoreInput assembles the scoring input for an offer from the stored job
// and provider.
func ScoreInput(job *model.Job, provider *model.Provider, price float64, eta int, notes string) model.OfferScoreInput {
	return model.OfferScoreInput{
		OfferPrice:       price,
		OfferETAMinutes:  eta,
		OfferNotes:       notes,
		JobCategory:      job.Category,
		JobCity:          job.City,
		JobDescription:   job.Description,
		JobBudgetHint:    job.Spec.BudgetHint,
		ProviderRating:   provider.Rating,
		ProviderVerified: provider.Verified,
		PriceBand:        job.Spec.PriceBand,
	}
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
