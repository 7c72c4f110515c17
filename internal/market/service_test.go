package market

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/pricing"
	"github.com/sells-group/market-pricing/internal/scorer"
	"github.com/sells-group/market-pricing/internal/store"
)

type countingEstimator struct {
	bandCalls  int
	scoreCalls int
}

func (c *countingEstimator) EstimateBand(_ context.Context, _ model.BandRequest) (*model.PriceBand, error) {
	c.bandCalls++
	return &model.PriceBand{MinAmount: 1000, MaxAmount: 3000, RecommendedAmount: 2000, EstimatorGenerated: true}, nil
}

func (c *countingEstimator) EstimateScore(_ context.Context, _ model.OfferScoreInput) (*model.OfferScore, error) {
	c.scoreCalls++
	return nil, errors.New("unavailable")
}

func newTestService(t *testing.T, est *countingEstimator) *Service {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	rates := pricing.DefaultRates()
	var gen *pricing.Generator
	var sc *scorer.Scorer
	if est != nil {
		gen = pricing.NewGenerator(rates, est)
		sc = scorer.NewScorer(config.DefaultScoringConfig(), gen.Heuristic, est)
	} else {
		gen = pricing.NewGenerator(rates, nil)
		sc = scorer.NewScorer(config.DefaultScoringConfig(), gen.Heuristic, nil)
	}
	return NewService(st, gen, sc)
}

func ptrF(v float64) *float64 { return &v }

func TestRegisterProvider_Validation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   ProviderRequest
		field string
	}{
		{"blank name", ProviderRequest{Name: "  ", Rating: 3}, "name"},
		{"rating too high", ProviderRequest{Name: "x", Rating: 5.5}, "rating"},
		{"negative rating", ProviderRequest{Name: "x", Rating: -1}, "rating"},
		{"nan rating", ProviderRequest{Name: "x", Rating: math.NaN()}, "rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterProvider(ctx, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	p, err := svc.RegisterProvider(ctx, ProviderRequest{Name: " Aegean Tours ", Rating: 4.2})
	require.NoError(t, err)
	assert.Equal(t, "Aegean Tours", p.Name)
}

func TestCreateJob_HeuristicBand(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, JobRequest{
		Category:    "Transport",
		City:        "Eskisehir",
		Description: "intercity transfer",
		DistanceKm:  ptrF(240),
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTransport, job.Category)

	band := job.Spec.PriceBand
	assert.Equal(t, 1394.0, band.MinAmount)
	assert.Equal(t, 1970.0, band.RecommendedAmount)
	assert.Equal(t, 2546.0, band.MaxAmount)
	assert.False(t, band.EstimatorGenerated)

	stored, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, band, stored.Spec.PriceBand)
}

func TestCreateJob_Validation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   JobRequest
		field string
	}{
		{"bad category", JobRequest{Category: "cleaning", City: "x", Description: "y"}, "category"},
		{"no city", JobRequest{Category: "tour", Description: "y"}, "city"},
		{"no description", JobRequest{Category: "tour", City: "x"}, "description"},
		{"negative distance", JobRequest{Category: "transport", City: "x", Description: "y", DistanceKm: ptrF(-1)}, "distance_km"},
		{"infinite budget", JobRequest{Category: "service", City: "x", Description: "y", BudgetHint: ptrF(math.Inf(1))}, "budget_hint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateJob(ctx, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmitOffer_UsesStoredBand(t *testing.T) {
	est := &countingEstimator{}
	svc := newTestService(t, est)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, JobRequest{Category: "service", City: "Ankara", Description: "accounting"})
	require.NoError(t, err)
	assert.True(t, job.Spec.PriceBand.EstimatorGenerated)

	p, err := svc.RegisterProvider(ctx, ProviderRequest{Name: "p", Rating: 5, Verified: true})
	require.NoError(t, err)

	offer, err := svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: p.ID, Price: 2000, ETAMinutes: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, est.bandCalls, "band is generated once at job creation")
	assert.Equal(t, 1, est.scoreCalls)
	assert.False(t, offer.Score.EstimatorGenerated)
	assert.InDelta(t, 1.0, offer.Score.Score, 1e-9)
}

func TestSubmitOffer_Errors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	p, err := svc.RegisterProvider(ctx, ProviderRequest{Name: "p", Rating: 3})
	require.NoError(t, err)
	job, err := svc.CreateJob(ctx, JobRequest{Category: "tour", City: "Bodrum", Description: "boat"})
	require.NoError(t, err)

	_, err = svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: p.ID, Price: 0})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: p.ID, Price: 10, ETAMinutes: -1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "eta_minutes", verr.Field)

	_, err = svc.SubmitOffer(ctx, OfferRequest{JobID: "missing", ProviderID: p.ID, Price: 10})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: "missing", Price: 10})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRankedOffers(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, JobRequest{Category: "service", City: "Istanbul", Description: "movers"})
	require.NoError(t, err)
	good, err := svc.RegisterProvider(ctx, ProviderRequest{Name: "good", Rating: 5, Verified: true})
	require.NoError(t, err)
	weak, err := svc.RegisterProvider(ctx, ProviderRequest{Name: "weak", Rating: 2})
	require.NoError(t, err)

	slow, err := svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: weak.ID, Price: 900, ETAMinutes: 120})
	require.NoError(t, err)
	best, err := svc.SubmitOffer(ctx, OfferRequest{JobID: job.ID, ProviderID: good.ID, Price: 300, ETAMinutes: 10})
	require.NoError(t, err)

	ranked, err := svc.RankedOffers(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, best.ID, ranked[0].ID)
	assert.Equal(t, slow.ID, ranked[1].ID)

	_, err = svc.RankedOffers(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPriceBandAndScoreOffer(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	band, err := svc.PriceBand(ctx, JobRequest{Category: "tour", City: "Cappadocia", Description: "balloon"})
	require.NoError(t, err)
	assert.Equal(t, 330.0, band.RecommendedAmount)

	score, err := svc.ScoreOffer(ctx, model.OfferScoreInput{
		OfferPrice:       band.RecommendedAmount,
		OfferETAMinutes:  10,
		JobCategory:      "TOUR",
		ProviderRating:   5,
		ProviderVerified: true,
		PriceBand:        band,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score.Score, 1e-9)

	_, err = svc.ScoreOffer(ctx, model.OfferScoreInput{OfferPrice: -5, JobCategory: "tour"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEstimatorStatus(t *testing.T) {
	assert.Equal(t, "disabled", newTestService(t, nil).EstimatorStatus())
	assert.Equal(t, "enabled", newTestService(t, &countingEstimator{}).EstimatorStatus())
}
