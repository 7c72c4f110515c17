package scorer

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/estimator"
	"github.com/sells-group/market-pricing/internal/model"
	"github.com/sells-group/market-pricing/internal/pricing"
)

// BandFunc returns a conservative band for a job when its stored band
// cannot be used.
type BandFunc func(req model.BandRequest) model.PriceBand

// Scorer computes offer scores, preferring the estimator and falling back
// to the heuristic.
type Scorer struct {
	cfg      config.ScoringConfig
	fallback BandFunc
	est      estimator.Estimator
}

// NewScorer creates a Scorer. A nil fallback uses the default pricing
// heuristic; a nil est disables the estimator path.
func NewScorer(cfg config.ScoringConfig, fallback BandFunc, est estimator.Estimator) *Scorer {
	if fallback == nil {
		rates := pricing.DefaultRates()
		fallback = func(req model.BandRequest) model.PriceBand {
			return pricing.Heuristic(rates, req)
		}
	}
	return &Scorer{cfg: cfg, fallback: fallback, est: est}
}

// Score returns the score for an offer. It never fails.
func (s *Scorer) Score(ctx context.Context, in model.OfferScoreInput) model.OfferScore {
	in.PriceBand = s.usableBand(in)

	if s.est != nil {
		res, err := s.est.EstimateScore(ctx, in)
		if err == nil && res != nil && !math.IsNaN(res.Score) {
			out := *res
			out.Score = clamp(out.Score, 0, 1)
			out.EstimatorGenerated = true
			return out
		}
		zap.L().Warn("scorer: estimator unavailable, using heuristic score",
			zap.String("category", string(in.JobCategory)),
			zap.Float64("offer_price", in.OfferPrice),
			zap.Error(err),
		)
	}

	return Heuristic(s.cfg, in)
}

// usableBand replaces a degenerate band with the fallback band for the
// job's category and city, and pulls an out-of-range recommendation
// back inside the bounds.
func (s *Scorer) usableBand(in model.OfferScoreInput) model.PriceBand {
	band := in.PriceBand
	if band.Degenerate() {
		replacement := s.fallback(model.BandRequest{Category: in.JobCategory, City: in.JobCity})
		zap.L().Debug("scorer: degenerate price band replaced",
			zap.Float64("min", band.MinAmount),
			zap.Float64("max", band.MaxAmount),
			zap.Float64("fallback_min", replacement.MinAmount),
			zap.Float64("fallback_max", replacement.MaxAmount),
		)
		band = replacement
	}

	rec := band.RecommendedAmount
	if math.IsNaN(rec) || math.IsInf(rec, 0) {
		rec = (band.MinAmount + band.MaxAmount) / 2
	}
	band.RecommendedAmount = clamp(rec, band.MinAmount, band.MaxAmount)
	return band
}
