// Package pricing produces the fair price band stored on every job.
package pricing

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/estimator"
	"github.com/sells-group/market-pricing/internal/model"
)

// Generator computes price bands, preferring the estimator and falling back
// to the heuristic on any estimator failure.
type Generator struct {
	rates Rates
	est   estimator.Estimator
}

// NewGenerator creates a Generator. est may be nil, in which case every band
// comes from the heuristic and no outbound call is made.
func NewGenerator(rates Rates, est estimator.Estimator) *Generator {
	return &Generator{rates: rates, est: est}
}

// Rates returns the heuristic rates the generator falls back to.
func (g *Generator) Rates() Rates {
	return g.rates
}

// Estimator returns the configured estimator, or nil.
func (g *Generator) Estimator() estimator.Estimator {
	return g.est
}

// Generate returns a price band for req. It never fails: estimator errors
// are logged and the heuristic band is returned instead.
func (g *Generator) Generate(ctx context.Context, req model.BandRequest) model.PriceBand {
	if g.est != nil {
		band, err := g.est.EstimateBand(ctx, req)
		if err == nil && band != nil {
			return *band
		}
		zap.L().Warn("pricing: estimator unavailable, using heuristic band",
			zap.String("category", string(req.Category)),
			zap.String("city", req.City),
			zap.Error(err),
		)
	}
	return Heuristic(g.rates, req)
}

// Heuristic returns the fallback band for req without consulting the estimator.
func (g *Generator) Heuristic(req model.BandRequest) model.PriceBand {
	return Heuristic(g.rates, req)
}
