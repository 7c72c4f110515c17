package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/estimator"
	"github.com/sells-group/market-pricing/internal/pricing"
	"github.com/sells-group/market-pricing/internal/scorer"
	"github.com/sells-group/market-pricing/internal/store"
)

// engine holds the band generator and scorer built from configuration.
type engine struct {
	generator *pricing.Generator
	scorer    *scorer.Scorer
}

// buildEngine validates pricing and scoring configuration and wires the
// estimator when it is enabled. heuristicOnly skips the estimator.
func buildEngine(c *config.Config, heuristicOnly bool) (*engine, error) {
	if err := pricing.ValidateConfig(c.Pricing); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(c.Scoring); err != nil {
		return nil, err
	}

	var est estimator.Estimator
	if !heuristicOnly {
		est = estimator.FromConfig(c)
	}
	zap.L().Debug("engine: configured",
		zap.Bool("estimator", est != nil),
		zap.String("model", c.Anthropic.Model),
	)

	gen := pricing.NewGenerator(pricing.NewRates(c.Pricing), est)
	return &engine{
		generator: gen,
		scorer:    scorer.NewScorer(c.Scoring, gen.Heuristic, est),
	}, nil
}

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "market.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}
