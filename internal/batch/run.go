package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-pricing/internal/model"
)

// BandGenerator produces a band for rows that do not carry one.
type BandGenerator interface {
	Generate(ctx context.Context, req model.BandRequest) model.PriceBand
}

// OfferScorer scores a single offer.
type OfferScorer interface {
	Score(ctx context.Context, in model.OfferScoreInput) model.OfferScore
}

// Result pairs an input row with its score.
type Result struct {
	Row   Row
	Score model.OfferScore
}

// Runner scores rows concurrently.
type Runner struct {
	Bands       BandGenerator
	Scorer      OfferScorer
	Concurrency int
}

// Run scores every row and returns results in input order. It stops early
// only when ctx is cancelled; individual scores never fail.
func (r *Runner) Run(ctx context.Context, rows []Row) ([]Result, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}

	start := time.Now()
	results := make([]Result, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := rows[i]
			if !row.HasBand {
				row.Input.PriceBand = r.Bands.Generate(gctx, row.Band)
			}
			results[i] = Result{Row: row, Score: r.Scorer.Score(gctx, row.Input)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("batch: scoring complete",
		zap.Int("rows", len(rows)),
		zap.Int("concurrency", limit),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}
