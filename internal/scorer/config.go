// Package scorer ranks provider offers against a job's fair price band.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/config"
)

// MaxTotal returns the highest score the heuristic can award under c:
// the sum of every component's ceiling.
func MaxTotal(c config.ScoringConfig) float64 {
	return c.PriceWeight + c.RatingWeight + c.VerifiedBonus + maxETACredit(c) + c.ValueBaseline
}

func maxETACredit(c config.ScoringConfig) float64 {
	best := c.SlowETACredit
	for _, s := range c.ETASteps {
		best = math.Max(best, s.Credit)
	}
	return best
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"price_weight":       c.PriceWeight,
		"underpriced_credit": c.UnderpricedCredit,
		"rating_weight":      c.RatingWeight,
		"verified_bonus":     c.VerifiedBonus,
		"slow_eta_credit":    c.SlowETACredit,
		"value_baseline":     c.ValueBaseline,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.UnderpricedCredit > c.PriceWeight {
		errs = append(errs, "underpriced_credit must be <= price_weight")
	}
	if c.OverpriceEdgeFraction < 0 || c.OverpriceEdgeFraction > 1 {
		errs = append(errs, "overprice_edge_fraction must be between 0 and 1")
	}
	if c.OverpriceCutoffRatio <= 0 {
		errs = append(errs, "overprice_cutoff_ratio must be > 0")
	}

	// Steps must be ascending so the first match is the tightest bound.
	for i, s := range c.ETASteps {
		if s.MaxMinutes < 0 {
			errs = append(errs, fmt.Sprintf("eta_steps[%d].max_minutes must be >= 0", i))
		}
		if s.Credit < 0 {
			errs = append(errs, fmt.Sprintf("eta_steps[%d].credit must be >= 0", i))
		}
		if i > 0 && s.MaxMinutes <= c.ETASteps[i-1].MaxMinutes {
			errs = append(errs, "eta_steps must be in ascending max_minutes order")
		}
	}

	if sum := MaxTotal(c); math.Abs(sum-1) > 0.01 {
		errs = append(errs, fmt.Sprintf("component maxima should sum to 1.0, got %.2f", sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
