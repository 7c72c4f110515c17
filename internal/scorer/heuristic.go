package scorer

import (
	"math"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
)

// Component keys reported in OfferScore.Components.
const (
	ComponentPriceFairness  = "price_fairness"
	ComponentProviderRating = "provider_rating"
	ComponentVerifiedBonus  = "verified_bonus"
	ComponentResponseTime   = "response_time"
	ComponentValueBaseline  = "value_baseline"
)

const maxRating = 5.0

// Heuristic scores an offer from five bounded components. The band in
// must already be usable; Scorer.Score takes care of degenerate bands.
func Heuristic(c config.ScoringConfig, in model.OfferScoreInput) model.OfferScore {
	price := finite(priceFairness(c, in.OfferPrice, in.PriceBand))
	rating := finite(c.RatingWeight * clamp(in.ProviderRating, 0, maxRating) / maxRating)
	var verified float64
	if in.ProviderVerified {
		verified = finite(c.VerifiedBonus)
	}
	eta := finite(responseTime(c, in.OfferETAMinutes))
	baseline := finite(c.ValueBaseline)

	// Summed in a fixed order so equal inputs give bit-identical totals.
	total := price + rating + verified + eta + baseline

	return model.OfferScore{
		Score:              clamp(total, 0, 1),
		EstimatorGenerated: false,
		Components: map[string]float64{
			ComponentPriceFairness:  price,
			ComponentProviderRating: rating,
			ComponentVerifiedBonus:  verified,
			ComponentResponseTime:   eta,
			ComponentValueBaseline:  baseline,
		},
	}
}

func priceFairness(c config.ScoringConfig, price float64, band model.PriceBand) float64 {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}

	switch {
	case price < band.MinAmount:
		// Suspiciously cheap: small fixed credit.
		return c.UnderpricedCredit
	case price > band.MaxAmount:
		// Decays from the in-band value at max, capped at the edge fraction,
		// so crossing max never raises the score.
		start := math.Min(c.PriceWeight*c.OverpriceEdgeFraction, inBand(c, band.MaxAmount, band))
		ratio := (price - band.MaxAmount) / band.MaxAmount
		return start * math.Max(0, 1-ratio/c.OverpriceCutoffRatio)
	default:
		return inBand(c, price, band)
	}
}

func inBand(c config.ScoringConfig, price float64, band model.PriceBand) float64 {
	width := band.Width()
	if width <= 0 {
		return c.PriceWeight
	}
	return c.PriceWeight * math.Max(0, 1-math.Abs(price-band.RecommendedAmount)/width)
}

func responseTime(c config.ScoringConfig, etaMinutes int) float64 {
	if etaMinutes < 0 {
		etaMinutes = 0
	}
	for _, s := range c.ETASteps {
		if etaMinutes <= s.MaxMinutes {
			return s.Credit
		}
	}
	return c.SlowETACredit
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
