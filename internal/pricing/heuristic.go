package pricing

import (
	"math"
	"strings"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
)

// Spread factors applied around the recommended amount.
const (
	transportMinSpread = 0.7
	transportMaxSpread = 1.3
	tourMinSpread      = 0.8
	tourMaxSpread      = 1.5
)

// Rates is the normalized form of config.PricingConfig used by the heuristic.
type Rates struct {
	categories        map[model.Category]config.CategoryRate
	perKm             float64
	perPassenger      float64
	defaultDistanceKm float64
	defaultPassengers int
	cities            map[string]float64
}

// NewRates builds Rates from configuration. City keys are normalized so
// lookups are accent- and case-insensitive.
func NewRates(cfg config.PricingConfig) Rates {
	r := Rates{
		categories:        make(map[model.Category]config.CategoryRate, len(cfg.Categories)),
		perKm:             cfg.PerKmRate,
		perPassenger:      cfg.PerPassengerRate,
		defaultDistanceKm: cfg.DefaultDistanceKm,
		defaultPassengers: cfg.DefaultPassengers,
		cities:            make(map[string]float64, len(cfg.CityMultipliers)),
	}
	for name, rate := range cfg.Categories {
		r.categories[model.Category(strings.ToLower(strings.TrimSpace(name)))] = rate
	}
	for city, m := range cfg.CityMultipliers {
		r.cities[NormalizeCity(city)] = m
	}
	return r
}

// DefaultRates returns Rates built from config.DefaultPricingConfig.
func DefaultRates() Rates {
	return NewRates(config.DefaultPricingConfig())
}

// CityMultiplier returns the cost-of-living multiplier for city. Unknown
// cities and non-positive configured values yield 1.0.
func (r Rates) CityMultiplier(city string) float64 {
	m, ok := r.cities[NormalizeCity(city)]
	if !ok || m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 1.0
	}
	return m
}

// categoryRate returns the base rates for c, using the service rates for
// categories without their own entry.
func (r Rates) categoryRate(c model.Category) config.CategoryRate {
	if rate, ok := r.categories[c]; ok {
		return rate
	}
	return r.categories[model.CategoryService]
}

// Heuristic computes a deterministic price band from category base rates,
// distance/passenger hints and the city multiplier. It never fails.
func Heuristic(r Rates, req model.BandRequest) model.PriceBand {
	m := r.CityMultiplier(req.City)
	base := r.categoryRate(req.Category)

	var minAmt, maxAmt, rec float64
	switch req.Category {
	case model.CategoryTransport:
		distance := r.defaultDistanceKm
		if req.DistanceKm != nil && *req.DistanceKm > 0 && !math.IsInf(*req.DistanceKm, 0) {
			distance = *req.DistanceKm
		}
		distanceCost := distance * r.perKm
		rec = (base.BaseMin + distanceCost) * m
		minAmt = (base.BaseMin + distanceCost*transportMinSpread) * m
		maxAmt = (base.BaseMin + distanceCost*transportMaxSpread) * m

	case model.CategoryTour:
		passengers := r.defaultPassengers
		if req.PassengerCount != nil && *req.PassengerCount > 0 {
			passengers = *req.PassengerCount
		}
		total := r.perPassenger * float64(passengers)
		rec = total * m
		minAmt = total * tourMinSpread * m
		maxAmt = total * tourMaxSpread * m

	default:
		// service, financing and anything without a dedicated rule.
		minAmt = base.BaseMin * m
		maxAmt = base.BaseMax * m
		rec = (base.BaseMin + base.BaseMax) / 2 * m
	}

	return model.PriceBand{
		MinAmount:          math.Round(minAmt),
		MaxAmount:          math.Round(maxAmt),
		RecommendedAmount:  math.Round(rec),
		EstimatorGenerated: false,
	}
}
