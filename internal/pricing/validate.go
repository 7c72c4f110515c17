package pricing

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
)

// ValidateConfig checks that a PricingConfig produces ordered, positive bands.
func ValidateConfig(c config.PricingConfig) error {
	var errs []string

	if _, ok := c.Categories[string(model.CategoryService)]; !ok {
		errs = append(errs, "categories.service is required (fallback for unlisted categories)")
	}
	for name, r := range c.Categories {
		if r.BaseMin < 0 || r.BaseMax < 0 {
			errs = append(errs, fmt.Sprintf("categories.%s rates must be >= 0", name))
		}
		if r.BaseMin > r.BaseMax {
			errs = append(errs, fmt.Sprintf("categories.%s base_min must be <= base_max", name))
		}
	}
	if c.PerKmRate < 0 {
		errs = append(errs, "per_km_rate must be >= 0")
	}
	if c.PerPassengerRate < 0 {
		errs = append(errs, "per_passenger_rate must be >= 0")
	}
	if c.DefaultDistanceKm <= 0 {
		errs = append(errs, "default_distance_km must be > 0")
	}
	if c.DefaultPassengers <= 0 {
		errs = append(errs, "default_passengers must be > 0")
	}
	for city, m := range c.CityMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("city_multipliers.%s must be > 0", city))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("pricing: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
