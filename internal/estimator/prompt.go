package estimator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/market-pricing/internal/config"
	"github.com/sells-group/market-pricing/internal/model"
)

// systemPrompt carries the calibration the model should anchor on. It is
// identical across calls so it is sent as a cached system block.
func systemPrompt(pricing config.PricingConfig) string {
	var b strings.Builder
	currency := pricing.Currency
	if currency == "" {
		currency = "local currency"
	}

	b.WriteString("You are the pricing analyst for a services marketplace where buyers post jobs ")
	b.WriteString("and providers compete with priced offers. Be consistent: similar jobs must get similar prices.\n\n")
	fmt.Fprintf(&b, "All amounts are whole units of %s.\n\n", currency)

	b.WriteString("Reference rates:\n")
	fmt.Fprintf(&b, "- transport: about %.0f per km on top of a base fare\n", pricing.PerKmRate)
	fmt.Fprintf(&b, "- tour: about %.0f per passenger\n", pricing.PerPassengerRate)

	names := make([]string, 0, len(pricing.Categories))
	for name := range pricing.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := pricing.Categories[name]
		fmt.Fprintf(&b, "- %s base range: %.0f to %.0f\n", name, r.BaseMin, r.BaseMax)
	}

	if len(pricing.CityMultipliers) > 0 {
		b.WriteString("\nCity cost tiers (1.00 is the baseline; unlisted cities are baseline):\n")
		cities := make([]string, 0, len(pricing.CityMultipliers))
		for city := range pricing.CityMultipliers {
			cities = append(cities, city)
		}
		sort.Strings(cities)
		for _, city := range cities {
			fmt.Fprintf(&b, "- %s: %.2f\n", city, pricing.CityMultipliers[city])
		}
	}

	b.WriteString("\nReply with a single JSON object and nothing else.")
	return b.String()
}

func bandPrompt(req model.BandRequest) string {
	var b strings.Builder
	b.WriteString("Estimate a fair price range for this job.\n\n")
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "City: %s\n", orUnknown(req.City))
	fmt.Fprintf(&b, "Description: %s\n", orUnknown(strings.TrimSpace(req.Description)))
	if req.DistanceKm != nil {
		fmt.Fprintf(&b, "Distance: %.1f km\n", *req.DistanceKm)
	}
	if req.PassengerCount != nil {
		fmt.Fprintf(&b, "Passengers: %d\n", *req.PassengerCount)
	}
	if req.Timestamp != nil {
		fmt.Fprintf(&b, "Requested for: %s\n", req.Timestamp.UTC().Format(time.RFC3339))
	}
	if req.BudgetHint != nil {
		fmt.Fprintf(&b, "Buyer budget hint: %.0f\n", *req.BudgetHint)
	}
	b.WriteString("\nReturn JSON: ")
	b.WriteString(`{"min_amount": number, "max_amount": number, "recommended_amount": number, "reasoning": string}`)
	b.WriteString("\nmin_amount <= recommended_amount <= max_amount.")
	return b.String()
}

func scorePrompt(in model.OfferScoreInput) string {
	var b strings.Builder
	b.WriteString("Score this offer against competing offers for the same job.\n\n")

	b.WriteString("Job:\n")
	fmt.Fprintf(&b, "- category: %s\n", in.JobCategory)
	fmt.Fprintf(&b, "- city: %s\n", orUnknown(in.JobCity))
	fmt.Fprintf(&b, "- description: %s\n", orUnknown(strings.TrimSpace(in.JobDescription)))
	if in.JobBudgetHint != nil {
		fmt.Fprintf(&b, "- buyer budget hint: %.0f\n", *in.JobBudgetHint)
	}
	fmt.Fprintf(&b, "- fair price band: %.0f to %.0f (recommended %.0f)\n",
		in.PriceBand.MinAmount, in.PriceBand.MaxAmount, in.PriceBand.RecommendedAmount)

	b.WriteString("\nOffer:\n")
	fmt.Fprintf(&b, "- price: %.2f\n", in.OfferPrice)
	fmt.Fprintf(&b, "- ETA: %d minutes\n", in.OfferETAMinutes)
	if notes := strings.TrimSpace(in.OfferNotes); notes != "" {
		fmt.Fprintf(&b, "- notes: %s\n", notes)
	}

	b.WriteString("\nProvider:\n")
	fmt.Fprintf(&b, "- rating: %.1f / 5\n", in.ProviderRating)
	fmt.Fprintf(&b, "- verified: %t\n", in.ProviderVerified)

	b.WriteString("\nWeigh, in order of importance:\n")
	b.WriteString("1. price fairness relative to the band (most important; suspiciously cheap is a risk)\n")
	b.WriteString("2. provider quality (rating and verification)\n")
	b.WriteString("3. response time competitiveness\n")
	b.WriteString("4. value proposition and fit with the job description\n")
	b.WriteString("\nReturn JSON: ")
	b.WriteString(`{"score": number between 0 and 1, "reasoning": string}`)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
