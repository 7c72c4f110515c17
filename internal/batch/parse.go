package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/model"
)

// Input columns. offer_price and job_category are required; a row
// without band_min/band_max/band_recommended gets a generated band.
const (
	ColOfferPrice       = "offer_price"
	ColOfferETA         = "offer_eta_minutes"
	ColOfferNotes       = "offer_notes"
	ColJobCategory      = "job_category"
	ColJobCity          = "job_city"
	ColJobDescription   = "job_description"
	ColJobBudgetHint    = "job_budget_hint"
	ColDistanceKm       = "distance_km"
	ColPassengerCount   = "passenger_count"
	ColProviderRating   = "provider_rating"
	ColProviderVerified = "provider_verified"
	ColBandMin          = "band_min"
	ColBandMax          = "band_max"
	ColBandRecommended  = "band_recommended"
)

// Row is one parsed input line.
type Row struct {
	// Line is the 1-based line number in the source file, header included.
	Line    int
	Input   model.OfferScoreInput
	HasBand bool
	// Band is used to generate a price band when HasBand is false.
	Band model.BandRequest
}

// ParseTable converts a table to rows, reporting the first bad cell.
func ParseTable(t *Table) ([]Row, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{ColOfferPrice, ColJobCategory} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("batch: missing required column %q", required)
		}
	}

	rows := make([]Row, 0, len(t.Rows))
	for i, rec := range t.Rows {
		line := i + 2
		p := rowParser{rec: rec, idx: idx}

		cat, err := model.ParseCategory(p.text(ColJobCategory))
		if err != nil {
			return nil, eris.Wrapf(err, "batch: line %d", line)
		}

		r := Row{Line: line}
		r.Input = model.OfferScoreInput{
			OfferPrice:       p.number(ColOfferPrice),
			OfferETAMinutes:  p.integer(ColOfferETA),
			OfferNotes:       p.text(ColOfferNotes),
			JobCategory:      cat,
			JobCity:          p.text(ColJobCity),
			JobDescription:   p.text(ColJobDescription),
			JobBudgetHint:    p.numberPtr(ColJobBudgetHint),
			ProviderRating:   p.number(ColProviderRating),
			ProviderVerified: p.flag(ColProviderVerified),
		}

		minAmt, maxAmt, rec := p.numberPtr(ColBandMin), p.numberPtr(ColBandMax), p.numberPtr(ColBandRecommended)
		if minAmt != nil && maxAmt != nil {
			r.HasBand = true
			r.Input.PriceBand = model.PriceBand{MinAmount: *minAmt, MaxAmount: *maxAmt}
			if rec != nil {
				r.Input.PriceBand.RecommendedAmount = *rec
			} else {
				r.Input.PriceBand.RecommendedAmount = (*minAmt + *maxAmt) / 2
			}
		}

		r.Band = model.BandRequest{
			Category:       cat,
			City:           r.Input.JobCity,
			Description:    r.Input.JobDescription,
			DistanceKm:     p.numberPtr(ColDistanceKm),
			PassengerCount: p.integerPtr(ColPassengerCount),
			BudgetHint:     r.Input.JobBudgetHint,
		}

		if p.err != nil {
			return nil, eris.Wrapf(p.err, "batch: line %d", line)
		}
		if r.Input.OfferPrice <= 0 {
			return nil, eris.Errorf("batch: line %d: offer_price must be positive", line)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// rowParser reads typed cells, keeping the first conversion error.
type rowParser struct {
	rec []string
	idx map[string]int
	err error
}

func (p *rowParser) text(col string) string {
	i, ok := p.idx[col]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return p.rec[i]
}

func (p *rowParser) fail(col, val string, err error) {
	if p.err == nil {
		p.err = eris.Wrap(err, fmt.Sprintf("column %s value %q", col, val))
	}
}

func (p *rowParser) numberPtr(col string) *float64 {
	s := p.text(col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(col, s, err)
		return nil
	}
	return &v
}

func (p *rowParser) number(col string) float64 {
	if v := p.numberPtr(col); v != nil {
		return *v
	}
	return 0
}

func (p *rowParser) integerPtr(col string) *int {
	s := p.text(col)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(col, s, err)
		return nil
	}
	return &v
}

func (p *rowParser) integer(col string) int {
	if v := p.integerPtr(col); v != nil {
		return *v
	}
	return 0
}

func (p *rowParser) flag(col string) bool {
	switch strings.ToLower(p.text(col)) {
	case "", "0", "false", "no", "n":
		return false
	case "1", "true", "yes", "y":
		return true
	default:
		p.fail(col, p.text(col), eris.New("not a boolean"))
		return false
	}
}
