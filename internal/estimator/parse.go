package estimator

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-pricing/internal/model"
)

// ExtractJSON returns the first balanced {...} span in text. Models often
// wrap JSON in prose or code fences; braces inside string literals are
// ignored.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", eris.Wrap(ErrMalformedResponse, "no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", eris.Wrap(ErrMalformedResponse, "unbalanced JSON object in reply")
}

type bandReply struct {
	MinAmount         *float64 `json:"min_amount"`
	MaxAmount         *float64 `json:"max_amount"`
	RecommendedAmount *float64 `json:"recommended_amount"`
	Reasoning         string   `json:"reasoning"`

	// camelCase variants the model sometimes echoes back.
	MinAmountAlt         *float64 `json:"minAmount"`
	MaxAmountAlt         *float64 `json:"maxAmount"`
	RecommendedAmountAlt *float64 `json:"recommendedAmount"`
}

type scoreReply struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

func parseBand(text string) (*model.PriceBand, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var r bandReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, eris.Wrap(ErrMalformedResponse, "decode band: "+err.Error())
	}

	minAmt := firstSet(r.MinAmount, r.MinAmountAlt)
	maxAmt := firstSet(r.MaxAmount, r.MaxAmountAlt)
	rec := firstSet(r.RecommendedAmount, r.RecommendedAmountAlt)
	if minAmt == nil || maxAmt == nil || rec == nil {
		return nil, eris.Wrap(ErrMalformedResponse, "band reply missing amounts")
	}

	band := &model.PriceBand{
		MinAmount:          math.Round(*minAmt),
		MaxAmount:          math.Round(*maxAmt),
		RecommendedAmount:  math.Round(*rec),
		EstimatorGenerated: true,
		Reasoning:          strings.TrimSpace(r.Reasoning),
	}
	if band.MinAmount <= 0 || !band.Ordered() {
		return nil, eris.Wrapf(ErrMalformedResponse, "band reply out of range: min=%.0f rec=%.0f max=%.0f",
			band.MinAmount, band.RecommendedAmount, band.MaxAmount)
	}
	return band, nil
}

func parseScore(text string) (*model.OfferScore, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var r scoreReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, eris.Wrap(ErrMalformedResponse, "decode score: "+err.Error())
	}
	if r.Score == nil {
		return nil, eris.Wrap(ErrMalformedResponse, "score reply missing score")
	}

	return &model.OfferScore{
		Score:              clamp01(*r.Score),
		EstimatorGenerated: true,
		Reasoning:          strings.TrimSpace(r.Reasoning),
	}, nil
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
