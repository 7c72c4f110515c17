package scorer

import (
	"slices"

	"github.com/sells-group/market-pricing/internal/model"
)

// Rank returns offers ordered by score, highest first. Ties go to the
// earlier submission. The input slice is not modified.
func Rank(offers []model.Offer) []model.Offer {
	out := slices.Clone(offers)
	slices.SortStableFunc(out, func(a, b model.Offer) int {
		switch {
		case a.Score.Score > b.Score.Score:
			return -1
		case a.Score.Score < b.Score.Score:
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
