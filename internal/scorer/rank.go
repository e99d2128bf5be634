package scorer

import (
	"cmp"
	"slices"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/model"
)

// sortByScore orders results by score descending. Equal scores keep catalog
// order.
func sortByScore(results []model.ScoredResult) {
	slices.SortStableFunc(results, func(a, b model.ScoredResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Spot.Index, b.Spot.Index)
	})
}

// Rank sorts scored results, keeps the first pref.TopN, and decorates them for
// presentation. Shortfall is set when fewer than TopN candidates exist. The
// input slice is not modified.
func Rank(cat *catalog.Catalog, pref model.Preference, scored []model.ScoredResult) *model.Ranking {
	sorted := slices.Clone(scored)
	sortByScore(sorted)

	limit := pref.TopN
	shortfall := len(sorted) < limit
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	maxScore := pref.MaxScore()
	out := &model.Ranking{
		Results:   make([]model.Recommendation, 0, len(sorted)),
		Requested: pref.TopN,
		Shortfall: shortfall,
		MaxScore:  maxScore,
	}
	for i, r := range sorted {
		out.Results = append(out.Results, model.Recommendation{
			Rank:         i + 1,
			Score:        r.Score,
			MaxScore:     maxScore,
			Name:         r.Spot.Name,
			Link:         cat.Link(r.Spot),
			Explanation:  r.Explanation,
			MatchBar:     MatchBar(r.Verdicts),
			MatchPercent: MatchPercent(r.Verdicts),
			Summary:      Summary(r.Verdicts),
			Verdicts:     r.Verdicts,
		})
	}
	return out
}
