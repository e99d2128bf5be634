package scorer

import "github.com/sells-group/studyspot-cli/internal/model"

// Evaluate compares one spot against a preference on every dimension.
// Travel is never skipped: it matches when the spot is within MaxMinutes of
// the origin. A spot without a travel time for the origin never matches.
func Evaluate(pref model.Preference, spot model.StudySpot) model.Verdicts {
	var vs model.Verdicts

	vs[model.DimTravel] = model.Unmatched
	if m, ok := spot.Minutes(pref.Origin); ok && m <= pref.MaxMinutes {
		vs[model.DimTravel] = model.Matched
	}

	vs[model.DimWork] = verdict(pref.Work.Choice, spot.SupportsWork)
	vs[model.DimOutlet] = verdict(pref.Outlet.Choice, func(v model.OutletLevel) bool { return v == spot.Outlets })
	vs[model.DimVibe] = verdict(pref.Vibe.Choice, func(v model.Vibe) bool { return v == spot.Vibe })
	vs[model.DimSeating] = verdict(pref.Seating.Choice, spot.HasSeating)
	vs[model.DimPrice] = verdict(pref.Price.Choice, func(v model.PriceTier) bool { return v == spot.Price })
	vs[model.DimLate] = verdict(pref.Late.Choice, func(v bool) bool { return v == spot.OpenLate })

	return vs
}

func verdict[T comparable](c model.Choice[T], has func(T) bool) model.Verdict {
	want, ok := c.Get()
	switch {
	case !ok:
		return model.Skipped
	case has(want):
		return model.Matched
	default:
		return model.Unmatched
	}
}

// weights returns the contribution of each dimension when matched.
func weights(pref model.Preference) [model.DimensionCount]int {
	return [model.DimensionCount]int{
		model.DimTravel:  pref.TravelWeight,
		model.DimWork:    pref.Work.EffectiveWeight(),
		model.DimOutlet:  pref.Outlet.EffectiveWeight(),
		model.DimVibe:    pref.Vibe.EffectiveWeight(),
		model.DimSeating: pref.Seating.EffectiveWeight(),
		model.DimPrice:   pref.Price.EffectiveWeight(),
		model.DimLate:    pref.Late.EffectiveWeight(),
	}
}

// ScoreSpot scores the spot at catalog position index. The score is the sum
// of the weights of matched dimensions; skipped and unmatched dimensions add
// nothing. It depends on no other record.
func ScoreSpot(pref model.Preference, index int, spot model.StudySpot) model.ScoredResult {
	vs := Evaluate(pref, spot)
	w := weights(pref)

	score := 0
	for _, d := range model.Dimensions {
		if vs[d] == model.Matched {
			score += w[d]
		}
	}

	return model.ScoredResult{
		Spot:        model.SpotRef{Index: index, Name: spot.Name},
		Score:       score,
		Verdicts:    vs,
		Explanation: Explain(vs, pref.Explain),
	}
}
