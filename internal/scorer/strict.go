package scorer

import "github.com/sells-group/studyspot-cli/internal/model"

// MatchesStrict reports whether spot is within the travel budget and meets
// every non-skipped preference exactly. Work types and seating match when
// the wanted value is among the spot's values.
func MatchesStrict(pref model.Preference, spot model.StudySpot) bool {
	return Evaluate(pref, spot).Count(model.Unmatched) == 0
}
