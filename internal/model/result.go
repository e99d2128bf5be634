package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Dimension is one of the seven scored dimensions, in canonical order.
type Dimension int

const (
	DimTravel Dimension = iota
	DimWork
	DimOutlet
	DimVibe
	DimSeating
	DimPrice
	DimLate
)

// DimensionCount is the fixed number of scored dimensions.
const DimensionCount = 7

// Dimensions lists every dimension in canonical order.
var Dimensions = [DimensionCount]Dimension{DimTravel, DimWork, DimOutlet, DimVibe, DimSeating, DimPrice, DimLate}

var dimensionKeys = [DimensionCount]string{"travel", "work", "outlet", "vibe", "seating", "price", "late"}

// String returns the short key of the dimension.
func (d Dimension) String() string {
	if d < 0 || int(d) >= DimensionCount {
		return "unknown"
	}
	return dimensionKeys[d]
}

// Verdict is the per-dimension outcome of comparing a spot to a preference.
type Verdict int

const (
	Skipped Verdict = iota
	Matched
	Unmatched
)

func (v Verdict) String() string {
	switch v {
	case Matched:
		return "matched"
	case Unmatched:
		return "unmatched"
	default:
		return "skipped"
	}
}

// MarshalText renders the verdict as its name in JSON output.
func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText parses a verdict name.
func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "matched":
		*v = Matched
	case "unmatched":
		*v = Unmatched
	case "skipped":
		*v = Skipped
	default:
		return eris.Errorf("model: unknown verdict %q", b)
	}
	return nil
}

// Verdicts holds one verdict per dimension in canonical order.
type Verdicts [DimensionCount]Verdict

// Count returns how many dimensions carry verdict v.
func (vs Verdicts) Count(v Verdict) int {
	n := 0
	for _, x := range vs {
		if x == v {
			n++
		}
	}
	return n
}

// SpotRef points back at a catalog record by position and key.
type SpotRef struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// ScoredResult is the weighted-mode outcome for one catalog record.
type ScoredResult struct {
	Spot        SpotRef  `json:"spot"`
	Score       int      `json:"score"`
	Verdicts    Verdicts `json:"verdicts"`
	Explanation string   `json:"explanation"`
}

// Match is one strict-mode hit.
type Match struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// Recommendation is one ranked weighted-mode result ready for presentation.
type Recommendation struct {
	Rank         int      `json:"rank"`
	Score        int      `json:"score"`
	MaxScore     int      `json:"max_score"`
	Name         string   `json:"name"`
	Link         string   `json:"link"`
	Explanation  string   `json:"explanation"`
	MatchBar     string   `json:"match_bar"`
	MatchPercent int      `json:"match_percent"`
	Summary      string   `json:"summary"`
	Verdicts     Verdicts `json:"verdicts"`
}

// Ranking is the weighted-mode answer. Shortfall is set when the catalog held
// fewer candidates than Requested.
type Ranking struct {
	Results   []Recommendation `json:"results"`
	Requested int              `json:"requested"`
	Shortfall bool             `json:"shortfall"`
	MaxScore  int              `json:"max_score"`
}

// QueryMode names how a query was answered.
type QueryMode string

const (
	ModeStrict   QueryMode = "strict"
	ModeWeighted QueryMode = "weighted"
	ModeAuto     QueryMode = "auto"
)

// ParseQueryMode parses a query mode. "fallback" is accepted as weighted.
func ParseQueryMode(s string) (QueryMode, error) {
	if normalize(s) == "fallback" {
		return ModeWeighted, nil
	}
	return parseEnum(s, "mode", []QueryMode{ModeStrict, ModeWeighted, ModeAuto})
}

// QueryRecord is one answered query kept in the history store.
type QueryRecord struct {
	ID          string    `json:"id"`
	Mode        QueryMode `json:"mode"`
	Origin      Origin    `json:"origin"`
	MaxMinutes  int       `json:"max_minutes"`
	Request     []byte    `json:"request,omitempty"`
	ResultCount int       `json:"result_count"`
	FellBack    bool      `json:"fell_back"`
	TopName     string    `json:"top_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
