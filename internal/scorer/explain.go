package scorer

import (
	"fmt"
	"strings"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// Verdict symbols used by short explanations and match bars.
const (
	SymbolMatched   = "✔"
	SymbolUnmatched = "✘"
	SymbolSkipped   = "➖"
)

// Separators between explanation entries. Presentation layers split on these
// to print one entry per line.
const (
	ShortSeparator = "  "
	LongSeparator  = ". "
)

var longLabels = [model.DimensionCount]string{
	model.DimTravel:  "Travel time",
	model.DimWork:    "Work type",
	model.DimOutlet:  "Outlets",
	model.DimVibe:    "Vibe",
	model.DimSeating: "Seating",
	model.DimPrice:   "Price",
	model.DimLate:    "Open late",
}

func symbol(v model.Verdict) string {
	switch v {
	case model.Matched:
		return SymbolMatched
	case model.Unmatched:
		return SymbolUnmatched
	default:
		return SymbolSkipped
	}
}

// ExplainLines renders one entry per dimension in canonical order.
//
// Short entries are "<symbol> <dimension>", e.g. "✘ vibe". Long entries are
// full clauses: "Vibe matched", "Vibe did not match", or
// "Vibe: no preference given" for a skipped dimension.
func ExplainLines(vs model.Verdicts, mode model.ExplainMode) []string {
	lines := make([]string, 0, model.DimensionCount)
	for _, d := range model.Dimensions {
		if mode == model.ExplainShort {
			lines = append(lines, symbol(vs[d])+" "+d.String())
			continue
		}
		label := longLabels[d]
		switch vs[d] {
		case model.Matched:
			lines = append(lines, label+" matched")
		case model.Unmatched:
			lines = append(lines, label+" did not match")
		default:
			lines = append(lines, label+": no preference given")
		}
	}
	return lines
}

// Explain joins ExplainLines into a single string. Long explanations end
// with a period.
func Explain(vs model.Verdicts, mode model.ExplainMode) string {
	lines := ExplainLines(vs, mode)
	if mode == model.ExplainShort {
		return strings.Join(lines, ShortSeparator)
	}
	return strings.Join(lines, LongSeparator) + "."
}

// SplitExplanation breaks an explanation produced by Explain back into its
// entries.
func SplitExplanation(explanation string, mode model.ExplainMode) []string {
	if mode == model.ExplainShort {
		return strings.Split(explanation, ShortSeparator)
	}
	return strings.Split(strings.TrimSuffix(explanation, "."), LongSeparator)
}

// MatchBar renders one symbol per dimension in canonical order. The result
// always holds exactly seven symbols.
func MatchBar(vs model.Verdicts) string {
	var b strings.Builder
	for _, v := range vs {
		b.WriteString(symbol(v))
	}
	return b.String()
}

// MatchPercent is the share of considered dimensions that matched,
// truncated to an integer. It is 0 when every dimension is skipped.
func MatchPercent(vs model.Verdicts) int {
	considered := model.DimensionCount - vs.Count(model.Skipped)
	if considered == 0 {
		return 0
	}
	return vs.Count(model.Matched) * 100 / considered
}

// Summary renders the match ratio, e.g. "Matched 4 out of 5 preferences (80% match)".
func Summary(vs model.Verdicts) string {
	return fmt.Sprintf("Matched %d out of %d preferences (%d%% match)",
		vs.Count(model.Matched),
		model.DimensionCount-vs.Count(model.Skipped),
		MatchPercent(vs),
	)
}
