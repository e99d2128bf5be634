package intake

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/studyspot-cli/internal/model"
)

// guidanceSkips is how many skipped attributes make a description too vague
// to act on without follow-up questions.
const guidanceSkips = 4

// rule maps a match in the folded text to a canonical attribute value.
type rule struct {
	re    *regexp.Regexp
	value string
}

// kw matches a literal phrase on word boundaries.
func kw(phrase, value string) rule {
	return rule{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`), value: value}
}

// pat matches a regular expression.
func pat(expr, value string) rule {
	return rule{re: regexp.MustCompile(expr), value: value}
}

// Rules are ordered and the first hit wins, so negations and specific phrases
// sit ahead of the generic keywords they contain.
var (
	workRules = []rule{
		pat(`deep\s+concentration|intense\s+focus|study\s+grind`, string(model.WorkDeepFocus)),
		kw("deep focus", string(model.WorkDeepFocus)),
		kw("lock in", string(model.WorkDeepFocus)),
		kw("quiet work", string(model.WorkDeepFocus)),
		kw("deep", string(model.WorkDeepFocus)),
		kw("focus", string(model.WorkDeepFocus)),
		pat(`collaborative|team\s*work|working\s+together`, string(model.WorkGroup)),
		kw("group", string(model.WorkGroup)),
		kw("team", string(model.WorkGroup)),
		kw("collab", string(model.WorkGroup)),
		pat(`\b(chill(ed)?|relaxed?)\b`, string(model.WorkCasual)),
		kw("casual", string(model.WorkCasual)),
	}

	outletRules = []rule{
		pat(`\bno\s+(power|plugs?|outlets?|sockets?|charging)\b`, string(model.OutletNo)),
		kw("few", string(model.OutletLimited)),
		kw("limited", string(model.OutletLimited)),
		pat(`power\s+outlet|charging\s+spot|need.*power`, string(model.OutletYes)),
		pat(`\b(plugs?|sockets?|outlets?)\b`, string(model.OutletYes)),
		kw("charging", string(model.OutletYes)),
		kw("charge", string(model.OutletYes)),
	}

	vibeRules = []rule{
		pat(`peaceful|relaxing|low\s+noise`, string(model.VibeQuiet)),
		kw("quiet", string(model.VibeQuiet)),
		kw("serene", string(model.VibeQuiet)),
		pat(`buzzy|buzzing|\bactive\b`, string(model.VibeLively)),
		kw("lively", string(model.VibeLively)),
		kw("busy", string(model.VibeLively)),
		kw("cozy", string(model.VibeCozy)),
		kw("aesthetic", string(model.VibeCozy)),
		kw("cool", string(model.VibeCozy)),
	}

	seatingRules = []rule{
		pat(`personal\s+desk|single\s+seat|quiet\s+corner`, string(model.SeatingIndividualDesk)),
		pat(`open\s+seating|tables\s+everywhere|open\s+table`, string(model.SeatingOpenTable)),
		kw("booth", string(model.SeatingBooth)),
		kw("lounge", string(model.SeatingLounge)),
		kw("couch", string(model.SeatingLounge)),
		kw("sofa", string(model.SeatingLounge)),
		kw("desk", string(model.SeatingIndividualDesk)),
		kw("individual", string(model.SeatingIndividualDesk)),
		kw("solo", string(model.SeatingIndividualDesk)),
		kw("table", string(model.SeatingOpenTable)),
	}

	priceRules = []rule{
		pat(`don.?t\s+mind\s+(the\s+)?price|any\s+budget`, model.SkipValue),
		pat(`okay\s+with\s+(any|whatever)\s+(cost|price)`, model.SkipValue),
		kw("free", string(model.PriceFree)),
		kw("zero", string(model.PriceFree)),
		kw("cheap", string(model.PriceLow)),
		kw("affordable", string(model.PriceLow)),
		kw("medium", string(model.PriceMedium)),
		kw("pricey", string(model.PriceMedium)),
	}

	lateRules = []rule{
		pat(`closes\s+early|not\s+open\s+late|not\s+late`, "no"),
		pat(`night\s+owl|open\s+at\s+night|night\s+time`, "yes"),
		kw("open late", "yes"),
		kw("late night", "yes"),
		kw("closes late", "yes"),
		kw("open 24", "yes"),
		kw("24/7", "yes"),
		kw("all day", "yes"),
		kw("midnight", "yes"),
	}
)

// Description is what a free-text request says about the six optional
// attributes. Each field holds a canonical value or "skip".
type Description struct {
	WorkType    string `json:"work_type"`
	OutletPref  string `json:"outlet_pref"`
	VibePref    string `json:"vibe_pref"`
	SeatingPref string `json:"seating_pref"`
	PricePref   string `json:"price_pref"`
	OpenLate    string `json:"open_late"`
}

// Describe extracts attribute values from free text.
func Describe(text string) Description {
	folded := norm.NFKC.String(cases.Fold().String(text))
	return Description{
		WorkType:    firstMatch(folded, workRules),
		OutletPref:  firstMatch(folded, outletRules),
		VibePref:    firstMatch(folded, vibeRules),
		SeatingPref: firstMatch(folded, seatingRules),
		PricePref:   firstMatch(folded, priceRules),
		OpenLate:    firstMatch(folded, lateRules),
	}
}

func firstMatch(text string, rules []rule) string {
	for _, r := range rules {
		if r.re.MatchString(text) {
			return r.value
		}
	}
	return model.SkipValue
}

// Fields returns the description keyed by request field name.
func (d Description) Fields() map[string]string {
	return map[string]string{
		"work_type":    d.WorkType,
		"outlet_pref":  d.OutletPref,
		"vibe_pref":    d.VibePref,
		"seating_pref": d.SeatingPref,
		"price_pref":   d.PricePref,
		"open_late":    d.OpenLate,
	}
}

// Skipped counts attributes the text said nothing about.
func (d Description) Skipped() int {
	n := 0
	for _, v := range d.Fields() {
		if v == model.SkipValue {
			n++
		}
	}
	return n
}

// NeedsGuidance reports whether too little was understood to run a useful
// query.
func (d Description) NeedsGuidance() bool { return d.Skipped() >= guidanceSkips }

// Apply copies described values into req, leaving fields named in keep
// untouched.
func (d Description) Apply(req *StrictRequest, keep map[string]bool) {
	set := func(field string, dst *string, v string) {
		if !keep[field] {
			*dst = v
		}
	}
	set("work_type", &req.WorkType, d.WorkType)
	set("outlet_pref", &req.OutletPref, d.OutletPref)
	set("vibe_pref", &req.VibePref, d.VibePref)
	set("seating_pref", &req.SeatingPref, d.SeatingPref)
	set("price_pref", &req.PricePref, d.PricePref)
	set("open_late", &req.OpenLate, d.OpenLate)
}
