package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Weight bounds for a non-skipped attribute in weighted mode.
const (
	MinWeight = 1
	MaxWeight = 5
)

// ExplainMode selects the explanation style.
type ExplainMode string

const (
	ExplainShort ExplainMode = "short"
	ExplainLong  ExplainMode = "long"
)

// Valid reports whether m is a known explain mode.
func (m ExplainMode) Valid() bool { return m == ExplainShort || m == ExplainLong }

// ParseExplainMode parses an explain mode.
func ParseExplainMode(s string) (ExplainMode, error) {
	return parseEnum(s, "explain_mode", []ExplainMode{ExplainShort, ExplainLong})
}

// Choice is an optional attribute value: either a concrete value or skipped.
// The zero Choice is skipped.
type Choice[T comparable] struct {
	value T
	set   bool
}

// Want returns a choice holding v.
func Want[T comparable](v T) Choice[T] { return Choice[T]{value: v, set: true} }

// Skip returns a choice with no preference.
func Skip[T comparable]() Choice[T] { return Choice[T]{} }

// Get returns the chosen value and whether one was given.
func (c Choice[T]) Get() (T, bool) { return c.value, c.set }

// Skipped reports whether the attribute carries no preference.
func (c Choice[T]) Skipped() bool { return !c.set }

// String renders the choice the way it is typed on input.
func (c Choice[T]) String() string {
	if !c.set {
		return SkipValue
	}
	if b, ok := any(c.value).(bool); ok {
		if b {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprint(c.value)
}

// Criterion pairs a choice with its importance weight.
type Criterion[T comparable] struct {
	Choice Choice[T]
	Weight int
}

// EffectiveWeight is the stored weight, or 0 when the choice is skipped.
func (c Criterion[T]) EffectiveWeight() int {
	if c.Choice.Skipped() {
		return 0
	}
	return c.Weight
}

// Preference is the validated query: origin, travel budget, six optional
// attributes with weights, explanation style, and result count. The six
// attributes are always present; skipping is a value, not a missing key.
type Preference struct {
	Origin       Origin
	MaxMinutes   int
	TravelWeight int

	Work    Criterion[WorkType]
	Outlet  Criterion[OutletLevel]
	Vibe    Criterion[Vibe]
	Seating Criterion[Seating]
	Price   Criterion[PriceTier]
	Late    Criterion[bool]

	Explain ExplainMode
	TopN    int
}

// SkippedCount returns how many of the six optional attributes are skipped.
func (p Preference) SkippedCount() int {
	n := 0
	for _, skipped := range []bool{
		p.Work.Choice.Skipped(),
		p.Outlet.Choice.Skipped(),
		p.Vibe.Choice.Skipped(),
		p.Seating.Choice.Skipped(),
		p.Price.Choice.Skipped(),
		p.Late.Choice.Skipped(),
	} {
		if skipped {
			n++
		}
	}
	return n
}

// MaxScore is the score a spot earns by matching every stated preference.
func (p Preference) MaxScore() int {
	return p.TravelWeight +
		p.Work.EffectiveWeight() +
		p.Outlet.EffectiveWeight() +
		p.Vibe.EffectiveWeight() +
		p.Seating.EffectiveWeight() +
		p.Price.EffectiveWeight() +
		p.Late.EffectiveWeight()
}

// ValidateStrict checks the fields strict mode depends on.
func (p Preference) ValidateStrict() error {
	errs := p.validateCommon()
	return joinInvalid(errs)
}

// ValidateWeighted checks every field weighted mode depends on, including the
// weight of each non-skipped attribute.
func (p Preference) ValidateWeighted() error {
	errs := p.validateCommon()
	if !weightInRange(p.TravelWeight) {
		errs = append(errs, "travel_weight must be between 1 and 5")
	}
	checks := []struct {
		name    string
		skipped bool
		weight  int
	}{
		{"work_weight", p.Work.Choice.Skipped(), p.Work.Weight},
		{"outlet_weight", p.Outlet.Choice.Skipped(), p.Outlet.Weight},
		{"vibe_weight", p.Vibe.Choice.Skipped(), p.Vibe.Weight},
		{"seating_weight", p.Seating.Choice.Skipped(), p.Seating.Weight},
		{"price_weight", p.Price.Choice.Skipped(), p.Price.Weight},
		{"late_weight", p.Late.Choice.Skipped(), p.Late.Weight},
	}
	for _, c := range checks {
		if !c.skipped && !weightInRange(c.weight) {
			errs = append(errs, c.name+" must be between 1 and 5")
		}
	}
	if !p.Explain.Valid() {
		errs = append(errs, "explain_mode must be short or long")
	}
	if p.TopN <= 0 {
		errs = append(errs, "top_n must be > 0")
	}
	return joinInvalid(errs)
}

func (p Preference) validateCommon() []string {
	var errs []string
	if !p.Origin.Valid() {
		errs = append(errs, "origin "+quote(string(p.Origin))+" is not a known origin")
	}
	if p.MaxMinutes <= 0 {
		errs = append(errs, "max_minutes must be > 0")
	}
	if v, ok := p.Work.Choice.Get(); ok && !v.Valid() {
		errs = append(errs, "work_type "+quote(string(v))+" is out of domain")
	}
	if v, ok := p.Outlet.Choice.Get(); ok && !v.Valid() {
		errs = append(errs, "outlet_pref "+quote(string(v))+" is out of domain")
	}
	if v, ok := p.Vibe.Choice.Get(); ok && !v.Valid() {
		errs = append(errs, "vibe_pref "+quote(string(v))+" is out of domain")
	}
	if v, ok := p.Seating.Choice.Get(); ok && !v.Valid() {
		errs = append(errs, "seating_pref "+quote(string(v))+" is out of domain")
	}
	if v, ok := p.Price.Choice.Get(); ok && !v.Valid() {
		errs = append(errs, "price_pref "+quote(string(v))+" is out of domain")
	}
	return errs
}

func weightInRange(w int) bool { return w >= MinWeight && w <= MaxWeight }

func quote(s string) string { return `"` + s + `"` }

func joinInvalid(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return eris.Wrap(ErrInvalidInput, strings.Join(errs, "; "))
}
