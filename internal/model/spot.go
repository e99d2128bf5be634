package model

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidInput is the sentinel for malformed or out-of-domain preference
// values. Wrapped errors name the offending field.
var ErrInvalidInput = eris.New("invalid input")

// SkipValue is the raw input meaning "no preference" for an optional attribute.
const SkipValue = "skip"

// Origin identifies where the user travels from.
type Origin string

const (
	OriginSinseol    Origin = "sinseol"
	OriginDongdaemun Origin = "dongdaemun"
)

// Origins lists every supported origin. Catalog records must carry a travel
// time for each of them.
var Origins = []Origin{OriginSinseol, OriginDongdaemun}

// WorkType is the kind of work a spot suits.
type WorkType string

const (
	WorkDeepFocus WorkType = "deep_focus"
	WorkCasual    WorkType = "casual"
	WorkGroup     WorkType = "group"
)

// WorkTypes lists the work type domain.
var WorkTypes = []WorkType{WorkDeepFocus, WorkCasual, WorkGroup}

// OutletLevel describes power outlet availability.
type OutletLevel string

const (
	OutletNo      OutletLevel = "no"
	OutletLimited OutletLevel = "limited"
	OutletYes     OutletLevel = "yes"
)

// OutletLevels lists the outlet domain.
var OutletLevels = []OutletLevel{OutletNo, OutletLimited, OutletYes}

// Vibe is the ambience of a spot.
type Vibe string

const (
	VibeQuiet  Vibe = "quiet"
	VibeCozy   Vibe = "cozy"
	VibeLively Vibe = "lively"
)

// Vibes lists the vibe domain.
var Vibes = []Vibe{VibeQuiet, VibeCozy, VibeLively}

// Seating is a kind of seat a spot offers.
type Seating string

const (
	SeatingBooth          Seating = "booth"
	SeatingOpenTable      Seating = "open_table"
	SeatingLounge         Seating = "lounge"
	SeatingIndividualDesk Seating = "individual_desk"
)

// SeatingTypes lists the seating domain.
var SeatingTypes = []Seating{SeatingBooth, SeatingOpenTable, SeatingLounge, SeatingIndividualDesk}

// PriceTier is the rough cost of studying at a spot.
type PriceTier string

const (
	PriceFree   PriceTier = "free"
	PriceLow    PriceTier = "low"
	PriceMedium PriceTier = "medium"
)

// PriceTiers lists the price domain.
var PriceTiers = []PriceTier{PriceFree, PriceLow, PriceMedium}

func (o Origin) Valid() bool      { return slices.Contains(Origins, o) }
func (w WorkType) Valid() bool    { return slices.Contains(WorkTypes, w) }
func (o OutletLevel) Valid() bool { return slices.Contains(OutletLevels, o) }
func (v Vibe) Valid() bool        { return slices.Contains(Vibes, v) }
func (s Seating) Valid() bool     { return slices.Contains(SeatingTypes, s) }
func (p PriceTier) Valid() bool   { return slices.Contains(PriceTiers, p) }

// ParseOrigin parses an origin, ignoring case and surrounding space.
func ParseOrigin(s string) (Origin, error) {
	return parseEnum(s, "origin", Origins)
}

// ParseWorkType parses a work type.
func ParseWorkType(s string) (WorkType, error) {
	return parseEnum(s, "work_type", WorkTypes)
}

// ParseOutletLevel parses an outlet level.
func ParseOutletLevel(s string) (OutletLevel, error) {
	return parseEnum(s, "outlet_pref", OutletLevels)
}

// ParseVibe parses a vibe.
func ParseVibe(s string) (Vibe, error) {
	return parseEnum(s, "vibe_pref", Vibes)
}

// ParseSeating parses a seating type.
func ParseSeating(s string) (Seating, error) {
	return parseEnum(s, "seating_pref", SeatingTypes)
}

// ParsePriceTier parses a price tier.
func ParsePriceTier(s string) (PriceTier, error) {
	return parseEnum(s, "price_pref", PriceTiers)
}

// ParseYesNo parses the open-late answer.
func ParseYesNo(s string) (bool, error) {
	switch normalize(s) {
	case "yes", "y", "true":
		return true, nil
	case "no", "n", "false":
		return false, nil
	}
	return false, eris.Wrapf(ErrInvalidInput, "open_late: %q is not yes or no", s)
}

func parseEnum[T ~string](s, field string, domain []T) (T, error) {
	v := T(normalize(s))
	if slices.Contains(domain, v) {
		return v, nil
	}
	var zero T
	return zero, eris.Wrapf(ErrInvalidInput, "%s: %q is not one of %s", field, s, joinDomain(domain))
}

func joinDomain[T ~string](domain []T) string {
	parts := make([]string, len(domain))
	for i, d := range domain {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StudySpot is one catalog record. Records are immutable once a catalog is
// built; absence of a capability is a value that simply never matches.
type StudySpot struct {
	Name          string         `json:"name" yaml:"name"`
	Link          string         `json:"link" yaml:"link"`
	TravelMinutes map[Origin]int `json:"travel_minutes" yaml:"travel_minutes"`
	WorkTypes     []WorkType     `json:"work_types" yaml:"work_types"`
	Outlets       OutletLevel    `json:"outlets" yaml:"outlets"`
	Vibe          Vibe           `json:"vibe" yaml:"vibe"`
	Seating       []Seating      `json:"seating" yaml:"seating"`
	Price         PriceTier      `json:"price" yaml:"price"`
	OpenLate      bool           `json:"open_late" yaml:"open_late"`
}

// SupportsWork reports whether the spot suits the given work type.
func (s StudySpot) SupportsWork(w WorkType) bool { return slices.Contains(s.WorkTypes, w) }

// HasSeating reports whether the spot offers the given seating.
func (s StudySpot) HasSeating(seat Seating) bool { return slices.Contains(s.Seating, seat) }

// Minutes returns the travel time from origin and whether it is known.
func (s StudySpot) Minutes(o Origin) (int, bool) {
	m, ok := s.TravelMinutes[o]
	return m, ok
}

// Clone returns a deep copy so callers never share the catalog's backing maps
// and slices.
func (s StudySpot) Clone() StudySpot {
	c := s
	c.TravelMinutes = make(map[Origin]int, len(s.TravelMinutes))
	for k, v := range s.TravelMinutes {
		c.TravelMinutes[k] = v
	}
	c.WorkTypes = slices.Clone(s.WorkTypes)
	c.Seating = slices.Clone(s.Seating)
	return c
}

// Validate checks that every attribute of the record lies in its domain.
func (s StudySpot) Validate() error {
	var errs []string
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	for _, o := range Origins {
		m, ok := s.TravelMinutes[o]
		switch {
		case !ok:
			errs = append(errs, "missing travel_minutes for "+string(o))
		case m < 0:
			errs = append(errs, "negative travel_minutes for "+string(o))
		}
	}
	for o := range s.TravelMinutes {
		if !o.Valid() {
			errs = append(errs, "unknown origin "+string(o))
		}
	}
	if len(s.WorkTypes) == 0 {
		errs = append(errs, "work_types is empty")
	}
	for _, w := range s.WorkTypes {
		if !w.Valid() {
			errs = append(errs, "unknown work type "+string(w))
		}
	}
	if !s.Outlets.Valid() {
		errs = append(errs, "unknown outlet level "+string(s.Outlets))
	}
	if !s.Vibe.Valid() {
		errs = append(errs, "unknown vibe "+string(s.Vibe))
	}
	if len(s.Seating) == 0 {
		errs = append(errs, "seating is empty")
	}
	for _, seat := range s.Seating {
		if !seat.Valid() {
			errs = append(errs, "unknown seating "+string(seat))
		}
	}
	if !s.Price.Valid() {
		errs = append(errs, "unknown price tier "+string(s.Price))
	}

	if len(errs) > 0 {
		return eris.Errorf("spot %q: %s", s.Name, strings.Join(errs, "; "))
	}
	return nil
}
