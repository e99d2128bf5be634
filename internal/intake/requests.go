// Package intake turns raw query input into validated preferences. Requests
// arrive as strings and ints from flags, JSON bodies, or free text; every
// failure maps to model.ErrInvalidInput.
package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/studyspot-cli/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field errors are reported by JSON
// name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// StrictRequest holds the raw answers for a strict query. Attribute fields
// take a domain value or "skip".
type StrictRequest struct {
	Origin      string `json:"origin" validate:"required"`
	MaxMinutes  int    `json:"max_minutes" validate:"gt=0"`
	WorkType    string `json:"work_type" validate:"required"`
	OutletPref  string `json:"outlet_pref" validate:"required"`
	VibePref    string `json:"vibe_pref" validate:"required"`
	SeatingPref string `json:"seating_pref" validate:"required"`
	PricePref   string `json:"price_pref" validate:"required"`
	OpenLate    string `json:"open_late" validate:"required"`
}

// WeightedRequest adds weights, explanation style and result count. Weights
// of skipped attributes are ignored.
type WeightedRequest struct {
	StrictRequest

	TravelWeight  int    `json:"travel_weight" validate:"min=1,max=5"`
	WorkWeight    int    `json:"work_weight" validate:"gte=0"`
	OutletWeight  int    `json:"outlet_weight" validate:"gte=0"`
	VibeWeight    int    `json:"vibe_weight" validate:"gte=0"`
	SeatingWeight int    `json:"seating_weight" validate:"gte=0"`
	PriceWeight   int    `json:"price_weight" validate:"gte=0"`
	LateWeight    int    `json:"late_weight" validate:"gte=0"`
	ExplainMode   string `json:"explain_mode" validate:"required"`
	TopN          int    `json:"top_n" validate:"gte=1"`
}

// NewWeightedRequest returns a request preset with the given defaults: every
// attribute skipped, every weight 1.
func NewWeightedRequest(topN int, explain model.ExplainMode) WeightedRequest {
	return WeightedRequest{
		StrictRequest: StrictRequest{
			WorkType:    model.SkipValue,
			OutletPref:  model.SkipValue,
			VibePref:    model.SkipValue,
			SeatingPref: model.SkipValue,
			PricePref:   model.SkipValue,
			OpenLate:    model.SkipValue,
		},
		TravelWeight:  1,
		WorkWeight:    1,
		OutletWeight:  1,
		VibeWeight:    1,
		SeatingWeight: 1,
		PriceWeight:   1,
		LateWeight:    1,
		ExplainMode:   string(explain),
		TopN:          topN,
	}
}

// Parse validates the request and converts it to a Preference for strict
// mode. Weights are left at zero.
func (r StrictRequest) Parse() (model.Preference, error) {
	if err := check(r); err != nil {
		return model.Preference{}, err
	}
	return r.preference()
}

// Parse validates the request and converts it to a Preference for weighted
// mode.
func (r WeightedRequest) Parse() (model.Preference, error) {
	if err := check(r); err != nil {
		return model.Preference{}, err
	}
	p, err := r.StrictRequest.preference()
	if err != nil {
		return model.Preference{}, err
	}
	explain, err := model.ParseExplainMode(r.ExplainMode)
	if err != nil {
		return model.Preference{}, err
	}

	p.TravelWeight = r.TravelWeight
	p.Work.Weight = r.WorkWeight
	p.Outlet.Weight = r.OutletWeight
	p.Vibe.Weight = r.VibeWeight
	p.Seating.Weight = r.SeatingWeight
	p.Price.Weight = r.PriceWeight
	p.Late.Weight = r.LateWeight
	p.Explain = explain
	p.TopN = r.TopN

	if err := p.ValidateWeighted(); err != nil {
		return model.Preference{}, err
	}
	return p, nil
}

func (r StrictRequest) preference() (model.Preference, error) {
	var (
		p    model.Preference
		errs []string
		err  error
	)
	collect := func(e error) {
		if e != nil {
			errs = append(errs, strings.TrimSuffix(e.Error(), ": "+model.ErrInvalidInput.Error()))
		}
	}

	p.Origin, err = model.ParseOrigin(r.Origin)
	collect(err)
	p.MaxMinutes = r.MaxMinutes

	p.Work.Choice, err = choice(r.WorkType, model.ParseWorkType)
	collect(err)
	p.Outlet.Choice, err = choice(r.OutletPref, model.ParseOutletLevel)
	collect(err)
	p.Vibe.Choice, err = choice(r.VibePref, model.ParseVibe)
	collect(err)
	p.Seating.Choice, err = choice(r.SeatingPref, model.ParseSeating)
	collect(err)
	p.Price.Choice, err = choice(r.PricePref, model.ParsePriceTier)
	collect(err)
	p.Late.Choice, err = choice(r.OpenLate, model.ParseYesNo)
	collect(err)

	if len(errs) > 0 {
		return model.Preference{}, eris.Wrap(model.ErrInvalidInput, strings.Join(errs, "; "))
	}
	return p, nil
}

// IsSkip reports whether raw is the skip answer.
func IsSkip(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), model.SkipValue)
}

func choice[T comparable](raw string, parse func(string) (T, error)) (model.Choice[T], error) {
	if IsSkip(raw) {
		return model.Skip[T](), nil
	}
	v, err := parse(raw)
	if err != nil {
		return model.Skip[T](), err
	}
	return model.Want(v), nil
}

func check(req any) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return eris.Wrap(model.ErrInvalidInput, err.Error())
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = translate(fe)
	}
	return eris.Wrap(model.ErrInvalidInput, strings.Join(msgs, "; "))
}

func translate(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
