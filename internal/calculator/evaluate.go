package calculator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"investment-calculator/internal/models"
)

// ErrUnknownType is returned for a calculator type outside models.CalculatorType.
var ErrUnknownType = fmt.Errorf("%w: unknown calculator type", ErrInvalidInput)

// Result is a computed analysis: the inputs after defaults were applied and
// the calculator's outputs.
type Result struct {
	Type    models.CalculatorType `json:"type"`
	Inputs  any                   `json:"inputs"`
	Outputs any                   `json:"outputs"`
}

var (
	mortgageDefaults  = MortgageInput{LoanTermYears: 30}
	rentalDefaults    = RentalInput{LoanTermYears: 30}
	airbnbDefaults    = AirbnbInput{LoanTermYears: 30, AverageStayNights: 3}
	wholesaleDefaults = WholesaleInput{ARVPercent: 70}
)

// Evaluate decodes raw inputs for the given calculator over its defaults and
// runs the calculation. Only absent fields keep their default; an explicit
// zero is validated like any other value.
func Evaluate(t models.CalculatorType, raw json.RawMessage) (Result, error) {
	switch t {
	case models.CalculatorMortgage:
		return run(t, raw, mortgageDefaults, Mortgage)
	case models.CalculatorRental:
		return run(t, raw, rentalDefaults, Rental)
	case models.CalculatorAirbnb:
		return run(t, raw, airbnbDefaults, Airbnb)
	case models.CalculatorWholesale:
		return run(t, raw, wholesaleDefaults, Wholesale)
	}
	return Result{}, fmt.Errorf("%w %q", ErrUnknownType, t)
}

func run[In, Out any](t models.CalculatorType, raw json.RawMessage, defaults In, calc func(In) (Out, error)) (Result, error) {
	in := defaults
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	out, err := calc(in)
	if err != nil {
		return Result{}, err
	}
	return Result{Type: t, Inputs: in, Outputs: out}, nil
}

// Flatten exposes the scalar fields of a calculator output (or input) as a
// variable map keyed by their JSON names. Booleans become 1 or 0; arrays and
// strings are dropped.
func Flatten(v any) (map[string]float64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(m))
	for k, val := range m {
		switch x := val.(type) {
		case float64:
			out[k] = x
		case bool:
			if x {
				out[k] = 1
			} else {
				out[k] = 0
			}
		}
	}
	return out, nil
}

// Names returns the keys of vars in sorted order.
func Names(vars map[string]float64) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
