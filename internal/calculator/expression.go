package calculator

import (
	"errors"
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
)

var ErrInvalidExpression = errors.New("invalid expression")

// EvaluateExpression evaluates a user formula such as
// "monthlyCashFlow * 12 / totalCashInvested" against vars.
func EvaluateExpression(expr string, vars map[string]float64) (any, error) {
	expression, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	params := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		params[k] = v
	}
	for _, name := range expression.Vars() {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrInvalidExpression, name)
		}
	}

	result, err := expression.Evaluate(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	if f, ok := result.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil, fmt.Errorf("%w: result is not a finite number (division by zero?)", ErrInvalidExpression)
	}
	return result, nil
}
