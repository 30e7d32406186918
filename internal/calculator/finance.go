package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidInput = errors.New("invalid input")

// monthsPerYear and nightsPerMonth are fixed calendar averages.
const (
	monthsPerYear  = 12
	nightsPerMonth = 365.0 / 12.0
)

// MonthlyPayment returns the fixed principal-and-interest payment of a fully
// amortizing loan.
func MonthlyPayment(principal, annualRatePct float64, years int) float64 {
	if principal <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * monthsPerYear)
	r := annualRatePct / 100 / monthsPerYear
	if r == 0 {
		return principal / n
	}
	growth := math.Pow(1+r, n)
	return principal * r * growth / (growth - 1)
}

type AmortizationYear struct {
	Year          int     `json:"year"`
	PrincipalPaid float64 `json:"principalPaid"`
	InterestPaid  float64 `json:"interestPaid"`
	EndingBalance float64 `json:"endingBalance"`
}

// AmortizationSchedule summarizes the loan by year.
func AmortizationSchedule(principal, annualRatePct float64, years int) []AmortizationYear {
	if principal <= 0 || years <= 0 {
		return nil
	}
	payment := MonthlyPayment(principal, annualRatePct, years)
	r := annualRatePct / 100 / monthsPerYear
	balance := principal

	schedule := make([]AmortizationYear, 0, years)
	for y := 1; y <= years; y++ {
		row := AmortizationYear{Year: y}
		for m := 0; m < monthsPerYear; m++ {
			interest := balance * r
			principalPart := payment - interest
			if principalPart > balance {
				principalPart = balance
			}
			balance -= principalPart
			row.InterestPaid += interest
			row.PrincipalPaid += principalPart
		}
		if balance < 0.005 {
			balance = 0
		}
		row.EndingBalance = round2(balance)
		row.InterestPaid = round2(row.InterestPaid)
		row.PrincipalPaid = round2(row.PrincipalPaid)
		schedule = append(schedule, row)
	}
	return schedule
}

// financing is shared by the rental and Airbnb calculators.
type financing struct {
	loanAmount       float64
	downPayment      float64
	monthlyPayment   float64
	firstYearPaydown float64
}

func finance(price, downPct, ratePct float64, years int) financing {
	down := price * downPct / 100
	loan := price - down
	f := financing{
		loanAmount:     loan,
		downPayment:    down,
		monthlyPayment: MonthlyPayment(loan, ratePct, years),
	}
	if schedule := AmortizationSchedule(loan, ratePct, years); len(schedule) > 0 {
		f.firstYearPaydown = schedule[0].PrincipalPaid
	}
	return f
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func pct(num, den float64) float64 {
	return round2(ratio(num, den) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type validator struct {
	errs []string
}

func (v *validator) nonNegative(name string, value float64) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		v.errs = append(v.errs, fmt.Sprintf("%s must be a non-negative number", name))
	}
}

func (v *validator) positive(name string, value float64) {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		v.errs = append(v.errs, fmt.Sprintf("%s must be greater than zero", name))
	}
}

func (v *validator) percent(name string, value float64) {
	if value < 0 || value > 100 || math.IsNaN(value) {
		v.errs = append(v.errs, fmt.Sprintf("%s must be between 0 and 100", name))
	}
}

func (v *validator) term(name string, years int) {
	if years <= 0 || years > 50 {
		v.errs = append(v.errs, fmt.Sprintf("%s must be between 1 and 50 years", name))
	}
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(v.errs, "; "))
}
