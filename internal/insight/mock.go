package insight

import (
	"context"
	"fmt"
	"strings"

	"investment-calculator/internal/models"
)

// MockGenerator derives a deterministic assessment from fixed rules.
type MockGenerator struct{}

type assessment struct {
	score      int
	highlights []string
	risks      []string
}

func (a *assessment) good(format string, args ...any) {
	a.score++
	a.highlights = append(a.highlights, fmt.Sprintf(format, args...))
}

func (a *assessment) bad(format string, args ...any) {
	a.score--
	a.risks = append(a.risks, fmt.Sprintf(format, args...))
}

func (MockGenerator) Generate(_ context.Context, req Request) (Insight, error) {
	var a assessment
	var lead string

	switch req.Type {
	case models.CalculatorRental, models.CalculatorAirbnb:
		lead = assessIncome(&a, req.Outputs)
	case models.CalculatorWholesale:
		lead = assessWholesale(&a, req.Outputs)
	case models.CalculatorMortgage:
		lead = assessMortgage(&a, req.Outputs)
	default:
		return Insight{}, fmt.Errorf("unsupported calculator type %q", req.Type)
	}

	verdict := VerdictFair
	switch {
	case a.score >= 2:
		verdict = VerdictStrong
	case a.score < 0:
		verdict = VerdictWeak
	}

	summary := lead
	if req.Address != "" {
		summary = fmt.Sprintf("%s: %s", req.Address, lead)
	}
	summary += fmt.Sprintf(" Overall this looks %s.", verdictPhrase(verdict))

	return Insight{
		Summary:    summary,
		Verdict:    verdict,
		Highlights: nonNil(a.highlights),
		Risks:      nonNil(a.risks),
		Provider:   "mock",
	}, nil
}

func assessIncome(a *assessment, out map[string]float64) string {
	cashFlow := out["monthlyCashFlow"]
	capRate := out["capRate"]
	coc := out["cashOnCashReturn"]

	if cashFlow >= 0 {
		a.good("Positive cash flow of $%.0f per month", cashFlow)
	} else {
		a.bad("Negative cash flow of $%.0f per month", -cashFlow)
	}

	switch {
	case capRate >= 8:
		a.good("Cap rate of %.1f%% is above the typical 8%% target", capRate)
	case capRate < 4:
		a.bad("Cap rate of %.1f%% is thin for an income property", capRate)
	}

	switch {
	case coc >= 10:
		a.good("Cash-on-cash return of %.1f%% beats a 10%% benchmark", coc)
	case coc < 5:
		a.bad("Cash-on-cash return of %.1f%% trails passive alternatives", coc)
	}

	if dscr, ok := out["debtServiceCoverageRatio"]; ok && dscr > 0 {
		switch {
		case dscr < 1:
			a.bad("Income does not cover the mortgage (DSCR %.2f)", dscr)
		case dscr >= 1.25:
			a.good("Comfortable debt coverage (DSCR %.2f)", dscr)
		}
	}
	if be, ok := out["breakEvenOccupancy"]; ok && be > 85 {
		a.bad("Break-even occupancy of %.0f%% leaves little room for vacancy", be)
	}

	return fmt.Sprintf("The property cash flows $%.0f per month at a %.1f%% cap rate and %.1f%% cash-on-cash return.",
		cashFlow, capRate, coc)
}

func assessWholesale(a *assessment, out map[string]float64) string {
	spread := out["dealSpread"]
	buyerROI := out["buyerROI"]

	if out["isGoodDeal"] == 1 {
		a.good("Contract is $%.0f under the maximum contract price", spread)
	} else {
		a.bad("Contract exceeds the maximum contract price by $%.0f", -spread)
	}
	switch {
	case buyerROI >= 20:
		a.good("End buyer keeps a %.1f%% return", buyerROI)
	case buyerROI < 10:
		a.bad("End buyer return of %.1f%% may be hard to sell", buyerROI)
	}

	return fmt.Sprintf("Maximum allowable offer is $%.0f with a $%.0f spread to your contract.",
		out["maxAllowableOffer"], spread)
}

func assessMortgage(a *assessment, out map[string]float64) string {
	ltv := out["loanToValue"]
	payment := out["totalMonthlyPayment"]

	switch pmi := out["monthlyPMI"]; {
	case ltv > 80 && pmi > 0:
		a.bad("Loan-to-value of %.0f%% triggers PMI of $%.0f per month", ltv, pmi)
	case ltv > 80:
		a.bad("Loan-to-value of %.0f%% is above 80%%; expect lenders to require PMI", ltv)
	default:
		a.good("Loan-to-value of %.0f%% avoids PMI", ltv)
	}
	if loan := out["loanAmount"]; loan > 0 {
		ratio := out["totalInterest"] / loan
		if ratio > 1 {
			a.bad("Lifetime interest exceeds the amount borrowed")
		} else if ratio < 0.5 {
			a.good("Lifetime interest stays under half the loan amount")
		}
	}

	return fmt.Sprintf("All-in housing cost is $%.0f per month.", payment)
}

func verdictPhrase(v Verdict) string {
	switch v {
	case VerdictStrong:
		return "like a strong deal"
	case VerdictWeak:
		return "like a weak deal"
	}
	return "like a fair deal worth a closer look"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Text renders an insight as plain text for storage on an analysis.
func (i Insight) Text() string {
	var b strings.Builder
	b.WriteString(i.Summary)
	for _, h := range i.Highlights {
		b.WriteString("\n+ " + h)
	}
	for _, r := range i.Risks {
		b.WriteString("\n- " + r)
	}
	return b.String()
}
