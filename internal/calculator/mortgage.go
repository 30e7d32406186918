package calculator

// pmiLTVThreshold is the loan-to-value ratio above which PMI is charged.
const pmiLTVThreshold = 80.0

type MortgageInput struct {
	HomePrice          float64 `json:"homePrice"`
	DownPayment        float64 `json:"downPayment"`
	DownPaymentPercent float64 `json:"downPaymentPercent"`
	InterestRate       float64 `json:"interestRate"`
	LoanTermYears      int     `json:"loanTermYears"`
	PropertyTaxAnnual  float64 `json:"propertyTaxAnnual"`
	InsuranceAnnual    float64 `json:"insuranceAnnual"`
	HOAMonthly         float64 `json:"hoaMonthly"`
	PMIRate            float64 `json:"pmiRate"`
}

type MortgageResult struct {
	LoanAmount           float64            `json:"loanAmount"`
	DownPayment          float64            `json:"downPayment"`
	LoanToValue          float64            `json:"loanToValue"`
	MonthlyPrincipalInt  float64            `json:"monthlyPrincipalAndInterest"`
	MonthlyPropertyTax   float64            `json:"monthlyPropertyTax"`
	MonthlyInsurance     float64            `json:"monthlyInsurance"`
	MonthlyPMI           float64            `json:"monthlyPMI"`
	MonthlyHOA           float64            `json:"monthlyHOA"`
	TotalMonthlyPayment  float64            `json:"totalMonthlyPayment"`
	TotalInterest        float64            `json:"totalInterest"`
	TotalCostOfLoan      float64            `json:"totalCostOfLoan"`
	AmortizationSchedule []AmortizationYear `json:"amortizationSchedule"`
}

func (in MortgageInput) validate() error {
	var v validator
	v.positive("homePrice", in.HomePrice)
	v.nonNegative("downPayment", in.DownPayment)
	v.percent("downPaymentPercent", in.DownPaymentPercent)
	v.percent("interestRate", in.InterestRate)
	v.term("loanTermYears", in.LoanTermYears)
	v.nonNegative("propertyTaxAnnual", in.PropertyTaxAnnual)
	v.nonNegative("insuranceAnnual", in.InsuranceAnnual)
	v.nonNegative("hoaMonthly", in.HOAMonthly)
	v.percent("pmiRate", in.PMIRate)
	if in.DownPayment > in.HomePrice {
		v.errs = append(v.errs, "downPayment cannot exceed homePrice")
	}
	return v.err()
}

// Mortgage computes the monthly cost of owning a home. A non-zero DownPayment
// amount takes precedence over DownPaymentPercent.
func Mortgage(in MortgageInput) (MortgageResult, error) {
	if err := in.validate(); err != nil {
		return MortgageResult{}, err
	}

	down := in.DownPayment
	if down == 0 {
		down = in.HomePrice * in.DownPaymentPercent / 100
	}
	loan := in.HomePrice - down
	ltv := ratio(loan, in.HomePrice) * 100

	pi := MonthlyPayment(loan, in.InterestRate, in.LoanTermYears)
	tax := in.PropertyTaxAnnual / monthsPerYear
	insurance := in.InsuranceAnnual / monthsPerYear
	var pmi float64
	if ltv > pmiLTVThreshold {
		pmi = loan * in.PMIRate / 100 / monthsPerYear
	}

	payments := pi * float64(in.LoanTermYears*monthsPerYear)
	totalInterest := payments - loan

	return MortgageResult{
		LoanAmount:           round2(loan),
		DownPayment:          round2(down),
		LoanToValue:          round2(ltv),
		MonthlyPrincipalInt:  round2(pi),
		MonthlyPropertyTax:   round2(tax),
		MonthlyInsurance:     round2(insurance),
		MonthlyPMI:           round2(pmi),
		MonthlyHOA:           round2(in.HOAMonthly),
		TotalMonthlyPayment:  round2(pi + tax + insurance + pmi + in.HOAMonthly),
		TotalInterest:        round2(totalInterest),
		TotalCostOfLoan:      round2(payments + down),
		AmortizationSchedule: AmortizationSchedule(loan, in.InterestRate, in.LoanTermYears),
	}, nil
}
