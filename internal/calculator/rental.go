package calculator

type RentalInput struct {
	PurchasePrice      float64 `json:"purchasePrice"`
	DownPaymentPercent float64 `json:"downPaymentPercent"`
	ClosingCosts       float64 `json:"closingCosts"`
	RehabCosts         float64 `json:"rehabCosts"`
	InterestRate       float64 `json:"interestRate"`
	LoanTermYears      int     `json:"loanTermYears"`
	MonthlyRent        float64 `json:"monthlyRent"`
	OtherMonthlyIncome float64 `json:"otherMonthlyIncome"`
	VacancyRate        float64 `json:"vacancyRate"`
	PropertyTaxAnnual  float64 `json:"propertyTaxAnnual"`
	InsuranceAnnual    float64 `json:"insuranceAnnual"`
	MaintenanceRate    float64 `json:"maintenanceRate"`
	ManagementRate     float64 `json:"managementRate"`
	CapExRate          float64 `json:"capExRate"`
	HOAMonthly         float64 `json:"hoaMonthly"`
	UtilitiesMonthly   float64 `json:"utilitiesMonthly"`
	AppreciationRate   float64 `json:"appreciationRate"`
}

type RentalResult struct {
	GrossMonthlyIncome       float64 `json:"grossMonthlyIncome"`
	VacancyLoss              float64 `json:"vacancyLoss"`
	EffectiveMonthlyIncome   float64 `json:"effectiveMonthlyIncome"`
	MonthlyOperatingExpenses float64 `json:"monthlyOperatingExpenses"`
	NetOperatingIncome       float64 `json:"netOperatingIncome"`
	LoanAmount               float64 `json:"loanAmount"`
	MonthlyMortgagePayment   float64 `json:"monthlyMortgagePayment"`
	MonthlyCashFlow          float64 `json:"monthlyCashFlow"`
	AnnualCashFlow           float64 `json:"annualCashFlow"`
	TotalCashInvested        float64 `json:"totalCashInvested"`
	CapRate                  float64 `json:"capRate"`
	CashOnCashReturn         float64 `json:"cashOnCashReturn"`
	ROI                      float64 `json:"roi"`
	GrossRentMultiplier      float64 `json:"grossRentMultiplier"`
	DebtServiceCoverage      float64 `json:"debtServiceCoverageRatio"`
	BreakEvenOccupancy       float64 `json:"breakEvenOccupancy"`
	MeetsOnePercentRule      bool    `json:"meetsOnePercentRule"`
}

func (in RentalInput) validate() error {
	var v validator
	v.positive("purchasePrice", in.PurchasePrice)
	v.percent("downPaymentPercent", in.DownPaymentPercent)
	v.nonNegative("closingCosts", in.ClosingCosts)
	v.nonNegative("rehabCosts", in.RehabCosts)
	v.percent("interestRate", in.InterestRate)
	v.term("loanTermYears", in.LoanTermYears)
	v.nonNegative("monthlyRent", in.MonthlyRent)
	v.nonNegative("otherMonthlyIncome", in.OtherMonthlyIncome)
	v.percent("vacancyRate", in.VacancyRate)
	v.nonNegative("propertyTaxAnnual", in.PropertyTaxAnnual)
	v.nonNegative("insuranceAnnual", in.InsuranceAnnual)
	v.percent("maintenanceRate", in.MaintenanceRate)
	v.percent("managementRate", in.ManagementRate)
	v.percent("capExRate", in.CapExRate)
	v.nonNegative("hoaMonthly", in.HOAMonthly)
	v.nonNegative("utilitiesMonthly", in.UtilitiesMonthly)
	v.percent("appreciationRate", in.AppreciationRate)
	return v.err()
}

// Rental analyzes a long-term buy-and-hold rental.
//
//	cap rate      = annual NOI / purchase price
//	cash-on-cash  = annual cash flow / total cash invested
//	ROI           = (annual cash flow + year-1 principal paydown + year-1 appreciation) / total cash invested
func Rental(in RentalInput) (RentalResult, error) {
	if err := in.validate(); err != nil {
		return RentalResult{}, err
	}

	gross := in.MonthlyRent + in.OtherMonthlyIncome
	vacancy := gross * in.VacancyRate / 100
	effective := gross - vacancy

	// percentage-based costs are charged on collected rent
	variable := in.MonthlyRent * (in.MaintenanceRate + in.ManagementRate + in.CapExRate) / 100
	fixed := in.PropertyTaxAnnual/monthsPerYear + in.InsuranceAnnual/monthsPerYear + in.HOAMonthly + in.UtilitiesMonthly
	opex := variable + fixed

	noi := (effective - opex) * monthsPerYear
	f := finance(in.PurchasePrice, in.DownPaymentPercent, in.InterestRate, in.LoanTermYears)
	monthlyCashFlow := effective - opex - f.monthlyPayment
	annualCashFlow := monthlyCashFlow * monthsPerYear
	invested := f.downPayment + in.ClosingCosts + in.RehabCosts
	appreciation := in.PurchasePrice * in.AppreciationRate / 100
	annualDebt := f.monthlyPayment * monthsPerYear

	return RentalResult{
		GrossMonthlyIncome:       round2(gross),
		VacancyLoss:              round2(vacancy),
		EffectiveMonthlyIncome:   round2(effective),
		MonthlyOperatingExpenses: round2(opex),
		NetOperatingIncome:       round2(noi),
		LoanAmount:               round2(f.loanAmount),
		MonthlyMortgagePayment:   round2(f.monthlyPayment),
		MonthlyCashFlow:          round2(monthlyCashFlow),
		AnnualCashFlow:           round2(annualCashFlow),
		TotalCashInvested:        round2(invested),
		CapRate:                  pct(noi, in.PurchasePrice),
		CashOnCashReturn:         pct(annualCashFlow, invested),
		ROI:                      pct(annualCashFlow+f.firstYearPaydown+appreciation, invested),
		GrossRentMultiplier:      round2(ratio(in.PurchasePrice, gross*monthsPerYear)),
		DebtServiceCoverage:      round2(ratio(noi, annualDebt)),
		BreakEvenOccupancy:       pct(opex+f.monthlyPayment, gross),
		MeetsOnePercentRule:      in.MonthlyRent >= in.PurchasePrice*0.01,
	}, nil
}
