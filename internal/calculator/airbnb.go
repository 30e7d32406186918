package calculator

type AirbnbInput struct {
	PurchasePrice      float64 `json:"purchasePrice"`
	DownPaymentPercent float64 `json:"downPaymentPercent"`
	ClosingCosts       float64 `json:"closingCosts"`
	FurnishingCosts    float64 `json:"furnishingCosts"`
	InterestRate       float64 `json:"interestRate"`
	LoanTermYears      int     `json:"loanTermYears"`
	NightlyRate        float64 `json:"nightlyRate"`
	OccupancyRate      float64 `json:"occupancyRate"`
	AverageStayNights  float64 `json:"averageStayNights"`
	CleaningFee        float64 `json:"cleaningFee"`
	CleaningCost       float64 `json:"cleaningCost"`
	PlatformFeeRate    float64 `json:"platformFeeRate"`
	PropertyTaxAnnual  float64 `json:"propertyTaxAnnual"`
	InsuranceAnnual    float64 `json:"insuranceAnnual"`
	UtilitiesMonthly   float64 `json:"utilitiesMonthly"`
	SuppliesMonthly    float64 `json:"suppliesMonthly"`
	MaintenanceRate    float64 `json:"maintenanceRate"`
	ManagementRate     float64 `json:"managementRate"`
	HOAMonthly         float64 `json:"hoaMonthly"`
}

type AirbnbResult struct {
	BookedNightsPerMonth     float64 `json:"bookedNightsPerMonth"`
	StaysPerMonth            float64 `json:"staysPerMonth"`
	MonthlyRentalRevenue     float64 `json:"monthlyRentalRevenue"`
	MonthlyCleaningRevenue   float64 `json:"monthlyCleaningRevenue"`
	GrossMonthlyRevenue      float64 `json:"grossMonthlyRevenue"`
	MonthlyPlatformFees      float64 `json:"monthlyPlatformFees"`
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
	RevenuePerAvailableNight float64 `json:"revenuePerAvailableNight"`
	BreakEvenOccupancy       float64 `json:"breakEvenOccupancy"`
}

func (in AirbnbInput) validate() error {
	var v validator
	v.positive("purchasePrice", in.PurchasePrice)
	v.percent("downPaymentPercent", in.DownPaymentPercent)
	v.nonNegative("closingCosts", in.ClosingCosts)
	v.nonNegative("furnishingCosts", in.FurnishingCosts)
	v.percent("interestRate", in.InterestRate)
	v.term("loanTermYears", in.LoanTermYears)
	v.nonNegative("nightlyRate", in.NightlyRate)
	v.percent("occupancyRate", in.OccupancyRate)
	v.positive("averageStayNights", in.AverageStayNights)
	v.nonNegative("cleaningFee", in.CleaningFee)
	v.nonNegative("cleaningCost", in.CleaningCost)
	v.percent("platformFeeRate", in.PlatformFeeRate)
	v.nonNegative("propertyTaxAnnual", in.PropertyTaxAnnual)
	v.nonNegative("insuranceAnnual", in.InsuranceAnnual)
	v.nonNegative("utilitiesMonthly", in.UtilitiesMonthly)
	v.nonNegative("suppliesMonthly", in.SuppliesMonthly)
	v.percent("maintenanceRate", in.MaintenanceRate)
	v.percent("managementRate", in.ManagementRate)
	v.nonNegative("hoaMonthly", in.HOAMonthly)
	return v.err()
}

// Airbnb analyzes a short-term rental. Revenue scales with occupancy; the
// platform, management and maintenance percentages apply to gross revenue.
func Airbnb(in AirbnbInput) (AirbnbResult, error) {
	if err := in.validate(); err != nil {
		return AirbnbResult{}, err
	}

	nights := nightsPerMonth * in.OccupancyRate / 100
	stays := nights / in.AverageStayNights
	rentalRevenue := nights * in.NightlyRate
	cleaningRevenue := stays * in.CleaningFee
	gross := rentalRevenue + cleaningRevenue

	revenueRate := (in.PlatformFeeRate + in.ManagementRate + in.MaintenanceRate) / 100
	platformFees := gross * in.PlatformFeeRate / 100
	perStay := stays * in.CleaningCost
	fixed := in.PropertyTaxAnnual/monthsPerYear + in.InsuranceAnnual/monthsPerYear +
		in.UtilitiesMonthly + in.SuppliesMonthly + in.HOAMonthly
	opex := gross*revenueRate + perStay + fixed

	noi := (gross - opex) * monthsPerYear
	f := finance(in.PurchasePrice, in.DownPaymentPercent, in.InterestRate, in.LoanTermYears)
	monthlyCashFlow := gross - opex - f.monthlyPayment
	annualCashFlow := monthlyCashFlow * monthsPerYear
	invested := f.downPayment + in.ClosingCosts + in.FurnishingCosts

	return AirbnbResult{
		BookedNightsPerMonth:     round2(nights),
		StaysPerMonth:            round2(stays),
		MonthlyRentalRevenue:     round2(rentalRevenue),
		MonthlyCleaningRevenue:   round2(cleaningRevenue),
		GrossMonthlyRevenue:      round2(gross),
		MonthlyPlatformFees:      round2(platformFees),
		MonthlyOperatingExpenses: round2(opex),
		NetOperatingIncome:       round2(noi),
		LoanAmount:               round2(f.loanAmount),
		MonthlyMortgagePayment:   round2(f.monthlyPayment),
		MonthlyCashFlow:          round2(monthlyCashFlow),
		AnnualCashFlow:           round2(annualCashFlow),
		TotalCashInvested:        round2(invested),
		CapRate:                  pct(noi, in.PurchasePrice),
		CashOnCashReturn:         pct(annualCashFlow, invested),
		ROI:                      pct(annualCashFlow+f.firstYearPaydown, invested),
		RevenuePerAvailableNight: round2(ratio(gross, nightsPerMonth)),
		BreakEvenOccupancy:       round2(breakEvenOccupancy(in, fixed+f.monthlyPayment, revenueRate)),
	}, nil
}

// breakEvenOccupancy solves gross(o)·(1−revenueRate) − stays(o)·cleaningCost = fixedCosts for o.
func breakEvenOccupancy(in AirbnbInput, fixedCosts, revenueRate float64) float64 {
	perNight := (in.NightlyRate+in.CleaningFee/in.AverageStayNights)*(1-revenueRate) -
		in.CleaningCost/in.AverageStayNights
	if perNight <= 0 {
		return 100
	}
	occ := fixedCosts / (perNight * nightsPerMonth) * 100
	if occ > 100 {
		return 100
	}
	return occ
}
