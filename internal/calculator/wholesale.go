package calculator

type WholesaleInput struct {
	AfterRepairValue  float64 `json:"afterRepairValue"`
	RepairCosts       float64 `json:"repairCosts"`
	ARVPercent        float64 `json:"arvPercent"`
	AssignmentFee     float64 `json:"assignmentFee"`
	ContractPrice     float64 `json:"contractPrice"`
	BuyerClosingCosts float64 `json:"buyerClosingCosts"`
	HoldingCosts      float64 `json:"holdingCosts"`
}

type WholesaleResult struct {
	MaxAllowableOffer  float64 `json:"maxAllowableOffer"`
	MaxContractPrice   float64 `json:"maxContractPrice"`
	BuyerPurchasePrice float64 `json:"buyerPurchasePrice"`
	BuyerAllInCost     float64 `json:"buyerAllInCost"`
	BuyerProfit        float64 `json:"buyerProfit"`
	BuyerROI           float64 `json:"buyerROI"`
	DealSpread         float64 `json:"dealSpread"`
	WholesalerProfit   float64 `json:"wholesalerProfit"`
	IsGoodDeal         bool    `json:"isGoodDeal"`
}

func (in WholesaleInput) validate() error {
	var v validator
	v.positive("afterRepairValue", in.AfterRepairValue)
	v.nonNegative("repairCosts", in.RepairCosts)
	v.positive("arvPercent", in.ARVPercent)
	v.percent("arvPercent", in.ARVPercent)
	v.nonNegative("assignmentFee", in.AssignmentFee)
	v.nonNegative("contractPrice", in.ContractPrice)
	v.nonNegative("buyerClosingCosts", in.BuyerClosingCosts)
	v.nonNegative("holdingCosts", in.HoldingCosts)
	return v.err()
}

// Wholesale applies the ARV rule: MAO = ARV × arvPercent − repairs. The
// wholesaler's contract must leave room for the assignment fee under MAO.
func Wholesale(in WholesaleInput) (WholesaleResult, error) {
	if err := in.validate(); err != nil {
		return WholesaleResult{}, err
	}

	mao := in.AfterRepairValue*in.ARVPercent/100 - in.RepairCosts
	maxContract := mao - in.AssignmentFee
	buyerPrice := in.ContractPrice + in.AssignmentFee
	allIn := buyerPrice + in.RepairCosts + in.BuyerClosingCosts + in.HoldingCosts
	profit := in.AfterRepairValue - allIn

	return WholesaleResult{
		MaxAllowableOffer:  round2(mao),
		MaxContractPrice:   round2(maxContract),
		BuyerPurchasePrice: round2(buyerPrice),
		BuyerAllInCost:     round2(allIn),
		BuyerProfit:        round2(profit),
		BuyerROI:           pct(profit, allIn),
		DealSpread:         round2(maxContract - in.ContractPrice),
		WholesalerProfit:   round2(in.AssignmentFee),
		IsGoodDeal:         in.ContractPrice > 0 && in.ContractPrice <= maxContract,
	}, nil
}
