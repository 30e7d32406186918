package scraper

import (
	"time"

	"investment-calculator/internal/models"
)

// Listing is what Smart Import could read from a property page. Zero values
// mean the field was not found.
type Listing struct {
	URL               string    `json:"url"`
	Site              Site      `json:"site"`
	Address           string    `json:"address"`
	Price             float64   `json:"price"`
	Beds              float64   `json:"beds"`
	Baths             float64   `json:"baths"`
	Sqft              float64   `json:"sqft"`
	YearBuilt         int       `json:"yearBuilt"`
	HOAMonthly        float64   `json:"hoaMonthly"`
	PropertyTaxAnnual float64   `json:"propertyTaxAnnual"`
	PropertyType      string    `json:"propertyType"`
	ImageURL          string    `json:"imageUrl"`
	ScrapedAt         time.Time `json:"scrapedAt"`
}

// Prefill returns calculator inputs seeded from the listing, keyed by the
// calculator's JSON field names.
func (l Listing) Prefill(t models.CalculatorType) map[string]float64 {
	out := map[string]float64{}
	set := func(key string, v float64) {
		if v > 0 {
			out[key] = v
		}
	}

	switch t {
	case models.CalculatorMortgage:
		set("homePrice", l.Price)
		set("propertyTaxAnnual", l.PropertyTaxAnnual)
		set("hoaMonthly", l.HOAMonthly)
	case models.CalculatorRental, models.CalculatorAirbnb:
		set("purchasePrice", l.Price)
		set("propertyTaxAnnual", l.PropertyTaxAnnual)
		set("hoaMonthly", l.HOAMonthly)
	case models.CalculatorWholesale:
		// list price is the closest available proxy for ARV
		set("afterRepairValue", l.Price)
	}
	return out
}
