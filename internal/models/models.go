package models

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
)

type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierElite Tier = "elite"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierElite:
		return true
	}
	return false
}

type Feature string

const (
	FeatureExport   Feature = "export"
	FeatureVersions Feature = "versions"
	FeatureInsight  Feature = "insight"
)

var ErrFeatureLocked = errors.New("feature not available on current tier")

var featureTiers = map[Feature][]Tier{
	FeatureExport:   {TierPro, TierElite},
	FeatureVersions: {TierPro, TierElite},
	FeatureInsight:  {TierElite},
}

// Allows reports whether the tier unlocks f.
func (t Tier) Allows(f Feature) bool {
	for _, allowed := range featureTiers[f] {
		if allowed == t {
			return true
		}
	}
	return false
}

type CalculatorType string

const (
	CalculatorMortgage  CalculatorType = "mortgage"
	CalculatorRental    CalculatorType = "rental"
	CalculatorWholesale CalculatorType = "wholesale"
	CalculatorAirbnb    CalculatorType = "airbnb"
)

func (c CalculatorType) Valid() bool {
	switch c {
	case CalculatorMortgage, CalculatorRental, CalculatorWholesale, CalculatorAirbnb:
		return true
	}
	return false
}

type User struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex;size:320;not null" json:"email"`
	PasswordHash     string    `json:"-"`
	GoogleSubject    *string   `gorm:"uniqueIndex" json:"-"`
	Tier             Tier      `gorm:"size:16;not null;default:'free'" json:"tier"`
	StripeCustomerID *string   `gorm:"index" json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`

	Analyses []Analysis `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Analysis struct {
	ID                int64          `gorm:"primaryKey" json:"id"`
	UserID            int64          `gorm:"not null;uniqueIndex:idx_analysis_owner_address_type" json:"userId"`
	Address           string         `gorm:"not null" json:"address"`
	NormalizedAddress string         `gorm:"not null;uniqueIndex:idx_analysis_owner_address_type" json:"-"`
	CalculatorType    CalculatorType `gorm:"size:16;not null;uniqueIndex:idx_analysis_owner_address_type" json:"type"`
	Payload           datatypes.JSON `json:"payload"`
	Notes             string         `json:"notes,omitempty"`
	AISummary         string         `json:"aiSummary,omitempty"`
	Version           int            `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`

	Versions []AnalysisVersion `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type AnalysisVersion struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	AnalysisID int64          `gorm:"not null;index" json:"analysisId"`
	Version    int            `gorm:"not null" json:"version"`
	Payload    datatypes.JSON `json:"payload"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// NormalizeAddress canonicalizes an address for same-property matching:
// lowercase, every rune other than a letter or digit becomes a space, and
// runs of spaces collapse to one.
func NormalizeAddress(address string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, address)
	return strings.Join(strings.Fields(mapped), " ")
}
