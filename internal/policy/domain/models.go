// Package domain contains the sellable policy catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Policy is a sellable insurance product with its admin-configured
// pricing factor table. Read-only to the pricing and matching engines.
type Policy struct {
	ID                   snowflake.ID                 `json:"id" gorm:"primaryKey"`
	CompanyID            snowflake.ID                 `json:"company_id" gorm:"not null;index"`
	Name                 string                       `json:"name" gorm:"type:text;not null"`
	BasePremium          int64                        `json:"base_premium" gorm:"not null"`
	CoverageLimit        int64                        `json:"coverage_limit" gorm:"not null"`
	Currency             string                       `json:"currency" gorm:"type:text;not null;default:'NPR'"`
	CompanyRating        float64                      `json:"company_rating" gorm:"not null;default:0"`
	ClaimSettlementRatio float64                      `json:"claim_settlement_ratio" gorm:"not null;default:0"`
	WaitingPeriodDays    int                          `json:"waiting_period_days" gorm:"not null;default:0"`
	CopayPercent         float64                      `json:"copay_percent" gorm:"not null;default:0"`
	SupportsSmokers      bool                         `json:"supports_smokers" gorm:"not null;default:false"`
	CoveredConditions    datatypes.JSONSlice[string]  `json:"covered_conditions" gorm:"type:jsonb"`
	Exclusions           datatypes.JSONSlice[string]  `json:"exclusions" gorm:"type:jsonb"`
	Factors              FactorTable                  `json:"factors" gorm:"embedded;embeddedPrefix:factor_"`
	Active               bool                         `json:"active" gorm:"not null;default:true"`
	CreatedAt            time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt            gorm.DeletedAt               `json:"-" gorm:"index"`
}

// TableName sets the database table name.
func (Policy) TableName() string { return "policies" }

// FactorTable is the per-policy multiplier configuration. A factor of
// exactly 1.0 means "no effect"; 0 is treated as unset and falls back
// to 1.0 at pricing time. LoyaltyDiscount is a reduction rate, not a
// multiplier, and must stay in [0, 1).
type FactorTable struct {
	Age0To2          float64 `json:"age_0_2" gorm:"column:age_0_2"`
	Age3To17         float64 `json:"age_3_17" gorm:"column:age_3_17"`
	Age18To24        float64 `json:"age_18_24" gorm:"column:age_18_24"`
	Age25PlusBase    float64 `json:"age_25_plus_base" gorm:"column:age_25_plus_base"`
	PerYearStep      float64 `json:"per_year_step" gorm:"column:per_year_step"`
	Smoker           float64 `json:"smoker" gorm:"column:smoker"`
	Condition        float64 `json:"condition" gorm:"column:condition"`
	FamilyBase       float64 `json:"family_base" gorm:"column:family_base"`
	FamilyMemberStep float64 `json:"family_member_step" gorm:"column:family_member_step"`
	RegionUrban      float64 `json:"region_urban" gorm:"column:region_urban"`
	RegionSemiUrban  float64 `json:"region_semi_urban" gorm:"column:region_semi_urban"`
	RegionRural      float64 `json:"region_rural" gorm:"column:region_rural"`
	BMIOverweight    float64 `json:"bmi_overweight" gorm:"column:bmi_overweight"`
	BMIObese         float64 `json:"bmi_obese" gorm:"column:bmi_obese"`
	OccupationClass2 float64 `json:"occupation_class_2" gorm:"column:occupation_class_2"`
	OccupationClass3 float64 `json:"occupation_class_3" gorm:"column:occupation_class_3"`
	LoyaltyDiscount  float64 `json:"loyalty_discount" gorm:"column:loyalty_discount"`
}

// Covers reports whether the policy covers the given condition code.
func (p *Policy) Covers(condition string) bool {
	for _, c := range p.CoveredConditions {
		if c == condition {
			return true
		}
	}
	return false
}
