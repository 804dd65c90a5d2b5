package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/sushiltimalsina/bemasathi/pkg/db/pagination"
)

type Service interface {
	Create(context.Context, *Policy) error
	Update(context.Context, *Policy) error
	Get(context.Context, string) (*Policy, error)
	List(context.Context, ListRequest) (ListResponse, error)
	ListActive(context.Context) ([]*Policy, error)
	Deactivate(context.Context, string) error
}

// ListRequest pages through the active catalog with an opaque cursor.
type ListRequest struct {
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Policies []*Policy           `json:"policies"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrPolicyNotFound      = errors.New("policy_not_found")
	ErrInvalidFactorConfig = errors.New("invalid_factor_configuration")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
)

// Validate enforces the factor-table invariants at admin-save time so a
// misconfigured policy never reaches the pricing path.
func (p *Policy) Validate() error {
	if p.BasePremium <= 0 {
		return fmt.Errorf("%w: base_premium must be positive", ErrInvalidFactorConfig)
	}
	if p.CoverageLimit <= 0 {
		return fmt.Errorf("%w: coverage_limit must be positive", ErrInvalidFactorConfig)
	}

	factors := map[string]float64{
		"age_0_2":            p.Factors.Age0To2,
		"age_3_17":           p.Factors.Age3To17,
		"age_18_24":          p.Factors.Age18To24,
		"age_25_plus_base":   p.Factors.Age25PlusBase,
		"per_year_step":      p.Factors.PerYearStep,
		"smoker":             p.Factors.Smoker,
		"condition":          p.Factors.Condition,
		"family_base":        p.Factors.FamilyBase,
		"family_member_step": p.Factors.FamilyMemberStep,
		"region_urban":       p.Factors.RegionUrban,
		"region_semi_urban":  p.Factors.RegionSemiUrban,
		"region_rural":       p.Factors.RegionRural,
		"bmi_overweight":     p.Factors.BMIOverweight,
		"bmi_obese":          p.Factors.BMIObese,
		"occupation_class_2": p.Factors.OccupationClass2,
		"occupation_class_3": p.Factors.OccupationClass3,
	}
	for name, value := range factors {
		if value < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidFactorConfig, name)
		}
	}

	if p.Factors.LoyaltyDiscount < 0 || p.Factors.LoyaltyDiscount >= 1 {
		return fmt.Errorf("%w: loyalty_discount must be in [0, 1)", ErrInvalidFactorConfig)
	}

	return nil
}
