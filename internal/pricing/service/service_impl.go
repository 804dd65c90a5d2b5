package service

import (
	"context"
	"math"

	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	obsmetrics "github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingdomain "github.com/sushiltimalsina/bemasathi/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Engine  *config.EngineConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	engine  *config.EngineConfigHolder
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) pricingdomain.Service {
	return &Service{
		log:     p.Log.Named("pricing.service"),
		engine:  p.Engine,
		metrics: p.Metrics,
	}
}

// pipeline is the fixed, documented order of the factor chain. Each step
// is independent; the smoker eligibility gate runs before the chain.
var pipeline = []step{
	applyAgeBracket,
	applySmoker,
	applyConditions,
	applyFamily,
	applyRegion,
	applyBMI,
	applyOccupation,
}

func (s *Service) Quote(_ context.Context, policy *policydomain.Policy, profile buyerdomain.Profile) (pricingdomain.Quote, error) {
	if policy == nil || policy.BasePremium <= 0 {
		return pricingdomain.Quote{}, pricingdomain.ErrInvalidPolicy
	}

	// Eligibility gate, not a price adjustment: a smoker cannot be priced
	// against a policy that does not support smokers.
	if profile.IsSmoker && !policy.SupportsSmokers {
		s.countQuote("ineligible_risk")
		return pricingdomain.Quote{}, pricingdomain.ErrIneligibleRisk
	}

	premium := float64(policy.BasePremium)
	for _, apply := range pipeline {
		premium = apply(premium, policy, profile)
	}

	premium = s.applyLoyalty(premium, policy, profile)

	rounded := roundMoney(premium)
	if rounded <= 0 {
		// Unreachable given the non-negativity invariant on factors; a
		// wrong price must never be returned silently.
		s.log.Error("computed non-positive premium",
			zap.String("policy_id", policy.ID.String()),
			zap.Float64("raw_premium", premium),
		)
		s.countQuote("non_positive")
		return pricingdomain.Quote{}, pricingdomain.ErrNonPositivePremium
	}

	s.countQuote("ok")
	return pricingdomain.Quote{
		PolicyID: policy.ID,
		Premium:  rounded,
		Currency: policy.Currency,
	}, nil
}

func (s *Service) QuoteRange(policy *policydomain.Policy) (pricingdomain.PremiumRange, error) {
	if policy == nil || policy.BasePremium <= 0 {
		return pricingdomain.PremiumRange{}, pricingdomain.ErrInvalidPolicy
	}

	multiplier := s.engine.Current().Pricing.GuestRangeMultiplier
	return pricingdomain.PremiumRange{
		PolicyID: policy.ID,
		Min:      policy.BasePremium,
		Max:      roundMoney(float64(policy.BasePremium) * multiplier),
		Currency: policy.Currency,
	}, nil
}

// applyLoyalty is the final multiplicative reduction. Tenure is capped
// at the configured ceiling so long-standing accounts converge on the
// full discount instead of growing without bound.
func (s *Service) applyLoyalty(premium float64, policy *policydomain.Policy, profile buyerdomain.Profile) float64 {
	discount := policy.Factors.LoyaltyDiscount
	if discount <= 0 || profile.TenureYears <= 0 {
		return premium
	}
	ceiling := s.engine.Current().Pricing.LoyaltyTenureCeilingYears
	return premium * (1 - discount*math.Min(1, profile.TenureYears/ceiling))
}

func (s *Service) countQuote(result string) {
	if s.metrics != nil {
		s.metrics.QuoteComputed(result)
	}
}
