package domain

import (
	"context"
	"errors"

	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
)

type Service interface {
	// Quote computes the personalized premium for one buyer/policy pair.
	Quote(ctx context.Context, policy *policydomain.Policy, profile buyerdomain.Profile) (Quote, error)
	// QuoteRange returns the fixed multiplicative envelope for guests.
	QuoteRange(policy *policydomain.Policy) (PremiumRange, error)
}

var (
	// ErrIneligibleRisk is the eligibility gate: a smoker priced against a
	// policy that does not support smokers. Blocks pricing and purchase.
	ErrIneligibleRisk = errors.New("ineligible_risk")
	// ErrNonPositivePremium marks a computed premium at or below zero.
	// The factor non-negativity invariant makes this unreachable; seeing
	// it means a programming error, never a quotable price.
	ErrNonPositivePremium = errors.New("non_positive_premium")
	ErrInvalidPolicy      = errors.New("invalid_policy")
)
