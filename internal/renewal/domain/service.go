// Package domain defines the renewal scheduling contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	"gorm.io/gorm"
)

type Service interface {
	// ComputeNextRenewal is the pure scheduling rule: the anchor is the
	// first verified payment, never the most recent, so the schedule
	// stays stable even when a payment is verified late.
	ComputeNextRenewal(cycle purchasedomain.BillingCycle, verifiedCount int, firstVerifiedAt time.Time) (time.Time, error)

	// Reschedule recomputes and persists next_renewal_date for the
	// purchase request from its verified-payment history, and marks the
	// renewal status active when the new date is in the future. Runs
	// inside the caller's transaction.
	Reschedule(ctx context.Context, tx *gorm.DB, purchase *purchasedomain.PurchaseRequest) (time.Time, error)
}

// PaymentLookup is the query capability the scheduler needs from the
// payment store: the earliest verified payment and the verified count
// for one purchase request.
type PaymentLookup interface {
	FirstVerifiedAt(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) (*time.Time, error)
	CountVerified(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) (int64, error)
}

var (
	ErrInvalidBillingCycle  = errors.New("invalid_billing_cycle")
	ErrNoVerifiedPayments   = errors.New("no_verified_payments")
	ErrInvalidVerifiedCount = errors.New("invalid_verified_count")
)
