package domain

import (
	"context"
	"errors"
)

type CreateRequest struct {
	BuyerID      string
	PolicyID     string
	BillingCycle BillingCycle
}

type Service interface {
	Create(context.Context, CreateRequest) (*PurchaseRequest, error)
	Get(context.Context, string) (*PurchaseRequest, error)
	// UpdateCycleAmount is the explicit admin edit; cycle_amount never
	// changes through any other path after purchase.
	UpdateCycleAmount(ctx context.Context, purchaseID string, amount int64) error
	Cancel(context.Context, string) error
}

var (
	ErrPurchaseNotFound    = errors.New("purchase_request_not_found")
	ErrDuplicatePurchase   = errors.New("duplicate_purchase_request")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrInvalidCycleAmount  = errors.New("invalid_cycle_amount")
	ErrPurchaseCancelled   = errors.New("purchase_request_cancelled")
)
