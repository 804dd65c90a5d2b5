package service

import (
	"context"
	"time"

	"github.com/sushiltimalsina/bemasathi/internal/clock"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	renewaldomain "github.com/sushiltimalsina/bemasathi/internal/renewal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Payments renewaldomain.PaymentLookup
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	payments renewaldomain.PaymentLookup
}

func NewService(p ServiceParam) renewaldomain.Service {
	return &Service{
		log:      p.Log.Named("renewal.service"),
		clock:    p.Clock,
		payments: p.Payments,
	}
}

func (s *Service) ComputeNextRenewal(cycle purchasedomain.BillingCycle, verifiedCount int, firstVerifiedAt time.Time) (time.Time, error) {
	if verifiedCount <= 0 {
		return time.Time{}, renewaldomain.ErrInvalidVerifiedCount
	}
	if firstVerifiedAt.IsZero() {
		return time.Time{}, renewaldomain.ErrNoVerifiedPayments
	}

	next, ok := cycle.Advance(firstVerifiedAt.UTC(), verifiedCount)
	if !ok {
		return time.Time{}, renewaldomain.ErrInvalidBillingCycle
	}
	return next, nil
}

func (s *Service) Reschedule(ctx context.Context, tx *gorm.DB, purchase *purchasedomain.PurchaseRequest) (time.Time, error) {
	count, err := s.payments.CountVerified(ctx, tx, purchase.ID)
	if err != nil {
		return time.Time{}, err
	}
	anchor, err := s.payments.FirstVerifiedAt(ctx, tx, purchase.ID)
	if err != nil {
		return time.Time{}, err
	}
	if count == 0 || anchor == nil {
		return time.Time{}, renewaldomain.ErrNoVerifiedPayments
	}

	next, err := s.ComputeNextRenewal(purchase.BillingCycle, int(count), *anchor)
	if err != nil {
		return time.Time{}, err
	}

	// This path only ever sets "active"; the passive time-based flips to
	// due and expired belong to the periodic transition job.
	status := purchase.RenewalStatus
	if next.After(s.clock.Now()) {
		status = purchasedomain.RenewalActive
	}

	err = tx.WithContext(ctx).Exec(
		`UPDATE purchase_requests
		 SET next_renewal_date = ?, renewal_status = ?, updated_at = ?
		 WHERE id = ?`,
		next,
		status,
		s.clock.Now(),
		purchase.ID,
	).Error
	if err != nil {
		return time.Time{}, err
	}

	purchase.NextRenewalDate = &next
	purchase.RenewalStatus = status
	return next, nil
}
