package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingdomain "github.com/sushiltimalsina/bemasathi/internal/pricing/domain"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	"github.com/sushiltimalsina/bemasathi/pkg/db"
	"github.com/sushiltimalsina/bemasathi/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	PolicySvc  policydomain.Service
	PricingSvc pricingdomain.Service
	Profiles   buyerdomain.ProfileSource
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	clock        clock.Clock
	policySvc    policydomain.Service
	pricingSvc   pricingdomain.Service
	profiles     buyerdomain.ProfileSource
	purchaserepo repository.Repository[purchasedomain.PurchaseRequest]
}

func NewService(p ServiceParam) purchasedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("purchase.service"),

		genID:        p.GenID,
		clock:        p.Clock,
		policySvc:    p.PolicySvc,
		pricingSvc:   p.PricingSvc,
		profiles:     p.Profiles,
		purchaserepo: repository.ProvideStore[purchasedomain.PurchaseRequest](p.DB),
	}
}

// Create commits one buyer to one policy. The full-term premium is
// priced at commit time and the per-cycle installment is derived once;
// it does not change afterwards except through UpdateCycleAmount.
func (s *Service) Create(ctx context.Context, req purchasedomain.CreateRequest) (*purchasedomain.PurchaseRequest, error) {
	installments, ok := req.BillingCycle.InstallmentsPerYear()
	if !ok {
		return nil, purchasedomain.ErrInvalidBillingCycle
	}

	buyerID, err := snowflake.ParseString(strings.TrimSpace(req.BuyerID))
	if err != nil {
		return nil, purchasedomain.ErrPurchaseNotFound
	}

	policy, err := s.policySvc.Get(ctx, req.PolicyID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Profile(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricingSvc.Quote(ctx, policy, profile)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	purchase := &purchasedomain.PurchaseRequest{
		ID:                s.genID.Generate(),
		BuyerID:           buyerID,
		PolicyID:          policy.ID,
		Status:            purchasedomain.StatusPending,
		BillingCycle:      req.BillingCycle,
		CycleAmount:       divideRoundHalfUp(quote.Premium, int64(installments)),
		CalculatedPremium: quote.Premium,
		Currency:          quote.Currency,
		RenewalStatus:     purchasedomain.RenewalActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.purchaserepo.Create(ctx, purchase); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, purchasedomain.ErrDuplicatePurchase
		}
		return nil, err
	}

	return purchase, nil
}

func (s *Service) Get(ctx context.Context, id string) (*purchasedomain.PurchaseRequest, error) {
	purchaseID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, purchasedomain.ErrPurchaseNotFound
	}

	purchase, err := s.purchaserepo.FindOne(ctx, &purchasedomain.PurchaseRequest{ID: purchaseID})
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, purchasedomain.ErrPurchaseNotFound
	}
	return purchase, nil
}

func (s *Service) UpdateCycleAmount(ctx context.Context, purchaseID string, amount int64) error {
	if amount <= 0 {
		return purchasedomain.ErrInvalidCycleAmount
	}

	purchase, err := s.Get(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.Status == purchasedomain.StatusCancelled {
		return purchasedomain.ErrPurchaseCancelled
	}

	s.log.Info("cycle amount edited",
		zap.String("purchase_id", purchase.ID.String()),
		zap.Int64("previous", purchase.CycleAmount),
		zap.Int64("amount", amount),
	)

	return s.purchaserepo.Update(ctx, purchase.ID.String(), map[string]any{
		"cycle_amount": amount,
		"updated_at":   s.clock.Now(),
	})
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	purchase, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.purchaserepo.Update(ctx, purchase.ID.String(), map[string]any{
		"status":     purchasedomain.StatusCancelled,
		"updated_at": s.clock.Now(),
	})
}

func divideRoundHalfUp(amount, parts int64) int64 {
	if parts <= 0 {
		return amount
	}
	return (amount + parts/2) / parts
}
