package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"github.com/sushiltimalsina/bemasathi/internal/config"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	pricingservice "github.com/sushiltimalsina/bemasathi/internal/pricing/service"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type policyStub struct {
	policy *policydomain.Policy
}

func (p *policyStub) Create(ctx context.Context, policy *policydomain.Policy) error { return nil }
func (p *policyStub) Update(ctx context.Context, policy *policydomain.Policy) error { return nil }
func (p *policyStub) ListActive(ctx context.Context) ([]*policydomain.Policy, error) {
	return []*policydomain.Policy{p.policy}, nil
}
func (p *policyStub) Deactivate(ctx context.Context, id string) error { return nil }
func (p *policyStub) List(ctx context.Context, req policydomain.ListRequest) (policydomain.ListResponse, error) {
	return policydomain.ListResponse{Policies: []*policydomain.Policy{p.policy}}, nil
}
func (p *policyStub) Get(ctx context.Context, id string) (*policydomain.Policy, error) {
	if p.policy != nil && p.policy.ID.String() == id {
		return p.policy, nil
	}
	return nil, policydomain.ErrPolicyNotFound
}

type profileStub struct {
	profile buyerdomain.Profile
}

func (p *profileStub) Profile(ctx context.Context, buyerID snowflake.ID) (buyerdomain.Profile, error) {
	profile := p.profile
	profile.BuyerID = buyerID
	return profile, nil
}

var purchaseTestTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, dsnName string, policy *policydomain.Policy) purchasedomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+dsnName+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&purchasedomain.PurchaseRequest{}))

	node, err := snowflake.NewNode(3)
	assert.NoError(t, err)

	pricing := pricingservice.NewService(pricingservice.ServiceParam{
		Log:    zap.NewNop(),
		Engine: config.StaticEngineConfigHolder(config.DefaultEngineConfig()),
	})

	return NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(purchaseTestTime),
		PolicySvc:  &policyStub{policy: policy},
		PricingSvc: pricing,
		Profiles:   &profileStub{profile: buyerdomain.Profile{Age: 30}},
	})
}

func testPolicy() *policydomain.Policy {
	return &policydomain.Policy{
		ID:          7001,
		Name:        "Sunrise Term Life",
		BasePremium: 12000,
		Currency:    "NPR",
		Active:      true,
	}
}

func TestCreate_DerivesCycleAmount(t *testing.T) {
	policy := testPolicy()
	svc := newTestService(t, "purchase_create", policy)

	purchase, err := svc.Create(context.Background(), purchasedomain.CreateRequest{
		BuyerID:      "42",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.CycleMonthly,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(12000), purchase.CalculatedPremium)
	assert.Equal(t, int64(1000), purchase.CycleAmount)
	assert.Equal(t, purchasedomain.StatusPending, purchase.Status)
	assert.Equal(t, purchasedomain.RenewalActive, purchase.RenewalStatus)
	assert.Nil(t, purchase.NextRenewalDate)
	// Stamped from the injected clock, not the wall clock.
	assert.True(t, purchase.CreatedAt.Equal(purchaseTestTime))
	assert.True(t, purchase.UpdatedAt.Equal(purchaseTestTime))
}

func TestCreate_CycleAmountRoundsHalfUp(t *testing.T) {
	policy := testPolicy()
	policy.BasePremium = 10000 // 10000/12 = 833.33 -> 833; quarterly 2500
	svc := newTestService(t, "purchase_round", policy)

	purchase, err := svc.Create(context.Background(), purchasedomain.CreateRequest{
		BuyerID:      "43",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.CycleMonthly,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(833), purchase.CycleAmount)

	assert.Equal(t, int64(834), divideRoundHalfUp(10002, 12))
	assert.Equal(t, int64(2500), divideRoundHalfUp(10000, 4))
}

func TestCreate_InvalidBillingCycle(t *testing.T) {
	policy := testPolicy()
	svc := newTestService(t, "purchase_badcycle", policy)

	_, err := svc.Create(context.Background(), purchasedomain.CreateRequest{
		BuyerID:      "44",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.BillingCycle("fortnightly"),
	})
	assert.ErrorIs(t, err, purchasedomain.ErrInvalidBillingCycle)
}

func TestCreate_DuplicatePairRejected(t *testing.T) {
	policy := testPolicy()
	svc := newTestService(t, "purchase_duppair", policy)

	req := purchasedomain.CreateRequest{
		BuyerID:      "45",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.CycleYearly,
	}
	_, err := svc.Create(context.Background(), req)
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, purchasedomain.ErrDuplicatePurchase)
}

func TestUpdateCycleAmount(t *testing.T) {
	policy := testPolicy()
	svc := newTestService(t, "purchase_editcycle", policy)

	purchase, err := svc.Create(context.Background(), purchasedomain.CreateRequest{
		BuyerID:      "46",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.CycleMonthly,
	})
	assert.NoError(t, err)

	assert.NoError(t, svc.UpdateCycleAmount(context.Background(), purchase.ID.String(), 1500))

	stored, err := svc.Get(context.Background(), purchase.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), stored.CycleAmount)
	// The full-term premium is not touched by an installment edit.
	assert.Equal(t, int64(12000), stored.CalculatedPremium)

	assert.ErrorIs(t, svc.UpdateCycleAmount(context.Background(), purchase.ID.String(), 0),
		purchasedomain.ErrInvalidCycleAmount)
}

func TestUpdateCycleAmount_CancelledPurchase(t *testing.T) {
	policy := testPolicy()
	svc := newTestService(t, "purchase_cancelled", policy)

	purchase, err := svc.Create(context.Background(), purchasedomain.CreateRequest{
		BuyerID:      "47",
		PolicyID:     policy.ID.String(),
		BillingCycle: purchasedomain.CycleMonthly,
	})
	assert.NoError(t, err)
	assert.NoError(t, svc.Cancel(context.Background(), purchase.ID.String()))

	err = svc.UpdateCycleAmount(context.Background(), purchase.ID.String(), 1200)
	assert.ErrorIs(t, err, purchasedomain.ErrPurchaseCancelled)

	stored, err := svc.Get(context.Background(), purchase.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, purchasedomain.StatusCancelled, stored.Status)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(t, "purchase_get_missing", testPolicy())

	_, err := svc.Get(context.Background(), "123456789")
	assert.ErrorIs(t, err, purchasedomain.ErrPurchaseNotFound)

	_, err = svc.Get(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, purchasedomain.ErrPurchaseNotFound)
}
