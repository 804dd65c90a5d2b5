package webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/repository"
	paymentservice "github.com/sushiltimalsina/bemasathi/internal/payment/service"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	"github.com/sushiltimalsina/bemasathi/internal/providers/pdf"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	renewalservice "github.com/sushiltimalsina/bemasathi/internal/renewal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testMetrics = metrics.New()

type dispatcherStub struct {
	templates []string
}

func (d *dispatcherStub) Dispatch(ctx context.Context, userID snowflake.ID, templateID string, data map[string]any) error {
	d.templates = append(d.templates, templateID)
	return nil
}

type contactsStub struct{}

func (contactsStub) Contact(ctx context.Context, buyerID snowflake.ID) (buyerdomain.Contact, error) {
	return buyerdomain.Contact{BuyerID: buyerID, FullName: "Hari Thapa", Email: "hari@example.com"}, nil
}

type fixture struct {
	db         *gorm.DB
	svc        *Service
	dispatcher *dispatcherStub
	purchase   *purchasedomain.PurchaseRequest
}

func newFixture(t *testing.T, dsnName string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+dsnName+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&paymentdomain.Payment{},
		&paymentdomain.Receipt{},
		&purchasedomain.PurchaseRequest{},
		&policydomain.Policy{},
	))

	node, err := snowflake.NewNode(2)
	assert.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	repo := repository.NewRepository(db)
	renewal := renewalservice.NewService(renewalservice.ServiceParam{
		Log:      zap.NewNop(),
		Clock:    fake,
		Payments: repo,
	})

	dispatcher := &dispatcherStub{}
	paySvc := paymentservice.NewService(paymentservice.ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Metrics:    testMetrics,
		Repo:       repo,
		Renewal:    renewal,
		Dispatcher: dispatcher,
		Contacts:   contactsStub{},
		PDF:        &pdf.NoOpProvider{},
	})

	policy := &policydomain.Policy{ID: 501, Name: "Shield Health", BasePremium: 12000, Currency: "NPR", Active: true}
	assert.NoError(t, db.Create(policy).Error)

	purchase := &purchasedomain.PurchaseRequest{
		ID:                801,
		BuyerID:           901,
		PolicyID:          policy.ID,
		Status:            purchasedomain.StatusPending,
		BillingCycle:      purchasedomain.CycleMonthly,
		CycleAmount:       1000,
		CalculatedPremium: 12000,
		Currency:          "NPR",
		RenewalStatus:     purchasedomain.RenewalActive,
	}
	assert.NoError(t, db.Create(purchase).Error)

	return &fixture{
		db:         db,
		svc:        NewService(Params{Log: zap.NewNop(), PaymentSvc: paySvc}),
		dispatcher: dispatcher,
		purchase:   purchase,
	}
}

func (f *fixture) payload(ref, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"transaction_reference":%q,"purchase_request_id":%q,"status":%q,"amount":1000}`,
		ref, f.purchase.ID.String(), status,
	))
}

func TestIngest_SuccessVerifies(t *testing.T) {
	f := newFixture(t, "webhook_success")

	payment, err := f.svc.Ingest(context.Background(), f.payload("txn-wh-1", "success"))
	assert.NoError(t, err)
	assert.True(t, payment.IsVerified)
	assert.Equal(t, paymentdomain.StatusVerified, payment.Status)

	var purchase purchasedomain.PurchaseRequest
	assert.NoError(t, f.db.First(&purchase, "id = ?", f.purchase.ID).Error)
	assert.Equal(t, purchasedomain.StatusCompleted, purchase.Status)
	assert.NotNil(t, purchase.NextRenewalDate)
}

func TestIngest_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t, "webhook_replay")

	body := f.payload("txn-wh-2", "completed")
	first, err := f.svc.Ingest(context.Background(), body)
	assert.NoError(t, err)
	second, err := f.svc.Ingest(context.Background(), body)
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsVerified)
	assert.Len(t, f.dispatcher.templates, 1)

	var count int64
	assert.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngest_FailureNotifiesOnce(t *testing.T) {
	f := newFixture(t, "webhook_failure")

	body := []byte(fmt.Sprintf(
		`{"transaction_reference":"txn-wh-3","purchase_request_id":%q,"status":"declined","reason":"card_declined"}`,
		f.purchase.ID.String(),
	))
	payment, err := f.svc.Ingest(context.Background(), body)
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, payment.Status)
	assert.Equal(t, "card_declined", payment.FailureReason)

	_, err = f.svc.Ingest(context.Background(), body)
	assert.NoError(t, err)
	assert.Len(t, f.dispatcher.templates, 1)
}

func TestIngest_PendingRecordsWithoutTransition(t *testing.T) {
	f := newFixture(t, "webhook_pending")

	payment, err := f.svc.Ingest(context.Background(), f.payload("txn-wh-4", "pending"))
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, payment.Status)
	assert.False(t, payment.IsVerified)
	assert.Empty(t, f.dispatcher.templates)
}

func TestIngest_UnknownStatus(t *testing.T) {
	f := newFixture(t, "webhook_unknown")

	_, err := f.svc.Ingest(context.Background(), f.payload("txn-wh-5", "teleported"))
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestIngest_InvalidPayload(t *testing.T) {
	f := newFixture(t, "webhook_invalid")

	_, err := f.svc.Ingest(context.Background(), []byte("not json at all"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = f.svc.Ingest(context.Background(), []byte(`{"status":"success"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidTransaction)
}
