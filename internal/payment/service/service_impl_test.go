package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	notificationdomain "github.com/sushiltimalsina/bemasathi/internal/notification/domain"
	"github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/repository"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	"github.com/sushiltimalsina/bemasathi/internal/providers/pdf"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	renewalservice "github.com/sushiltimalsina/bemasathi/internal/renewal/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// prometheus collectors register globally, so build them once per binary.
var testMetrics = metrics.New()

type dispatchedCall struct {
	userID     snowflake.ID
	templateID string
	data       map[string]any
}

type dispatcherStub struct {
	calls []dispatchedCall
}

func (d *dispatcherStub) Dispatch(ctx context.Context, userID snowflake.ID, templateID string, data map[string]any) error {
	d.calls = append(d.calls, dispatchedCall{userID: userID, templateID: templateID, data: data})
	return nil
}

type contactsStub struct{}

func (contactsStub) Contact(ctx context.Context, buyerID snowflake.ID) (buyerdomain.Contact, error) {
	return buyerdomain.Contact{BuyerID: buyerID, FullName: "Sita Sharma", Email: "sita@example.com"}, nil
}

type fixture struct {
	db         *gorm.DB
	svc        *Service
	clock      *clock.FakeClock
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

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	repo := repository.NewRepository(db)
	renewal := renewalservice.NewService(renewalservice.ServiceParam{
		Log:      zap.NewNop(),
		Clock:    fake,
		Payments: repo,
	})

	dispatcher := &dispatcherStub{}
	svc := NewService(ServiceParam{
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

	policy := &policydomain.Policy{
		ID:          501,
		Name:        "Shield Health Family",
		BasePremium: 18000,
		Currency:    "NPR",
		Active:      true,
	}
	assert.NoError(t, db.Create(policy).Error)

	purchase := &purchasedomain.PurchaseRequest{
		ID:                601,
		BuyerID:           701,
		PolicyID:          policy.ID,
		Status:            purchasedomain.StatusPending,
		BillingCycle:      purchasedomain.CycleMonthly,
		CycleAmount:       1500,
		CalculatedPremium: 18000,
		Currency:          "NPR",
		RenewalStatus:     purchasedomain.RenewalActive,
	}
	assert.NoError(t, db.Create(purchase).Error)

	return &fixture{db: db, svc: svc, clock: fake, dispatcher: dispatcher, purchase: purchase}
}

func (f *fixture) record(t *testing.T, ref string) *paymentdomain.Payment {
	t.Helper()
	payment, err := f.svc.Record(context.Background(), paymentdomain.RecordRequest{
		PurchaseRequestID: f.purchase.ID,
		TransactionRef:    ref,
	})
	assert.NoError(t, err)
	return payment
}

func (f *fixture) reloadPurchase(t *testing.T) *purchasedomain.PurchaseRequest {
	t.Helper()
	var p purchasedomain.PurchaseRequest
	assert.NoError(t, f.db.First(&p, "id = ?", f.purchase.ID).Error)
	return &p
}

func TestRecord_DuplicateRefReturnsExisting(t *testing.T) {
	f := newFixture(t, "payment_record_dup")

	first := f.record(t, "txn-esewa-001")
	second := f.record(t, "txn-esewa-001")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, paymentdomain.StatusPending, second.Status)

	// Amount defaults to the purchase installment.
	assert.Equal(t, f.purchase.CycleAmount, first.Amount)

	var count int64
	assert.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecord_RejectsEmptyRef(t *testing.T) {
	f := newFixture(t, "payment_record_emptyref")

	_, err := f.svc.Record(context.Background(), paymentdomain.RecordRequest{
		PurchaseRequestID: f.purchase.ID,
	})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidTransaction)
}

func TestVerify_Idempotent(t *testing.T) {
	f := newFixture(t, "payment_verify_idem")

	payment := f.record(t, "txn-esewa-100")

	verified, err := f.svc.Verify(context.Background(), payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusVerified, verified.Status)
	assert.True(t, verified.IsVerified)
	assert.NotNil(t, verified.VerifiedAt)

	purchase := f.reloadPurchase(t)
	assert.Equal(t, purchasedomain.StatusCompleted, purchase.Status)
	assert.NotNil(t, purchase.NextRenewalDate)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), purchase.NextRenewalDate.UTC())

	assert.Len(t, f.dispatcher.calls, 1)
	assert.Equal(t, notificationdomain.TemplatePurchaseConfirmed, f.dispatcher.calls[0].templateID)
	assert.Equal(t, f.purchase.BuyerID, f.dispatcher.calls[0].userID)

	// Replay: same terminal state, no second notification, schedule untouched.
	again, err := f.svc.Verify(context.Background(), payment.ID)
	assert.NoError(t, err)
	assert.Equal(t, verified.ID, again.ID)
	assert.True(t, again.IsVerified)

	purchase = f.reloadPurchase(t)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), purchase.NextRenewalDate.UTC())
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestVerify_RenewalAnchorsOnFirstPayment(t *testing.T) {
	f := newFixture(t, "payment_verify_anchor")

	// Jan 10 anchor; the later installments land off-schedule but the
	// renewal date still walks the anchor forward in whole cycles.
	p1 := f.record(t, "txn-201")
	_, err := f.svc.Verify(context.Background(), p1.ID)
	assert.NoError(t, err)

	f.clock.Advance(33 * 24 * time.Hour) // Feb 12
	p2 := f.record(t, "txn-202")
	_, err = f.svc.Verify(context.Background(), p2.ID)
	assert.NoError(t, err)

	f.clock.Advance(25 * 24 * time.Hour) // Mar 8
	p3 := f.record(t, "txn-203")
	_, err = f.svc.Verify(context.Background(), p3.ID)
	assert.NoError(t, err)

	purchase := f.reloadPurchase(t)
	assert.NotNil(t, purchase.NextRenewalDate)
	assert.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), purchase.NextRenewalDate.UTC())

	assert.Len(t, f.dispatcher.calls, 3)
	assert.Equal(t, notificationdomain.TemplatePurchaseConfirmed, f.dispatcher.calls[0].templateID)
	assert.Equal(t, notificationdomain.TemplateRenewalConfirmed, f.dispatcher.calls[1].templateID)
	assert.Equal(t, notificationdomain.TemplateRenewalConfirmed, f.dispatcher.calls[2].templateID)
	assert.Equal(t, "2024-04-10", f.dispatcher.calls[2].data["next_renewal_date"])
}

func TestVerify_AfterFailedIsConflict(t *testing.T) {
	f := newFixture(t, "payment_verify_afterfail")

	payment := f.record(t, "txn-301")
	_, err := f.svc.MarkFailed(context.Background(), payment.ID, "insufficient_funds")
	assert.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), payment.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentFailed)
}

func TestMarkFailed_NotifiesOnce(t *testing.T) {
	f := newFixture(t, "payment_fail_once")

	payment := f.record(t, "txn-401")

	failed, err := f.svc.MarkFailed(context.Background(), payment.ID, "gateway_timeout")
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, failed.Status)
	assert.Equal(t, "gateway_timeout", failed.FailureReason)
	assert.True(t, failed.FailedNotified)
	assert.Len(t, f.dispatcher.calls, 1)
	assert.Equal(t, notificationdomain.TemplatePaymentFailed, f.dispatcher.calls[0].templateID)

	// Gateway retries the failure callback.
	again, err := f.svc.MarkFailed(context.Background(), payment.ID, "gateway_timeout")
	assert.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusFailed, again.Status)
	assert.Len(t, f.dispatcher.calls, 1)
}

func TestMarkFailed_AfterVerifiedIsConflict(t *testing.T) {
	f := newFixture(t, "payment_fail_afterverify")

	payment := f.record(t, "txn-501")
	_, err := f.svc.Verify(context.Background(), payment.ID)
	assert.NoError(t, err)

	_, err = f.svc.MarkFailed(context.Background(), payment.ID, "late_decline")
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentVerified)

	// The verified state and its schedule survive the late decline.
	current, err := f.svc.Get(context.Background(), payment.ID)
	assert.NoError(t, err)
	assert.True(t, current.IsVerified)
	assert.Equal(t, purchasedomain.StatusCompleted, f.reloadPurchase(t).Status)
}

func TestReceiptPDF_NotFound(t *testing.T) {
	f := newFixture(t, "payment_receipt_missing")

	payment := f.record(t, "txn-601")
	_, err := f.svc.Verify(context.Background(), payment.ID)
	assert.NoError(t, err)

	// The no-op renderer stores nothing, so the download misses.
	_, err = f.svc.ReceiptPDF(context.Background(), payment.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrReceiptNotFound)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t, "payment_get_missing")

	_, err := f.svc.Get(context.Background(), snowflake.ID(999999))
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}
