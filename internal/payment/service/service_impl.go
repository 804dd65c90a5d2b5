// Package service implements the payment verification state machine.
// Transitions are idempotent: the row flip is a conditional update that
// exactly one writer wins, and notifications, renewal recomputation and
// receipt rendering only run on the winning path.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	notificationdomain "github.com/sushiltimalsina/bemasathi/internal/notification/domain"
	"github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/repository"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	"github.com/sushiltimalsina/bemasathi/internal/providers/pdf"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	renewaldomain "github.com/sushiltimalsina/bemasathi/internal/renewal/domain"
	"github.com/sushiltimalsina/bemasathi/pkg/db"
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
	Metrics    *metrics.Metrics
	Repo       *repository.Repository
	Renewal    renewaldomain.Service
	Dispatcher notificationdomain.Dispatcher
	Contacts   buyerdomain.ContactSource
	PDF        pdf.Provider
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	metrics    *metrics.Metrics
	repo       *repository.Repository
	renewal    renewaldomain.Service
	dispatcher notificationdomain.Dispatcher
	contacts   buyerdomain.ContactSource
	pdf        pdf.Provider
}

func NewService(p ServiceParam) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		metrics:    p.Metrics,
		repo:       p.Repo,
		renewal:    p.Renewal,
		dispatcher: p.Dispatcher,
		contacts:   p.Contacts,
		pdf:        p.PDF,
	}
}

var _ paymentdomain.Service = (*Service)(nil)

func (s *Service) Record(ctx context.Context, req paymentdomain.RecordRequest) (*paymentdomain.Payment, error) {
	if req.TransactionRef == "" {
		return nil, paymentdomain.ErrInvalidTransaction
	}

	var purchase purchasedomain.PurchaseRequest
	err := s.db.WithContext(ctx).Where("id = ?", req.PurchaseRequestID).First(&purchase).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, purchasedomain.ErrPurchaseNotFound
		}
		return nil, err
	}

	amount := req.Amount
	if amount == 0 {
		amount = purchase.CycleAmount
	}

	payment := &paymentdomain.Payment{
		ID:                s.genID.Generate(),
		PurchaseRequestID: purchase.ID,
		BuyerID:           purchase.BuyerID,
		Amount:            amount,
		Currency:          purchase.Currency,
		Status:            paymentdomain.StatusPending,
		PaidAt:            req.PaidAt,
		TransactionRef:    req.TransactionRef,
		Meta:              req.Meta,
		CreatedAt:         s.clock.Now(),
		UpdatedAt:         s.clock.Now(),
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Gateways retry; the reference is the dedupe key.
			return s.repo.FindByTransactionRef(ctx, req.TransactionRef)
		}
		return nil, err
	}
	return payment, nil
}

func (s *Service) Get(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	return s.repo.FindByID(ctx, nil, paymentID)
}

func (s *Service) GetByTransactionRef(ctx context.Context, ref string) (*paymentdomain.Payment, error) {
	return s.repo.FindByTransactionRef(ctx, ref)
}

// verifyOutcome carries what the winning transaction learned, so the
// post-commit side effects run without re-querying under lock.
type verifyOutcome struct {
	purchase      purchasedomain.PurchaseRequest
	verifiedCount int64
	nextRenewal   time.Time
	firstPayment  bool
}

func (s *Service) Verify(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.IsVerified {
		s.metrics.PaymentTransition("verify_noop")
		return payment, nil
	}
	if payment.Status == paymentdomain.StatusFailed {
		s.metrics.PaymentTransition("verify_conflict")
		return nil, paymentdomain.ErrPaymentFailed
	}

	now := s.clock.Now()
	var (
		won     bool
		outcome verifyOutcome
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err = s.repo.ClaimVerify(ctx, tx, paymentID, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		if err := tx.Where("id = ?", payment.PurchaseRequestID).First(&outcome.purchase).Error; err != nil {
			return err
		}

		next, err := s.renewal.Reschedule(ctx, tx, &outcome.purchase)
		if err != nil {
			return err
		}
		outcome.nextRenewal = next

		count, err := s.repo.CountVerified(ctx, tx, payment.PurchaseRequestID)
		if err != nil {
			return err
		}
		outcome.verifiedCount = count
		outcome.firstPayment = count == 1

		// First verified payment completes the purchase.
		if outcome.firstPayment && outcome.purchase.Status != purchasedomain.StatusCompleted {
			err = tx.Exec(
				`UPDATE purchase_requests SET status = ?, updated_at = ? WHERE id = ?`,
				purchasedomain.StatusCompleted, now, outcome.purchase.ID,
			).Error
			if err != nil {
				return err
			}
			outcome.purchase.Status = purchasedomain.StatusCompleted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// Lost the race: report whatever terminal state the winner left.
		current, err := s.repo.FindByID(ctx, nil, paymentID)
		if err != nil {
			return nil, err
		}
		if current.IsVerified {
			s.metrics.PaymentTransition("verify_noop")
			return current, nil
		}
		s.metrics.PaymentTransition("verify_conflict")
		return nil, paymentdomain.ErrPaymentFailed
	}

	s.metrics.PaymentTransition("verified")
	payment, err = s.repo.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}

	s.runVerifySideEffects(ctx, payment, outcome)
	return payment, nil
}

func (s *Service) MarkFailed(ctx context.Context, paymentID snowflake.ID, reason string) (*paymentdomain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == paymentdomain.StatusFailed {
		s.metrics.PaymentTransition("fail_noop")
		return payment, nil
	}
	if payment.IsVerified {
		s.metrics.PaymentTransition("fail_conflict")
		return nil, paymentdomain.ErrPaymentVerified
	}

	now := s.clock.Now()
	won, err := s.repo.ClaimFail(ctx, nil, paymentID, reason, now)
	if err != nil {
		return nil, err
	}
	if !won {
		current, err := s.repo.FindByID(ctx, nil, paymentID)
		if err != nil {
			return nil, err
		}
		if current.Status == paymentdomain.StatusFailed {
			s.metrics.PaymentTransition("fail_noop")
			return current, nil
		}
		s.metrics.PaymentTransition("fail_conflict")
		return nil, paymentdomain.ErrPaymentVerified
	}

	s.metrics.PaymentTransition("failed")
	payment, err = s.repo.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}

	s.notifyFailure(ctx, payment, reason)
	return payment, nil
}

func (s *Service) ReceiptPDF(ctx context.Context, paymentID snowflake.ID) ([]byte, error) {
	rec, err := s.repo.FindReceipt(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return rec.PDF, nil
}

// runVerifySideEffects happens after commit on the winning path only.
// Failures here are logged and counted, never propagated: the payment
// is already verified and the caller must see success.
func (s *Service) runVerifySideEffects(ctx context.Context, payment *paymentdomain.Payment, outcome verifyOutcome) {
	contact, err := s.contacts.Contact(ctx, payment.BuyerID)
	if err != nil {
		s.log.Warn("payment side effects missing buyer contact",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}

	var policy policydomain.Policy
	if err := s.db.WithContext(ctx).Where("id = ?", outcome.purchase.PolicyID).First(&policy).Error; err != nil {
		s.log.Warn("payment side effects missing policy",
			zap.String("policy_id", outcome.purchase.PolicyID.String()),
			zap.Error(err),
		)
	}

	data := map[string]any{
		"buyer_name":        contact.FullName,
		"email":             contact.Email,
		"policy_name":       policy.Name,
		"billing_cycle":     string(outcome.purchase.BillingCycle),
		"amount":            formatAmount(payment.Amount, payment.Currency),
		"next_renewal_date": outcome.nextRenewal.Format("2006-01-02"),
		"transaction_ref":   payment.TransactionRef,
	}

	template := notificationdomain.TemplateRenewalConfirmed
	if outcome.firstPayment {
		template = notificationdomain.TemplatePurchaseConfirmed
	}
	if err := s.dispatcher.Dispatch(ctx, payment.BuyerID, template, data); err != nil {
		s.metrics.DispatchFailure()
		s.log.Warn("payment notification dispatch failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("template_id", template),
			zap.Error(err),
		)
	}

	s.renderReceipt(ctx, payment, outcome, contact, &policy)
}

func (s *Service) renderReceipt(ctx context.Context, payment *paymentdomain.Payment, outcome verifyOutcome, contact buyerdomain.Contact, policy *policydomain.Policy) {
	verifiedAt := s.clock.Now()
	if payment.VerifiedAt != nil {
		verifiedAt = *payment.VerifiedAt
	}

	reader, err := s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
		ReceiptNumber:   payment.TransactionRef,
		DatePaid:        verifiedAt.Format("2006-01-02"),
		BuyerName:       contact.FullName,
		BuyerEmail:      contact.Email,
		PolicyName:      policy.Name,
		BillingCycle:    string(outcome.purchase.BillingCycle),
		Installment:     int(outcome.verifiedCount),
		Amount:          formatAmount(payment.Amount, ""),
		Currency:        payment.Currency,
		NextRenewalDate: outcome.nextRenewal.Format("2006-01-02"),
	})
	if err != nil {
		s.log.Warn("receipt render failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return
	}
	if reader == nil {
		return
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		s.log.Warn("receipt read failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return
	}

	err = s.repo.SaveReceipt(ctx, &paymentdomain.Receipt{
		PaymentID: payment.ID,
		PDF:       raw,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		s.log.Warn("receipt persist failed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

// notifyFailure mails the buyer at most once per failed payment; the
// failed_notified flip is the guard against webhook retries.
func (s *Service) notifyFailure(ctx context.Context, payment *paymentdomain.Payment, reason string) {
	won, err := s.repo.ClaimFailedNotified(ctx, payment.ID, s.clock.Now())
	if err != nil {
		s.log.Warn("failure notification claim failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return
	}
	if !won {
		return
	}

	contact, err := s.contacts.Contact(ctx, payment.BuyerID)
	if err != nil {
		s.log.Warn("failure notification missing buyer contact",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}

	var policyName string
	err = s.db.WithContext(ctx).Raw(
		`SELECT p.name FROM policies p
		 JOIN purchase_requests pr ON pr.policy_id = p.id
		 WHERE pr.id = ?`,
		payment.PurchaseRequestID,
	).Scan(&policyName).Error
	if err != nil {
		s.log.Warn("failure notification missing policy name", zap.Error(err))
	}

	data := map[string]any{
		"buyer_name":      contact.FullName,
		"email":           contact.Email,
		"policy_name":     policyName,
		"reason":          reason,
		"amount":          formatAmount(payment.Amount, payment.Currency),
		"transaction_ref": payment.TransactionRef,
	}
	if err := s.dispatcher.Dispatch(ctx, payment.BuyerID, notificationdomain.TemplatePaymentFailed, data); err != nil {
		s.metrics.DispatchFailure()
		s.log.Warn("failure notification dispatch failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

func formatAmount(minor int64, currency string) string {
	whole := fmt.Sprintf("%.2f", float64(minor)/100)
	if currency == "" {
		return whole
	}
	return currency + " " + whole
}
