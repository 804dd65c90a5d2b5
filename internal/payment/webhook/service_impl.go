// Package webhook translates gateway callbacks into payment state
// machine transitions.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	paymentservice "github.com/sushiltimalsina/bemasathi/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc *paymentservice.Service
}

type Service struct {
	log        *zap.Logger
	paymentSvc *paymentservice.Service
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
	}
}

var (
	ErrInvalidPayload = errors.New("invalid_webhook_payload")
	ErrUnknownStatus  = errors.New("unknown_webhook_status")
)

// callbackEvent is the shape the gateway posts back after a checkout.
type callbackEvent struct {
	TransactionRef    string     `json:"transaction_reference"`
	PurchaseRequestID string     `json:"purchase_request_id"`
	Status            string     `json:"status"`
	Amount            int64      `json:"amount"`
	PaidAt            *time.Time `json:"paid_at"`
	Reason            string     `json:"reason"`
}

// Ingest records the transaction if it is new, then applies the
// verify or fail transition. Gateways deliver at-least-once, so the
// whole path has to tolerate replays.
func (s *Service) Ingest(ctx context.Context, payload []byte) (*paymentdomain.Payment, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	var event callbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(event.TransactionRef) == "" {
		return nil, paymentdomain.ErrInvalidTransaction
	}

	payment, err := s.paymentSvc.GetByTransactionRef(ctx, event.TransactionRef)
	if errors.Is(err, paymentdomain.ErrPaymentNotFound) {
		payment, err = s.record(ctx, event, payload)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(event.Status)) {
	case "success", "succeeded", "verified", "completed":
		return s.paymentSvc.Verify(ctx, payment.ID)
	case "failed", "failure", "declined", "expired":
		return s.paymentSvc.MarkFailed(ctx, payment.ID, event.Reason)
	case "pending", "initiated":
		// Nothing to transition yet; the row is recorded.
		return payment, nil
	default:
		s.log.Warn("webhook with unknown status",
			zap.String("transaction_ref", event.TransactionRef),
			zap.String("status", event.Status),
		)
		return nil, ErrUnknownStatus
	}
}

func (s *Service) record(ctx context.Context, event callbackEvent, payload []byte) (*paymentdomain.Payment, error) {
	purchaseID, err := snowflake.ParseString(event.PurchaseRequestID)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	return s.paymentSvc.Record(ctx, paymentdomain.RecordRequest{
		PurchaseRequestID: purchaseID,
		TransactionRef:    event.TransactionRef,
		Amount:            event.Amount,
		PaidAt:            event.PaidAt,
		Meta:              datatypes.JSON(payload),
	})
}
