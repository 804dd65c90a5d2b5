package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RecordRequest registers a gateway attempt before its outcome is known.
type RecordRequest struct {
	PurchaseRequestID snowflake.ID
	TransactionRef    string
	Amount            int64
	PaidAt            *time.Time
	Meta              datatypes.JSON
}

type Service interface {
	// Record creates a pending payment row for a gateway transaction
	// reference. Recording the same reference twice returns the
	// existing row.
	Record(ctx context.Context, req RecordRequest) (*Payment, error)

	// Verify moves a payment to verified. Verifying an already verified
	// payment is a no-op success; no side effect runs twice. Verifying
	// a failed payment is a conflict.
	Verify(ctx context.Context, paymentID snowflake.ID) (*Payment, error)

	// MarkFailed moves a payment to failed. Marking an already failed
	// payment again is a no-op success and does not re-notify the
	// buyer. Failing a verified payment is a conflict.
	MarkFailed(ctx context.Context, paymentID snowflake.ID, reason string) (*Payment, error)

	Get(ctx context.Context, paymentID snowflake.ID) (*Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*Payment, error)

	// ReceiptPDF returns the stored receipt for a verified payment.
	ReceiptPDF(ctx context.Context, paymentID snowflake.ID) ([]byte, error)
}

var (
	ErrPaymentNotFound    = errors.New("payment_not_found")
	ErrInvalidTransaction = errors.New("invalid_transaction_ref")
	ErrPaymentFailed      = errors.New("payment_already_failed")
	ErrPaymentVerified    = errors.New("payment_already_verified")
	ErrReceiptNotFound    = errors.New("receipt_not_found")
)
