// Package domain holds the installment payment record and its
// verification state machine contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// Payment is one installment attempt against a purchase request.
// is_verified and failed_notified are the compare-and-set guards: each
// flips false to true exactly once, and the side effects of the
// transition ride on whichever writer wins that flip.
type Payment struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	PurchaseRequestID snowflake.ID `json:"purchase_request_id" gorm:"not null;index"`
	BuyerID           snowflake.ID `json:"buyer_id" gorm:"not null;index"`
	Amount            int64        `json:"amount" gorm:"not null"`
	Currency          string       `json:"currency" gorm:"type:text;not null"`
	Status            Status       `json:"status" gorm:"type:text;not null;default:'pending'"`

	IsVerified bool       `json:"is_verified" gorm:"not null;default:false"`
	VerifiedAt *time.Time `json:"verified_at"`
	PaidAt     *time.Time `json:"paid_at"`

	FailedAt         *time.Time `json:"failed_at"`
	FailureReason    string     `json:"failure_reason" gorm:"type:text"`
	FailedNotified   bool       `json:"failed_notified" gorm:"not null;default:false"`
	FailedNotifiedAt *time.Time `json:"failed_notified_at"`

	TransactionRef string         `json:"transaction_ref" gorm:"type:text;not null;uniqueIndex"`
	Meta           datatypes.JSON `json:"meta" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Receipt is the rendered PDF for one verified payment. Written once by
// whichever writer wins the verification flip, then served on download.
type Receipt struct {
	PaymentID snowflake.ID `json:"payment_id" gorm:"primaryKey"`
	PDF       []byte       `json:"-" gorm:"type:bytea;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Receipt) TableName() string { return "payment_receipts" }
