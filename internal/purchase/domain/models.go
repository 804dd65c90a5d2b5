// Package domain contains the purchase-request (buy request) models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type RenewalStatus string

const (
	RenewalActive  RenewalStatus = "active"
	RenewalDue     RenewalStatus = "due"
	RenewalExpired RenewalStatus = "expired"
)

// BillingCycle is the recurrence period governing installment size and
// renewal spacing.
type BillingCycle string

const (
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleHalfYearly BillingCycle = "half_yearly"
	CycleYearly     BillingCycle = "yearly"
)

// Advance moves t forward by n cycle lengths using calendar arithmetic,
// so a Jan 10 anchor renews on the 10th regardless of month length drift.
func (c BillingCycle) Advance(t time.Time, n int) (time.Time, bool) {
	switch c {
	case CycleMonthly:
		return t.AddDate(0, n, 0), true
	case CycleQuarterly:
		return t.AddDate(0, 3*n, 0), true
	case CycleHalfYearly:
		return t.AddDate(0, 6*n, 0), true
	case CycleYearly:
		return t.AddDate(n, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// InstallmentsPerYear returns how many cycle payments make one full term.
func (c BillingCycle) InstallmentsPerYear() (int, bool) {
	switch c {
	case CycleMonthly:
		return 12, true
	case CycleQuarterly:
		return 4, true
	case CycleHalfYearly:
		return 2, true
	case CycleYearly:
		return 1, true
	default:
		return 0, false
	}
}

// PurchaseRequest records one buyer committing to one policy. The
// (policy, buyer) pairing is logically unique; rows are soft-deleted and
// never hard-deleted by the normal flow.
type PurchaseRequest struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	BuyerID           snowflake.ID   `json:"buyer_id" gorm:"not null;index;uniqueIndex:ux_purchase_pair,priority:1"`
	PolicyID          snowflake.ID   `json:"policy_id" gorm:"not null;index;uniqueIndex:ux_purchase_pair,priority:2"`
	Status            Status         `json:"status" gorm:"type:text;not null;default:'pending'"`
	BillingCycle      BillingCycle   `json:"billing_cycle" gorm:"type:text;not null"`
	CycleAmount       int64          `json:"cycle_amount" gorm:"not null"`
	CalculatedPremium int64          `json:"calculated_premium" gorm:"not null"`
	Currency          string         `json:"currency" gorm:"type:text;not null"`
	NextRenewalDate   *time.Time     `json:"next_renewal_date"`
	RenewalStatus     RenewalStatus  `json:"renewal_status" gorm:"type:text;not null;default:'active'"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName sets the database table name.
func (PurchaseRequest) TableName() string { return "purchase_requests" }
