// Package domain contains notification dispatch contracts and the
// in-app notification record.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Template identifiers understood by the mail templates and the in-app
// inbox renderer.
const (
	TemplatePurchaseConfirmed = "purchase_confirmed"
	TemplateRenewalConfirmed  = "renewal_confirmed"
	TemplatePaymentFailed     = "payment_failed"
	TemplateRenewalDue        = "renewal_due"
	TemplatePolicyExpired     = "policy_expired"
)

// Notification is one in-app inbox row.
type Notification struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID     snowflake.ID      `json:"user_id" gorm:"not null;index"`
	TemplateID string            `json:"template_id" gorm:"type:text;not null"`
	Context    datatypes.JSONMap `json:"context" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
	ReadAt     *time.Time        `json:"read_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// Dispatcher delivers one notification to a user. Delivery is
// best-effort: callers log a returned error and move on, the triggering
// state transition never rolls back.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID snowflake.ID, templateID string, data map[string]any) error
}
