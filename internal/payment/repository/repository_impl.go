// Package repository persists payments and answers the verified-payment
// queries the renewal scheduler anchors on.
package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	renewaldomain "github.com/sushiltimalsina/bemasathi/internal/renewal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ renewaldomain.PaymentLookup = (*Repository)(nil)

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) Create(ctx context.Context, p *paymentdomain.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, paymentdomain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) FindByTransactionRef(ctx context.Context, ref string) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := r.db.WithContext(ctx).Where("transaction_ref = ?", ref).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, paymentdomain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ClaimVerify is the atomic verified flip. It succeeds for exactly one
// caller per payment; a false return with no error means someone else
// already owns the transition or the payment is not in a verifiable
// state.
func (r *Repository) ClaimVerify(ctx context.Context, tx *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, is_verified = ?, verified_at = ?, updated_at = ?
		 WHERE id = ? AND is_verified = ? AND status <> ?`,
		paymentdomain.StatusVerified,
		true,
		at,
		at,
		id,
		false,
		paymentdomain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimFail flips a pending payment to failed, same single-winner rule
// as ClaimVerify.
func (r *Repository) ClaimFail(ctx context.Context, tx *gorm.DB, id snowflake.ID, reason string, at time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failed_at = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND is_verified = ? AND status <> ?`,
		paymentdomain.StatusFailed,
		at,
		reason,
		at,
		id,
		false,
		paymentdomain.StatusFailed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimFailedNotified guards the failure notification so retried fail
// webhooks never mail the buyer twice.
func (r *Repository) ClaimFailedNotified(ctx context.Context, id snowflake.ID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET failed_notified = ?, failed_notified_at = ?, updated_at = ?
		 WHERE id = ? AND failed_notified = ?`,
		true,
		at,
		at,
		id,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SaveReceipt is write-once: a retry that somehow reaches this point
// leaves the original receipt untouched.
func (r *Repository) SaveReceipt(ctx context.Context, rec *paymentdomain.Receipt) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

func (r *Repository) FindReceipt(ctx context.Context, paymentID snowflake.ID) (*paymentdomain.Receipt, error) {
	var rec paymentdomain.Receipt
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, paymentdomain.ErrReceiptNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) FirstVerifiedAt(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) (*time.Time, error) {
	var p paymentdomain.Payment
	err := r.conn(tx).WithContext(ctx).
		Where("purchase_request_id = ? AND is_verified = ?", purchaseID, true).
		Order("verified_at ASC").
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return p.VerifiedAt, nil
}

func (r *Repository) CountVerified(ctx context.Context, tx *gorm.DB, purchaseID snowflake.ID) (int64, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("purchase_request_id = ? AND is_verified = ?", purchaseID, true).
		Count(&count).Error
	return count, err
}
