// Package scheduler runs the periodic renewal transition job: active
// purchases approaching their renewal date become due, and due
// purchases whose grace window has elapsed expire.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	notificationdomain "github.com/sushiltimalsina/bemasathi/internal/notification/domain"
	"github.com/sushiltimalsina/bemasathi/internal/observability/metrics"
	purchasedomain "github.com/sushiltimalsina/bemasathi/internal/purchase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const transitionLockKey = "bemasathi:scheduler:renewal_transitions"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	Dispatcher notificationdomain.Dispatcher
	Contacts   buyerdomain.ContactSource
	Locker     *Locker `optional:"true"`
	Config     Config  `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	metrics    *metrics.Metrics
	dispatcher notificationdomain.Dispatcher
	contacts   buyerdomain.ContactSource
	locker     *Locker
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		metrics:    p.Metrics,
		dispatcher: p.Dispatcher,
		contacts:   p.Contacts,
		locker:     p.Locker,
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("renewal transition pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes one transition pass under the distributed lock. A
// missing locker (tests, single-instance deployments without redis)
// degrades to running unlocked.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, transitionLockKey, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Debug("transition pass skipped, another instance holds the lock")
			return nil
		}
		defer func() {
			if err := s.locker.Release(ctx, transitionLockKey, token); err != nil {
				s.log.Warn("transition lock release failed", zap.Error(err))
			}
		}()
	}

	if err := s.markDue(ctx); err != nil {
		return err
	}
	return s.markExpired(ctx)
}

// workRow is the slice of a purchase the transition pass needs.
type workRow struct {
	ID              snowflake.ID
	BuyerID         snowflake.ID
	PolicyName      string
	CycleAmount     int64
	Currency        string
	NextRenewalDate time.Time
}

func (s *Scheduler) markDue(ctx context.Context) error {
	now := s.clock.Now()
	horizon := now.Add(s.cfg.DueWindow)

	var rows []workRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT pr.id, pr.buyer_id, p.name AS policy_name, pr.cycle_amount, pr.currency, pr.next_renewal_date
		 FROM purchase_requests pr
		 JOIN policies p ON p.id = pr.policy_id
		 WHERE pr.renewal_status = ?
		   AND pr.status = ?
		   AND pr.next_renewal_date IS NOT NULL
		   AND pr.next_renewal_date <= ?
		 ORDER BY pr.next_renewal_date
		 LIMIT ?`,
		purchasedomain.RenewalActive,
		purchasedomain.StatusCompleted,
		horizon,
		s.cfg.BatchSize,
	).Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		flipped, err := s.transition(ctx, row.ID, purchasedomain.RenewalActive, purchasedomain.RenewalDue, now)
		if err != nil {
			s.log.Error("due transition failed",
				zap.String("purchase_id", row.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !flipped {
			continue
		}
		s.metrics.RenewalTransition(string(purchasedomain.RenewalActive), string(purchasedomain.RenewalDue))
		s.notify(ctx, row, notificationdomain.TemplateRenewalDue)
	}
	return nil
}

func (s *Scheduler) markExpired(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.ExpiryGrace)

	var rows []workRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT pr.id, pr.buyer_id, p.name AS policy_name, pr.cycle_amount, pr.currency, pr.next_renewal_date
		 FROM purchase_requests pr
		 JOIN policies p ON p.id = pr.policy_id
		 WHERE pr.renewal_status = ?
		   AND pr.next_renewal_date IS NOT NULL
		   AND pr.next_renewal_date <= ?
		 ORDER BY pr.next_renewal_date
		 LIMIT ?`,
		purchasedomain.RenewalDue,
		cutoff,
		s.cfg.BatchSize,
	).Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		flipped, err := s.transition(ctx, row.ID, purchasedomain.RenewalDue, purchasedomain.RenewalExpired, now)
		if err != nil {
			s.log.Error("expiry transition failed",
				zap.String("purchase_id", row.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !flipped {
			continue
		}
		s.metrics.RenewalTransition(string(purchasedomain.RenewalDue), string(purchasedomain.RenewalExpired))
		s.notify(ctx, row, notificationdomain.TemplatePolicyExpired)
	}
	return nil
}

// transition is a compare-and-set on renewal_status so concurrent
// passes, or a verification landing mid-pass, never double-apply.
func (s *Scheduler) transition(ctx context.Context, id snowflake.ID, from, to purchasedomain.RenewalStatus, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE purchase_requests
		 SET renewal_status = ?, updated_at = ?
		 WHERE id = ? AND renewal_status = ?`,
		to, now, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Scheduler) notify(ctx context.Context, row workRow, templateID string) {
	contact, err := s.contacts.Contact(ctx, row.BuyerID)
	if err != nil {
		s.log.Warn("transition notification missing buyer contact",
			zap.String("purchase_id", row.ID.String()),
			zap.Error(err),
		)
	}

	data := map[string]any{
		"buyer_name":   contact.FullName,
		"email":        contact.Email,
		"policy_name":  row.PolicyName,
		"amount":       formatAmount(row.CycleAmount, row.Currency),
		"renewal_date": row.NextRenewalDate.Format("2006-01-02"),
	}
	if err := s.dispatcher.Dispatch(ctx, row.BuyerID, templateID, data); err != nil {
		s.metrics.DispatchFailure()
		s.log.Warn("transition notification dispatch failed",
			zap.String("purchase_id", row.ID.String()),
			zap.String("template_id", templateID),
			zap.Error(err),
		)
	}
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %.2f", currency, float64(minor)/100)
}
