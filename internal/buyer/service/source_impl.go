package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SourceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

// Source composes profiles from the account rows the excluded
// auth/profile subsystem maintains.
type Source struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewSource(p SourceParam) *Source {
	return &Source{
		db:    p.DB,
		log:   p.Log.Named("buyer.source"),
		clock: p.Clock,
	}
}

type accountRow struct {
	ID                 snowflake.ID
	DateOfBirth        *time.Time
	IsSmoker           bool
	WeightKg           float64
	HeightCm           float64
	OccupationClass    int
	RegionType         string
	FamilyMemberCount  int
	Conditions         string
	BudgetMin          int64
	BudgetMax          int64
	CoveragePreference string
	CreatedAt          time.Time
}

func (s *Source) Profile(ctx context.Context, buyerID snowflake.ID) (buyerdomain.Profile, error) {
	var row accountRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, date_of_birth, is_smoker, weight_kg, height_cm, occupation_class,
		        region_type, family_member_count, conditions, budget_min, budget_max,
		        coverage_preference, created_at
		 FROM buyer_accounts
		 WHERE id = ?`,
		buyerID,
	).Scan(&row).Error
	if err != nil {
		return buyerdomain.Profile{}, err
	}
	if row.ID == 0 {
		return buyerdomain.Profile{}, buyerdomain.ErrBuyerNotFound
	}

	attrs := buyerdomain.Attributes{
		BuyerID:               row.ID,
		IsSmoker:              row.IsSmoker,
		WeightKg:              row.WeightKg,
		HeightCm:              row.HeightCm,
		OccupationClass:       row.OccupationClass,
		Region:                buyerdomain.RegionType(row.RegionType),
		FamilyMemberCount:     row.FamilyMemberCount,
		PreExistingConditions: splitConditions(row.Conditions),
		BudgetMin:             row.BudgetMin,
		BudgetMax:             row.BudgetMax,
		CoveragePreference:    buyerdomain.CoveragePreference(row.CoveragePreference),
		AccountCreatedAt:      row.CreatedAt,
	}
	if row.DateOfBirth != nil {
		attrs.DateOfBirth = *row.DateOfBirth
	}

	return buyerdomain.Compose(attrs, s.clock.Now()), nil
}

func (s *Source) Contact(ctx context.Context, buyerID snowflake.ID) (buyerdomain.Contact, error) {
	var row struct {
		ID       snowflake.ID
		FullName string
		Email    string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, full_name, email FROM buyer_accounts WHERE id = ?`,
		buyerID,
	).Scan(&row).Error
	if err != nil {
		return buyerdomain.Contact{}, err
	}
	if row.ID == 0 {
		return buyerdomain.Contact{}, buyerdomain.ErrBuyerNotFound
	}
	return buyerdomain.Contact{BuyerID: row.ID, FullName: row.FullName, Email: row.Email}, nil
}

func splitConditions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
