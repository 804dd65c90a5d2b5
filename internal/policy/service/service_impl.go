package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	policydomain "github.com/sushiltimalsina/bemasathi/internal/policy/domain"
	"github.com/sushiltimalsina/bemasathi/pkg/db/option"
	"github.com/sushiltimalsina/bemasathi/pkg/db/pagination"
	"github.com/sushiltimalsina/bemasathi/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	policyrepo repository.Repository[policydomain.Policy]
}

func NewService(p ServiceParam) policydomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("policy.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		policyrepo: repository.ProvideStore[policydomain.Policy](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, policy *policydomain.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	if policy.ID == 0 {
		policy.ID = s.genID.Generate()
	}
	now := s.clock.Now()
	policy.CreatedAt = now
	policy.UpdatedAt = now

	return s.policyrepo.Create(ctx, policy)
}

func (s *Service) Update(ctx context.Context, policy *policydomain.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	existing, err := s.policyrepo.FindOne(ctx, &policydomain.Policy{ID: policy.ID})
	if err != nil {
		return err
	}
	if existing == nil {
		return policydomain.ErrPolicyNotFound
	}

	policy.UpdatedAt = s.clock.Now()
	return s.db.WithContext(ctx).Save(policy).Error
}

func (s *Service) Get(ctx context.Context, id string) (*policydomain.Policy, error) {
	policyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, policydomain.ErrPolicyNotFound
	}

	policy, err := s.policyrepo.FindOne(ctx, &policydomain.Policy{ID: policyID})
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, policydomain.ErrPolicyNotFound
	}
	return policy, nil
}

// List pages through the active catalog in id order. The page token is
// an opaque cursor naming the last policy of the previous page.
func (s *Service) List(ctx context.Context, req policydomain.ListRequest) (policydomain.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	opts := []option.QueryOption{
		option.WithOrder("id ASC"),
		option.WithLimit(pageSize + 1),
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return policydomain.ListResponse{}, policydomain.ErrInvalidPageToken
		}
		afterID, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
		if err != nil || afterID == 0 {
			return policydomain.ListResponse{}, policydomain.ErrInvalidPageToken
		}
		opts = append(opts, option.WithCondition("id > ?", afterID))
	}

	items, err := s.policyrepo.Find(ctx, &policydomain.Policy{Active: true}, opts...)
	if err != nil {
		return policydomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(policy *policydomain.Policy) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        policy.ID.String(),
			CreatedAt: policy.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	return policydomain.ListResponse{Policies: items, PageInfo: *pageInfo}, nil
}

// ListActive returns the whole active set in one shot. The ranking path
// scores every candidate, so it must not be paginated.
func (s *Service) ListActive(ctx context.Context) ([]*policydomain.Policy, error) {
	return s.policyrepo.Find(ctx,
		&policydomain.Policy{Active: true},
		option.WithOrder("id ASC"),
	)
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	policy, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.policyrepo.Update(ctx, policy.ID.String(), map[string]any{
		"active":     false,
		"updated_at": s.clock.Now(),
	})
}
