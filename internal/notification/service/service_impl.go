package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sushiltimalsina/bemasathi/internal/clock"
	notificationdomain "github.com/sushiltimalsina/bemasathi/internal/notification/domain"
	"github.com/sushiltimalsina/bemasathi/internal/providers/email"
	"github.com/sushiltimalsina/bemasathi/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Email email.Provider
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	email email.Provider

	repo repository.Repository[notificationdomain.Notification]
}

func NewService(p ServiceParam) notificationdomain.Dispatcher {
	return &Service{
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		email: p.Email,

		repo: repository.ProvideStore[notificationdomain.Notification](p.DB),
	}
}

// Dispatch writes the in-app row and, when the context carries an email
// address, mails the matching template. Email failure does not fail the
// dispatch: the in-app row is the durable copy.
func (s *Service) Dispatch(ctx context.Context, userID snowflake.ID, templateID string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}

	record := &notificationdomain.Notification{
		ID:         s.genID.Generate(),
		UserID:     userID,
		TemplateID: templateID,
		Context:    datatypes.JSONMap(data),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return err
	}

	if to, ok := data["email"].(string); ok && to != "" {
		if err := s.email.SendTemplate(ctx, []string{to}, templateID, data); err != nil {
			s.log.Warn("notification email send failed",
				zap.String("template_id", templateID),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}
