package payment

import (
	paymentdomain "github.com/sushiltimalsina/bemasathi/internal/payment/domain"
	"github.com/sushiltimalsina/bemasathi/internal/payment/repository"
	"github.com/sushiltimalsina/bemasathi/internal/payment/service"
	"github.com/sushiltimalsina/bemasathi/internal/payment/webhook"
	renewaldomain "github.com/sushiltimalsina/bemasathi/internal/renewal/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(
		repository.NewRepository,
		func(r *repository.Repository) renewaldomain.PaymentLookup { return r },
		service.NewService,
		func(s *service.Service) paymentdomain.Service { return s },
		webhook.NewService,
	),
)
