package buyer

import (
	buyerdomain "github.com/sushiltimalsina/bemasathi/internal/buyer/domain"
	"github.com/sushiltimalsina/bemasathi/internal/buyer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("buyer.source",
	fx.Provide(
		service.NewSource,
		func(s *service.Source) buyerdomain.ProfileSource { return s },
		func(s *service.Source) buyerdomain.ContactSource { return s },
	),
)
