package renewal

import (
	"github.com/sushiltimalsina/bemasathi/internal/renewal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("renewal.service",
	fx.Provide(service.NewService),
)
