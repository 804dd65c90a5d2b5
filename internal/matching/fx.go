package matching

import (
	"github.com/sushiltimalsina/bemasathi/internal/matching/service"
	"go.uber.org/fx"
)

var Module = fx.Module("matching.service",
	fx.Provide(service.NewService),
)
