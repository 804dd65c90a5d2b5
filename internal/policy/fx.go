package policy

import (
	"github.com/sushiltimalsina/bemasathi/internal/policy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("policy.service",
	fx.Provide(service.NewService),
)
