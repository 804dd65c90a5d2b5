package impression

import (
	"github.com/sushiltimalsina/bemasathi/internal/impression/service"
	"go.uber.org/fx"
)

var Module = fx.Module("impression.recorder",
	fx.Provide(service.NewRecorder),
)
