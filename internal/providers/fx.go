package providers

import (
	"github.com/sushiltimalsina/bemasathi/internal/providers/email"
	"github.com/sushiltimalsina/bemasathi/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
