package production

import (
	"github.com/framehaus/callsheet/internal/production/service"
	"go.uber.org/fx"
)

var Module = fx.Module("production.service",
	fx.Provide(service.NewService),
)
