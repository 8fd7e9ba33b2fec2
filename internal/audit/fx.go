package audit

import (
	"github.com/framehaus/callsheet/internal/audit/repository"
	"github.com/framehaus/callsheet/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
