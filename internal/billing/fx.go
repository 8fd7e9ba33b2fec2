package billing

import (
	"go.uber.org/fx"

	"github.com/framehaus/callsheet/internal/billing/checkout"
	"github.com/framehaus/callsheet/internal/billing/entitlement"
	"github.com/framehaus/callsheet/internal/billing/webhook"
)

var Module = fx.Module("billing",
	fx.Provide(
		entitlement.NewService,
		webhook.NewService,
		checkout.NewService,
	),
)
