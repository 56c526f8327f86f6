package lyrics

import "go.uber.org/fx"

var FXModule = fx.Module("lyrics",
	fx.Provide(NewClient),
)
