package interpretation

import "go.uber.org/fx"

var FXModule = fx.Module("interpretation",
	fx.Provide(NewClient),
)
