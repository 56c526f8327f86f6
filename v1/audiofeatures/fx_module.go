package audiofeatures

import "go.uber.org/fx"

var FXModule = fx.Module("audiofeatures",
	fx.Provide(NewClient),
)
