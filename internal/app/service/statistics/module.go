package statistics

import "go.uber.org/fx"

// Module exposes dashboard statistics via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
