package catalog

import "go.uber.org/fx"

// Module exposes the package catalog via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
