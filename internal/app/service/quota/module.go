package quota

import "go.uber.org/fx"

// Module exposes the quota guard via Fx.
var Module = fx.Options(
	fx.Provide(NewStore),
	fx.Provide(New),
)
