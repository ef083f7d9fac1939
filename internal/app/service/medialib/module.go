package medialib

import "go.uber.org/fx"

// Module exposes the media library via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
