package notification_log

import "go.uber.org/fx"

// Module exposes the notification audit log via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
