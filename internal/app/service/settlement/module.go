package settlement

import (
	"context"
	"time"

	notificationlog "github.com/tokomedia/mediamart/internal/app/service/notification_log"
	"github.com/tokomedia/mediamart/internal/platform/duitku"
	"github.com/tokomedia/mediamart/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newGateway(cfg *config.Config, log *zap.SugaredLogger) Gateway {
	return duitku.NewClient(duitku.Options{
		MerchantCode:  cfg.Duitku.MerchantCode,
		APIKey:        cfg.Duitku.APIKey,
		BaseURL:       cfg.Duitku.BaseURL,
		Sandbox:       cfg.Duitku.Sandbox,
		CallbackURL:   cfg.Duitku.CallbackURL,
		ReturnURL:     cfg.Duitku.ReturnURL,
		ExpiryMinutes: cfg.Duitku.ExpiryMin,
	}, cfg.Duitku.Timeout, log)
}

// runSweeper ticks the expiry sweep for pending transactions and lapsed
// subscriptions over the application lifetime.
func runSweeper(lc fx.Lifecycle, cfg *config.Config, svc *Service) {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						svc.SweepExpired(context.Background())
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})
}

// Module exposes the settlement engine via Fx.
var Module = fx.Options(
	fx.Provide(newGateway),
	fx.Provide(NewStore),
	fx.Provide(func(n *notificationlog.Service) NotificationSink { return n }),
	fx.Provide(New),
	fx.Invoke(runSweeper),
)
