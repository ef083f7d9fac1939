package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tokomedia/mediamart/docs"
	"github.com/tokomedia/mediamart/internal/app/api/handlers"
	mw "github.com/tokomedia/mediamart/internal/app/api/middleware"
	"github.com/tokomedia/mediamart/internal/app/service/account"
	"github.com/tokomedia/mediamart/internal/app/service/catalog"
	"github.com/tokomedia/mediamart/internal/app/service/medialib"
	"github.com/tokomedia/mediamart/internal/app/service/quota"
	"github.com/tokomedia/mediamart/internal/app/service/settlement"
	"github.com/tokomedia/mediamart/internal/app/service/statistics"
	cfgpkg "github.com/tokomedia/mediamart/pkg/config"
	metrics "github.com/tokomedia/mediamart/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request tracing only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	DB         *gorm.DB
	Account    *account.Service
	Settlement *settlement.Service
	Quota      *quota.Service
	Catalog    *catalog.Service
	Media      *medialib.Service
	Stats      *statistics.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())

	// Gateway callback: signature-authenticated, never behind user auth.
	handlers.RegisterPaymentWebhookRoutes(api.Group("/payment"), d.Settlement, d.Log)

	// Public browse surface
	handlers.RegisterAuthRoutes(api, d.Cfg, d.Account)
	handlers.RegisterCatalogRoutes(api, d.Catalog)
	handlers.RegisterMediaRoutes(api, d.Media)

	// Authenticated user surface
	authed := api.Group("/")
	authed.Use(mw.AuthRequired(d.Cfg, d.DB))
	handlers.RegisterPaymentRoutes(authed.Group("/payment"), d.Settlement)
	handlers.RegisterSubscriptionRoutes(authed, d.Quota)
	handlers.RegisterMediaAuthRoutes(authed, d.Media)

	// Admin surface
	admin := api.Group("/admin")
	admin.Use(mw.AuthRequired(d.Cfg, d.DB), mw.AdminRequired())
	handlers.RegisterAdminRoutes(admin, d.Settlement, d.Catalog, d.Quota, d.Stats, d.Media)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
