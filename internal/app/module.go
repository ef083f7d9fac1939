package app

import (
	"time"

	"github.com/tokomedia/mediamart/internal/app/api/server"
	"github.com/tokomedia/mediamart/internal/app/service/account"
	"github.com/tokomedia/mediamart/internal/app/service/catalog"
	"github.com/tokomedia/mediamart/internal/app/service/medialib"
	notificationlog "github.com/tokomedia/mediamart/internal/app/service/notification_log"
	"github.com/tokomedia/mediamart/internal/app/service/quota"
	"github.com/tokomedia/mediamart/internal/app/service/settlement"
	"github.com/tokomedia/mediamart/internal/app/service/statistics"
	"github.com/tokomedia/mediamart/internal/platform/db"
	"github.com/tokomedia/mediamart/internal/platform/storage"
	"github.com/tokomedia/mediamart/pkg/config"
	"github.com/tokomedia/mediamart/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	storage.Module,
	server.Module,
	account.Module,
	settlement.Module,
	quota.Module,
	catalog.Module,
	medialib.Module,
	statistics.Module,
	notificationlog.Module,
)
