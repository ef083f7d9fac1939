package notification_log

import (
	"context"
	"github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a payment notification log. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.PaymentNotificationLog) {
	go func() {
		if log == nil {
			return
		}
		if log.ID == "" {
			log.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
		}
	}()
}

// SetResult asynchronously records how a previously saved notification was
// handled.
func (s *Service) SetResult(ctx context.Context, id string, status models.PaymentNotificationLogStatus, result *datatypes.JSON) {
	go func() {
		updates := map[string]any{"status": status}
		if result != nil {
			updates["result"] = *result
		}
		err := s.db.Model(&models.PaymentNotificationLog{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to update notification log %s: %v", id, err)
		}
	}()
}
