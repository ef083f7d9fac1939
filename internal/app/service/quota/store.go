package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"
	types "github.com/tokomedia/mediamart/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the persistence surface of the quota guard. ConsumeDownload is
// the one hot-path write and must stay a single conditional update so
// concurrent downloads never oversell quota.
type Store interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	SubscriptionByID(ctx context.Context, id string) (*models.UserSubscription, error)
	ActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error)

	// ConsumeDownload spends one download atomically. False means the guard
	// condition (active, unexpired, quota left) did not hold at write time.
	ConsumeDownload(ctx context.Context, subscriptionID string, now time.Time) (bool, error)
	// TopUp adds downloads to a subscription. Admin path.
	TopUp(ctx context.Context, subscriptionID string, downloads int) (bool, error)

	// Cancel deactivates the subscription and clears the owner's pointer when
	// it still points at this row.
	Cancel(ctx context.Context, sub *models.UserSubscription, reason string) (bool, error)
	// Grant creates a subscription row outside settlement and moves the
	// owner's pointer to it. Admin path.
	Grant(ctx context.Context, sub *models.UserSubscription) error
}

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

func (s *gormStore) SubscriptionByID(ctx context.Context, id string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) ActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("end_date desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load active subscription: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) ConsumeDownload(ctx context.Context, subscriptionID string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("id = ? AND is_active = ? AND end_date > ? AND downloads_remaining > 0",
			subscriptionID, true, now).
		Updates(map[string]any{
			"downloads_remaining": gorm.Expr("downloads_remaining - 1"),
			"downloads_used":      gorm.Expr("downloads_used + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to consume download: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) TopUp(ctx context.Context, subscriptionID string, downloads int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("id = ? AND is_active = ?", subscriptionID, true).
		Update("downloads_remaining", gorm.Expr("downloads_remaining + ?", downloads))
	if res.Error != nil {
		return false, fmt.Errorf("failed to top up quota: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) Cancel(ctx context.Context, sub *models.UserSubscription, reason string) (bool, error) {
	before := *sub
	now := time.Now()
	var cancelled bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserSubscription{}).
			Where("id = ? AND is_active = ?", sub.ID, true).
			Updates(map[string]any{
				"is_active":        false,
				"cancelled_at":     now,
				"cancelled_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to cancel subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		cancelled = true
		// Clear the pointer only if it still references this row.
		if err := tx.Model(&models.User{}).
			Where("id = ? AND subscription_id = ?", sub.UserID, sub.ID).
			Update("subscription_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear user subscription pointer: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		sub.IsActive = false
		sub.CancelledAt = &now
		sub.CancelledReason = &reason
		s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonCancel)
	}
	return cancelled, nil
}

func (s *gormStore) Grant(ctx context.Context, sub *models.UserSubscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", sub.UserID).
			Update("subscription_id", sub.ID).Error; err != nil {
			return fmt.Errorf("failed to update user subscription pointer: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.writeSubscriptionLog(ctx, nil, sub, types.SubscriptionChangeReasonAdminGrant)
	return nil
}

func (s *gormStore) writeSubscriptionLog(ctx context.Context, before, after *models.UserSubscription, reason types.SubscriptionChangeReason) {
	go func() {
		log := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(after),
			Extra:  datatypes.JSONMap{},
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
