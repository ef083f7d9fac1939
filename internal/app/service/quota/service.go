package quota

import (
	"context"
	"errors"
	"time"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/logctx"
	types "github.com/tokomedia/mediamart/pkg/types"

	"go.uber.org/zap"
)

// Service is the quota guard. Every download passes through UseDownload,
// which resolves the user's current subscription and spends quota with a
// single conditional write, so concurrent downloads against the same
// subscription never spend more than is there.
type Service struct {
	log   *zap.SugaredLogger
	store Store
}

func New(log *zap.SugaredLogger, store Store) *Service {
	return &Service{log: log, store: store}
}

// resolve follows the user's subscription pointer, falling back to a direct
// lookup when the pointer is stale (points at a row the sweeper deactivated).
func (s *Service) resolve(ctx context.Context, userID string) (*models.UserSubscription, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionID != nil {
		sub, err := s.store.SubscriptionByID(ctx, *user.SubscriptionID)
		if err == nil && sub.Valid() {
			return sub, nil
		}
		if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
	}
	sub, err := s.store.ActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.Valid() {
		return nil, ErrNoActiveSubscription
	}
	return sub, nil
}

// UseDownload spends one download from the user's quota and returns the
// post-spend snapshot. ErrQuotaExceeded when the window is valid but empty.
func (s *Service) UseDownload(ctx context.Context, userID string) (*types.QuotaSnapshot, error) {
	sub, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.ConsumeDownload(ctx, sub.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// The guard refused; re-read to tell an empty quota apart from a
		// window that lapsed between resolve and write.
		cur, rerr := s.store.SubscriptionByID(ctx, sub.ID)
		if rerr != nil {
			return nil, ErrNoActiveSubscription
		}
		if cur.Valid() && cur.DownloadsRemaining == 0 {
			return nil, ErrQuotaExceeded
		}
		return nil, ErrNoActiveSubscription
	}

	cur, err := s.store.SubscriptionByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &types.QuotaSnapshot{
		SubscriptionID:     cur.ID,
		DownloadsUsed:      cur.DownloadsUsed,
		DownloadsRemaining: cur.DownloadsRemaining,
		EndDate:            cur.EndDate,
	}, nil
}

// Info reports the user's current entitlement for display. Never errors on
// the no-subscription case; that is a normal answer.
func (s *Service) Info(ctx context.Context, userID string) (*types.UserSubscriptionInfo, error) {
	sub, err := s.resolve(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			return &types.UserSubscriptionInfo{Active: false}, nil
		}
		return nil, err
	}
	return &types.UserSubscriptionInfo{
		Active:             true,
		PackageID:          &sub.PackageID,
		DownloadsUsed:      sub.DownloadsUsed,
		DownloadsRemaining: sub.DownloadsRemaining,
		StartDate:          &sub.StartDate,
		EndDate:            &sub.EndDate,
	}, nil
}

// Cancel deactivates the user's current subscription immediately. No refund
// and no quota carry-over.
func (s *Service) Cancel(ctx context.Context, userID, reason string) error {
	sub, err := s.resolve(ctx, userID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "cancelled by user"
	}
	cancelled, err := s.store.Cancel(ctx, sub, reason)
	if err != nil {
		return err
	}
	if !cancelled {
		return ErrNoActiveSubscription
	}
	logctx.FromCtx(ctx, s.log).Infof("subscription %s cancelled for user %s", sub.ID, userID)
	return nil
}

// Grant provisions a subscription outside settlement. Admin path; the row
// carries no transaction reference.
func (s *Service) Grant(ctx context.Context, userID string, pkg *models.SubscriptionPackage) (*models.UserSubscription, error) {
	now := time.Now()
	sub := &models.UserSubscription{
		UserID:             userID,
		PackageID:          pkg.ID,
		DownloadsRemaining: pkg.DownloadLimit,
		StartDate:          now,
		EndDate:            now.AddDate(0, 0, pkg.DurationDays),
		IsActive:           true,
	}
	if err := s.store.Grant(ctx, sub); err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infof("subscription %s granted to user %s (package %s)", sub.ID, userID, pkg.ID)
	return sub, nil
}

// TopUp adds downloads to the user's active subscription. Admin path.
func (s *Service) TopUp(ctx context.Context, userID string, downloads int) (*types.QuotaSnapshot, error) {
	sub, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.TopUp(ctx, sub.ID, downloads)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoActiveSubscription
	}
	cur, err := s.store.SubscriptionByID(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &types.QuotaSnapshot{
		SubscriptionID:     cur.ID,
		DownloadsUsed:      cur.DownloadsUsed,
		DownloadsRemaining: cur.DownloadsRemaining,
		EndDate:            cur.EndDate,
	}, nil
}
