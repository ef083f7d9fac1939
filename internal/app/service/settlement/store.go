package settlement

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
	"gorm.io/gorm/clause"
)

// SettleResult reports the outcome of a settlement attempt.
type SettleResult struct {
	// Claimed is true only for the caller that won the pending→success CAS.
	Claimed      bool
	Transaction  *models.Transaction
	Subscription *models.UserSubscription
}

// Store is the persistence surface of the settlement engine. State-transition
// decisions live in the engine; every mutation here is a single conditional
// write (or one DB transaction around the claim), so races between callback
// and poll resolve at the database.
type Store interface {
	TransactionByOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	TransactionForUser(ctx context.Context, userID, orderID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error

	// Settle claims the transaction (pending→success) and, for the winning
	// caller only, provisions the subscription built by provision and moves
	// the user's active-subscription pointer, all in one DB transaction.
	Settle(ctx context.Context, orderID string, paidAt time.Time, payload []byte,
		provision func(t *models.Transaction) (*models.UserSubscription, error)) (*SettleResult, error)

	MarkFailed(ctx context.Context, orderID, reason string) (bool, error)
	MarkCancelled(ctx context.Context, orderID, reason string) (bool, error)

	PackageByID(ctx context.Context, id string) (*models.SubscriptionPackage, error)
	// ActiveSubscription returns the user's active subscription row, or nil
	// when there is none.
	ActiveSubscription(ctx context.Context, userID string) (*models.UserSubscription, error)

	ListUserTransactions(ctx context.Context, userID string, status types.TransactionStatus, limit, offset int) ([]*models.Transaction, int64, error)
	ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error)

	SweepExpiredTransactions(ctx context.Context, now time.Time) (int64, error)
	DeactivateExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) TransactionByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &t, nil
}

func (s *gormStore) TransactionForUser(ctx context.Context, userID, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).Where("order_id = ? AND user_id = ?", orderID, userID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &t, nil
}

func (s *gormStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.ID == "" {
		t.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	s.writeTransactionLog(ctx, nil, t, "created")
	return nil
}

func (s *gormStore) Settle(ctx context.Context, orderID string, paidAt time.Time, payload []byte,
	provision func(t *models.Transaction) (*models.UserSubscription, error)) (*SettleResult, error) {

	result := &SettleResult{}
	var before models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Transaction
		if err := tx.Where("order_id = ?", orderID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		before = t

		// The claim: exactly one caller flips pending→success. Zero rows
		// affected means another task already settled (or the transaction is
		// in another terminal state) and this caller must not provision.
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", t.ID, types.TransactionStatusPending).
			Updates(map[string]any{
				"status":        types.TransactionStatusSuccess,
				"paid_at":       paidAt,
				"callback_data": datatypes.JSON(payload),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to claim transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			result.Transaction = &t
			return nil
		}

		t.Status = types.TransactionStatusSuccess
		t.PaidAt = &paidAt
		t.CallbackData = datatypes.JSON(payload)
		result.Claimed = true
		result.Transaction = &t

		sub, err := provision(&t)
		if err != nil {
			return err
		}
		if sub.ID == "" {
			sub.ID = tool.GenerateUUIDV7()
		}
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		// Move the weak back-reference; the previous subscription row stays.
		if err := tx.Model(&models.User{}).Where("id = ?", t.UserID).
			Update("subscription_id", sub.ID).Error; err != nil {
			return fmt.Errorf("failed to update user subscription pointer: %w", err)
		}
		result.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Claimed {
		s.writeTransactionLog(ctx, &before, result.Transaction, "settled")
		s.writeSubscriptionLog(ctx, result.Subscription, types.SubscriptionChangeReasonPurchase, orderID)
	}
	return result, nil
}

func (s *gormStore) markFromPending(ctx context.Context, orderID string, to types.TransactionStatus, reason string, extraCond string, extraArgs ...any) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("order_id = ? AND status = ?", orderID, types.TransactionStatusPending)
	if extraCond != "" {
		q = q.Where(extraCond, extraArgs...)
	}
	res := q.Updates(map[string]any{"status": to, "notes": reason})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark transaction %s: %w", to, res.Error)
	}
	updated := res.RowsAffected > 0
	if updated {
		go func() {
			var after models.Transaction
			if err := s.db.Where("order_id = ?", orderID).First(&after).Error; err == nil {
				s.writeTransactionLog(context.Background(), nil, &after, string(to))
			}
		}()
	}
	return updated, nil
}

func (s *gormStore) MarkFailed(ctx context.Context, orderID, reason string) (bool, error) {
	return s.markFromPending(ctx, orderID, types.TransactionStatusFailed, reason, "")
}

func (s *gormStore) MarkCancelled(ctx context.Context, orderID, reason string) (bool, error) {
	// Expiry is re-checked in the condition so a cancel racing the sweeper
	// cannot cancel an already-expired transaction.
	return s.markFromPending(ctx, orderID, types.TransactionStatusCancelled, reason,
		"expired_at > ?", time.Now())
}

func (s *gormStore) PackageByID(ctx context.Context, id string) (*models.SubscriptionPackage, error) {
	var p models.SubscriptionPackage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageUnavailable
		}
		return nil, fmt.Errorf("failed to load package: %w", err)
	}
	return &p, nil
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

func (s *gormStore) ListUserTransactions(ctx context.Context, userID string, status types.TransactionStatus, limit, offset int) ([]*models.Transaction, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	var rows []*models.Transaction
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, total, nil
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanTransactions implements paginated/admin listing with filters.
func (s *gormStore) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.Transaction
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}

func (s *gormStore) SweepExpiredTransactions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ? AND expired_at < ?", types.TransactionStatusPending, now).
		Update("status", types.TransactionStatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) DeactivateExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("is_active = ? AND end_date < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired subscriptions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Audit logs are written asynchronously; errors are logged but not returned.
func (s *gormStore) writeTransactionLog(ctx context.Context, before, after *models.Transaction, reason string) {
	go func() {
		log := &models.TransactionLog{
			ID:        tool.GenerateUUIDV7(),
			UserID:    after.UserID,
			PackageID: after.PackageID,
			OrderID:   after.OrderID,
			Status:    after.Status,
			Reason:    reason,
			Before:    datatypes.NewJSONType(before),
			After:     datatypes.NewJSONType(after),
			Extra:     datatypes.JSONMap{},
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save transaction log: %v", err)
		}
	}()
}

func (s *gormStore) writeSubscriptionLog(ctx context.Context, after *models.UserSubscription, reason types.SubscriptionChangeReason, orderID string) {
	go func() {
		log := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			Reason: reason,
			After:  datatypes.NewJSONType(after),
			Extra:  datatypes.JSONMap{"order_id": orderID},
		}
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
