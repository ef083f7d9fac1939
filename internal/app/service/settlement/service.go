package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/internal/platform/duitku"
	"github.com/tokomedia/mediamart/pkg/config"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"
	types "github.com/tokomedia/mediamart/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// orderIDPrefix marks orders originated by this service at the gateway.
const orderIDPrefix = "SUB"

// NotificationSink records gateway notification deliveries and their
// handling outcome. Satisfied by notification_log.Service.
type NotificationSink interface {
	Save(ctx context.Context, log *models.PaymentNotificationLog)
	SetResult(ctx context.Context, id string, status models.PaymentNotificationLogStatus, result *datatypes.JSON)
}

// Service is the settlement engine. It owns the transaction lifecycle:
// creation against the gateway, callback and poll driven settlement,
// cancellation, and expiry sweeping. Status moves forward only; settlement
// is idempotent no matter how many callbacks or polls race.
type Service struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	store   Store
	gateway Gateway
	notif   NotificationSink
}

func New(cfg *config.Config, log *zap.SugaredLogger, store Store, gateway Gateway, notif NotificationSink) *Service {
	return &Service{cfg: cfg, log: log, store: store, gateway: gateway, notif: notif}
}

// CreatePaymentRequest carries everything needed to open an invoice.
type CreatePaymentRequest struct {
	UserID       string
	PackageID    string
	CustomerName string
	Email        string
	PhoneNumber  string
}

// ScanTransactionsRequest is the admin listing request.
type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

// CreatePayment opens a pending transaction for the given package. The
// invoice is created at the gateway first; nothing is persisted when the
// gateway declines or is unreachable, so there is never a dangling pending
// row without a payable invoice behind it.
func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*models.Transaction, error) {
	log := logctx.FromCtx(ctx, s.log)

	pkg, err := s.store.PackageByID(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageUnavailable
	}

	active, err := s.store.ActiveSubscription(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil && active.Valid() {
		return nil, ErrSubscriptionConflict
	}

	orderID := fmt.Sprintf("%s_%d_%s", orderIDPrefix, time.Now().UnixMilli(), tool.GenerateUUIDV7())
	amount := pkg.EffectivePrice()

	invoice, err := s.gateway.CreateInvoice(ctx, duitku.InvoiceParams{
		OrderID:        orderID,
		Amount:         amount,
		ProductDetails: pkg.Name,
		CustomerName:   req.CustomerName,
		Email:          req.Email,
		PhoneNumber:    req.PhoneNumber,
		ItemDetails: []duitku.ItemDetail{
			{Name: pkg.Name, Quantity: 1, Price: amount},
		},
	})
	if err != nil {
		log.Warnf("create invoice failed for user %s package %s: %v", req.UserID, req.PackageID, err)
		return nil, err
	}

	t := &models.Transaction{
		ID:                tool.GenerateUUIDV7(),
		UserID:            req.UserID,
		PackageID:         pkg.ID,
		OrderID:           orderID,
		ProviderID:        types.PaymentProviderDuitku,
		ProviderReference: &invoice.Reference,
		Currency:          "IDR",
		Amount:            amount,
		Status:            types.TransactionStatusPending,
		PaymentURL:        &invoice.PaymentURL,
	}
	if invoice.VaNumber != "" {
		t.VaNumber = &invoice.VaNumber
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	log.Infof("payment created order=%s user=%s package=%s amount=%d", orderID, req.UserID, pkg.ID, amount)
	return t, nil
}

// ProcessCallback handles one gateway notification. Every delivery is
// recorded before anything else; an invalid signature is rejected without
// touching transaction state.
func (s *Service) ProcessCallback(ctx context.Context, p *duitku.CallbackParams, raw []byte) error {
	log := logctx.FromCtx(ctx, s.log)

	notif := &models.PaymentNotificationLog{
		ID:               tool.GenerateUUIDV7(),
		ProviderID:       string(types.PaymentProviderDuitku),
		OrderID:          p.MerchantOrderID,
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(raw),
		Status:           models.PaymentNotificationLogStatusReceived,
	}
	s.notif.Save(ctx, notif)

	if !s.gateway.VerifyCallback(p) {
		log.Warnf("callback signature mismatch order=%s merchant=%s", p.MerchantOrderID, p.MerchantCode)
		s.setNotifResult(ctx, notif.ID, models.PaymentNotificationLogStatusHandleFailed, "signature mismatch")
		return ErrSignatureInvalid
	}

	err := s.applyGatewayResult(ctx, p.MerchantOrderID, p.ResultCode, raw)
	if errors.Is(err, ErrAlreadySettled) {
		// Idempotency guard: the repeat delivery is acknowledged as handled.
		log.Infof("duplicate settlement notification order=%s", p.MerchantOrderID)
		s.setNotifResult(ctx, notif.ID, models.PaymentNotificationLogStatusHandled, "")
		return nil
	}
	if err != nil {
		s.setNotifResult(ctx, notif.ID, models.PaymentNotificationLogStatusHandleFailed, err.Error())
		return err
	}
	s.setNotifResult(ctx, notif.ID, models.PaymentNotificationLogStatusHandled, "")
	return nil
}

// applyGatewayResult maps a gateway result code onto the local transaction.
// Shared by the callback and poll paths so both race through the same CAS.
func (s *Service) applyGatewayResult(ctx context.Context, orderID, resultCode string, payload []byte) error {
	log := logctx.FromCtx(ctx, s.log)

	switch resultCode {
	case duitku.ResultCodeSuccess:
		res, err := s.store.Settle(ctx, orderID, time.Now(), payload, s.provision)
		if err != nil {
			return err
		}
		if !res.Claimed {
			// Duplicate delivery or a lost race. Anything other than an
			// already-settled transaction means the gateway reported success
			// for money we no longer accept, which only gets logged.
			if res.Transaction.Status != types.TransactionStatusSuccess {
				log.Warnf("success result for non-pending order=%s status=%s", orderID, res.Transaction.Status)
				return nil
			}
			return ErrAlreadySettled
		}
		log.Infof("settled order=%s user=%s subscription=%s", orderID, res.Transaction.UserID, res.Subscription.ID)
		return nil

	case duitku.ResultCodePending:
		// Still processing at the gateway; a later notification decides.
		return nil

	case duitku.ResultCodeFailed:
		updated, err := s.store.MarkFailed(ctx, orderID, "gateway reported failure")
		if err != nil {
			return err
		}
		if !updated {
			log.Infof("failure result for non-pending order=%s, ignored", orderID)
		}
		return nil

	default:
		log.Warnf("unknown gateway result code %q order=%s, left pending", resultCode, orderID)
		return nil
	}
}

// provision builds the subscription a settled transaction pays for. Called
// inside the settlement DB transaction by the winning claimer only.
func (s *Service) provision(t *models.Transaction) (*models.UserSubscription, error) {
	pkg, err := s.store.PackageByID(context.Background(), t.PackageID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &models.UserSubscription{
		UserID:             t.UserID,
		PackageID:          pkg.ID,
		TransactionID:      &t.ID,
		DownloadsRemaining: pkg.DownloadLimit,
		StartDate:          now,
		EndDate:            now.AddDate(0, 0, pkg.DurationDays),
		IsActive:           true,
	}, nil
}

// CheckPaymentStatus returns the caller's transaction, polling the gateway
// only while it is locally pending. A gateway outage degrades the answer to
// the local state instead of failing the request.
func (s *Service) CheckPaymentStatus(ctx context.Context, userID, orderID string) (*models.Transaction, error) {
	log := logctx.FromCtx(ctx, s.log)

	t, err := s.store.TransactionForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !t.IsPending() {
		return t, nil
	}

	status, err := s.gateway.TransactionStatus(ctx, orderID)
	if err != nil {
		log.Warnf("status poll failed order=%s: %v", orderID, err)
		return t, nil
	}

	payload, _ := json.Marshal(status)
	if err := s.applyGatewayResult(ctx, orderID, status.StatusCode, payload); err != nil && !errors.Is(err, ErrAlreadySettled) {
		return nil, err
	}
	return s.store.TransactionForUser(ctx, userID, orderID)
}

// CancelTransaction voids the caller's own pending, unexpired transaction.
func (s *Service) CancelTransaction(ctx context.Context, userID, orderID string) (*models.Transaction, error) {
	t, err := s.store.TransactionForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !t.CanBePaid() {
		return nil, ErrNotCancellable
	}
	updated, err := s.store.MarkCancelled(ctx, orderID, "cancelled by user")
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a race against settlement or the sweeper.
		return nil, ErrNotCancellable
	}
	return s.store.TransactionForUser(ctx, userID, orderID)
}

// PaymentMethods lists gateway payment channels and fees for an amount.
func (s *Service) PaymentMethods(ctx context.Context, amount int64) ([]duitku.PaymentMethod, error) {
	return s.gateway.PaymentMethods(ctx, amount)
}

func (s *Service) ListTransactions(ctx context.Context, userID string, status types.TransactionStatus, limit, offset int) ([]*models.Transaction, int64, error) {
	return s.store.ListUserTransactions(ctx, userID, status, limit, offset)
}

// ScanTransactions is the admin-facing filtered listing.
func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	return s.store.ScanTransactions(ctx, req)
}

// GetTransaction loads a transaction by order id without ownership checks.
// Admin use only.
func (s *Service) GetTransaction(ctx context.Context, orderID string) (*models.Transaction, error) {
	return s.store.TransactionByOrderID(ctx, orderID)
}

// SweepExpired expires overdue pending transactions and deactivates lapsed
// subscriptions. Safe to run concurrently with everything else; both writes
// are single conditional updates.
func (s *Service) SweepExpired(ctx context.Context) {
	if n, err := s.store.SweepExpiredTransactions(ctx, time.Now()); err != nil {
		s.log.Errorf("expired transaction sweep failed: %v", err)
	} else if n > 0 {
		s.log.Infof("expired %d overdue pending transactions", n)
	}
	if n, err := s.store.DeactivateExpiredSubscriptions(ctx, time.Now()); err != nil {
		s.log.Errorf("subscription expiry sweep failed: %v", err)
	} else if n > 0 {
		s.log.Infof("deactivated %d lapsed subscriptions", n)
	}
}

func (s *Service) setNotifResult(ctx context.Context, id string, status models.PaymentNotificationLogStatus, msg string) {
	var result *datatypes.JSON
	if msg != "" {
		if raw, err := json.Marshal(map[string]string{"error": msg}); err == nil {
			j := datatypes.JSON(raw)
			result = &j
		}
	}
	s.notif.SetResult(ctx, id, status, result)
}
