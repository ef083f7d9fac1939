package settlement

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/internal/platform/duitku"
	"github.com/tokomedia/mediamart/pkg/config"
	"github.com/tokomedia/mediamart/pkg/tool"
	types "github.com/tokomedia/mediamart/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// memStore is an in-memory Store with the same conditional-write semantics
// as the SQL implementation.
type memStore struct {
	mu            sync.Mutex
	transactions  map[string]*models.Transaction // by order id
	subscriptions []*models.UserSubscription
	packages      map[string]*models.SubscriptionPackage
	userPointers  map[string]*string
}

func newMemStore() *memStore {
	return &memStore{
		transactions: map[string]*models.Transaction{},
		packages:     map[string]*models.SubscriptionPackage{},
		userPointers: map[string]*string{},
	}
}

func (m *memStore) TransactionByOrderID(_ context.Context, orderID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[orderID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) TransactionForUser(ctx context.Context, userID, orderID string) (*models.Transaction, error) {
	t, err := m.TransactionByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = tool.GenerateUUIDV7()
	}
	if t.ExpiredAt.IsZero() {
		t.ExpiredAt = time.Now().Add(models.DefaultExpiry)
	}
	cp := *t
	m.transactions[t.OrderID] = &cp
	return nil
}

func (m *memStore) Settle(_ context.Context, orderID string, paidAt time.Time, payload []byte,
	provision func(t *models.Transaction) (*models.UserSubscription, error)) (*SettleResult, error) {
	// claim under the lock; provision outside it, like the SQL store whose
	// provision callback runs its own queries
	m.mu.Lock()
	t, ok := m.transactions[orderID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTransactionNotFound
	}
	if t.Status != types.TransactionStatusPending {
		cp := *t
		m.mu.Unlock()
		return &SettleResult{Transaction: &cp}, nil
	}
	t.Status = types.TransactionStatusSuccess
	t.PaidAt = &paidAt
	t.CallbackData = datatypes.JSON(payload)
	cp := *t
	m.mu.Unlock()

	sub, err := provision(&cp)
	if err != nil {
		return nil, err
	}
	sub.ID = tool.GenerateUUIDV7()
	m.mu.Lock()
	m.subscriptions = append(m.subscriptions, sub)
	m.userPointers[cp.UserID] = &sub.ID
	m.mu.Unlock()
	return &SettleResult{Claimed: true, Transaction: &cp, Subscription: sub}, nil
}

func (m *memStore) markFromPending(orderID string, to types.TransactionStatus, requireUnexpired bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[orderID]
	if !ok || t.Status != types.TransactionStatusPending {
		return false, nil
	}
	if requireUnexpired && time.Now().After(t.ExpiredAt) {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (m *memStore) MarkFailed(_ context.Context, orderID, _ string) (bool, error) {
	return m.markFromPending(orderID, types.TransactionStatusFailed, false)
}

func (m *memStore) MarkCancelled(_ context.Context, orderID, _ string) (bool, error) {
	return m.markFromPending(orderID, types.TransactionStatusCancelled, true)
}

func (m *memStore) PackageByID(_ context.Context, id string) (*models.SubscriptionPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packages[id]
	if !ok {
		return nil, ErrPackageUnavailable
	}
	return p, nil
}

func (m *memStore) ActiveSubscription(_ context.Context, userID string) (*models.UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.subscriptions) - 1; i >= 0; i-- {
		if s := m.subscriptions[i]; s.UserID == userID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListUserTransactions(_ context.Context, userID string, status types.TransactionStatus, _, _ int) ([]*models.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID && (status == "" || t.Status == status) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memStore) ScanTransactions(_ context.Context, _ *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	return &ScanTransactionsResponse{}, nil
}

func (m *memStore) SweepExpiredTransactions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.transactions {
		if t.Status == types.TransactionStatusPending && now.After(t.ExpiredAt) {
			t.Status = types.TransactionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeactivateExpiredSubscriptions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.subscriptions {
		if s.IsActive && now.After(s.EndDate) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// fakeGateway scripts gateway behavior per test.
type fakeGateway struct {
	invoiceErr  error
	statusResp  *duitku.TransactionStatus
	statusErr   error
	statusCalls int
	verifyOK    bool
}

func (g *fakeGateway) CreateInvoice(_ context.Context, p duitku.InvoiceParams) (*duitku.Invoice, error) {
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	return &duitku.Invoice{
		OrderID:    p.OrderID,
		Reference:  "DK-REF-1",
		PaymentURL: "https://pay.example.com/x",
		VaNumber:   "8888001",
	}, nil
}

func (g *fakeGateway) TransactionStatus(_ context.Context, orderID string) (*duitku.TransactionStatus, error) {
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.statusResp, nil
}

func (g *fakeGateway) PaymentMethods(_ context.Context, _ int64) ([]duitku.PaymentMethod, error) {
	return nil, nil
}

func (g *fakeGateway) VerifyCallback(_ *duitku.CallbackParams) bool { return g.verifyOK }

type fakeNotif struct {
	mu     sync.Mutex
	saved  []*models.PaymentNotificationLog
	status map[string]models.PaymentNotificationLogStatus
}

func newFakeNotif() *fakeNotif {
	return &fakeNotif{status: map[string]models.PaymentNotificationLogStatus{}}
}

func (f *fakeNotif) Save(_ context.Context, l *models.PaymentNotificationLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, l)
	f.status[l.ID] = l.Status
}

func (f *fakeNotif) SetResult(_ context.Context, id string, status models.PaymentNotificationLogStatus, _ *datatypes.JSON) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = status
}

func testPackage() *models.SubscriptionPackage {
	return &models.SubscriptionPackage{
		ID:            "pkg-1",
		Name:          "Pro",
		DownloadLimit: 50,
		Price:         150000,
		DurationDays:  30,
		IsActive:      true,
	}
}

func newTestService(store *memStore, gw Gateway, notif NotificationSink) *Service {
	return New(&config.Config{}, zap.NewNop().Sugar(), store, gw, notif)
}

func seedPending(t *testing.T, svc *Service, store *memStore) *models.Transaction {
	t.Helper()
	store.packages["pkg-1"] = testPackage()
	tx, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{
		UserID: "user-1", PackageID: "pkg-1", CustomerName: "Budi", Email: "budi@example.com",
	})
	require.NoError(t, err)
	return tx
}

func successCallback(orderID string) *duitku.CallbackParams {
	return &duitku.CallbackParams{
		MerchantCode:    "D1234",
		Amount:          "150000",
		MerchantOrderID: orderID,
		ResultCode:      duitku.ResultCodeSuccess,
		Signature:       "sig",
	}
}

func TestCreatePayment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())

	tx := seedPending(t, svc, store)

	require.True(t, strings.HasPrefix(tx.OrderID, "SUB_"))
	require.Equal(t, types.TransactionStatusPending, tx.Status)
	require.Equal(t, types.PaymentProviderDuitku, tx.ProviderID)
	require.Equal(t, int64(150000), tx.Amount)
	require.NotNil(t, tx.PaymentURL)
	require.Equal(t, "https://pay.example.com/x", *tx.PaymentURL)

	saved, err := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.NoError(t, err)
	require.Equal(t, tx.ID, saved.ID)
}

func TestCreatePayment_ActiveSubscriptionConflict(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	store.packages["pkg-1"] = testPackage()
	store.subscriptions = append(store.subscriptions, &models.UserSubscription{
		ID: "sub-1", UserID: "user-1", IsActive: true, EndDate: time.Now().Add(24 * time.Hour),
	})

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{UserID: "user-1", PackageID: "pkg-1"})
	require.ErrorIs(t, err, ErrSubscriptionConflict)
}

func TestCreatePayment_ExpiredSubscriptionDoesNotBlock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	store.packages["pkg-1"] = testPackage()
	store.subscriptions = append(store.subscriptions, &models.UserSubscription{
		ID: "sub-1", UserID: "user-1", IsActive: true, EndDate: time.Now().Add(-time.Hour),
	})

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{UserID: "user-1", PackageID: "pkg-1"})
	require.NoError(t, err)
}

func TestCreatePayment_InactivePackage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	pkg := testPackage()
	pkg.IsActive = false
	store.packages["pkg-1"] = pkg

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{UserID: "user-1", PackageID: "pkg-1"})
	require.ErrorIs(t, err, ErrPackageUnavailable)
}

func TestCreatePayment_GatewayRejectionPersistsNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{invoiceErr: duitku.ErrPaymentRejected}, newFakeNotif())
	store.packages["pkg-1"] = testPackage()

	_, err := svc.CreatePayment(context.Background(), &CreatePaymentRequest{UserID: "user-1", PackageID: "pkg-1"})
	require.ErrorIs(t, err, duitku.ErrPaymentRejected)
	require.Empty(t, store.transactions)
}

func TestProcessCallback_SettlesAndProvisions(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	err := svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`))
	require.NoError(t, err)

	settled, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusSuccess, settled.Status)
	require.NotNil(t, settled.PaidAt)

	require.Len(t, store.subscriptions, 1)
	sub := store.subscriptions[0]
	require.Equal(t, "user-1", sub.UserID)
	require.Equal(t, 50, sub.DownloadsRemaining)
	require.Equal(t, &tx.ID, sub.TransactionID)
	require.True(t, sub.IsActive)
	require.Equal(t, &sub.ID, store.userPointers["user-1"])
}

func TestProcessCallback_DuplicateDeliveryIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	cb := successCallback(tx.OrderID)
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))

	require.Len(t, store.subscriptions, 1, "duplicate callbacks must provision exactly once")

	// Under the hood the repeat delivery trips the idempotency guard; only
	// the callback layer flattens it to a success ack.
	err := svc.applyGatewayResult(context.Background(), tx.OrderID, duitku.ResultCodeSuccess, []byte(`{}`))
	require.ErrorIs(t, err, ErrAlreadySettled)
}

func TestProcessCallback_InvalidSignature(t *testing.T) {
	store := newMemStore()
	notif := newFakeNotif()
	svc := newTestService(store, &fakeGateway{verifyOK: false}, notif)
	tx := seedPending(t, svc, store)

	err := svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`))
	require.ErrorIs(t, err, ErrSignatureInvalid)

	unchanged, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusPending, unchanged.Status)
	require.Empty(t, store.subscriptions)

	require.Len(t, notif.saved, 1, "rejected deliveries are still recorded")
	require.Equal(t, models.PaymentNotificationLogStatusHandleFailed, notif.status[notif.saved[0].ID])
}

func TestProcessCallback_PendingResultIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	cb := successCallback(tx.OrderID)
	cb.ResultCode = duitku.ResultCodePending
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))

	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusPending, cur.Status)
}

func TestProcessCallback_FailureResult(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	cb := successCallback(tx.OrderID)
	cb.ResultCode = duitku.ResultCodeFailed
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))

	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusFailed, cur.Status)
	require.Empty(t, store.subscriptions)
}

func TestProcessCallback_UnknownResultCodeLeavesPending(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	cb := successCallback(tx.OrderID)
	cb.ResultCode = "99"
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))

	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusPending, cur.Status)
}

func TestProcessCallback_FailureAfterSuccessIsIgnored(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`)))

	cb := successCallback(tx.OrderID)
	cb.ResultCode = duitku.ResultCodeFailed
	require.NoError(t, svc.ProcessCallback(context.Background(), cb, []byte(`{}`)))

	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusSuccess, cur.Status, "settled status never moves backwards")
}

func TestProcessCallback_UnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())

	err := svc.ProcessCallback(context.Background(), successCallback("SUB_nope"), []byte(`{}`))
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCheckPaymentStatus_TerminalSkipsGateway(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{verifyOK: true}
	svc := newTestService(store, gw, newFakeNotif())
	tx := seedPending(t, svc, store)
	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`)))

	got, err := svc.CheckPaymentStatus(context.Background(), "user-1", tx.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusSuccess, got.Status)
	require.Zero(t, gw.statusCalls, "terminal transactions are never polled")
}

func TestCheckPaymentStatus_PollSettles(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{statusResp: &duitku.TransactionStatus{StatusCode: duitku.ResultCodeSuccess}}
	svc := newTestService(store, gw, newFakeNotif())
	tx := seedPending(t, svc, store)

	got, err := svc.CheckPaymentStatus(context.Background(), "user-1", tx.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusSuccess, got.Status)
	require.Len(t, store.subscriptions, 1)
}

func TestCheckPaymentStatus_GatewayOutageDegradesToLocal(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{statusErr: duitku.ErrGatewayUnavailable}
	svc := newTestService(store, gw, newFakeNotif())
	tx := seedPending(t, svc, store)

	got, err := svc.CheckPaymentStatus(context.Background(), "user-1", tx.OrderID)
	require.NoError(t, err, "an unreachable gateway must not fail the request")
	require.Equal(t, types.TransactionStatusPending, got.Status)
}

func TestCheckPaymentStatus_OtherUsersTransactionHidden(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	tx := seedPending(t, svc, store)

	_, err := svc.CheckPaymentStatus(context.Background(), "user-2", tx.OrderID)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCancelTransaction(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	got, err := svc.CancelTransaction(context.Background(), "user-1", tx.OrderID)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusCancelled, got.Status)

	// settling a cancelled transaction must not work
	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`)))
	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusCancelled, cur.Status)
	require.Empty(t, store.subscriptions)
}

func TestCancelTransaction_SettledNotCancellable(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)
	require.NoError(t, svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`)))

	_, err := svc.CancelTransaction(context.Background(), "user-1", tx.OrderID)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestCancelTransaction_ExpiredNotCancellable(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	tx := seedPending(t, svc, store)
	store.transactions[tx.OrderID].ExpiredAt = time.Now().Add(-time.Minute)

	_, err := svc.CancelTransaction(context.Background(), "user-1", tx.OrderID)
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestSweepExpired(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{}, newFakeNotif())
	tx := seedPending(t, svc, store)
	store.transactions[tx.OrderID].ExpiredAt = time.Now().Add(-time.Minute)
	store.subscriptions = append(store.subscriptions, &models.UserSubscription{
		ID: "sub-old", UserID: "user-2", IsActive: true, EndDate: time.Now().Add(-time.Hour),
	})

	svc.SweepExpired(context.Background())

	cur, _ := store.TransactionByOrderID(context.Background(), tx.OrderID)
	require.Equal(t, types.TransactionStatusExpired, cur.Status)
	require.False(t, store.subscriptions[0].IsActive)
}

func TestConcurrentSettlementProvisionsOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeGateway{verifyOK: true}, newFakeNotif())
	tx := seedPending(t, svc, store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.ProcessCallback(context.Background(), successCallback(tx.OrderID), []byte(`{}`))
		}()
	}
	wg.Wait()

	require.Len(t, store.subscriptions, 1, "racing callbacks must provision exactly once")
}
