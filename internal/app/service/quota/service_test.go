package quota

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/tool"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu            sync.Mutex
	users         map[string]*models.User
	subscriptions map[string]*models.UserSubscription
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]*models.User{},
		subscriptions: map[string]*models.UserSubscription{},
	}
}

func (m *memStore) addUserWithSub(sub *models.UserSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.ID] = sub
	u := &models.User{ID: sub.UserID, IsActive: true}
	u.SubscriptionID = &sub.ID
	m.users[sub.UserID] = u
}

func (m *memStore) UserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNoActiveSubscription
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SubscriptionByID(_ context.Context, id string) (*models.UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ActiveSubscription(_ context.Context, userID string) (*models.UserSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.UserSubscription
	for _, s := range m.subscriptions {
		if s.UserID == userID && s.IsActive {
			if best == nil || s.EndDate.After(best.EndDate) {
				best = s
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) ConsumeDownload(_ context.Context, subscriptionID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[subscriptionID]
	if !ok || !s.IsActive || !s.EndDate.After(now) || s.DownloadsRemaining <= 0 {
		return false, nil
	}
	s.DownloadsRemaining--
	s.DownloadsUsed++
	return true, nil
}

func (m *memStore) TopUp(_ context.Context, subscriptionID string, downloads int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[subscriptionID]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.DownloadsRemaining += downloads
	return true, nil
}

func (m *memStore) Cancel(_ context.Context, sub *models.UserSubscription, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[sub.ID]
	if !ok || !s.IsActive {
		return false, nil
	}
	now := time.Now()
	s.IsActive = false
	s.CancelledAt = &now
	s.CancelledReason = &reason
	if u, ok := m.users[s.UserID]; ok && u.SubscriptionID != nil && *u.SubscriptionID == s.ID {
		u.SubscriptionID = nil
	}
	return true, nil
}

func (m *memStore) Grant(_ context.Context, sub *models.UserSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	m.subscriptions[sub.ID] = sub
	if u, ok := m.users[sub.UserID]; ok {
		u.SubscriptionID = &sub.ID
	} else {
		m.users[sub.UserID] = &models.User{ID: sub.UserID, IsActive: true, SubscriptionID: &sub.ID}
	}
	return nil
}

func activeSub(remaining int) *models.UserSubscription {
	return &models.UserSubscription{
		ID:                 "sub-1",
		UserID:             "user-1",
		PackageID:          "pkg-1",
		DownloadsRemaining: remaining,
		StartDate:          time.Now().Add(-time.Hour),
		EndDate:            time.Now().Add(24 * time.Hour),
		IsActive:           true,
	}
}

func TestUseDownload(t *testing.T) {
	store := newMemStore()
	store.addUserWithSub(activeSub(3))
	svc := New(zap.NewNop().Sugar(), store)

	snap, err := svc.UseDownload(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, snap.DownloadsRemaining)
	require.Equal(t, 1, snap.DownloadsUsed)
}

func TestUseDownload_QuotaExhausted(t *testing.T) {
	store := newMemStore()
	store.addUserWithSub(activeSub(1))
	svc := New(zap.NewNop().Sugar(), store)

	_, err := svc.UseDownload(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = svc.UseDownload(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestUseDownload_NoSubscription(t *testing.T) {
	store := newMemStore()
	store.users["user-1"] = &models.User{ID: "user-1", IsActive: true}
	svc := New(zap.NewNop().Sugar(), store)

	_, err := svc.UseDownload(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestUseDownload_ExpiredSubscription(t *testing.T) {
	store := newMemStore()
	sub := activeSub(5)
	sub.EndDate = time.Now().Add(-time.Minute)
	store.addUserWithSub(sub)
	svc := New(zap.NewNop().Sugar(), store)

	_, err := svc.UseDownload(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrNoActiveSubscription)
	require.Equal(t, 5, store.subscriptions["sub-1"].DownloadsRemaining, "expiry must not spend quota")
}

func TestUseDownload_StalePointerFallsBack(t *testing.T) {
	store := newMemStore()
	old := activeSub(0)
	old.ID = "sub-old"
	old.IsActive = false
	store.addUserWithSub(old)

	// pointer still references the deactivated row, a newer active one exists
	fresh := activeSub(5)
	fresh.ID = "sub-new"
	store.mu.Lock()
	store.subscriptions["sub-new"] = fresh
	store.mu.Unlock()

	svc := New(zap.NewNop().Sugar(), store)
	snap, err := svc.UseDownload(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "sub-new", snap.SubscriptionID)
}

// wrappingStore decorates lookup misses with context, the way a gorm store
// may wrap its sentinels.
type wrappingStore struct {
	*memStore
}

func (w *wrappingStore) SubscriptionByID(ctx context.Context, id string) (*models.UserSubscription, error) {
	sub, err := w.memStore.SubscriptionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", id, err)
	}
	return sub, nil
}

func TestUseDownload_WrappedNotFoundStillFallsBack(t *testing.T) {
	store := newMemStore()
	fresh := activeSub(5)
	store.addUserWithSub(fresh)

	// pointer references a row that no longer resolves
	gone := "sub-gone"
	store.mu.Lock()
	store.users["user-1"].SubscriptionID = &gone
	store.mu.Unlock()

	svc := New(zap.NewNop().Sugar(), &wrappingStore{memStore: store})
	snap, err := svc.UseDownload(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, fresh.ID, snap.SubscriptionID)
}

func TestUseDownload_ConcurrentNeverOversells(t *testing.T) {
	const quota = 10
	store := newMemStore()
	store.addUserWithSub(activeSub(quota))
	svc := New(zap.NewNop().Sugar(), store)

	var granted, denied int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < quota*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UseDownload(context.Background(), "user-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				granted++
			} else {
				denied++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(quota), granted, "exactly the quota may be granted")
	require.Equal(t, int64(quota*2), denied)
	require.Equal(t, 0, store.subscriptions["sub-1"].DownloadsRemaining)
	require.Equal(t, quota, store.subscriptions["sub-1"].DownloadsUsed)
}

func TestInfo(t *testing.T) {
	store := newMemStore()
	store.addUserWithSub(activeSub(7))
	svc := New(zap.NewNop().Sugar(), store)

	info, err := svc.Info(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, info.Active)
	require.Equal(t, 7, info.DownloadsRemaining)

	// no subscription is a normal answer
	store.users["user-2"] = &models.User{ID: "user-2", IsActive: true}
	info, err = svc.Info(context.Background(), "user-2")
	require.NoError(t, err)
	require.False(t, info.Active)
}

func TestCancel(t *testing.T) {
	store := newMemStore()
	store.addUserWithSub(activeSub(5))
	svc := New(zap.NewNop().Sugar(), store)

	require.NoError(t, svc.Cancel(context.Background(), "user-1", "too expensive"))
	require.False(t, store.subscriptions["sub-1"].IsActive)
	require.Nil(t, store.users["user-1"].SubscriptionID)

	// no refund and no further downloads
	_, err := svc.UseDownload(context.Background(), "user-1")
	require.ErrorIs(t, err, ErrNoActiveSubscription)

	require.ErrorIs(t, svc.Cancel(context.Background(), "user-1", ""), ErrNoActiveSubscription)
}

func TestGrantAndTopUp(t *testing.T) {
	store := newMemStore()
	store.users["user-1"] = &models.User{ID: "user-1", IsActive: true}
	svc := New(zap.NewNop().Sugar(), store)

	pkg := &models.SubscriptionPackage{ID: "pkg-1", DownloadLimit: 20, DurationDays: 30, IsActive: true}
	sub, err := svc.Grant(context.Background(), "user-1", pkg)
	require.NoError(t, err)
	require.Nil(t, sub.TransactionID, "operator grants carry no settlement reference")
	require.Equal(t, 20, sub.DownloadsRemaining)

	snap, err := svc.TopUp(context.Background(), "user-1", 5)
	require.NoError(t, err)
	require.Equal(t, 25, snap.DownloadsRemaining)
}
