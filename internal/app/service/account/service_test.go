package account

import (
	"context"
	"sync"
	"testing"

	"github.com/tokomedia/mediamart/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

func (s *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.Email] = &cp
	return nil
}

func newTestService(store Store) *Service {
	return New(zap.NewNop().Sugar(), store)
}

func register(t *testing.T, svc *Service, email, password string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Budi Santoso",
		Phone:    "+6281234567890",
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	u := register(t, svc, "Budi@Example.com", "rahasia-sekali")

	require.NotEmpty(t, u.ID)
	require.Equal(t, "budi@example.com", u.Email)
	require.Equal(t, models.UserRoleUser, u.Role)
	require.True(t, u.IsActive)
	require.NotEqual(t, "rahasia-sekali", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("rahasia-sekali")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	register(t, svc, "budi@example.com", "rahasia-sekali")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "BUDI@example.com",
		Password: "lain-lagi",
		FullName: "Budi Kedua",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	created := register(t, svc, "budi@example.com", "rahasia-sekali")

	u, err := svc.Login(context.Background(), "Budi@Example.com", "rahasia-sekali")
	require.NoError(t, err)
	require.Equal(t, created.ID, u.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	register(t, svc, "budi@example.com", "rahasia-sekali")

	_, err := svc.Login(context.Background(), "budi@example.com", "salah")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	u := register(t, svc, "budi@example.com", "rahasia-sekali")

	store.mu.Lock()
	store.users[u.Email].IsActive = false
	store.mu.Unlock()

	_, err := svc.Login(context.Background(), "budi@example.com", "rahasia-sekali")
	require.ErrorIs(t, err, ErrAccountDisabled)
}
