package account

import (
	"context"
	"errors"
	"strings"

	"github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service handles registration and credential checks. Token issuance
// stays with the HTTP layer; this service only answers who the caller is.
type Service struct {
	log   *zap.SugaredLogger
	store Store
}

func New(log *zap.SugaredLogger, store Store) *Service {
	return &Service{log: log, store: store}
}

type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// Register creates a user account with a bcrypt password hash. The email
// is normalized to lower case before the uniqueness check.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	log := logctx.FromCtx(ctx, s.log)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.store.UserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		ID:           tool.GenerateUUIDV7(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.UserRoleUser,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	log.Infof("user registered id=%s email=%s", u.ID, u.Email)
	return u, nil
}

// Login verifies the credentials and returns the account. Unknown email
// and wrong password both come back as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	log := logctx.FromCtx(ctx, s.log)
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		log.Warnf("login attempt on disabled account %s", u.ID)
		return nil, ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		log.Warnf("failed login for %s", email)
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
