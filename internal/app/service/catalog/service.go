package catalog

import (
	"context"
	"errors"
	"fmt"

	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrPackageNotFound = errors.New("package not found")

// PackageView is the storefront shape of a package, with the discount math
// already applied.
type PackageView struct {
	*models.SubscriptionPackage
	EffectivePrice int64 `json:"effective_price"`
	Savings        int64 `json:"savings"`
}

// Service serves the subscription package catalog: public listing for the
// storefront and CRUD for operators.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// ListActive returns purchasable packages in display order.
func (s *Service) ListActive(ctx context.Context) ([]*PackageView, error) {
	var pkgs []*models.SubscriptionPackage
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order asc, price asc").
		Find(&pkgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	return lo.Map(pkgs, func(p *models.SubscriptionPackage, _ int) *PackageView {
		return &PackageView{SubscriptionPackage: p, EffectivePrice: p.EffectivePrice(), Savings: p.Savings()}
	}), nil
}

func (s *Service) Get(ctx context.Context, id string) (*PackageView, error) {
	var p models.SubscriptionPackage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to load package: %w", err)
	}
	return &PackageView{SubscriptionPackage: &p, EffectivePrice: p.EffectivePrice(), Savings: p.Savings()}, nil
}

// Create inserts a new package. Admin path.
func (s *Service) Create(ctx context.Context, p *models.SubscriptionPackage) (*models.SubscriptionPackage, error) {
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infof("package %s created (%s)", p.ID, p.Name)
	return p, nil
}

// Update applies the given column updates to a package. Admin path.
func (s *Service) Update(ctx context.Context, id string, updates map[string]any) (*models.SubscriptionPackage, error) {
	res := s.db.WithContext(ctx).Model(&models.SubscriptionPackage{}).
		Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update package: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrPackageNotFound
	}
	var p models.SubscriptionPackage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to reload package: %w", err)
	}
	return &p, nil
}

// Deactivate soft-removes a package from the storefront. Existing
// subscriptions provisioned from it are untouched.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.SubscriptionPackage{}).
		Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate package: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPackageNotFound
	}
	logctx.FromCtx(ctx, s.log).Infof("package %s deactivated", id)
	return nil
}
