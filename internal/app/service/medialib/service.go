package medialib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/tokomedia/mediamart/internal/app/service/quota"
	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/internal/platform/storage"
	"github.com/tokomedia/mediamart/pkg/config"
	"github.com/tokomedia/mediamart/pkg/logctx"
	"github.com/tokomedia/mediamart/pkg/tool"
	types "github.com/tokomedia/mediamart/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrMediaNotFound = errors.New("media not found")

// DownloadGrant is an issued, time-bounded download.
type DownloadGrant struct {
	URL       string               `json:"url"`
	ExpiresAt time.Time            `json:"expires_at"`
	Media     *models.Media        `json:"media"`
	Quota     *types.QuotaSnapshot `json:"quota"`
}

// ListMediaRequest filters the browsable library.
type ListMediaRequest struct {
	CategoryID string
	MediaType  models.MediaType
	Search     string
	Limit      int
	Offset     int
}

// Service is the media library: browsing is free, downloading goes through
// the quota guard and ends in a presigned object-store URL.
type Service struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	db      *gorm.DB
	quota   *quota.Service
	objects storage.Store
}

func New(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, q *quota.Service, objects storage.Store) *Service {
	return &Service{cfg: cfg, log: log, db: db, quota: q, objects: objects}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Media, error) {
	var m models.Media
	if err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to load media: %w", err)
	}
	return &m, nil
}

func (s *Service) List(ctx context.Context, req *ListMediaRequest) ([]*models.Media, int64, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	q := s.db.WithContext(ctx).Model(&models.Media{}).Where("is_active = ?", true)
	if req.CategoryID != "" {
		q = q.Where("category_id = ?", req.CategoryID)
	}
	if req.MediaType != "" {
		q = q.Where("media_type = ?", req.MediaType)
	}
	if req.Search != "" {
		q = q.Where("title ILIKE ?", "%"+req.Search+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count media: %w", err)
	}
	var rows []*models.Media
	if err := q.Order("created_at desc").Limit(req.Limit).Offset(req.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list media: %w", err)
	}
	return rows, total, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var rows []*models.Category
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("name asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return rows, nil
}

// IssueDownload charges the user's quota and returns a presigned URL for the
// media object. Quota is spent before the URL is signed; a signing failure
// after a successful spend is logged but the spend stands. The URL TTL comes
// from configuration.
func (s *Service) IssueDownload(ctx context.Context, userID, mediaID string) (*DownloadGrant, error) {
	log := logctx.FromCtx(ctx, s.log)

	media, err := s.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	snap, err := s.quota.UseDownload(ctx, userID)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.Storage.DownloadURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	url, err := s.objects.PresignDownload(ctx, media.S3Key, ttl)
	if err != nil {
		log.Errorf("presign failed media=%s after quota spend on subscription=%s: %v", mediaID, snap.SubscriptionID, err)
		return nil, fmt.Errorf("failed to sign download url: %w", err)
	}
	expiresAt := time.Now().Add(ttl)

	history := &models.DownloadHistory{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		MediaID:        media.ID,
		SubscriptionID: snap.SubscriptionID,
		DownloadURL:    url,
		ExpiresAt:      expiresAt,
	}
	go func() {
		if err := s.db.Create(history).Error; err != nil {
			s.log.Errorf("failed to save download history: %v", err)
		}
		if err := s.db.Model(&models.Media{}).Where("id = ?", media.ID).
			Update("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
			s.log.Errorf("failed to bump download count media=%s: %v", media.ID, err)
		}
	}()

	log.Infof("download issued media=%s user=%s remaining=%d", media.ID, userID, snap.DownloadsRemaining)
	return &DownloadGrant{URL: url, ExpiresAt: expiresAt, Media: media, Quota: snap}, nil
}

// History lists the user's issued downloads, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*models.DownloadHistory, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Model(&models.DownloadHistory{}).Where("user_id = ?", userID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count download history: %w", err)
	}
	var rows []*models.DownloadHistory
	if err := q.Order("created_at desc").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list download history: %w", err)
	}
	return rows, total, nil
}

// Upload stores the object and registers the media row. Admin path.
func (s *Service) Upload(ctx context.Context, m *models.Media, body io.Reader) (*models.Media, error) {
	if m.ID == "" {
		m.ID = tool.GenerateUUIDV7()
	}
	if m.S3Key == "" {
		m.S3Key = path.Join("media", string(m.MediaType), m.ID+path.Ext(m.FileName))
	}
	if err := s.objects.Put(ctx, m.S3Key, body, m.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	m.IsActive = true
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infof("media %s uploaded (%s)", m.ID, m.Title)
	return m, nil
}

// Deactivate hides media from the library; the stored object stays.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Media{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate media: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMediaNotFound
	}
	return nil
}
