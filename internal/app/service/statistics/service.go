package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/tool"
	"github.com/tokomedia/mediamart/pkg/types"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Daily counts and revenue over the transaction ledger
	StatisticTypeDailyTransactionCount StatisticType = "daily_transaction_count"
	StatisticTypeDailyRevenue          StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue          StatisticType = "total_revenue"

	// Subscription related
	StatisticTypeDailyNewSubscriptionCount StatisticType = "daily_new_subscription_count"
	StatisticTypeActiveSubscriptionCount   StatisticType = "active_subscription_count"

	// Download related
	StatisticTypeDailyDownloadCount StatisticType = "daily_download_count"
	StatisticTypeTopMedia           StatisticType = "top_media"
)

// Filter fields only meaningful for a subset of the statistic types.
type StatisticFilterType string

const (
	StatisticFilterTypeStatus    StatisticFilterType = "status"
	StatisticFilterTypePackageID StatisticFilterType = "package_id"
)

var filterTypes = []StatisticFilterType{
	StatisticFilterTypeStatus,
	StatisticFilterTypePackageID,
}

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypeStatus:    {StatisticTypeDailyTransactionCount, StatisticTypeDailyRevenue},
	StatisticFilterTypePackageID: {StatisticTypeDailyTransactionCount, StatisticTypeDailyRevenue, StatisticTypeDailyNewSubscriptionCount},
}

type DashboardDataItem struct {
	ID StatisticType `json:"id"`
}

type DashboardRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*DashboardDataItem  `json:"data_items"`
}

// GetFilters keeps only the filters applicable to the given statistic type.
func (f *DashboardRequest) GetFilters(statisticType StatisticType) *DashboardRequest {
	if f == nil || len(f.Filters) == 0 {
		return f
	}
	var result DashboardRequest
	for _, filter := range f.Filters {
		if statisticTypes, ok := validFilters[StatisticFilterType(filter.Field)]; ok {
			if lo.Contains(statisticTypes, statisticType) {
				result.Filters = append(result.Filters, filter)
			}
		} else {
			result.Filters = append(result.Filters, filter)
		}
	}
	return &result
}

// Build composes a WHERE clause from the request filters.
func (f *DashboardRequest) Build(builder clause.Builder) {
	if len(f.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range f.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

type DashboardResponseDataItem struct {
	Date   string `json:"date"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
}

type DashboardResponse struct {
	DataItems map[StatisticType][]DashboardResponseDataItem `json:"data_items"`
}

// Service provides dashboard statistics over the transaction, subscription
// and download ledgers.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// SaveRevenueDailySnapshot materializes one day's aggregates. Upserts on the
// snapshot date so re-running a day is safe.
func (s *Service) SaveRevenueDailySnapshot(ctx context.Context, day time.Time) error {
	date := day.Format(time.DateOnly)
	snap := &models.RevenueDailySnapshot{
		ID:                tool.GenerateUUIDV7(),
		SnapshotDate:      date,
		SnapshotCreatedAt: time.Now(),
	}

	row := s.db.WithContext(ctx).Raw(`
SELECT
  COUNT(*) as transaction_count,
  COUNT(*) FILTER (WHERE status = ?) as settled_count,
  COALESCE(SUM(total_amount) FILTER (WHERE status = ?), 0) as revenue
FROM transactions
WHERE TO_CHAR(created_at, 'YYYY-MM-DD') = ?
`, types.TransactionStatusSuccess, types.TransactionStatusSuccess, date).Row()
	if err := row.Scan(&snap.TransactionCount, &snap.SettledCount, &snap.Revenue); err != nil {
		return fmt.Errorf("failed to aggregate transactions: %w", err)
	}

	err := s.db.WithContext(ctx).Model(&models.UserSubscription{}).
		Where("is_active = ? AND end_date >= ?", true, day).
		Count(&snap.ActiveSubscriptions).Error
	if err != nil {
		return fmt.Errorf("failed to count active subscriptions: %w", err)
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"transaction_count", "settled_count", "revenue",
			"active_subscriptions", "snapshot_created_at",
		}),
	}).Create(snap).Error
}

// RevenueSnapshots returns materialized daily aggregates in a date range.
func (s *Service) RevenueSnapshots(ctx context.Context, from, to time.Time) ([]*models.RevenueDailySnapshot, error) {
	var rows []*models.RevenueDailySnapshot
	err := s.db.WithContext(ctx).
		Where("snapshot_date >= ? AND snapshot_date <= ?", from.Format(time.DateOnly), to.Format(time.DateOnly)).
		Order("snapshot_date desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list revenue snapshots: %w", err)
	}
	return rows, nil
}

func (s *Service) getDailyTransactionCount(ctx context.Context, request *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Transaction{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("provider_id != ?", types.PaymentProviderInner).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyTransactionCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, request *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Transaction{}).TableName()).
		Select("TO_CHAR(paid_at, 'YYYY-MM-DD') as date, currency AS label, sum(total_amount) as value").
		Where("status = ?", types.TransactionStatusSuccess).
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyRevenue)}}).
		Group("TO_CHAR(paid_at, 'YYYY-MM-DD')").
		Group("currency").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalRevenue(ctx context.Context, _ *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(paid_at)) as min_date, MAX(DATE(paid_at)) as max_date
    FROM transactions WHERE status = ?
),
distinct_dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval) as date FROM min_max_dates
),
daily AS (
    SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COALESCE(SUM(t.total_amount), 0) as value
    FROM distinct_dates d
    LEFT JOIN transactions t
      ON DATE(t.paid_at) = d.date AND t.status = ?
    GROUP BY d.date
)
SELECT d.date as date, SUM(s.value) as value
FROM daily d
LEFT JOIN daily s ON s.date <= d.date
GROUP BY d.date
ORDER BY d.date DESC
`, types.TransactionStatusSuccess, types.TransactionStatusSuccess).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where(clause.Where{Exprs: []clause.Expression{request.GetFilters(StatisticTypeDailyNewSubscriptionCount)}}).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getActiveSubscriptionCount(ctx context.Context, _ *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	q := s.db.WithContext(ctx).Table((models.UserSubscription{}).TableName()).
		Select("count(*) as value").
		Where("is_active = ?", true).
		Where("end_date >= ?", time.Now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyDownloadCount(ctx context.Context, _ *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	q := s.db.WithContext(ctx).Table((models.DownloadHistory{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTopMedia(ctx context.Context, _ *DashboardRequest) ([]DashboardResponseDataItem, error) {
	var results []DashboardResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
SELECT m.title as label, m.download_count as value,
       COUNT(h.id) as value2
FROM media m
LEFT JOIN download_history h ON h.media_id = m.id
WHERE m.is_active
GROUP BY m.id, m.title, m.download_count
ORDER BY m.download_count DESC
LIMIT 10
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *DashboardRequest, dataItem *DashboardDataItem) ([]DashboardResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyTransactionCount:
		return s.getDailyTransactionCount(ctx, request)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, request)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeActiveSubscriptionCount:
		return s.getActiveSubscriptionCount(ctx, request)
	case StatisticTypeDailyDownloadCount:
		return s.getDailyDownloadCount(ctx, request)
	case StatisticTypeTopMedia:
		return s.getTopMedia(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetDashboardStatistic resolves every requested data item concurrently.
func (s *Service) GetDashboardStatistic(ctx context.Context, request *DashboardRequest) (*DashboardResponse, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(request.DataItems))
	resChan := make(chan *lo.Entry[StatisticType, []DashboardResponseDataItem], len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *DashboardDataItem) {
			defer wg.Done()
			// skip data items the requested filters cannot apply to
			for _, filter := range request.Filters {
				ft := StatisticFilterType(filter.Field)
				if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], di.ID) {
					resChan <- &lo.Entry[StatisticType, []DashboardResponseDataItem]{Key: di.ID, Value: nil}
					return
				}
			}
			res, err := s.getStatistic(ctx, request, di)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[StatisticType, []DashboardResponseDataItem]{Key: di.ID, Value: res}
		}(item)
	}

	go func() { wg.Wait(); close(errChan); close(resChan) }()

	results := make(map[StatisticType][]DashboardResponseDataItem)
	for i := 0; i < len(request.DataItems); i++ {
		select {
		case err := <-errChan:
			if err != nil {
				return nil, err
			}
		case entry := <-resChan:
			results[entry.Key] = entry.Value
		}
	}
	return &DashboardResponse{DataItems: results}, nil
}
