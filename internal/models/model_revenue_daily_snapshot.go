package models

import "time"

// RevenueDailySnapshot is a daily aggregate over settled transactions and
// active subscriptions, materialized for admin dashboards so reads do not
// scan the ledgers.
type RevenueDailySnapshot struct {
	ID string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	// SnapshotDate is the aggregated day in YYYY-MM-DD.
	SnapshotDate        string `gorm:"column:snapshot_date;type:varchar(10);not null;uniqueIndex" json:"snapshot_date"`
	TransactionCount    int64  `gorm:"column:transaction_count;not null" json:"transaction_count"`
	SettledCount        int64  `gorm:"column:settled_count;not null" json:"settled_count"`
	Revenue             int64  `gorm:"column:revenue;type:bigint;not null" json:"revenue"`
	ActiveSubscriptions int64  `gorm:"column:active_subscriptions;not null" json:"active_subscriptions"`

	SnapshotCreatedAt time.Time `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (RevenueDailySnapshot) TableName() string {
	return "revenue_daily_snapshot"
}
