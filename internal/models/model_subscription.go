package models

import (
	"time"
)

// UserSubscription is one quota-bearing entitlement window. Rows outlive
// being "active": superseding a subscription only moves the user's
// subscription pointer, it never deletes the old row.
type UserSubscription struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID    string `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_active,priority:1" json:"user_id"`
	PackageID string `gorm:"column:package_id;type:varchar(64);not null;index" json:"package_id"`
	// TransactionID ties the subscription to the settlement that provisioned
	// it. Unique so a transaction can never provision twice; nil for operator
	// grants.
	TransactionID *string `gorm:"column:transaction_id;type:uuid;uniqueIndex" json:"transaction_id"`

	DownloadsUsed      int `gorm:"column:downloads_used;not null;default:0" json:"downloads_used"`
	DownloadsRemaining int `gorm:"column:downloads_remaining;not null" json:"downloads_remaining"`

	StartDate time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;not null;index" json:"end_date"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true;index:idx_user_active,priority:2" json:"is_active"`

	CancelledAt     *time.Time `gorm:"column:cancelled_at;default:null" json:"cancelled_at"`
	CancelledReason *string    `gorm:"column:cancelled_reason;type:text" json:"cancelled_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

func (s *UserSubscription) IsExpired() bool {
	return s != nil && time.Now().After(s.EndDate)
}

// Valid reports whether the window is currently usable, quota aside.
func (s *UserSubscription) Valid() bool {
	return s != nil && s.IsActive && !s.IsExpired()
}

// CanDownload is the quota gate: active, unexpired, quota remaining.
func (s *UserSubscription) CanDownload() bool {
	return s.Valid() && s.DownloadsRemaining > 0
}

func (s *UserSubscription) DaysRemaining() int {
	if s == nil || s.IsExpired() {
		return 0
	}
	d := time.Until(s.EndDate)
	return int((d + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
}

func (s *UserSubscription) UsagePercentage() float64 {
	total := s.DownloadsUsed + s.DownloadsRemaining
	if total == 0 {
		return 0
	}
	return float64(s.DownloadsUsed) / float64(total) * 100
}
