package models

import "time"

// DownloadHistory records each issued download URL for audit and usage views.
type DownloadHistory struct {
	ID             string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID         string    `gorm:"column:user_id;type:uuid;not null;index:idx_download_user_time,priority:1" json:"user_id"`
	MediaID        string    `gorm:"column:media_id;type:uuid;not null;index" json:"media_id"`
	SubscriptionID string    `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	DownloadURL    string    `gorm:"column:download_url;type:text;not null" json:"download_url"`
	ExpiresAt      time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt      time.Time `gorm:"index:idx_download_user_time,priority:2,sort:desc" json:"created_at"`
}

func (DownloadHistory) TableName() string {
	return "download_history"
}
