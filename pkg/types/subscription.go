package types

import "time"

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonPurchase   SubscriptionChangeReason = "purchase"
	SubscriptionChangeReasonCancel     SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonExpire     SubscriptionChangeReason = "expire"
	SubscriptionChangeReasonAdminGrant SubscriptionChangeReason = "adminGrant"
)

// QuotaSnapshot is the post-update view returned after a download is consumed
// or quota is topped up.
type QuotaSnapshot struct {
	SubscriptionID     string    `json:"subscription_id"`
	DownloadsUsed      int       `json:"downloads_used"`
	DownloadsRemaining int       `json:"downloads_remaining"`
	EndDate            time.Time `json:"end_date"`
}

type UserSubscriptionInfo struct {
	Active             bool       `json:"active"`
	PackageID          *string    `json:"package_id,omitempty"`
	DownloadsUsed      int        `json:"downloads_used"`
	DownloadsRemaining int        `json:"downloads_remaining"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}
