package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubscriptionPackage is a catalog entry consumed when provisioning a
// subscription. Read-only from the settlement engine's point of view.
type SubscriptionPackage struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name        string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	DownloadLimit int   `gorm:"column:download_limit;not null" json:"download_limit"`
	Price         int64 `gorm:"column:price;type:bigint;not null;index" json:"price"`
	// OriginalPrice and DiscountPercentage drive the effective price; both
	// must be set for a discount to apply.
	OriginalPrice      *int64  `gorm:"column:original_price;type:bigint" json:"original_price"`
	DiscountPercentage float64 `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0" json:"discount_percentage"`
	DurationDays       int     `gorm:"column:duration_days;not null;default:30" json:"duration_days"`

	Features  datatypes.JSON `gorm:"column:features;type:jsonb;default:'[]'" json:"features"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	IsPopular bool           `gorm:"column:is_popular;not null;default:false" json:"is_popular"`
	SortOrder int            `gorm:"column:sort_order;not null;default:0;index" json:"sort_order"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SubscriptionPackage) TableName() string {
	return "subscription_packages"
}

func (p *SubscriptionPackage) HasDiscount() bool {
	return p != nil && p.DiscountPercentage > 0 && p.OriginalPrice != nil
}

// EffectivePrice is the amount actually charged, rounded down to whole rupiah.
func (p *SubscriptionPackage) EffectivePrice() int64 {
	if p.HasDiscount() {
		return int64(float64(*p.OriginalPrice) * (1 - p.DiscountPercentage/100))
	}
	return p.Price
}

func (p *SubscriptionPackage) Savings() int64 {
	if !p.HasDiscount() {
		return 0
	}
	return *p.OriginalPrice - p.EffectivePrice()
}
