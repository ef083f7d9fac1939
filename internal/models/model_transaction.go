package models

import (
	"time"

	"github.com/tokomedia/mediamart/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction is one payment attempt against the gateway. Rows are never
// deleted; terminal statuses supersede pending.
type Transaction struct {
	ID        string `gorm:"column:id;primary_key;type:uuid;index:idx_user_id_id,priority:2,sort:desc" json:"id"`
	UserID    string `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_id_id,priority:1;index:idx_user_status,priority:1" json:"user_id"`
	PackageID string `gorm:"column:package_id;type:varchar(64);not null" json:"package_id"`
	// OrderID is the merchant order id generated locally, the correlation key
	// with the gateway (merchantOrderId on the wire).
	OrderID string `gorm:"column:order_id;type:varchar(100);not null;uniqueIndex" json:"order_id"`
	// ProviderReference is assigned by the gateway on invoice creation.
	ProviderReference *string               `gorm:"column:provider_reference;type:varchar(100);index" json:"provider_reference"`
	ProviderID        types.PaymentProvider `gorm:"column:provider_id;type:varchar(64);not null" json:"provider_id"`
	Currency          string                `gorm:"column:currency;type:varchar(8);not null;default:'IDR'" json:"currency"`
	// Amounts are whole rupiah.
	Amount      int64 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	FeeAmount   int64 `gorm:"column:fee_amount;type:bigint;not null;default:0" json:"fee_amount"`
	TotalAmount int64 `gorm:"column:total_amount;type:bigint" json:"total_amount"`

	Status         types.TransactionStatus `gorm:"column:status;type:varchar(32);not null;index;index:idx_user_status,priority:2" json:"status"`
	PaymentMethod  *string                 `gorm:"column:payment_method;type:varchar(50)" json:"payment_method"`
	PaymentChannel *string                 `gorm:"column:payment_channel;type:varchar(50)" json:"payment_channel"`
	PaymentURL     *string                 `gorm:"column:payment_url;type:text" json:"payment_url"`
	VaNumber       *string                 `gorm:"column:va_number;type:varchar(50)" json:"va_number"`
	// CallbackData keeps the raw provider payload that settled this
	// transaction, stored opaque for audit.
	CallbackData datatypes.JSON `gorm:"column:callback_data;type:jsonb" json:"callback_data"`
	Notes        *string        `gorm:"column:notes;type:text" json:"notes"`

	PaidAt    *time.Time `gorm:"column:paid_at;default:null" json:"paid_at"`
	ExpiredAt time.Time  `gorm:"column:expired_at;not null" json:"expired_at"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// DefaultExpiry is how long a pending transaction stays payable.
const DefaultExpiry = 24 * time.Hour

// BeforeSave keeps total_amount consistent with amount + fee_amount and
// defaults expired_at to creation + 24h.
func (t *Transaction) BeforeSave(*gorm.DB) error {
	t.TotalAmount = t.Amount + t.FeeAmount
	if t.ExpiredAt.IsZero() {
		t.ExpiredAt = time.Now().Add(DefaultExpiry)
	}
	return nil
}

func (t *Transaction) IsPending() bool {
	return t != nil && t.Status == types.TransactionStatusPending
}

func (t *Transaction) IsSuccess() bool {
	return t != nil && t.Status == types.TransactionStatusSuccess
}

// IsExpired is true for the stored expired status or for a pending row whose
// expiry timestamp has passed but has not been swept yet.
func (t *Transaction) IsExpired() bool {
	if t == nil {
		return false
	}
	return t.Status == types.TransactionStatusExpired ||
		(!t.ExpiredAt.IsZero() && time.Now().After(t.ExpiredAt))
}

// CanBePaid reports whether the transaction may still settle or be cancelled.
func (t *Transaction) CanBePaid() bool {
	return t.IsPending() && !t.IsExpired()
}
