package models

import (
	"time"

	"github.com/tokomedia/mediamart/pkg/types"

	"gorm.io/datatypes"
)

// TransactionLog records every transaction state change with before/after
// snapshots. Used for troubleshooting settlement disputes.
type TransactionLog struct {
	ID        string                  `gorm:"column:id;primary_key;type:uuid;index:idx_txlog_user_id,priority:2,sort:desc"`
	UserID    string                  `gorm:"column:user_id;type:varchar(64);index:idx_txlog_user_id,priority:1;not null"`
	PackageID string                  `gorm:"column:package_id;type:varchar(64);not null"`
	OrderID   string                  `gorm:"column:order_id;type:varchar(100);not null;index"`
	Status    types.TransactionStatus `gorm:"column:status;type:varchar(32);not null"`
	// Reason is why the transition happened (callback, poll, cancel, sweep).
	Reason string `gorm:"column:reason;type:varchar(64);not null"`
	// Before and After are JSON snapshots of the transaction row.
	Before    datatypes.JSONType[*Transaction] `gorm:"column:before;type:jsonb;default:'null'"`
	After     datatypes.JSONType[*Transaction] `gorm:"column:after;type:jsonb;default:'null'"`
	Extra     datatypes.JSONMap                `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time                        `json:"created_at"`
}

func (TransactionLog) TableName() string {
	return "transaction_log"
}
