package handlers

import (
	"time"

	"github.com/tokomedia/mediamart/internal/app/service/statistics"
	"github.com/tokomedia/mediamart/pkg/response"
	types "github.com/tokomedia/mediamart/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespTransaction wraps a single transaction in the standard envelope.
type RespTransaction struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SwaggerTransaction       `json:"data"`
}

// RespScanTransactions wraps the admin scan result in the standard envelope.
type RespScanTransactions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    struct {
		Items []SwaggerTransaction `json:"items"`
		Total int64                `json:"total"`
	} `json:"data"`
}

// RespDashboardStatistic wraps DashboardResponse in the standard envelope.
type RespDashboardStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.DashboardResponse `json:"data"`
}

// SwaggerTransaction is a simplified view of models.Transaction for
// documentation purposes.
type SwaggerTransaction struct {
	ID          string                  `json:"id"`
	OrderID     string                  `json:"order_id"`
	UserID      string                  `json:"user_id"`
	PackageID   string                  `json:"package_id"`
	Currency    string                  `json:"currency"`
	Amount      int64                   `json:"amount"`
	FeeAmount   int64                   `json:"fee_amount"`
	TotalAmount int64                   `json:"total_amount"`
	Status      types.TransactionStatus `json:"status"`
	PaymentURL  *string                 `json:"payment_url"`
	VaNumber    *string                 `json:"va_number"`
	PaidAt      *time.Time              `json:"paid_at"`
	ExpiredAt   time.Time               `json:"expired_at"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}
