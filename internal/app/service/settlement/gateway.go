package settlement

import (
	"context"

	"github.com/tokomedia/mediamart/internal/platform/duitku"
)

// Gateway is the outbound payment-provider surface the engine needs. The
// production implementation is *duitku.Client; tests substitute stubs.
type Gateway interface {
	CreateInvoice(ctx context.Context, p duitku.InvoiceParams) (*duitku.Invoice, error)
	TransactionStatus(ctx context.Context, orderID string) (*duitku.TransactionStatus, error)
	PaymentMethods(ctx context.Context, amount int64) ([]duitku.PaymentMethod, error)
	VerifyCallback(p *duitku.CallbackParams) bool
}

var _ Gateway = (*duitku.Client)(nil)
