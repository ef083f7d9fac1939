package types

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSuccess   TransactionStatus = "success"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusExpired   TransactionStatus = "expired"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusExpired, TransactionStatusCancelled:
		return true
	}
	return false
}

type PaymentProvider string

const (
	PaymentProviderDuitku PaymentProvider = "duitku"
	// PaymentProviderInner marks grants created by operators, not paid through a gateway.
	PaymentProviderInner PaymentProvider = "inner"
)
