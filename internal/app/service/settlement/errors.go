package settlement

import "errors"

var (
	// ErrSignatureInvalid means the callback digest did not match. The
	// callback is rejected before any ledger mutation.
	ErrSignatureInvalid = errors.New("callback signature invalid")
	// ErrTransactionNotFound means no local transaction matches the order id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAlreadySettled is the idempotency guard: the transaction is already
	// in a terminal state. Callers treat it as success-no-op.
	ErrAlreadySettled = errors.New("transaction already settled")
	// ErrSubscriptionConflict rejects a new paid subscription while an
	// existing one is still valid, before any payment is created.
	ErrSubscriptionConflict = errors.New("user already has an active subscription")
	// ErrPackageUnavailable means the package does not exist or is inactive.
	ErrPackageUnavailable = errors.New("subscription package not found or inactive")
	// ErrNotCancellable means the transaction is not pending or has expired.
	ErrNotCancellable = errors.New("transaction cannot be cancelled")
)
