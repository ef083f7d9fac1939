package quota

import "errors"

var (
	// ErrNoActiveSubscription means the user has no valid entitlement window.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrQuotaExceeded means the window is valid but its downloads are spent.
	ErrQuotaExceeded = errors.New("download quota exceeded")
	// ErrSubscriptionNotFound means the referenced subscription row is gone.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
