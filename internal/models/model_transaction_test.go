package models

import (
	"testing"
	"time"

	"github.com/tokomedia/mediamart/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestTransactionBeforeSave(t *testing.T) {
	tx := &Transaction{Amount: 150000, FeeAmount: 4000}
	require.NoError(t, tx.BeforeSave(nil))
	require.Equal(t, int64(154000), tx.TotalAmount)
	require.WithinDuration(t, time.Now().Add(DefaultExpiry), tx.ExpiredAt, time.Minute)

	// an explicit expiry is kept
	custom := time.Now().Add(time.Hour)
	tx = &Transaction{Amount: 100, ExpiredAt: custom}
	require.NoError(t, tx.BeforeSave(nil))
	require.Equal(t, custom, tx.ExpiredAt)
	require.Equal(t, int64(100), tx.TotalAmount)
}

func TestTransactionCanBePaid(t *testing.T) {
	cases := []struct {
		name   string
		status types.TransactionStatus
		expiry time.Time
		want   bool
	}{
		{"pending unexpired", types.TransactionStatusPending, time.Now().Add(time.Hour), true},
		{"pending past expiry", types.TransactionStatusPending, time.Now().Add(-time.Minute), false},
		{"success", types.TransactionStatusSuccess, time.Now().Add(time.Hour), false},
		{"failed", types.TransactionStatusFailed, time.Now().Add(time.Hour), false},
		{"cancelled", types.TransactionStatusCancelled, time.Now().Add(time.Hour), false},
		{"expired", types.TransactionStatusExpired, time.Now().Add(time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &Transaction{Status: tc.status, ExpiredAt: tc.expiry}
			require.Equal(t, tc.want, tx.CanBePaid())
		})
	}
}

func TestTransactionIsExpired(t *testing.T) {
	tx := &Transaction{Status: types.TransactionStatusPending, ExpiredAt: time.Now().Add(-time.Second)}
	require.True(t, tx.IsExpired(), "overdue pending counts as expired before the sweeper runs")

	tx = &Transaction{Status: types.TransactionStatusExpired, ExpiredAt: time.Now().Add(time.Hour)}
	require.True(t, tx.IsExpired())
}
