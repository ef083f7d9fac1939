package duitku

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func md5of(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSign_FieldOrder(t *testing.T) {
	// request signature is merchantCode + orderID + amount + apiKey
	got := Sign("D1234", "ORDER-1", 150000, "secret")
	require.Equal(t, md5of("D1234ORDER-1150000secret"), got)
}

func TestCallbackSignature_FieldOrderDiffersFromRequest(t *testing.T) {
	// callback signature swaps amount and orderID relative to the request
	cb := CallbackSignature("D1234", "150000", "ORDER-1", "secret")
	require.Equal(t, md5of("D1234150000ORDER-1secret"), cb)
	require.NotEqual(t, Sign("D1234", "ORDER-1", 150000, "secret"), cb)
}

func TestCallbackSignature_UsesRawWireAmount(t *testing.T) {
	// "150000.00" must not be normalized to "150000"
	withDecimals := CallbackSignature("D1234", "150000.00", "ORDER-1", "secret")
	plain := CallbackSignature("D1234", "150000", "ORDER-1", "secret")
	require.NotEqual(t, plain, withDecimals)
	require.Equal(t, md5of("D1234150000.00ORDER-1secret"), withDecimals)
}

func TestStatusSignature(t *testing.T) {
	require.Equal(t, md5of("D1234ORDER-1secret"), StatusSignature("D1234", "ORDER-1", "secret"))
}

func TestVerifyCallback(t *testing.T) {
	sig := CallbackSignature("D1234", "150000", "ORDER-1", "secret")

	require.True(t, VerifyCallback("D1234", "150000", "ORDER-1", sig, "secret"))
	require.True(t, VerifyCallback("D1234", "150000", "ORDER-1", strings.ToUpper(sig), "secret"),
		"gateway may uppercase the hex digest")

	require.False(t, VerifyCallback("D1234", "150000", "ORDER-1", sig, "other-key"))
	require.False(t, VerifyCallback("D1234", "999999", "ORDER-1", sig, "secret"),
		"tampered amount must not verify")
	require.False(t, VerifyCallback("D1234", "150000", "ORDER-2", sig, "secret"))
	require.False(t, VerifyCallback("D1234", "150000", "ORDER-1", "", "secret"))
}
