package duitku

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// The gateway authenticates both directions with an MD5 digest over
// concatenated fields. MD5 is what the provider protocol mandates; the
// digests must match the gateway's own computation bit-for-bit.
//
// Field order differs between directions and must not be unified:
// requests sign (merchantCode, orderID, amount, apiKey), callbacks sign
// (merchantCode, amount, orderID, apiKey).

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Sign computes the createinvoice request signature.
func Sign(merchantCode, orderID string, amount int64, apiKey string) string {
	return md5hex(merchantCode + orderID + strconv.FormatInt(amount, 10) + apiKey)
}

// CallbackSignature computes the digest the gateway attaches to callbacks.
// The amount is used exactly as received on the wire, not re-formatted.
func CallbackSignature(merchantCode, amount, orderID, apiKey string) string {
	return md5hex(merchantCode + amount + orderID + apiKey)
}

// StatusSignature computes the transactionStatus request signature.
func StatusSignature(merchantCode, orderID, apiKey string) string {
	return md5hex(merchantCode + orderID + apiKey)
}

// VerifyCallback checks a callback's claimed signature in constant time.
func VerifyCallback(merchantCode, amount, orderID, claimed, apiKey string) bool {
	expected := CallbackSignature(merchantCode, amount, orderID, apiKey)
	claimed = strings.ToLower(claimed)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(claimed)) == 1
}
