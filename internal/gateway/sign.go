package gateway

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// Hash recipes required by the payment windows and provider APIs. All
// helpers return lowercase hex. Inputs are concatenated exactly as the
// providers document them: no separators, no URL encoding.

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RequestSignature signs the payment window request: SHA256(orderNo + price + timestamp).
func RequestSignature(orderNo, price, timestamp string) string {
	return sha256Hex(orderNo + price + timestamp)
}

// RequestVerification is the server-trusted variant that folds in the
// shared secret: SHA256(orderNo + price + secret + timestamp).
func RequestVerification(orderNo, price, secret, timestamp string) string {
	return sha256Hex(orderNo + price + secret + timestamp)
}

// MerchantKey derives the mKey field: SHA256(merchantID + secret).
func MerchantKey(merchantID, secret string) string {
	return sha256Hex(merchantID + secret)
}

// AuthSignature signs the approval call. This leg uses name=value pairs:
// SHA256("authToken=" + token + "&timestamp=" + ts).
func AuthSignature(authToken, timestamp string) string {
	return sha256Hex("authToken=" + authToken + "&timestamp=" + timestamp)
}

// AuthVerification is the secret-bearing variant of AuthSignature.
func AuthVerification(authToken, secret, timestamp string) string {
	return sha256Hex("authToken=" + authToken + "&signKey=" + secret + "&timestamp=" + timestamp)
}

// SignData builds the second gateway's request hash:
// SHA256(ediDate + merchantID + amount + merchantKey).
func SignData(ediDate, merchantID, amount, merchantKey string) string {
	return sha256Hex(ediDate + merchantID + amount + merchantKey)
}

// RefundHash builds the refund API hash:
// SHA512(apiKey + merchantID + method + timestamp + dataJSON).
func RefundHash(apiKey, merchantID, method, timestamp, dataJSON string) string {
	return sha512Hex(apiKey + merchantID + method + timestamp + dataJSON)
}
