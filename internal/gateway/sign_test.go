package gateway

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSignatureConcatenation(t *testing.T) {
	got := RequestSignature("ORD1700000000000abcd1234", "10000", "1700000000000")

	sum := sha256.Sum256([]byte("ORD1700000000000abcd1234" + "10000" + "1700000000000"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Len(t, got, 64)
}

func TestRequestVerificationIncludesSecret(t *testing.T) {
	sig := RequestSignature("ORD1", "100", "123")
	ver := RequestVerification("ORD1", "100", "secret", "123")

	require.NotEqual(t, sig, ver, "verification must differ from signature when a secret is set")

	sum := sha256.Sum256([]byte("ORD1" + "100" + "secret" + "123"))
	assert.Equal(t, hex.EncodeToString(sum[:]), ver)
}

func TestSignaturesAreDeterministic(t *testing.T) {
	assert.Equal(t,
		RequestSignature("ORD2", "5000", "999"),
		RequestSignature("ORD2", "5000", "999"))
	assert.Equal(t,
		MerchantKey("INIpayTest", "SU5JTElURV9UUklQTEVERVNfS0VZU1RS"),
		MerchantKey("INIpayTest", "SU5JTElURV9UUklQTEVERVNfS0VZU1RS"))
}

func TestMerchantKeyRecipe(t *testing.T) {
	sum := sha256.Sum256([]byte("mid" + "key"))
	assert.Equal(t, hex.EncodeToString(sum[:]), MerchantKey("mid", "key"))
}

func TestAuthSignaturesUseNameValuePairs(t *testing.T) {
	sig := AuthSignature("token123", "456")
	sum := sha256.Sum256([]byte("authToken=token123&timestamp=456"))
	assert.Equal(t, hex.EncodeToString(sum[:]), sig)

	ver := AuthVerification("token123", "sk", "456")
	vsum := sha256.Sum256([]byte("authToken=token123&signKey=sk&timestamp=456"))
	assert.Equal(t, hex.EncodeToString(vsum[:]), ver)
	assert.NotEqual(t, sig, ver)
}

func TestSignDataRecipe(t *testing.T) {
	sum := sha256.Sum256([]byte("20260830120000" + "nicepay00m" + "10000" + "mk"))
	assert.Equal(t, hex.EncodeToString(sum[:]), SignData("20260830120000", "nicepay00m", "10000", "mk"))
}

func TestRefundHashUsesSHA512(t *testing.T) {
	data := `{"tid":"T1","msg":"refund"}`
	got := RefundHash("apikey", "mid", "refund", "20260830120000", data)

	sum := sha512.Sum512([]byte("apikey" + "mid" + "refund" + "20260830120000" + data))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
	assert.Len(t, got, 128)
}
