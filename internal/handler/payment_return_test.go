package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOrigin = "https://shop.example.com"

// A return post that cannot be a gateway result never reaches the
// processor, so a nil processor is safe here.
func newTestReturnHandler() *PaymentReturnHandler {
	return NewPaymentReturnHandler(nil, nil, testOrigin, zap.NewNop())
}

func postReturn(t *testing.T, h *PaymentReturnHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/order/payment-result", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(e.NewContext(req, rec)))
	return rec
}

func TestHandleRejectsUnrecognizablePost(t *testing.T) {
	rec := postReturn(t, newTestReturnHandler(), "foo=bar&baz=qux")

	assert.Equal(t, http.StatusOK, rec.Code, "the relay page always renders")
	body := rec.Body.String()
	assert.Contains(t, body, "PAYMENT_COMPLETE")
	assert.Contains(t, body, `"error"`)
	assert.Contains(t, body, "invalid payment result")
}

func TestHandleRejectsEmptyPost(t *testing.T) {
	rec := postReturn(t, newTestReturnHandler(), "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYMENT_COMPLETE")
}

func TestHandleOrderNoAloneIsNotGenuine(t *testing.T) {
	// An order number without a result code or tid must not trigger
	// reconciliation.
	rec := postReturn(t, newTestReturnHandler(), "oid=ORD1700000000000abcd1234")

	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestRelayTargetsConfiguredOrigin(t *testing.T) {
	rec := postReturn(t, newTestReturnHandler(), "foo=bar")

	body := rec.Body.String()
	assert.Contains(t, body, testOrigin)
	assert.NotContains(t, body, `postMessage(payload, "*")`,
		"the relay must never broadcast to any origin")
}

func TestRelayContentTypeAndFallback(t *testing.T) {
	rec := postReturn(t, newTestReturnHandler(), "foo=bar")

	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), testOrigin+"/order",
		"no-opener fallback redirects into the storefront")
}

func TestRelayDeliversExactlyOnce(t *testing.T) {
	body := postReturn(t, newTestReturnHandler(), "foo=bar").Body.String()

	assert.Contains(t, body, "delivered = true")
	assert.Equal(t, 1, strings.Count(body, "postMessage"))
}
