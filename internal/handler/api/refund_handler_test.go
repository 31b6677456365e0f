package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storepay/internal/models"
)

// Reason validation runs before the processor is touched, so a nil
// processor proves the request was rejected without side effects.
func postRefund(t *testing.T, path, body string, params map[string]string) models.APIResponse {
	t.Helper()
	h := NewRefundHandler(nil, zap.NewNop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}

	var handle echo.HandlerFunc
	switch {
	case strings.Contains(path, "/points/"):
		handle = h.RefundPoints
	case strings.Contains(path, "/order/"):
		handle = h.RefundOrder
	default:
		handle = h.Refund
	}
	require.NoError(t, handle(c))

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRefundRejectsEmptyReason(t *testing.T) {
	resp := postRefund(t, "/api/payment/refund", `{"orderNo":"ORD1","tid":"T1","reason":""}`, nil)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Msg, "reason")
}

func TestRefundRejectsWhitespaceReason(t *testing.T) {
	resp := postRefund(t, "/api/payment/refund", `{"orderNo":"ORD1","tid":"T1","reason":"   "}`, nil)
	assert.False(t, resp.Status)
}

func TestRefundRequiresOrderNoAndTid(t *testing.T) {
	resp := postRefund(t, "/api/payment/refund", `{"reason":"wrong item"}`, nil)
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Msg, "orderNo and tid")
}

func TestRefundOrderRequiresReason(t *testing.T) {
	resp := postRefund(t, "/api/payment/refund/order/ORD1", `{}`, map[string]string{"orderNo": "ORD1"})
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Msg, "reason")
}

func TestRefundPointsRequiresReason(t *testing.T) {
	resp := postRefund(t, "/api/payment/refund/points/ORD1", `{"reason":""}`, map[string]string{"orderNo": "ORD1"})
	assert.False(t, resp.Status)
	assert.Contains(t, resp.Msg, "reason")
}
