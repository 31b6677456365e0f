package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storepay/internal/gateway"
	"storepay/internal/middleware"
	"storepay/internal/payments"
)

// PaymentHandler serves the payment API: order creation, result
// reconciliation, notifications and history queries.
type PaymentHandler struct {
	repos     *Repos
	processor *payments.Processor
	deduper   middleware.CallbackDeduper
	logger    *zap.Logger
	baseURL   string
}

func NewPaymentHandler(repos *Repos, processor *payments.Processor, deduper middleware.CallbackDeduper, baseURL string, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		repos:     repos,
		processor: processor,
		deduper:   deduper,
		logger:    logger,
		baseURL:   baseURL,
	}
}

// CreateOrder handles POST /api/payment/create-order.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req struct {
		TotalAmount int64 `json:"totalAmount"`
		PointsUsed  int64 `json:"pointsUsed"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, "invalid request body")
	}

	userID := middleware.UserID(c)
	order, err := h.processor.CreateOrder(c.Request().Context(), userID, req.TotalAmount, req.PointsUsed)
	if err != nil {
		return errorResponse(c, err.Error())
	}

	obj := map[string]interface{}{
		"order": order,
	}
	if order.CardAmount > 0 {
		obj["popupUrl"] = fmt.Sprintf("%s/order/payment-popup?orderNo=%s", h.baseURL, order.OrderNo)
	}
	return successResponse(c, "order created", obj)
}

// LogRequest handles POST /api/payment/log-request. The checkout pages
// call this before opening the payment window; it must never fail them,
// so the write happens off the request path and errors are swallowed.
func (h *PaymentHandler) LogRequest(c echo.Context) error {
	var req struct {
		OrderNo     string      `json:"orderNo"`
		RequestType string      `json:"requestType"`
		RequestURL  string      `json:"requestUrl"`
		RequestData interface{} `json:"requestData"`
	}
	if err := c.Bind(&req); err != nil {
		return successResponse(c, "ignored", nil)
	}

	clientIP := c.RealIP()
	go func() {
		if err := h.repos.Log.CreatePaymentLog(req.OrderNo, req.RequestType, req.RequestURL, req.RequestData, clientIP); err != nil {
			h.logger.Warn("payment log write failed", zap.String("order_no", req.OrderNo), zap.Error(err))
		}
	}()

	return successResponse(c, "logged", nil)
}

// Response handles POST /api/payment/response: raw gateway parameters
// from a result page, reconciled through the processor.
func (h *PaymentHandler) Response(c echo.Context) error {
	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		return errorResponse(c, "invalid request body")
	}

	fields := gateway.Normalize(stringify(body))
	if !fields.Genuine() {
		return errorResponse(c, "not a recognizable payment result")
	}

	outcome := h.reconcile(c, fields)
	return successResponse(c, outcome.Message, outcome)
}

// Notify handles POST /api/payment/notify, the provider's server-side
// notification channel. Providers retry until they read "OK".
func (h *PaymentHandler) Notify(c echo.Context) error {
	req := c.Request()
	if err := req.ParseForm(); err != nil {
		return c.String(http.StatusOK, "FAIL")
	}

	fields := gateway.Normalize(gateway.Flatten(req.Form))
	if !fields.Genuine() {
		return c.String(http.StatusOK, "FAIL")
	}

	outcome := h.reconcile(c, fields)
	if outcome.Status == payments.OutcomeSuccess {
		return c.String(http.StatusOK, "OK")
	}
	return c.String(http.StatusOK, "FAIL")
}

// NicepayApprove handles POST /api/payment/nicepay/approve for checkout
// flows that collect the auth result in the page instead of a return post.
func (h *PaymentHandler) NicepayApprove(c echo.Context) error {
	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		return errorResponse(c, "invalid request body")
	}

	fields := gateway.Normalize(stringify(body))
	if fields.OrderNo == "" || fields.AuthToken == "" || fields.Tid == "" {
		return errorResponse(c, "Moid, AuthToken and TxTid are required")
	}

	outcome := h.reconcile(c, fields)
	return successResponse(c, outcome.Message, outcome)
}

// reconcile runs duplicate suppression before handing the fields to the
// processor. A concurrent redelivery gets the stored verdict.
func (h *PaymentHandler) reconcile(c echo.Context, fields *gateway.CallbackFields) *payments.Outcome {
	ctx := c.Request().Context()
	if h.deduper != nil && fields.Tid != "" {
		dup, err := h.deduper.Seen(ctx, fields.OrderNo+":"+fields.Tid)
		if err != nil {
			h.logger.Warn("callback dedup check failed", zap.String("order_no", fields.OrderNo), zap.Error(err))
		} else if dup {
			return h.processor.CurrentOutcome(fields.OrderNo)
		}
	}
	return h.processor.ProcessResult(ctx, fields)
}

// Status handles GET /api/payment/status/order/:orderNo.
func (h *PaymentHandler) Status(c echo.Context) error {
	orderNo := c.Param("orderNo")
	order, err := h.repos.Order.FindByOrderNo(orderNo)
	if err != nil {
		return errorResponse(c, "order not found")
	}
	return successResponse(c, "ok", map[string]interface{}{
		"orderNo":          order.OrderNo,
		"status":           order.Status,
		"paymentCompleted": order.PaymentCompleted,
		"totalAmount":      order.TotalAmount,
		"pointsUsed":       order.PointsUsed,
		"cardAmount":       order.CardAmount,
	})
}

// OrderDetail handles GET /api/payment/order-detail/:orderNo.
func (h *PaymentHandler) OrderDetail(c echo.Context) error {
	detail, err := h.processor.OrderDetail(c.Param("orderNo"))
	if err != nil {
		return errorResponse(c, "order not found")
	}
	return successResponse(c, "ok", detail)
}

// GatewayLogs handles GET /api/payment/gateway-logs/:orderNo: the
// request/response audit trail of every provider call for an order.
func (h *PaymentHandler) GatewayLogs(c echo.Context) error {
	logs, err := h.repos.Log.FindGatewayLogs(c.Param("orderNo"))
	if err != nil {
		return errorResponse(c, "gateway log lookup failed")
	}
	return successResponse(c, "ok", logs)
}

// Orders handles GET /api/payment/orders/:userId.
func (h *PaymentHandler) Orders(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return errorResponse(c, "invalid user id")
	}
	limit, page := listParams(c)
	orders, total, err := h.repos.Order.FindByUserID(uint(userID), limit, page)
	if err != nil {
		return errorResponse(c, "order lookup failed")
	}
	return successResponse(c, "ok", paginatedResponse(orders, total, page, limit))
}

// History handles GET /api/payment/history/:userId with the refund
// display filter applied.
func (h *PaymentHandler) History(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		return errorResponse(c, "invalid user id")
	}
	limit, page := listParams(c)
	history, total, err := h.processor.History(uint(userID), limit, page)
	if err != nil {
		return errorResponse(c, "history lookup failed")
	}
	return successResponse(c, "ok", paginatedResponse(history, total, page, limit))
}

func listParams(c echo.Context) (limit, page int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}

// stringify flattens a bound JSON body to the string map the normalizer
// expects. Numbers come back from JSON as float64.
func stringify(body map[string]interface{}) map[string]string {
	params := make(map[string]string, len(body))
	for key, v := range body {
		switch t := v.(type) {
		case string:
			params[key] = t
		case float64:
			params[key] = strconv.FormatInt(int64(t), 10)
		case bool:
			params[key] = strconv.FormatBool(t)
		}
	}
	return params
}
