package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storepay/internal/payments"
)

// RefundHandler serves the refund API.
type RefundHandler struct {
	processor *payments.Processor
	logger    *zap.Logger
}

func NewRefundHandler(processor *payments.Processor, logger *zap.Logger) *RefundHandler {
	return &RefundHandler{processor: processor, logger: logger}
}

// Refund handles POST /api/payment/refund: reverse a single transaction.
// A refund never leaves without a reason; the gateways forward it as the
// cancel message and it ends up on the refund row.
func (h *RefundHandler) Refund(c echo.Context) error {
	var req struct {
		OrderNo string `json:"orderNo"`
		Tid     string `json:"tid"`
		Reason  string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.OrderNo == "" || req.Tid == "" {
		return errorResponse(c, "orderNo and tid are required")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return errorResponse(c, "a refund reason is required")
	}

	err := h.processor.RefundTid(c.Request().Context(), req.OrderNo, req.Tid, req.Reason, c.RealIP())
	return h.respond(c, req.OrderNo, err)
}

// RefundOrder handles POST /api/payment/refund/order/:orderNo.
func (h *RefundHandler) RefundOrder(c echo.Context) error {
	orderNo := c.Param("orderNo")
	reason, err := bindReason(c)
	if err != nil {
		return errorResponse(c, "a refund reason is required")
	}
	err = h.processor.RefundOrder(c.Request().Context(), orderNo, reason, c.RealIP())
	return h.respond(c, orderNo, err)
}

// RefundPoints handles POST /api/payment/refund/points/:orderNo.
func (h *RefundHandler) RefundPoints(c echo.Context) error {
	orderNo := c.Param("orderNo")
	reason, err := bindReason(c)
	if err != nil {
		return errorResponse(c, "a refund reason is required")
	}
	err = h.processor.RefundPoints(c.Request().Context(), orderNo, reason)
	return h.respond(c, orderNo, err)
}

func bindReason(c echo.Context) (string, error) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return "", fmt.Errorf("empty refund reason")
	}
	return reason, nil
}

func (h *RefundHandler) respond(c echo.Context, orderNo string, err error) error {
	if err != nil {
		if errors.Is(err, payments.ErrRefundInProgress) {
			return errorResponse(c, err.Error())
		}
		h.logger.Warn("refund rejected", zap.String("order_no", orderNo), zap.Error(err))
		return errorResponse(c, err.Error())
	}
	return successResponse(c, "refund completed", map[string]string{"orderNo": orderNo})
}
