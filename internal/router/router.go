package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storepay/internal/config"
	"storepay/internal/gateway"
	"storepay/internal/handler"
	"storepay/internal/handler/api"
	"storepay/internal/middleware"
	"storepay/internal/payments"
	"storepay/internal/repository"
)

// Setup configures all routes for the Echo server and returns the
// payment processor so the scheduler can share it.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	cfg *config.Config,
	logger *zap.Logger,
	deduper middleware.CallbackDeduper,
	locker middleware.OrderLocker,
) *payments.Processor {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS(cfg.App.BaseURL))

	// Repositories
	repos := &api.Repos{
		User:    repository.NewUserRepository(db),
		Order:   repository.NewOrderRepository(db),
		Payment: repository.NewPaymentRepository(db),
		Log:     repository.NewLogRepository(db),
	}

	// Gateways behind the selector; orders remember which one they used.
	selector := gateway.NewSelector(
		cfg.Payment.Mode,
		gateway.NewInicisGateway(cfg.Payment.Inicis),
		gateway.NewNicepayGateway(cfg.Payment.Nicepay),
	)

	processor := payments.NewProcessor(&payments.Repos{
		User:    repos.User,
		Order:   repos.Order,
		Payment: repos.Payment,
		Log:     repos.Log,
	}, selector, locker, cfg.App.MinCardAmount, logger)

	// Handlers
	authHandler := api.NewAuthHandler(repos, cfg.JWT, logger)
	paymentHandler := api.NewPaymentHandler(repos, processor, deduper, cfg.App.BaseURL, logger)
	refundHandler := api.NewRefundHandler(processor, logger)
	returnHandler := handler.NewPaymentReturnHandler(processor, deduper, cfg.App.BaseURL, logger)
	pageHandler := handler.NewPageHandler(&handler.PageRepos{
		User:  repos.User,
		Order: repos.Order,
		Log:   repos.Log,
	}, selector, cfg.App.BaseURL, 5*60*1000, logger)

	auth := middleware.JWTAuth(cfg.JWT.Secret)

	// Auth
	e.POST("/api/auth/login", authHandler.Login)
	e.GET("/api/auth/me", authHandler.Me, auth)

	// Payment API. The result channels stay unauthenticated: payment
	// windows and provider servers cannot carry a session token.
	payGroup := e.Group("/api/payment")
	payGroup.POST("/create-order", paymentHandler.CreateOrder, auth)
	payGroup.POST("/log-request", paymentHandler.LogRequest)
	payGroup.POST("/response", paymentHandler.Response)
	payGroup.POST("/notify", paymentHandler.Notify)
	payGroup.POST("/nicepay/approve", paymentHandler.NicepayApprove)
	payGroup.GET("/status/order/:orderNo", paymentHandler.Status)
	payGroup.GET("/order-detail/:orderNo", paymentHandler.OrderDetail)
	payGroup.GET("/gateway-logs/:orderNo", paymentHandler.GatewayLogs, auth)
	payGroup.GET("/orders/:userId", paymentHandler.Orders, auth)
	payGroup.GET("/history/:userId", paymentHandler.History, auth)
	payGroup.POST("/refund", refundHandler.Refund, auth)
	payGroup.POST("/refund/order/:orderNo", refundHandler.RefundOrder, auth)
	payGroup.POST("/refund/points/:orderNo", refundHandler.RefundPoints, auth)

	// Storefront pages and the payment window return endpoint
	e.GET("/order", pageHandler.Checkout)
	e.GET("/order/payment-popup", pageHandler.PaymentPopup)
	e.POST("/order/payment-result", returnHandler.Handle)
	e.GET("/order/payment-result", returnHandler.Handle)
	e.GET("/order/success", pageHandler.Success)
	e.GET("/order/failed", pageHandler.Failed)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	return processor
}
