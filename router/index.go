package router

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grocery_store/handler"
	"grocery_store/metrics"
	"grocery_store/middleware"
	"grocery_store/validate"
)

type Dependencies struct {
	Orders        *handler.OrderHandler
	Notifications *handler.NotificationHandler
	Auth          *handler.AuthHandler
	Health        fiber.Handler
	JWTSecret     []byte
	Gatherer      prometheus.Gatherer
	ServerMetrics *metrics.ServerMetrics
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	if deps.ServerMetrics != nil {
		app.Use(deps.ServerMetrics.Middleware())
	}
	if deps.Health != nil {
		app.Get("/health", deps.Health)
	}
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1")
	protected := middleware.Protected(deps.JWTSecret)
	admin := middleware.AdminOnly()

	if deps.Auth != nil {
		auth := v1.Group("/auth")
		auth.Post("/login", validate.Login(), deps.Auth.Login)
	}

	order := v1.Group("/orders", protected)
	order.Get("/admin/all", admin, validate.FilterOrders(), deps.Orders.GetAllOrders)
	order.Post("/", validate.CreateOrder(), deps.Orders.CreateOrder)
	order.Get("/", validate.Paginate(), deps.Orders.GetMyOrders)
	order.Get("/:id", validate.GetById("id"), deps.Orders.GetOrderById)
	order.Post("/:id/payment-screenshot", validate.GetById("id"), validate.Screenshot(), deps.Orders.UploadPaymentScreenshot)
	order.Put("/:id/confirm-payment", admin, validate.GetById("id"), validate.ConfirmPayment(), deps.Orders.ConfirmPayment)
	order.Put("/:id/status", admin, validate.GetById("id"), validate.UpdateOrderStatus(), deps.Orders.UpdateOrderStatus)
	order.Put("/:id/cancel", validate.GetById("id"), validate.CancelOrder(), deps.Orders.CancelOrder)
	order.Post("/:id/request-refund", validate.GetById("id"), validate.RefundContact(), deps.Orders.RequestRefund)
	order.Put("/:id/refund-details", admin, validate.GetById("id"), validate.RefundContact(), deps.Orders.UpdateRefundDetails)
	order.Post("/:id/refund-screenshot", admin, validate.GetById("id"), validate.Screenshot(), deps.Orders.UploadRefundScreenshot)

	if deps.Notifications != nil {
		notification := v1.Group("/notifications", protected)
		notification.Get("/ws", handler.UpgradeLive, websocket.New(deps.Notifications.Live))
		notification.Get("/", validate.Paginate(), deps.Notifications.GetNotifications)
		notification.Put("/read-all", deps.Notifications.MarkAllRead)
		notification.Put("/:id/read", validate.GetById("id"), deps.Notifications.MarkRead)
		notification.Delete("/:id", validate.GetById("id"), deps.Notifications.DeleteNotification)
	}
}
