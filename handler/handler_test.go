package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grocery_store/constants"
	"grocery_store/database"
	"grocery_store/handler"
	"grocery_store/helper"
	"grocery_store/metrics"
	"grocery_store/model"
	"grocery_store/router"
	"grocery_store/service"
	"grocery_store/utils"
)

const testPassword = "123456gs"

var jwtSecret = []byte("handler-test-secret")

type memBlobs struct {
	mu    sync.Mutex
	seq   int
	store map[string][]byte
}

func (b *memBlobs) Store(_ context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	url := fmt.Sprintf("https://blobs.test/%s-%d.png", name, b.seq)
	b.store[url] = data
	return url, nil
}

func (b *memBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.store, url)
	return nil
}

type env struct {
	app      *fiber.App
	db       *gorm.DB
	admin    model.User
	customer model.User
	stranger model.User
	apples   model.Product
	bread    model.Product
	blobs    *memBlobs
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	hash, err := helper.HashPassword(testPassword)
	require.NoError(t, err)
	e := &env{db: db, blobs: &memBlobs{store: map[string][]byte{}}}
	e.admin = model.User{Name: "Admin", Email: "admin@test.local", Role: constants.ROLE_ADMIN, PasswordHash: hash}
	e.customer = model.User{Name: "Asha", Email: "asha@test.local", Role: constants.ROLE_USER, PasswordHash: hash}
	e.stranger = model.User{Name: "Ravi", Email: "ravi@test.local", Role: constants.ROLE_USER, PasswordHash: hash}
	for _, u := range []*model.User{&e.admin, &e.customer, &e.stranger} {
		require.NoError(t, db.Create(u).Error)
	}
	e.apples = model.Product{Name: "Apples", Slug: "apples", Price: 10, Stock: 10, IsActive: true}
	e.bread = model.Product{Name: "Bread", Slug: "bread", Price: 2.5, Stock: 3, IsActive: true}
	require.NoError(t, db.Create(&e.apples).Error)
	require.NoError(t, db.Create(&e.bread).Error)

	users := database.NewUserStore(db)
	notificationStore := database.NewNotificationStore(db)
	dispatcher, err := service.NewNotificationDispatcher(service.NotificationDispatcherDeps{
		Repository: notificationStore,
		Users:      users,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	orders, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:     database.NewOrderStore(db),
		Products:   database.NewProductStore(db),
		Carts:      database.NewCartStore(db),
		Users:      users,
		Blobs:      e.blobs,
		Notifier:   dispatcher,
		UnitOfWork: database.NewTransactor(db),
		Payments: service.NewPaymentPathResolver(service.PaymentResolverConfig{
			MerchantUPIID: "freshcart@okaxis",
			MerchantName:  "FreshCart",
		}),
		Metrics:  metrics.NewOrderMetrics(registry),
		Dispatch: func(fn func()) { fn() },
	})
	require.NoError(t, err)

	e.app = fiber.New()
	router.SetupRoutes(e.app, router.Dependencies{
		Orders:        handler.NewOrderHandler(orders, nil),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notificationStore, nil, nil), nil, nil),
		Auth:          handler.NewAuthHandler(users, jwtSecret, nil),
		Health:        handler.Health(sqlDB),
		JWTSecret:     jwtSecret,
		Gatherer:      registry,
		ServerMetrics: metrics.NewServerMetrics(registry),
	})
	return e
}

func (e *env) fillCart(t *testing.T, user model.User, lines map[uint]int) {
	t.Helper()
	for productID, qty := range lines {
		require.NoError(t, e.db.Create(&model.CartItem{UserID: user.ID, ProductID: productID, Quantity: qty}).Error)
	}
}

func (e *env) stock(t *testing.T, id uint) int {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.First(&p, id).Error)
	return p.Stock
}

func tokenFor(t *testing.T, user model.User) string {
	t.Helper()
	token, err := helper.GenerateAccessToken(model.TokenClaim{UserID: user.ID, Role: user.Role}, jwtSecret)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Status  string          `json:"status"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, req *http.Request, user *model.User) (int, envelope) {
	t.Helper()
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *user))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func (e *env) doJSON(t *testing.T, method, path string, payload any, user *model.User) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, req, user)
}

func (e *env) upload(t *testing.T, path string, image []byte, user *model.User) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("screenshot", "proof.png")
	require.NoError(t, err)
	_, err = part.Write(image)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req, user)
}

type orderBody struct {
	model.Order
	Tax        float64 `json:"tax"`
	GrandTotal float64 `json:"grandTotal"`
	Warning    string  `json:"warning"`
}

func decodeOrder(t *testing.T, body envelope) orderBody {
	t.Helper()
	var o orderBody
	require.NoError(t, json.Unmarshal(body.Data, &o))
	return o
}

func address() map[string]any {
	return map[string]any{
		"fullName":   "Asha Rao",
		"phone":      "9876543210",
		"street":     "12 MG Road",
		"city":       "Pune",
		"state":      "MH",
		"postalCode": "411001",
	}
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img, err := utils.GenerateQRCode("proof", 64)
	require.NoError(t, err)
	return img
}

func (e *env) createOrder(t *testing.T, method string) orderBody {
	t.Helper()
	e.fillCart(t, e.customer, map[uint]int{e.apples.ID: 2, e.bread.ID: 1})
	status, body := e.doJSON(t, "POST", "/api/v1/orders", map[string]any{
		"paymentMethod":   method,
		"shippingAddress": address(),
	}, &e.customer)
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	return decodeOrder(t, body)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	status, body := e.doJSON(t, "POST", "/api/v1/auth/login", map[string]string{
		"email": "ASHA@test.local", "password": testPassword,
	}, nil)
	require.Equal(t, fiber.StatusOK, status)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	claim, err := helper.ParseToken(data.AccessToken, jwtSecret)
	require.NoError(t, err)
	assert.Equal(t, e.customer.ID, claim.UserID)

	status, _ = e.doJSON(t, "POST", "/api/v1/auth/login", map[string]string{
		"email": "asha@test.local", "password": "wrong",
	}, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCreateOrderManualPayment(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t, "manual_payment")

	assert.Equal(t, 22.5, order.TotalAmount)
	assert.InDelta(t, 2.25, order.Tax, 1e-9)
	assert.InDelta(t, 24.75, order.GrandTotal, 1e-9)
	assert.Equal(t, model.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, model.OrderStatusPending, order.OrderStatus)
	require.NotNil(t, order.QRPayload)
	assert.Contains(t, *order.QRPayload, "pa=freshcart@okaxis")
	assert.Contains(t, *order.QRPayload, "am=22.50")
	require.NotNil(t, order.QRCode)
	assert.True(t, strings.HasPrefix(*order.QRCode, "data:image/png;base64,"))
	assert.Empty(t, order.Warning)
	assert.Equal(t, "Pune", order.ShippingAddress.City)

	assert.Equal(t, 8, e.stock(t, e.apples.ID))
	assert.Equal(t, 2, e.stock(t, e.bread.ID))
}

func TestCreateOrderErrors(t *testing.T) {
	e := newEnv(t)

	status, body := e.doJSON(t, "POST", "/api/v1/orders", map[string]any{
		"paymentMethod": "cod", "shippingAddress": address(),
	}, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = e.doJSON(t, "POST", "/api/v1/orders", map[string]any{
		"paymentMethod": "card", "shippingAddress": address(),
	}, &e.customer)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Kind)

	status, body = e.doJSON(t, "POST", "/api/v1/orders", map[string]any{
		"paymentMethod": "cod", "shippingAddress": address(),
	}, &e.customer)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Kind, "empty cart")

	e.fillCart(t, e.customer, map[uint]int{e.bread.ID: 4})
	status, body = e.doJSON(t, "POST", "/api/v1/orders", map[string]any{
		"paymentMethod": "cod", "shippingAddress": address(),
	}, &e.customer)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", body.Kind)
	assert.Equal(t, 3, e.stock(t, e.bread.ID))
}

func TestPaymentScreenshotUpload(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t, "manual_payment")
	path := fmt.Sprintf("/api/v1/orders/%d/payment-screenshot", order.ID)

	status, body := e.upload(t, path, []byte("not an image at all"), &e.customer)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, constants.ERROR_SCREENSHOT_TYPE, body.Message)

	status, _ = e.upload(t, path, pngImage(t), &e.stranger)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = e.upload(t, path, pngImage(t), &e.customer)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	updated := decodeOrder(t, body)
	require.NotNil(t, updated.PaymentScreenshot)
	assert.Contains(t, e.blobs.store, *updated.PaymentScreenshot)
}

func TestPaidCancellationAndRefund(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t, "cod")
	orderPath := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	status, _ := e.doJSON(t, "PUT", orderPath+"/confirm-payment", map[string]string{}, &e.customer)
	assert.Equal(t, fiber.StatusForbidden, status, "customers cannot confirm payments")

	status, body := e.doJSON(t, "PUT", orderPath+"/confirm-payment", map[string]string{"adminNotes": "cash"}, &e.admin)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	assert.Equal(t, model.PaymentStatusConfirmed, decodeOrder(t, body).PaymentStatus)

	status, body = e.doJSON(t, "PUT", orderPath+"/confirm-payment", nil, &e.admin)
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = e.doJSON(t, "PUT", orderPath+"/cancel", map[string]string{"reason": "changed mind"}, &e.customer)
	assert.Equal(t, fiber.StatusBadRequest, status, "paid orders need a refund contact")
	assert.Equal(t, "validation_error", body.Kind)

	status, body = e.doJSON(t, "PUT", orderPath+"/cancel", map[string]string{"reason": "changed mind", "upiId": "asha@okicici"}, &e.customer)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	cancelled := decodeOrder(t, body)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.OrderStatus)
	assert.Equal(t, model.RefundStatusPending, cancelled.Refund.Status)
	assert.Equal(t, 10, e.stock(t, e.apples.ID))
	assert.Equal(t, 3, e.stock(t, e.bread.ID))

	status, body = e.doJSON(t, "PUT", orderPath+"/refund-details", map[string]string{"phone": "9123456780"}, &e.admin)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	contact := decodeOrder(t, body).Refund
	require.NotNil(t, contact.ContactPhone)
	assert.Equal(t, "9123456780", *contact.ContactPhone)
	require.NotNil(t, contact.ContactUpiID)
	assert.Equal(t, "asha@okicici", *contact.ContactUpiID)

	status, body = e.upload(t, orderPath+"/refund-screenshot", pngImage(t), &e.admin)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	refunded := decodeOrder(t, body)
	assert.Equal(t, model.RefundStatusProcessed, refunded.Refund.Status)
	require.NotNil(t, refunded.Refund.ScreenshotURL)

	status, body = e.doJSON(t, "GET", "/api/v1/orders/admin/all?refundStatus=processed", nil, &e.admin)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	var page struct {
		Rows       []orderBody `json:"rows"`
		TotalCount int64       `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	assert.EqualValues(t, 1, page.TotalCount)
	assert.Equal(t, order.ID, page.Rows[0].ID)
}

func TestOrderReadAccess(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t, "cod")
	path := fmt.Sprintf("/api/v1/orders/%d", order.ID)

	status, _ := e.doJSON(t, "GET", path, nil, &e.customer)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = e.doJSON(t, "GET", path, nil, &e.admin)
	assert.Equal(t, fiber.StatusOK, status)
	status, body := e.doJSON(t, "GET", path, nil, &e.stranger)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "forbidden", body.Kind)

	status, body = e.doJSON(t, "GET", "/api/v1/orders/999", nil, &e.admin)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body.Kind)

	status, _ = e.doJSON(t, "GET", "/api/v1/orders/abc", nil, &e.admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = e.doJSON(t, "GET", "/api/v1/orders/admin/all", nil, &e.customer)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = e.doJSON(t, "GET", "/api/v1/orders?limit=5", nil, &e.stranger)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		TotalCount int64 `json:"totalCount"`
		Limit      int   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	assert.Zero(t, page.TotalCount)
	assert.Equal(t, 5, page.Limit)
}

func TestUpdateStatusRejectsIllegalMoves(t *testing.T) {
	e := newEnv(t)
	order := e.createOrder(t, "cod")
	path := fmt.Sprintf("/api/v1/orders/%d/status", order.ID)

	status, body := e.doJSON(t, "PUT", path, map[string]string{"orderStatus": "shipped"}, &e.admin)
	require.Equal(t, fiber.StatusOK, status, body.Message)
	assert.Equal(t, model.OrderStatusShipped, decodeOrder(t, body).OrderStatus)

	status, body = e.doJSON(t, "PUT", path, map[string]string{"orderStatus": "lost"}, &e.admin)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = e.doJSON(t, "PUT", fmt.Sprintf("/api/v1/orders/%d/cancel", order.ID), nil, &e.customer)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "conflict", body.Kind)
}

func TestNotificationInbox(t *testing.T) {
	e := newEnv(t)
	e.createOrder(t, "cod")

	status, body := e.doJSON(t, "GET", "/api/v1/notifications", nil, &e.admin)
	require.Equal(t, fiber.StatusOK, status)
	var page struct {
		Rows       []model.Notification `json:"rows"`
		TotalCount int64                `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &page))
	require.EqualValues(t, 1, page.TotalCount)
	assert.Equal(t, model.NotificationNewOrder, page.Rows[0].Type)
	id := page.Rows[0].ID

	status, _ = e.doJSON(t, "PUT", fmt.Sprintf("/api/v1/notifications/%d/read", id), nil, &e.customer)
	assert.Equal(t, fiber.StatusNotFound, status, "other users cannot touch the notification")

	status, _ = e.doJSON(t, "PUT", fmt.Sprintf("/api/v1/notifications/%d/read", id), nil, &e.admin)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = e.doJSON(t, "DELETE", fmt.Sprintf("/api/v1/notifications/%d", id), nil, &e.admin)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = e.doJSON(t, "DELETE", fmt.Sprintf("/api/v1/notifications/%d", id), nil, &e.admin)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	e.createOrder(t, "cod")

	status, body := e.doJSON(t, "GET", "/health", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body.Status)

	resp, err := e.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `grocery_orders_created_total{payment_method="cod"} 1`)
	assert.Contains(t, string(raw), "grocery_http_requests_total")
}

func TestStatusForCoversEveryKind(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, handler.StatusFor(service.KindValidation))
	assert.Equal(t, fiber.StatusNotFound, handler.StatusFor(service.KindNotFound))
	assert.Equal(t, fiber.StatusForbidden, handler.StatusFor(service.KindForbidden))
	assert.Equal(t, fiber.StatusConflict, handler.StatusFor(service.KindConflict))
	assert.Equal(t, fiber.StatusBadGateway, handler.StatusFor(service.KindDependency))
	assert.Equal(t, fiber.StatusInternalServerError, handler.StatusFor(service.KindPersistenceVerification))
	assert.Equal(t, fiber.StatusInternalServerError, handler.StatusFor(service.Kind("other")))
}
