package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grocery_store/constants"
	"grocery_store/metrics"
	"grocery_store/model"
	"grocery_store/utils"
)

const publicCodePrefix = "ORD-"

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     OrderRepository
	Products   ProductRepository
	Carts      CartStore
	Users      UserDirectory
	Blobs      BlobStore
	Notifier   NotificationEmitter
	UnitOfWork Transactor
	Payments   *PaymentPathResolver
	Metrics    *metrics.OrderMetrics
	Logger     *zap.Logger
	Clock      func() time.Time
	// NewPublicCode returns the human readable order code.
	NewPublicCode func() string
	// Dispatch runs post-commit side effects. Defaults to a new goroutine.
	Dispatch func(func())
}

// OrderService owns order creation, status transitions and the refund sub-workflow.
type OrderService struct {
	orders     OrderRepository
	carts      CartStore
	users      UserDirectory
	blobs      BlobStore
	notifier   NotificationEmitter
	unitOfWork Transactor
	ledger     *StockLedger
	pricing    *PricingEngine
	payments   *PaymentPathResolver
	metrics    *metrics.OrderMetrics
	logger     *zap.Logger
	clock      func() time.Time
	newCode    func() string
	dispatch   func(func())
}

func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopTransactor{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newCode := deps.NewPublicCode
	if newCode == nil {
		newCode = func() string {
			return publicCodePrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		}
	}
	dispatch := deps.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { go fn() }
	}
	payments := deps.Payments
	if payments == nil {
		payments = NewPaymentPathResolver(PaymentResolverConfig{})
	}

	ledger := NewStockLedger(deps.Products, deps.Metrics, logger)
	return &OrderService{
		orders:     deps.Orders,
		carts:      deps.Carts,
		users:      deps.Users,
		blobs:      deps.Blobs,
		notifier:   deps.Notifier,
		unitOfWork: unit,
		ledger:     ledger,
		pricing:    NewPricingEngine(deps.Products, ledger),
		payments:   payments,
		metrics:    deps.Metrics,
		logger:     logger,
		clock: func() time.Time {
			return clock().UTC()
		},
		newCode:  newCode,
		dispatch: dispatch,
	}, nil
}

// Viewer identifies who is reading or mutating an order.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = constants.DEFAULT_PAGE_LIMIT
	}
	if p.Limit > constants.MAX_PAGE_LIMIT {
		p.Limit = constants.MAX_PAGE_LIMIT
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

type OrderPage struct {
	Orders []model.Order
	Total  int64
	Page   int
	Limit  int
}

type CreateOrderCommand struct {
	OwnerID         uint
	PaymentMethod   model.PaymentMethod
	ShippingAddress *model.ShippingAddress
	PaymentDetails  PaymentDetails
}

// CreateOrderResult carries the stored order and, for degraded manual payments, a warning.
type CreateOrderResult struct {
	Order   model.Order
	Warning string
}

type ConfirmPaymentCommand struct {
	OrderID    uint
	AdminNotes string
}

type UpdateStatusCommand struct {
	OrderID    uint
	Status     model.OrderStatus
	AdminNotes string
}

type CancelOrderCommand struct {
	OrderID     uint
	RequesterID uint
	Reason      string
	RefundPhone string
	RefundUpiID string
}

type AttachScreenshotCommand struct {
	OrderID     uint
	RequesterID uint
	Image       []byte
}

// Create prices the owner's cart, reserves stock and persists the order as one unit.
func (s *OrderService) Create(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if cmd.OwnerID == 0 {
		return CreateOrderResult{}, validationError(nil, "Owner is required")
	}
	if !cmd.PaymentMethod.Valid() {
		return CreateOrderResult{}, validationError(nil, "Payment method must be cod or manual_payment")
	}
	if err := validateShippingAddress(cmd.ShippingAddress); err != nil {
		return CreateOrderResult{}, err
	}

	now := s.now()
	order := model.Order{
		PublicCode:      s.newCode(),
		OwnerID:         cmd.OwnerID,
		PaymentMethod:   cmd.PaymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
		OrderStatus:     model.OrderStatusPending,
		ShippingAddress: *cmd.ShippingAddress,
		Refund:          model.Refund{Status: model.RefundStatusNone},
		Version:         1,
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	var warning string
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		items, err := s.carts.Items(txCtx, cmd.OwnerID)
		if err != nil {
			return internalError(err, "cart lookup")
		}
		if len(items) == 0 {
			return validationError(ErrEmptyCart, "Cart is empty")
		}

		quote, err := s.pricing.Price(txCtx, items)
		if err != nil {
			return err
		}
		reservation, err := s.ledger.Reserve(txCtx, quote.StockLines())
		if err != nil {
			return err
		}
		order.Items = quote.OrderItems()
		order.TotalAmount = quote.TotalAmount

		prep, prepErr := s.payments.Prepare(order.PaymentMethod, order.TotalAmount, cmd.PaymentDetails, order.PublicCode)
		if prepErr != nil {
			warning = constants.WARNING_QR_UNAVAILABLE
			s.metrics.SideEffectFailed("qr")
			s.logger.Warn("qr generation skipped",
				zap.String("order", order.PublicCode),
				zap.Error(prepErr))
		} else if prep.QRPayload != "" {
			order.QRPayload = &prep.QRPayload
			order.QRCode = &prep.QRCode
		}

		// Only the rows that were priced leave the cart. A row gone missing means another
		// checkout consumed it first.
		removed, err := s.carts.Remove(txCtx, cmd.OwnerID, cartItemIDs(items))
		if err == nil && removed != int64(len(items)) {
			err = conflictError(ErrCartChanged, "Your cart changed while the order was being placed. Please review it and try again.")
		}
		if err != nil {
			if restoreErr := s.ledger.Restore(txCtx, reservation.Lines); restoreErr != nil {
				s.logger.Error("stock compensation failed", zap.Error(restoreErr))
			}
			return internalError(err, "cart update")
		}

		if err := s.orders.Create(txCtx, &order); err != nil {
			// Rolled back anyway inside a database transaction; needed when running without one.
			if restoreErr := s.ledger.Restore(txCtx, reservation.Lines); restoreErr != nil {
				s.logger.Error("stock compensation failed", zap.Error(restoreErr))
			}
			return internalError(err, "order insert")
		}
		return nil
	})
	if err != nil {
		s.metrics.Transition("create", string(KindOf(err)))
		return CreateOrderResult{}, err
	}

	s.metrics.OrderCreated(string(order.PaymentMethod))
	s.metrics.Transition("create", "ok")
	s.logger.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("code", order.PublicCode),
		zap.Float64("total", order.TotalAmount),
		zap.String("payment_method", string(order.PaymentMethod)))

	s.notifyAdmins(ctx, model.NotificationNewOrder, "New order received",
		fmt.Sprintf("Order %s for %.2f (%s) was placed.", order.PublicCode, order.TotalAmount, order.PaymentMethod), order.ID)

	return CreateOrderResult{Order: order, Warning: warning}, nil
}

// ConfirmPayment marks the payment confirmed. Confirming twice is an error, as is confirming
// a cancelled order. Only a pending order moves to confirmed; an order the admin already
// pushed further (processing, shipped, delivered) keeps its fulfilment status.
func (s *OrderService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (model.Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.PaymentStatus == model.PaymentStatusConfirmed {
		return model.Order{}, s.reject("confirm_payment", conflictError(ErrPaymentConfirmed, "Payment is already confirmed"))
	}
	if order.OrderStatus == model.OrderStatusCancelled {
		return model.Order{}, s.reject("confirm_payment", conflictError(ErrIllegalTransition, "Cannot confirm payment for a cancelled order"))
	}
	if !canTransitionPayment(order.PaymentStatus, model.PaymentStatusConfirmed) {
		return model.Order{}, s.reject("confirm_payment", conflictError(ErrIllegalTransition,
			"Cannot confirm payment from status %s", order.PaymentStatus))
	}

	now := s.now()
	next := order
	next.PaymentStatus = model.PaymentStatusConfirmed
	next.PaymentConfirmedAt = &now
	// Orders already moving through fulfilment keep their status.
	if order.OrderStatus == model.OrderStatusPending {
		next.OrderStatus = model.OrderStatusConfirmed
	}
	next.AdminNotes = appendNote(order.AdminNotes, cmd.AdminNotes, now)
	next.UpdatedAt = now

	if err := s.save(ctx, next, order.Version); err != nil {
		return model.Order{}, s.reject("confirm_payment", err)
	}
	next.Version++
	s.metrics.Transition("confirm_payment", "ok")

	s.notifyUser(ctx, next.OwnerID, model.NotificationPaymentConfirmed, "Payment confirmed",
		fmt.Sprintf("Your payment for order %s has been confirmed.", next.PublicCode), next.ID)
	return next, nil
}

// UpdateStatus is the admin status override. Moving into cancelled gives the stock back
// in the same transaction as the status write. Delivered and cancelled are terminal:
// delivered cannot be cancelled and either one only accepts a same-status move that
// appends admin notes.
func (s *OrderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (model.Order, error) {
	if !cmd.Status.Valid() {
		return model.Order{}, validationError(ErrIllegalTransition, "Invalid order status %q", cmd.Status)
	}
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if !canTransition(order.OrderStatus, cmd.Status) {
		if order.OrderStatus.Terminal() {
			return model.Order{}, s.reject("update_status", conflictError(ErrIllegalTransition,
				"Cannot change order status from %s to %s: %s orders are final and only accept admin notes",
				order.OrderStatus, cmd.Status, order.OrderStatus))
		}
		return model.Order{}, s.reject("update_status", conflictError(ErrIllegalTransition,
			"Cannot change order status from %s to %s", order.OrderStatus, cmd.Status))
	}

	now := s.now()
	next := order
	next.OrderStatus = cmd.Status
	next.AdminNotes = appendNote(order.AdminNotes, cmd.AdminNotes, now)
	next.UpdatedAt = now
	restore := restoresStock(order.OrderStatus, cmd.Status)
	if restore {
		next.CancelledAt = &now
	}

	if err := s.saveAndRestore(ctx, next, order, restore); err != nil {
		return model.Order{}, s.reject("update_status", err)
	}
	next.Version++
	s.metrics.Transition("update_status", "ok")

	if order.OrderStatus != next.OrderStatus {
		s.notifyUser(ctx, next.OwnerID, model.NotificationOrderStatus, "Order status updated",
			fmt.Sprintf("Your order %s is now %s.", next.PublicCode, next.OrderStatus), next.ID)
	}
	return next, nil
}

// Cancel is the owner-initiated cancellation. Paid orders require a refund contact and
// open a pending refund.
func (s *OrderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (model.Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OwnerID != cmd.RequesterID {
		return model.Order{}, s.reject("cancel", forbiddenError(ErrNotOrderOwner, "You can only cancel your own orders"))
	}
	if !canCancel(order.OrderStatus) {
		return model.Order{}, s.reject("cancel", conflictError(ErrIllegalTransition,
			"Cannot cancel order. Order is already %s.", order.OrderStatus))
	}

	phone := strings.TrimSpace(cmd.RefundPhone)
	upiID := strings.TrimSpace(cmd.RefundUpiID)
	paid := order.PaymentStatus == model.PaymentStatusConfirmed
	if paid {
		if err := validateRefundContact(phone, upiID); err != nil {
			return model.Order{}, s.reject("cancel", err)
		}
	}

	now := s.now()
	next := order
	next.OrderStatus = model.OrderStatusCancelled
	next.CancelReason = strings.TrimSpace(cmd.Reason)
	next.CancelledAt = &now
	next.UpdatedAt = now
	if paid {
		next.Refund = model.Refund{
			Requested:    true,
			Status:       model.RefundStatusPending,
			ContactPhone: utils.StringPtr(phone),
			ContactUpiID: utils.StringPtr(upiID),
			RequestedAt:  &now,
		}
	}

	if err := s.saveAndRestore(ctx, next, order, true); err != nil {
		return model.Order{}, s.reject("cancel", err)
	}
	next.Version++
	s.metrics.Transition("cancel", "ok")

	s.notifyUser(ctx, next.OwnerID, model.NotificationOrderCancelled, "Order cancelled",
		fmt.Sprintf("Your order %s has been cancelled.", next.PublicCode), next.ID)
	if paid {
		s.notifyAdmins(ctx, model.NotificationRefundRequest, "Refund requested",
			fmt.Sprintf("Order %s was cancelled after payment. A refund of %.2f is pending.", next.PublicCode, next.TotalAmount), next.ID)
	}
	return next, nil
}

// Get returns the order if the viewer owns it or is an admin.
func (s *OrderService) Get(ctx context.Context, orderID uint, viewer Viewer) (model.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !viewer.IsAdmin && order.OwnerID != viewer.UserID {
		return model.Order{}, forbiddenError(ErrNotOrderOwner, "You do not have access to this order")
	}
	return order, nil
}

// ListMine returns the owner's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, ownerID uint, page Page) (OrderPage, error) {
	page = page.normalize()
	orders, total, err := s.orders.List(ctx, OrderFilter{OwnerID: &ownerID, Limit: page.Limit, Offset: page.offset()})
	if err != nil {
		return OrderPage{}, internalError(err, "order list")
	}
	return OrderPage{Orders: orders, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

type AdminOrderFilter struct {
	OrderStatus   string
	PaymentStatus string
	RefundStatus  string
	Page          Page
}

// ListAll is the admin listing with status filters.
func (s *OrderService) ListAll(ctx context.Context, filter AdminOrderFilter) (OrderPage, error) {
	page := filter.Page.normalize()
	f := OrderFilter{Limit: page.Limit, Offset: page.offset()}
	if filter.OrderStatus != "" {
		status := model.OrderStatus(filter.OrderStatus)
		if !status.Valid() {
			return OrderPage{}, validationError(nil, "Invalid order status filter %q", filter.OrderStatus)
		}
		f.OrderStatus = status
	}
	if filter.PaymentStatus != "" {
		status := model.PaymentStatus(filter.PaymentStatus)
		if !status.Valid() {
			return OrderPage{}, validationError(nil, "Invalid payment status filter %q", filter.PaymentStatus)
		}
		f.PaymentStatus = status
	}
	switch filter.RefundStatus {
	case "", string(model.RefundStatusPending), string(model.RefundStatusProcessed), model.RefundFilterNone:
		f.RefundStatus = filter.RefundStatus
	default:
		return OrderPage{}, validationError(nil, "Invalid refund status filter %q", filter.RefundStatus)
	}

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return OrderPage{}, internalError(err, "order list")
	}
	return OrderPage{Orders: orders, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// AttachPaymentScreenshot stores the proof image and associates it with a manual payment order.
// The write is read back; a mismatch is reported as a persistence verification failure.
func (s *OrderService) AttachPaymentScreenshot(ctx context.Context, cmd AttachScreenshotCommand) (model.Order, error) {
	if len(cmd.Image) == 0 {
		return model.Order{}, validationError(nil, "Screenshot image is required")
	}
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OwnerID != cmd.RequesterID {
		return model.Order{}, forbiddenError(ErrNotOrderOwner, "You can only upload screenshots for your own orders")
	}
	if err := s.payments.SupportsScreenshot(order); err != nil {
		return model.Order{}, err
	}

	url, err := s.storeBlob(ctx, order.PublicCode+"-payment", cmd.Image)
	if err != nil {
		return model.Order{}, err
	}

	now := s.now()
	next := order
	next.PaymentScreenshot = &url
	next.UpdatedAt = now
	if err := s.save(ctx, next, order.Version); err != nil {
		s.deleteBlob(ctx, url)
		return model.Order{}, s.reject("payment_screenshot", err)
	}
	next.Version++

	stored, err := s.verify(ctx, next.ID, func(o model.Order) bool {
		return o.PaymentScreenshot != nil && *o.PaymentScreenshot == url
	})
	if err != nil {
		s.deleteBlob(ctx, url)
		return model.Order{}, s.reject("payment_screenshot", err)
	}
	if order.PaymentScreenshot != nil && *order.PaymentScreenshot != url {
		s.deleteBlob(ctx, *order.PaymentScreenshot)
	}
	s.metrics.Transition("payment_screenshot", "ok")

	s.notifyAdmins(ctx, model.NotificationPaymentScreenshot, "Payment screenshot uploaded",
		fmt.Sprintf("Order %s has a new payment screenshot awaiting verification.", stored.PublicCode), stored.ID)
	return stored, nil
}

func (s *OrderService) load(ctx context.Context, orderID uint) (model.Order, error) {
	if orderID == 0 {
		return model.Order{}, validationError(nil, "Order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return model.Order{}, notFoundError(ErrOrderNotFound, "Order not found")
		}
		return model.Order{}, internalError(err, "order lookup")
	}
	return order, nil
}

func (s *OrderService) save(ctx context.Context, next model.Order, expectedVersion uint) error {
	err := s.orders.Update(ctx, next, expectedVersion)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleWrite):
		return conflictError(ErrConcurrentUpdate, "Order %s was modified by another request. Please retry.", next.PublicCode)
	case errors.Is(err, ErrRecordNotFound):
		return notFoundError(ErrOrderNotFound, "Order not found")
	}
	return internalError(err, "order update")
}

// saveAndRestore writes the order and, when restore is set, gives its stock back within
// the same transaction. The version check runs first so only one writer ever restores.
func (s *OrderService) saveAndRestore(ctx context.Context, next, prev model.Order, restore bool) error {
	return s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.save(txCtx, next, prev.Version); err != nil {
			return err
		}
		if !restore {
			return nil
		}
		return s.ledger.Restore(txCtx, linesFromItems(prev.Items))
	})
}

// verify re-reads the order and checks that match holds for what was just written.
func (s *OrderService) verify(ctx context.Context, orderID uint, match func(model.Order) bool) (model.Order, error) {
	stored, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, &Error{
			Kind:    KindPersistenceVerification,
			Message: "Could not read back the saved order",
			Cause:   err,
		}
	}
	if !match(stored) {
		s.logger.Error("persistence verification failed", zap.Uint("order_id", orderID))
		return model.Order{}, &Error{
			Kind:    KindPersistenceVerification,
			Message: "The update was not persisted. Please try again.",
			Cause:   ErrPersistenceMismatch,
		}
	}
	return stored, nil
}

func (s *OrderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *OrderService) reject(action string, err error) error {
	s.metrics.Transition(action, string(KindOf(err)))
	return err
}

func (s *OrderService) now() time.Time {
	return s.clock()
}

func validateShippingAddress(addr *model.ShippingAddress) error {
	if addr == nil {
		return validationError(nil, "Shipping address is required")
	}
	missing := make([]string, 0, 5)
	for name, value := range map[string]string{
		"fullName":   addr.FullName,
		"phone":      addr.Phone,
		"street":     addr.Street,
		"city":       addr.City,
		"postalCode": addr.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	if len(missing) > 0 {
		return validationError(nil, "Shipping address is incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func validateRefundContact(phone, upiID string) error {
	if phone == "" && upiID == "" {
		return validationError(ErrRefundContactRequired, "A phone number or UPI id is required to process your refund")
	}
	if upiID != "" {
		if err := ValidatePayee(upiID); err != nil {
			return err
		}
	}
	return nil
}

func appendNote(existing, note string, at time.Time) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	line := fmt.Sprintf("[%s] %s", at.Format("2006-01-02 15:04"), note)
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

func cartItemIDs(items []model.CartItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
