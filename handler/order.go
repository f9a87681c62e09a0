package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"grocery_store/model"
	"grocery_store/service"
	"grocery_store/utils"
)

type OrderService interface {
	Create(ctx context.Context, cmd service.CreateOrderCommand) (service.CreateOrderResult, error)
	AttachPaymentScreenshot(ctx context.Context, cmd service.AttachScreenshotCommand) (model.Order, error)
	ConfirmPayment(ctx context.Context, cmd service.ConfirmPaymentCommand) (model.Order, error)
	UpdateStatus(ctx context.Context, cmd service.UpdateStatusCommand) (model.Order, error)
	Cancel(ctx context.Context, cmd service.CancelOrderCommand) (model.Order, error)
	Get(ctx context.Context, orderID uint, viewer service.Viewer) (model.Order, error)
	ListMine(ctx context.Context, ownerID uint, page service.Page) (service.OrderPage, error)
	ListAll(ctx context.Context, filter service.AdminOrderFilter) (service.OrderPage, error)
	RequestRefund(ctx context.Context, cmd service.RequestRefundCommand) (model.Order, error)
	UpdateRefundContact(ctx context.Context, cmd service.UpdateRefundContactCommand) (model.Order, error)
	AttachRefundScreenshot(ctx context.Context, cmd service.AttachRefundScreenshotCommand) (model.Order, error)
}

// OrderView is the wire shape of an order: the stored record plus derived amounts.
type OrderView struct {
	model.Order
	Tax        float64 `json:"tax"`
	GrandTotal float64 `json:"grandTotal"`
	Warning    string  `json:"warning,omitempty"`
}

func NewOrderView(order model.Order) OrderView {
	return OrderView{
		Order:      order,
		Tax:        model.Tax(order.TotalAmount),
		GrandTotal: model.GrandTotal(order.TotalAmount),
	}
}

func orderViews(orders []model.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderView(o))
	}
	return views
}

type OrderHandler struct {
	orders OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	input := c.Locals("createInput").(model.CreateOrderInput)

	var address model.ShippingAddress
	if err := copier.Copy(&address, input.ShippingAddress); err != nil {
		return serviceError(c, h.logger, err)
	}

	result, err := h.orders.Create(c.UserContext(), service.CreateOrderCommand{
		OwnerID:         currentUserID(c),
		PaymentMethod:   model.PaymentMethod(input.PaymentMethod),
		ShippingAddress: &address,
		PaymentDetails:  service.PaymentDetails{UpiID: input.PaymentDetails.UpiID},
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}

	view := NewOrderView(result.Order)
	view.Warning = result.Warning
	return utils.SuccessResponse(c, fiber.StatusCreated, view)
}

func (h *OrderHandler) UploadPaymentScreenshot(c *fiber.Ctx) error {
	order, err := h.orders.AttachPaymentScreenshot(c.UserContext(), service.AttachScreenshotCommand{
		OrderID:     c.Locals("inputId").(uint),
		RequesterID: currentUserID(c),
		Image:       c.Locals("screenshot").([]byte),
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	page, err := h.orders.ListMine(c.UserContext(), currentUserID(c), pageFrom(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, pageResponse(page))
}

func (h *OrderHandler) GetOrderById(c *fiber.Ctx) error {
	order, err := h.orders.Get(c.UserContext(), c.Locals("inputId").(uint), currentViewer(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) GetAllOrders(c *fiber.Ctx) error {
	input := c.Locals("filterInput").(model.FilterOrderInput)
	limit, pageNo := utils.PageParams(input.Limit, input.Page)

	page, err := h.orders.ListAll(c.UserContext(), service.AdminOrderFilter{
		OrderStatus:   input.OrderStatus,
		PaymentStatus: input.PaymentStatus,
		RefundStatus:  input.RefundStatus,
		Page:          service.Page{Page: pageNo, Limit: limit},
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, pageResponse(page))
}

func (h *OrderHandler) ConfirmPayment(c *fiber.Ctx) error {
	input := c.Locals("confirmInput").(model.ConfirmPaymentInput)
	order, err := h.orders.ConfirmPayment(c.UserContext(), service.ConfirmPaymentCommand{
		OrderID:    c.Locals("inputId").(uint),
		AdminNotes: input.AdminNotes,
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	input := c.Locals("statusInput").(model.UpdateOrderStatusInput)
	order, err := h.orders.UpdateStatus(c.UserContext(), service.UpdateStatusCommand{
		OrderID:    c.Locals("inputId").(uint),
		Status:     model.OrderStatus(input.OrderStatus),
		AdminNotes: input.AdminNotes,
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	input := c.Locals("cancelInput").(model.CancelOrderInput)
	order, err := h.orders.Cancel(c.UserContext(), service.CancelOrderCommand{
		OrderID:     c.Locals("inputId").(uint),
		RequesterID: currentUserID(c),
		Reason:      input.Reason,
		RefundPhone: input.Phone,
		RefundUpiID: input.UpiID,
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) RequestRefund(c *fiber.Ctx) error {
	input := c.Locals("refundInput").(model.RefundContactInput)
	order, err := h.orders.RequestRefund(c.UserContext(), service.RequestRefundCommand{
		OrderID:     c.Locals("inputId").(uint),
		RequesterID: currentUserID(c),
		Phone:       input.Phone,
		UpiID:       input.UpiID,
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) UpdateRefundDetails(c *fiber.Ctx) error {
	input := c.Locals("refundInput").(model.RefundContactInput)
	order, err := h.orders.UpdateRefundContact(c.UserContext(), service.UpdateRefundContactCommand{
		OrderID: c.Locals("inputId").(uint),
		Phone:   input.Phone,
		UpiID:   input.UpiID,
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func (h *OrderHandler) UploadRefundScreenshot(c *fiber.Ctx) error {
	order, err := h.orders.AttachRefundScreenshot(c.UserContext(), service.AttachRefundScreenshotCommand{
		OrderID: c.Locals("inputId").(uint),
		Image:   c.Locals("screenshot").([]byte),
	})
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, NewOrderView(order))
}

func pageResponse(page service.OrderPage) model.ResponseCustom {
	return model.ResponseCustom{
		Rows:       orderViews(page.Orders),
		Limit:      utils.Ptr(page.Limit),
		Page:       utils.Ptr(page.Page),
		TotalCount: page.Total,
	}
}
