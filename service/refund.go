package service

import (
	"context"
	"fmt"
	"strings"

	"grocery_store/model"
	"grocery_store/utils"
)

type RequestRefundCommand struct {
	OrderID     uint
	RequesterID uint
	Phone       string
	UpiID       string
}

type UpdateRefundContactCommand struct {
	OrderID uint
	Phone   string
	UpiID   string
}

type AttachRefundScreenshotCommand struct {
	OrderID uint
	Image   []byte
}

// RequestRefund lets the owner of a cancelled, paid order ask for a refund. A pending request
// is replaced with the new contact details.
func (s *OrderService) RequestRefund(ctx context.Context, cmd RequestRefundCommand) (model.Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OwnerID != cmd.RequesterID {
		return model.Order{}, s.reject("request_refund", forbiddenError(ErrNotOrderOwner, "You can only request refunds for your own orders"))
	}
	if order.OrderStatus != model.OrderStatusCancelled {
		return model.Order{}, s.reject("request_refund", conflictError(ErrIllegalTransition,
			"Refunds can only be requested for cancelled orders. Order is %s.", order.OrderStatus))
	}
	if order.PaymentStatus != model.PaymentStatusConfirmed {
		return model.Order{}, s.reject("request_refund", conflictError(ErrIllegalTransition,
			"No refund is due: payment was never confirmed"))
	}

	phone := strings.TrimSpace(cmd.Phone)
	upiID := strings.TrimSpace(cmd.UpiID)
	if err := validateRefundContact(phone, upiID); err != nil {
		return model.Order{}, s.reject("request_refund", err)
	}
	if order.Refund.Status == model.RefundStatusProcessed {
		return model.Order{}, s.reject("request_refund", conflictError(ErrRefundProcessed, "Refund has already been processed"))
	}
	if !canTransitionRefund(order.Refund.Status, model.RefundStatusPending) {
		return model.Order{}, s.reject("request_refund", conflictError(ErrIllegalTransition,
			"Cannot request a refund from status %s", order.Refund.Status))
	}

	now := s.now()
	next := order
	next.Refund = model.Refund{
		Requested:    true,
		Status:       model.RefundStatusPending,
		ContactPhone: utils.StringPtr(phone),
		ContactUpiID: utils.StringPtr(upiID),
		RequestedAt:  &now,
	}
	next.UpdatedAt = now
	if err := s.save(ctx, next, order.Version); err != nil {
		return model.Order{}, s.reject("request_refund", err)
	}
	next.Version++
	s.metrics.Transition("request_refund", "ok")

	s.notifyAdmins(ctx, model.NotificationRefundRequest, "Refund requested",
		fmt.Sprintf("A refund of %.2f was requested for order %s.", next.TotalAmount, next.PublicCode), next.ID)
	return next, nil
}

// UpdateRefundContact is the admin correction of refund contact details. Empty fields are left as they are.
func (s *OrderService) UpdateRefundContact(ctx context.Context, cmd UpdateRefundContactCommand) (model.Order, error) {
	phone := strings.TrimSpace(cmd.Phone)
	upiID := strings.TrimSpace(cmd.UpiID)
	if phone == "" && upiID == "" {
		return model.Order{}, validationError(ErrRefundContactRequired, "Provide a phone number or UPI id to update")
	}
	if upiID != "" {
		if err := ValidatePayee(upiID); err != nil {
			return model.Order{}, err
		}
	}

	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OrderStatus != model.OrderStatusCancelled {
		return model.Order{}, s.reject("update_refund_contact", conflictError(ErrIllegalTransition,
			"Refund details can only be edited for cancelled orders. Order is %s.", order.OrderStatus))
	}

	next := order
	if phone != "" {
		next.Refund.ContactPhone = &phone
	}
	if upiID != "" {
		next.Refund.ContactUpiID = &upiID
	}
	next.UpdatedAt = s.now()
	if err := s.save(ctx, next, order.Version); err != nil {
		return model.Order{}, s.reject("update_refund_contact", err)
	}
	next.Version++
	s.metrics.Transition("update_refund_contact", "ok")
	return next, nil
}

// AttachRefundScreenshot records the refund transfer proof and closes the refund.
func (s *OrderService) AttachRefundScreenshot(ctx context.Context, cmd AttachRefundScreenshotCommand) (model.Order, error) {
	if len(cmd.Image) == 0 {
		return model.Order{}, validationError(nil, "Screenshot image is required")
	}
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return model.Order{}, err
	}
	if order.OrderStatus != model.OrderStatusCancelled {
		return model.Order{}, s.reject("refund_screenshot", conflictError(ErrIllegalTransition,
			"Refund proof can only be attached to cancelled orders. Order is %s.", order.OrderStatus))
	}
	if !order.Refund.Requested {
		return model.Order{}, s.reject("refund_screenshot", conflictError(ErrRefundNotRequested, "No refund was requested for this order"))
	}
	if !canTransitionRefund(order.Refund.Status, model.RefundStatusProcessed) {
		return model.Order{}, s.reject("refund_screenshot", conflictError(ErrIllegalTransition,
			"Cannot process a refund from status %s", order.Refund.Status))
	}

	url, err := s.storeBlob(ctx, order.PublicCode+"-refund", cmd.Image)
	if err != nil {
		return model.Order{}, err
	}

	now := s.now()
	prior := order.Refund.ScreenshotURL
	next := order
	next.Refund.ScreenshotURL = &url
	next.Refund.Status = model.RefundStatusProcessed
	next.Refund.ProcessedAt = &now
	next.UpdatedAt = now
	if err := s.save(ctx, next, order.Version); err != nil {
		s.deleteBlob(ctx, url)
		return model.Order{}, s.reject("refund_screenshot", err)
	}
	next.Version++
	if prior != nil && *prior != url {
		s.deleteBlob(ctx, *prior)
	}
	s.metrics.Transition("refund_screenshot", "ok")

	s.notifyUser(ctx, next.OwnerID, model.NotificationRefundProcessed, "Refund processed",
		fmt.Sprintf("Your refund of %.2f for order %s has been sent.", next.TotalAmount, next.PublicCode), next.ID)
	return next, nil
}
