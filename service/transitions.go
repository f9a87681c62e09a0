package service

import (
	"slices"

	"grocery_store/model"
)

// Admin status moves. A status missing from the table accepts no change except to itself,
// so delivered and cancelled are terminal: a delivered order cannot be cancelled here and
// only takes admin notes. Returns after delivery go through the refund workflow instead.
var orderStateTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    model.OrderStatuses,
	model.OrderStatusConfirmed:  model.OrderStatuses,
	model.OrderStatusProcessing: model.OrderStatuses,
	model.OrderStatusShipped:    model.OrderStatuses,
}

// Statuses from which the owner may cancel.
var cancellableStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusConfirmed,
}

var paymentStateTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending: {model.PaymentStatusConfirmed, model.PaymentStatusFailed},
	model.PaymentStatusFailed:  {model.PaymentStatusConfirmed},
}

var refundStateTransitions = map[model.RefundStatus][]model.RefundStatus{
	model.RefundStatusNone:    {model.RefundStatusPending},
	model.RefundStatusPending: {model.RefundStatusPending, model.RefundStatusProcessed},
	// a processed refund may get a corrected proof screenshot
	model.RefundStatusProcessed: {model.RefundStatusProcessed},
}

func canTransition(current, target model.OrderStatus) bool {
	if current == target {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

func canCancel(current model.OrderStatus) bool {
	return slices.Contains(cancellableStatuses, current)
}

func canTransitionPayment(current, target model.PaymentStatus) bool {
	return slices.Contains(paymentStateTransitions[current], target)
}

func canTransitionRefund(current, target model.RefundStatus) bool {
	if current == "" {
		current = model.RefundStatusNone
	}
	return slices.Contains(refundStateTransitions[current], target)
}

// restoresStock reports whether moving from current to target must give stock back.
func restoresStock(current, target model.OrderStatus) bool {
	return target == model.OrderStatusCancelled && current != model.OrderStatusCancelled
}
