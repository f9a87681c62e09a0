package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"grocery_store/model"
)

func TestOrderStatusTable(t *testing.T) {
	for _, from := range model.OrderStatuses {
		for _, to := range model.OrderStatuses {
			want := from == to || !from.Terminal()
			assert.Equal(t, want, canTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCancelTable(t *testing.T) {
	allowed := map[model.OrderStatus]bool{model.OrderStatusPending: true, model.OrderStatusConfirmed: true}
	for _, status := range model.OrderStatuses {
		assert.Equal(t, allowed[status], canCancel(status), status)
	}
}

func TestPaymentAndRefundTables(t *testing.T) {
	assert.True(t, canTransitionPayment(model.PaymentStatusPending, model.PaymentStatusConfirmed))
	assert.True(t, canTransitionPayment(model.PaymentStatusFailed, model.PaymentStatusConfirmed))
	assert.False(t, canTransitionPayment(model.PaymentStatusConfirmed, model.PaymentStatusConfirmed))
	assert.False(t, canTransitionPayment(model.PaymentStatusConfirmed, model.PaymentStatusPending))

	assert.True(t, canTransitionRefund("", model.RefundStatusPending))
	assert.True(t, canTransitionRefund(model.RefundStatusPending, model.RefundStatusProcessed))
	assert.False(t, canTransitionRefund(model.RefundStatusNone, model.RefundStatusProcessed))
	assert.False(t, canTransitionRefund(model.RefundStatusProcessed, model.RefundStatusPending))
}

func TestRestoresStockOnlyWhenEnteringCancelled(t *testing.T) {
	for _, from := range model.OrderStatuses {
		for _, to := range model.OrderStatuses {
			want := to == model.OrderStatusCancelled && from != model.OrderStatusCancelled
			assert.Equal(t, want, restoresStock(from, to), "%s -> %s", from, to)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	err := conflictError(ErrInsufficientStock, "Insufficient stock for %s", "Milk")
	wrapped := fmt.Errorf("create: %w", err)

	assert.ErrorIs(t, wrapped, KindConflict)
	assert.ErrorIs(t, wrapped, ErrInsufficientStock)
	assert.NotErrorIs(t, wrapped, KindValidation)
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, "Insufficient stock for Milk", err.Error())

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Nil(t, internalError(nil, "noop"))
	assert.Same(t, err, internalError(err, "ignored"))
}
