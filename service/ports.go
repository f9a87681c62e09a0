package service

import (
	"context"
	"time"

	"grocery_store/model"
)

// ProductRepository exposes the catalog reads and the stock counters. Only StockLedger
// may call DecrementStock and IncrementStock.
type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error)
	// DecrementStock subtracts qty iff the product is active and has at least qty in stock.
	// It reports false, without error, when the condition does not hold.
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uint, qty int) error
}

type OrderFilter struct {
	OwnerID       *uint
	OrderStatus   model.OrderStatus
	PaymentStatus model.PaymentStatus
	RefundStatus  string
	Limit         int
	Offset        int
}

type OrderRepository interface {
	// Create inserts the order with its items and assigns IDs.
	Create(ctx context.Context, order *model.Order) error
	// FindByID returns ErrRecordNotFound when missing.
	FindByID(ctx context.Context, id uint) (model.Order, error)
	// Update writes the mutable fields and bumps the version iff the stored version still
	// equals expectedVersion; otherwise it returns ErrStaleWrite.
	Update(ctx context.Context, order model.Order, expectedVersion uint) error
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
}

type CartStore interface {
	Items(ctx context.Context, userID uint) ([]model.CartItem, error)
	// Remove deletes the listed rows of userID's cart and reports how many were still there.
	Remove(ctx context.Context, userID uint, itemIDs []uint) (int64, error)
}

type UserDirectory interface {
	AdminIDs(ctx context.Context) ([]uint, error)
	FindByID(ctx context.Context, id uint) (model.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID uint, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id, recipientID uint) error
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

// Transactor runs fn in a single database transaction carried by the context.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlobStore is the opaque image storage.
type BlobStore interface {
	Store(ctx context.Context, name string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// NotificationEmitter delivers a notification. Callers treat it as fire-and-forget.
type NotificationEmitter interface {
	Emit(ctx context.Context, n model.Notification) error
}

type noopTransactor struct{}

func (noopTransactor) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
