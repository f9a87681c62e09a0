package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"grocery_store/model"
	"grocery_store/service"
)

type OrderStore struct {
	db *gorm.DB
}

func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Create(ctx context.Context, order *model.Order) error {
	return conn(ctx, s.db).Create(order).Error
}

func (s *OrderStore) FindByID(ctx context.Context, id uint) (model.Order, error) {
	var order model.Order
	err := conn(ctx, s.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Order{}, service.ErrRecordNotFound
		}
		return model.Order{}, err
	}
	return order, nil
}

// Update writes the mutable columns guarded by the version read earlier. Line items,
// totals, payment method and QR data are never rewritten.
func (s *OrderStore) Update(ctx context.Context, order model.Order, expectedVersion uint) error {
	db := conn(ctx, s.db)
	res := db.Model(&model.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Updates(map[string]any{
			"payment_status":        order.PaymentStatus,
			"order_status":          order.OrderStatus,
			"payment_screenshot":    order.PaymentScreenshot,
			"admin_notes":           order.AdminNotes,
			"cancel_reason":         order.CancelReason,
			"cancelled_at":          order.CancelledAt,
			"payment_confirmed_at":  order.PaymentConfirmedAt,
			"refund_requested":      order.Refund.Requested,
			"refund_status":         order.Refund.Status,
			"refund_contact_phone":  order.Refund.ContactPhone,
			"refund_contact_upi_id": order.Refund.ContactUpiID,
			"refund_screenshot_url": order.Refund.ScreenshotURL,
			"refund_requested_at":   order.Refund.RequestedAt,
			"refund_processed_at":   order.Refund.ProcessedAt,
			"updated_at":            order.UpdatedAt,
			"version":               expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&model.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return service.ErrRecordNotFound
	}
	return service.ErrStaleWrite
}

func (s *OrderStore) List(ctx context.Context, filter service.OrderFilter) ([]model.Order, int64, error) {
	query := conn(ctx, s.db).Model(&model.Order{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.OrderStatus != "" {
		query = query.Where("order_status = ?", filter.OrderStatus)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	switch filter.RefundStatus {
	case "":
	case model.RefundFilterNone:
		query = query.Where("refund_requested = ?", false)
	default:
		query = query.Where("refund_status = ?", filter.RefundStatus)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at desc, id desc").
		Scopes(ApplyPagination(filter.Limit, filter.Offset)).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func ApplyPagination(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			db = db.Limit(limit)
		}
		if offset > 0 {
			db = db.Offset(offset)
		}
		return db
	}
}
