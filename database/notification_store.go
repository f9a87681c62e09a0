package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"grocery_store/model"
	"grocery_store/service"
)

type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(ctx context.Context, n *model.Notification) error {
	return conn(ctx, s.db).Create(n).Error
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientID uint, limit, offset int) ([]model.Notification, int64, error) {
	query := conn(ctx, s.db).Model(&model.Notification{}).Where("recipient_id = ?", recipientID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []model.Notification
	err := query.
		Order("created_at desc, id desc").
		Scopes(ApplyPagination(limit, offset)).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id, recipientID uint, at time.Time) error {
	res := conn(ctx, s.db).Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrRecordNotFound
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	res := conn(ctx, s.db).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (s *NotificationStore) Delete(ctx context.Context, id, recipientID uint) error {
	res := conn(ctx, s.db).Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrRecordNotFound
	}
	return nil
}

func (s *NotificationStore) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	res := conn(ctx, s.db).
		Where("is_read = ? AND read_at < ?", true, before).
		Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}
