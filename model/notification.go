package model

import "time"

type NotificationType string

const (
	NotificationNewOrder          NotificationType = "new_order"
	NotificationPaymentScreenshot NotificationType = "payment_screenshot"
	NotificationPaymentConfirmed  NotificationType = "payment_confirmed"
	NotificationOrderStatus       NotificationType = "order_status"
	NotificationOrderCancelled    NotificationType = "order_cancelled"
	NotificationRefundRequest     NotificationType = "refund_request"
	NotificationRefundProcessed   NotificationType = "refund_processed"
)

type Notification struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	RecipientID    uint             `gorm:"not null;index" json:"recipientId"`
	Type           NotificationType `gorm:"size:40;not null" json:"type"`
	Title          string           `gorm:"size:200;not null" json:"title"`
	Message        string           `gorm:"type:text" json:"message"`
	RelatedOrderID *uint            `json:"relatedOrderId,omitempty"`
	Read           bool             `gorm:"column:is_read;not null;index" json:"read"`
	ReadAt         *time.Time       `json:"readAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}
