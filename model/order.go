package model

import "time"

type Order struct {
	DTO
	PublicCode         string          `gorm:"uniqueIndex;size:20" json:"publicCode"` // ORD-XXXXXXXX
	OwnerID            uint            `gorm:"not null;index" json:"ownerId"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount        float64         `gorm:"not null" json:"totalAmount"`
	PaymentMethod      PaymentMethod   `gorm:"size:20;not null" json:"paymentMethod"`
	PaymentStatus      PaymentStatus   `gorm:"size:20;not null;index" json:"paymentStatus"`
	OrderStatus        OrderStatus     `gorm:"size:20;not null;index" json:"orderStatus"`
	PaymentScreenshot  *string         `json:"paymentScreenshot"`
	QRPayload          *string         `json:"qrPayload"`
	QRCode             *string         `gorm:"type:text" json:"qrCode,omitempty"` // data:image/png;base64,...
	ShippingAddress    ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shippingAddress"`
	Refund             Refund          `gorm:"embedded;embeddedPrefix:refund_" json:"refund"`
	AdminNotes         string          `gorm:"type:text" json:"adminNotes"`
	CancelReason       string          `json:"cancelReason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	PaymentConfirmedAt *time.Time      `json:"paymentConfirmedAt,omitempty"`
	Version            uint            `gorm:"not null" json:"version"` // optimistic lock
}

// ItemsTotal recomputes the total from the stored line snapshot.
func (o Order) ItemsTotal() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.LineTotal()
	}
	return RoundMoney(total)
}

type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"not null;index" json:"orderId"`
	ProductID   uint    `gorm:"not null" json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `gorm:"not null" json:"quantity"`
	UnitPrice   float64 `gorm:"not null" json:"unitPrice"` // price at purchase time
}

func (i OrderItem) LineTotal() float64 {
	return RoundMoney(float64(i.Quantity) * i.UnitPrice)
}

type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type Refund struct {
	Requested     bool         `gorm:"not null" json:"requested"`
	Status        RefundStatus `gorm:"size:20;not null" json:"status"`
	ContactPhone  *string      `json:"contactPhone"`
	ContactUpiID  *string      `json:"contactUpiId"`
	ScreenshotURL *string      `json:"screenshotUrl"`
	RequestedAt   *time.Time   `json:"requestedAt"`
	ProcessedAt   *time.Time   `json:"processedAt,omitempty"`
}

type ShippingAddressInput struct {
	FullName   string `json:"fullName" validate:"required,min=2,max=100"`
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"omitempty,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=12"`
}

type PaymentDetailsInput struct {
	UpiID string `json:"upiId" validate:"omitempty,max=256"`
}

type CreateOrderInput struct {
	PaymentMethod   string                `json:"paymentMethod" validate:"required,oneof=cod manual_payment"`
	ShippingAddress *ShippingAddressInput `json:"shippingAddress" validate:"required"`
	PaymentDetails  PaymentDetailsInput   `json:"paymentDetails"`
}

type ConfirmPaymentInput struct {
	AdminNotes string `json:"adminNotes" validate:"omitempty,max=1000"`
}

type UpdateOrderStatusInput struct {
	OrderStatus string `json:"orderStatus" validate:"required,oneof=pending confirmed processing shipped delivered cancelled"`
	AdminNotes  string `json:"adminNotes" validate:"omitempty,max=1000"`
}

type CancelOrderInput struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
	Phone  string `json:"phone" validate:"omitempty,min=7,max=20"`
	UpiID  string `json:"upiId" validate:"omitempty,upi"`
}

type RefundContactInput struct {
	Phone string `json:"phone" validate:"omitempty,min=7,max=20"`
	UpiID string `json:"upiId" validate:"omitempty,upi"`
}

type FilterOrderInput struct {
	Pagination
	OrderStatus   string `query:"orderStatus" validate:"omitempty,oneof=pending confirmed processing shipped delivered cancelled"`
	PaymentStatus string `query:"paymentStatus" validate:"omitempty,oneof=pending confirmed failed"`
	RefundStatus  string `query:"refundStatus" validate:"omitempty,oneof=pending processed no-refund"`
}
