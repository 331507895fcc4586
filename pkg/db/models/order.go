package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

// Order is a customer purchase: a header row owning line items, with the
// payment join tracked through PaymentStatus/PaymentID.
type Order struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index" json:"userId"`
	OrderNumber   string               `gorm:"column:order_number;uniqueIndex;not null" json:"orderNumber"`
	TotalAmount   decimal.Decimal      `gorm:"column:total_amount;type:numeric(18,2);not null" json:"totalAmount"`
	Status        enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'PENDING'" json:"status"`
	PaymentStatus enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'PENDING'" json:"paymentStatus"`
	PaymentMethod *enums.PaymentMethod `gorm:"column:payment_method;type:text" json:"paymentMethod"`
	PaymentID     *string              `gorm:"column:payment_id" json:"paymentId"`
	PaymentData   types.AuditTrail     `gorm:"column:payment_data;type:jsonb;serializer:json" json:"paymentData,omitempty"`
	Notes         *string              `gorm:"column:notes" json:"notes"`
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
