package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

// Payment is one attempt to collect an order's total through the gateway.
// The row exists as soon as the attempt starts; GatewayPaymentID stays nil
// until the gateway call succeeds. Amount is frozen at creation.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id;uniqueIndex" json:"gatewayPaymentId"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null" json:"amount"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null;default:'IDR'" json:"currency"`
	Method           enums.PaymentMethod `gorm:"column:method;type:text;not null" json:"paymentMethod"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'" json:"status"`
	PaymentURL       *string             `gorm:"column:payment_url" json:"paymentUrl,omitempty"`
	TransactionID    *string             `gorm:"column:transaction_id" json:"transactionId,omitempty"`
	ExpiryDate       time.Time           `gorm:"column:expiry_date;not null" json:"expiryDate"`
	PaymentData      types.AuditTrail    `gorm:"column:payment_data;type:jsonb;serializer:json" json:"paymentData,omitempty"`
	Order            *Order              `gorm:"foreignKey:OrderID" json:"-"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}
