package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

// ItemInput is one purchased line on a new order.
type ItemInput struct {
	ProductName string          `json:"productName" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	Metadata    types.JSONMap   `json:"metadata,omitempty"`
}

// CreateOrderInput captures the data required to place an order.
type CreateOrderInput struct {
	UserID uuid.UUID   `json:"-"`
	Items  []ItemInput `json:"items" validate:"required,min=1,dive"`
	Notes  *string     `json:"notes,omitempty"`
}

// UpdateOrderInput carries the mutable order header fields.
type UpdateOrderInput struct {
	Status *enums.OrderStatus `json:"status,omitempty"`
	Notes  *string            `json:"notes,omitempty"`
}

// Filters describe the inputs supported by the orders list.
type Filters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// OrderList wraps the paginated orders plus pagination metadata.
type OrderList struct {
	Orders     []models.Order   `json:"orders"`
	Pagination types.Pagination `json:"pagination"`
}
