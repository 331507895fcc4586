package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/doku"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/pagination"
)

// Repository defines persistence operations for the payments table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) ([]models.Payment, int64, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// TransitionStatus applies updates only when the payment is still in the
	// from status, reporting whether the row was won. Losing the race means a
	// concurrent transition committed first.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error)
	AggregateStatistics(ctx context.Context, userID uuid.UUID, filters Filters) (*Statistics, error)
}

// OrderStore is the slice of the orders repository the coordinator drives.
type OrderStore interface {
	WithTx(tx *gorm.DB) OrderStore
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// Gateway is the outbound payment gateway surface used by the coordinator.
type Gateway interface {
	CreatePayment(ctx context.Context, params doku.CreatePaymentParams) (*doku.CreatePaymentResult, error)
	CreateRefund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal) (*doku.RefundReceipt, error)
}
