package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prasetyadi/niaga-backend/internal/orders"
	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Order").
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) scopedByUser(ctx context.Context, userID uuid.UUID, filters Filters) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.user_id = ?", userID)
	if filters.Status != nil {
		query = query.Where("payments.status = ?", *filters.Status)
	}
	if filters.Method != nil {
		query = query.Where("payments.method = ?", *filters.Method)
	}
	if filters.DateFrom != nil {
		query = query.Where("payments.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("payments.created_at <= ?", *filters.DateTo)
	}
	return query
}

func (r *repository) ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) ([]models.Payment, int64, error) {
	normalized := pagination.Normalize(params)
	query := r.scopedByUser(ctx, userID, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	err := query.
		Order("payments.created_at DESC").
		Limit(normalized.Limit).
		Offset(normalized.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AggregateStatistics(ctx context.Context, userID uuid.UUID, filters Filters) (*Statistics, error) {
	var buckets []struct {
		Status enums.PaymentStatus
		Count  int64
		Amount decimal.Decimal
	}
	err := r.scopedByUser(ctx, userID, filters).
		Select("payments.status AS status, COUNT(*) AS count, COALESCE(SUM(payments.amount), 0) AS amount").
		Group("payments.status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalAmount:   decimal.Zero,
		AverageAmount: decimal.Zero,
		ByStatus:      make(map[enums.PaymentStatus]StatusBreakdown, len(buckets)),
	}
	for _, b := range buckets {
		stats.TotalCount += b.Count
		stats.TotalAmount = stats.TotalAmount.Add(b.Amount)
		stats.ByStatus[b.Status] = StatusBreakdown{Count: b.Count, Amount: b.Amount}
	}
	if stats.TotalCount > 0 {
		stats.AverageAmount = stats.TotalAmount.DivRound(decimal.NewFromInt(stats.TotalCount), 2)
	}
	return stats, nil
}

// ordersAdapter narrows the orders repository to the coordinator's view.
type ordersAdapter struct {
	repo orders.Repository
}

// NewOrderStore adapts the orders repository for use by the payment service.
func NewOrderStore(repo orders.Repository) OrderStore {
	return ordersAdapter{repo: repo}
}

func (a ordersAdapter) WithTx(tx *gorm.DB) OrderStore {
	return ordersAdapter{repo: a.repo.WithTx(tx)}
}

func (a ordersAdapter) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return a.repo.FindOrderByID(ctx, id)
}

func (a ordersAdapter) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return a.repo.UpdateOrder(ctx, id, updates)
}
