package orders

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prasetyadi/niaga-backend/pkg/cache"
	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	pkgerrors "github.com/prasetyadi/niaga-backend/pkg/errors"
	"github.com/prasetyadi/niaga-backend/pkg/logger"
	"github.com/prasetyadi/niaga-backend/pkg/pagination"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error)
	UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error
}

type service struct {
	repo  Repository
	tx    txRunner
	cache *cache.Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, cacheStore *cache.Store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:  repo,
		tx:    tx,
		cache: cacheStore,
		logg:  logg,
		now:   time.Now,
	}, nil
}

// generateOrderNumber produces a human-scannable unique order number.
// Uniqueness is ultimately enforced by the order_number index.
func (s *service) generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", s.now().UnixMilli(), rand.Intn(10000))
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, item := range input.Items {
		if item.ProductName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d missing product name", i))
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d quantity must be positive", i))
		}
		if item.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d price cannot be negative", i))
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, models.OrderItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Metadata:    item.Metadata,
		})
	}

	order := &models.Order{
		UserID:        input.UserID,
		OrderNumber:   s.generateOrderNumber(),
		TotalAmount:   total,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		Notes:         input.Notes,
		Items:         items,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	s.cache.InvalidatePattern(ctx, s.cache.OrderListPattern(input.UserID.String()))

	return order, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	key := s.cache.OrderKey(orderID.String())
	var cached models.Order
	if s.cache.GetJSON(ctx, key, &cached) {
		if cached.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return &cached, nil
	}

	order, err := s.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, key, order)
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	normalized := pagination.Normalize(params)
	unfiltered := filters.Status == nil && filters.PaymentStatus == nil

	var key string
	if unfiltered {
		key = s.cache.OrderListKey(userID.String(), normalized.Page, normalized.Limit)
		var cached OrderList
		if s.cache.GetJSON(ctx, key, &cached) {
			return &cached, nil
		}
	}

	rows, total, err := s.repo.ListOrders(ctx, userID, normalized, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{
		Orders: rows,
		Pagination: types.Pagination{
			Page:       normalized.Page,
			Limit:      normalized.Limit,
			Total:      total,
			TotalPages: pagination.TotalPages(total, normalized.Limit),
		},
	}

	if unfiltered {
		s.cache.SetJSON(ctx, key, list)
	}
	return list, nil
}

func (s *service) UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	if input.Status == nil && input.Notes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no updatable fields provided")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *input.Status))
		}
		// Cancellation and refunds run through their own flows.
		if *input.Status == enums.OrderStatusCancelled || *input.Status == enums.OrderStatusRefunded {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %s cannot be set directly", *input.Status))
		}
	}

	order, err := s.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s and can no longer be updated", order.Status))
	}

	updates := map[string]any{}
	if input.Status != nil {
		updates["status"] = *input.Status
		order.Status = *input.Status
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
		order.Notes = input.Notes
	}

	if err := s.repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}

	s.invalidateOrder(ctx, order)
	return order, nil
}

func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if order.Status == enums.OrderStatusShipped || order.Status == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order already %s and cannot be cancelled", order.Status))
	}

	if err := s.repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	order.Status = enums.OrderStatusCancelled

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order cancelled")
	s.invalidateOrder(ctx, order)

	return order, nil
}

func (s *service) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	order, err := s.findOwnedOrder(ctx, userID, orderID)
	if err != nil {
		return err
	}

	if order.Status == enums.OrderStatusConfirmed || order.Status == enums.OrderStatusProcessing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order in status %s cannot be deleted", order.Status))
	}

	if err := s.repo.DeleteOrder(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order deleted")
	s.invalidateOrder(ctx, order)

	return nil
}

func (s *service) findOwnedOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) invalidateOrder(ctx context.Context, order *models.Order) {
	s.cache.Invalidate(ctx, s.cache.OrderKey(order.ID.String()))
	s.cache.InvalidatePattern(ctx, s.cache.OrderListPattern(order.UserID.String()))
}
