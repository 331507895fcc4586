package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prasetyadi/niaga-backend/pkg/cache"
	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/doku"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	pkgerrors "github.com/prasetyadi/niaga-backend/pkg/errors"
	"github.com/prasetyadi/niaga-backend/pkg/logger"
	"github.com/prasetyadi/niaga-backend/pkg/metrics"
	"github.com/prasetyadi/niaga-backend/pkg/pagination"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

const defaultExpiryMinutes = 24 * 60

// Audit trail sources, in the order a payment usually accumulates them.
const (
	auditSourceCustomer = "customer"
	auditSourceGateway  = "gateway"
	auditSourceCallback = "callback"
	auditSourceManual   = "manual"
	auditSourceRefund   = "refund"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service coordinates the order and payment state machines.
type Service interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error)
	HandleCallback(ctx context.Context, body []byte) (*CallbackResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*PaymentList, error)
	GetStatistics(ctx context.Context, userID uuid.UUID, filters Filters) (*Statistics, error)
}

// ServiceParams bundles the dependencies required to build the coordinator.
type ServiceParams struct {
	Repo           Repository
	Orders         OrderStore
	Tx             txRunner
	Gateway        Gateway
	Cache          *cache.Store
	Metrics        *metrics.PaymentMetrics
	Logger         *logger.Logger
	CallbackSecret string
}

type service struct {
	repo    Repository
	orders  OrderStore
	tx      txRunner
	gateway Gateway
	cache   *cache.Store
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	secret  string
	now     func() time.Time
}

// NewService constructs the payment lifecycle coordinator.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.CallbackSecret == "" {
		return nil, fmt.Errorf("callback secret required")
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		tx:      params.Tx,
		gateway: params.Gateway,
		cache:   params.Cache,
		metrics: params.Metrics,
		logg:    params.Logger,
		secret:  params.CallbackSecret,
		now:     time.Now,
	}, nil
}

// cachedPayment wraps a payment with its owning user so cache hits can be
// authorization-checked without touching the database.
type cachedPayment struct {
	UserID  uuid.UUID      `json:"userId"`
	Payment models.Payment `json:"payment"`
}

func (s *service) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}

	currency := enums.CurrencyIDR
	if input.Currency != nil {
		if !input.Currency.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", *input.Currency))
		}
		currency = *input.Currency
	}

	order, err := s.orders.FindOrderByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order payment is already %s", order.PaymentStatus))
	}
	// Fraud/race guard, not a rounding check: the amount the caller believes
	// they are paying must equal the order total exactly.
	if !input.Amount.Equal(order.TotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must equal order total")
	}

	expiryMinutes := input.ExpiryMinutes
	if expiryMinutes <= 0 {
		expiryMinutes = defaultExpiryMinutes
	}
	now := s.now()

	payment := &models.Payment{
		OrderID:    order.ID,
		Amount:     order.TotalAmount,
		Currency:   currency,
		Method:     input.Method,
		Status:     enums.PaymentStatusPending,
		ExpiryDate: now.Add(time.Duration(expiryMinutes) * time.Minute),
		PaymentData: types.AuditTrail{}.Append(auditSourceCustomer, now, types.JSONMap{
			"name":  input.Customer.Name,
			"email": input.Customer.Email,
			"phone": input.Customer.Phone,
		}),
	}

	// The payment row must exist regardless of gateway reachability, so the
	// gateway call happens only after this commits.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return s.orders.WithTx(tx).UpdateOrder(ctx, order.ID, map[string]any{"payment_method": input.Method})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, order.ID.String()), payment.ID.String())
	result := &CreatePaymentResult{Payment: payment}

	started := s.now()
	gatewayRes, err := s.gateway.CreatePayment(ctx, doku.CreatePaymentParams{
		InvoiceNumber: order.OrderNumber,
		Amount:        payment.Amount,
		Currency:      currency,
		Method:        input.Method,
		Customer: doku.Customer{
			Name:  input.Customer.Name,
			Email: input.Customer.Email,
			Phone: input.Customer.Phone,
		},
		ExpirySeconds: int64(expiryMinutes) * 60,
		CallbackURL:   input.CallbackURL,
		ReturnURL:     input.ReturnURL,
	})
	s.metrics.ObserveGatewayDuration("create_payment", s.now().Sub(started))

	if err != nil {
		// Best effort: the payment stays PENDING without a gateway token and
		// the caller still gets the locally-created row.
		s.metrics.IncGatewayFailure("create_payment")
		s.logg.Error(ctx, "gateway payment creation failed", err)
	} else {
		updates := map[string]any{
			"gateway_payment_id": gatewayRes.GatewayPaymentID,
			"payment_url":        gatewayRes.PaymentURL,
			"payment_data":       payment.PaymentData.Append(auditSourceGateway, s.now(), gatewayRes.Raw),
		}
		if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway response")
		}
		payment.GatewayPaymentID = &gatewayRes.GatewayPaymentID
		payment.PaymentURL = &gatewayRes.PaymentURL
		payment.PaymentData = updates["payment_data"].(types.AuditTrail)
		result.Instructions = buildInstructions(input.Method, gatewayRes)
	}

	s.logg.Info(ctx, "payment created")
	s.invalidatePayment(ctx, payment.ID, order.UserID, order.ID)

	return result, nil
}

func buildInstructions(method enums.PaymentMethod, res *doku.CreatePaymentResult) Instructions {
	ins := Instructions{PaymentURL: res.PaymentURL}
	switch method {
	case enums.PaymentMethodVirtualAccount, enums.PaymentMethodBankTransfer:
		if res.VANumber != "" {
			ins.VANumber = &res.VANumber
		}
		if res.VAName != "" {
			ins.VAName = &res.VAName
		}
	case enums.PaymentMethodQRIS:
		if res.QRCode != "" {
			ins.QRCode = &res.QRCode
		}
	case enums.PaymentMethodEWallet:
		if res.PaymentURL != "" {
			ins.RedirectURL = &res.PaymentURL
		}
	}
	return ins
}

func (s *service) HandleCallback(ctx context.Context, body []byte) (*CallbackResult, error) {
	if !doku.VerifyCallback(body, s.secret) {
		s.metrics.IncCallbackRejected("invalid_signature")
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "callback signature verification failed")
	}

	var payload CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.metrics.IncCallbackRejected("malformed_payload")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode callback payload")
	}
	if payload.PaymentID == "" {
		s.metrics.IncCallbackRejected("missing_payment_id")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback missing payment id")
	}

	target, err := enums.ParsePaymentStatus(strings.ToUpper(payload.Status))
	if err != nil || target == enums.PaymentStatusPending {
		s.metrics.IncCallbackRejected("invalid_status")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported callback status %q", payload.Status))
	}

	var auditPayload types.JSONMap
	_ = json.Unmarshal(body, &auditPayload)

	var result *CallbackResult
	var owner uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.FindPaymentByGatewayID(ctx, payload.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				s.metrics.IncCallbackRejected("unknown_payment")
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for callback")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Order != nil {
			owner = payment.Order.UserID
		}

		if payload.Amount != nil && !payload.Amount.Equal(payment.Amount) {
			s.metrics.IncCallbackRejected("amount_mismatch")
			return pkgerrors.New(pkgerrors.CodeValidation, "callback amount does not match payment amount")
		}

		trail := payment.PaymentData.Append(auditSourceCallback, s.now(), auditPayload)

		// Re-delivery of an already-applied status is accepted: the payload
		// is recorded and nothing else moves.
		if payment.Status == target {
			if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{"payment_data": trail}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record duplicate callback")
			}
			result = &CallbackResult{
				PaymentID:     payment.ID,
				OrderID:       payment.OrderID,
				Status:        payment.Status,
				TransactionID: payment.TransactionID,
				Duplicate:     true,
			}
			return nil
		}
		if payment.Status.IsTerminal() {
			s.metrics.IncCallbackRejected("terminal_state")
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment already %s", payment.Status))
		}

		updates := map[string]any{"payment_data": trail}
		if payload.TransactionID != nil {
			updates["transaction_id"] = *payload.TransactionID
		}
		won, err := repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusPending, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payment status")
		}
		if !won {
			s.metrics.IncCallbackRejected("lost_race")
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently")
		}

		if err := s.applyOrderEffects(ctx, tx, payment, target, auditPayload); err != nil {
			return err
		}

		result = &CallbackResult{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			Status:        target,
			TransactionID: payload.TransactionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, result.OrderID.String()), result.PaymentID.String())
	if result.Duplicate {
		s.metrics.IncCallbackDuplicate()
		s.logg.Info(ctx, "duplicate callback recorded")
	} else {
		s.metrics.IncCallbackProcessed(result.Status.String())
		s.logg.Info(ctx, "callback applied")
	}
	s.invalidatePayment(ctx, result.PaymentID, owner, result.OrderID)

	return result, nil
}

// applyOrderEffects moves the order side of the joint state machine once the
// payment row has transitioned.
func (s *service) applyOrderEffects(ctx context.Context, tx *gorm.DB, payment *models.Payment, target enums.PaymentStatus, auditPayload types.JSONMap) error {
	ordersRepo := s.orders.WithTx(tx)

	order := payment.Order
	if order == nil {
		loaded, err := ordersRepo.FindOrderByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for payment")
		}
		order = loaded
	}

	updates := map[string]any{
		"payment_status": target,
		"payment_data":   order.PaymentData.Append(auditSourceCallback, s.now(), auditPayload),
	}
	switch target {
	case enums.PaymentStatusPaid:
		if payment.GatewayPaymentID != nil {
			updates["payment_id"] = *payment.GatewayPaymentID
		}
		if order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusConfirmed {
			updates["status"] = enums.OrderStatusProcessing
		}
	case enums.PaymentStatusFailed:
		updates["status"] = enums.OrderStatusCancelled
	case enums.PaymentStatusRefunded:
		updates["status"] = enums.OrderStatusCancelled
	}

	if err := ordersRepo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order from payment")
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Payment, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.Status != enums.PaymentStatusPaid && input.Status != enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %q cannot be set manually", input.Status))
	}

	var payment *models.Payment
	var owner uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.FindPaymentByID(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if loaded.Order == nil || loaded.Order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to caller")
		}
		owner = loaded.Order.UserID

		auditPayload := types.JSONMap{
			"status": input.Status.String(),
			"userId": input.UserID.String(),
		}
		if input.TransactionID != nil {
			auditPayload["transactionId"] = *input.TransactionID
		}
		if input.FailureReason != nil {
			auditPayload["failureReason"] = *input.FailureReason
		}
		trail := loaded.PaymentData.Append(auditSourceManual, s.now(), auditPayload)

		if loaded.Status == input.Status {
			if err := repo.UpdatePayment(ctx, loaded.ID, map[string]any{"payment_data": trail}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record manual update")
			}
			loaded.PaymentData = trail
			payment = loaded
			return nil
		}
		if loaded.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment already %s", loaded.Status))
		}

		updates := map[string]any{"payment_data": trail}
		if input.TransactionID != nil {
			updates["transaction_id"] = *input.TransactionID
		}
		won, err := repo.TransitionStatus(ctx, loaded.ID, enums.PaymentStatusPending, input.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payment status")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently")
		}

		if err := s.applyOrderEffects(ctx, tx, loaded, input.Status, auditPayload); err != nil {
			return err
		}

		loaded.Status = input.Status
		if input.TransactionID != nil {
			loaded.TransactionID = input.TransactionID
		}
		loaded.PaymentData = trail
		payment = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithPaymentID(ctx, payment.ID.String())
	s.logg.Info(ctx, "payment status updated manually")
	s.invalidatePayment(ctx, payment.ID, owner, payment.OrderID)

	return payment, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	payment, err := s.repo.FindPaymentByID(ctx, input.PaymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Order == nil || payment.Order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to caller")
	}
	if payment.Status != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is %s, only PAID payments can be refunded", payment.Status))
	}
	if payment.GatewayPaymentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway reference")
	}

	amount := payment.Amount
	if input.Amount != nil {
		amount = *input.Amount
	}
	if !amount.IsPositive() || amount.GreaterThan(payment.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive and within the paid amount")
	}

	ctx = s.logg.WithPaymentID(s.logg.WithOrderID(ctx, payment.OrderID.String()), payment.ID.String())

	// Refund differs from creation: the gateway must confirm before any
	// local state flips.
	started := s.now()
	receipt, err := s.gateway.CreateRefund(ctx, *payment.GatewayPaymentID, amount)
	s.metrics.ObserveGatewayDuration("refund", s.now().Sub(started))
	if err != nil {
		s.metrics.IncGatewayFailure("refund")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund failed")
	}

	auditPayload := types.JSONMap{
		"amount": amount.String(),
		"userId": input.UserID.String(),
	}
	if input.Reason != nil {
		auditPayload["reason"] = *input.Reason
	}
	if receipt != nil && receipt.Raw != nil {
		auditPayload["receipt"] = map[string]any(receipt.Raw)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		trail := payment.PaymentData.Append(auditSourceRefund, s.now(), auditPayload)
		won, err := repo.TransitionStatus(ctx, payment.ID, enums.PaymentStatusPaid, enums.PaymentStatusRefunded, map[string]any{"payment_data": trail})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition payment to refunded")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently")
		}

		return s.orders.WithTx(tx).UpdateOrder(ctx, payment.OrderID, map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusRefunded,
			"payment_data":   payment.Order.PaymentData.Append(auditSourceRefund, s.now(), auditPayload),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment refunded")
	s.invalidatePayment(ctx, payment.ID, input.UserID, payment.OrderID)

	return &RefundResult{
		PaymentID:    payment.ID,
		OrderID:      payment.OrderID,
		Status:       enums.PaymentStatusRefunded,
		RefundAmount: amount,
	}, nil
}

func (s *service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	key := s.cache.PaymentKey(paymentID.String())
	var cached cachedPayment
	if s.cache.GetJSON(ctx, key, &cached) {
		if cached.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return &cached.Payment, nil
	}

	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.Order == nil || payment.Order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	s.cache.SetJSON(ctx, key, cachedPayment{UserID: userID, Payment: *payment})
	return payment, nil
}

func (s *service) ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) (*PaymentList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	normalized := pagination.Normalize(params)
	key := s.cache.PaymentListKey(userID.String(), normalized.Page, normalized.Limit, filterHash(filters))

	var cached PaymentList
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	rows, total, err := s.repo.ListPayments(ctx, userID, normalized, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	list := &PaymentList{
		Payments: rows,
		Pagination: types.Pagination{
			Page:       normalized.Page,
			Limit:      normalized.Limit,
			Total:      total,
			TotalPages: pagination.TotalPages(total, normalized.Limit),
		},
	}
	s.cache.SetJSON(ctx, key, list)
	return list, nil
}

// GetStatistics is always computed fresh. Correctness over latency.
func (s *service) GetStatistics(ctx context.Context, userID uuid.UUID, filters Filters) (*Statistics, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	stats, err := s.repo.AggregateStatistics(ctx, userID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate payment statistics")
	}
	return stats, nil
}

func filterHash(filters Filters) string {
	if filters.Status == nil && filters.Method == nil && filters.DateFrom == nil && filters.DateTo == nil {
		return "all"
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%v|%v|%v|%v", filters.Status, filters.Method, filters.DateFrom, filters.DateTo)))
	return hex.EncodeToString(sum[:4])
}

func (s *service) invalidatePayment(ctx context.Context, paymentID, userID, orderID uuid.UUID) {
	s.cache.Invalidate(ctx, s.cache.PaymentKey(paymentID.String()), s.cache.OrderKey(orderID.String()))
	if userID != uuid.Nil {
		s.cache.InvalidatePattern(ctx, s.cache.PaymentListPattern(userID.String()))
		s.cache.InvalidatePattern(ctx, s.cache.OrderListPattern(userID.String()))
	}
}
