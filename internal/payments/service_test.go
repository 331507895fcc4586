package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/doku"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	pkgerrors "github.com/prasetyadi/niaga-backend/pkg/errors"
	"github.com/prasetyadi/niaga-backend/pkg/logger"
	"github.com/prasetyadi/niaga-backend/pkg/pagination"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

const testCallbackSecret = "callback-secret"

type transitionCall struct {
	from, to enums.PaymentStatus
	updates  map[string]any
}

type stubPaymentsRepo struct {
	payment        *models.Payment
	created        *models.Payment
	updates        map[string]any
	transitions    []transitionCall
	denyTransition bool
	listRows       []models.Payment
	listTotal      int64
	stats          *Statistics
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.created = payment
	s.payment = payment
	return payment, nil
}

func (s *stubPaymentsRepo) FindPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if s.payment == nil || s.payment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.payment
	return &copied, nil
}

func (s *stubPaymentsRepo) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	if s.payment == nil || s.payment.GatewayPaymentID == nil || *s.payment.GatewayPaymentID != gatewayPaymentID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.payment
	return &copied, nil
}

func (s *stubPaymentsRepo) ListPayments(ctx context.Context, userID uuid.UUID, params pagination.Params, filters Filters) ([]models.Payment, int64, error) {
	return s.listRows, s.listTotal, nil
}

func (s *stubPaymentsRepo) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	if s.payment == nil || s.payment.ID != id {
		return nil
	}
	if v, ok := updates["gateway_payment_id"].(string); ok {
		s.payment.GatewayPaymentID = &v
	}
	if v, ok := updates["payment_url"].(string); ok {
		s.payment.PaymentURL = &v
	}
	if v, ok := updates["payment_data"].(types.AuditTrail); ok {
		s.payment.PaymentData = v
	}
	return nil
}

func (s *stubPaymentsRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	s.transitions = append(s.transitions, transitionCall{from: from, to: to, updates: updates})
	if s.denyTransition {
		return false, nil
	}
	if s.payment == nil || s.payment.ID != id || s.payment.Status != from {
		return false, nil
	}
	s.payment.Status = to
	return true, nil
}

func (s *stubPaymentsRepo) AggregateStatistics(ctx context.Context, userID uuid.UUID, filters Filters) (*Statistics, error) {
	return s.stats, nil
}

type stubOrderStore struct {
	order   *models.Order
	updates []map[string]any
}

func (s *stubOrderStore) WithTx(tx *gorm.DB) OrderStore { return s }

func (s *stubOrderStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrderStore) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	if s.order == nil || s.order.ID != id {
		return nil
	}
	if v, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = v
	}
	if v, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		s.order.PaymentStatus = v
	}
	return nil
}

func (s *stubOrderStore) lastUpdate() map[string]any {
	if len(s.updates) == 0 {
		return nil
	}
	return s.updates[len(s.updates)-1]
}

type stubGateway struct {
	createResult *doku.CreatePaymentResult
	createErr    error
	refund       *doku.RefundReceipt
	refundErr    error
	refundCalls  []string
}

func (s *stubGateway) CreatePayment(ctx context.Context, params doku.CreatePaymentParams) (*doku.CreatePaymentResult, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResult, nil
}

func (s *stubGateway) CreateRefund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal) (*doku.RefundReceipt, error) {
	s.refundCalls = append(s.refundCalls, gatewayPaymentID)
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	return s.refund, nil
}

func newTestCoordinator(t *testing.T, repo Repository, orderStore OrderStore, gw Gateway) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:           repo,
		Orders:         orderStore,
		Tx:             stubTxRunner{},
		Gateway:        gw,
		Logger:         logger.New(logger.Options{Output: io.Discard}),
		CallbackSecret: testCallbackSecret,
	})
	require.NoError(t, err)
	return svc
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func pendingOrder(userID uuid.UUID, total string) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		OrderNumber:   "ORD-1700000000000-0042",
		TotalAmount:   decimal.RequireFromString(total),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
	}
}

func signedCallback(t *testing.T, payload map[string]any) []byte {
	t.Helper()

	sig, err := doku.SignCallback(payload, testCallbackSecret)
	require.NoError(t, err)
	payload["signature"] = sig
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr, "expected coded error, got %v", err)
	assert.Equal(t, code, appErr.Code())
}

func TestCreatePaymentStoresRowAndInstructions(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, "200000")
	orderStore := &stubOrderStore{order: order}
	repo := &stubPaymentsRepo{}
	gw := &stubGateway{createResult: &doku.CreatePaymentResult{
		GatewayPaymentID: "doku-abc",
		PaymentURL:       "https://pay.example/abc",
		VANumber:         "8808123456",
		VAName:           "NIAGA",
		Raw:              types.JSONMap{"payment": map[string]any{"token_id": "doku-abc"}},
	}}

	svc := newTestCoordinator(t, repo, orderStore, gw)

	result, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodVirtualAccount,
		Amount:  decimal.RequireFromString("200000"),
		Customer: CustomerInput{
			Name:  "Dewi Lestari",
			Email: "dewi@example.com",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, repo.created)
	assert.Equal(t, enums.PaymentStatusPending, repo.created.Status)
	assert.True(t, repo.created.Amount.Equal(order.TotalAmount))
	require.NotNil(t, result.Payment.GatewayPaymentID)
	assert.Equal(t, "doku-abc", *result.Payment.GatewayPaymentID)
	require.NotNil(t, result.Instructions.VANumber)
	assert.Equal(t, "8808123456", *result.Instructions.VANumber)
	assert.Equal(t, enums.PaymentMethodVirtualAccount, orderStore.updates[0]["payment_method"])

	entry, ok := repo.created.PaymentData.Last("gateway")
	require.True(t, ok)
	assert.NotEmpty(t, entry.Payload)
}

func TestCreatePaymentAmountMustMatchOrderTotal(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, "200000")
	repo := &stubPaymentsRepo{}
	svc := newTestCoordinator(t, repo, &stubOrderStore{order: order}, &stubGateway{})

	for _, amount := range []string{"199999", "200000.01", "199999.99"} {
		_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
			UserID:  userID,
			OrderID: order.ID,
			Method:  enums.PaymentMethodQRIS,
			Amount:  decimal.RequireFromString(amount),
		})
		assertCode(t, err, pkgerrors.CodeValidation)
		assert.Nil(t, repo.created, "no payment row on amount mismatch")
	}
}

func TestCreatePaymentRejectsForeignOrder(t *testing.T) {
	order := pendingOrder(uuid.New(), "50000")
	svc := newTestCoordinator(t, &stubPaymentsRepo{}, &stubOrderStore{order: order}, &stubGateway{})

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		UserID:  uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodQRIS,
		Amount:  decimal.RequireFromString("50000"),
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreatePaymentRejectsNonPendingOrder(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, "50000")
	order.PaymentStatus = enums.PaymentStatusPaid
	svc := newTestCoordinator(t, &stubPaymentsRepo{}, &stubOrderStore{order: order}, &stubGateway{})

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodQRIS,
		Amount:  decimal.RequireFromString("50000"),
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreatePaymentSurvivesGatewayOutage(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, "75000")
	repo := &stubPaymentsRepo{}
	gw := &stubGateway{createErr: errors.New("connection refused")}
	svc := newTestCoordinator(t, repo, &stubOrderStore{order: order}, gw)

	result, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodEWallet,
		Amount:  decimal.RequireFromString("75000"),
	})
	require.NoError(t, err, "gateway outage must not fail creation")

	require.NotNil(t, repo.created)
	assert.Equal(t, enums.PaymentStatusPending, repo.created.Status)
	assert.Nil(t, result.Payment.GatewayPaymentID)
	assert.Empty(t, result.Instructions.PaymentURL)
}

func paidCallbackFixture(t *testing.T) (*stubPaymentsRepo, *stubOrderStore, []byte) {
	t.Helper()

	userID := uuid.New()
	order := pendingOrder(userID, "200000")
	gatewayID := "doku-abc"
	payment := &models.Payment{
		ID:               uuid.New(),
		OrderID:          order.ID,
		GatewayPaymentID: &gatewayID,
		Amount:           decimal.RequireFromString("200000"),
		Currency:         enums.CurrencyIDR,
		Method:           enums.PaymentMethodVirtualAccount,
		Status:           enums.PaymentStatusPending,
		Order:            order,
	}
	body := signedCallback(t, map[string]any{
		"paymentId":     gatewayID,
		"orderId":       order.ID.String(),
		"status":        "PAID",
		"transactionId": "trx-900",
		"amount":        json.Number("200000"),
	})
	return &stubPaymentsRepo{payment: payment}, &stubOrderStore{order: order}, body
}

func TestHandleCallbackPaidMovesOrderToProcessing(t *testing.T) {
	repo, orderStore, body := paidCallbackFixture(t)
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	result, err := svc.HandleCallback(context.Background(), body)
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Equal(t, enums.PaymentStatusPaid, result.Status)
	assert.Equal(t, enums.PaymentStatusPaid, repo.payment.Status)

	require.Len(t, repo.transitions, 1)
	assert.Equal(t, enums.PaymentStatusPending, repo.transitions[0].from)
	assert.Equal(t, enums.PaymentStatusPaid, repo.transitions[0].to)

	last := orderStore.lastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, enums.OrderStatusProcessing, last["status"])
	assert.Equal(t, enums.PaymentStatusPaid, last["payment_status"])
	assert.Equal(t, "doku-abc", last["payment_id"])
}

func TestHandleCallbackFailedCancelsOrder(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	body := signedCallback(t, map[string]any{
		"paymentId": *repo.payment.GatewayPaymentID,
		"status":    "FAILED",
	})
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	result, err := svc.HandleCallback(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusFailed, result.Status)
	last := orderStore.lastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, enums.OrderStatusCancelled, last["status"])
	assert.Equal(t, enums.PaymentStatusFailed, last["payment_status"])
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	repo, orderStore, body := paidCallbackFixture(t)
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	// Flip one byte inside the payload so the signature no longer matches.
	mutated := make([]byte, len(body))
	copy(mutated, body)
	mutated[len(mutated)/2] ^= 0x01

	_, err := svc.HandleCallback(context.Background(), mutated)
	assertCode(t, err, pkgerrors.CodeSignature)
	assert.Empty(t, repo.transitions)
}

func TestHandleCallbackDuplicateIsNoOp(t *testing.T) {
	repo, orderStore, body := paidCallbackFixture(t)
	repo.payment.Status = enums.PaymentStatusPaid

	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	result, err := svc.HandleCallback(context.Background(), body)
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.Empty(t, repo.transitions, "duplicate must not re-transition")
	assert.Empty(t, orderStore.updates, "duplicate must not touch the order")

	entry, ok := repo.payment.PaymentData.Last("callback")
	require.True(t, ok, "duplicate payload still lands in the audit trail")
	assert.Equal(t, "PAID", entry.Payload["status"])
}

func TestHandleCallbackConflictingTerminalStatus(t *testing.T) {
	repo, orderStore, body := paidCallbackFixture(t)
	repo.payment.Status = enums.PaymentStatusFailed

	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.HandleCallback(context.Background(), body)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, repo.transitions)
}

func TestHandleCallbackAmountMismatch(t *testing.T) {
	for _, amount := range []string{"150000", "200000.01"} {
		repo, orderStore, _ := paidCallbackFixture(t)
		body := signedCallback(t, map[string]any{
			"paymentId": *repo.payment.GatewayPaymentID,
			"status":    "PAID",
			"amount":    json.Number(amount),
		})
		svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

		_, err := svc.HandleCallback(context.Background(), body)
		assertCode(t, err, pkgerrors.CodeValidation)
		assert.Empty(t, repo.transitions)
	}
}

func TestHandleCallbackUnknownPayment(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	body := signedCallback(t, map[string]any{
		"paymentId": "doku-nobody",
		"status":    "PAID",
	})
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.HandleCallback(context.Background(), body)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestHandleCallbackLostRace(t *testing.T) {
	repo, orderStore, body := paidCallbackFixture(t)
	repo.denyTransition = true

	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.HandleCallback(context.Background(), body)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, orderStore.updates)
}

func TestRefundRequiresPaidStatus(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	userID := orderStore.order.UserID
	gw := &stubGateway{}
	svc := newTestCoordinator(t, repo, orderStore, gw)

	_, err := svc.Refund(context.Background(), RefundInput{
		UserID:    userID,
		PaymentID: repo.payment.ID,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, gw.refundCalls)
}

func TestRefundGatewayFailureLeavesStateUntouched(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	repo.payment.Status = enums.PaymentStatusPaid
	gw := &stubGateway{refundErr: errors.New("gateway 500")}
	svc := newTestCoordinator(t, repo, orderStore, gw)

	_, err := svc.Refund(context.Background(), RefundInput{
		UserID:    orderStore.order.UserID,
		PaymentID: repo.payment.ID,
	})
	assertCode(t, err, pkgerrors.CodeDependency)
	assert.Equal(t, enums.PaymentStatusPaid, repo.payment.Status)
	assert.Empty(t, repo.transitions)
	assert.Empty(t, orderStore.updates)
}

func TestRefundCancelsOrderAndRecordsReceipt(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	repo.payment.Status = enums.PaymentStatusPaid
	reason := "customer request"
	gw := &stubGateway{refund: &doku.RefundReceipt{
		RefundID: "rf-1",
		Status:   "SUCCESS",
		Raw:      types.JSONMap{"refund": map[string]any{"id": "rf-1"}},
	}}
	svc := newTestCoordinator(t, repo, orderStore, gw)

	result, err := svc.Refund(context.Background(), RefundInput{
		UserID:    orderStore.order.UserID,
		PaymentID: repo.payment.ID,
		Reason:    &reason,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusRefunded, result.Status)
	assert.True(t, result.RefundAmount.Equal(repo.payment.Amount))
	assert.Equal(t, []string{"doku-abc"}, gw.refundCalls)
	assert.Equal(t, enums.PaymentStatusRefunded, repo.payment.Status)

	last := orderStore.lastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, enums.OrderStatusCancelled, last["status"])
	assert.Equal(t, enums.PaymentStatusRefunded, last["payment_status"])
}

func TestRefundRejectsExcessiveAmount(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	repo.payment.Status = enums.PaymentStatusPaid
	over := repo.payment.Amount.Add(decimal.NewFromInt(1))
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.Refund(context.Background(), RefundInput{
		UserID:    orderStore.order.UserID,
		PaymentID: repo.payment.ID,
		Amount:    &over,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateStatusManualPaid(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	trx := "trx-manual"
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	payment, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		UserID:        orderStore.order.UserID,
		PaymentID:     repo.payment.ID,
		Status:        enums.PaymentStatusPaid,
		TransactionID: &trx,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusPaid, payment.Status)
	entry, ok := payment.PaymentData.Last("manual")
	require.True(t, ok)
	assert.Equal(t, "PAID", entry.Payload["status"])

	last := orderStore.lastUpdate()
	require.NotNil(t, last)
	assert.Equal(t, enums.OrderStatusProcessing, last["status"])
}

func TestUpdateStatusRejectsRefundShortcut(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		UserID:    orderStore.order.UserID,
		PaymentID: repo.payment.ID,
		Status:    enums.PaymentStatusRefunded,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestGetPaymentHidesForeignRows(t *testing.T) {
	repo, orderStore, _ := paidCallbackFixture(t)
	svc := newTestCoordinator(t, repo, orderStore, &stubGateway{})

	_, err := svc.GetPayment(context.Background(), uuid.New(), repo.payment.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	payment, err := svc.GetPayment(context.Background(), orderStore.order.UserID, repo.payment.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.payment.ID, payment.ID)
}

func TestFullLifecyclePaidThenRefunded(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, "200000")
	orderStore := &stubOrderStore{order: order}
	repo := &stubPaymentsRepo{}
	gw := &stubGateway{
		createResult: &doku.CreatePaymentResult{
			GatewayPaymentID: "doku-life",
			PaymentURL:       "https://pay.example/life",
			VANumber:         "8808000011",
		},
		refund: &doku.RefundReceipt{RefundID: "rf-9", Status: "SUCCESS"},
	}
	svc := newTestCoordinator(t, repo, orderStore, gw)

	created, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		UserID:  userID,
		OrderID: order.ID,
		Method:  enums.PaymentMethodVirtualAccount,
		Amount:  decimal.RequireFromString("200000"),
	})
	require.NoError(t, err)
	require.NotNil(t, created.Payment.GatewayPaymentID)

	body := signedCallback(t, map[string]any{
		"paymentId": "doku-life",
		"status":    "PAID",
		"amount":    json.Number("200000"),
	})
	first, err := svc.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)

	second, err := svc.HandleCallback(context.Background(), body)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	refunded, err := svc.Refund(context.Background(), RefundInput{
		UserID:    userID,
		PaymentID: repo.payment.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, order.PaymentStatus)
}
