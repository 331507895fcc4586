package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prasetyadi/niaga-backend/pkg/db/models"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

// CustomerInput identifies the paying party on a new payment.
type CustomerInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty"`
}

// CreatePaymentInput captures the data required to open a payment attempt.
type CreatePaymentInput struct {
	UserID        uuid.UUID           `json:"-"`
	OrderID       uuid.UUID           `json:"orderId" validate:"required"`
	Method        enums.PaymentMethod `json:"paymentMethod" validate:"required"`
	Amount        decimal.Decimal     `json:"amount" validate:"required"`
	Currency      *enums.Currency     `json:"currency,omitempty"`
	Customer      CustomerInput       `json:"customerDetails"`
	ExpiryMinutes int                 `json:"expiryMinutes,omitempty"`
	CallbackURL   string              `json:"callbackUrl,omitempty"`
	ReturnURL     string              `json:"returnUrl,omitempty"`
}

// Instructions carries the method-specific fields the customer needs to pay.
type Instructions struct {
	PaymentURL  string  `json:"paymentUrl,omitempty"`
	VANumber    *string `json:"vaNumber,omitempty"`
	VAName      *string `json:"vaName,omitempty"`
	QRCode      *string `json:"qrCode,omitempty"`
	RedirectURL *string `json:"redirectUrl,omitempty"`
}

// CreatePaymentResult is the coordinator's answer to a create request.
type CreatePaymentResult struct {
	Payment      *models.Payment `json:"payment"`
	Instructions Instructions    `json:"instructions"`
}

// CallbackPayload is the JSON body the gateway posts to the callback route.
type CallbackPayload struct {
	PaymentID     string           `json:"paymentId"`
	OrderID       string           `json:"orderId"`
	Status        string           `json:"status"`
	TransactionID *string          `json:"transactionId,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty"`
	PaymentDate   *string          `json:"paymentDate,omitempty"`
	Signature     string           `json:"signature"`
	RawResponse   types.JSONMap    `json:"rawResponse,omitempty"`
}

// CallbackResult reports what a processed callback did.
type CallbackResult struct {
	PaymentID     uuid.UUID           `json:"paymentId"`
	OrderID       uuid.UUID           `json:"orderId"`
	Status        enums.PaymentStatus `json:"status"`
	TransactionID *string             `json:"transactionId,omitempty"`
	Duplicate     bool                `json:"-"`
}

// UpdateStatusInput is the authenticated manual-override path.
type UpdateStatusInput struct {
	UserID        uuid.UUID           `json:"-"`
	PaymentID     uuid.UUID           `json:"-"`
	Status        enums.PaymentStatus `json:"status" validate:"required"`
	TransactionID *string             `json:"transactionId,omitempty"`
	FailureReason *string             `json:"failureReason,omitempty"`
}

// RefundInput captures an owner-initiated refund request.
type RefundInput struct {
	UserID    uuid.UUID        `json:"-"`
	PaymentID uuid.UUID        `json:"-"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Reason    *string          `json:"reason,omitempty"`
}

// RefundResult is returned once the gateway confirmed the refund.
type RefundResult struct {
	PaymentID    uuid.UUID           `json:"paymentId"`
	OrderID      uuid.UUID           `json:"orderId"`
	Status       enums.PaymentStatus `json:"status"`
	RefundAmount decimal.Decimal     `json:"refundAmount"`
}

// Filters describe the inputs supported by the payments list and statistics.
type Filters struct {
	Status   *enums.PaymentStatus
	Method   *enums.PaymentMethod
	DateFrom *time.Time
	DateTo   *time.Time
}

// PaymentList wraps paginated payments plus pagination metadata.
type PaymentList struct {
	Payments   []models.Payment `json:"payments"`
	Pagination types.Pagination `json:"pagination"`
}

// StatusBreakdown aggregates one status bucket.
type StatusBreakdown struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Statistics is the fresh (never cached) aggregation over a user's payments.
type Statistics struct {
	TotalCount    int64                                   `json:"totalCount"`
	TotalAmount   decimal.Decimal                         `json:"totalAmount"`
	AverageAmount decimal.Decimal                         `json:"averageAmount"`
	ByStatus      map[enums.PaymentStatus]StatusBreakdown `json:"byStatus"`
}
