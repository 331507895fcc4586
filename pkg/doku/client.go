package doku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prasetyadi/niaga-backend/pkg/config"
	"github.com/prasetyadi/niaga-backend/pkg/enums"
	pkgerrors "github.com/prasetyadi/niaga-backend/pkg/errors"
	"github.com/prasetyadi/niaga-backend/pkg/types"
)

const (
	defaultBaseURL             = "https://api-sandbox.doku.com"
	checkoutPath               = "/checkout/v1/payment"
	refundPath                 = "/orders/v1/refund"
	responseBodyReadLimit int64 = 4096

	headerClientID  = "Client-Id"
	headerRequestID = "Request-Id"
	headerTimestamp = "Request-Timestamp"
	headerSignature = "Signature"
)

var (
	errClientIDRequired  = errors.New("doku client id is required")
	errSecretKeyRequired = errors.New("doku secret key is required")
)

// Client wraps the DOKU checkout and refund APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secretKey  string
	now        func() time.Time
	requestID  func() string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the timestamp source used for request signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.DokuConfig, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		clientID:   clientID,
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		requestID:  uuid.NewString,
	}
	if trimmed := strings.TrimSpace(cfg.BaseURL); trimmed != "" {
		client.baseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Customer identifies the paying party on the checkout request.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CreatePaymentParams describes a checkout session to open at the gateway.
type CreatePaymentParams struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Currency      enums.Currency
	Method        enums.PaymentMethod
	Customer      Customer
	ExpirySeconds int64
	CallbackURL   string
	ReturnURL     string
}

// CreatePaymentResult is the normalized checkout response.
type CreatePaymentResult struct {
	GatewayPaymentID string
	PaymentURL       string
	VANumber         string
	VAName           string
	QRCode           string
	ExpiredDate      string
	Raw              types.JSONMap
}

// RefundReceipt is the normalized refund response.
type RefundReceipt struct {
	RefundID string
	Status   string
	Raw      types.JSONMap
}

// CreatePayment opens a checkout session and returns the gateway token plus
// any method-specific payment instructions present in the response.
func (c *Client) CreatePayment(ctx context.Context, params CreatePaymentParams) (*CreatePaymentResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "doku client not configured")
	}
	if strings.TrimSpace(params.InvoiceNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	expiry := params.ExpirySeconds
	if expiry <= 0 {
		expiry = int64((24 * time.Hour).Seconds())
	}

	body := map[string]any{
		"order": map[string]any{
			"invoice_number": params.InvoiceNumber,
			"amount":         json.Number(params.Amount.String()),
			"currency":       params.Currency.String(),
		},
		"payment": map[string]any{
			"payment_due_date": expiry,
		},
		"payment_method_types": params.Method.GatewayTypes(),
		"customer": map[string]any{
			"name":  params.Customer.Name,
			"email": params.Customer.Email,
			"phone": params.Customer.Phone,
		},
	}
	extra := map[string]any{}
	if params.CallbackURL != "" {
		extra["callback_url"] = params.CallbackURL
	}
	if params.ReturnURL != "" {
		extra["return_url"] = params.ReturnURL
	}
	if len(extra) > 0 {
		body["additional_info"] = extra
	}

	raw, err := c.do(ctx, checkoutPath, body)
	if err != nil {
		return nil, err
	}

	result := &CreatePaymentResult{Raw: raw}
	if payment, ok := raw["payment"].(map[string]any); ok {
		result.GatewayPaymentID = stringField(payment, "token_id")
		result.PaymentURL = stringField(payment, "url")
		result.ExpiredDate = stringField(payment, "expired_date")
	}
	if va, ok := raw["virtual_account_info"].(map[string]any); ok {
		result.VANumber = stringField(va, "virtual_account_number")
		result.VAName = stringField(va, "virtual_account_name")
	}
	if qr, ok := raw["qris_info"].(map[string]any); ok {
		result.QRCode = stringField(qr, "qr_content")
	}
	if result.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing payment token")
	}

	return result, nil
}

// CreateRefund asks the gateway to return funds for a settled payment.
func (c *Client) CreateRefund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal) (*RefundReceipt, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "doku client not configured")
	}
	if strings.TrimSpace(gatewayPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway payment id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	body := map[string]any{
		"payment": map[string]any{
			"id": gatewayPaymentID,
		},
		"order": map[string]any{
			"amount": json.Number(amount.String()),
		},
	}

	raw, err := c.do(ctx, refundPath, body)
	if err != nil {
		return nil, err
	}

	receipt := &RefundReceipt{Raw: raw}
	if refund, ok := raw["refund"].(map[string]any); ok {
		receipt.RefundID = stringField(refund, "id")
		receipt.Status = stringField(refund, "status")
	}

	return receipt, nil
}

// do signs and executes a POST against the gateway, returning the decoded
// response body.
func (c *Client) do(ctx context.Context, path string, body map[string]any) (types.JSONMap, error) {
	payload, err := Canonicalize(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "encode gateway request")
	}

	requestID := c.requestID()
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signature := SignRequest(c.secretKey, c.clientID, requestID, timestamp, payload)

	url := strings.TrimRight(c.baseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerClientID, c.clientID)
	httpReq.Header.Set(headerRequestID, requestID)
	httpReq.Header.Set(headerTimestamp, timestamp)
	httpReq.Header.Set(headerSignature, "HMACSHA256="+signature)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
	}

	var decoded types.JSONMap
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}

	return decoded, nil
}

func stringField(m map[string]any, key string) string {
	value, _ := m[key].(string)
	return value
}
