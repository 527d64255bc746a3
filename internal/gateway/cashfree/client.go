// Package cashfree adapts the Cashfree PG API onto the canonical gateway
// interface. Outbound calls authenticate with client id/secret headers;
// inbound webhooks are authenticated by an HMAC-SHA256 signature over
// timestamp + raw body.
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
	"ticketing/internal/gateway/checksum"
)

const (
	ProviderName = "cashfree"

	apiVersion = "2022-09-01"

	signatureHeader = "x-webhook-signature"
	timestampHeader = "x-webhook-timestamp"
)

type Config struct {
	BaseURL       string        `json:"base_url" mapstructure:"base_url"`
	ClientID      string        `json:"client_id" mapstructure:"client_id"`
	ClientSecret  string        `json:"client_secret" mapstructure:"client_secret"`
	WebhookSecret string        `json:"webhook_secret" mapstructure:"webhook_secret"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	baseURL       string
	clientID      string
	clientSecret  string
	webhookSecret string

	hc *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, gateway.ErrMisconfigured
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:       cfg.BaseURL,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		webhookSecret: cfg.WebhookSecret,
		hc:            &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Provider() string {
	return ProviderName
}

func (c *Client) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	payload := createOrderRequest{
		OrderId:       req.OrderId,
		OrderAmount:   req.Amount.StringFixed(2),
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerId:    req.BookingId.String(),
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: orderMeta{ReturnUrl: req.ReturnURL},
	}

	rawRequest, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	rawResponse, statusCode, err := c.do(ctx, http.MethodPost, "/pg/orders", rawRequest)
	if err != nil {
		return nil, err
	}

	if statusCode >= 400 {
		return nil, rejected(rawResponse)
	}

	var resp orderResponse
	if err := json.Unmarshal(rawResponse, &resp); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	redirectURL := resp.PaymentLink
	if redirectURL == "" {
		redirectURL = fmt.Sprintf("%s/pg/view/%s", c.baseURL, resp.PaymentSessionId)
	}

	return &gateway.InitiateResponse{
		ProviderOrderId: resp.OrderId,
		RedirectURL:     redirectURL,
		RawRequest:      rawRequest,
		RawResponse:     rawResponse,
	}, nil
}

func (c *Client) CheckStatus(ctx context.Context, providerOrderId string) (payments.Status, error) {
	rawResponse, statusCode, err := c.do(ctx, http.MethodGet, "/pg/orders/"+providerOrderId, nil)
	if err != nil {
		return "", err
	}

	if statusCode == http.StatusNotFound {
		return "", gateway.ErrOrderNotFound
	}
	if statusCode >= 400 {
		return "", rejected(rawResponse)
	}

	var resp orderResponse
	if err := json.Unmarshal(rawResponse, &resp); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}

	return mapOrderStatus(resp.OrderStatus), nil
}

func (c *Client) Refund(ctx context.Context, providerOrderId string, amount decimal.Decimal, reason string) (*gateway.RefundResponse, error) {
	if !amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	payload := refundRequest{
		RefundAmount: amount.StringFixed(2),
		RefundId:     uuid.NewString(),
		RefundNote:   reason,
	}

	rawRequest, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal refund request: %w", err)
	}

	rawResponse, statusCode, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/pg/orders/%s/refunds", providerOrderId), rawRequest)
	if err != nil {
		return nil, err
	}

	if statusCode >= 400 {
		return nil, rejected(rawResponse)
	}

	var resp refundResponse
	if err := json.Unmarshal(rawResponse, &resp); err != nil {
		return nil, fmt.Errorf("decode refund response: %w", err)
	}

	return &gateway.RefundResponse{
		ProviderRefundId: resp.CfRefundId,
		Status:           mapRefundStatus(resp.RefundStatus),
		RawResponse:      rawResponse,
	}, nil
}

func (c *Client) VerifyInboundSignature(payload []byte, headers map[string]string) bool {
	provided := headers[signatureHeader]
	timestamp := headers[timestampHeader]
	if provided == "" || timestamp == "" || c.webhookSecret == "" {
		return false
	}

	signed := append([]byte(timestamp), payload...)
	return checksum.VerifyHmacSHA256(signed, []byte(c.webhookSecret), provided)
}

func (c *Client) WebhookOutcome(payload []byte) (string, payments.Status, error) {
	var wh webhookPayload
	if err := json.Unmarshal(payload, &wh); err != nil {
		return "", "", fmt.Errorf("decode webhook payload: %w", err)
	}

	return wh.Data.Order.OrderId, mapPaymentStatus(wh.Data.Payment.PaymentStatus), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-version", apiVersion)
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-client-secret", c.clientSecret)

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, 0, gateway.WrapTransportError(ProviderName, err)
	}
	defer httpResp.Body.Close()

	rawResponse, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, gateway.WrapTransportError(ProviderName, err)
	}

	return rawResponse, httpResp.StatusCode, nil
}

func rejected(rawResponse []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(rawResponse, &apiErr)

	return &gateway.RejectedError{
		Provider: ProviderName,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
	}
}

func mapOrderStatus(status string) payments.Status {
	switch status {
	case "PAID":
		return payments.StatusSuccess
	case "ACTIVE":
		return payments.StatusPending
	default:
		// EXPIRED, TERMINATED, TERMINATION_REQUESTED
		return payments.StatusFailed
	}
}

func mapPaymentStatus(status string) payments.Status {
	switch status {
	case "SUCCESS":
		return payments.StatusSuccess
	case "PENDING", "NOT_ATTEMPTED":
		return payments.StatusPending
	default:
		// FAILED, USER_DROPPED, CANCELLED, VOID
		return payments.StatusFailed
	}
}

func mapRefundStatus(status string) payments.RefundStatus {
	switch status {
	case "SUCCESS":
		return payments.RefundStatusCompleted
	case "PENDING", "ONHOLD":
		return payments.RefundStatusPending
	default:
		return payments.RefundStatusFailed
	}
}
