// Package phonepe adapts the PhonePe payment API onto the canonical
// gateway interface. Requests carry a base64-encoded JSON payload signed
// with the X-VERIFY checksum scheme (sha256 over payload + path + salt,
// formatted as "<hash>###<saltIndex>").
package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
	"ticketing/internal/gateway/checksum"
)

const (
	ProviderName = "phonepe"

	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
	refundPath = "/pg/v1/refund"

	verifyHeader = "X-VERIFY"
)

type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	MerchantID string        `json:"merchant_id" mapstructure:"merchant_id"`
	SaltKey    string        `json:"salt_key" mapstructure:"salt_key"`
	SaltIndex  int           `json:"salt_index" mapstructure:"salt_index"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
}

type Client struct {
	baseURL    string
	merchantID string
	saltKey    string
	saltIndex  int

	hc *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.MerchantID == "" || cfg.SaltKey == "" {
		return nil, gateway.ErrMisconfigured
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		saltKey:    cfg.SaltKey,
		saltIndex:  cfg.SaltIndex,
		hc:         &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Provider() string {
	return ProviderName
}

func (c *Client) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	payload := payRequest{
		MerchantId:            c.merchantID,
		MerchantTransactionId: req.OrderId,
		MerchantUserId:        req.Customer.Email,
		Amount:                toMinorUnits(req.Amount),
		RedirectUrl:           req.ReturnURL,
		RedirectMode:          "REDIRECT",
		CallbackUrl:           req.ReturnURL,
		MobileNumber:          req.Customer.Phone,
	}
	payload.PaymentInstrument.Type = "PAY_PAGE"

	rawRequest, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal pay request: %w", err)
	}

	var resp apiResponse
	rawResponse, err := c.post(ctx, payPath, rawRequest, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, &gateway.RejectedError{Provider: ProviderName, Code: resp.Code, Message: resp.Message}
	}

	return &gateway.InitiateResponse{
		ProviderOrderId: resp.Data.MerchantTransactionId,
		RedirectURL:     resp.Data.InstrumentResponse.RedirectInfo.Url,
		RawRequest:      rawRequest,
		RawResponse:     rawResponse,
	}, nil
}

func (c *Client) CheckStatus(ctx context.Context, providerOrderId string) (payments.Status, error) {
	path := fmt.Sprintf("%s/%s/%s", statusPath, c.merchantID, providerOrderId)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-MERCHANT-ID", c.merchantID)
	httpReq.Header.Set(verifyHeader, checksum.Sign(path, c.saltKey, c.saltIndex))

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", gateway.WrapTransportError(ProviderName, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", gateway.WrapTransportError(ProviderName, err)
	}

	if httpResp.StatusCode == http.StatusNotFound {
		return "", gateway.ErrOrderNotFound
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}

	return mapStatus(resp.Code), nil
}

func (c *Client) Refund(ctx context.Context, providerOrderId string, amount decimal.Decimal, reason string) (*gateway.RefundResponse, error) {
	if !amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	payload := refundRequest{
		MerchantId:            c.merchantID,
		MerchantTransactionId: fmt.Sprintf("refund-%s-%d", providerOrderId, time.Now().Unix()),
		OriginalTransactionId: providerOrderId,
		Amount:                toMinorUnits(amount),
	}

	rawRequest, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal refund request: %w", err)
	}

	var resp refundResponse
	rawResponse, err := c.post(ctx, refundPath, rawRequest, &resp)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, &gateway.RejectedError{Provider: ProviderName, Code: resp.Code, Message: resp.Message}
	}

	status := payments.RefundStatusPending
	if resp.Data.State == "COMPLETED" {
		status = payments.RefundStatusCompleted
	}

	return &gateway.RefundResponse{
		ProviderRefundId: resp.Data.TransactionId,
		Status:           status,
		RawResponse:      rawResponse,
	}, nil
}

func (c *Client) VerifyInboundSignature(payload []byte, headers map[string]string) bool {
	provided := headers[verifyHeader]
	if provided == "" {
		provided = headers["x-verify"]
	}
	if provided == "" {
		return false
	}

	var body callbackBody
	if err := json.Unmarshal(payload, &body); err != nil || body.Response == "" {
		return false
	}

	return checksum.Verify(body.Response, c.saltKey, c.saltIndex, provided)
}

func (c *Client) WebhookOutcome(payload []byte) (string, payments.Status, error) {
	var body callbackBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", "", fmt.Errorf("decode callback envelope: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Response)
	if err != nil {
		return "", "", fmt.Errorf("decode callback payload: %w", err)
	}

	var cb callbackPayload
	if err := json.Unmarshal(decoded, &cb); err != nil {
		return "", "", fmt.Errorf("decode callback payload: %w", err)
	}

	return cb.Data.MerchantTransactionId, mapStatus(cb.Code), nil
}

// post sends a signed base64 envelope and returns the raw response body.
func (c *Client) post(ctx context.Context, path string, rawRequest []byte, out any) ([]byte, error) {
	encoded := base64.StdEncoding.EncodeToString(rawRequest)

	body, err := json.Marshal(envelope{Request: encoded})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(verifyHeader, checksum.Sign(encoded+path, c.saltKey, c.saltIndex))

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, gateway.WrapTransportError(ProviderName, err)
	}
	defer httpResp.Body.Close()

	rawResponse, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, gateway.WrapTransportError(ProviderName, err)
	}

	if err := json.Unmarshal(rawResponse, out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}

	return rawResponse, nil
}

// mapStatus folds PhonePe's status vocabulary onto the canonical set.
func mapStatus(code string) payments.Status {
	switch code {
	case "PAYMENT_SUCCESS", "COMPLETED":
		return payments.StatusSuccess
	case "PAYMENT_PENDING", "PAYMENT_INITIATED", "PENDING":
		return payments.StatusPending
	default:
		// PAYMENT_ERROR, PAYMENT_DECLINED, TIMED_OUT, INTERNAL_SERVER_ERROR
		return payments.StatusFailed
	}
}

// toMinorUnits converts a decimal major-unit amount to paise.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
