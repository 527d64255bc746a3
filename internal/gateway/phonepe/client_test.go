package phonepe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/domain/payments"
	"ticketing/internal/gateway"
	"ticketing/internal/gateway/checksum"
)

const testSalt = "test-salt"

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:    srv.URL,
		MerchantID: "MERCHANT",
		SaltKey:    testSalt,
		SaltIndex:  1,
		Timeout:    2 * time.Second,
	})
	require.NoError(t, err)

	return client, srv
}

func initiateRequest() gateway.InitiateRequest {
	bookingID := uuid.New()
	return gateway.InitiateRequest{
		BookingId: bookingID,
		OrderId:   bookingID.String() + "-1",
		Amount:    decimal.RequireFromString("1299.00"),
		Currency:  "INR",
		Customer:  gateway.Customer{Name: "A Rao", Email: "a@example.com", Phone: "9999999999"},
		ReturnURL: "https://app.example.com/payments/return",
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "https://api"})
	require.ErrorIs(t, err, gateway.ErrMisconfigured)
}

func TestInitiate_Success(t *testing.T) {
	var gotVerify string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, payPath, r.URL.Path)
		gotVerify = r.Header.Get(verifyHeader)

		var env envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))

		// the signature must cover base64 payload + path + salt
		assert.True(t, checksum.Verify(env.Request+payPath, testSalt, 1, gotVerify))

		decoded, err := base64.StdEncoding.DecodeString(env.Request)
		require.NoError(t, err)
		var pay payRequest
		require.NoError(t, json.Unmarshal(decoded, &pay))
		assert.Equal(t, int64(129900), pay.Amount)

		resp := apiResponse{Success: true, Code: "PAYMENT_INITIATED"}
		resp.Data.MerchantTransactionId = pay.MerchantTransactionId
		resp.Data.InstrumentResponse.RedirectInfo.Url = "https://pay.example.com/tx/1"
		_ = json.NewEncoder(w).Encode(resp)
	}))

	req := initiateRequest()
	resp, err := client.Initiate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.OrderId, resp.ProviderOrderId)
	assert.Equal(t, "https://pay.example.com/tx/1", resp.RedirectURL)
	assert.NotEmpty(t, gotVerify)
	assert.NotEmpty(t, resp.RawRequest)
	assert.NotEmpty(t, resp.RawResponse)
}

func TestInitiate_Rejected(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Code: "KEY_NOT_CONFIGURED", Message: "merchant key missing"})
	}))

	_, err := client.Initiate(context.Background(), initiateRequest())

	var rejectedErr *gateway.RejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, "KEY_NOT_CONFIGURED", rejectedErr.Code)
	assert.Contains(t, rejectedErr.Message, "merchant key missing")
}

func TestInitiate_TimeoutIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))

	_, err := client.Initiate(context.Background(), initiateRequest())
	require.ErrorIs(t, err, gateway.ErrTimeout)

	var rejectedErr *gateway.RejectedError
	assert.False(t, errors.As(err, &rejectedErr), "timeout must not look like a rejection")
}

func TestInitiate_InvalidAmount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	req := initiateRequest()
	req.Amount = decimal.Zero
	_, err := client.Initiate(context.Background(), req)
	require.ErrorIs(t, err, gateway.ErrInvalidAmount)
}

func TestCheckStatus_Mapping(t *testing.T) {
	testCases := []struct {
		code string
		want payments.Status
	}{
		{"PAYMENT_SUCCESS", payments.StatusSuccess},
		{"PAYMENT_PENDING", payments.StatusPending},
		{"PAYMENT_INITIATED", payments.StatusPending},
		{"PAYMENT_ERROR", payments.StatusFailed},
		{"PAYMENT_DECLINED", payments.StatusFailed},
		{"TIMED_OUT", payments.StatusFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				expectedPath := fmt.Sprintf("%s/MERCHANT/order-1", statusPath)
				require.Equal(t, expectedPath, r.URL.Path)
				assert.True(t, checksum.Verify(expectedPath, testSalt, 1, r.Header.Get(verifyHeader)))

				_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Code: tc.code})
			}))

			status, err := client.CheckStatus(context.Background(), "order-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestRefund_Success(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, refundPath, r.URL.Path)

		resp := refundResponse{Success: true, Code: "PAYMENT_SUCCESS"}
		resp.Data.TransactionId = "R123"
		resp.Data.State = "COMPLETED"
		_ = json.NewEncoder(w).Encode(resp)
	}))

	resp, err := client.Refund(context.Background(), "order-1", decimal.RequireFromString("100.00"), "customer cancelled")
	require.NoError(t, err)
	assert.Equal(t, "R123", resp.ProviderRefundId)
	assert.Equal(t, payments.RefundStatusCompleted, resp.Status)
}

func TestVerifyInboundSignature(t *testing.T) {
	client, err := New(Config{BaseURL: "https://api", MerchantID: "MERCHANT", SaltKey: testSalt, SaltIndex: 1})
	require.NoError(t, err)

	inner, _ := json.Marshal(callbackPayload{Code: "PAYMENT_SUCCESS"})
	encoded := base64.StdEncoding.EncodeToString(inner)
	payload, _ := json.Marshal(callbackBody{Response: encoded})

	headers := map[string]string{
		verifyHeader: checksum.Sign(encoded, testSalt, 1),
	}
	assert.True(t, client.VerifyInboundSignature(payload, headers))

	headers[verifyHeader] = checksum.Sign(encoded+"x", testSalt, 1)
	assert.False(t, client.VerifyInboundSignature(payload, headers))

	assert.False(t, client.VerifyInboundSignature(payload, map[string]string{}))
}

func TestWebhookOutcome(t *testing.T) {
	var cb callbackPayload
	cb.Code = "PAYMENT_SUCCESS"
	cb.Data.MerchantTransactionId = "order-77"
	inner, _ := json.Marshal(cb)
	payload, _ := json.Marshal(callbackBody{Response: base64.StdEncoding.EncodeToString(inner)})

	client, err := New(Config{BaseURL: "https://api", MerchantID: "MERCHANT", SaltKey: testSalt, SaltIndex: 1})
	require.NoError(t, err)

	orderID, status, err := client.WebhookOutcome(payload)
	require.NoError(t, err)
	assert.Equal(t, "order-77", orderID)
	assert.Equal(t, payments.StatusSuccess, status)
}
