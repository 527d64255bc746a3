package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

type EmailMessage struct {
	IdempotencyKey string            `json:"idempotency_key"`
	To             string            `json:"to"`
	Subject        string            `json:"subject"`
	Template       string            `json:"template"`
	Variables      map[string]string `json:"variables"`
}

type PushNotification struct {
	IdempotencyKey string `json:"idempotency_key"`
	Recipient      string `json:"recipient"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// EmailClient talks to the transactional email service. The service
// deduplicates on the idempotency key, so redelivered events do not
// produce duplicate mail.
type EmailClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewEmailClient(baseURL string) *EmailClient {
	return &EmailClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) error {
	return postJSON(ctx, c.httpClient, c.baseURL+"/emails", msg)
}

type PushClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPushClient(baseURL string) *PushClient {
	return &PushClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *PushClient) Send(ctx context.Context, note PushNotification) error {
	return postJSON(ctx, c.httpClient, c.baseURL+"/notifications", note)
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %v", resp.StatusCode)
	}

	return nil
}
