package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storefront-service/internal/domain"
)

type PaymentClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPaymentClient(baseURL, apiKey string, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type paymentResponse struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
}

func (c *PaymentClient) Authorize(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey(req.OrderID))
	c.authorizeRequest(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// 402 and 422 are explicit declines; anything else non-2xx leaves the outcome unknown
	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity {
		return domain.PaymentFailed, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	return decodeStatus(resp)
}

// Lookup fetches the payment recorded under the order's idempotency key.
func (c *PaymentClient) Lookup(ctx context.Context, orderID uint64) (domain.PaymentStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+idempotencyKey(orderID), nil)
	if err != nil {
		return "", err
	}
	c.authorizeRequest(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// the gateway never saw the payment, so nothing was charged
	if resp.StatusCode == http.StatusNotFound {
		return domain.PaymentFailed, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}
	return decodeStatus(resp)
}

func (c *PaymentClient) authorizeRequest(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func idempotencyKey(orderID uint64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func decodeStatus(resp *http.Response) (domain.PaymentStatus, error) {
	var out paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode payment response: %w", err)
	}
	switch domain.PaymentStatus(out.Status) {
	case domain.PaymentCompleted:
		return domain.PaymentCompleted, nil
	case domain.PaymentFailed:
		return domain.PaymentFailed, nil
	case domain.PaymentPending:
		return domain.PaymentPending, nil
	}
	return "", fmt.Errorf("payment gateway returned unknown status %q", out.Status)
}

// StubGateway stands in for a real processor in development: cards settle
// immediately, mobile money waits for a callback.
type StubGateway struct{}

func (StubGateway) Authorize(ctx context.Context, req PaymentRequest) (domain.PaymentStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch req.Method {
	case domain.MethodCard:
		return domain.PaymentCompleted, nil
	case domain.MethodMpesa:
		return domain.PaymentPending, nil
	}
	return domain.PaymentFailed, nil
}

// Lookup reports every unresolved stub payment as abandoned.
func (StubGateway) Lookup(ctx context.Context, _ uint64) (domain.PaymentStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return domain.PaymentFailed, nil
}
