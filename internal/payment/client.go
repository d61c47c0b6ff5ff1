package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the processor's payment-intents REST API.  The API is
// form-encoded on the way in and JSON on the way out, authenticated
// with a bearer secret key.  The HTTP client carries a hard timeout so
// no core operation can block indefinitely on the processor.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClient returns a Client for the given API base URL (e.g.
// "https://api.stripe.com") and secret key.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateIntent creates a payment intent for the given amount in minor
// units.  Metadata keys are forwarded as metadata[key] form fields so
// they round-trip through RetrieveIntent.
func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string, description string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("payment_method_types[]", "card")
	if description != "" {
		form.Set("description", description)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// RetrieveIntent fetches a payment intent by its processor reference.
func (c *Client) RetrieveIntent(ctx context.Context, ref string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/payment_intents/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Intent, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payment api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment api: status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var in Intent
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("payment api: decode response: %w", err)
	}
	return &in, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
