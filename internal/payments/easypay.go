// Package payments talks to the external payment provider. Checkout sessions
// are created here, strictly outside any ledger transaction; confirmation
// only arrives through the provider webhook.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/curavia/custodia/internal/models"
	"github.com/curavia/custodia/pkg/logger"
)

const requestTimeout = 30 * time.Second

type Client struct {
	logger  *logger.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a payment provider client.
func NewClient(baseURL, apiKey string, logger *logger.Logger) *Client {
	return &Client{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type checkoutRequest struct {
	AmountCents int64             `json:"amount_cents"`
	Purpose     string            `json:"purpose"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type checkoutResponse struct {
	URL             string `json:"url"`
	IntentReference string `json:"intent_reference"`
}

// CreateCheckoutSession asks the provider for a hosted payment page and
// returns its URL together with the payment-intent reference the webhook
// will later carry.
func (c *Client) CreateCheckoutSession(ctx context.Context, amountCents int64, purpose string, metadata map[string]string) (*models.CheckoutSession, error) {
	if amountCents <= 0 {
		return nil, models.ErrInvalidAmount
	}

	body, err := json.Marshal(checkoutRequest{
		AmountCents: amountCents,
		Purpose:     purpose,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout request: %s", err)
	}

	url := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("checkout session request failed with status %d: %s", resp.StatusCode, string(data))
	}

	var parsed checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %s", err)
	}
	if parsed.IntentReference == "" {
		return nil, fmt.Errorf("checkout response missing intent reference")
	}

	c.logger.Debug("Checkout session created ", "purpose ", purpose, " intent ", parsed.IntentReference)
	return &models.CheckoutSession{
		URL:             parsed.URL,
		IntentReference: parsed.IntentReference,
	}, nil
}
