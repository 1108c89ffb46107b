package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RazorpayConfig holds gateway credentials.
type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// RazorpayClient creates checkout orders through the Razorpay orders API.
type RazorpayClient struct {
	cfg        RazorpayConfig
	httpClient *http.Client
}

func NewRazorpayClient(cfg RazorpayConfig) *RazorpayClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &RazorpayClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *RazorpayClient) KeyID() string { return c.cfg.KeyID }

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder posts to /orders. The request is bounded by ctx and the
// client timeout, so an unresponsive gateway fails instead of hanging.
func (c *RazorpayClient) CreateOrder(ctx context.Context, reqBody ProviderOrderRequest) (*ProviderOrder, error) {
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return nil, NewError(KindConfig, "online payments are not configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay request marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("razorpay request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Wrap(KindUpstream, "payment provider unavailable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr razorpayError
		_ = json.Unmarshal(body, &apiErr)
		return nil, Wrap(KindUpstream, "payment provider rejected the order",
			fmt.Errorf("razorpay status %d: %s %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description))
	}

	var order ProviderOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, Wrap(KindUpstream, "malformed payment provider response", err)
	}
	if order.ID == "" {
		return nil, NewError(KindUpstream, "payment provider returned no order id")
	}
	return &order, nil
}
