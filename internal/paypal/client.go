/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	tokenPath   = "/v1/oauth2/token"
	capturePath = "/v2/payments/captures/"
	orderPath   = "/v2/checkout/orders/"

	// tokens are refreshed this long before the provider-reported expiry
	tokenSkew = 60 * time.Second
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	timeout      time.Duration
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewClient(cfg models.PayPalConfig) (*Client, error) {
	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}
	return newClient(cfg, httpClient), nil
}

// NewClientWithHTTP builds a client around a caller-supplied http.Client.
func NewClientWithHTTP(cfg models.PayPalConfig, httpClient *http.Client) *Client {
	return newClient(cfg, httpClient)
}

func newClient(cfg models.PayPalConfig, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = SandboxBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		timeout:      timeout,
		httpClient:   httpClient,
	}
}

func createCustomHttpClient() (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// GetCapture fetches a captured payment by id.
func (c *Client) GetCapture(ctx context.Context, captureId string) (*models.Capture, error) {
	if captureId == "" {
		return nil, fmt.Errorf("%w: capture id is required", store.ErrValidation)
	}
	var capture models.Capture
	if err := c.get(ctx, capturePath+url.PathEscape(captureId), &capture); err != nil {
		return nil, fmt.Errorf("get capture %s: %w", captureId, err)
	}
	return &capture, nil
}

// GetOrder fetches a checkout order by id.
func (c *Client) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	if orderId == "" {
		return nil, fmt.Errorf("%w: order id is required", store.ErrValidation)
	}
	var order models.Order
	if err := c.get(ctx, orderPath+url.PathEscape(orderId), &order); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderId, err)
	}
	return &order, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do sends an authenticated JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", store.ErrProviderUnavailable, err)
	}

	if err := statusError(resp.StatusCode, respBody); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", store.ErrProviderUnavailable, err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return store.ErrProviderNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status %d", store.ErrProviderUnavailable, code)
	default:
		return fmt.Errorf("provider request failed with status %d: %s", code, truncate(body, 256))
	}
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("%w: provider credentials are not configured", store.ErrProviderUnavailable)
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %w", store.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %w", store.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: token status %d", store.ErrProviderUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("token request rejected with status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime > tokenSkew {
		lifetime -= tokenSkew
	}
	c.accessToken = tr.AccessToken
	c.expiresAt = time.Now().Add(lifetime)

	zap.L().Debug("Obtained provider access token", zap.Duration("lifetime", lifetime))
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
