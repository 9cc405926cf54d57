package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://api.stripe.com/v1"

// Checkout flow endpoints on the public site.
const (
	successURL = "https://tgn.official.jp/donate/success"
	cancelURL  = "https://tgn.official.jp/donate"
)

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("stripe: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// sessionResponse is the minimal shape of a created checkout session.
type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client creates hosted checkout sessions for donations.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client; the secret key is resolved from the parameter
// store on first use and cached for the process lifetime.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("stripe: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("stripe: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = c.getter.GetParameter(ctx, c.paramPrefix+"/stripe-secret-key")
		if c.keyErr == nil && strings.TrimSpace(c.apiKey) == "" {
			c.keyErr = errors.New("stripe: secret key is empty")
		}
	})
	return c.apiKey, c.keyErr
}

func sessionsURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/checkout/sessions"
}

// CreateDonationSession creates a JPY donation checkout session and returns
// the hosted redirect URL. The amount is assumed to be validated by the
// caller against the fixed donation tiers.
func (c *Client) CreateDonationSession(ctx context.Context, amount int) (string, error) {
	if amount <= 0 {
		return "", errors.New("stripe: amount must be positive")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][price_data][currency]", "jpy")
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("TGN応援寄付 %d円", amount))
	form.Set("line_items[0][price_data][product_data][description]", "つくば院生ネットワーク（TGN）への寄付")
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(amount))
	form.Set("line_items[0][quantity]", "1")
	form.Set("submit_type", "donate")

	reqURL := sessionsURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if reqErr != nil {
		return "", fmt.Errorf("stripe: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("stripe: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: reqURL, Body: string(buf)}
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("stripe: read response body: %w", err)
	}

	var session sessionResponse
	if decErr := json.Unmarshal(raw, &session); decErr != nil {
		return "", fmt.Errorf("stripe: decode response: %w", decErr)
	}
	if session.URL == "" {
		return "", errors.New("stripe: session response has no url")
	}
	return session.URL, nil
}
