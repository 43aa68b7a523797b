// Package processor implements a typed client for the remote payment API.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/merchantkit/paysync/internal/config"
	"github.com/merchantkit/paysync/internal/models"
)

// Client is an HTTP client for the processor's REST API. All requests carry
// a Basic-Authentication header built from the merchant credential. Network
// failures and 429 responses are retried with bounded exponential backoff;
// other non-2xx responses are returned as APIError without retry.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	cred       models.MerchantCredential
	maxRetries int
	baseDelay  time.Duration
	calls      atomic.Int64
}

// New creates a Client for the given merchant credential.
func New(cfg *config.ProcessorConfig, cred models.MerchantCredential, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
		baseURL:    cfg.BaseURL,
		cred:       cred,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
	}
}

// CallCount returns the number of HTTP requests issued so far, including
// retries. The audit recorder stores this per run.
func (c *Client) CallCount() int64 {
	return c.calls.Load()
}

// ListPayments fetches one page of transactions. createdFilter, if
// non-empty, is passed through as the created query parameter.
func (c *Client) ListPayments(ctx context.Context, limit, offset int, createdFilter string) (*PaymentPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if createdFilter != "" {
		query.Set("created", createdFilter)
	}

	body, err := c.get(ctx, "/payment", query)
	if err != nil {
		return nil, err
	}

	var page PaymentPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode payment page: %w", err)
	}
	return &page, nil
}

// GetPayment fetches the authoritative detail record for one payment.
func (c *Client) GetPayment(ctx context.Context, id string) (*PaymentRecord, error) {
	body, err := c.get(ctx, "/payment/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var rec PaymentRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode payment %s: %w", id, err)
	}
	rec.Raw = body
	return &rec, nil
}

// ListInvoices fetches one page of invoices.
func (c *Client) ListInvoices(ctx context.Context, limit, offset int) (*InvoicePage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	body, err := c.get(ctx, "/invoice", query)
	if err != nil {
		return nil, err
	}

	var page InvoicePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode invoice page: %w", err)
	}
	return &page, nil
}

// GetInvoice fetches one invoice detail including its line items.
func (c *Client) GetInvoice(ctx context.Context, id string) (*InvoiceRecord, error) {
	body, err := c.get(ctx, "/invoice/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var rec InvoiceRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", id, err)
	}
	rec.Raw = body
	return &rec, nil
}

// get performs a GET with auth, retrying network errors and 429 responses
// up to the configured budget.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.doRequest(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}

		c.logger.Warn("processor request failed, will retry",
			"url", reqURL,
			"attempt", attempt+1,
			"error", err,
		)
		lastErr = err
	}

	return nil, lastErr
}

// doRequest issues a single request. The second return value reports
// whether the failure is retriable.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cred.ConsumerKey, c.cred.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	c.calls.Add(1)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, &TransientError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &TransientError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, &rateLimitError{APIError: apiErr, retryAfter: parseRetryAfter(resp)}
	}
	return nil, false, apiErr
}

// rateLimitError carries the Retry-After hint from a 429 response through
// to the backoff calculation.
type rateLimitError struct {
	*APIError
	retryAfter time.Duration
}

func (e *rateLimitError) Unwrap() error { return e.APIError }

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// backoff returns the delay before the given attempt, doubling per attempt
// and honoring any Retry-After hint when it is longer.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	delay := c.baseDelay << (attempt - 1)

	if rle, ok := lastErr.(*rateLimitError); ok && rle.retryAfter > delay {
		delay = rle.retryAfter
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
