// Package client provides a Go client for the WipeOut certificate API.
//
// The client abstracts HTTP communication with the certificate service
// and provides methods that correspond to the wipe submission workflow:
// submitting a finished wipe record, fetching the issued certificate,
// and verifying it. Transient failures (network errors, 5xx responses)
// are retried with exponential backoff; client errors are not.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mehul-tandon/WipeOut/internal/models"
)

const defaultUserAgent = "wipeout-client/1.0"

// Client represents a certificate API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets a custom user agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMaxRetries sets how many times transient failures are retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// New creates a new certificate API client.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SubmitResponse is the body returned for a wipe submission.
type SubmitResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
	Data    models.SubmitResult `json:"data"`
}

// SubmitWipe submits a finished wipe record for certificate issuance.
func (c *Client) SubmitWipe(ctx context.Context, record models.WipeRecord) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/wipe/submit", record, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyCertificate asks the service for a verification verdict.
func (c *Client) VerifyCertificate(ctx context.Context, certificateID string) (*models.VerificationResult, error) {
	var result models.VerificationResult
	path := "/api/certificate/verify/" + url.PathEscape(certificateID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CertificateResponse wraps a fetched certificate payload.
type CertificateResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Data    *models.Certificate `json:"data,omitempty"`
}

// GetCertificate fetches the stored certificate payload by id.
func (c *Client) GetCertificate(ctx context.Context, certificateID string) (*CertificateResponse, error) {
	var resp CertificateResponse
	path := "/api/certificate/" + url.PathEscape(certificateID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks whether the service is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// apiError is a non-retryable error response from the service.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	operation := func() error {
		var body io.Reader
		if in != nil {
			data, err := json.Marshal(in)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encoding request: %w", err))
			}
			body = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure, retryable.
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}
		if resp.StatusCode >= 400 {
			// Client errors won't improve with retries.
			return backoff.Permanent(&apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))})
		}

		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	return backoff.Retry(operation, policy)
}
