package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bilingual-tutor/internal/domain"
)

const (
	DefaultBaseURL = "https://api.deepseek.com"
	DefaultTimeout = 25 * time.Second

	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// Client is a single-attempt client for the DeepSeek chat completions endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient replaces the default HTTP client. A nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the connection-level timeout of the default HTTP client.
// It is ignored when WithHTTPClient supplies the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Complete sends one chat completion request and decodes the reply. Failures
// are returned as *Error. The body is only checked for being JSON; callers
// decide whether its shape is usable.
func (c *Client) Complete(ctx context.Context, apiKey string, in domain.CompletionRequest) (domain.CompletionResponse, error) {
	if strings.TrimSpace(apiKey) == "" {
		return domain.CompletionResponse{}, errors.New("deepseek: api key must not be empty")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("deepseek: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("deepseek: create request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.CompletionResponse{}, err
	}

	var out domain.CompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.CompletionResponse{}, &Error{
			Kind: domain.FailureMalformed,
			Err:  fmt.Errorf("decode response: %w", err),
		}
	}
	return out, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &Error{
			Kind:       domain.FailureUpstream,
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, transportError(fmt.Errorf("read response body: %w", err))
	}
	return buf, nil
}
