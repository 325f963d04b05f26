package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilingual-tutor/internal/domain"
)

const DefaultTimeout = 25 * time.Second

// KeyProvider supplies the completion API key. An empty key is treated as
// missing configuration.
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a KeyProvider for a key read once at startup.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	return string(k), nil
}

type CompletionClient interface {
	Complete(ctx context.Context, apiKey string, req domain.CompletionRequest) (domain.CompletionResponse, error)
}

type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec domain.UsageRecord) error
}

type classifiedError interface {
	FailureKind() domain.FailureKind
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type ChatService struct {
	keys     KeyProvider
	llm      CompletionClient
	recorder UsageRecorder
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*ChatService)

// WithUsageRecorder enables the usage ledger. Recording failures are logged
// and never fail the request.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(s *ChatService) {
		s.recorder = r
	}
}

type ChatInput struct {
	Message   string
	RequestID string
}

type ChatOutput struct {
	Message string
	Usage   json.RawMessage
}

func NewChatService(keys KeyProvider, llm CompletionClient, timeout time.Duration, opts ...Option) (*ChatService, error) {
	if keys == nil {
		return nil, errors.New("usecase: key provider must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &ChatService{
		keys:    keys,
		llm:     llm,
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if in.Message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}

	apiKey, err := s.keys.APIKey(ctx)
	if err != nil {
		return ChatOutput{}, newError(ErrorConfiguration, "api_key_unavailable", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return ChatOutput{}, newError(ErrorConfiguration, "missing_api_key", nil)
	}

	req := buildCompletionRequest(in.Message)
	start := s.now()
	resp, err := s.complete(ctx, apiKey, req)
	if err != nil {
		return ChatOutput{}, classifyCompletionError(err)
	}
	latency := s.now().Sub(start)

	content, err := firstContent(resp)
	if err != nil {
		return ChatOutput{}, newError(ErrorMalformedResponse, "missing_choice_content", err)
	}
	usage := normalizeUsage(resp.Usage)

	s.recordUsage(ctx, in.RequestID, req.Model, usage, latency)

	return ChatOutput{Message: content, Usage: usage}, nil
}

type completionResult struct {
	resp domain.CompletionResponse
	err  error
}

// complete bounds the call by s.timeout. The deadline cancels the in-flight
// request; the select also covers clients that ignore their context.
func (s *ChatService) complete(ctx context.Context, apiKey string, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan completionResult, 1)
	go func() {
		resp, err := s.llm.Complete(ctx, apiKey, req)
		done <- completionResult{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-ctx.Done():
		return domain.CompletionResponse{}, ctx.Err()
	}
}

func classifyCompletionError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorTimeout, "upstream_timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(ErrorInternal, "request_cancelled", err)
	}

	var classified classifiedError
	if errors.As(err, &classified) {
		switch classified.FailureKind() {
		case domain.FailureTimeout:
			return newError(ErrorTimeout, "upstream_timeout", err)
		case domain.FailureMalformed:
			return newError(ErrorMalformedResponse, "upstream_malformed_response", err)
		case domain.FailureNetwork:
			return newError(ErrorNetwork, "upstream_network_error", err)
		case domain.FailureUpstream:
			status, _ := upstreamStatusCode(err)
			switch status {
			case http.StatusUnauthorized, http.StatusForbidden:
				return newError(ErrorUpstreamUnauthorized, "upstream_unauthorized", err)
			case http.StatusTooManyRequests:
				return newError(ErrorRateLimited, "upstream_rate_limited", err)
			default:
				return newError(ErrorUpstream, "upstream_status_error", err)
			}
		}
	}

	return newError(ErrorInternal, "completion_error", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func firstContent(resp domain.CompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("usecase: no choices in completion response")
	}
	content := resp.Choices[0].Message.Content
	if content == nil {
		return "", errors.New("usecase: first choice has no message content")
	}
	return *content, nil
}

// normalizeUsage passes the upstream usage block through verbatim and
// substitutes an empty object when it is absent or null.
func normalizeUsage(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`)
	}
	return raw
}

func (s *ChatService) recordUsage(ctx context.Context, requestID, model string, usage json.RawMessage, latency time.Duration) {
	if s.recorder == nil {
		return
	}
	if strings.TrimSpace(requestID) == "" {
		requestID = newUUID()
	}

	var tokens domain.TokenUsage
	if err := json.Unmarshal(usage, &tokens); err != nil {
		slog.Warn("usage block is not a token usage object", "request_id", requestID, "err", err)
	}

	err := s.recorder.RecordUsage(ctx, domain.UsageRecord{
		RequestID: requestID,
		Model:     model,
		Usage:     tokens,
		Latency:   latency,
	})
	if err != nil {
		slog.Warn("failed to record usage", "request_id", requestID, "err", err)
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
