package deepseek

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bilingual-tutor/internal/domain"
)

// ---------------------------------------------------------------------------
// chatURL helper
// ---------------------------------------------------------------------------

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.deepseek.com", "https://api.deepseek.com/v1/chat/completions"},
		{"https://api.deepseek.com/", "https://api.deepseek.com/v1/chat/completions"},
		{"https://api.deepseek.com/v1", "https://api.deepseek.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.deepseek.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient()
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestNewClient_WithTimeout(t *testing.T) {
	c := NewClient(WithTimeout(3 * time.Second))
	require.Equal(t, 3*time.Second, c.httpClient.Timeout)

	custom := &http.Client{Timeout: time.Second}
	c = NewClient(WithHTTPClient(custom), WithTimeout(3*time.Second))
	require.Same(t, custom, c.httpClient)
}

func TestNewClient_NilHTTPClientKeepsDefault(t *testing.T) {
	c := NewClient(WithHTTPClient(nil), WithTimeout(3*time.Second))
	require.NotNil(t, c.httpClient)
	require.Equal(t, 3*time.Second, c.httpClient.Timeout)
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
}

func testRequest() domain.CompletionRequest {
	return domain.CompletionRequest{
		Model: "deepseek-chat",
		Messages: []domain.ChatMessage{
			{Role: "system", Content: "be a tutor"},
			{Role: "user", Content: "hi"},
		},
		MaxTokens:   1500,
		Temperature: 0.7,
	}
}

func requireKind(t *testing.T, err error, kind domain.FailureKind) *Error {
	t.Helper()
	var dsErr *Error
	require.ErrorAs(t, err, &dsErr)
	require.Equal(t, kind, dsErr.FailureKind())
	return dsErr
}

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Equal(t, int64(len(reqBody)), r.ContentLength)

		var got map[string]any
		require.NoError(t, json.Unmarshal(reqBody, &got))
		require.Equal(t, "deepseek-chat", got["model"])
		require.Equal(t, false, got["stream"])
		require.EqualValues(t, 1500, got["max_tokens"])
		require.EqualValues(t, 0.7, got["temperature"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"model": "deepseek-chat",
			"choices": [{
				"index": 0,
				"message": { "role": "assistant", "content": "Hello from mock" }
			}],
			"usage": {"total_tokens": 42}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Complete(context.Background(), "sk-test", testRequest())
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.NotNil(t, resp.Choices[0].Message.Content)
	require.Equal(t, "Hello from mock", *resp.Choices[0].Message.Content)
	require.JSONEq(t, `{"total_tokens":42}`, string(resp.Usage))
}

func TestClient_Complete_EmptyKey(t *testing.T) {
	c := NewClient()
	_, err := c.Complete(context.Background(), " ", testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClient_Complete_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`not-a-json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), "sk-test", testRequest())
	requireKind(t, err, domain.FailureMalformed)
	require.Contains(t, err.Error(), "decode response")
}

func TestClient_Complete_EmptyChoicesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.Complete(context.Background(), "sk-test", testRequest())
	require.NoError(t, err)
	require.Empty(t, resp.Choices)
}

func TestClient_Complete_UpstreamStatuses(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		c := newTestClient(t, srv)
		_, err := c.Complete(context.Background(), "sk-test", testRequest())
		dsErr := requireKind(t, err, domain.FailureUpstream)
		require.Equal(t, status, dsErr.HTTPStatusCode())
		require.Contains(t, dsErr.Body, "nope")
		require.Contains(t, err.Error(), "unexpected status")
		srv.Close()
	}
}

func TestClient_Complete_NonOKSuccessStatusIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), "sk-test", testRequest())
	dsErr := requireKind(t, err, domain.FailureUpstream)
	require.Equal(t, http.StatusAccepted, dsErr.StatusCode)
}

func TestClient_Complete_ClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Complete(context.Background(), "sk-test", testRequest())
	requireKind(t, err, domain.FailureTimeout)
}

func TestClient_Complete_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Complete(ctx, "sk-test", testRequest())
	requireKind(t, err, domain.FailureTimeout)
	require.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestClient_Complete_NetworkError(t *testing.T) {
	c := NewClient(
		WithBaseURL("http://127.0.0.1:1"),
		WithHTTPClient(&http.Client{Timeout: time.Second}),
	)
	_, err := c.Complete(context.Background(), "sk-test", testRequest())
	requireKind(t, err, domain.FailureNetwork)
}

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

func TestError_Messages(t *testing.T) {
	upstream := &Error{Kind: domain.FailureUpstream, StatusCode: 401, URL: "u", Body: "denied"}
	require.Equal(t, "deepseek: unexpected status 401 from u: denied", upstream.Error())

	cause := errors.New("dial failed")
	network := &Error{Kind: domain.FailureNetwork, Err: cause}
	require.Equal(t, "deepseek: network_error: dial failed", network.Error())
	require.ErrorIs(t, network, cause)

	var nilErr *Error
	require.Equal(t, "", nilErr.Error())
	require.Nil(t, nilErr.Unwrap())
}
