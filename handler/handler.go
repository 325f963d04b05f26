package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"bilingual-tutor/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// ChatUseCase is the service the handler delegates to.
type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type Handler struct {
	uc ChatUseCase
}

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Usage   json.RawMessage `json:"usage"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHandler(uc ChatUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle serves one proxy event. It always returns a response and a nil error
// so the runtime never turns a failure into an opaque 502.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}
	log := slog.With("correlation_id", correlationID)

	switch strings.ToUpper(req.HTTPMethod) {
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    responseHeaders(correlationID),
			Body:       "",
		}, nil
	case http.MethodPost:
	default:
		log.Warn("method not allowed", "method", req.HTTPMethod)
		return jsonResponse(http.StatusMethodNotAllowed, correlationID, errorResponse{Error: "Method Not Allowed"}), nil
	}

	message, err := decodeMessage(req)
	if err != nil {
		log.Warn("invalid request body", "err", err)
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{
			Error:   "request body must be a JSON object with a message field",
			Code:    string(usecase.ErrorInvalidInput),
			Message: err.Error(),
		}), nil
	}

	out, err := h.uc.Chat(ctx, usecase.ChatInput{Message: message, RequestID: correlationID})
	if err != nil {
		return h.errorToResponse(log, correlationID, err), nil
	}

	usage := out.Usage
	if len(usage) == 0 {
		usage = json.RawMessage(`{}`)
	}
	return jsonResponse(http.StatusOK, correlationID, chatResponse{
		Success: true,
		Message: out.Message,
		Usage:   usage,
	}), nil
}

func decodeMessage(req events.APIGatewayProxyRequest) (string, error) {
	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", errors.New("body is not valid base64")
		}
		body = string(decoded)
	}

	var in chatRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return "", errors.New("body is not valid JSON: " + err.Error())
	}
	if in.Message == nil {
		return "", nil
	}
	return *in.Message, nil
}

func (h *Handler) errorToResponse(log *slog.Logger, correlationID string, err error) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		log.Error("unexpected chat failure", "err", err)
		return jsonResponse(http.StatusInternalServerError, correlationID, errorResponse{
			Error:   "internal server error",
			Code:    string(usecase.ErrorInternal),
			Message: err.Error(),
		})
	}

	status := statusForCode(ucErr.Code)
	attrs := []any{"code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err}
	if status >= http.StatusInternalServerError {
		log.Error("chat request failed", attrs...)
	} else {
		log.Warn("chat request rejected", attrs...)
	}

	resp := errorResponse{
		Error: summaryForCode(ucErr.Code),
		Code:  string(ucErr.Code),
	}
	switch {
	case ucErr.Reason == "missing_api_key":
		resp.Message = "set DEEPSEEK_API_KEY in the function environment"
	case ucErr.Err != nil:
		resp.Message = ucErr.Err.Error()
	}
	return jsonResponse(status, correlationID, resp)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorTimeout:
		return http.StatusGatewayTimeout
	case usecase.ErrorUpstreamUnauthorized:
		return http.StatusUnauthorized
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func summaryForCode(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "message must not be empty"
	case usecase.ErrorConfiguration:
		return "completion API key is not configured"
	case usecase.ErrorTimeout:
		return "upstream request timeout"
	case usecase.ErrorUpstreamUnauthorized:
		return "completion API rejected the credential"
	case usecase.ErrorRateLimited:
		return "completion API rate limit exceeded"
	case usecase.ErrorMalformedResponse:
		return "completion API returned an unexpected response format"
	case usecase.ErrorNetwork:
		return "could not reach the completion API"
	case usecase.ErrorUpstream:
		return "completion API returned an error"
	default:
		return "internal server error"
	}
}

func responseHeaders(correlationID string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Headers":  "Content-Type",
		"Access-Control-Allow-Methods":  "POST, OPTIONS",
		"Access-Control-Expose-Headers": correlationHeader,
		"Content-Type":                  "application/json",
		correlationHeader:               correlationID,
	}
}

func jsonResponse(status int, correlationID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(body),
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
