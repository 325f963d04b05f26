package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"bilingual-tutor/internal/usecase"
)

const maxRequestBody = 1 << 20

// HTTPHandler serves h over plain net/http by translating each request into a
// proxy event. Used by the local development server. Bodies over
// maxRequestBody are refused with 413, never cut short.
func HTTPHandler(h *Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeResponse(w, jsonResponse(http.StatusRequestEntityTooLarge, newCorrelationID(), errorResponse{
					Error:   "request body too large",
					Code:    string(usecase.ErrorInvalidInput),
					Message: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit),
				}))
				return
			}
			writeResponse(w, jsonResponse(http.StatusBadRequest, newCorrelationID(), errorResponse{
				Error: "could not read request body",
			}))
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			headers[k] = strings.Join(v, ",")
		}

		resp, _ := h.Handle(r.Context(), events.APIGatewayProxyRequest{
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
			Headers:    headers,
			Body:       string(body),
		})
		writeResponse(w, resp)
	})
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.WriteString(w, resp.Body); err != nil {
		slog.Warn("failed to write response body", "err", err)
	}
}
