package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/KhamariThompson/100rebuild/internal/progress"
)

// ErrorResponse represents the canonical error envelope returned by the API.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// ToStatusCode maps an error code to an HTTP status.
func ToStatusCode(code string) int {
	switch code {
	case "unauthorized":
		return http.StatusUnauthorized
	case "bad_request":
		return http.StatusBadRequest
	case "timeout":
		return http.StatusGatewayTimeout
	case "unavailable":
		return http.StatusServiceUnavailable
	case "cancelled":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// codeFor maps engine error kinds to API error codes.
func codeFor(err error) string {
	switch progress.KindOf(err) {
	case progress.KindAuthRequired:
		return "unauthorized"
	case progress.KindTimeout:
		return "timeout"
	case progress.KindNetworkFailure:
		return "unavailable"
	case progress.KindCancellation:
		return "cancelled"
	default:
		return "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, ToStatusCode(code), ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
