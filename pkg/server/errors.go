package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
	"github.com/kubeorbit/cluster-agent/pkg/serializer"
)

// ErrorResponse is the generic error body for the event server.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteError writes an error response, reusing the request ID from the
// middleware when present.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// statusForCode maps agent error codes to HTTP status codes.
func statusForCode(code string) int {
	switch code {
	case agenterrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case agenterrors.ErrCodeConfig:
		return http.StatusInternalServerError
	case agenterrors.ErrCodeTransport, agenterrors.ErrCodeBackendRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
