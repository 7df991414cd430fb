package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kubeorbit/cluster-agent/pkg/dispatcher"
	agenterrors "github.com/kubeorbit/cluster-agent/pkg/errors"
	"github.com/kubeorbit/cluster-agent/pkg/serializer"
)

const maxEventBytes = 1 << 20 // 1 MiB

// handleEvents handles POST /v1/events. The body is a single event document
// which is dispatched to the corresponding agent operation.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is supported")
		return
	}

	var event dispatcher.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err := dec.Decode(&event); err != nil {
		WriteError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body is not a valid JSON event")
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		slog.Error("event dispatch failed",
			"error", err,
			"code", agenterrors.CodeOf(err),
		)
		// Listing failures carry their own JSON error document.
		if isJSONDocument(result) {
			serializer.RespondRawJSON(w, statusForError(err), []byte(result))
			return
		}
		WriteError(w, r, statusForError(err), agenterrors.CodeOf(err), err.Error())
		return
	}

	if isJSONDocument(result) {
		serializer.RespondRawJSON(w, http.StatusOK, []byte(result))
		return
	}

	serializer.RespondJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: result})
}

func isJSONDocument(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}
