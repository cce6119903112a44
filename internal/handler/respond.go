package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/apperr"
)

// ErrorResponse is the machine-readable error body. Internal failures carry a
// generic message plus a trace identifier; details stay in the server log.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	TraceID    string `json:"traceId"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err onto the error taxonomy and writes the client-safe
// body. Capacity rejections carry a Retry-After header.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	traceID := uuid.NewString()
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(err)

	resp := ErrorResponse{
		Error:   clientMessage(err, kind),
		Code:    string(kind),
		TraceID: traceID,
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
		seconds := int(appErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		resp.RetryAfter = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("trace_id", traceID).Str("code", string(kind)).Msg("request failed")

	writeJSON(w, status, resp)
}

// clientMessage keeps validation details but never leaks internals.
func clientMessage(err error, kind apperr.Kind) string {
	switch kind {
	case apperr.KindValidation:
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr.Message
		}
		return "invalid request"
	case apperr.KindCapacityExceeded:
		return "service busy, please retry shortly"
	case apperr.KindUpstreamTimeout:
		return "the companion took too long to respond, please retry"
	case apperr.KindUpstream:
		return "the companion service is having trouble, please retry"
	default:
		return "service busy, please retry shortly"
	}
}
