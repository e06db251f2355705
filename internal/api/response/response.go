// Package response writes the JSON envelopes of the API.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/metrics"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// Paging is set on list responses only.
	*Paging
}

// Paging describes one page of a list.
type Paging struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{Data: data, Meta: meta(w)})
}

// Page writes one page of a list together with its paging metadata.
func Page(w http.ResponseWriter, data any, p Paging) {
	m := meta(w)
	m.Paging = &p
	write(w, http.StatusOK, SuccessResponse{Data: data, Meta: m})
}

// Error writes an error response. Errors other than *core.Error are
// reported without detail.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	write(w, status, ErrorResponse{Error: detail, RequestID: w.Header().Get(metrics.RequestIDHeader)})
}

func meta(w http.ResponseWriter) Meta {
	return Meta{
		Timestamp: time.Now().UTC(),
		RequestID: w.Header().Get(metrics.RequestIDHeader),
	}
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
