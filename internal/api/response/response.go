// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/sheetpulse/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
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

// ErrorResponse is the standard error response format. Data carries a
// partial result when the failure still produced one.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
	Data  any         `json:"data,omitempty"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// List writes a success response for a collection, with its size in meta.
func List[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	write(w, http.StatusOK, SuccessResponse{
		Data: items,
		Meta: Meta{Timestamp: time.Now().UTC(), Count: &n},
	})
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	ErrorWithData(w, status, err, nil)
}

// ErrorWithData writes an error response that also carries data.
func ErrorWithData(w http.ResponseWriter, status int, err error, data any) {
	write(w, status, ErrorResponse{Error: Detail(err), Data: data})
}

// Detail converts err into its wire form. Uncoded errors are reported as
// INTERNAL_ERROR without leaking their text.
func Detail(err error) ErrorDetail {
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
	return detail
}

// StatusFor maps a coded error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSourceNotFound), errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSyncFailed),
		errors.Is(err, core.ErrAnswerUnavailable),
		errors.Is(err, core.ErrSourceFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
