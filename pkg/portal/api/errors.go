package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeSizeExceeded       = "SIZE_EXCEEDED"
	CodeUnsupportedType    = "UNSUPPORTED_TYPE"
	CodeStorageWriteFailed = "STORAGE_WRITE_FAILED"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeNotFound           = "NOT_FOUND"
	CodeUploadInProgress   = "UPLOAD_IN_PROGRESS"
	CodeValidation         = "VALIDATION"
	CodeBadRequest         = "BAD_REQUEST"
	CodeInternal           = "INTERNAL"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusFor maps service errors to an HTTP status and error code
func statusFor(err error) (int, ErrorResponse) {
	var verr *portal.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, media.ErrAuthRequired):
		return http.StatusUnauthorized, ErrorResponse{Code: CodeAuthRequired, Message: "authentication required"}
	case errors.Is(err, media.ErrSizeExceeded), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Code: CodeSizeExceeded, Message: err.Error()}
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, ErrorResponse{Code: CodeUnsupportedType, Message: err.Error()}
	case errors.Is(err, media.ErrStorageWriteFailed):
		return http.StatusBadGateway, ErrorResponse{Code: CodeStorageWriteFailed, Message: "failed to store file"}
	case errors.Is(err, portal.ErrNotFound), errors.Is(err, portal.ErrUnknownEntity), errors.Is(err, portal.ErrUnknownField):
		return http.StatusNotFound, ErrorResponse{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, portal.ErrUploadInProgress):
		return http.StatusConflict, ErrorResponse{Code: CodeUploadInProgress, Message: err.Error()}
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Code: CodeValidation, Message: verr.Error(), Fields: verr.Fields}
	case errors.Is(err, portal.ErrFieldKind), errors.Is(err, media.ErrNoFile), errors.Is(err, media.ErrEmptyURL):
		return http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Message: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Code: CodeBadRequest, Message: msg})
}
