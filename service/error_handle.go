package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrNoFile is returned when the expected file is not found in the form.
	ErrNoFile = errors.New("Missing 'file' in request")
	// ErrNoBlastType is returned when the blastType form field is absent.
	ErrNoBlastType = errors.New("Missing 'blastType' in form data")
	// ErrFileTooLarge is returned when the upload exceeds the configured cap.
	ErrFileTooLarge = errors.New("uploaded file is too large")
	// ErrNotUTF8 is returned when the upload cannot be decoded as UTF-8 text.
	ErrNotUTF8 = errors.New("uploaded file is not valid UTF-8 text")
)

// upstreamMessage is the fixed message for any remote search failure.
const upstreamMessage = "Remote BLAST failed"

// AppError pairs an error with the HTTP status and message the transport
// layer should emit. Details carries the underlying cause for 500s.
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Details    string
}

func (e *AppError) Error() string {
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError wraps err as a client input error with the given status and message.
func NewAppError(err error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewInputError builds the 400 variant for a validation sentinel.
func NewInputError(err error) *AppError {
	return NewAppError(err, http.StatusBadRequest, err.Error())
}

// NewUpstreamError builds the 500 variant for a remote call or decode fault.
func NewUpstreamError(err error) *AppError {
	return &AppError{
		Err:        err,
		StatusCode: http.StatusInternalServerError,
		Message:    upstreamMessage,
		Details:    err.Error(),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// EncodeError writes err as the JSON error contract. It is installed as the
// go-kit ServerErrorEncoder, so decode, endpoint and service errors all
// funnel through here.
func EncodeError(ctx context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	var appErr *AppError
	if errors.As(err, &appErr) {
		w.WriteHeader(appErr.StatusCode)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   upstreamMessage,
		Details: err.Error(),
	})
}
