package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"

	// Capture acquisition taxonomy
	ErrorTypePermissionDenied        ErrorType = "permission_denied"
	ErrorTypeDeviceNotFound          ErrorType = "device_not_found"
	ErrorTypeDeviceUnsupported       ErrorType = "device_unsupported"
	ErrorTypeDeviceBusy              ErrorType = "device_busy"
	ErrorTypeConstraintUnsatisfiable ErrorType = "constraint_unsatisfiable"
	ErrorTypeAcquisitionTimeout      ErrorType = "acquisition_timeout"
	ErrorTypeMetadataTimeout         ErrorType = "metadata_timeout"
	ErrorTypeStreamLost              ErrorType = "stream_lost"
	ErrorTypeManualInputInvalid      ErrorType = "manual_input_invalid"
)

// operatorMessages holds the text shown to the operator for each capture failure
var operatorMessages = map[ErrorType]string{
	ErrorTypePermissionDenied:        "Camera permission denied. Please allow camera access and try again.",
	ErrorTypeDeviceNotFound:          "No camera found. Please check your device has a camera.",
	ErrorTypeDeviceUnsupported:       "Camera not supported on this device.",
	ErrorTypeDeviceBusy:              "Camera is busy. Please close other camera apps and try again.",
	ErrorTypeConstraintUnsatisfiable: "Failed to start camera with basic settings.",
	ErrorTypeAcquisitionTimeout:      "Camera access timed out. Please try again or check your settings.",
	ErrorTypeMetadataTimeout:         "Camera initialization failed. Please try again.",
	ErrorTypeStreamLost:              "Camera stream ended unexpectedly.",
	ErrorTypeManualInputInvalid:      "Invalid QR data. Please enter valid JSON.",
}

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation:              http.StatusBadRequest,
	ErrorTypeNetwork:                 http.StatusBadGateway,
	ErrorTypeProcessing:              http.StatusUnprocessableEntity,
	ErrorTypeTimeout:                 http.StatusGatewayTimeout,
	ErrorTypeNotFound:                http.StatusNotFound,
	ErrorTypeConflict:                http.StatusConflict,
	ErrorTypeInternal:                http.StatusInternalServerError,
	ErrorTypePermissionDenied:        http.StatusForbidden,
	ErrorTypeDeviceNotFound:          http.StatusNotFound,
	ErrorTypeDeviceUnsupported:       http.StatusNotImplemented,
	ErrorTypeDeviceBusy:              http.StatusConflict,
	ErrorTypeConstraintUnsatisfiable: http.StatusUnprocessableEntity,
	ErrorTypeAcquisitionTimeout:      http.StatusGatewayTimeout,
	ErrorTypeMetadataTimeout:         http.StatusGatewayTimeout,
	ErrorTypeStreamLost:              http.StatusServiceUnavailable,
	ErrorTypeManualInputInvalid:      http.StatusUnprocessableEntity,
}

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an error of the given type. An empty message falls back to
// the operator message registered for the type.
func New(errorType ErrorType, message string, cause error) *AppError {
	if message == "" {
		message = operatorMessages[errorType]
	}
	code, ok := statusCodes[errorType]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &AppError{
		Type:       errorType,
		Message:    message,
		StatusCode: code,
		Cause:      cause,
	}
}

// OperatorMessage returns the user-facing text for a capture error type
func OperatorMessage(errorType ErrorType) string {
	return operatorMessages[errorType]
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return New(ErrorTypeNetwork, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return New(ErrorTypeProcessing, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return New(ErrorTypeTimeout, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, cause error) *AppError {
	return New(ErrorTypeConflict, message, cause)
}

// NewManualInputError creates the inline error shown for rejected manual entries
func NewManualInputError(details string, cause error) *AppError {
	err := New(ErrorTypeManualInputInvalid, "", cause)
	err.Details = details
	return err
}

// As extracts an *AppError from an error chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := As(err); ok {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
