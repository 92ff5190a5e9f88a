package scanner

import (
	"context"
	"errors"

	"github.com/anime-shed/certscan-go/internal/capture"
	apperrors "github.com/anime-shed/certscan-go/internal/errors"
)

var (
	errAcquisitionTimeout = errors.New("acquisition timed out")
	errMetadataTimeout    = errors.New("metadata not available in time")
)

// classify maps a capture failure to the operator-facing error taxonomy
func classify(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	var t apperrors.ErrorType
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		t = apperrors.ErrorTypePermissionDenied
	case errors.Is(err, capture.ErrDeviceNotFound):
		t = apperrors.ErrorTypeDeviceNotFound
	case errors.Is(err, capture.ErrUnsupported):
		t = apperrors.ErrorTypeDeviceUnsupported
	case errors.Is(err, capture.ErrDeviceBusy):
		t = apperrors.ErrorTypeDeviceBusy
	case errors.Is(err, capture.ErrOverconstrained):
		t = apperrors.ErrorTypeConstraintUnsatisfiable
	case errors.Is(err, errAcquisitionTimeout), errors.Is(err, context.DeadlineExceeded):
		t = apperrors.ErrorTypeAcquisitionTimeout
	case errors.Is(err, errMetadataTimeout):
		t = apperrors.ErrorTypeMetadataTimeout
	case errors.Is(err, capture.ErrStreamEnded), errors.Is(err, capture.ErrSessionClosed):
		t = apperrors.ErrorTypeStreamLost
	default:
		return apperrors.New(apperrors.ErrorTypeInternal, "Failed to access camera", err)
	}
	return apperrors.New(t, "", err)
}
