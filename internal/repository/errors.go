package repository

import "errors"

var (
	// ErrVerificationDisabled indicates no verification backend is configured
	ErrVerificationDisabled = errors.New("verification backend not configured")

	// ErrCertificateNotFound indicates the backend does not know the certificate
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrVerificationRejected indicates the backend answered with success=false
	ErrVerificationRejected = errors.New("verification rejected")

	// ErrRepositoryUnavailable indicates the backend could not be reached
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
