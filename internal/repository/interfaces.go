package repository

import (
	"context"

	"github.com/anime-shed/certscan-go/pkg/models"
)

// VerificationRepository forwards scanned payloads to the certificate
// verification backend
type VerificationRepository interface {
	// VerifyQR submits the raw scanned payload and returns the backend verdict
	VerifyQR(ctx context.Context, qrData string) (*models.QRVerificationResult, error)
}
