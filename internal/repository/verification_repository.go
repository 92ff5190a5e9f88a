package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anime-shed/certscan-go/pkg/models"
)

const (
	qrVerifyPath = "/verifications/qr-verify"
	// maxResponseBytes bounds the backend reply
	maxResponseBytes = 1 << 20
)

// HTTPVerificationRepository talks to the verification REST API
type HTTPVerificationRepository struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewHTTPVerificationRepository creates a client for baseURL. An empty token
// sends no Authorization header.
func NewHTTPVerificationRepository(baseURL, token string, timeout time.Duration) *HTTPVerificationRepository {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPVerificationRepository{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// VerifyQR posts {"qrData": payload} and unwraps the response envelope
func (r *HTTPVerificationRepository) VerifyQR(ctx context.Context, qrData string) (*models.QRVerificationResult, error) {
	if r.baseURL == "" {
		return nil, ErrVerificationDisabled
	}

	body, err := json.Marshal(models.QRVerifyRequest{QRData: qrData})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+qrVerifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	defer resp.Body.Close()

	var envelope models.APIResponse[models.QRVerificationResult]
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&envelope)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCertificateNotFound, envelopeError(envelope, resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", ErrRepositoryUnavailable, envelopeError(envelope, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: %s", ErrVerificationRejected, envelopeError(envelope, resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", decodeErr)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrVerificationRejected, envelopeError(envelope, resp.StatusCode))
	}
	return &envelope.Data, nil
}

func envelopeError[T any](env models.APIResponse[T], status int) string {
	switch {
	case env.Error != "":
		return env.Error
	case env.Message != "":
		return env.Message
	default:
		return fmt.Sprintf("status code %d", status)
	}
}
