package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/certscan-go/internal/errors"
)

// blobHostSuffix is the public Azure blob endpoint domain
const blobHostSuffix = ".blob.core.windows.net"

// URLValidator checks snapshot source locations before a session polls them
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateSourceURL validates a snapshot camera URL
func (v *URLValidator) ValidateSourceURL(sourceURL string) error {
	_, err := v.parse(sourceURL)
	return err
}

// ValidateBlobURL validates a blob snapshot location for the given storage
// account
func (v *URLValidator) ValidateBlobURL(blobURL, account string) error {
	parsedURL, err := v.parse(blobURL)
	if err != nil {
		return err
	}
	if parsedURL.Scheme != "https" {
		return apperrors.NewValidationError("Blob URL must use https", nil)
	}
	host := parsedURL.Hostname()
	if !strings.HasSuffix(host, blobHostSuffix) {
		return apperrors.NewValidationError("URL is not a blob storage endpoint", nil)
	}
	if account != "" && host != account+blobHostSuffix {
		return apperrors.NewValidationError("Blob URL belongs to a different storage account", nil)
	}
	if strings.Trim(parsedURL.Path, "/") == "" {
		return apperrors.NewValidationError("Blob URL must name a container", nil)
	}
	return nil
}

func (v *URLValidator) parse(sourceURL string) (*url.URL, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	return parsedURL, nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
