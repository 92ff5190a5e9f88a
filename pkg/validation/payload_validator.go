package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/pkg/models"

	"github.com/arbovm/levenshtein"
)

const (
	defaultMaxPayloadLength = 4096
	// maxSuggestionDistance bounds how far a typo may be from a known field
	maxSuggestionDistance = 3
)

// PayloadValidator checks operator-entered text against the certificate
// payload schema before it is accepted as a scan
type PayloadValidator struct {
	maxLength int
	known     map[string]struct{}
}

// NewPayloadValidator creates a validator with default limits
func NewPayloadValidator() *PayloadValidator {
	known := make(map[string]struct{}, len(models.PayloadFields))
	for _, f := range models.PayloadFields {
		known[f] = struct{}{}
	}
	return &PayloadValidator{maxLength: defaultMaxPayloadLength, known: known}
}

// ValidatePayload parses input and returns the payload, or a
// manual_input_invalid AppError whose Details say what is wrong
func (v *PayloadValidator) ValidatePayload(input string) (*models.CertificatePayload, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, apperrors.NewManualInputError("input is empty", nil)
	}
	if len(trimmed) > v.maxLength {
		return nil, apperrors.NewManualInputError(fmt.Sprintf("input exceeds %d bytes", v.maxLength), nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, apperrors.NewManualInputError("input is not a JSON object", err)
	}
	if fields == nil {
		return nil, apperrors.NewManualInputError("input is not a JSON object", nil)
	}

	if err := v.checkUnknown(fields); err != nil {
		return nil, err
	}

	var payload models.CertificatePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, apperrors.NewManualInputError(describeTypeError(err), err)
	}

	if strings.TrimSpace(payload.CertificateID) == "" {
		return nil, apperrors.NewManualInputError("certificateId is required", nil)
	}
	if strings.TrimSpace(payload.Hash) == "" {
		return nil, apperrors.NewManualInputError("hash is required", nil)
	}
	if payload.Timestamp != nil && *payload.Timestamp < 0 {
		return nil, apperrors.NewManualInputError("timestamp must not be negative", nil)
	}

	return &payload, nil
}

func (v *PayloadValidator) checkUnknown(fields map[string]json.RawMessage) error {
	var unknown []string
	for name := range fields {
		if _, ok := v.known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	name := unknown[0]
	details := fmt.Sprintf("unknown field %q", name)
	if s := v.Suggest(name); s != "" {
		details += fmt.Sprintf(", did you mean %q?", s)
	}
	return apperrors.NewManualInputError(details, nil)
}

// Suggest returns the known field closest to name, or "" when nothing is
// close enough
func (v *PayloadValidator) Suggest(name string) string {
	best, bestDist := "", maxSuggestionDistance+1
	lower := strings.ToLower(name)
	for _, field := range models.PayloadFields {
		d := levenshtein.Distance(lower, strings.ToLower(field))
		if d < bestDist {
			best, bestDist = field, d
		}
	}
	return best
}

func describeTypeError(err error) string {
	if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
		return fmt.Sprintf("field %s must be a %s", typeErr.Field, expectedType(typeErr.Field))
	}
	return "input does not match the payload schema"
}

func expectedType(field string) string {
	if field == "timestamp" {
		return "number"
	}
	return "string"
}
