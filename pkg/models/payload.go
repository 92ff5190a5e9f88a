package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CertificatePayload is the JSON document carried by a certificate QR code
// and accepted by manual entry
type CertificatePayload struct {
	CertificateID string `json:"certificateId"`
	Hash          string `json:"hash"`
	// Timestamp is unix milliseconds
	Timestamp    *int64 `json:"timestamp,omitempty"`
	BlockchainTx string `json:"blockchainTx,omitempty"`
}

// PayloadFields lists every field the schema knows about
var PayloadFields = []string{"certificateId", "hash", "timestamp", "blockchainTx"}

// SamplePayload returns the example pre-filled in the manual entry prompt
func SamplePayload(now time.Time) CertificatePayload {
	ts := now.UnixMilli()
	return CertificatePayload{
		CertificateID: "CERT-123456",
		Hash:          "abc123def456",
		Timestamp:     &ts,
		BlockchainTx:  "0x1234abcd",
	}
}

// String renders the payload the way it is encoded in a QR code
func (p CertificatePayload) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Sprintf("%+v", struct {
			CertificateID string
			Hash          string
		}{p.CertificateID, p.Hash})
	}
	return string(data)
}
