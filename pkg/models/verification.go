package models

// QRVerifyRequest is the body posted to the verification backend
type QRVerifyRequest struct {
	QRData string `json:"qrData"`
}

// QRVerification is the backend's verdict on a scanned payload
type QRVerification struct {
	IsValid         bool   `json:"isValid"`
	BlockchainValid bool   `json:"blockchainValid"`
	QRTimestamp     string `json:"qrTimestamp"`
}

// CertificateSummary is the subset of certificate fields returned with a
// verification
type CertificateSummary struct {
	ID                string `json:"id,omitempty"`
	CertificateNumber string `json:"certificateNumber,omitempty"`
	StudentName       string `json:"studentName,omitempty"`
	Course            string `json:"course,omitempty"`
	PassingYear       int    `json:"passingYear,omitempty"`
	DateOfIssue       string `json:"dateOfIssue,omitempty"`
	Status            string `json:"status,omitempty"`
	BlockchainHash    string `json:"blockchainHash,omitempty"`
	VerificationCount int    `json:"verificationCount,omitempty"`
}

// QRVerificationResult pairs the certificate with the verdict
type QRVerificationResult struct {
	Certificate    CertificateSummary `json:"certificate"`
	QRVerification QRVerification     `json:"qrVerification"`
}

// APIResponse is the envelope every verification backend reply uses
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// VerificationStatus tracks a forwarded verification on a session
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationDone     VerificationStatus = "completed"
	VerificationFailed   VerificationStatus = "failed"
	VerificationDisabled VerificationStatus = "disabled"
)

// VerificationRecord is what a session reports about its verification
type VerificationRecord struct {
	Status VerificationStatus    `json:"status"`
	Result *QRVerificationResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}
