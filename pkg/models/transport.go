package models

// DeviceKind selects the frame source a session reads from
type DeviceKind string

const (
	DevicePush     DeviceKind = "push"
	DeviceSnapshot DeviceKind = "snapshot"
	DeviceBlob     DeviceKind = "blob"
)

// DeviceCapabilities is what a pushing client declares about its camera
type DeviceCapabilities struct {
	Facings      []string `json:"facings,omitempty"`
	MaxWidth     int      `json:"max_width,omitempty"`
	MaxHeight    int      `json:"max_height,omitempty"`
	MaxFrameRate int      `json:"max_frame_rate,omitempty"`
	Torch        bool     `json:"torch,omitempty"`
}

// CreateSessionRequest opens a new scan session
type CreateSessionRequest struct {
	Device       DeviceKind          `json:"device" binding:"required,oneof=push snapshot blob"`
	SourceURL    string              `json:"source_url,omitempty"`
	Facing       string              `json:"facing,omitempty"`
	Profile      string              `json:"profile,omitempty"`
	Capabilities *DeviceCapabilities `json:"capabilities,omitempty"`
}

// ManualEntryRequest submits a payload typed by the operator
type ManualEntryRequest struct {
	Payload string `json:"payload"`
}

// DeviceErrorRequest reports an acquisition failure seen by a push client.
// An empty Error clears a previous report.
type DeviceErrorRequest struct {
	Error string `json:"error"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// OutcomeResponse describes the last scan outcome of a session
type OutcomeResponse struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionResponse is the externally visible state of a scan session
type SessionResponse struct {
	ID               string              `json:"id"`
	Device           DeviceKind          `json:"device"`
	Profile          string              `json:"profile"`
	CreatedAt        string              `json:"created_at"`
	AcquisitionState string              `json:"acquisition_state"`
	Reason           string              `json:"reason,omitempty"`
	Message          string              `json:"message,omitempty"`
	LoopRunning      bool                `json:"loop_running"`
	Ticks            uint64              `json:"ticks"`
	Facing           string              `json:"facing"`
	Torch            bool                `json:"torch"`
	TorchAvailable   bool                `json:"torch_available"`
	ManualAvailable  bool                `json:"manual_available"`
	Closed           bool                `json:"closed"`
	Outcome          *OutcomeResponse    `json:"outcome,omitempty"`
	LastFrameMean    float64             `json:"last_frame_mean,omitempty"`
	LastFrameStdDev  float64             `json:"last_frame_stddev,omitempty"`
	Verification     *VerificationRecord `json:"verification,omitempty"`
	Errors           []string            `json:"errors,omitempty"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status   string `json:"status"`
	Time     string `json:"time"`
	Sessions int    `json:"sessions"`
}
