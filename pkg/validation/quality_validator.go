package validation

// QualityThresholds defines the limits a live camera frame is held to
// before the operator is told to adjust lighting or distance
type QualityThresholds struct {
	// Brightness thresholds on the 0-255 luminance mean
	MinBrightness float64
	MaxBrightness float64

	// MinContrast is the lowest acceptable luminance standard deviation
	MinContrast float64

	// Resolution thresholds
	MinWidth  int
	MinHeight int
}

// DefaultQualityThresholds returns the default quality thresholds
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinBrightness: 40.0,
		MaxBrightness: 230.0,
		MinContrast:   12.0,
		MinWidth:      320,
		MinHeight:     240,
	}
}

// QualityValidator turns frame statistics into operator hints
type QualityValidator struct {
	thresholds QualityThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultQualityThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds QualityThresholds) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning", "info"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// FrameQualityMetrics are the measurements taken from the latest frame
type FrameQualityMetrics struct {
	Width  int
	Height int
	Mean   float64
	StdDev float64
	// TorchAvailable changes the advice for dark frames
	TorchAvailable bool
}

// ValidateFrame checks one frame's statistics
func (qv *QualityValidator) ValidateFrame(metrics FrameQualityMetrics) []QualityIssue {
	var issues []QualityIssue

	if metrics.Width < qv.thresholds.MinWidth || metrics.Height < qv.thresholds.MinHeight {
		issues = append(issues, QualityIssue{
			Type:        "low_resolution",
			Message:     "Camera resolution is too low to read a QR code reliably.",
			Severity:    "warning",
			ActualValue: float64(metrics.Width * metrics.Height),
			Threshold:   float64(qv.thresholds.MinWidth * qv.thresholds.MinHeight),
		})
	}

	if metrics.Mean <= qv.thresholds.MinBrightness {
		msg := "Image is too dark. Move to a brighter area."
		if metrics.TorchAvailable {
			msg = "Image is too dark. Turn on the flashlight."
		}
		issues = append(issues, QualityIssue{
			Type:        "too_dark",
			Message:     msg,
			Severity:    "error",
			ActualValue: metrics.Mean,
			Threshold:   qv.thresholds.MinBrightness,
		})
	} else if metrics.Mean >= qv.thresholds.MaxBrightness {
		issues = append(issues, QualityIssue{
			Type:        "too_bright",
			Message:     "Image is too bright. Avoid glare on the code.",
			Severity:    "error",
			ActualValue: metrics.Mean,
			Threshold:   qv.thresholds.MaxBrightness,
		})
	}

	// Contrast is meaningless on a saturated frame, the brightness issue covers it
	if len(issues) == 0 || issues[len(issues)-1].Type == "low_resolution" {
		if metrics.StdDev < qv.thresholds.MinContrast {
			issues = append(issues, QualityIssue{
				Type:        "low_contrast",
				Message:     "Position the QR code within the frame.",
				Severity:    "warning",
				ActualValue: metrics.StdDev,
				Threshold:   qv.thresholds.MinContrast,
			})
		}
	}

	return issues
}

// ConvertIssuesToMessages converts quality issues to simple messages
func (qv *QualityValidator) ConvertIssuesToMessages(issues []QualityIssue) []string {
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return messages
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
