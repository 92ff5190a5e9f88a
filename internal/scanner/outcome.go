package scanner

import (
	"errors"
	"fmt"

	apperrors "github.com/anime-shed/certscan-go/internal/errors"
	"github.com/anime-shed/certscan-go/internal/frame"
)

// ErrScannerClosed is returned by every operation after Close
var ErrScannerClosed = errors.New("scanner closed")

// OutcomeKind is the result of one acquisition lifecycle
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeDecoded
	OutcomeFailed
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeDecoded:
		return "decoded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// MarshalText renders the kind for JSON
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is what a scan lifecycle ended with. Payload is set only for
// OutcomeDecoded, Err only for OutcomeFailed.
type Outcome struct {
	Kind    OutcomeKind
	Payload string
	Err     error
}

// AcquisitionState tracks device access
type AcquisitionState int

const (
	StateNotStarted AcquisitionState = iota
	StateRequesting
	StateGranted
	StateDenied
	StateRetrying
)

func (s AcquisitionState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRequesting:
		return "requesting"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateRetrying:
		return "retrying"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state for JSON
func (s AcquisitionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoopState is the scan loop controller state
type LoopState int

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopStopped
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopStopped:
		return "stopped"
	default:
		return fmt.Sprintf("loop(%d)", int(s))
	}
}

// MarshalText renders the loop state for JSON
func (s LoopState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FrameInfo describes the most recently scanned frame
type FrameInfo struct {
	Width  int
	Height int
	Stats  frame.Stats
}

// Status is a point-in-time snapshot for host UIs
type Status struct {
	State           AcquisitionState
	Reason          *apperrors.AppError
	Loop            LoopState
	Ticks           uint64
	Facing          string
	Torch           bool
	TorchAvailable  bool
	ManualAvailable bool
	Outcome         Outcome
	Closed          bool
	LastFrame       *FrameInfo
}
