package satel

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once the driver has been shut down.
	ErrClosed = errors.New("driver is closed")

	// ErrQueueStopped is returned to callers whose command could not be
	// completed because the queue was stopped.
	ErrQueueStopped = errors.New("message queue is stopped")

	// ErrQueueFull is returned when the pending command buffer is full.
	ErrQueueFull = errors.New("message queue is full")

	// ErrResponseTimeout is returned when the panel does not answer a
	// command within the response timeout.
	ErrResponseTimeout = errors.New("no response received from panel")

	// ErrMonitoringRejected is returned when the panel refuses the
	// requested set of monitored state reports.
	ErrMonitoringRejected = errors.New("monitoring request rejected by panel")

	// ErrUserCodeNotFound is the panel's result code 0x01: the supplied
	// user code does not exist.
	ErrUserCodeNotFound = errors.New("user code not found")
)

// PanelError is a non-OK result code reported by the panel for a write
// command. Known codes get dedicated sentinels; everything else is
// surfaced verbatim.
type PanelError struct {
	Code byte
}

func (e *PanelError) Error() string {
	return fmt.Sprintf("panel rejected command with result code 0x%02X", e.Code)
}

// ResultError maps a RESULT payload byte to an error. 0x00 means the
// command succeeded and 0xFF means it was accepted for processing; both
// map to nil.
func ResultError(code byte) error {
	switch code {
	case 0x00, 0xFF:
		return nil
	case 0x01:
		return ErrUserCodeNotFound
	default:
		return &PanelError{Code: code}
	}
}
