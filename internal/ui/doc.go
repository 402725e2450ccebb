// Package ui implements the terminal dashboard for live panel monitoring.
//
// This package uses Bubble Tea and Lipgloss to render a full-screen board of
// the panel's current state: partition states, zone and output boards, and a
// short event log. Driver callbacks are converted into messages and pushed
// into the program; the model itself is pure, so it can be exercised in tests
// without a terminal.
//
// # Logging Integration
//
// This package expects logging to be controlled via the SATELINK_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the dashboard to own the terminal. Set SATELINK_LOG_LEVEL to "debug",
// "info", "warn", or "error" to enable logging output (it will interleave
// with the dashboard, so prefer the plain watch command when debugging).
package ui
