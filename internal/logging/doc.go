// Package logging provides structured logging for the satelink driver.
//
// This package wraps the zap logger with convenience functions used
// throughout the driver. Logging is silent by default so that library
// use and CLI output stay clean; set SATELINK_LOG_LEVEL (or call
// Initialize with an explicit level) to enable output.
//
// # Log Levels
//
//   - Debug: frame hex dumps, queue and reconnect tracing
//   - Info: connections established/closed, monitoring started
//   - Warn: dropped connections, timeouts, rejected commands
//   - Error: decode failures, desynchronization
//
// # Structured Logging
//
// All log functions take structured fields:
//
//	logging.Info("Connected to panel",
//	    zap.String("host", "192.168.1.100"),
//	    zap.Int("port", 7094),
//	)
//
// Raw protocol traffic is logged with LogRawBytes, which attaches both a
// hex and an ASCII rendering of the data at debug level.
package logging
