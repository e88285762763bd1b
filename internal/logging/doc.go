// Package logging provides a simple leveled logging interface for the
// photo ingestion pipeline, backed by logrus.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions (including per-item failures)
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the run
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true.
package logging
