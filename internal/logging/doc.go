// Package logging provides a simple leveled logging interface for the
// media library server.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable, or
// forced to debug with DEBUG=true. Subsystems that log a lot (the transcode
// pipeline, the cache) use For to obtain a Logger that tags each line with
// the component name.
package logging
