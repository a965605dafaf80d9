// Package logging provides slog-based structured logging for resumeup.
//
// Two output formats are supported: a human-oriented console format that
// promotes the component attribute into the message prefix, and plain JSON
// for log files. Attr helpers and standardized field keys keep log lines
// consistent across packages.
package logging
