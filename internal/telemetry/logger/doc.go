// Package logger provides structured logging for Resonance.
//
//   - logger.go: slog-backed Logger, level control, package-level default
//   - context.go: logger and request ID propagation through context
//   - redact.go: masking of credentials and bearer tokens
//
// Anything that looks like a password, JWT or bearer credential is
// redacted before it reaches the handler, so call sites can log request
// attributes without filtering them first.
package logger
