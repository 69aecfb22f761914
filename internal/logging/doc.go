// Package logging provides structured logging utilities for the calbot application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (attendee email anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calcom.list")
//	logger.Info("listing bookings",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("booking created",
//	    logging.UserHash(attendeeEmail))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Attendee emails are hashed to prevent PII leakage while allowing correlation
//   - API keys are never logged directly
package logging
