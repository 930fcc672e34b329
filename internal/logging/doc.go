// Package logging builds the slog loggers used by the rustactions daemon and
// CLI.
//
// It provides the console and JSON handlers, resolves output targets, and
// offers context helpers so dispatcher and HTTP code tag every line with the
// action name and request correlation id. Warnings emitted through
// WarnWithContext always carry an event type, a hint, and the user-facing
// impact.
package logging
