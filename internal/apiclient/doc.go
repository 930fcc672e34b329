// Package apiclient is the CLI's HTTP client for the rustactions daemon.
//
// Responses use the daemon's JSON envelopes. Error envelopes become *Error
// values that unwrap to the services sentinel matching the HTTP status, so
// callers can test them with errors.Is(err, services.ErrNotFound).
package apiclient
