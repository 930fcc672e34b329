// Package notifications pushes daemon alerts to an ntfy topic.
//
// NewService returns a noop implementation when no topic is configured, so
// callers never branch on configuration. Forward bridges the events hub to a
// Service: finished syncs always notify, failed actions only when
// notifications.action_failures is set.
package notifications
