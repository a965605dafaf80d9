// Package notifications delivers push notifications for lifecycle events via
// ntfy. When no topic is configured a noop implementation is returned, so
// callers never branch on whether notifications are enabled.
package notifications
