// Package notifications sends optional push notifications about run
// lifecycle events through ntfy. The service degrades to a noop when no
// topic is configured, so callers never need to guard their calls.
package notifications
