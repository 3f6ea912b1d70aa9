// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Repeat events within the configured dedup window are suppressed
// so a hot query does not flood the topic.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the simple Service interface.
package notifications
