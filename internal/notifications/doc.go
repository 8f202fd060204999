// Package notifications pushes pipeline events to an ntfy topic. With no
// topic configured the service degrades to a noop, so callers never need to
// branch on whether notifications are enabled.
package notifications
