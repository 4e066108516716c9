// Package store implements the durable key-value state backing the
// moderation engine. Values are opaque strings; key layout and typed
// accessors live in internal/state.
package store
