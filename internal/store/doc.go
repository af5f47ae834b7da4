// Package store defines the status store port: durable keyed storage with
// per-entry expiry used to persist task state. Concrete backends live under
// internal/platform; an in-memory implementation with real TTL semantics is
// provided here for tests and single-process use.
package store
