// Package queue defines the work channel port: an at-least-once delivery
// queue carrying serialized task payloads from producers to workers, with
// an acknowledgment primitive that drives redelivery on worker crash. The
// broker-backed implementation lives under internal/platform/rabbitmq; the
// in-memory implementation here serves tests and single-process setups.
package queue
