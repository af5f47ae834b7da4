// Package lifecycle implements the task lifecycle state machine: task
// creation with the paired store-write and enqueue, the read path clients
// poll through, and the worker-reported transitions
// PENDING -> PROCESSING -> {COMPLETED | FAILED}. All transitions are
// full-record overwrites against the status store; the work channel is
// trusted to deliver each payload to at most one active worker, and
// conflicting terminal writes from a redelivery resolve last-writer-wins.
package lifecycle
