// Package client implements the submitter-facing poller: submit a task,
// then repeatedly read its status through the lifecycle manager until a
// terminal state or the attempt budget is exhausted.
package client
