// Package worker ties the work channel, the lifecycle manager, and the
// generator together: a pool of goroutines claims deliveries, marks tasks
// processing, generates text, writes the terminal outcome, and only then
// acknowledges the message.
package worker
