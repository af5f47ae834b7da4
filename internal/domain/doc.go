// Package domain defines the core task entity, its lifecycle states, and
// the stable JSON wire format shared by the producer and worker processes.
package domain
