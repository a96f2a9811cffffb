// Package work runs a named set of periodic workers as isolated
// goroutines coordinated only through bounded queues.
package work

import "context"

// A Worker is one independent periodic-execution unit. The hub calls Work
// once per tick at the target frequency; Work must observe ctx inside any
// wait it performs so shutdown is prompt.
type Worker interface {
	// Name identifies the worker in logs.
	Name() string
	// Frequency is the target tick rate in Hz. A non-positive value means
	// Work paces itself (e.g. by a bounded socket read) and the hub
	// schedules it back to back.
	Frequency() float64
	// Work executes one tick. Returning an error terminates this worker
	// only; its peers keep running.
	Work(ctx context.Context) error
	// Close releases the worker's resources after its loop has exited.
	Close() error
}
