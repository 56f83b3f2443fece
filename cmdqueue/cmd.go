// Package cmdqueue implements the single-threaded priority cmd scheduler
// every logical role in a node runs its work through: one goroutine per
// role drains a deadline-ordered heap, and a cmd that produces further
// cmds enqueues them atomically within the same tick.
package cmdqueue

import "context"

// Cmd is a unit of scheduled work. Run may return further cmds to enqueue;
// the scheduler makes no attempt to retry a cmd that returns an error --
// retries must be expressed as fresh cmds with explicit back-off.
type Cmd interface {
	Run(ctx context.Context) ([]Cmd, error)
}

// Priority orders cmds of equal deadline; lower values run first.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 1
	PriorityLow    Priority = 2
)

// Func adapts a plain function to the Cmd interface for cmds that never
// produce follow-on work.
type Func func(ctx context.Context) error

func (f Func) Run(ctx context.Context) ([]Cmd, error) {
	return nil, f(ctx)
}
