package ports

import "context"

// Conditional is one trigger of a pipe.
type Conditional interface {
	ID() string

	// Evaluate reports whether the condition fired. Implementations compute
	// the result once and return the cached value on later calls.
	Evaluate(ctx context.Context) (bool, error)

	// Checkpoint returns the value to record for this condition should the
	// pipe's run be persisted. It is fixed when the condition is built.
	Checkpoint() any
}
