package ports

import (
	"github.com/ahrav/go-multiverse/internal/domain"
)

// Params is one named parameter combination consumed by an input generator
// during power simulation, e.g. {"n": 200, "effect": 0.3}.
type Params map[string]any

// InputGenerator draws one fresh input instance for the given parameters.
// Each call must be an independent stochastic draw; the generator owns its
// randomness and must be safe for concurrent calls, since the power
// simulator dispatches replications in parallel. The generator is an
// external collaborator: the engine treats the returned state as opaque
// beyond being the first step's input.
type InputGenerator func(params Params) (domain.State, error)
