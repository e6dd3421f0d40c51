// Package application contains the multiverse engine: design assembly,
// pipeline execution, choice-space enumeration, exhaustive execution, power
// simulation, the embedded-fixture test harness, and the YAML design loader.
package application

import (
	"fmt"

	"github.com/ahrav/go-multiverse/internal/domain"
	"github.com/ahrav/go-multiverse/internal/ports"
)

// Design is an immutable ordered sequence of steps: the analysis pipeline
// together with the choice schemas its steps declare. A Design owns no
// data; it merely orders steps. Once assembled it is never mutated, which
// makes it safe to share across the concurrent runs a batch operation
// dispatches.
type Design struct {
	// name identifies the design in error messages and metrics labels.
	name string
	// steps holds the pipeline in execution order.
	steps []ports.Step
}

// NewDesign assembles a design from an already-resolved ordered list of
// steps. Resolving step type names to implementations is the loader's (or
// the hosting application's) concern. NewDesign rejects nil steps and
// duplicate step names, since step names tag errors and must be
// unambiguous.
func NewDesign(name string, steps ...ports.Step) (*Design, error) {
	seen := make(map[string]struct{}, len(steps))
	ordered := make([]ports.Step, 0, len(steps))
	for i, s := range steps {
		if s == nil {
			return nil, fmt.Errorf("design %s: step at position %d is nil", name, i)
		}
		id := s.Name()
		if id == "" {
			return nil, fmt.Errorf("design %s: step at position %d has an empty name", name, i)
		}
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("design %s: duplicate step name %s", name, id)
		}
		seen[id] = struct{}{}
		ordered = append(ordered, s)
	}

	return &Design{name: name, steps: ordered}, nil
}

// Name returns the design's identifier.
func (d *Design) Name() string { return d.name }

// Len returns the number of steps in the design.
func (d *Design) Len() int { return len(d.steps) }

// Steps returns a copy of the ordered step list. The returned slice is
// safe to modify without affecting the design.
func (d *Design) Steps() []ports.Step {
	out := make([]ports.Step, len(d.steps))
	copy(out, d.steps)
	return out
}

// Describe returns each step's metadata in pipeline order. This is the
// surface documentation and flow-chart tooling consumes.
func (d *Design) Describe() []domain.Metadata {
	out := make([]domain.Metadata, len(d.steps))
	for i, s := range d.steps {
		out[i] = s.Describe()
	}
	return out
}
