package application

import (
	"errors"
	"iter"

	"github.com/ahrav/go-multiverse/internal/domain"
)

// ErrDuplicateChoiceName indicates two specs in one design share a name,
// which would make exhaustion-table columns ambiguous.
var ErrDuplicateChoiceName = errors.New("duplicate choice name in design")

// axis is one enumerable dimension of a design's choice space: a choice
// spec together with the step that declared it.
type axis struct {
	step string
	spec domain.ChoiceSpec
}

// Space is the fully validated Cartesian choice space of a design. It is
// cheap to construct — enumeration is lazy — and every traversal yields the
// identical deterministic sequence: the first step's first spec varies
// slowest, the last step's last spec varies fastest. That determinism is
// what lets the exhauster key rows by enumeration index regardless of
// parallel scheduling.
type Space struct {
	axes []axis
	size int
}

// Enumerate computes the choice space of a design. Before any protocol can
// be produced it validates that every choice spec across every step has a
// non-empty, kind-consistent, finite domain and that choice names are
// unique design-wide; violations yield a *domain.DesignSpaceError and no
// partial output. A design with no specs has a space of size one: the
// empty protocol.
func Enumerate(design *Design) (*Space, error) {
	var axes []axis
	seen := make(map[string]string)

	for _, step := range design.steps {
		meta := step.Describe()
		for _, spec := range meta.Specs {
			if err := domain.ValidateSpec(step.Name(), spec); err != nil {
				return nil, err
			}
			if _, exists := seen[spec.Name]; exists {
				return nil, domain.NewDesignSpaceError(step.Name(), spec.Name, ErrDuplicateChoiceName)
			}
			seen[spec.Name] = step.Name()
			axes = append(axes, axis{step: step.Name(), spec: spec})
		}
	}

	size := 1
	for _, ax := range axes {
		size *= len(ax.spec.Domain)
	}

	return &Space{axes: axes, size: size}, nil
}

// Size returns the total number of protocols in the space: the product of
// domain cardinalities over every spec in the design.
func (s *Space) Size() int { return s.size }

// ChoiceNames returns the spec names in declared order. These become the
// leading columns of an exhaustion table.
func (s *Space) ChoiceNames() []string {
	names := make([]string, len(s.axes))
	for i, ax := range s.axes {
		names[i] = ax.spec.Name
	}
	return names
}

// At decodes the protocol at the given enumeration index using mixed-radix
// positional arithmetic: index zero selects the first domain member of
// every axis, and the last axis is the fastest-varying digit. At panics if
// the index is out of range, mirroring slice semantics.
func (s *Space) At(index int) domain.Protocol {
	if index < 0 || index >= s.size {
		panic("enumeration index out of range")
	}

	protocol := make(domain.Protocol, len(s.axes))
	rem := index
	for i := len(s.axes) - 1; i >= 0; i-- {
		ax := s.axes[i]
		card := len(ax.spec.Domain)
		protocol[i] = domain.Choice{
			Name:  ax.spec.Name,
			Value: ax.spec.Domain[rem%card],
		}
		rem /= card
	}
	return protocol
}

// Protocols returns a restartable iterator over (index, protocol) pairs in
// enumeration order. Each yielded protocol is an independent copy; the
// consumer may retain it. Repeated traversals yield identical sequences.
func (s *Space) Protocols() iter.Seq2[int, domain.Protocol] {
	return func(yield func(int, domain.Protocol) bool) {
		for i := 0; i < s.size; i++ {
			if !yield(i, s.At(i)) {
				return
			}
		}
	}
}
