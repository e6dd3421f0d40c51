package domain

import (
	"fmt"
	"strconv"
)

// ChoiceKind identifies the declared type of a researcher degree of freedom.
type ChoiceKind string

// Supported choice kinds. Every ChoiceSpec declares exactly one kind and
// every value in its domain must carry that kind.
const (
	// KindCategorical is a choice over an explicit set of text labels.
	KindCategorical ChoiceKind = "categorical"

	// KindNumeric is a choice over an explicit, finite set of numbers.
	// Continuous ranges are not enumerable and are rejected at the
	// specification level rather than silently discretized.
	KindNumeric ChoiceKind = "numeric"

	// KindBoolean is a two-valued flag choice.
	KindBoolean ChoiceKind = "boolean"
)

// Value is a tagged union holding one concrete choice value: a categorical
// label, a number, or a flag. Values are small, immutable, and comparable,
// which makes protocols cheap to copy during enumeration.
type Value struct {
	kind ChoiceKind
	str  string
	num  float64
	flag bool
}

// Categorical creates a categorical Value from a text label.
func Categorical(label string) Value {
	return Value{kind: KindCategorical, str: label}
}

// Numeric creates a numeric Value.
func Numeric(n float64) Value {
	return Value{kind: KindNumeric, num: n}
}

// Boolean creates a boolean Value.
func Boolean(b bool) Value {
	return Value{kind: KindBoolean, flag: b}
}

// Kind returns the kind tag of the value.
func (v Value) Kind() ChoiceKind { return v.kind }

// Text returns the categorical label. It is only meaningful when
// Kind() == KindCategorical.
func (v Value) Text() string { return v.str }

// Number returns the numeric payload. It is only meaningful when
// Kind() == KindNumeric.
func (v Value) Number() float64 { return v.num }

// Bool returns the flag payload. It is only meaningful when
// Kind() == KindBoolean.
func (v Value) Bool() bool { return v.flag }

// Equal reports whether two values have the same kind and payload.
// Numeric comparison is exact; domains are explicit enumerations, so the
// values being compared originate from the same literals.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindCategorical:
		return v.str == other.str
	case KindNumeric:
		return v.num == other.num
	case KindBoolean:
		return v.flag == other.flag
	}
	return false
}

// Any returns the payload as an untyped value, used when flattening
// protocols into table cells.
func (v Value) Any() any {
	switch v.kind {
	case KindCategorical:
		return v.str
	case KindNumeric:
		return v.num
	case KindBoolean:
		return v.flag
	}
	return nil
}

// String returns a human-readable rendering of the value.
func (v Value) String() string {
	switch v.kind {
	case KindCategorical:
		return v.str
	case KindNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.flag)
	}
	return "<invalid>"
}

// ChoiceSpec declares one researcher degree of freedom: its name (unique
// within its step), kind, explicit finite domain of valid values, and
// documentation text. The domain must be non-empty for the spec to be
// enumerable.
type ChoiceSpec struct {
	// Name identifies the degree of freedom and becomes a column name in
	// exhaustion tables.
	Name string

	// Kind is the declared kind every domain member and every bound choice
	// must match.
	Kind ChoiceKind

	// Domain is the explicit finite set of valid values for this spec.
	Domain []Value

	// Description documents what the decision means methodologically.
	Description string
}

// BooleanDomain is the canonical two-valued domain for boolean specs.
func BooleanDomain() []Value {
	return []Value{Boolean(false), Boolean(true)}
}

// CategoricalDomain builds a categorical domain from text labels,
// preserving order.
func CategoricalDomain(labels ...string) []Value {
	domain := make([]Value, len(labels))
	for i, l := range labels {
		domain[i] = Categorical(l)
	}
	return domain
}

// NumericDomain builds a numeric domain from an explicit enumeration of
// numbers, preserving order.
func NumericDomain(values ...float64) []Value {
	domain := make([]Value, len(values))
	for i, n := range values {
		domain[i] = Numeric(n)
	}
	return domain
}

// Choice binds one concrete Value to a named ChoiceSpec.
type Choice struct {
	// Name is the name of the ChoiceSpec this value is bound to.
	Name string

	// Value is the concrete value chosen for the degree of freedom.
	Value Value
}

// String returns "name=value" for logging and error messages.
func (c Choice) String() string {
	return fmt.Sprintf("%s=%s", c.Name, c.Value)
}

// Protocol is an ordered list of Choices, one per ChoiceSpec across all
// steps of a design, representing one fully specified analysis path.
// Protocols bind positionally to the design's declared spec sequence;
// each choice additionally carries its spec name so misalignment is
// detected during validation rather than silently misbinding.
type Protocol []Choice

// Clone returns an independent copy of the protocol.
func (p Protocol) Clone() Protocol {
	out := make(Protocol, len(p))
	copy(out, p)
	return out
}

// Value looks up a choice value by spec name.
func (p Protocol) Value(name string) (Value, bool) {
	for _, c := range p {
		if c.Name == name {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Metadata is the schema and documentation surface a step exposes through
// Describe. It is consumed by documentation, flow-chart, and test tooling
// and must be producible without any real data.
type Metadata struct {
	// StepDescription holds ordered lines describing what the step computes.
	StepDescription []string

	// ChoiceDescription holds ordered lines describing the decision points
	// the step exposes.
	ChoiceDescription []string

	// Specs is the ordered list of choice specifications the step declares.
	Specs []ChoiceSpec
}
