package domain

import (
	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// maxSuggestionDistance caps how far a categorical label may be from a
// domain member before the validator stops suggesting it.
const maxSuggestionDistance = 3

// ValidateChoice checks a single choice against its specification.
// The value must match the spec's declared kind and be an exact member of
// the spec's domain. On failure it returns an InvalidChoiceError naming the
// field, the reason, and, for categorical values, the closest valid label.
// The step parameter tags errors with the owning step and may be empty.
func ValidateChoice(step string, choice Choice, spec ChoiceSpec) error {
	if choice.Name != spec.Name {
		return NewInvalidChoiceError(step, spec.Name, choice.Name, ErrNameMismatch)
	}

	if choice.Value.Kind() != spec.Kind {
		err := NewInvalidChoiceError(step, spec.Name, choice.Value.String(), ErrWrongKind)
		return err
	}

	for _, member := range spec.Domain {
		if choice.Value.Equal(member) {
			return nil
		}
	}

	err := NewInvalidChoiceError(step, spec.Name, choice.Value.String(), ErrOutOfDomain)
	if spec.Kind == KindCategorical {
		err.Suggestion = closestLabel(choice.Value.Text(), spec.Domain)
	}
	return err
}

// ValidateChoices checks an ordered list of choices against an ordered list
// of specifications. Validation proceeds in declared order and the first
// violation aborts: a short list yields ErrMissingChoice on the first
// uncovered spec, a long list yields ErrExtraChoice on the first surplus
// choice.
func ValidateChoices(step string, choices []Choice, specs []ChoiceSpec) error {
	for i, spec := range specs {
		if i >= len(choices) {
			return NewInvalidChoiceError(step, spec.Name, "", ErrMissingChoice)
		}
		if err := ValidateChoice(step, choices[i], spec); err != nil {
			return err
		}
	}
	if len(choices) > len(specs) {
		extra := choices[len(specs)]
		return NewInvalidChoiceError(step, extra.Name, extra.Value.String(), ErrExtraChoice)
	}
	return nil
}

// ValidateSpec checks that a choice specification is enumerable: a non-empty
// domain whose every member carries the spec's declared kind. Violations are
// reported as DesignSpaceError since they make the whole choice space
// ill-defined.
func ValidateSpec(step string, spec ChoiceSpec) error {
	if len(spec.Domain) == 0 {
		return NewDesignSpaceError(step, spec.Name, ErrEmptyDomain)
	}
	for _, member := range spec.Domain {
		if member.Kind() != spec.Kind {
			return NewDesignSpaceError(step, spec.Name, ErrWrongKind)
		}
	}
	return nil
}

// closestLabel returns the domain label nearest to the given text under
// case-folded Levenshtein distance, or empty when nothing is close enough
// to be a plausible typo.
func closestLabel(text string, domain []Value) string {
	folder := cases.Fold()
	folded := folder.String(text)

	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, member := range domain {
		label := member.Text()
		dist := levenshtein.ComputeDistance(folded, folder.String(label))
		if dist < bestDist {
			best = label
			bestDist = dist
		}
	}
	return best
}
