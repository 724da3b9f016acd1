package registry

import "fmt"

// ValidationKind identifies which self-contained fragment rule was broken.
type ValidationKind string

const (
	RootTypeNotMarkedExtension ValidationKind = "RootTypeNotMarkedExtension"
	NonRootTypeMarkedExtension ValidationKind = "NonRootTypeMarkedExtension"
	DuplicateFieldName         ValidationKind = "DuplicateFieldName"
	DuplicateEnumValue         ValidationKind = "DuplicateEnumValue"
	DuplicateInputField        ValidationKind = "DuplicateInputField"
)

// Violation is one validation failure inside a fragment.
type Violation struct {
	Kind      ValidationKind `json:"kind"`
	Extension string         `json:"extension"`
	Type      string         `json:"type"`
	Member    string         `json:"member,omitempty"`
}

func (v *Violation) String() string {
	if v.Member != "" {
		return fmt.Sprintf("%s: %s.%s (extension %q)", v.Kind, v.Type, v.Member, v.Extension)
	}
	return fmt.Sprintf("%s: %s (extension %q)", v.Kind, v.Type, v.Extension)
}

// ValidationError aggregates all violations found in one fragment.
type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "invalid schema fragment:\n"
	for _, v := range e {
		msg += "- " + v.String() + "\n"
	}
	return msg
}

// ConflictKind identifies which ownership rule a merge broke.
type ConflictKind string

const (
	RootFieldOwnershipConflict ConflictKind = "RootFieldOwnershipConflict"
	TypeNameOwnershipConflict  ConflictKind = "TypeNameOwnershipConflict"
)

// ConflictError reports a collision between two extensions. Owner is the
// extension that registered first; Claimant is the one rejected.
type ConflictError struct {
	Kind     ConflictKind
	Owner    string
	Claimant string
	Type     string
	Field    string // set for root field conflicts
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case RootFieldOwnershipConflict:
		return fmt.Sprintf("%s: field %s.%s is owned by extension %q, cannot be claimed by %q",
			e.Kind, e.Type, e.Field, e.Owner, e.Claimant)
	default:
		return fmt.Sprintf("%s: type %s is owned by extension %q, cannot be claimed by %q",
			e.Kind, e.Type, e.Owner, e.Claimant)
	}
}
