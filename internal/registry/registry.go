// Package registry validates extension schema fragments and merges them into
// a single ownership-tracked schema with an explicit build-then-freeze
// lifecycle. All registration happens on the sequential load path; once
// frozen the registry is read-only and safe for unsynchronized concurrent
// reads.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hageln/forgext/internal/schema"
)

// RootField keys a field contributed to one of the root types.
type RootField struct {
	Root  string `json:"root"`
	Field string `json:"field"`
}

type Registry struct {
	frozen bool

	typeOwner      map[string]string
	rootFieldOwner map[RootField]string

	// fragments in merge order, for deterministic composed SDL
	order     []string
	fragments map[string]*schema.Fragment
}

func New() *Registry {
	return &Registry{
		typeOwner:      make(map[string]string),
		rootFieldOwner: make(map[RootField]string),
		fragments:      make(map[string]*schema.Fragment),
	}
}

// Register validates frag in isolation and merges it against the accumulated
// state, recording ext as the owner of every type and root field it
// contributes. A failed fragment leaves the registry untouched.
// Re-registering a byte-identical fragment under the same extension name is
// a no-op.
func (r *Registry) Register(ext string, frag *schema.Fragment) error {
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register extension %q", ext)
	}
	if prev, ok := r.fragments[ext]; ok {
		if reflect.DeepEqual(prev, frag) {
			return nil
		}
		return fmt.Errorf("extension %q already registered a different fragment", ext)
	}
	if err := validate(ext, frag); err != nil {
		return err
	}

	// Check everything before recording anything, so a conflicting fragment
	// is excluded wholesale.
	var newTypes []string
	var newRootFields []RootField
	for _, t := range frag.Types {
		if obj, ok := t.(*schema.ObjectType); ok && obj.IsExtension {
			for _, f := range obj.Fields {
				key := RootField{Root: obj.Name, Field: f.Name}
				if owner, taken := r.rootFieldOwner[key]; taken {
					return &ConflictError{
						Kind:     RootFieldOwnershipConflict,
						Owner:    owner,
						Claimant: ext,
						Type:     obj.Name,
						Field:    f.Name,
					}
				}
				newRootFields = append(newRootFields, key)
			}
			continue
		}
		name := t.TypeName()
		if owner, taken := r.typeOwner[name]; taken {
			return &ConflictError{
				Kind:     TypeNameOwnershipConflict,
				Owner:    owner,
				Claimant: ext,
				Type:     name,
			}
		}
		newTypes = append(newTypes, name)
	}

	for _, name := range newTypes {
		r.typeOwner[name] = ext
	}
	for _, key := range newRootFields {
		r.rootFieldOwner[key] = ext
	}
	r.order = append(r.order, ext)
	r.fragments[ext] = frag
	return nil
}

// Freeze ends the load phase. It renders the composed schema and validates
// it as a whole with gqlparser; a failure here means two fragments are
// individually valid but structurally incompatible (for example a field
// referencing a type nobody defines).
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}
	sdl := r.composeSDL()
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "composed", Input: sdl}); err != nil {
		return fmt.Errorf("composed schema is invalid: %w", err)
	}
	r.frozen = true
	return nil
}

// Frozen reports whether the load phase has ended.
func (r *Registry) Frozen() bool { return r.frozen }

// TypeOwner returns the extension owning the named non-root type.
func (r *Registry) TypeOwner(name string) (string, bool) {
	ext, ok := r.typeOwner[name]
	return ext, ok
}

// RootFieldOwner returns the extension owning a field on a root type.
func (r *Registry) RootFieldOwner(root, field string) (string, bool) {
	ext, ok := r.rootFieldOwner[RootField{Root: root, Field: field}]
	return ext, ok
}

// Extensions returns the registered extension names in merge order.
func (r *Registry) Extensions() []string {
	return append([]string(nil), r.order...)
}

// ComposedSDL renders the base schema followed by every registered fragment,
// in merge order. Loading is name-sorted, so the text is stable run-to-run.
func (r *Registry) ComposedSDL() string {
	return r.composeSDL()
}

func (r *Registry) composeSDL() string {
	var b strings.Builder
	b.WriteString(schema.BaseSDL)
	for _, ext := range r.order {
		text := schema.Render(r.fragments[ext])
		if text == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(text)
	}
	return b.String()
}

// Report is the full ownership map, sufficient to debug a conflict without
// re-reading extension source.
type Report struct {
	Types      map[string]string `json:"types"`
	RootFields []RootFieldOwner  `json:"rootFields"`
}

type RootFieldOwner struct {
	Root      string `json:"root"`
	Field     string `json:"field"`
	Extension string `json:"extension"`
}

// OwnershipReport returns the current ownership state with root fields in
// sorted order.
func (r *Registry) OwnershipReport() Report {
	rep := Report{Types: make(map[string]string, len(r.typeOwner))}
	for name, ext := range r.typeOwner {
		rep.Types[name] = ext
	}
	for key, ext := range r.rootFieldOwner {
		rep.RootFields = append(rep.RootFields, RootFieldOwner{Root: key.Root, Field: key.Field, Extension: ext})
	}
	sort.Slice(rep.RootFields, func(i, j int) bool {
		if rep.RootFields[i].Root != rep.RootFields[j].Root {
			return rep.RootFields[i].Root < rep.RootFields[j].Root
		}
		return rep.RootFields[i].Field < rep.RootFields[j].Field
	})
	return rep
}

// ----- per-fragment validation -----

func validate(ext string, frag *schema.Fragment) error {
	var errs ValidationError
	for _, t := range frag.Types {
		switch t := t.(type) {
		case *schema.ObjectType:
			if schema.IsRootType(t.Name) && !t.IsExtension {
				errs = append(errs, &Violation{Kind: RootTypeNotMarkedExtension, Extension: ext, Type: t.Name})
			}
			if !schema.IsRootType(t.Name) && t.IsExtension {
				errs = append(errs, &Violation{Kind: NonRootTypeMarkedExtension, Extension: ext, Type: t.Name})
			}
			errs = append(errs, checkFieldNames(ext, t.Name, t.Fields)...)
		case *schema.InterfaceType:
			errs = append(errs, checkFieldNames(ext, t.Name, t.Fields)...)
		case *schema.EnumType:
			seen := map[string]bool{}
			for _, v := range t.Values {
				if seen[v.Name] {
					errs = append(errs, &Violation{Kind: DuplicateEnumValue, Extension: ext, Type: t.Name, Member: v.Name})
				}
				seen[v.Name] = true
			}
		case *schema.InputObjectType:
			seen := map[string]bool{}
			for _, f := range t.Fields {
				if seen[f.Name] {
					errs = append(errs, &Violation{Kind: DuplicateInputField, Extension: ext, Type: t.Name, Member: f.Name})
				}
				seen[f.Name] = true
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkFieldNames(ext, typeName string, fields []*schema.FieldDefinition) ValidationError {
	var errs ValidationError
	seen := map[string]bool{}
	for _, f := range fields {
		if seen[f.Name] {
			errs = append(errs, &Violation{Kind: DuplicateFieldName, Extension: ext, Type: typeName, Member: f.Name})
		}
		seen[f.Name] = true
	}
	return errs
}
