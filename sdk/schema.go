package sdk

import (
	"github.com/hageln/forgext/internal/extension"
	"github.com/hageln/forgext/internal/schema"
)

// The schema fragment model and the capability names are re-exported here so
// an extension module outside this repository never has to reach into
// internal packages. The aliases are the same types the host consumes; no
// conversion happens at the boundary.

// APIVersion is the extension ABI version the host speaks. Info.APIVersion
// must match it exactly.
const APIVersion = extension.APIVersion

// Capability names a host facility an extension requires at handshake time.
type Capability = extension.Capability

const (
	CapabilityLog      Capability = extension.CapabilityLog
	CapabilityDatabase Capability = extension.CapabilityDatabase
)

// Fragment is the extension's schema contribution, returned from Schema.
type Fragment = schema.Fragment

// SchemaType is one definition inside a Fragment.
type SchemaType = schema.Type

type (
	ObjectType      = schema.ObjectType
	InterfaceType   = schema.InterfaceType
	ScalarType      = schema.ScalarType
	EnumType        = schema.EnumType
	UnionType       = schema.UnionType
	InputObjectType = schema.InputObjectType

	FieldDefinition      = schema.FieldDefinition
	InputValueDefinition = schema.InputValueDefinition
	EnumValueDefinition  = schema.EnumValueDefinition

	TypeRef  = schema.TypeRef
	Modifier = schema.Modifier
)

const (
	ModifierList    = schema.ModifierList
	ModifierNonNull = schema.ModifierNonNull
)

// Named returns an unmodified reference to the given type.
func Named(name string) TypeRef { return schema.Named(name) }

// List wraps t in a list type.
func List(t TypeRef) TypeRef { return schema.List(t) }

// NonNull marks t non-nullable.
func NonNull(t TypeRef) TypeRef { return schema.NonNull(t) }
