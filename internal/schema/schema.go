package schema

// Fragment is the ordered set of type definitions contributed by one extension.
// A fragment is produced exactly once per extension and never mutated afterward.
type Fragment struct {
	Types []Type
}

// Type is a named GraphQL type definition. It is a closed set: exactly the
// concrete types in this package implement it, and consumers switch
// exhaustively over them.
type Type interface {
	// TypeName returns the name the definition claims in the schema.
	TypeName() string
	isType()
}

// ObjectType defines an object type, or extends an existing one when
// IsExtension is set. Only the root types Query, Mutation and Subscription
// may be extended.
type ObjectType struct {
	Name        string
	Description string
	Interfaces  []string
	Fields      []*FieldDefinition
	IsExtension bool
}

// InterfaceType defines an interface type.
type InterfaceType struct {
	Name        string
	Description string
	Interfaces  []string
	Fields      []*FieldDefinition
}

// ScalarType defines a custom scalar.
type ScalarType struct {
	Name        string
	Description string
}

// EnumType defines an enum and its values.
type EnumType struct {
	Name        string
	Description string
	Values      []*EnumValueDefinition
}

// UnionType defines a union of object type names.
type UnionType struct {
	Name        string
	Description string
	Members     []string
}

// InputObjectType defines an input object type.
type InputObjectType struct {
	Name        string
	Description string
	Fields      []*InputValueDefinition
}

func (t *ObjectType) TypeName() string      { return t.Name }
func (t *InterfaceType) TypeName() string   { return t.Name }
func (t *ScalarType) TypeName() string      { return t.Name }
func (t *EnumType) TypeName() string        { return t.Name }
func (t *UnionType) TypeName() string       { return t.Name }
func (t *InputObjectType) TypeName() string { return t.Name }

func (*ObjectType) isType()      {}
func (*InterfaceType) isType()   {}
func (*ScalarType) isType()      {}
func (*EnumType) isType()        {}
func (*UnionType) isType()       {}
func (*InputObjectType) isType() {}

// FieldDefinition is a field on an object or interface type.
type FieldDefinition struct {
	Name        string
	Description string
	Type        TypeRef
	Arguments   []*InputValueDefinition
}

// InputValueDefinition is a field argument or an input object field.
type InputValueDefinition struct {
	Name        string
	Description string
	Type        TypeRef
}

// EnumValueDefinition is a single enum value.
type EnumValueDefinition struct {
	Name        string
	Description string
}

// Modifier wraps a type reference. Modifiers apply in list order, each
// wrapping the previous rendering, base type first: [NonNull, List] over
// String reads "[String!]" and [List, NonNull] reads "[String]!".
type Modifier int

const (
	ModifierList Modifier = iota
	ModifierNonNull
)

// TypeRef references a named type with an ordered modifier chain.
type TypeRef struct {
	Root      string
	Modifiers []Modifier
}

// Named returns an unmodified reference to the given type.
func Named(name string) TypeRef { return TypeRef{Root: name} }

// List wraps t in a list type.
func List(t TypeRef) TypeRef {
	return TypeRef{Root: t.Root, Modifiers: append(append([]Modifier(nil), t.Modifiers...), ModifierList)}
}

// NonNull marks t non-nullable.
func NonNull(t TypeRef) TypeRef {
	return TypeRef{Root: t.Root, Modifiers: append(append([]Modifier(nil), t.Modifiers...), ModifierNonNull)}
}

// IsRootType reports whether name is one of the three extensible API entry
// point types.
func IsRootType(name string) bool {
	return name == "Query" || name == "Mutation" || name == "Subscription"
}
