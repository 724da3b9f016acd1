package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRenderTypeRefModifierOrder(t *testing.T) {
	cases := []struct {
		name string
		ref  TypeRef
		want string
	}{
		{"named", Named("String"), "String"},
		{"non-null then list", TypeRef{Root: "String", Modifiers: []Modifier{ModifierNonNull, ModifierList}}, "[String!]"},
		{"list then non-null", TypeRef{Root: "String", Modifiers: []Modifier{ModifierList, ModifierNonNull}}, "[String]!"},
		{"builder non-null list of non-null", NonNull(List(NonNull(Named("Int")))), "[Int!]!"},
		{"nested lists", List(List(Named("ID"))), "[[ID]]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RenderTypeRef(tc.ref))
		})
	}
}

func TestRenderObjectExtension(t *testing.T) {
	frag := &Fragment{Types: []Type{
		&ObjectType{
			Name:        "Query",
			IsExtension: true,
			Fields: []*FieldDefinition{
				{
					Name: "getIssue",
					Type: NonNull(Named("Issue")),
					Arguments: []*InputValueDefinition{
						{Name: "id", Type: NonNull(Named("ID"))},
					},
				},
			},
		},
		&ObjectType{
			Name:        "Issue",
			Description: "A tracked issue.",
			Interfaces:  []string{"Node"},
			Fields: []*FieldDefinition{
				{Name: "id", Type: NonNull(Named("ID"))},
				{Name: "title", Type: Named("String")},
			},
		},
	}}

	want := strings.Join([]string{
		"extend type Query {",
		"  getIssue(id: ID!): Issue!",
		"}",
		"",
		"\"A tracked issue.\"",
		"type Issue implements Node {",
		"  id: ID!",
		"  title: String",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, Render(frag)); diff != "" {
		t.Errorf("rendered SDL mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDescriptions(t *testing.T) {
	single := &Fragment{Types: []Type{
		&ScalarType{Name: "Sha", Description: `A 40-char "hex" object id.`},
	}}
	require.Equal(t, "\"A 40-char \\\"hex\\\" object id.\"\nscalar Sha\n", Render(single))

	multi := &Fragment{Types: []Type{
		&ScalarType{Name: "Sha", Description: "An object id.\n  Always lowercase hex."},
	}}
	want := strings.Join([]string{
		`"""`,
		"An object id.",
		"Always lowercase hex.",
		`"""`,
		"scalar Sha",
		"",
	}, "\n")
	require.Equal(t, want, Render(multi))
}

func TestRenderEnumUnionInput(t *testing.T) {
	frag := &Fragment{Types: []Type{
		&EnumType{Name: "IssueState", Values: []*EnumValueDefinition{
			{Name: "OPEN"}, {Name: "CLOSED"},
		}},
		&UnionType{Name: "Target", Members: []string{"Issue", "MergeRequest"}},
		&InputObjectType{Name: "IssueFilter", Fields: []*InputValueDefinition{
			{Name: "state", Type: Named("IssueState")},
			{Name: "labels", Type: List(NonNull(Named("String")))},
		}},
	}}
	want := strings.Join([]string{
		"enum IssueState {",
		"  OPEN",
		"  CLOSED",
		"}",
		"",
		"union Target = Issue | MergeRequest",
		"",
		"input IssueFilter {",
		"  state: IssueState",
		"  labels: [String!]",
		"}",
		"",
	}, "\n")
	require.Equal(t, want, Render(frag))
}

// Rendering is a pure function of the fragment value: two calls over the
// same fragment produce byte-identical text.
func TestRenderIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frag := genFragment(t)
		first := Render(frag)
		second := Render(frag)
		require.Equal(t, first, second)
	})
}

func genFragment(t *rapid.T) *Fragment {
	name := rapid.StringMatching(`[A-Z][a-zA-Z0-9]{0,8}`)
	fieldName := rapid.StringMatching(`[a-z][a-zA-Z0-9]{0,8}`)
	desc := rapid.OneOf(
		rapid.Just(""),
		rapid.StringMatching(`[ -~]{0,20}`),
		rapid.StringMatching(`[a-z ]{1,10}\n[a-z ]{1,10}`),
	)
	ref := rapid.Custom(func(t *rapid.T) TypeRef {
		return TypeRef{
			Root:      name.Draw(t, "root"),
			Modifiers: rapid.SliceOfN(rapid.SampledFrom([]Modifier{ModifierList, ModifierNonNull}), 0, 3).Draw(t, "modifiers"),
		}
	})
	field := rapid.Custom(func(t *rapid.T) *FieldDefinition {
		return &FieldDefinition{
			Name:        fieldName.Draw(t, "field"),
			Description: desc.Draw(t, "fieldDesc"),
			Type:        ref.Draw(t, "fieldType"),
		}
	})
	typ := rapid.Custom(func(t *rapid.T) Type {
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			return &ObjectType{
				Name:        name.Draw(t, "objName"),
				Description: desc.Draw(t, "objDesc"),
				Fields:      rapid.SliceOfN(field, 1, 4).Draw(t, "objFields"),
				IsExtension: rapid.Bool().Draw(t, "isExtension"),
			}
		case 1:
			return &ScalarType{Name: name.Draw(t, "scalarName"), Description: desc.Draw(t, "scalarDesc")}
		case 2:
			return &EnumType{
				Name: name.Draw(t, "enumName"),
				Values: []*EnumValueDefinition{
					{Name: rapid.StringMatching(`[A-Z_]{1,8}`).Draw(t, "enumValue")},
				},
			}
		default:
			return &UnionType{
				Name:    name.Draw(t, "unionName"),
				Members: rapid.SliceOfN(name, 1, 3).Draw(t, "members"),
			}
		}
	})
	return &Fragment{Types: rapid.SliceOfN(typ, 0, 5).Draw(t, "types")}
}
