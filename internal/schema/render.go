package schema

import (
	"strings"
)

// Render produces SDL text for a fragment. The output is a pure function of
// the fragment value: types render in fragment order and rendering the same
// fragment twice yields byte-identical text.
func Render(f *Fragment) string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for _, t := range f.Types {
		switch t := t.(type) {
		case *ObjectType:
			renderObject(&b, t)
		case *InterfaceType:
			renderInterface(&b, t)
		case *ScalarType:
			renderScalar(&b, t)
		case *EnumType:
			renderEnum(&b, t)
		case *UnionType:
			renderUnion(&b, t)
		case *InputObjectType:
			renderInputObject(&b, t)
		}
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}

// RenderTypeRef renders a type reference, applying modifiers in list order.
func RenderTypeRef(t TypeRef) string {
	s := t.Root
	for _, m := range t.Modifiers {
		switch m {
		case ModifierList:
			s = "[" + s + "]"
		case ModifierNonNull:
			s = s + "!"
		}
	}
	return s
}

// ----- render helpers -----

// renderDescription writes a description at the given indent. Single-line
// descriptions render as a quoted string; multi-line descriptions render as a
// triple-quoted block with each line re-indented.
func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	lines := strings.Split(desc, "\n")
	if len(lines) == 1 {
		b.WriteString(indent)
		b.WriteString("\"")
		b.WriteString(strings.ReplaceAll(desc, "\"", "\\\""))
		b.WriteString("\"\n")
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	for _, line := range lines {
		b.WriteString(indent)
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

func renderObject(b *strings.Builder, t *ObjectType) {
	renderDescription(b, t.Description, "")
	if t.IsExtension {
		b.WriteString("extend ")
	}
	b.WriteString("type ")
	b.WriteString(t.Name)
	renderImplements(b, t.Interfaces)
	b.WriteString(" {\n")
	for _, f := range t.Fields {
		renderField(b, f)
	}
	b.WriteString("}\n\n")
}

func renderInterface(b *strings.Builder, t *InterfaceType) {
	renderDescription(b, t.Description, "")
	b.WriteString("interface ")
	b.WriteString(t.Name)
	renderImplements(b, t.Interfaces)
	b.WriteString(" {\n")
	for _, f := range t.Fields {
		renderField(b, f)
	}
	b.WriteString("}\n\n")
}

func renderImplements(b *strings.Builder, interfaces []string) {
	if len(interfaces) == 0 {
		return
	}
	b.WriteString(" implements ")
	for i, iface := range interfaces {
		if i > 0 {
			b.WriteString(" & ")
		}
		b.WriteString(iface)
	}
}

func renderScalar(b *strings.Builder, t *ScalarType) {
	renderDescription(b, t.Description, "")
	b.WriteString("scalar ")
	b.WriteString(t.Name)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, t *EnumType) {
	renderDescription(b, t.Description, "")
	b.WriteString("enum ")
	b.WriteString(t.Name)
	b.WriteString(" {\n")
	for _, v := range t.Values {
		renderDescription(b, v.Description, "  ")
		b.WriteString("  ")
		b.WriteString(v.Name)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderUnion(b *strings.Builder, t *UnionType) {
	renderDescription(b, t.Description, "")
	b.WriteString("union ")
	b.WriteString(t.Name)
	b.WriteString(" = ")
	for i, m := range t.Members {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(m)
	}
	b.WriteString("\n\n")
}

func renderInputObject(b *strings.Builder, t *InputObjectType) {
	renderDescription(b, t.Description, "")
	b.WriteString("input ")
	b.WriteString(t.Name)
	b.WriteString(" {\n")
	for _, f := range t.Fields {
		renderDescription(b, f.Description, "  ")
		b.WriteString("  ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(RenderTypeRef(f.Type))
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderField(b *strings.Builder, f *FieldDefinition) {
	renderDescription(b, f.Description, "  ")
	b.WriteString("  ")
	b.WriteString(f.Name)
	if len(f.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range f.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Name)
			b.WriteString(": ")
			b.WriteString(RenderTypeRef(arg.Type))
		}
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(RenderTypeRef(f.Type))
	b.WriteString("\n")
}
