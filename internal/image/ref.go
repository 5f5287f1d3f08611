package image

// TypeRef is an entry in an assembly's type-reference table: a type
// defined in another assembly, identified by qualified name.
type TypeRef struct {
	Assembly  string
	Name      string
	ValueType bool
}

// Qualified returns the stable type-identity key "Assembly::Name".
func (r *TypeRef) Qualified() string {
	return r.Assembly + "::" + r.Name
}

// MethodRef is an entry in an assembly's method-reference table. It
// carries enough shape information (arity, return convention, static
// vs. instance) for call-site construction and verification.
type MethodRef struct {
	Assembly     string
	Type         string
	Name         string
	ParamCount   int
	ReturnsValue bool
	Static       bool
}

// Qualified returns the method identity "Assembly::Type.Name".
func (r *MethodRef) Qualified() string {
	return r.Assembly + "::" + r.Type + "." + r.Name
}

// ImportType adds a type reference to the assembly's table, reusing an
// existing entry with the same identity.
func (a *Assembly) ImportType(ref TypeRef) *TypeRef {
	for _, existing := range a.TypeRefs {
		if existing.Assembly == ref.Assembly && existing.Name == ref.Name {
			return existing
		}
	}
	out := &TypeRef{Assembly: ref.Assembly, Name: ref.Name, ValueType: ref.ValueType}
	a.TypeRefs = append(a.TypeRefs, out)
	return out
}

// ImportMethod imports a method declared in another image into this
// assembly's method-reference table, deduplicated by identity.
func (a *Assembly) ImportMethod(m *Method) *MethodRef {
	ref := MethodRef{
		Assembly:     m.Type.Module.Assembly.Name,
		Type:         m.Type.Name,
		Name:         m.Name,
		ParamCount:   len(m.Params),
		ReturnsValue: m.ReturnsValue,
		Static:       m.Static,
	}
	for _, existing := range a.MethodRefs {
		if existing.Assembly == ref.Assembly && existing.Type == ref.Type && existing.Name == ref.Name {
			return existing
		}
	}
	out := &MethodRef{}
	*out = ref
	a.MethodRefs = append(a.MethodRefs, out)
	return out
}

// TypeRefFor returns the import-table view of a type definition,
// importing it when the definition lives in another assembly.
func (a *Assembly) TypeRefFor(t *TypeDef) *TypeRef {
	return a.ImportType(TypeRef{
		Assembly:  t.Module.Assembly.Name,
		Name:      t.Name,
		ValueType: t.ValueType,
	})
}
