package jbattr

import "jbasm/src/jbbytes"

// ElementValueKind is the one-byte tag of an annotation element_value
// (JVMS 4.7.16.1 Table 4.7.16.1-A).
type ElementValueKind byte

const (
	EVByte           ElementValueKind = 'B'
	EVChar           ElementValueKind = 'C'
	EVDouble         ElementValueKind = 'D'
	EVFloat          ElementValueKind = 'F'
	EVInt            ElementValueKind = 'I'
	EVLong           ElementValueKind = 'J'
	EVShort          ElementValueKind = 'S'
	EVBoolean        ElementValueKind = 'Z'
	EVString         ElementValueKind = 's'
	EVEnum           ElementValueKind = 'e'
	EVClass          ElementValueKind = 'c'
	EVAnnotation     ElementValueKind = '@'
	EVArray          ElementValueKind = '['
)

// ElementValue is one annotation element_value (JVMS 4.7.16.1). Exactly
// one payload field is meaningful, selected by Kind: ConstValueIndex for
// every primitive/string/class constant, Enum for EVEnum, Nested for
// EVAnnotation, Array for EVArray.
type ElementValue struct {
	Kind ElementValueKind

	ConstValueIndex int // constant-pool index, for primitive/string/class kinds

	EnumTypeNameIndex  int // EVEnum
	EnumConstNameIndex int

	Nested *Annotation // EVAnnotation

	Array []ElementValue // EVArray
}

// Put serializes one element_value structure.
func (v ElementValue) Put(out *jbbytes.ByteVector) {
	out.PutU8(int(v.Kind))
	switch v.Kind {
	case EVEnum:
		out.PutU16(v.EnumTypeNameIndex)
		out.PutU16(v.EnumConstNameIndex)
	case EVAnnotation:
		v.Nested.Put(out)
	case EVArray:
		out.PutU16(len(v.Array))
		for _, e := range v.Array {
			e.Put(out)
		}
	default:
		out.PutU16(v.ConstValueIndex)
	}
}

// NamedElementValue is one (name, value) entry of an annotation's
// element_value_pairs array.
type NamedElementValue struct {
	NameIndex int // UTF-8 constant-pool index of the element name
	Value     ElementValue
}

// Annotation is one runtime-visible/invisible annotation (JVMS 4.7.16),
// reused verbatim for the type_annotation variant by a wrapping struct
// that additionally carries a TypeReference and TypePath (see
// TypeAnnotation below).
type Annotation struct {
	TypeIndex     int // UTF-8 index of the annotation interface's descriptor
	ElementValues []NamedElementValue
}

// Put serializes this annotation structure (type_index, num_element_value_pairs,
// each pair).
func (a *Annotation) Put(out *jbbytes.ByteVector) {
	out.PutU16(a.TypeIndex)
	out.PutU16(len(a.ElementValues))
	for _, pair := range a.ElementValues {
		out.PutU16(pair.NameIndex)
		pair.Value.Put(out)
	}
}

// TypeAnnotation is a type_annotation structure (JVMS 4.7.20): an
// Annotation body plus the target_info/type_path prefix that locates
// which type use it decorates.
type TypeAnnotation struct {
	Target   TypeReference
	Path     []TypePath
	Payload  Annotation
}

// Put serializes the full type_annotation structure.
func (ta *TypeAnnotation) Put(out *jbbytes.ByteVector) {
	ta.Target.Put(out)
	PutTypePath(out, ta.Path)
	ta.Payload.Put(out)
}

// ParameterAnnotations holds one formal parameter's annotation list, for
// RuntimeVisibleParameterAnnotations / RuntimeInvisibleParameterAnnotations
// (JVMS 4.7.18/4.7.19).
type ParameterAnnotations struct {
	Annotations []*Annotation
}

// PutAnnotations writes a plain (count, annotation*) list, the shared
// body shape of RuntimeVisibleAnnotations and RuntimeInvisibleAnnotations
// (JVMS 4.7.16/4.7.17).
func PutAnnotations(out *jbbytes.ByteVector, anns []*Annotation) {
	out.PutU16(len(anns))
	for _, a := range anns {
		a.Put(out)
	}
}

// PutParameterAnnotations writes a num_parameters-prefixed array of
// annotation lists (JVMS 4.7.18/4.7.19).
func PutParameterAnnotations(out *jbbytes.ByteVector, params []ParameterAnnotations) {
	out.PutU8(len(params))
	for _, p := range params {
		PutAnnotations(out, p.Annotations)
	}
}

// PutTypeAnnotations writes a (count, type_annotation*) list, the shared
// body shape of RuntimeVisibleTypeAnnotations / RuntimeInvisibleTypeAnnotations
// (JVMS 4.7.20).
func PutTypeAnnotations(out *jbbytes.ByteVector, anns []*TypeAnnotation) {
	out.PutU16(len(anns))
	for _, a := range anns {
		a.Put(out)
	}
}
