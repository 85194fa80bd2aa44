// Package jbattr holds the value-bearing helper types shared across
// MethodWriter, FieldWriter, and ClassWriter: annotation trees, generic
// attribute prototypes, exception-table entries, and type-annotation
// targets (section 2 "Annotation, Attribute, Handler, TypePath,
// TypeReference").
package jbattr

import "jbasm/src/jbbytes"

// Attribute is a generic, already-serialized class/field/method/code
// attribute: a name (interned separately by the writer that owns it) and
// its raw info bytes. User-defined or unrecognized attributes round-trip
// through this shape without the writer understanding their contents.
type Attribute struct {
	Name string
	Info []byte

	// Next threads a singly-linked attribute list, mirroring Handler's
	// linkage and classloader.go's intrusive-list convention for per-method
	// bookkeeping records.
	Next *Attribute
}

// PutBody writes this attribute's u4 attribute_length and its info bytes.
// The attribute_name_index is not written here, since Attribute itself
// doesn't own a SymbolTable: callers write it first, then call PutBody.
func (a *Attribute) PutBody(out *jbbytes.ByteVector) {
	out.PutU32(uint32(len(a.Info)))
	out.PutBytes(a.Info)
}

// Handler is one exception_table entry of a Code attribute (JVMS 4.7.3).
// CatchType is a constant-pool Class index, or 0 for a finally handler
// that catches everything.
type Handler struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType int

	// CatchTypeTableIndex is the jbsym type-table index of the caught
	// type, consulted by jbframe when building the handler's input
	// frame; -1 when CatchType == 0 (java/lang/Throwable is substituted).
	CatchTypeTableIndex int

	Next *Handler
}

// TypePath is one step of a type_path array in a type_annotation
// structure (JVMS 4.7.20.2): a path_kind (0-3) and, for ARRAY_TYPE_ARGUMENT
// (kind 3), the type argument index.
type TypePath struct {
	Kind            int
	TypeArgumentIdx int
}

// Path-kind constants, JVMS 4.7.20.2 Table 4.7.20.2-A.
const (
	PathArray = iota
	PathNested
	PathWildcardBound
	PathTypeArgument
)

// PutTypePath writes a type_path array (JVMS 4.7.20.2): a u1 count
// followed by count (path_kind, argument_index) pairs.
func PutTypePath(out *jbbytes.ByteVector, path []TypePath) {
	out.PutU8(len(path))
	for _, p := range path {
		out.PutU8(p.Kind)
		out.PutU8(p.TypeArgumentIdx)
	}
}

// TypeReference packs the target_type and type_parameter/supertype/
// formal-parameter/throws/localvar/catch/offset discriminants a
// type_annotation's target_info encodes (JVMS 4.7.20.1). Only the fields
// relevant to the concrete TargetType are meaningful; the writer fills in
// the rest as zero.
type TypeReference struct {
	TargetType int

	TypeParameterIndex int
	SupertypeIndex     int // 65535 means the class's own superclass
	BoundIndex         int
	FormalParameterIdx int
	ThrowsTypeIndex    int
	CatchExceptionIdx  int
	MethodOffset       int // for LOCAL_VARIABLE/RESOURCE_VARIABLE/OFFSET-family targets

	// LocalVarTable holds (start_pc, length, index) triples for
	// LOCAL_VARIABLE / RESOURCE_VARIABLE targets (JVMS 4.7.20.1 table_length).
	LocalVarTable []LocalVarTarget
}

// LocalVarTarget is one entry of a type_annotation's localvar_target.
type LocalVarTarget struct {
	StartPC int
	Length  int
	Index   int
}

// Target-type constants, JVMS 4.7.20.1 Tables 4.7.20-A/B: every
// target_type a class, field, method or Code attribute's type annotations
// can carry, including the type_parameter_bound targets.
const (
	TargetClassTypeParameter      = 0x00
	TargetMethodTypeParameter     = 0x01
	TargetClassExtends            = 0x10
	TargetClassTypeParameterBound = 0x11
	TargetMethodTypeParameterBound = 0x12
	TargetField                   = 0x13
	TargetMethodReturn            = 0x14
	TargetMethodReceiver          = 0x15
	TargetMethodFormalParameter   = 0x16
	TargetThrows                  = 0x17
	TargetLocalVariable           = 0x40
	TargetResourceVariable        = 0x41
	TargetExceptionParameter      = 0x42
	TargetInstanceOf              = 0x43
	TargetNew                     = 0x44
	TargetConstructorReference    = 0x45
	TargetMethodReference         = 0x46
	TargetCast                    = 0x47
	TargetConstructorInvocationTypeArgument = 0x48
	TargetMethodInvocationTypeArgument      = 0x49
	TargetConstructorReferenceTypeArgument  = 0x4A
	TargetMethodReferenceTypeArgument       = 0x4B
)

// Put writes this type_reference's target_type and target_info, per the
// shape dictated by TargetType (JVMS 4.7.20.1).
func (r TypeReference) Put(out *jbbytes.ByteVector) {
	out.PutU8(r.TargetType)
	switch r.TargetType {
	case TargetClassTypeParameter, TargetMethodTypeParameter:
		out.PutU8(r.TypeParameterIndex)
	case TargetClassExtends:
		out.PutU16(r.SupertypeIndex)
	case TargetClassTypeParameterBound, TargetMethodTypeParameterBound:
		out.PutU8(r.TypeParameterIndex)
		out.PutU8(r.BoundIndex)
	case TargetField, TargetMethodReturn, TargetMethodReceiver:
		// empty_target, no extra bytes
	case TargetMethodFormalParameter:
		out.PutU8(r.FormalParameterIdx)
	case TargetThrows:
		out.PutU16(r.ThrowsTypeIndex)
	case TargetLocalVariable, TargetResourceVariable:
		out.PutU16(len(r.LocalVarTable))
		for _, lv := range r.LocalVarTable {
			out.PutU16(lv.StartPC)
			out.PutU16(lv.Length)
			out.PutU16(lv.Index)
		}
	case TargetExceptionParameter:
		out.PutU16(r.CatchExceptionIdx)
	case TargetInstanceOf, TargetNew, TargetConstructorReference, TargetMethodReference:
		out.PutU16(r.MethodOffset)
	case TargetCast, TargetConstructorInvocationTypeArgument, TargetMethodInvocationTypeArgument,
		TargetConstructorReferenceTypeArgument, TargetMethodReferenceTypeArgument:
		out.PutU16(r.MethodOffset)
		out.PutU8(r.TypeParameterIndex) // type_argument_index, reusing the field
	}
}
