// Package jbframe implements Frame, the abstract interpreter over JVM
// opcodes that drives max_stack computation and StackMapTable synthesis
// (section 4.4). Verification types are packed into a single
// int32 so merge and emit stay cheap arithmetic rather than struct-field
// comparisons, the way classloader.go packs multi-field VM state into
// scalar words elsewhere in its interpreter.
package jbframe

// Kind discriminates a VType's payload interpretation (section 3
// "Frame... Verification types are tagged integers with kinds").
type Kind int32

const (
	KindConstant Kind = iota
	KindReference
	KindUninitialized
	// KindLocal is used only in relative output-frame descriptions to
	// mean "whatever type was in local i at block entry" -- it never
	// appears in an absolute input frame.
	KindLocal
)

// Constant sub-kinds, the payload of a KindConstant VType.
const (
	ConstTop = iota
	ConstInteger
	ConstFloat
	ConstLong
	ConstDouble
	ConstNull
	ConstUninitializedThis
)

const (
	kindShift   = 30
	kindMask    = ^payloadMask
	payloadMask = int32(1)<<kindShift - 1
)

// VType is a packed verification type: 2 kind bits plus a 30-bit payload
// (a constant sub-kind, a type-table index, or a local slot number).
type VType int32

// Top is the verification type of an undefined local or stack slot.
var Top = NewConstant(ConstTop)

// Null is the verification type of the `aconst_null` result.
var Null = NewConstant(ConstNull)

// UninitializedThis is the verification type of `this` inside a
// constructor before `super()`/`this()` has run (JVMS 4.10.1.4).
var UninitializedThis = NewConstant(ConstUninitializedThis)

// Integer, Float, Long, Double are the four primitive verification types
// JVMS defines outside of reference types.
var (
	Integer = NewConstant(ConstInteger)
	Float   = NewConstant(ConstFloat)
	Long    = NewConstant(ConstLong)
	Double  = NewConstant(ConstDouble)
)

// NewConstant packs a CONSTANT-kind VType from one of the ConstXxx codes.
func NewConstant(sub int32) VType {
	return VType(int32(KindConstant)<<kindShift | (sub & payloadMask))
}

// NewReference packs a REFERENCE-kind VType naming a type-table index
// (see jbsym.SymbolTable.AddType).
func NewReference(typeTableIndex int) VType {
	return VType(int32(KindReference)<<kindShift | (int32(typeTableIndex) & payloadMask))
}

// NewUninitialized packs an UNINITIALIZED-kind VType naming the
// type-table index of the originating NEW site (see
// jbsym.SymbolTable.AddUninitializedType).
func NewUninitialized(typeTableIndex int) VType {
	kind := int32(KindUninitialized)
	return VType(kind<<kindShift | (int32(typeTableIndex) & payloadMask))
}

// NewLocalRef packs a LOCAL_KIND VType meaning "whatever type local i
// held on entry to this block", used only inside relative output frames.
func NewLocalRef(localIndex int) VType {
	kind := int32(KindLocal)
	return VType(kind<<kindShift | (int32(localIndex) & payloadMask))
}

// Kind returns the VType's kind tag.
func (v VType) Kind() Kind { return Kind(int32(v) >> kindShift & 0x3) }

// Payload returns the VType's 30-bit payload.
func (v VType) Payload() int { return int(int32(v) & payloadMask) }

// IsTwoWord reports whether this verification type occupies two local
// slots / two stack words (long or double).
func (v VType) IsTwoWord() bool {
	return v == Long || v == Double
}

// IsReferenceLike reports whether v is a REFERENCE, UNINITIALIZED,
// UNINITIALIZED_THIS, or NULL type -- anything mergeable against another
// reference type via common-superclass resolution.
func (v VType) IsReferenceLike() bool {
	switch v.Kind() {
	case KindReference, KindUninitialized:
		return true
	}
	return v == Null || v == UninitializedThis
}
