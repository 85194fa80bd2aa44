// Package jblabel implements Label and Edge, the basic-block position
// markers and control-flow successor links MethodWriter threads through
// a method body while it streams instruction events (section 4.3).
package jblabel

import (
	"jbasm/src/jbbytes"
	"jbasm/src/jerrors"
)

// Flag is a bit in Label.Flags (section 3 "Label").
type Flag uint16

const (
	// DebugOnly labels mark a position referenced only by a
	// LineNumberTable or LocalVariableTable entry; they never start a
	// basic block.
	DebugOnly Flag = 1 << iota
	// JumpTarget marks a label reached by at least one jump instruction,
	// the precondition for emitting a stack-map frame at its offset.
	JumpTarget
	// Resolved marks that BytecodeOffset has been assigned.
	Resolved
	// Reachable marks a block known to be live; MethodWriter.VisitCode
	// sets it on a method's entry block.
	Reachable
	// SubroutineCaller marks a block ending in JSR.
	SubroutineCaller
	// SubroutineStart marks a block that is the target of some JSR.
	SubroutineStart
	// SubroutineEnd marks a block ending in RET.
	SubroutineEnd
)

// ForwardReference is a pending patch: a jump at InsnOffset targeted this
// label before it resolved, so a placeholder was written at PatchOffset
// (2 bytes, or 4 when Wide) awaiting the label's final bytecode offset
// (section 3 "Forward reference").
type ForwardReference struct {
	InsnOffset  int
	PatchOffset int
	Wide        bool
}

// Label marks a position in a method's code array and heads a basic
// block for flow analysis (section 3 "Label"). The zero value is
// not usable; construct with New.
type Label struct {
	Flags Flag

	BytecodeOffset int // valid iff Flags&Resolved != 0

	forward []ForwardReference

	// Next chains labels in emission order (the next basic block after
	// this one), threaded by MethodWriter as labels are visited.
	Next *Label

	// Edges is the singly-linked list of outgoing control-flow edges
	// from the block this label heads.
	Edges *Edge

	// frameData is an opaque per-block Frame, owned and type-asserted by
	// jbframe/jbmethod. Kept untyped here to avoid a jblabel<->jbframe
	// import cycle; Label only stores and returns it.
	frameData any

	// LineSpanStart/LineSpanCount track contiguous LineNumberTable runs
	// rooted at this label, maintained by MethodWriter.
	LineSpanStart int
	LineSpanCount int

	// UserInfo is an opaque handle a caller may attach to a label (section
	// 3 "optional opaque user-info handle").
	UserInfo any
}

// New creates an unresolved label with no flags set.
func New() *Label {
	return &Label{BytecodeOffset: -1}
}

// Has reports whether every bit in f is set.
func (l *Label) Has(f Flag) bool { return l.Flags&f == f }

// Set ORs f into the label's flags.
func (l *Label) Set(f Flag) { l.Flags |= f }

// FrameData returns the opaque Frame previously stored by SetFrameData,
// or nil if none has been attached yet.
func (l *Label) FrameData() any { return l.frameData }

// SetFrameData attaches an opaque per-block Frame (owned by jbframe).
func (l *Label) SetFrameData(f any) { l.frameData = f }

// AddEdge pushes a new outgoing edge onto this label's edge list.
func (l *Label) AddEdge(e *Edge) {
	e.next = l.Edges
	l.Edges = e
}

// Offset returns the resolved bytecode offset, or an InvalidState error
// if the label has not been resolved yet (section 7).
func (l *Label) Offset() (int, error) {
	if !l.Has(Resolved) {
		return 0, jerrors.New(jerrors.InvalidState, "get_offset() called on an unresolved label")
	}
	return l.BytecodeOffset, nil
}

// EmitOffsetFrom writes the jump offset (relative to insnOffset, the
// position of the opcode byte itself) for a jump to l. If l is already
// resolved, the final delta is written directly (section 4.3
// "Backward references... are written with the final delta directly");
// otherwise a zero placeholder is appended and the reference is queued
// for Resolve to patch later (section 3 "Forward reference").
//
// wide selects a 4-byte operand (goto_w, jsr_w, or any instruction
// already widened by a previous pass); it is otherwise 2 bytes.
//
// The returned bool reports whether an already-resolved backward
// reference's delta overflowed a 2-byte slot -- the same widening
// decision Resolve makes for forward references, surfaced here so
// MethodWriter can react uniformly regardless of jump direction.
func (l *Label) EmitOffsetFrom(code *jbbytes.ByteVector, insnOffset int, wide bool) (overflow bool) {
	if l.Has(Resolved) {
		delta := l.BytecodeOffset - insnOffset
		if wide {
			code.PutU32(uint32(int32(delta)))
			return false
		}
		if delta < -32768 || delta > 32767 {
			code.PutU16(int(int16(delta)))
			return true
		}
		code.PutU16(delta)
		return false
	}
	patchOffset := code.Len()
	if wide {
		code.PutU32(0)
	} else {
		code.PutU16(0)
	}
	l.forward = append(l.forward, ForwardReference{InsnOffset: insnOffset, PatchOffset: patchOffset, Wide: wide})
	return false
}

// Resolve assigns this label's bytecode offset and patches every forward
// reference recorded against it. It returns the subset of references
// whose signed 16-bit slot could not represent the delta, so the caller
// (MethodWriter) can stamp a synthetic wide-opcode variant and set
// has_asm_instructions (section 4.3 "If a 2-byte slot cannot
// represent the delta... the originating opcode is rewritten").
func (l *Label) Resolve(code *jbbytes.ByteVector, offset int) []ForwardReference {
	l.BytecodeOffset = offset
	l.Flags |= Resolved
	var overflowed []ForwardReference
	for _, ref := range l.forward {
		delta := offset - ref.InsnOffset
		if ref.Wide {
			code.PatchU32At(ref.PatchOffset, uint32(int32(delta)))
			continue
		}
		if delta < -32768 || delta > 32767 {
			// still write a (truncated) placeholder, section
			// 4.3: "2 bytes are still written" even when widening defers.
			code.PatchU16At(ref.PatchOffset, int(int16(delta)))
			overflowed = append(overflowed, ref)
			continue
		}
		code.PatchU16At(ref.PatchOffset, delta)
	}
	return overflowed
}

// Canonicalize returns the canonical label among l and other, the rule
// being "when two label objects resolve at the same bytecode offset, the
// first one visited is canonical" (section 4.3). It is the
// caller's responsibility to have already confirmed the two labels share
// an offset; visited should be whichever of the two MethodWriter placed
// into its label table first.
func Canonicalize(visited, other *Label) *Label {
	if other.frameData != nil && visited.frameData == nil {
		visited.frameData = other.frameData
	}
	return visited
}
