package jbframe

import (
	"jbasm/src/jbbytes"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
)

// EmitContext carries the state Emit needs across consecutive frames in
// one method: the previous emitted frame's locals/offset, so each new
// frame can be expressed as the smallest delta form (section 4.4
// "Emit").
type EmitContext struct {
	PreviousLocals []VType
	PreviousOffset int // bytecode offset of the previously emitted frame, or -1 before the first
	ClassVersion   int
}

// NewEmitContext starts a fresh StackMapTable accumulation for a method.
func NewEmitContext(classVersion int) *EmitContext {
	return &EmitContext{PreviousOffset: -1, ClassVersion: classVersion}
}

// Emit writes this block's frame at bytecodeOffset into out, choosing the
// smallest compressed discriminant the delta from the previous frame
// allows (section 4.4 "Emit", section 6 "Wire format"). Below
// class file major version 50 it always emits the legacy uncompressed
// StackMap form's per-entry layout instead (full_frame shape, but without
// the delta encoding StackMapTable uses).
func (ctx *EmitContext) Emit(out *jbbytes.ByteVector, table *jbsym.SymbolTable, f *Frame, bytecodeOffset int) {
	offsetDelta := bytecodeOffset
	if ctx.PreviousOffset >= 0 {
		offsetDelta = bytecodeOffset - ctx.PreviousOffset - 1
	}

	if jbopcodes.MajorVersion(ctx.ClassVersion) < jbopcodes.MajorVersion(jbopcodes.V1_6) {
		ctx.emitFullLegacy(out, table, f, bytecodeOffset)
		ctx.PreviousLocals = append([]VType(nil), f.Locals...)
		ctx.PreviousOffset = bytecodeOffset
		return
	}

	localsDelta := diffLocals(ctx.PreviousLocals, f.Locals)

	switch {
	case len(f.Stack) == 0 && localsDelta.kind == sameLocals:
		ctx.emitSame(out, offsetDelta)

	case len(f.Stack) == 1 && localsDelta.kind == sameLocals:
		ctx.emitSameLocals1StackItem(out, table, offsetDelta, f.Stack[0])

	case len(f.Stack) == 0 && localsDelta.kind == chopLocals && localsDelta.count <= 3:
		ctx.emitChop(out, offsetDelta, localsDelta.count)

	case len(f.Stack) == 0 && localsDelta.kind == appendLocals && localsDelta.count <= 3:
		ctx.emitAppend(out, table, offsetDelta, localsDelta.appended)

	default:
		ctx.emitFull(out, table, offsetDelta, f)
	}

	ctx.PreviousLocals = append([]VType(nil), f.Locals...)
	ctx.PreviousOffset = bytecodeOffset
}

type localsDiffKind int

const (
	sameLocals localsDiffKind = iota
	chopLocals
	appendLocals
	fullLocals
)

type localsDiff struct {
	kind     localsDiffKind
	count    int
	appended []VType
}

// diffLocals classifies how f's locals relate to the previous frame's,
// the shape StackMapTable's compressed forms are keyed on (JVMS 4.7.4).
func diffLocals(prev, cur []VType) localsDiff {
	n := len(prev)
	if len(cur) < n {
		n = len(cur)
	}
	for i := 0; i < n; i++ {
		if prev[i] != cur[i] {
			return localsDiff{kind: fullLocals}
		}
	}
	switch {
	case len(cur) == len(prev):
		return localsDiff{kind: sameLocals}
	case len(cur) < len(prev):
		return localsDiff{kind: chopLocals, count: len(prev) - len(cur)}
	default:
		return localsDiff{kind: appendLocals, count: len(cur) - len(prev), appended: cur[len(prev):]}
	}
}

func (ctx *EmitContext) emitSame(out *jbbytes.ByteVector, offsetDelta int) {
	if offsetDelta <= 63 {
		out.PutU8(offsetDelta) // SAME, 0-63
		return
	}
	out.PutU8(251) // SAME_FRAME_EXTENDED
	out.PutU16(offsetDelta)
}

func (ctx *EmitContext) emitSameLocals1StackItem(out *jbbytes.ByteVector, table *jbsym.SymbolTable, offsetDelta int, item VType) {
	if offsetDelta <= 63 {
		out.PutU8(64 + offsetDelta) // SAME_LOCALS_1_STACK_ITEM, 64-127
		putVerificationType(out, table, item)
		return
	}
	out.PutU8(247) // SAME_LOCALS_1_STACK_ITEM_EXTENDED
	out.PutU16(offsetDelta)
	putVerificationType(out, table, item)
}

func (ctx *EmitContext) emitChop(out *jbbytes.ByteVector, offsetDelta int, count int) {
	out.PutU8(251 - count) // CHOP, 248-250
	out.PutU16(offsetDelta)
}

func (ctx *EmitContext) emitAppend(out *jbbytes.ByteVector, table *jbsym.SymbolTable, offsetDelta int, appended []VType) {
	out.PutU8(251 + len(appended)) // APPEND, 252-254
	out.PutU16(offsetDelta)
	for _, v := range appended {
		putVerificationType(out, table, v)
	}
}

func (ctx *EmitContext) emitFull(out *jbbytes.ByteVector, table *jbsym.SymbolTable, offsetDelta int, f *Frame) {
	out.PutU8(255) // FULL_FRAME
	out.PutU16(offsetDelta)
	out.PutU16(len(f.Locals))
	for _, v := range f.Locals {
		putVerificationType(out, table, v)
	}
	out.PutU16(len(f.Stack))
	for _, v := range f.Stack {
		putVerificationType(out, table, v)
	}
}

// emitFullLegacy writes the pre-J2SE-6 uncompressed StackMap entry shape:
// an absolute bytecode offset (not a delta) followed by the same
// locals/stack verification-type arrays as FULL_FRAME.
func (ctx *EmitContext) emitFullLegacy(out *jbbytes.ByteVector, table *jbsym.SymbolTable, f *Frame, offset int) {
	out.PutU16(offset)
	out.PutU16(len(f.Locals))
	for _, v := range f.Locals {
		putVerificationType(out, table, v)
	}
	out.PutU16(len(f.Stack))
	for _, v := range f.Stack {
		putVerificationType(out, table, v)
	}
}

// Verification type tags, JVMS 4.7.4 Table 4.7.4-A.
const (
	itemTop               = 0
	itemInteger           = 1
	itemFloat             = 2
	itemDouble            = 3
	itemLong              = 4
	itemNull              = 5
	itemUninitializedThis = 6
	itemObject            = 7
	itemUninitialized     = 8
)

func putVerificationType(out *jbbytes.ByteVector, table *jbsym.SymbolTable, v VType) {
	switch v.Kind() {
	case KindReference:
		out.PutU8(itemObject)
		sym := table.GetType(v.Payload())
		classSym, err := table.AddClass(sym.Name)
		if err != nil {
			// AddClass only fails past the 65535-entry constant pool cap,
			// already guarded long before frame emission runs.
			panic(err)
		}
		out.PutU16(classSym.Index)
	case KindUninitialized:
		out.PutU8(itemUninitialized)
		sym := table.GetType(v.Payload())
		out.PutU16(int(sym.Data)) // the originating NEW instruction's bytecode offset
	case KindLocal:
		// LOCAL_KIND never reaches emission; callers resolve it to an
		// absolute type before building the Frame handed to Emit.
		out.PutU8(itemTop)
	default:
		switch v.Payload() {
		case ConstInteger:
			out.PutU8(itemInteger)
		case ConstFloat:
			out.PutU8(itemFloat)
		case ConstLong:
			out.PutU8(itemLong)
		case ConstDouble:
			out.PutU8(itemDouble)
		case ConstNull:
			out.PutU8(itemNull)
		case ConstUninitializedThis:
			out.PutU8(itemUninitializedThis)
		default:
			out.PutU8(itemTop)
		}
	}
}
