package jbframe

import (
	"jbasm/src/jbdesc"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
)

// Insn carries the extra, descriptor/symbol-dependent operands Execute
// needs beyond the bare opcode (section 4.4 "Execute(opcode,
// operand, symbol, symbol_table)"). Only the fields relevant to a given
// opcode are populated by the caller (MethodWriter).
type Insn struct {
	Opcode int

	LocalIndex int // xLOAD/xSTORE/IINC/RET local variable slot
	IntOperand int // BIPUSH/SIPUSH/IINC constant, NEWARRAY type code, MULTIANEWARRAY dimension count

	// ConstType is the verification type LDC/LDC_W/LDC2_W pushes, resolved
	// by the caller from the constant pool entry's tag.
	ConstType VType

	// Descriptor is a field descriptor (xFIELD opcodes) or method
	// descriptor (INVOKE* opcodes, already-parsed by jbdesc at the call
	// site is also fine; Execute reparses as needed).
	Descriptor string
	// IsInterfaceMethod marks INVOKEINTERFACE/INVOKEDYNAMIC-via-interface
	// dispatch; irrelevant to stack effect but kept for symmetry.
	IsInterfaceMethod bool

	// RefType names the pushed/consumed reference type for NEW, ANEWARRAY,
	// CHECKCAST, INSTANCEOF, and the element type of MULTIANEWARRAY.
	RefType VType
	// NewSiteOffset is the bytecode offset of a NEW instruction, used to
	// build its UNINITIALIZED verification type (JVMS 4.10.1.4).
	NewSiteOffset int
}

// Frame tracks one basic block's abstract JVM state: a JVMS-slot-indexed
// locals array and a logical operand stack (section 3 "Frame").
// A Frame begins as a copy of its block's input state and is mutated in
// place by Execute as each instruction in the block is visited.
type Frame struct {
	Locals []VType
	Stack  []VType

	// StackWords is the current operand-stack height in JVM words (long
	// and double cost two, matching JVMS max_stack accounting even though
	// they occupy one Stack slot here).
	StackWords int
	// MaxStackWords is the high-water mark of StackWords reached while
	// executing this block, combined by the caller with the block's
	// input stack height to derive max_stack (section 4.5 step 3).
	MaxStackWords int
}

// NewFrame seeds a Frame from an absolute input state. The caller clones
// the slices it passes in if it intends to keep using them afterward.
func NewFrame(locals, stack []VType) *Frame {
	f := &Frame{Locals: append([]VType(nil), locals...), Stack: append([]VType(nil), stack...)}
	for _, s := range f.Stack {
		if s.IsTwoWord() {
			f.StackWords += 2
		} else {
			f.StackWords++
		}
	}
	f.MaxStackWords = f.StackWords
	return f
}

// Clone returns an independent copy of f, used when a block has more
// than one successor and each needs its own mutable proposed-input frame.
func (f *Frame) Clone() *Frame {
	g := &Frame{
		Locals:        append([]VType(nil), f.Locals...),
		Stack:         append([]VType(nil), f.Stack...),
		StackWords:    f.StackWords,
		MaxStackWords: f.MaxStackWords,
	}
	return g
}

func (f *Frame) push(v VType) {
	f.Stack = append(f.Stack, v)
	if v.IsTwoWord() {
		f.StackWords += 2
	} else {
		f.StackWords++
	}
	if f.StackWords > f.MaxStackWords {
		f.MaxStackWords = f.StackWords
	}
}

func (f *Frame) pop() VType {
	n := len(f.Stack)
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	if v.IsTwoWord() {
		f.StackWords -= 2
	} else {
		f.StackWords--
	}
	return v
}

func (f *Frame) popN(n int) {
	for i := 0; i < n; i++ {
		f.pop()
	}
}

func (f *Frame) ensureLocal(index int) {
	for len(f.Locals) <= index {
		f.Locals = append(f.Locals, Top)
	}
}

func (f *Frame) setLocal(index int, v VType) {
	f.ensureLocal(index)
	f.Locals[index] = v
	if v.IsTwoWord() {
		f.ensureLocal(index + 1)
		f.Locals[index+1] = Top // continuation marker, never independently loaded
	}
}

func (f *Frame) getLocal(index int) VType {
	f.ensureLocal(index)
	return f.Locals[index]
}

// replaceUninitialized rewrites every occurrence of an UNINITIALIZED type
// (matching the same type-table index as uninit) with initialized, across
// both locals and stack -- the effect of an `<init>` invocation completing
// (JVMS 4.10.1.4: "a successful call to an <init> method changes the type
// of the object... to the type the NEW instruction created").
func (f *Frame) replaceUninitialized(uninit, initialized VType) {
	for i, v := range f.Locals {
		if v == uninit {
			f.Locals[i] = initialized
		}
	}
	for i, v := range f.Stack {
		if v == uninit {
			f.Stack[i] = initialized
		}
	}
}

func wordOrCategoryOneDup(v VType) int {
	if v.IsTwoWord() {
		return 2
	}
	return 1
}

// needsInsnData lists every opcode whose stack effect depends on the
// Insn's descriptor/local-index/ref-type payload rather than being a
// fixed pop/push shape -- these are handled by Execute's own switch;
// everything else falls through to executeFixed's static table-driven
// path (section 4.4 "Execute").
func needsInsnData(op int) bool {
	switch op {
	case jbopcodes.LDC, jbopcodes.LDC_W, jbopcodes.LDC2_W,
		jbopcodes.GETSTATIC, jbopcodes.GETFIELD, jbopcodes.PUTSTATIC, jbopcodes.PUTFIELD,
		jbopcodes.INVOKEVIRTUAL, jbopcodes.INVOKESPECIAL, jbopcodes.INVOKESTATIC,
		jbopcodes.INVOKEINTERFACE, jbopcodes.INVOKEDYNAMIC,
		jbopcodes.NEW, jbopcodes.NEWARRAY, jbopcodes.ANEWARRAY, jbopcodes.MULTIANEWARRAY,
		jbopcodes.CHECKCAST, jbopcodes.INSTANCEOF,
		jbopcodes.ILOAD, jbopcodes.ILOAD_0, jbopcodes.ILOAD_1, jbopcodes.ILOAD_2, jbopcodes.ILOAD_3,
		jbopcodes.FLOAD, jbopcodes.FLOAD_0, jbopcodes.FLOAD_1, jbopcodes.FLOAD_2, jbopcodes.FLOAD_3,
		jbopcodes.LLOAD, jbopcodes.LLOAD_0, jbopcodes.LLOAD_1, jbopcodes.LLOAD_2, jbopcodes.LLOAD_3,
		jbopcodes.DLOAD, jbopcodes.DLOAD_0, jbopcodes.DLOAD_1, jbopcodes.DLOAD_2, jbopcodes.DLOAD_3,
		jbopcodes.ALOAD, jbopcodes.ALOAD_0, jbopcodes.ALOAD_1, jbopcodes.ALOAD_2, jbopcodes.ALOAD_3,
		jbopcodes.ISTORE, jbopcodes.ISTORE_0, jbopcodes.ISTORE_1, jbopcodes.ISTORE_2, jbopcodes.ISTORE_3,
		jbopcodes.FSTORE, jbopcodes.FSTORE_0, jbopcodes.FSTORE_1, jbopcodes.FSTORE_2, jbopcodes.FSTORE_3,
		jbopcodes.LSTORE, jbopcodes.LSTORE_0, jbopcodes.LSTORE_1, jbopcodes.LSTORE_2, jbopcodes.LSTORE_3,
		jbopcodes.DSTORE, jbopcodes.DSTORE_0, jbopcodes.DSTORE_1, jbopcodes.DSTORE_2, jbopcodes.DSTORE_3,
		jbopcodes.ASTORE, jbopcodes.ASTORE_0, jbopcodes.ASTORE_1, jbopcodes.ASTORE_2, jbopcodes.ASTORE_3,
		jbopcodes.RET:
		return true
	}
	return false
}

// Execute mutates f according to insn's effect (section 4.4
// "Execute"). table is consulted for LDC-independent bookkeeping only
// (none at present; it is accepted for symmetry with Merge's signature
// and future descriptor-driven type-table lookups).
func (f *Frame) Execute(insn Insn, table *jbsym.SymbolTable) error {
	op := insn.Opcode

	if !needsInsnData(op) {
		if delta, ok := jbopcodes.StackDelta(op); ok {
			return f.executeFixed(op, insn, delta)
		}
	}

	switch op {
	case jbopcodes.LDC, jbopcodes.LDC_W, jbopcodes.LDC2_W:
		f.push(insn.ConstType)

	case jbopcodes.GETSTATIC, jbopcodes.GETFIELD:
		if op == jbopcodes.GETFIELD {
			f.pop() // objectref
		}
		param, ok := jbdesc.ParseField(insn.Descriptor)
		if !ok {
			return jerrors.New(jerrors.InvalidArgument, "malformed field descriptor %q", insn.Descriptor)
		}
		f.push(fieldVType(param, insn.RefType))

	case jbopcodes.PUTSTATIC, jbopcodes.PUTFIELD:
		param, ok := jbdesc.ParseField(insn.Descriptor)
		if !ok {
			return jerrors.New(jerrors.InvalidArgument, "malformed field descriptor %q", insn.Descriptor)
		}
		if param.Kind.Words() == 2 {
			f.popN(1) // the single two-word stack slot
		} else {
			f.popN(1)
		}
		if op == jbopcodes.PUTFIELD {
			f.pop() // objectref
		}

	case jbopcodes.INVOKEVIRTUAL, jbopcodes.INVOKESPECIAL, jbopcodes.INVOKESTATIC, jbopcodes.INVOKEINTERFACE:
		params, ret, ok := jbdesc.ParseMethod(insn.Descriptor)
		if !ok {
			return jerrors.New(jerrors.InvalidArgument, "malformed method descriptor %q", insn.Descriptor)
		}
		f.popN(len(params))
		if op != jbopcodes.INVOKESTATIC {
			f.pop() // objectref
		}
		if !jbdesc.ReturnsVoid(insn.Descriptor) {
			f.push(fieldVType(ret, insn.RefType))
		}

	case jbopcodes.INVOKEDYNAMIC:
		params, ret, ok := jbdesc.ParseMethod(insn.Descriptor)
		if !ok {
			return jerrors.New(jerrors.InvalidArgument, "malformed invokedynamic descriptor %q", insn.Descriptor)
		}
		f.popN(len(params))
		if !jbdesc.ReturnsVoid(insn.Descriptor) {
			f.push(fieldVType(ret, insn.RefType))
		}

	case jbopcodes.NEW:
		f.push(NewUninitialized(insn.RefType.Payload()))

	case jbopcodes.NEWARRAY:
		f.pop() // count
		f.push(insn.RefType)

	case jbopcodes.ANEWARRAY:
		f.pop() // count
		f.push(insn.RefType)

	case jbopcodes.MULTIANEWARRAY:
		f.popN(insn.IntOperand) // dimension counts
		f.push(insn.RefType)

	case jbopcodes.CHECKCAST:
		f.pop()
		f.push(insn.RefType)

	case jbopcodes.INSTANCEOF:
		f.pop()
		f.push(Integer)

	case jbopcodes.ILOAD, jbopcodes.ILOAD_0, jbopcodes.ILOAD_1, jbopcodes.ILOAD_2, jbopcodes.ILOAD_3:
		f.push(Integer)
	case jbopcodes.FLOAD, jbopcodes.FLOAD_0, jbopcodes.FLOAD_1, jbopcodes.FLOAD_2, jbopcodes.FLOAD_3:
		f.push(Float)
	case jbopcodes.LLOAD, jbopcodes.LLOAD_0, jbopcodes.LLOAD_1, jbopcodes.LLOAD_2, jbopcodes.LLOAD_3:
		f.push(Long)
	case jbopcodes.DLOAD, jbopcodes.DLOAD_0, jbopcodes.DLOAD_1, jbopcodes.DLOAD_2, jbopcodes.DLOAD_3:
		f.push(Double)
	case jbopcodes.ALOAD, jbopcodes.ALOAD_0, jbopcodes.ALOAD_1, jbopcodes.ALOAD_2, jbopcodes.ALOAD_3:
		f.push(f.getLocal(insn.LocalIndex))

	case jbopcodes.ISTORE, jbopcodes.ISTORE_0, jbopcodes.ISTORE_1, jbopcodes.ISTORE_2, jbopcodes.ISTORE_3:
		f.setLocal(insn.LocalIndex, Integer)
		f.pop()
	case jbopcodes.FSTORE, jbopcodes.FSTORE_0, jbopcodes.FSTORE_1, jbopcodes.FSTORE_2, jbopcodes.FSTORE_3:
		f.setLocal(insn.LocalIndex, Float)
		f.pop()
	case jbopcodes.LSTORE, jbopcodes.LSTORE_0, jbopcodes.LSTORE_1, jbopcodes.LSTORE_2, jbopcodes.LSTORE_3:
		f.setLocal(insn.LocalIndex, Long)
		f.pop()
	case jbopcodes.DSTORE, jbopcodes.DSTORE_0, jbopcodes.DSTORE_1, jbopcodes.DSTORE_2, jbopcodes.DSTORE_3:
		f.setLocal(insn.LocalIndex, Double)
		f.pop()
	case jbopcodes.ASTORE, jbopcodes.ASTORE_0, jbopcodes.ASTORE_1, jbopcodes.ASTORE_2, jbopcodes.ASTORE_3:
		v := f.pop()
		f.setLocal(insn.LocalIndex, v)

	case jbopcodes.RET:
		// no stack effect; subroutine return is handled by jbmethod's CFG pass

	default:
		return jerrors.New(jerrors.InvalidArgument, "opcode %#x has no Frame.Execute handling", op)
	}
	return nil
}

// executeFixed applies a fixed stack-delta opcode's pop/push pattern.
// Every opcode in jbopcodes.stackDelta pops a statically-known shape and
// pushes values whose types follow from the opcode's mnemonic, or, for the
// DUP/SWAP family, copies of the values it popped.
func (f *Frame) executeFixed(op int, insn Insn, delta int) error {
	switch op {
	case jbopcodes.ACONST_NULL:
		f.push(Null)
	case jbopcodes.ICONST_M1, jbopcodes.ICONST_0, jbopcodes.ICONST_1, jbopcodes.ICONST_2,
		jbopcodes.ICONST_3, jbopcodes.ICONST_4, jbopcodes.ICONST_5, jbopcodes.BIPUSH, jbopcodes.SIPUSH:
		f.push(Integer)
	case jbopcodes.LCONST_0, jbopcodes.LCONST_1:
		f.push(Long)
	case jbopcodes.FCONST_0, jbopcodes.FCONST_1, jbopcodes.FCONST_2:
		f.push(Float)
	case jbopcodes.DCONST_0, jbopcodes.DCONST_1:
		f.push(Double)

	case jbopcodes.IALOAD, jbopcodes.BALOAD, jbopcodes.CALOAD, jbopcodes.SALOAD:
		f.popN(2)
		f.push(Integer)
	case jbopcodes.FALOAD:
		f.popN(2)
		f.push(Float)
	case jbopcodes.LALOAD:
		f.popN(2)
		f.push(Long)
	case jbopcodes.DALOAD:
		f.popN(2)
		f.push(Double)
	case jbopcodes.AALOAD:
		f.pop() // index
		arrayref := f.pop()
		f.push(arrayref) // approximation: element type tracked by caller via RefType when precision matters

	case jbopcodes.IASTORE, jbopcodes.LASTORE, jbopcodes.FASTORE, jbopcodes.DASTORE,
		jbopcodes.AASTORE, jbopcodes.BASTORE, jbopcodes.CASTORE, jbopcodes.SASTORE:
		f.popN(3)

	case jbopcodes.POP:
		f.pop()
	case jbopcodes.POP2:
		f.pop()
		f.pop()
	case jbopcodes.DUP:
		v := f.pop()
		f.push(v)
		f.push(v)
	case jbopcodes.DUP_X1:
		v1 := f.pop()
		v2 := f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case jbopcodes.DUP_X2:
		v1 := f.pop()
		v2 := f.pop()
		v3 := f.pop()
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case jbopcodes.DUP2:
		v1 := f.pop()
		v2 := f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case jbopcodes.DUP2_X1:
		v1 := f.pop()
		v2 := f.pop()
		v3 := f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case jbopcodes.DUP2_X2:
		v1 := f.pop()
		v2 := f.pop()
		v3 := f.pop()
		v4 := f.pop()
		f.push(v2)
		f.push(v1)
		f.push(v4)
		f.push(v3)
		f.push(v2)
		f.push(v1)
	case jbopcodes.SWAP:
		v1 := f.pop()
		v2 := f.pop()
		f.push(v1)
		f.push(v2)

	case jbopcodes.IADD, jbopcodes.ISUB, jbopcodes.IMUL, jbopcodes.IDIV, jbopcodes.IREM,
		jbopcodes.ISHL, jbopcodes.ISHR, jbopcodes.IUSHR, jbopcodes.IAND, jbopcodes.IOR, jbopcodes.IXOR:
		f.popN(2)
		f.push(Integer)
	case jbopcodes.INEG:
		v := f.pop()
		f.push(v)
	case jbopcodes.FADD, jbopcodes.FSUB, jbopcodes.FMUL, jbopcodes.FDIV, jbopcodes.FREM:
		f.popN(2)
		f.push(Float)
	case jbopcodes.FNEG:
		v := f.pop()
		f.push(v)
	case jbopcodes.LADD, jbopcodes.LSUB, jbopcodes.LMUL, jbopcodes.LDIV, jbopcodes.LREM,
		jbopcodes.LAND, jbopcodes.LOR, jbopcodes.LXOR:
		f.popN(2)
		f.push(Long)
	case jbopcodes.LSHL, jbopcodes.LSHR, jbopcodes.LUSHR:
		f.popN(2) // value (2 words) + shift amount (1 word, int)
		f.push(Long)
	case jbopcodes.LNEG:
		v := f.pop()
		f.push(v)
	case jbopcodes.DADD, jbopcodes.DSUB, jbopcodes.DMUL, jbopcodes.DDIV, jbopcodes.DREM:
		f.popN(2)
		f.push(Double)
	case jbopcodes.DNEG:
		v := f.pop()
		f.push(v)

	case jbopcodes.I2L:
		f.pop()
		f.push(Long)
	case jbopcodes.I2F:
		f.pop()
		f.push(Float)
	case jbopcodes.I2D:
		f.pop()
		f.push(Double)
	case jbopcodes.L2I:
		f.pop()
		f.push(Integer)
	case jbopcodes.L2F:
		f.pop()
		f.push(Float)
	case jbopcodes.L2D:
		f.pop()
		f.push(Double)
	case jbopcodes.F2I:
		f.pop()
		f.push(Integer)
	case jbopcodes.F2L:
		f.pop()
		f.push(Long)
	case jbopcodes.F2D:
		f.pop()
		f.push(Double)
	case jbopcodes.D2I:
		f.pop()
		f.push(Integer)
	case jbopcodes.D2L:
		f.pop()
		f.push(Long)
	case jbopcodes.D2F:
		f.pop()
		f.push(Float)
	case jbopcodes.I2B, jbopcodes.I2C, jbopcodes.I2S:
		f.pop()
		f.push(Integer)

	case jbopcodes.LCMP:
		f.popN(2)
		f.push(Integer)
	case jbopcodes.FCMPL, jbopcodes.FCMPG:
		f.popN(2)
		f.push(Integer)
	case jbopcodes.DCMPL, jbopcodes.DCMPG:
		f.popN(2)
		f.push(Integer)

	case jbopcodes.IFEQ, jbopcodes.IFNE, jbopcodes.IFLT, jbopcodes.IFGE, jbopcodes.IFGT, jbopcodes.IFLE,
		jbopcodes.IFNULL, jbopcodes.IFNONNULL:
		f.pop()
	case jbopcodes.IF_ICMPEQ, jbopcodes.IF_ICMPNE, jbopcodes.IF_ICMPLT, jbopcodes.IF_ICMPGE,
		jbopcodes.IF_ICMPGT, jbopcodes.IF_ICMPLE, jbopcodes.IF_ACMPEQ, jbopcodes.IF_ACMPNE:
		f.popN(2)

	case jbopcodes.JSR, jbopcodes.JSR_W:
		f.push(NewConstant(ConstTop)) // return-address type; opaque here, never merged across subroutines

	case jbopcodes.IRETURN, jbopcodes.FRETURN, jbopcodes.ARETURN:
		f.pop()
	case jbopcodes.LRETURN, jbopcodes.DRETURN:
		f.pop()
	case jbopcodes.RETURN:
		// no operand

	case jbopcodes.ATHROW:
		f.Stack = f.Stack[:0]
		f.StackWords = 0

	case jbopcodes.NOP, jbopcodes.IINC, jbopcodes.GOTO, jbopcodes.GOTO_W, jbopcodes.RET,
		jbopcodes.ARRAYLENGTH, jbopcodes.MONITORENTER, jbopcodes.MONITOREXIT:
		if op == jbopcodes.ARRAYLENGTH {
			f.pop()
			f.push(Integer)
		} else if op == jbopcodes.MONITORENTER || op == jbopcodes.MONITOREXIT {
			f.pop()
		}
		// NOP, IINC, GOTO*, RET: no stack effect

	default:
		_ = delta
		return jerrors.New(jerrors.InvalidArgument, "opcode %#x missing Frame.executeFixed case", op)
	}
	return nil
}

func fieldVType(p jbdesc.Param, refType VType) VType {
	switch p.Kind {
	case jbdesc.KindInt:
		return Integer
	case jbdesc.KindFloat:
		return Float
	case jbdesc.KindLong:
		return Long
	case jbdesc.KindDouble:
		return Double
	default:
		return refType
	}
}
