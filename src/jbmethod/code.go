package jbmethod

import (
	"jbasm/src/jbdesc"
	"jbasm/src/jbframe"
	"jbasm/src/jbopcodes"
	"jbasm/src/jerrors"
)

func (mw *MethodWriter) requireCodeOpen() error {
	if mw.st != stateCodeOpen {
		return mw.fail(jerrors.InvalidState, "instruction visit event requires an open code block")
	}
	return nil
}

// execute runs insn through the running frame, updating the max_stack/
// max_locals high-water marks this writer tracks alongside jbframe's own
// per-block bookkeeping (section 4.5 step 3).
func (mw *MethodWriter) execute(insn jbframe.Insn) error {
	if mw.currentFrame == nil {
		return nil // past a terminal instruction, awaiting a label
	}
	if err := mw.currentFrame.frame.Execute(insn, mw.table); err != nil {
		return err
	}
	if mw.currentFrame.frame.MaxStackWords > mw.maxStack {
		mw.maxStack = mw.currentFrame.frame.MaxStackWords
	}
	if n := len(mw.currentFrame.frame.Locals); n > mw.maxLocals {
		mw.maxLocals = n
	}
	return nil
}

// VisitInsn emits a zero-operand instruction.
func (mw *MethodWriter) VisitInsn(opcode int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	mw.code.PutU8(opcode)
	if err := mw.execute(jbframe.Insn{Opcode: opcode}); err != nil {
		return err
	}
	if jbopcodes.IsTerminal(opcode) {
		mw.currentFrame = nil // unreachable until the next label reseeds it
	}
	return nil
}

// VisitIntInsn emits BIPUSH, SIPUSH, or NEWARRAY.
func (mw *MethodWriter) VisitIntInsn(opcode, operand int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	var refType jbframe.VType
	switch opcode {
	case jbopcodes.BIPUSH:
		mw.code.PutU8(opcode)
		mw.code.PutU8(operand)
	case jbopcodes.SIPUSH:
		mw.code.PutU8(opcode)
		mw.code.PutU16(operand)
	case jbopcodes.NEWARRAY:
		mw.code.PutU8(opcode)
		mw.code.PutU8(operand)
		refType = jbframe.NewReference(mw.table.AddType(primitiveArrayDescriptor(operand)))
	default:
		return mw.fail(jerrors.InvalidArgument, "opcode %#x is not a valid visit_int_insn opcode", opcode)
	}
	return mw.execute(jbframe.Insn{Opcode: opcode, IntOperand: operand, RefType: refType})
}

func primitiveArrayDescriptor(typeCode int) string {
	switch typeCode {
	case jbopcodes.TBoolean:
		return "[Z"
	case jbopcodes.TChar:
		return "[C"
	case jbopcodes.TFloat:
		return "[F"
	case jbopcodes.TDouble:
		return "[D"
	case jbopcodes.TByte:
		return "[B"
	case jbopcodes.TShort:
		return "[S"
	case jbopcodes.TInt:
		return "[I"
	case jbopcodes.TLong:
		return "[J"
	default:
		return "[Ljava/lang/Object;"
	}
}

// compactedLoadStore maps a generic xLOAD/xSTORE opcode and a local index
// in [0,3] to its _0.._3 compacted form (JVMS 6.5), or returns ok=false
// when no compaction applies.
func compactedLoadStore(opcode, index int) (int, bool) {
	if index < 0 || index > 3 {
		return 0, false
	}
	base := map[int]int{
		jbopcodes.ILOAD: jbopcodes.ILOAD_0, jbopcodes.LLOAD: jbopcodes.LLOAD_0,
		jbopcodes.FLOAD: jbopcodes.FLOAD_0, jbopcodes.DLOAD: jbopcodes.DLOAD_0, jbopcodes.ALOAD: jbopcodes.ALOAD_0,
		jbopcodes.ISTORE: jbopcodes.ISTORE_0, jbopcodes.LSTORE: jbopcodes.LSTORE_0,
		jbopcodes.FSTORE: jbopcodes.FSTORE_0, jbopcodes.DSTORE: jbopcodes.DSTORE_0, jbopcodes.ASTORE: jbopcodes.ASTORE_0,
	}
	b, ok := base[opcode]
	if !ok {
		return 0, false
	}
	return b + index, true
}

// VisitVarInsn emits a local-variable load/store/RET, compacting to the
// _0.._3 form when possible and inserting a WIDE prefix when index
// exceeds a single unsigned byte (JVMS 6.5 "wide").
func (mw *MethodWriter) VisitVarInsn(opcode, index int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	switch {
	case index > 255:
		mw.code.PutU8U8U16(jbopcodes.WIDE, opcode, index)
		mw.hasAsmInsns = true
	default:
		if compact, ok := compactedLoadStore(opcode, index); ok {
			mw.code.PutU8(compact)
		} else {
			mw.code.PutU8(opcode)
			mw.code.PutU8(index)
		}
	}
	return mw.execute(jbframe.Insn{Opcode: opcode, LocalIndex: index})
}

// VisitTypeInsn emits NEW, ANEWARRAY, CHECKCAST, or INSTANCEOF.
func (mw *MethodWriter) VisitTypeInsn(opcode int, typeInternalName string) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddClass(typeInternalName)
	if err != nil {
		return err
	}
	insnOffset := mw.code.Len()
	mw.code.PutU8U16(opcode, sym.Index)
	typeIdx := mw.table.AddType(typeInternalName)
	var refType jbframe.VType
	if opcode == jbopcodes.NEW {
		refType = jbframe.NewUninitialized(typeIdx)
	} else {
		refType = jbframe.NewReference(typeIdx)
	}
	return mw.execute(jbframe.Insn{Opcode: opcode, RefType: refType, NewSiteOffset: insnOffset})
}

// fieldOrReturnRefType resolves the reference-like verification type a
// field descriptor or method return descriptor names, or jbframe.Top for
// a primitive (in which case Frame.Execute derives the right primitive
// type from the descriptor's own Kind and ignores RefType).
func (mw *MethodWriter) fieldOrReturnRefType(descriptor string) jbframe.VType {
	p, ok := jbdesc.ParseField(descriptor)
	if !ok || p.Kind != jbdesc.KindRef {
		return jbframe.Top
	}
	return jbframe.NewReference(mw.table.AddType(p.InternalName))
}

// VisitFieldInsn emits GETSTATIC, PUTSTATIC, GETFIELD, or PUTFIELD.
func (mw *MethodWriter) VisitFieldInsn(opcode int, owner, name, descriptor string) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	sym, err := mw.table.AddFieldref(owner, name, descriptor)
	if err != nil {
		return err
	}
	mw.code.PutU8U16(opcode, sym.Index)
	return mw.execute(jbframe.Insn{Opcode: opcode, Descriptor: descriptor, RefType: mw.fieldOrReturnRefType(descriptor)})
}

func methodReturnDescriptor(descriptor string) string {
	i := 0
	for i < len(descriptor) && descriptor[i] != ')' {
		i++
	}
	if i+1 >= len(descriptor) {
		return "V"
	}
	return descriptor[i+1:]
}

// VisitMethodInsn emits INVOKEVIRTUAL, INVOKESPECIAL, INVOKESTATIC, or
// INVOKEINTERFACE, including INVOKEINTERFACE's extra count/0 operand
// bytes (JVMS 6.5 invokeinterface).
func (mw *MethodWriter) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	var index int
	if isInterface {
		sym, err := mw.table.AddInterfaceMethodref(owner, name, descriptor)
		if err != nil {
			return err
		}
		index = sym.Index
	} else {
		sym, err := mw.table.AddMethodref(owner, name, descriptor)
		if err != nil {
			return err
		}
		index = sym.Index
	}
	if opcode == jbopcodes.INVOKEINTERFACE {
		params, _, ok := jbdesc.ParseMethod(descriptor)
		if !ok {
			return mw.fail(jerrors.InvalidArgument, "malformed method descriptor %q", descriptor)
		}
		mw.code.PutU8U16(opcode, index)
		mw.code.PutU8(jbdesc.ArgWords(params) + 1) // +1 for objectref
		mw.code.PutU8(0)
	} else {
		mw.code.PutU8U16(opcode, index)
	}
	retType := mw.fieldOrReturnRefType(methodReturnDescriptor(descriptor))
	return mw.execute(jbframe.Insn{Opcode: opcode, Descriptor: descriptor, IsInterfaceMethod: isInterface, RefType: retType})
}
