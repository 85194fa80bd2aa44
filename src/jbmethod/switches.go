package jbmethod

import (
	"jbasm/src/jbframe"
	"jbasm/src/jblabel"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbvisit"
)

// padToAlign4 writes zero bytes until the code array's length is a
// multiple of 4, the padding tableswitch/lookupswitch require so their
// first operand starts on a word boundary (JVMS 6.5 tableswitch).
func (mw *MethodWriter) padToAlign4() {
	for mw.code.Len()%4 != 0 {
		mw.code.PutU8(0)
	}
}

// VisitTableSwitchInsn emits a tableswitch (JVMS 6.5), padding to a
// 4-byte boundary and deferring offset resolution to jblabel.Label.
func (mw *MethodWriter) VisitTableSwitchInsn(min, max int, dflt jbvisit.Label, labels []jbvisit.Label) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	insnOffset := mw.code.Len()
	mw.code.PutU8(jbopcodes.TABLESWITCH)
	mw.padToAlign4()
	defaultLabel := mw.labelFor(dflt)
	defaultLabel.Set(jblabel.JumpTarget)
	defaultLabel.EmitOffsetFrom(mw.code, insnOffset, true)
	mw.code.PutU32(uint32(int32(min)))
	mw.code.PutU32(uint32(int32(max)))
	targets := make([]*jblabel.Label, len(labels))
	for i, l := range labels {
		t := mw.labelFor(l)
		t.Set(jblabel.JumpTarget)
		t.EmitOffsetFrom(mw.code, insnOffset, true)
		targets[i] = t
	}
	return mw.finishSwitch(jbopcodes.TABLESWITCH, defaultLabel, targets)
}

// VisitLookupSwitchInsn emits a lookupswitch (JVMS 6.5).
func (mw *MethodWriter) VisitLookupSwitchInsn(dflt jbvisit.Label, keys []int, labels []jbvisit.Label) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	insnOffset := mw.code.Len()
	mw.code.PutU8(jbopcodes.LOOKUPSWITCH)
	mw.padToAlign4()
	defaultLabel := mw.labelFor(dflt)
	defaultLabel.Set(jblabel.JumpTarget)
	defaultLabel.EmitOffsetFrom(mw.code, insnOffset, true)
	mw.code.PutU32(uint32(int32(len(keys))))
	targets := make([]*jblabel.Label, len(labels))
	for i := range keys {
		mw.code.PutU32(uint32(int32(keys[i])))
		t := mw.labelFor(labels[i])
		t.Set(jblabel.JumpTarget)
		t.EmitOffsetFrom(mw.code, insnOffset, true)
		targets[i] = t
	}
	return mw.finishSwitch(jbopcodes.LOOKUPSWITCH, defaultLabel, targets)
}

// finishSwitch pops the int selector and merges the resulting frame into
// every switch target's entry frame (a switch is terminal; control only
// continues through one of its labeled successors).
func (mw *MethodWriter) finishSwitch(opcode int, dflt *jblabel.Label, targets []*jblabel.Label) error {
	if mw.currentFrame != nil {
		if err := mw.execute(jbframe.Insn{Opcode: jbopcodes.POP}); err != nil {
			// selector pop has no dedicated opcode constant in stackDelta
			// for switches; POP's -1 delta matches exactly.
			return err
		}
		mw.mergeFrameAt(dflt, mw.currentFrame)
		for _, t := range targets {
			mw.mergeFrameAt(t, mw.currentFrame)
		}
	}
	mw.currentFrame = nil
	return nil
}

// VisitMultiANewArrayInsn emits MULTIANEWARRAY (JVMS 6.5).
func (mw *MethodWriter) VisitMultiANewArrayInsn(descriptor string, numDimensions int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	typeIdx := mw.table.AddType(descriptor)
	sym, err := mw.table.AddClass(descriptor)
	if err != nil {
		return err
	}
	mw.code.PutU8U16(jbopcodes.MULTIANEWARRAY, sym.Index)
	mw.code.PutU8(numDimensions)
	return mw.execute(jbframe.Insn{
		Opcode:     jbopcodes.MULTIANEWARRAY,
		IntOperand: numDimensions,
		RefType:    jbframe.NewReference(typeIdx),
	})
}
