package jbmethod

import (
	"jbasm/src/jblabel"
	"jbasm/src/jbframe"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

// VisitJumpInsn emits a conditional or unconditional jump, IFxx, GOTO,
// or JSR, leaving the offset operand to jblabel.Label's forward-reference
// machinery (section 4.3).
func (mw *MethodWriter) VisitJumpInsn(opcode int, label jbvisit.Label) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	target := mw.labelFor(label)
	target.Set(jblabel.JumpTarget)
	insnOffset := mw.code.Len()
	mw.code.PutU8(opcode)
	wide := opcode == jbopcodes.GOTO_W || opcode == jbopcodes.JSR_W
	if overflow := target.EmitOffsetFrom(mw.code, insnOffset, wide); overflow {
		mw.hasAsmInsns = true
	}
	if mw.currentFrame != nil {
		if err := mw.execute(jbframe.Insn{Opcode: opcode}); err != nil {
			return err
		}
		mw.mergeFrameAt(target, mw.currentFrame)
		if jbopcodes.IsUnconditionalJump(opcode) || opcode == jbopcodes.JSR || opcode == jbopcodes.JSR_W {
			mw.currentFrame = nil
		}
	}
	if opcode == jbopcodes.JSR || opcode == jbopcodes.JSR_W {
		target.Set(jblabel.SubroutineStart)
	}
	return nil
}

// VisitLabel marks the current code position as label's bytecode offset,
// resolving any forward references and opening a new basic block
// (section 4.3).
func (mw *MethodWriter) VisitLabel(label jbvisit.Label) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	target := mw.labelFor(label)
	offset := mw.code.Len()
	if overflowed := target.Resolve(mw.code, offset); len(overflowed) > 0 {
		mw.hasAsmInsns = true
	}
	if mw.currentBlock != target {
		mw.currentBlock.Next = target
		if mw.currentFrame != nil {
			mw.currentBlock.AddEdge(jblabel.NewStackDeltaEdge(target, 0))
			mw.mergeFrameAt(target, mw.currentFrame)
		}
		mw.blocks = append(mw.blocks, target)
		mw.currentBlock = target
	}
	if existing, ok := target.FrameData().(*frameState); ok {
		mw.currentFrame = newFrameState(existing.frame.Clone())
	} else if mw.currentFrame != nil {
		target.SetFrameData(newFrameState(mw.currentFrame.frame.Clone()))
	} else if mw.entryFrame != nil {
		// No resolved predecessor reached this label yet -- typically an
		// exception handler's start label, declared via visit_try_catch_block
		// ahead of the handler's own code. Seed from the method's entry
		// locals (a conservative approximation of the true merged-handler
		// input state) and push the caught type if one is on record.
		base := mw.entryFrame.frame.Clone()
		base.Stack = base.Stack[:0]
		base.StackWords = 0
		if catchType, ok := mw.handlerCatchType[target]; ok {
			base.Stack = append(base.Stack, catchType)
			base.StackWords++
		}
		target.SetFrameData(newFrameState(base))
		mw.currentFrame = newFrameState(base.Clone())
	} else {
		return mw.fail(jerrors.InvalidState, "label reached with no live predecessor frame and no entry frame to fall back on")
	}
	return nil
}
