package jbmethod

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbbytes"
	"jbasm/src/jbframe"
	"jbasm/src/jblabel"
	"jbasm/src/jerrors"
)

// VisitMaxs closes the instruction stream and fixes max_stack/max_locals.
// Under Nothing and InsertedFrames, the caller-supplied values are
// trusted outright; under MaxStackAndLocal, MaxStackAndLocalFromFrames
// and AllFrames the values derived while walking instructions (from any
// caller-supplied frames, in MaxStackAndLocalFromFrames) are used
// instead, and the caller's arguments are ignored (section 4.5
// "Compute modes").
func (mw *MethodWriter) VisitMaxs(maxStack, maxLocals int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	switch mw.mode {
	case Nothing, InsertedFrames:
		mw.maxStack = maxStack
		mw.maxLocals = maxLocals
	case MaxStackAndLocal, MaxStackAndLocalFromFrames, AllFrames:
		// mw.maxStack/maxLocals already hold the running high-water marks.
	}
	mw.resolveDeferredLineNumbers()
	mw.resolvePendingHandlers()
	mw.st = stateMaxsComputed
	return nil
}

func (mw *MethodWriter) resolveDeferredLineNumbers() {
	for _, d := range mw.deferredLineNumbers {
		if pc, err := d.label.Offset(); err == nil {
			mw.lineNumbers = append(mw.lineNumbers, lineEntry{startPC: pc, line: d.line})
		}
	}
}

func (mw *MethodWriter) resolvePendingHandlers() {
	for _, p := range mw.pendingHandlers {
		if pc, err := p.start.Offset(); err == nil {
			p.handler.StartPC = pc
		}
		if pc, err := p.end.Offset(); err == nil {
			p.handler.EndPC = pc
		}
	}
}

// VisitEnd finalizes the method; it rejects further events.
func (mw *MethodWriter) VisitEnd() error {
	if mw.st == stateEnded {
		return mw.fail(jerrors.InvalidState, "visit_end called twice")
	}
	mw.st = stateEnded
	return nil
}

func methodAttrCount(mw *MethodWriter) int {
	n := 0
	if mw.hasCode {
		n++
	}
	if len(mw.exceptions) > 0 {
		n++
	}
	if mw.signature != "" {
		n++
	}
	if mw.deprecated {
		n++
	}
	if len(mw.parameters) > 0 {
		n++
	}
	if mw.annotationDefault != nil {
		n++
	}
	if len(mw.visibleAnnotations) > 0 {
		n++
	}
	if len(mw.invisibleAnnotations) > 0 {
		n++
	}
	if len(mw.visibleParamAnns) > 0 {
		n++
	}
	if len(mw.invisibleParamAnns) > 0 {
		n++
	}
	if len(mw.visibleTypeAnns) > 0 {
		n++
	}
	if len(mw.invisibleTypeAnns) > 0 {
		n++
	}
	for a := mw.attrs; a != nil; a = a.Next {
		n++
	}
	return n
}

// Put serializes this method_info into out (JVMS 4.6), with Code's own
// sub-attributes nested inside it in JVMS-prescribed order (StackMapTable,
// LineNumberTable, LocalVariableTable, LocalVariableTypeTable, code-relative
// type annotations, then any user-supplied Code attribute).
func (mw *MethodWriter) Put(out *jbbytes.ByteVector, classVersion int) error {
	out.PutU16(mw.access)
	out.PutU16(mw.nameIndex)
	out.PutU16(mw.descIndex)
	out.PutU16(methodAttrCount(mw))

	if mw.hasCode {
		if err := mw.putCodeAttribute(out, classVersion); err != nil {
			return err
		}
	}
	if len(mw.exceptions) > 0 {
		if err := putNamedMethodAttr(out, mw, "Exceptions", func(body *jbbytes.ByteVector) error {
			body.PutU16(len(mw.exceptions))
			for _, e := range mw.exceptions {
				sym, err := mw.table.AddClass(e)
				if err != nil {
					return err
				}
				body.PutU16(sym.Index)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if mw.signature != "" {
		sigIdx, err := mw.table.AddUTF8(mw.signature)
		if err != nil {
			return err
		}
		if err := putNamedMethodAttr(out, mw, "Signature", func(body *jbbytes.ByteVector) error {
			body.PutU16(sigIdx.Index)
			return nil
		}); err != nil {
			return err
		}
	}
	if mw.deprecated {
		if err := putNamedMethodAttr(out, mw, "Deprecated", func(*jbbytes.ByteVector) error { return nil }); err != nil {
			return err
		}
	}
	if len(mw.parameters) > 0 {
		if err := putNamedMethodAttr(out, mw, "MethodParameters", func(body *jbbytes.ByteVector) error {
			body.PutU8(len(mw.parameters))
			for _, p := range mw.parameters {
				nameIdx := 0
				if p.name != "" {
					sym, err := mw.table.AddUTF8(p.name)
					if err != nil {
						return err
					}
					nameIdx = sym.Index
				}
				body.PutU16(nameIdx)
				body.PutU16(p.access)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if mw.annotationDefault != nil {
		if err := putNamedMethodAttr(out, mw, "AnnotationDefault", func(body *jbbytes.ByteVector) error {
			mw.annotationDefault.Put(body)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.visibleAnnotations) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeVisibleAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutAnnotations(body, mw.visibleAnnotations)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.invisibleAnnotations) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeInvisibleAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutAnnotations(body, mw.invisibleAnnotations)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.visibleParamAnns) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeVisibleParameterAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutParameterAnnotations(body, mw.visibleParamAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.invisibleParamAnns) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeInvisibleParameterAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutParameterAnnotations(body, mw.invisibleParamAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.visibleTypeAnns) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeVisibleTypeAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutTypeAnnotations(body, mw.visibleTypeAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(mw.invisibleTypeAnns) > 0 {
		if err := putNamedMethodAttr(out, mw, "RuntimeInvisibleTypeAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutTypeAnnotations(body, mw.invisibleTypeAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	for a := mw.attrs; a != nil; a = a.Next {
		nameIdx, err := mw.table.AddUTF8(a.Name)
		if err != nil {
			return err
		}
		out.PutU16(nameIdx.Index)
		a.PutBody(out)
	}
	return nil
}

func putNamedMethodAttr(out *jbbytes.ByteVector, mw *MethodWriter, name string, write func(*jbbytes.ByteVector) error) error {
	nameIdx, err := mw.table.AddUTF8(name)
	if err != nil {
		return err
	}
	body := jbbytes.NewByteVector(16)
	if err := write(body); err != nil {
		return err
	}
	out.PutU16(nameIdx.Index)
	out.PutU32(uint32(body.Len()))
	out.PutBytes(body.Bytes())
	return nil
}

func codeAttrCount(mw *MethodWriter) int {
	n := 0
	if mw.mode == AllFrames && mw.hasStackMapFrames() {
		n++
	}
	if len(mw.lineNumbers) > 0 {
		n++
	}
	if len(mw.localVars) > 0 {
		n++
	}
	if len(mw.localVarTypes) > 0 {
		n++
	}
	if len(mw.codeVisibleTypeAnns) > 0 {
		n++
	}
	if len(mw.codeInvisibleTypeAnns) > 0 {
		n++
	}
	return n
}

func (mw *MethodWriter) hasStackMapFrames() bool {
	for i, b := range mw.blocks {
		if i > 0 && b.Has(jblabel.JumpTarget) {
			return true
		}
	}
	return false
}

// putCodeAttribute writes the Code attribute (JVMS 4.7.3): max_stack,
// max_locals, the code array, the exception table, then nested
// attributes in the order codeAttrCount counts.
func (mw *MethodWriter) putCodeAttribute(out *jbbytes.ByteVector, classVersion int) error {
	if mw.code.Len() > 65535 {
		return jerrors.New(jerrors.MethodTooLarge, "method body of %d bytes exceeds 65535", mw.code.Len()).WithMethod(mw.name, mw.descriptor)
	}
	return putNamedMethodAttr(out, mw, "Code", func(body *jbbytes.ByteVector) error {
		body.PutU16(mw.maxStack)
		body.PutU16(mw.maxLocals)
		body.PutU32(uint32(mw.code.Len()))
		body.PutBytes(mw.code.Bytes())

		var handlerList []*jbattr.Handler
		for h := mw.handlers; h != nil; h = h.Next {
			handlerList = append(handlerList, h)
		}
		body.PutU16(len(handlerList))
		for i := len(handlerList) - 1; i >= 0; i-- {
			h := handlerList[i]
			body.PutU16(h.StartPC)
			body.PutU16(h.EndPC)
			body.PutU16(h.HandlerPC)
			body.PutU16(h.CatchType)
		}

		body.PutU16(codeAttrCount(mw))
		if mw.mode == AllFrames && mw.hasStackMapFrames() {
			if err := mw.putStackMapTable(body, classVersion); err != nil {
				return err
			}
		}
		if len(mw.lineNumbers) > 0 {
			if err := putNamedMethodAttr(body, mw, "LineNumberTable", func(b *jbbytes.ByteVector) error {
				b.PutU16(len(mw.lineNumbers))
				for _, l := range mw.lineNumbers {
					b.PutU16(l.startPC)
					b.PutU16(l.line)
				}
				return nil
			}); err != nil {
				return err
			}
		}
		if len(mw.localVars) > 0 {
			if err := mw.putLocalVariableTable(body, "LocalVariableTable", mw.localVars); err != nil {
				return err
			}
		}
		if len(mw.localVarTypes) > 0 {
			if err := mw.putLocalVariableTable(body, "LocalVariableTypeTable", mw.localVarTypes); err != nil {
				return err
			}
		}
		if len(mw.codeVisibleTypeAnns) > 0 {
			if err := putNamedMethodAttr(body, mw, "RuntimeVisibleTypeAnnotations", func(b *jbbytes.ByteVector) error {
				jbattr.PutTypeAnnotations(b, mw.codeVisibleTypeAnns)
				return nil
			}); err != nil {
				return err
			}
		}
		if len(mw.codeInvisibleTypeAnns) > 0 {
			if err := putNamedMethodAttr(body, mw, "RuntimeInvisibleTypeAnnotations", func(b *jbbytes.ByteVector) error {
				jbattr.PutTypeAnnotations(b, mw.codeInvisibleTypeAnns)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (mw *MethodWriter) putLocalVariableTable(out *jbbytes.ByteVector, name string, vars []localVar) error {
	return putNamedMethodAttr(out, mw, name, func(body *jbbytes.ByteVector) error {
		body.PutU16(len(vars))
		for _, v := range vars {
			start, _ := v.start.Offset()
			end, _ := v.end.Offset()
			nameIdx, err := mw.table.AddUTF8(v.name)
			if err != nil {
				return err
			}
			descOrSig := v.descriptor
			if name == "LocalVariableTypeTable" {
				descOrSig = v.signature
			}
			descIdx, err := mw.table.AddUTF8(descOrSig)
			if err != nil {
				return err
			}
			body.PutU16(start)
			body.PutU16(end - start)
			body.PutU16(nameIdx.Index)
			body.PutU16(descIdx.Index)
			body.PutU16(v.index)
		}
		return nil
	})
}

// putStackMapTable walks mw.blocks in emission order and emits a frame
// for every block beyond the first whose label was ever a jump target,
// driving jbframe.EmitContext the same way classloader.go drives its own
// single-pass code emitters.
func (mw *MethodWriter) putStackMapTable(out *jbbytes.ByteVector, classVersion int) error {
	return putNamedMethodAttr(out, mw, "StackMapTable", func(body *jbbytes.ByteVector) error {
		ctx := jbframe.NewEmitContext(classVersion)
		count := 0
		counted := jbbytes.NewByteVector(64)
		for i, b := range mw.blocks {
			if i == 0 || !b.Has(jblabel.JumpTarget) {
				continue
			}
			fs, ok := b.FrameData().(*frameState)
			if !ok {
				continue
			}
			offset, err := b.Offset()
			if err != nil {
				continue
			}
			ctx.Emit(counted, mw.table, fs.frame, offset)
			count++
		}
		body.PutU16(count)
		body.PutBytes(counted.Bytes())
		return nil
	})
}

