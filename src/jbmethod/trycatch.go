package jbmethod

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbframe"
	"jbasm/src/jblabel"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

// VisitTryCatchBlock declares an exception_table entry (JVMS 4.7.3).
// catchType is an internal class name, or "" for a finally-style handler
// that catches java/lang/Throwable.
func (mw *MethodWriter) VisitTryCatchBlock(start, end, handler jbvisit.Label, catchType string) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	startLabel := mw.labelFor(start)
	endLabel := mw.labelFor(end)
	handlerLabel := mw.labelFor(handler)
	handlerLabel.Set(jblabel.JumpTarget)

	h := &jbattr.Handler{CatchTypeTableIndex: -1}
	var caughtType jbframe.VType = jbframe.NewReference(mw.table.AddType("java/lang/Throwable"))
	if catchType != "" {
		sym, err := mw.table.AddClass(catchType)
		if err != nil {
			return err
		}
		h.CatchType = sym.Index
		h.CatchTypeTableIndex = mw.table.AddType(catchType)
		caughtType = jbframe.NewReference(h.CatchTypeTableIndex)
	}
	mw.handlerCatchType[handlerLabel] = caughtType

	h.Next = mw.handlers
	mw.handlers = h
	if mw.lastHandler == nil {
		mw.lastHandler = h
	}
	mw.pendingHandlers = append(mw.pendingHandlers, pendingHandler{start: startLabel, end: endLabel, handler: h})

	startLabel.AddEdge(jblabel.NewExceptionEdge(handlerLabel, caughtType.Payload()))
	return nil
}

// VisitTryCatchAnnotation buffers a type annotation targeting a
// try-catch block's caught-type use (JVMS 4.7.20.1 target_type 0x42).
func (mw *MethodWriter) VisitTryCatchAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	return mw.bufferCodeTypeAnnotation(typeRef, typePath, descriptor, visible)
}

// VisitInsnAnnotation buffers a type annotation targeting an instruction
// use of a type (NEW/CHECKCAST/INSTANCEOF/method-reference targets).
func (mw *MethodWriter) VisitInsnAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	return mw.bufferCodeTypeAnnotation(typeRef, typePath, descriptor, visible)
}

// VisitLocalVariableAnnotation buffers a type annotation targeting a
// local variable's declared type (JVMS 4.7.20.1 target_type 0x40/0x41).
func (mw *MethodWriter) VisitLocalVariableAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, start, end []jbvisit.Label, index []int, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	for i := range start {
		s, err := mw.labelFor(start[i]).Offset()
		if err != nil {
			s = 0 // not yet resolved: start_pc is recorded as 0
		}
		e, err := mw.labelFor(end[i]).Offset()
		if err != nil {
			e = s
		}
		typeRef.LocalVarTable = append(typeRef.LocalVarTable, jbattr.LocalVarTarget{StartPC: s, Length: e - s, Index: index[i]})
	}
	return mw.bufferCodeTypeAnnotation(typeRef, typePath, descriptor, visible)
}

func (mw *MethodWriter) bufferCodeTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	typeIdx, err := mw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ta := &jbattr.TypeAnnotation{Target: typeRef, Path: typePath, Payload: jbattr.Annotation{TypeIndex: typeIdx.Index}}
	if visible {
		mw.codeVisibleTypeAnns = append(mw.codeVisibleTypeAnns, ta)
	} else {
		mw.codeInvisibleTypeAnns = append(mw.codeInvisibleTypeAnns, ta)
	}
	return jbattr.NewAnnotationBuilder(mw.table, &ta.Payload), nil
}

// VisitLocalVariable declares a LocalVariableTable/LocalVariableTypeTable
// entry (JVMS 4.7.13/4.7.14). A non-empty signature additionally records
// a LocalVariableTypeTable row alongside the LocalVariableTable one.
func (mw *MethodWriter) VisitLocalVariable(name, descriptor, signature string, start, end jbvisit.Label, index int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	lv := localVar{name: name, descriptor: descriptor, start: mw.labelFor(start), end: mw.labelFor(end), index: index}
	mw.localVars = append(mw.localVars, lv)
	if signature != "" {
		lv.signature = signature
		mw.localVarTypes = append(mw.localVarTypes, lv)
	}
	return nil
}

// VisitLineNumber declares a LineNumberTable entry (JVMS 4.7.12).
func (mw *MethodWriter) VisitLineNumber(line int, start jbvisit.Label) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	l := mw.labelFor(start)
	pc, err := l.Offset()
	if err != nil {
		// start hasn't been visited yet; this ordering is unusual but not
		// fatal -- record the label and resolve it in VisitMaxs instead.
		mw.deferredLineNumbers = append(mw.deferredLineNumbers, deferredLine{label: l, line: line})
		return nil
	}
	mw.lineNumbers = append(mw.lineNumbers, lineEntry{startPC: pc, line: line})
	return nil
}

type pendingHandler struct {
	start, end *jblabel.Label
	handler    *jbattr.Handler
}

type deferredLine struct {
	label *jblabel.Label
	line  int
}

// VisitFrame replaces the running frame with a caller-supplied absolute
// frame under MaxStackAndLocalFromFrames and InsertedFrames; every other
// mode ignores it (AllFrames derives its own).
func (mw *MethodWriter) VisitFrame(locals, stack []any) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	if mw.mode != MaxStackAndLocalFromFrames && mw.mode != InsertedFrames {
		return nil
	}
	ls := make([]jbframe.VType, 0, len(locals))
	for _, l := range locals {
		v, ok := l.(jbframe.VType)
		if !ok {
			return mw.fail(jerrors.InvalidArgument, "visit_frame local entries must be jbframe.VType values")
		}
		ls = append(ls, v)
	}
	ss := make([]jbframe.VType, 0, len(stack))
	for _, s := range stack {
		v, ok := s.(jbframe.VType)
		if !ok {
			return mw.fail(jerrors.InvalidArgument, "visit_frame stack entries must be jbframe.VType values")
		}
		ss = append(ss, v)
	}
	mw.currentFrame = newFrameState(jbframe.NewFrame(ls, ss))
	return nil
}
