package jbmethod

import (
	"jbasm/src/jbdesc"
	"jbasm/src/jbframe"
	"jbasm/src/jblabel"
	"jbasm/src/jbopcodes"
)

// frameState wraps the running jbframe.Frame for the block currently
// being emitted.
type frameState struct {
	frame *jbframe.Frame
}

func newFrameState(f *jbframe.Frame) *frameState { return &frameState{frame: f} }

// seedEntryFrame builds the method body's initial abstract state: the
// receiver (if any) and formal parameters occupy locals starting at
// slot 0, stack begins empty (section 4.5 step 2).
func (mw *MethodWriter) seedEntryFrame() *frameState {
	var locals []jbframe.VType
	if mw.access&jbopcodes.AccStatic == 0 {
		if mw.name == "<init>" {
			locals = append(locals, jbframe.UninitializedThis)
		} else {
			idx := mw.table.AddType(mw.thisInternalName)
			locals = append(locals, jbframe.NewReference(idx))
		}
	}
	params, _, ok := jbdesc.ParseMethod(mw.descriptor)
	if ok {
		for _, p := range params {
			locals = append(locals, mw.paramVType(p))
		}
	}
	f := jbframe.NewFrame(locals, nil)
	return newFrameState(f)
}

func (mw *MethodWriter) paramVType(p jbdesc.Param) jbframe.VType {
	switch p.Kind {
	case jbdesc.KindInt:
		return jbframe.Integer
	case jbdesc.KindFloat:
		return jbframe.Float
	case jbdesc.KindLong:
		return jbframe.Long
	case jbdesc.KindDouble:
		return jbframe.Double
	default:
		idx := mw.table.AddType(p.InternalName)
		return jbframe.NewReference(idx)
	}
}

// mergeFrameAt blends the running frame into the stored entry frame for
// label l (creating one on first visit). This is the running
// approximation this writer uses instead of a full worklist fix-point:
// every time control reaches l -- by fallthrough or by a resolved jump --
// the incoming state is merged via jbframe.Merge, matching the lattice
// join an ALL_FRAMES pass performs per edge, but evaluated eagerly in
// visit order rather than by iterating a block worklist to a fixed
// point. This is sufficient for acyclic and forward-branching control
// flow. No second pass runs: a back edge merged into a label after that
// label was visited updates its stored frame, but the block's
// instructions are not re-executed against the merged state.
func (mw *MethodWriter) mergeFrameAt(l *jblabel.Label, incoming *frameState) {
	existing, _ := l.FrameData().(*frameState)
	if existing == nil {
		l.SetFrameData(newFrameState(incoming.frame.Clone()))
		return
	}
	jbframe.Merge(mw.table, existing.frame, incoming.frame)
}
