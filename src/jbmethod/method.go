// Package jbmethod implements MethodWriter, the method-level state
// machine that receives visit events in a prescribed order, appends
// bytes to a growing code array, opens and closes basic blocks, and
// drives jbframe to compute stack sizes or full StackMapTable frames
// (section 4.5).
package jbmethod

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbbytes"
	"jbasm/src/jbdesc"
	"jbasm/src/jbframe"
	"jbasm/src/jblabel"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

// ComputeMode selects how much of max_stack/max_locals/StackMapTable
// MethodWriter derives itself versus trusting the caller (section
// 4.5 "Compute modes").
type ComputeMode int

const (
	// Nothing: the caller supplies visit_maxs directly and those values
	// are used as given; no StackMapTable is produced. MethodWriter still
	// runs its running frame over every instruction, and the result is
	// not used.
	Nothing ComputeMode = iota
	// MaxStackAndLocal: derive max_stack/max_locals via a data-flow pass
	// over the instruction stream; no StackMapTable is produced.
	MaxStackAndLocal
	// MaxStackAndLocalFromFrames: like MaxStackAndLocal, but trusts any
	// caller-supplied visit_frame calls instead of deriving merges.
	MaxStackAndLocalFromFrames
	// InsertedFrames: each caller-supplied visit_frame replaces the
	// running frame; max_stack/max_locals are taken from visit_maxs, and
	// no StackMapTable is produced.
	InsertedFrames
	// AllFrames: computes max_stack, max_locals, and StackMapTable from
	// the instruction stream. Frames are merged once per control-flow edge
	// in visit order (see mergeFrameAt) and are not iterated to a fixed
	// point.
	AllFrames
)

type methodState int

const (
	stateCreated methodState = iota
	stateParametersVisited
	stateCodeOpen
	stateMaxsComputed
	stateEnded
)

// parameter is one visit_parameter event (JVMS 4.7.24 MethodParameters).
type parameter struct {
	name   string
	access int
}

// lineEntry is one LineNumberTable row.
type lineEntry struct {
	startPC int
	line    int
}

// localVar is one LocalVariableTable / LocalVariableTypeTable row.
type localVar struct {
	name, descriptor, signature string
	start, end                  *jblabel.Label
	index                       int
}

// MethodWriter assembles one method_info, including its Code attribute
// when the method is not abstract/native.
type MethodWriter struct {
	table *jbsym.SymbolTable
	mode  ComputeMode

	access           int
	nameIndex        int
	descIndex        int
	descriptor       string
	name             string
	thisInternalName string

	exceptions []string
	signature  string
	deprecated bool
	parameters []parameter

	annotationDefault    *jbattr.ElementValue
	visibleAnnotations   []*jbattr.Annotation
	invisibleAnnotations []*jbattr.Annotation
	visibleParamAnns     []jbattr.ParameterAnnotations
	invisibleParamAnns   []jbattr.ParameterAnnotations
	visibleTypeAnns      []*jbattr.TypeAnnotation
	invisibleTypeAnns    []*jbattr.TypeAnnotation
	attrs                *jbattr.Attribute

	code            *jbbytes.ByteVector
	hasCode         bool
	hasAsmInsns     bool
	maxStack        int
	maxLocals       int
	maxStackSet     bool

	labelOf      map[jbvisit.Label]*jblabel.Label
	blocks       []*jblabel.Label // basic-block heads, in emission order
	currentBlock *jblabel.Label
	currentFrame *frameState
	entryFrame   *frameState

	// handlerCatchType maps an exception handler's start label to the
	// verification type its sole input stack slot holds (the caught
	// exception reference), recorded by VisitTryCatchBlock.
	handlerCatchType map[*jblabel.Label]jbframe.VType

	handlers        *jbattr.Handler
	lastHandler     *jbattr.Handler
	pendingHandlers []pendingHandler

	lineNumbers         []lineEntry
	deferredLineNumbers []deferredLine
	localVars           []localVar
	localVarTypes       []localVar

	codeVisibleTypeAnns   []*jbattr.TypeAnnotation
	codeInvisibleTypeAnns []*jbattr.TypeAnnotation

	st methodState
}

var _ jbvisit.MethodVisitor = (*MethodWriter)(nil)

// NewMethodWriter starts a method declaration under the given compute
// mode (section 4.5 "Compute modes"). thisInternalName is the
// enclosing class's internal name, needed to seed the receiver's
// verification type in slot 0 of non-static methods.
func NewMethodWriter(table *jbsym.SymbolTable, mode ComputeMode, thisInternalName string, access int, name, descriptor, signature string, exceptions []string) (*MethodWriter, error) {
	nameIdx, err := table.AddUTF8(name)
	if err != nil {
		return nil, err
	}
	descIdx, err := table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	mw := &MethodWriter{
		table:            table,
		mode:             mode,
		access:           access,
		nameIndex:        nameIdx.Index,
		descIndex:        descIdx.Index,
		descriptor:       descriptor,
		name:             name,
		thisInternalName: thisInternalName,
		signature:        signature,
		exceptions:       exceptions,
		code:             jbbytes.NewByteVector(64),
		labelOf:          make(map[jbvisit.Label]*jblabel.Label),
		handlerCatchType: make(map[*jblabel.Label]jbframe.VType),
	}
	return mw, nil
}

func (mw *MethodWriter) fail(kind jerrors.Kind, format string, args ...any) error {
	return jerrors.New(kind, format, args...).WithMethod(mw.name, mw.descriptor)
}

func (mw *MethodWriter) requireState(want methodState) error {
	if mw.st != want {
		return mw.fail(jerrors.InvalidState, "method visit event requires state %d, got %d", want, mw.st)
	}
	return nil
}

func (mw *MethodWriter) requireAtLeast(min methodState) error {
	if mw.st < min {
		return mw.fail(jerrors.InvalidState, "method visit event requires state >= %d, got %d", min, mw.st)
	}
	return nil
}

// VisitParameter records one MethodParameters entry (JVMS 4.7.24).
func (mw *MethodWriter) VisitParameter(name string, access int) error {
	if mw.st > stateParametersVisited {
		return mw.fail(jerrors.InvalidState, "visit_parameter after parameters closed")
	}
	mw.st = stateParametersVisited
	mw.parameters = append(mw.parameters, parameter{name: name, access: access})
	return nil
}

// VisitAnnotationDefault starts the AnnotationDefault attribute
// (JVMS 4.7.22), valid only for annotation interface element methods.
func (mw *MethodWriter) VisitAnnotationDefault() (jbvisit.AnnotationVisitor, error) {
	if err := mw.requireAtLeast(stateCreated); err != nil {
		return nil, err
	}
	mw.annotationDefault = &jbattr.ElementValue{}
	holder := &jbattr.Annotation{}
	builder := jbattr.NewAnnotationBuilder(mw.table, holder)
	return &defaultValueVisitor{builder: builder, holder: holder, out: mw.annotationDefault}, nil
}

// defaultValueVisitor adapts a single top-level element value (no name)
// onto AnnotationBuilder, which is keyed on named pairs; it writes under
// a throwaway name and copies the result out on VisitEnd.
type defaultValueVisitor struct {
	builder *jbattr.AnnotationBuilder
	holder  *jbattr.Annotation
	out     *jbattr.ElementValue
}

func (d *defaultValueVisitor) Visit(_ string, value any) error { return d.builder.Visit("value", value) }
func (d *defaultValueVisitor) VisitEnum(_ string, descriptor, value string) error {
	return d.builder.VisitEnum("value", descriptor, value)
}
func (d *defaultValueVisitor) VisitAnnotation(_ string, descriptor string) (jbvisit.AnnotationVisitor, error) {
	return d.builder.VisitAnnotation("value", descriptor)
}
func (d *defaultValueVisitor) VisitArray(_ string) (jbvisit.AnnotationVisitor, error) {
	return d.builder.VisitArray("value")
}
func (d *defaultValueVisitor) VisitEnd() error {
	if len(d.holder.ElementValues) == 1 {
		*d.out = d.holder.ElementValues[0].Value
	}
	return nil
}

// VisitAnnotation buffers a runtime (in)visible method annotation.
func (mw *MethodWriter) VisitAnnotation(descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	typeIdx, err := mw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ann := &jbattr.Annotation{TypeIndex: typeIdx.Index}
	if visible {
		mw.visibleAnnotations = append(mw.visibleAnnotations, ann)
	} else {
		mw.invisibleAnnotations = append(mw.invisibleAnnotations, ann)
	}
	return jbattr.NewAnnotationBuilder(mw.table, ann), nil
}

// VisitAnnotableParameterCount records the num_parameters field of a
// RuntimeVisibleParameterAnnotations/RuntimeInvisibleParameterAnnotations
// attribute, sizing the parallel annotation-list slice (JVMS 4.7.18).
func (mw *MethodWriter) VisitAnnotableParameterCount(count int, visible bool) error {
	lists := make([]jbattr.ParameterAnnotations, count)
	if visible {
		mw.visibleParamAnns = lists
	} else {
		mw.invisibleParamAnns = lists
	}
	return nil
}

// VisitParameterAnnotation buffers one formal parameter's annotation.
func (mw *MethodWriter) VisitParameterAnnotation(parameter int, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	typeIdx, err := mw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ann := &jbattr.Annotation{TypeIndex: typeIdx.Index}
	lists := &mw.visibleParamAnns
	if !visible {
		lists = &mw.invisibleParamAnns
	}
	for len(*lists) <= parameter {
		*lists = append(*lists, jbattr.ParameterAnnotations{})
	}
	(*lists)[parameter].Annotations = append((*lists)[parameter].Annotations, ann)
	return jbattr.NewAnnotationBuilder(mw.table, ann), nil
}

// VisitTypeAnnotation buffers a type annotation on a use of a type in
// the method's signature (not inside the method body; see
// VisitInsnAnnotation/VisitTryCatchAnnotation/VisitLocalVariableAnnotation
// for code-relative targets).
func (mw *MethodWriter) VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	typeIdx, err := mw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ta := &jbattr.TypeAnnotation{Target: typeRef, Path: typePath, Payload: jbattr.Annotation{TypeIndex: typeIdx.Index}}
	if visible {
		mw.visibleTypeAnns = append(mw.visibleTypeAnns, ta)
	} else {
		mw.invisibleTypeAnns = append(mw.invisibleTypeAnns, ta)
	}
	return jbattr.NewAnnotationBuilder(mw.table, &ta.Payload), nil
}

// VisitAttribute appends a user-supplied or pre-serialized method attribute.
func (mw *MethodWriter) VisitAttribute(attr *jbattr.Attribute) error {
	attr.Next = mw.attrs
	mw.attrs = attr
	return nil
}

// SetDeprecated marks the method as deprecated (JVMS 4.7.15).
func (mw *MethodWriter) SetDeprecated() { mw.deprecated = true }

// VisitCode opens the method body; required before any instruction event.
func (mw *MethodWriter) VisitCode() error {
	if mw.st >= stateCodeOpen {
		return mw.fail(jerrors.InvalidState, "visit_code called twice")
	}
	mw.st = stateCodeOpen
	mw.hasCode = true
	entry := jblabel.New()
	entry.Set(jblabel.Reachable)
	mw.currentBlock = entry
	mw.blocks = append(mw.blocks, entry)
	mw.currentFrame = mw.seedEntryFrame()
	mw.entryFrame = newFrameState(mw.currentFrame.frame.Clone())
	mw.maxLocals = mw.descriptorLocalWords()
	return nil
}

func (mw *MethodWriter) labelFor(l jbvisit.Label) *jblabel.Label {
	if jl, ok := mw.labelOf[l]; ok {
		return jl
	}
	jl := jblabel.New()
	mw.labelOf[l] = jl
	return jl
}

// descriptorLocalWords computes the number of local-variable slots the
// method's own receiver + parameters occupy, the frame-seeding step of
// ALL_FRAMES/MAX_STACK_AND_LOCAL (section 4.5 step 2).
func (mw *MethodWriter) descriptorLocalWords() int {
	params, _, ok := jbdesc.ParseMethod(mw.descriptor)
	if !ok {
		return 0
	}
	words := jbdesc.ArgWords(params)
	if mw.access&jbopcodes.AccStatic == 0 {
		words++
	}
	return words
}
