package jblabel

// EdgeKind discriminates what Edge.Info means (section 3 "Edge").
type EdgeKind int

const (
	// EdgeStackDelta edges carry, in Info, the net stack-size change a
	// block contributes, consumed by the max-stack-only data-flow pass.
	EdgeStackDelta EdgeKind = iota
	// EdgeException edges connect a try-block to its handler; Info holds
	// the handled type's type-table index (see CatchTypeIndex).
	EdgeException
)

// Edge is a directed control-flow successor link (section 3
// "Edge"). A basic block's outgoing edges form a singly-linked list
// rooted at Label.Edges.
type Edge struct {
	Kind EdgeKind
	Info int
	To   *Label
	next *Edge
}

// NewStackDeltaEdge creates a max-stack-analysis edge to target carrying
// the net stack-size delta produced executing the source block.
func NewStackDeltaEdge(target *Label, delta int) *Edge {
	return &Edge{Kind: EdgeStackDelta, Info: delta, To: target}
}

// NewExceptionEdge creates a handler edge to target, naming the caught
// type by its type-table index (see jbsym.SymbolTable.AddType). Pass the
// index for "java/lang/Throwable" when the handler has no catch type
// (a finally block, JVMS 4.7.3).
func NewExceptionEdge(target *Label, catchTypeIndex int) *Edge {
	return &Edge{Kind: EdgeException, Info: catchTypeIndex, To: target}
}

// Next returns the next edge in this source block's outgoing list.
func (e *Edge) Next() *Edge { return e.next }

// CatchTypeIndex returns Info when Kind is EdgeException; it panics
// otherwise since a stack-delta edge has no catch type.
func (e *Edge) CatchTypeIndex() int {
	if e.Kind != EdgeException {
		panic("jblabel: CatchTypeIndex on a non-exception edge")
	}
	return e.Info
}

// StackDelta returns Info when Kind is EdgeStackDelta.
func (e *Edge) StackDelta() int {
	if e.Kind != EdgeStackDelta {
		panic("jblabel: StackDelta on a non-stack-delta edge")
	}
	return e.Info
}
