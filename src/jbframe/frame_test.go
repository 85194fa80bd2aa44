package jbframe

import (
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
)

func TestExecuteSimpleArithmeticStackEffect(t *testing.T) {
	f := NewFrame([]VType{Integer, Integer}, nil)
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)

	ops := []int{jbopcodes.ILOAD_0, jbopcodes.ILOAD_1, jbopcodes.IADD, jbopcodes.IRETURN}
	for _, op := range ops {
		insn := Insn{Opcode: op, LocalIndex: 0}
		if op == jbopcodes.ILOAD_1 {
			insn.LocalIndex = 1
		}
		if err := f.Execute(insn, table); err != nil {
			t.Fatalf("execute %#x: %v", op, err)
		}
	}
	if f.MaxStackWords != 2 {
		t.Fatalf("max stack = %d, want 2", f.MaxStackWords)
	}
	if len(f.Stack) != 0 {
		t.Fatalf("stack not empty after ireturn: %v", f.Stack)
	}
}

func TestExecuteLongOccupiesTwoWords(t *testing.T) {
	f := NewFrame(nil, nil)
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	if err := f.Execute(Insn{Opcode: jbopcodes.LCONST_0}, table); err != nil {
		t.Fatal(err)
	}
	if f.StackWords != 2 {
		t.Fatalf("long push left StackWords=%d, want 2", f.StackWords)
	}
	if len(f.Stack) != 1 {
		t.Fatalf("long push left %d abstract slots, want 1", len(f.Stack))
	}
}

func TestMergePrimitiveMismatchCollapsesToTop(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	into := NewFrame([]VType{Integer}, nil)
	other := NewFrame([]VType{Float}, nil)
	changed := Merge(table, into, other)
	if !changed {
		t.Fatal("expected Merge to report a change")
	}
	if into.Locals[0] != Top {
		t.Fatalf("merged local = %v, want Top", into.Locals[0])
	}
}

func TestMergeIdenticalReferenceIsNoop(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	idx := table.AddType("java/lang/String")
	ref := NewReference(idx)
	into := NewFrame([]VType{ref}, nil)
	other := NewFrame([]VType{ref}, nil)
	if Merge(table, into, other) {
		t.Fatal("merging identical types should report no change")
	}
}

func TestMergeDisjointReferencesUseCommonSuperClass(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	table.CommonSuperClass = func(a, b string) string { return "java/lang/Object" }
	i1 := table.AddType("java/lang/Integer")
	i2 := table.AddType("java/lang/String")
	into := NewFrame([]VType{NewReference(i1)}, nil)
	other := NewFrame([]VType{NewReference(i2)}, nil)
	if !Merge(table, into, other) {
		t.Fatal("expected a change merging disjoint reference types")
	}
	merged := table.GetType(into.Locals[0].Payload())
	if merged.Name != "java/lang/Object" {
		t.Fatalf("merged supertype = %q, want java/lang/Object", merged.Name)
	}
}

func TestEmitSameFrameSmallDelta(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	ctx := NewEmitContext(jbopcodes.V1_8)
	out := jbbytes.NewByteVector(0)
	f := NewFrame(nil, nil)
	ctx.Emit(out, table, f, 10)
	if out.Bytes()[0] != 10 {
		t.Fatalf("SAME frame tag = %d, want offset_delta 10", out.Bytes()[0])
	}
}

func TestEmitSameLocals1StackItem(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	ctx := NewEmitContext(jbopcodes.V1_8)
	out := jbbytes.NewByteVector(0)
	f := NewFrame(nil, []VType{Integer})
	ctx.Emit(out, table, f, 5)
	if out.Bytes()[0] != 64+5 {
		t.Fatalf("SAME_LOCALS_1_STACK_ITEM tag = %d, want %d", out.Bytes()[0], 64+5)
	}
	if out.Bytes()[1] != itemInteger {
		t.Fatalf("stack item tag = %d, want itemInteger", out.Bytes()[1])
	}
}

func TestEmitAppendFrame(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	ctx := NewEmitContext(jbopcodes.V1_8)
	out := jbbytes.NewByteVector(0)

	ctx.Emit(out, table, NewFrame([]VType{Integer}, nil), 0)
	out2 := jbbytes.NewByteVector(0)
	ctx.Emit(out2, table, NewFrame([]VType{Integer, Float}, nil), 10)
	if out2.Bytes()[0] != 252 { // APPEND with one new local
		t.Fatalf("APPEND tag = %d, want 252", out2.Bytes()[0])
	}
}

func TestEmitLegacyFullFrameBelowV1_6(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_5)
	ctx := NewEmitContext(jbopcodes.V1_5)
	out := jbbytes.NewByteVector(0)
	ctx.Emit(out, table, NewFrame([]VType{Integer}, nil), 7)
	offset := int(out.Bytes()[0])<<8 | int(out.Bytes()[1])
	if offset != 7 {
		t.Fatalf("legacy frame offset = %d, want 7 (absolute, not delta)", offset)
	}
}
