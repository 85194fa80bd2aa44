package jbmethod

import (
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
)

func TestMethodWriterTrivialReturn(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "bump", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.RETURN); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitMaxs(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if mw.maxStack != 0 || mw.maxLocals != 1 {
		t.Fatalf("maxStack=%d maxLocals=%d, want 0,1 (caller-supplied under Nothing)", mw.maxStack, mw.maxLocals)
	}
	if mw.code.Len() != 1 {
		t.Fatalf("code length = %d, want 1 (RETURN)", mw.code.Len())
	}
}

func TestMethodWriterComputesMaxStackAndLocal(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, MaxStackAndLocal, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "add", "(II)I", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	// iload_0; iload_1; iadd; ireturn
	if err := mw.VisitVarInsn(jbopcodes.ILOAD, 0); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitVarInsn(jbopcodes.ILOAD, 1); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.IADD); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.IRETURN); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitMaxs(0, 0); err != nil {
		t.Fatal(err)
	}
	if mw.maxStack < 2 {
		t.Fatalf("maxStack = %d, want >= 2", mw.maxStack)
	}
	if mw.maxLocals < 2 {
		t.Fatalf("maxLocals = %d, want >= 2 (two int parameters)", mw.maxLocals)
	}
}

func TestMethodWriterWideLocalIndex(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "big", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitVarInsn(jbopcodes.ISTORE, 300); err != nil {
		t.Fatal(err)
	}
	if !mw.hasAsmInsns {
		t.Fatal("expected hasAsmInsns to be set after a WIDE-prefixed local index")
	}
	b := mw.code.Bytes()
	if b[0] != jbopcodes.WIDE || b[1] != jbopcodes.ISTORE {
		t.Fatalf("code = % x, want WIDE ISTORE prefix", b)
	}
}

func TestMethodWriterCompactsSmallLocalIndex(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "small", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitVarInsn(jbopcodes.ILOAD, 0); err != nil {
		t.Fatal(err)
	}
	b := mw.code.Bytes()
	if len(b) != 1 || b[0] != jbopcodes.ILOAD_0 {
		t.Fatalf("code = % x, want a single compacted iload_0 byte", b)
	}
}

func TestMethodWriterTryCatchBlock(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "guarded", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	start, end, handler := "start", "end", "handler"
	if err := mw.VisitTryCatchBlock(start, end, handler, "java/lang/Exception"); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitLabel(start); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.NOP); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitLabel(end); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitJumpInsn(jbopcodes.GOTO, "after"); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitLabel(handler); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.POP); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitLabel("after"); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.RETURN); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitMaxs(1, 0); err != nil {
		t.Fatal(err)
	}
	if mw.handlers == nil {
		t.Fatal("expected one exception_table entry to be recorded")
	}
	if mw.handlers.CatchType == 0 {
		t.Fatal("expected a resolved CatchType constant-pool index")
	}
}

func TestMethodWriterRejectsVisitCodeTwice(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic|jbopcodes.AccStatic, "f", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err == nil {
		t.Fatal("expected InvalidState on second visit_code")
	}
}

func TestMethodWriterPutEmitsCodeAttribute(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	mw, err := NewMethodWriter(table, Nothing, "pkg/Foo", jbopcodes.AccPublic, "<init>", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitVarInsn(jbopcodes.ALOAD, 0); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitMethodInsn(jbopcodes.INVOKESPECIAL, "java/lang/Object", "<init>", "()V", false); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitInsn(jbopcodes.RETURN); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitMaxs(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := mw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	out := jbbytes.NewByteVector(0)
	if err := mw.Put(out, jbopcodes.V1_8); err != nil {
		t.Fatal(err)
	}
	if out.Len() == 0 {
		t.Fatal("expected Put to emit at least the fixed method_info header bytes")
	}
}
