package jbclass

import (
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbmethod"
	"jbasm/src/jbopcodes"
)

func TestClassWriterMinimalClass(t *testing.T) {
	cw := NewClassWriter(Options{ComputeMode: jbmethod.Nothing})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic|jbopcodes.AccSuper, "pkg/Foo", "", "java/lang/Object", nil); err != nil {
		t.Fatal(err)
	}
	mv, err := cw.VisitMethod(jbopcodes.AccPublic, "<init>", "()V", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitCode(); err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitVarInsn(jbopcodes.ALOAD, 0); err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitMethodInsn(jbopcodes.INVOKESPECIAL, "java/lang/Object", "<init>", "()V", false); err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitInsn(jbopcodes.RETURN); err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitMaxs(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := mv.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitEnd(); err != nil {
		t.Fatal(err)
	}

	out := jbbytes.NewByteVector(0)
	if err := cw.Put(out); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	if len(b) < 10 {
		t.Fatalf("output too short: %d bytes", len(b))
	}
	magicWord := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if magicWord != magic {
		t.Fatalf("magic = %#x, want %#x", magicWord, magic)
	}
	major := int(b[6])<<8 | int(b[7])
	if major != jbopcodes.MajorVersion(jbopcodes.V1_8) {
		t.Fatalf("major version = %d, want %d", major, jbopcodes.MajorVersion(jbopcodes.V1_8))
	}
}

func TestClassWriterRejectsPutBeforeEnd(t *testing.T) {
	cw := NewClassWriter(Options{})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic, "pkg/Bar", "", "java/lang/Object", nil); err != nil {
		t.Fatal(err)
	}
	out := jbbytes.NewByteVector(0)
	if err := cw.Put(out); err == nil {
		t.Fatal("expected InvalidState when calling Put before visit_end")
	}
}

func TestClassWriterRejectsDoubleHeader(t *testing.T) {
	cw := NewClassWriter(Options{})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic, "pkg/Baz", "", "java/lang/Object", nil); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic, "pkg/Baz", "", "java/lang/Object", nil); err == nil {
		t.Fatal("expected InvalidState on second visit_header")
	}
}

func TestClassWriterFieldAndSourceFile(t *testing.T) {
	cw := NewClassWriter(Options{})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic, "pkg/Quux", "", "java/lang/Object", []string{"java/io/Serializable"}); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitSource("Quux.java", ""); err != nil {
		t.Fatal(err)
	}
	fv, err := cw.VisitField(jbopcodes.AccPrivate, "count", "I", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fv.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	out := jbbytes.NewByteVector(0)
	if err := cw.Put(out); err != nil {
		t.Fatal(err)
	}
	if out.Len() == 0 {
		t.Fatal("expected non-empty output")
	}
}
