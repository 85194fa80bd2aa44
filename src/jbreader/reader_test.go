package jbreader

import (
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbclass"
	"jbasm/src/jbmethod"
	"jbasm/src/jbopcodes"
)

func buildSampleClass(t *testing.T) []byte {
	t.Helper()
	cw := jbclass.NewClassWriter(jbclass.Options{ComputeMode: jbmethod.Nothing})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic|jbopcodes.AccSuper, "pkg/Sample", "", "java/lang/Object", []string{"java/io/Serializable"}); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitSource("Sample.java", ""); err != nil {
		t.Fatal(err)
	}
	fv, err := cw.VisitField(jbopcodes.AccPrivate|jbopcodes.AccStatic|jbopcodes.AccFinal, "LIMIT", "I", "", int32(10))
	if err != nil {
		t.Fatal(err)
	}
	if err := fv.VisitEnd(); err != nil {
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
	return out.Bytes()
}

func TestParseDecodesHeaderFieldsAndMethods(t *testing.T) {
	data := buildSampleClass(t)
	r, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if r.thisName != "pkg/Sample" {
		t.Fatalf("thisName = %q, want pkg/Sample", r.thisName)
	}
	if r.superName != "java/lang/Object" {
		t.Fatalf("superName = %q, want java/lang/Object", r.superName)
	}
	if len(r.interfaces) != 1 || r.interfaces[0] != "java/io/Serializable" {
		t.Fatalf("interfaces = %v, want [java/io/Serializable]", r.interfaces)
	}
	if r.sourceFile != "Sample.java" {
		t.Fatalf("sourceFile = %q, want Sample.java", r.sourceFile)
	}
	if len(r.fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(r.fields))
	}
	f := r.fields[0]
	if f.name != "LIMIT" || f.descriptor != "I" {
		t.Fatalf("field = %+v, want LIMIT/I", f)
	}
	v, ok := f.constantValue.(int32)
	if !ok || v != 10 {
		t.Fatalf("field constantValue = %#v, want int32(10)", f.constantValue)
	}
	if len(r.methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(r.methods))
	}
	m := r.methods[0]
	if m.name != "<init>" || m.descriptor != "()V" {
		t.Fatalf("method = %+v, want <init>/()V", m)
	}
	if m.code == nil {
		t.Fatal("expected a Code attribute on <init>")
	}
}

func TestAcceptReplaysOntoPairedClassWriter(t *testing.T) {
	data := buildSampleClass(t)
	r, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	table := r.NewPairedSymbolTable()
	cw := jbclass.NewClassWriter(jbclass.Options{ComputeMode: jbmethod.Nothing})
	cw.AdoptPool(table)
	if err := r.Accept(cw); err != nil {
		t.Fatal(err)
	}

	out := jbbytes.NewByteVector(0)
	if err := cw.Put(out); err != nil {
		t.Fatal(err)
	}

	r2, err := Parse(out.Bytes())
	if err != nil {
		t.Fatalf("re-parsing replayed class: %v", err)
	}
	if r2.thisName != r.thisName || r2.superName != r.superName {
		t.Fatalf("replayed header = %s/%s, want %s/%s", r2.thisName, r2.superName, r.thisName, r.superName)
	}
	if len(r2.interfaces) != len(r.interfaces) {
		t.Fatalf("replayed interfaces = %v, want %v", r2.interfaces, r.interfaces)
	}
	if r2.sourceFile != r.sourceFile {
		t.Fatalf("replayed sourceFile = %q, want %q", r2.sourceFile, r.sourceFile)
	}
	if len(r2.fields) != 1 || r2.fields[0].name != "LIMIT" || r2.fields[0].constantValue.(int32) != 10 {
		t.Fatalf("replayed fields = %+v", r2.fields)
	}
	if len(r2.methods) != 1 || r2.methods[0].name != "<init>" || r2.methods[0].code == nil {
		t.Fatalf("replayed methods = %+v", r2.methods)
	}
	// The replayed method's Code bytes must be byte-identical, since the
	// copy-through path never touches them -- only the constant pool
	// around them may grow with duplicate entries for attribute names
	// re-added via the generic VisitAttribute path.
	orig := r.methods[0].code.info
	got := r2.methods[0].code.info
	if len(orig) != len(got) {
		t.Fatalf("replayed Code attribute length = %d, want %d", len(got), len(orig))
	}
	for i := range orig {
		if orig[i] != got[i] {
			t.Fatalf("replayed Code attribute diverges at byte %d", i)
		}
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte{0, 1, 2, 3}); err == nil {
		t.Fatal("expected error for bad magic")
	}
}
