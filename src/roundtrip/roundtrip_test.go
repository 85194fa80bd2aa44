package roundtrip

import (
	"os"
	"path/filepath"
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbclass"
	"jbasm/src/jbmethod"
	"jbasm/src/jbopcodes"
)

func writeSampleClass(t *testing.T) string {
	t.Helper()
	cw := jbclass.NewClassWriter(jbclass.Options{ComputeMode: jbmethod.Nothing})
	if err := cw.VisitHeader(jbopcodes.V1_8, jbopcodes.AccPublic|jbopcodes.AccSuper, "pkg/Widget", "", "java/lang/Object", nil); err != nil {
		t.Fatal(err)
	}
	if err := cw.VisitSource("Widget.java", ""); err != nil {
		t.Fatal(err)
	}
	fv, err := cw.VisitField(jbopcodes.AccPrivate|jbopcodes.AccFinal, "name", "Ljava/lang/String;", "", nil)
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

	path := filepath.Join(t.TempDir(), "Widget.class")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckFileFindsNoDiscrepancies(t *testing.T) {
	path := writeSampleClass(t)
	rep, err := CheckFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.OK() {
		t.Fatalf("unexpected discrepancies: %v", rep.Diffs)
	}
	if rep.MethodsChecked != 1 {
		t.Fatalf("MethodsChecked = %d, want 1", rep.MethodsChecked)
	}
	if rep.ConstantGrowth < 0 {
		t.Fatalf("ConstantGrowth = %d, want >= 0", rep.ConstantGrowth)
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "does-not-exist.class")); err == nil {
		t.Fatal("expected an error opening a nonexistent fixture")
	}
}
