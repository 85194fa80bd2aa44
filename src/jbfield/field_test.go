package jbfield

import (
	"testing"

	"jbasm/src/jbbytes"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
)

func TestFieldWriterConstantValue(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	fw, err := NewFieldWriter(table, jbopcodes.AccStatic|jbopcodes.AccFinal, "MAX", "I", "", int32(100))
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	out := jbbytes.NewByteVector(0)
	if err := fw.Put(out); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	attrCount := int(b[6])<<8 | int(b[7])
	if attrCount != 1 {
		t.Fatalf("attribute count = %d, want 1 (ConstantValue)", attrCount)
	}
}

func TestFieldWriterRejectsEventsAfterEnd(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	fw, err := NewFieldWriter(table, jbopcodes.AccPrivate, "x", "I", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if _, err := fw.VisitAnnotation("Lfoo/Bar;", true); err == nil {
		t.Fatal("expected InvalidState after visit_end")
	}
}

func TestFieldWriterAnnotationElementValues(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V1_8)
	fw, err := NewFieldWriter(table, jbopcodes.AccPrivate, "x", "I", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	av, err := fw.VisitAnnotation("Ljava/lang/Deprecated;", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := av.Visit("since", "1.0"); err != nil {
		t.Fatal(err)
	}
	if err := av.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if err := fw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	if len(fw.visibleAnnotations) != 1 || len(fw.visibleAnnotations[0].ElementValues) != 1 {
		t.Fatal("expected one annotation with one element value pair")
	}
}

func TestRecordComponentWriterBasic(t *testing.T) {
	table := jbsym.NewSymbolTable(jbopcodes.V17)
	rw, err := NewRecordComponentWriter(table, "name", "Ljava/lang/String;", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := rw.VisitEnd(); err != nil {
		t.Fatal(err)
	}
	out := jbbytes.NewByteVector(0)
	if err := rw.Put(out); err != nil {
		t.Fatal(err)
	}
	if len(out.Bytes()) < 6 {
		t.Fatal("expected at least name_index, descriptor_index, attributes_count")
	}
}
