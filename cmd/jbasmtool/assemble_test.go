package main

import (
	"os"
	"path/filepath"
	"testing"

	"jbasm/src/jbreader"
)

const sampleSpec = `{
  "version": "V1_8",
  "access": ["public", "super"],
  "this": "pkg/Counter",
  "super": "java/lang/Object",
  "source": "Counter.java",
  "fields": [
    {"access": ["private"], "name": "count", "descriptor": "I"}
  ],
  "methods": [
    {
      "access": ["public"],
      "name": "<init>",
      "descriptor": "()V",
      "code": [
        {"op": "aload", "var": 0},
        {"op": "invokespecial", "owner": "java/lang/Object", "name": "<init>", "descriptor": "()V"},
        {"op": "aload", "var": 0},
        {"op": "iconst_0"},
        {"op": "putfield", "owner": "pkg/Counter", "name": "count", "descriptor": "I"},
        {"op": "return"}
      ]
    },
    {
      "access": ["public"],
      "name": "get",
      "descriptor": "()I",
      "code": [
        {"op": "aload", "var": 0},
        {"op": "getfield", "owner": "pkg/Counter", "name": "count", "descriptor": "I"},
        {"op": "ireturn"}
      ]
    }
  ]
}`

func TestRunAssembleProducesParseableClass(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "counter.json")
	if err := os.WriteFile(specPath, []byte(sampleSpec), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "Counter.class")

	if err := runAssemble(specPath, outPath); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	r, err := jbreader.Parse(data)
	if err != nil {
		t.Fatalf("assembled class did not parse: %v", err)
	}
	sum := r.Summary()
	if sum.ThisName != "pkg/Counter" || sum.SuperName != "java/lang/Object" {
		t.Fatalf("header = %+v", sum)
	}
	if len(sum.Fields) != 1 || sum.Fields[0].Name != "count" {
		t.Fatalf("fields = %+v", sum.Fields)
	}
	if len(sum.Methods) != 2 {
		t.Fatalf("got %d methods, want 2", len(sum.Methods))
	}
	for _, m := range sum.Methods {
		if m.Code == nil {
			t.Fatalf("method %s%s has no Code attribute", m.Name, m.Descriptor)
		}
	}
}

func TestRunDumpOnAssembledClass(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "counter.json")
	if err := os.WriteFile(specPath, []byte(sampleSpec), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "Counter.class")
	if err := runAssemble(specPath, outPath); err != nil {
		t.Fatal(err)
	}
	if err := runDump(outPath, true); err != nil {
		t.Fatal(err)
	}
}

func TestClassifyRecognizesEachCategory(t *testing.T) {
	cases := []struct {
		mnemonic string
		want     insnCategory
	}{
		{"return", catInsn},
		{"aload", catVar},
		{"bipush", catInt},
		{"checkcast", catType},
		{"getfield", catField},
		{"invokestatic", catMethod},
		{"ldc", catLdc},
		{"iinc", catIinc},
		{"tableswitch", catUnknown},
	}
	for _, c := range cases {
		if got, _ := classify(c.mnemonic); got != c.want {
			t.Errorf("classify(%q) = %v, want %v", c.mnemonic, got, c.want)
		}
	}
}
