// Package roundtrip memory-maps compiled .class fixtures and checks the
// identity invariant described for jbreader/jbclass: parse, replay
// through a paired ClassWriter, and compare the result against a fresh
// re-parse of the output. Grounded on saferwall-pe/file.go's New, which
// opens a file and maps it read-only with github.com/edsrzf/mmap-go
// instead of os.ReadFile; this package does the same for the much
// smaller fixtures a class-file writer needs to check itself against.
package roundtrip

import (
	"bytes"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"jbasm/src/jbbytes"
	"jbasm/src/jbclass"
	"jbasm/src/jbmethod"
	"jbasm/src/jbreader"
	"jbasm/src/jbtrace"
	"jbasm/src/jerrors"
)

// Fixture is a memory-mapped .class file held open for the duration of a
// Check. Close unmaps it.
type Fixture struct {
	f    *os.File
	data mmap.MMap
}

// Open maps name read-only. The caller must Close it.
func Open(name string) (*Fixture, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, err, "opening fixture %s", name)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, jerrors.Wrap(jerrors.InvalidArgument, err, "mapping fixture %s", name)
	}
	return &Fixture{f: f, data: data}, nil
}

// Close unmaps the fixture and closes the underlying file.
func (fx *Fixture) Close() error {
	if fx.data != nil {
		_ = fx.data.Unmap()
	}
	if fx.f != nil {
		return fx.f.Close()
	}
	return nil
}

// Bytes returns the mapped contents. The slice is only valid until Close.
func (fx *Fixture) Bytes() []byte { return fx.data }

// Report summarizes one fixture's round trip.
type Report struct {
	Name          string
	OriginalSize  int
	ReplayedSize  int
	ConstantGrowth int // replayed pool entry count minus original, >=0 expected
	MethodsChecked int
	Diffs         []string
}

// OK reports whether the round trip found no semantic discrepancies.
func (r *Report) OK() bool { return len(r.Diffs) == 0 }

// Check parses data, replays it through a ClassWriter paired on the
// original constant pool (NewPairedSymbolTable + AdoptPool), serializes
// the result, and compares the replay against a fresh re-parse for the
// invariants spelled out on jbreader.ClassReader.Accept: same header,
// same field and method inventory, and byte-identical Code attributes
// for every method (the part copy-through must get exactly right, since
// this package never disassembles bytecode to check it any other way).
func Check(name string, data []byte) (*Report, error) {
	rep := &Report{Name: name, OriginalSize: len(data)}

	orig, err := jbreader.Parse(data)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidArgument, err, "parsing %s", name)
	}

	table := orig.NewPairedSymbolTable()
	cw := jbclass.NewClassWriter(jbclass.Options{ComputeMode: jbmethod.Nothing})
	cw.AdoptPool(table)
	if err := orig.Accept(cw); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidState, err, "replaying %s", name)
	}

	out := jbbytes.NewByteVector(len(data))
	if err := cw.Put(out); err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidState, err, "serializing replay of %s", name)
	}
	rep.ReplayedSize = out.Len()

	replayed, err := jbreader.Parse(out.Bytes())
	if err != nil {
		return nil, jerrors.Wrap(jerrors.InvalidState, err, "re-parsing replay of %s", name)
	}

	origCount, _ := orig.Pool()
	replayedCount, _ := replayed.Pool()
	rep.ConstantGrowth = replayedCount - origCount
	if rep.ConstantGrowth < 0 {
		rep.Diffs = append(rep.Diffs, "replayed pool shrank, adopted entries were not carried through")
	}

	compare(orig.Summary(), replayed.Summary(), rep)

	if rep.OK() {
		jbtrace.Info("roundtrip: %s ok (pool %d -> %d entries)", name, origCount, replayedCount)
	} else {
		jbtrace.Warning("roundtrip: %s found %d discrepancies", name, len(rep.Diffs))
	}
	return rep, nil
}

// CheckFile opens, maps, checks, and closes a single fixture.
func CheckFile(name string) (*Report, error) {
	fx, err := Open(name)
	if err != nil {
		return nil, err
	}
	defer fx.Close()
	return Check(name, fx.Bytes())
}

func compare(orig, replayed jbreader.ClassSummary, rep *Report) {
	if orig.ThisName != replayed.ThisName {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("thisName: %s -> %s", orig.ThisName, replayed.ThisName))
	}
	if orig.SuperName != replayed.SuperName {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("superName: %s -> %s", orig.SuperName, replayed.SuperName))
	}
	if orig.SourceFile != replayed.SourceFile {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("sourceFile: %q -> %q", orig.SourceFile, replayed.SourceFile))
	}
	if len(orig.Interfaces) != len(replayed.Interfaces) {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("interface count: %d -> %d", len(orig.Interfaces), len(replayed.Interfaces)))
	} else {
		for i := range orig.Interfaces {
			if orig.Interfaces[i] != replayed.Interfaces[i] {
				rep.Diffs = append(rep.Diffs, fmt.Sprintf("interface[%d]: %s -> %s", i, orig.Interfaces[i], replayed.Interfaces[i]))
			}
		}
	}

	if len(orig.Fields) != len(replayed.Fields) {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("field count: %d -> %d", len(orig.Fields), len(replayed.Fields)))
	} else {
		for i := range orig.Fields {
			a, b := orig.Fields[i], replayed.Fields[i]
			if a.Name != b.Name || a.Descriptor != b.Descriptor {
				rep.Diffs = append(rep.Diffs, fmt.Sprintf("field[%d]: %s %s -> %s %s", i, a.Descriptor, a.Name, b.Descriptor, b.Name))
			}
			if a.ConstantValue != b.ConstantValue {
				rep.Diffs = append(rep.Diffs, fmt.Sprintf("field[%d] %s constantValue: %#v -> %#v", i, a.Name, a.ConstantValue, b.ConstantValue))
			}
		}
	}

	if len(orig.Methods) != len(replayed.Methods) {
		rep.Diffs = append(rep.Diffs, fmt.Sprintf("method count: %d -> %d", len(orig.Methods), len(replayed.Methods)))
		return
	}
	for i := range orig.Methods {
		a, b := orig.Methods[i], replayed.Methods[i]
		rep.MethodsChecked++
		if a.Name != b.Name || a.Descriptor != b.Descriptor {
			rep.Diffs = append(rep.Diffs, fmt.Sprintf("method[%d]: %s %s -> %s %s", i, a.Name, a.Descriptor, b.Name, b.Descriptor))
			continue
		}
		if (a.Code == nil) != (b.Code == nil) {
			rep.Diffs = append(rep.Diffs, fmt.Sprintf("method %s%s: code presence changed", a.Name, a.Descriptor))
			continue
		}
		if a.Code != nil && !bytes.Equal(a.Code, b.Code) {
			rep.Diffs = append(rep.Diffs, fmt.Sprintf("method %s%s: Code attribute bytes diverge (%d vs %d bytes)", a.Name, a.Descriptor, len(a.Code), len(b.Code)))
		}
	}
}
