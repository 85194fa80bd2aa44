package jblabel

import (
	"testing"

	"jbasm/src/jbbytes"
)

func TestForwardReferencePatchedOnResolve(t *testing.T) {
	code := jbbytes.NewByteVector(0)
	target := New()

	code.PutU8(0xA7) // goto
	insnOffset := code.Len() - 1
	target.EmitOffsetFrom(code, insnOffset, false)

	code.PutU8(0x00) // filler instruction between jump and target
	resolvedAt := code.Len()
	overflow := target.Resolve(code, resolvedAt)
	if len(overflow) != 0 {
		t.Fatalf("unexpected overflow: %v", overflow)
	}

	want := resolvedAt - insnOffset
	got := int(int16(uint16(code.Bytes()[insnOffset+1])<<8 | uint16(code.Bytes()[insnOffset+2])))
	if got != want {
		t.Fatalf("patched delta = %d, want %d", got, want)
	}
}

func TestBackwardReferenceWrittenDirectly(t *testing.T) {
	code := jbbytes.NewByteVector(0)
	target := New()
	code.PutU8(0x00)
	target.Resolve(code, code.Len())

	code.PutU8(0xA7) // goto, jumping backward
	insnOffset := code.Len() - 1
	overflow := target.EmitOffsetFrom(code, insnOffset, false)
	if overflow {
		t.Fatal("unexpected overflow for a 1-byte backward jump")
	}
	got := int(int16(uint16(code.Bytes()[insnOffset+1])<<8 | uint16(code.Bytes()[insnOffset+2])))
	want := target.BytecodeOffset - insnOffset
	if got != want {
		t.Fatalf("backward delta = %d, want %d", got, want)
	}
}

func TestForwardReferenceOverflowReported(t *testing.T) {
	code := jbbytes.NewByteVector(0)
	target := New()

	code.PutU8(0xA7)
	insnOffset := code.Len() - 1
	target.EmitOffsetFrom(code, insnOffset, false)

	for i := 0; i < 40000; i++ {
		code.PutU8(0x00)
	}
	overflow := target.Resolve(code, code.Len())
	if len(overflow) != 1 {
		t.Fatalf("expected exactly one overflowed reference, got %d", len(overflow))
	}
	if overflow[0].InsnOffset != insnOffset {
		t.Fatalf("overflowed reference has wrong InsnOffset: %d", overflow[0].InsnOffset)
	}
}

func TestOffsetOnUnresolvedLabelIsInvalidState(t *testing.T) {
	l := New()
	if _, err := l.Offset(); err == nil {
		t.Fatal("expected error reading offset of unresolved label")
	}
}

func TestWideJumpWritesFourBytePlaceholderAndPatch(t *testing.T) {
	code := jbbytes.NewByteVector(0)
	target := New()
	code.PutU8(0xC8) // goto_w
	insnOffset := code.Len() - 1
	target.EmitOffsetFrom(code, insnOffset, true)
	if code.Len()-insnOffset-1 != 4 {
		t.Fatalf("expected 4-byte placeholder, got %d bytes", code.Len()-insnOffset-1)
	}
	target.Resolve(code, 100000)
	delta := int32(uint32(code.Bytes()[insnOffset+1])<<24 | uint32(code.Bytes()[insnOffset+2])<<16 |
		uint32(code.Bytes()[insnOffset+3])<<8 | uint32(code.Bytes()[insnOffset+4]))
	if int(delta) != 100000-insnOffset {
		t.Fatalf("wide delta = %d, want %d", delta, 100000-insnOffset)
	}
}

func TestEdgeListOrdering(t *testing.T) {
	l := New()
	e1 := NewStackDeltaEdge(New(), 1)
	e2 := NewExceptionEdge(New(), 3)
	l.AddEdge(e1)
	l.AddEdge(e2)
	if l.Edges != e2 || l.Edges.Next() != e1 {
		t.Fatal("edges were not pushed in LIFO order")
	}
}
