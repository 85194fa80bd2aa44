package jbbytes

import "testing"

func TestPutFixedWidth(t *testing.T) {
	b := NewByteVector(0)
	b.PutU8(0xCA).PutU16(0xFEBA).PutU32(0xBE000000).PutU64(1)
	got := b.Bytes()
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00, 0x00,
		0, 0, 0, 0, 0, 0, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d: %x", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], want[i])
		}
	}
}

func TestGrowBeyondInitialCapacity(t *testing.T) {
	b := NewByteVector(1)
	for i := 0; i < 1000; i++ {
		b.PutU8(i % 256)
	}
	if b.Len() != 1000 {
		t.Fatalf("got length %d, want 1000", b.Len())
	}
	for i := 0; i < 1000; i++ {
		if b.Bytes()[i] != byte(i%256) {
			t.Fatalf("byte %d corrupted after growth", i)
		}
	}
}

func TestModifiedUTF8RoundTripASCII(t *testing.T) {
	b := NewByteVector(0)
	if err := b.PutUTF8("hello world"); err != nil {
		t.Fatal(err)
	}
	lengthPrefix := int(b.Bytes()[0])<<8 | int(b.Bytes()[1])
	if lengthPrefix != len("hello world") {
		t.Fatalf("length prefix = %d, want %d", lengthPrefix, len("hello world"))
	}
	if got := DecodeModifiedUTF8(b.Bytes()[2:]); got != "hello world" {
		t.Fatalf("round trip = %q, want %q", got, "hello world")
	}
}

func TestModifiedUTF8RoundTripNonASCII(t *testing.T) {
	cases := []string{
		"café",          // 2-byte encoding
		"Āā",       // still 2-byte range
		"中文",       // 3-byte CJK
		"mixed é 中", // ascii + 2-byte + 3-byte
		"embedded\x00null",   // NUL must encode as the 2-byte 0xC0 0x80 form
	}
	for _, s := range cases {
		b := NewByteVector(0)
		if err := b.PutUTF8(s); err != nil {
			t.Fatalf("PutUTF8(%q): %v", s, err)
		}
		n := int(b.Bytes()[0])<<8 | int(b.Bytes()[1])
		if got := DecodeModifiedUTF8(b.Bytes()[2 : 2+n]); got != s {
			t.Fatalf("round trip of %q = %q", s, got)
		}
	}
}

func TestPutUTF8TooLongRejected(t *testing.T) {
	huge := make([]byte, 70000)
	for i := range huge {
		huge[i] = 'a'
	}
	b := NewByteVector(0)
	if err := b.PutUTF8(string(huge)); err == nil {
		t.Fatal("expected ClassFormatTooLarge error for 70000-byte string")
	}
}

func TestPatchU16AndU32(t *testing.T) {
	b := NewByteVector(0)
	offset16 := b.Len()
	b.PutU16(0)
	offset32 := b.Len()
	b.PutU32(0)
	b.PatchU16At(offset16, 0x1234)
	b.PatchU32At(offset32, 0xDEADBEEF)
	got := b.Bytes()
	if got[offset16] != 0x12 || got[offset16+1] != 0x34 {
		t.Fatalf("PatchU16At produced %x", got[offset16:offset16+2])
	}
	if got[offset32] != 0xDE || got[offset32+3] != 0xEF {
		t.Fatalf("PatchU32At produced %x", got[offset32:offset32+4])
	}
}
