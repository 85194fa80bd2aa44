package jbbytes

// Fuzz round-trips arbitrary input through the modified-UTF-8 encoder and
// decoder, in the classic go-fuzz entry-point shape used by
// saferwall-pe/fuzz.go. It asserts invariant #6 from section 8:
// decode(encode(s)) == s for every string whose encoded length is within
// the 65535-byte limit.
func Fuzz(data []byte) int {
	s := string(data)
	bv := NewByteVector(len(s) + 2)
	if err := bv.PutUTF8(s); err != nil {
		return 0
	}
	decoded := DecodeModifiedUTF8(bv.Bytes()[2:])
	if decoded != s {
		panic("modified-UTF-8 round trip mismatch")
	}
	return 1
}
