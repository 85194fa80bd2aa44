// Package jbreader implements ClassReader, a minimal companion to the
// writer side: enough of JVMS 4 to decode an existing class file's
// structure back into jbvisit.ClassVisitor events, keeping each method's
// Code attribute as raw bytes for the copy-through shortcut (section 4.5
// "Copy-through shortcut"). It does not disassemble bytecode into instruction events;
// a Code attribute is always replayed as an opaque attribute, the same
// shape ParsedClass gives an unrecognized attribute.
package jbreader

import "jbasm/src/jerrors"

// cursor reads big-endian fields from a fixed byte slice, advancing pos
// and refusing to read past the end instead of panicking, mirroring the
// bounds checks classloader.go's parse routines perform by hand before
// every slice index.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) require(n int) error {
	if c.remaining() < n {
		return jerrors.New(jerrors.InvalidArgument, "truncated class file: need %d bytes at offset %d, have %d", n, c.pos, c.remaining())
	}
	return nil
}

func (c *cursor) u8() (int, error) {
	if err := c.require(1); err != nil {
		return 0, err
	}
	v := int(c.data[c.pos])
	c.pos++
	return v, nil
}

func (c *cursor) u16() (int, error) {
	if err := c.require(2); err != nil {
		return 0, err
	}
	v := int(c.data[c.pos])<<8 | int(c.data[c.pos+1])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := uint32(c.data[c.pos])<<24 | uint32(c.data[c.pos+1])<<16 | uint32(c.data[c.pos+2])<<8 | uint32(c.data[c.pos+3])
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	hi, err := c.u32()
	if err != nil {
		return 0, err
	}
	lo, err := c.u32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// span records a byte range of the original input. skipSpan returns one;
// the parse paths copy attribute bodies through bytes instead.
type span struct {
	offset int
	length int
}

func (c *cursor) skipSpan(n int) (span, error) {
	start := c.pos
	if _, err := c.bytes(n); err != nil {
		return span{}, err
	}
	return span{offset: start, length: n}, nil
}
