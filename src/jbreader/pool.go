package jbreader

import (
	"jbasm/src/jbbytes"
	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
)

// rawConstant is one decoded-but-unresolved constant pool slot: the tag
// plus whichever index/value fields that tag's layout uses (JVMS 4.4).
// Resolution against other slots (looking up a referenced UTF8's text,
// say) happens later, through resolver below, once the whole pool is in memory --
// entries are free to reference a higher-numbered slot.
type rawConstant struct {
	tag jbsym.Tag

	// index-bearing tags (Class, String, MethodType, Module, Package:
	// idxA; NameAndType, Fieldref/Methodref/InterfaceMethodref, Dynamic,
	// InvokeDynamic: idxA/idxB)
	idxA int
	idxB int

	refKind int // MethodHandle reference_kind
	utf8    []byte
	num32   uint32
	num64   uint64
}

// decodePool reads constant_pool_count and the following entries,
// returning the dense, one-based slice (index 0 unused, matching JVMS
// 4.1's reserved slot) with long/double's phantom second slot left zero.
func decodePool(c *cursor) ([]rawConstant, error) {
	count, err := c.u16()
	if err != nil {
		return nil, err
	}
	pool := make([]rawConstant, count)
	for i := 1; i < count; i++ {
		tagByte, err := c.u8()
		if err != nil {
			return nil, err
		}
		tag := jbsym.Tag(tagByte)
		entry, err := decodeConstant(c, tag)
		if err != nil {
			return nil, err
		}
		pool[i] = entry
		if tag.TwoSlot() {
			i++ // the next slot is unusable, JVMS 4.4.5
		}
	}
	return pool, nil
}

func decodeConstant(c *cursor, tag jbsym.Tag) (rawConstant, error) {
	switch tag {
	case jbsym.UTF8:
		n, err := c.u16()
		if err != nil {
			return rawConstant{}, err
		}
		b, err := c.bytes(n)
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, utf8: append([]byte(nil), b...)}, nil
	case jbsym.Integer, jbsym.Float:
		v, err := c.u32()
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, num32: v}, nil
	case jbsym.Long, jbsym.Double:
		v, err := c.u64()
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, num64: v}, nil
	case jbsym.Class, jbsym.String, jbsym.MethodType, jbsym.Module, jbsym.Package:
		idx, err := c.u16()
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, idxA: idx}, nil
	case jbsym.NameAndType, jbsym.Fieldref, jbsym.Methodref, jbsym.InterfaceMethodref,
		jbsym.Dynamic, jbsym.InvokeDynamic:
		a, err := c.u16()
		if err != nil {
			return rawConstant{}, err
		}
		b, err := c.u16()
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, idxA: a, idxB: b}, nil
	case jbsym.MethodHandle:
		kind, err := c.u8()
		if err != nil {
			return rawConstant{}, err
		}
		ref, err := c.u16()
		if err != nil {
			return rawConstant{}, err
		}
		return rawConstant{tag: tag, refKind: kind, idxA: ref}, nil
	default:
		return rawConstant{}, jerrors.New(jerrors.InvalidArgument, "unknown constant pool tag %d", tag)
	}
}

// resolver looks up decoded pool entries by index, resolving chains of
// references (Class -> UTF8, Fieldref -> Class + NameAndType -> 2x UTF8)
// to the plain Go values jbsym.SymbolTable's Add* methods want.
type resolver struct {
	pool []rawConstant
}

func (r *resolver) utf8(idx int) (string, error) {
	if idx <= 0 || idx >= len(r.pool) || r.pool[idx].tag != jbsym.UTF8 {
		return "", jerrors.New(jerrors.InvalidArgument, "constant pool index %d is not a UTF8 entry", idx)
	}
	return jbbytes.DecodeModifiedUTF8(r.pool[idx].utf8), nil
}

func (r *resolver) class(idx int) (string, error) {
	if idx <= 0 || idx >= len(r.pool) || r.pool[idx].tag != jbsym.Class {
		return "", jerrors.New(jerrors.InvalidArgument, "constant pool index %d is not a Class entry", idx)
	}
	return r.utf8(r.pool[idx].idxA)
}

func (r *resolver) nameAndType(idx int) (name, descriptor string, err error) {
	if idx <= 0 || idx >= len(r.pool) || r.pool[idx].tag != jbsym.NameAndType {
		return "", "", jerrors.New(jerrors.InvalidArgument, "constant pool index %d is not a NameAndType entry", idx)
	}
	name, err = r.utf8(r.pool[idx].idxA)
	if err != nil {
		return "", "", err
	}
	descriptor, err = r.utf8(r.pool[idx].idxB)
	return name, descriptor, err
}
