// Package jbfield implements FieldWriter and RecordComponentWriter, the
// simplest of the writer state machines: they accept only annotations,
// type annotations, generic attributes, and a visit_end (section
// 4.6 "Mirror MethodWriter in event discipline but accept only...").
package jbfield

import (
	"math"

	"jbasm/src/jbattr"
	"jbasm/src/jbbytes"
	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
	"jbasm/src/jbvisit"
)

type state int

const (
	stateOpen state = iota
	stateEnded
)

// FieldWriter buffers one field_info's attributes as it receives visit
// events, and serializes the whole structure on Put once visit_end fires.
type FieldWriter struct {
	table *jbsym.SymbolTable

	access     int
	nameIndex  int
	descIndex  int

	constantValueIndex int // 0 means ConstantValue attribute is absent

	signature  string
	deprecated bool

	visibleAnnotations   []*jbattr.Annotation
	invisibleAnnotations []*jbattr.Annotation
	visibleTypeAnns      []*jbattr.TypeAnnotation
	invisibleTypeAnns    []*jbattr.TypeAnnotation
	attrs                *jbattr.Attribute

	st state
}

var _ jbvisit.FieldVisitor = (*FieldWriter)(nil)

// NewFieldWriter starts a field declaration. value, if non-nil, must be
// one of int32, int64, float32, float64, or string and becomes the
// field's ConstantValue attribute (JVMS 4.7.2); it is resolved against
// table immediately since a ConstantValue's index is fixed at field
// creation time, unlike every other attribute which is buffered until
// visit_end.
func NewFieldWriter(table *jbsym.SymbolTable, access int, name, descriptor, signature string, value any) (*FieldWriter, error) {
	nameIdx, err := table.AddUTF8(name)
	if err != nil {
		return nil, err
	}
	descIdx, err := table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	fw := &FieldWriter{
		table:      table,
		access:     access,
		nameIndex:  nameIdx.Index,
		descIndex:  descIdx.Index,
		signature:  signature,
	}
	if value != nil {
		idx, err := constantValueIndex(table, value)
		if err != nil {
			return nil, err
		}
		fw.constantValueIndex = idx
	}
	return fw, nil
}

func constantValueIndex(table *jbsym.SymbolTable, value any) (int, error) {
	switch v := value.(type) {
	case int32:
		sym, err := table.AddInteger(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case int64:
		sym, err := table.AddLong(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case float32:
		sym, err := table.AddFloat(uint32FromFloat(v))
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case float64:
		sym, err := table.AddDouble(uint64FromDouble(v))
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case string:
		sym, err := table.AddString(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	default:
		return 0, jerrors.New(jerrors.InvalidArgument, "unsupported ConstantValue type %T", value)
	}
}

func (fw *FieldWriter) requireOpen() error {
	if fw.st != stateOpen {
		return jerrors.New(jerrors.InvalidState, "field visit event after visit_end")
	}
	return nil
}

// VisitAnnotation buffers a runtime (in)visible annotation.
func (fw *FieldWriter) VisitAnnotation(descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := fw.requireOpen(); err != nil {
		return nil, err
	}
	typeIdx, err := fw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ann := &jbattr.Annotation{TypeIndex: typeIdx.Index}
	if visible {
		fw.visibleAnnotations = append(fw.visibleAnnotations, ann)
	} else {
		fw.invisibleAnnotations = append(fw.invisibleAnnotations, ann)
	}
	return jbattr.NewAnnotationBuilder(fw.table, ann), nil
}

// VisitTypeAnnotation buffers a type annotation on a use of the field's type.
func (fw *FieldWriter) VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := fw.requireOpen(); err != nil {
		return nil, err
	}
	typeIdx, err := fw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ta := &jbattr.TypeAnnotation{Target: typeRef, Path: typePath, Payload: jbattr.Annotation{TypeIndex: typeIdx.Index}}
	if visible {
		fw.visibleTypeAnns = append(fw.visibleTypeAnns, ta)
	} else {
		fw.invisibleTypeAnns = append(fw.invisibleTypeAnns, ta)
	}
	return jbattr.NewAnnotationBuilder(fw.table, &ta.Payload), nil
}

// VisitAttribute appends a user-supplied or pre-serialized attribute.
func (fw *FieldWriter) VisitAttribute(attr *jbattr.Attribute) error {
	if err := fw.requireOpen(); err != nil {
		return err
	}
	attr.Next = fw.attrs
	fw.attrs = attr
	return nil
}

// SetDeprecated marks the field as deprecated (JVMS 4.7.15), matching the
// WriterHints-style split of ASM-adjacent bits from the JVMS access flags
// (section 9).
func (fw *FieldWriter) SetDeprecated() { fw.deprecated = true }

// VisitEnd finalizes the field; further visit calls are rejected.
func (fw *FieldWriter) VisitEnd() error {
	if err := fw.requireOpen(); err != nil {
		return err
	}
	fw.st = stateEnded
	return nil
}

// Put serializes this field_info into out (JVMS 4.5).
func (fw *FieldWriter) Put(out *jbbytes.ByteVector) error {
	out.PutU16(fw.access)
	out.PutU16(fw.nameIndex)
	out.PutU16(fw.descIndex)

	attrCount := 0
	if fw.constantValueIndex != 0 {
		attrCount++
	}
	if fw.signature != "" {
		attrCount++
	}
	if fw.deprecated {
		attrCount++
	}
	if len(fw.visibleAnnotations) > 0 {
		attrCount++
	}
	if len(fw.invisibleAnnotations) > 0 {
		attrCount++
	}
	if len(fw.visibleTypeAnns) > 0 {
		attrCount++
	}
	if len(fw.invisibleTypeAnns) > 0 {
		attrCount++
	}
	for a := fw.attrs; a != nil; a = a.Next {
		attrCount++
	}
	out.PutU16(attrCount)

	if fw.constantValueIndex != 0 {
		if err := putNamedAttr(out, fw.table, "ConstantValue", func(body *jbbytes.ByteVector) {
			body.PutU16(fw.constantValueIndex)
		}); err != nil {
			return err
		}
	}
	if fw.signature != "" {
		sigIdx, err := fw.table.AddUTF8(fw.signature)
		if err != nil {
			return err
		}
		if err := putNamedAttr(out, fw.table, "Signature", func(body *jbbytes.ByteVector) {
			body.PutU16(sigIdx.Index)
		}); err != nil {
			return err
		}
	}
	if fw.deprecated {
		if err := putNamedAttr(out, fw.table, "Deprecated", func(*jbbytes.ByteVector) {}); err != nil {
			return err
		}
	}
	if len(fw.visibleAnnotations) > 0 {
		if err := putNamedAttr(out, fw.table, "RuntimeVisibleAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutAnnotations(body, fw.visibleAnnotations)
		}); err != nil {
			return err
		}
	}
	if len(fw.invisibleAnnotations) > 0 {
		if err := putNamedAttr(out, fw.table, "RuntimeInvisibleAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutAnnotations(body, fw.invisibleAnnotations)
		}); err != nil {
			return err
		}
	}
	if len(fw.visibleTypeAnns) > 0 {
		if err := putNamedAttr(out, fw.table, "RuntimeVisibleTypeAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutTypeAnnotations(body, fw.visibleTypeAnns)
		}); err != nil {
			return err
		}
	}
	if len(fw.invisibleTypeAnns) > 0 {
		if err := putNamedAttr(out, fw.table, "RuntimeInvisibleTypeAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutTypeAnnotations(body, fw.invisibleTypeAnns)
		}); err != nil {
			return err
		}
	}
	for a := fw.attrs; a != nil; a = a.Next {
		nameIdx, err := fw.table.AddUTF8(a.Name)
		if err != nil {
			return err
		}
		out.PutU16(nameIdx.Index)
		a.PutBody(out)
	}
	return nil
}

func putNamedAttr(out *jbbytes.ByteVector, table *jbsym.SymbolTable, name string, write func(*jbbytes.ByteVector)) error {
	nameIdx, err := table.AddUTF8(name)
	if err != nil {
		return err
	}
	body := jbbytes.NewByteVector(16)
	write(body)
	out.PutU16(nameIdx.Index)
	out.PutU32(uint32(body.Len()))
	out.PutBytes(body.Bytes())
	return nil
}

func uint32FromFloat(f float32) uint32  { return math.Float32bits(f) }
func uint64FromDouble(f float64) uint64 { return math.Float64bits(f) }
