package jbfield

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbbytes"
	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
	"jbasm/src/jbvisit"
)

// RecordComponentWriter buffers one record_component_info (JVMS 4.7.30),
// sharing FieldWriter's event discipline and attribute-order contract
// minus ConstantValue, which only field_info carries.
type RecordComponentWriter struct {
	table *jbsym.SymbolTable

	nameIndex int
	descIndex int
	signature string

	visibleAnnotations   []*jbattr.Annotation
	invisibleAnnotations []*jbattr.Annotation
	visibleTypeAnns      []*jbattr.TypeAnnotation
	invisibleTypeAnns    []*jbattr.TypeAnnotation
	attrs                *jbattr.Attribute

	st state
}

var _ jbvisit.RecordComponentVisitor = (*RecordComponentWriter)(nil)

// NewRecordComponentWriter starts a record component declaration.
func NewRecordComponentWriter(table *jbsym.SymbolTable, name, descriptor, signature string) (*RecordComponentWriter, error) {
	nameIdx, err := table.AddUTF8(name)
	if err != nil {
		return nil, err
	}
	descIdx, err := table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	return &RecordComponentWriter{table: table, nameIndex: nameIdx.Index, descIndex: descIdx.Index, signature: signature}, nil
}

func (rw *RecordComponentWriter) requireOpen() error {
	if rw.st != stateOpen {
		return jerrors.New(jerrors.InvalidState, "record component visit event after visit_end")
	}
	return nil
}

// VisitAnnotation buffers a runtime (in)visible annotation.
func (rw *RecordComponentWriter) VisitAnnotation(descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := rw.requireOpen(); err != nil {
		return nil, err
	}
	typeIdx, err := rw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ann := &jbattr.Annotation{TypeIndex: typeIdx.Index}
	if visible {
		rw.visibleAnnotations = append(rw.visibleAnnotations, ann)
	} else {
		rw.invisibleAnnotations = append(rw.invisibleAnnotations, ann)
	}
	return jbattr.NewAnnotationBuilder(rw.table, ann), nil
}

// VisitTypeAnnotation buffers a type annotation on a use of the component's type.
func (rw *RecordComponentWriter) VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := rw.requireOpen(); err != nil {
		return nil, err
	}
	typeIdx, err := rw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ta := &jbattr.TypeAnnotation{Target: typeRef, Path: typePath, Payload: jbattr.Annotation{TypeIndex: typeIdx.Index}}
	if visible {
		rw.visibleTypeAnns = append(rw.visibleTypeAnns, ta)
	} else {
		rw.invisibleTypeAnns = append(rw.invisibleTypeAnns, ta)
	}
	return jbattr.NewAnnotationBuilder(rw.table, &ta.Payload), nil
}

// VisitAttribute appends a user-supplied or pre-serialized attribute.
func (rw *RecordComponentWriter) VisitAttribute(attr *jbattr.Attribute) error {
	if err := rw.requireOpen(); err != nil {
		return err
	}
	attr.Next = rw.attrs
	rw.attrs = attr
	return nil
}

// VisitEnd finalizes the record component; further visit calls are rejected.
func (rw *RecordComponentWriter) VisitEnd() error {
	if err := rw.requireOpen(); err != nil {
		return err
	}
	rw.st = stateEnded
	return nil
}

// Put serializes this record_component_info into out (JVMS 4.7.30).
func (rw *RecordComponentWriter) Put(out *jbbytes.ByteVector) error {
	out.PutU16(rw.nameIndex)
	out.PutU16(rw.descIndex)

	attrCount := 0
	if rw.signature != "" {
		attrCount++
	}
	if len(rw.visibleAnnotations) > 0 {
		attrCount++
	}
	if len(rw.invisibleAnnotations) > 0 {
		attrCount++
	}
	if len(rw.visibleTypeAnns) > 0 {
		attrCount++
	}
	if len(rw.invisibleTypeAnns) > 0 {
		attrCount++
	}
	for a := rw.attrs; a != nil; a = a.Next {
		attrCount++
	}
	out.PutU16(attrCount)

	if rw.signature != "" {
		sigIdx, err := rw.table.AddUTF8(rw.signature)
		if err != nil {
			return err
		}
		if err := putNamedAttr(out, rw.table, "Signature", func(body *jbbytes.ByteVector) {
			body.PutU16(sigIdx.Index)
		}); err != nil {
			return err
		}
	}
	if len(rw.visibleAnnotations) > 0 {
		if err := putNamedAttr(out, rw.table, "RuntimeVisibleAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutAnnotations(body, rw.visibleAnnotations)
		}); err != nil {
			return err
		}
	}
	if len(rw.invisibleAnnotations) > 0 {
		if err := putNamedAttr(out, rw.table, "RuntimeInvisibleAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutAnnotations(body, rw.invisibleAnnotations)
		}); err != nil {
			return err
		}
	}
	if len(rw.visibleTypeAnns) > 0 {
		if err := putNamedAttr(out, rw.table, "RuntimeVisibleTypeAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutTypeAnnotations(body, rw.visibleTypeAnns)
		}); err != nil {
			return err
		}
	}
	if len(rw.invisibleTypeAnns) > 0 {
		if err := putNamedAttr(out, rw.table, "RuntimeInvisibleTypeAnnotations", func(body *jbbytes.ByteVector) {
			jbattr.PutTypeAnnotations(body, rw.invisibleTypeAnns)
		}); err != nil {
			return err
		}
	}
	for a := rw.attrs; a != nil; a = a.Next {
		nameIdx, err := rw.table.AddUTF8(a.Name)
		if err != nil {
			return err
		}
		out.PutU16(nameIdx.Index)
		a.PutBody(out)
	}
	return nil
}
