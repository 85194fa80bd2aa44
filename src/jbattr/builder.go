package jbattr

import (
	"math"

	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
)

// AnnotationBuilder accumulates one annotation's element_value_pairs (or,
// in array mode, one array element value's members) as visit_/
// visit_enum/visit_annotation/visit_array events arrive. It satisfies
// jbvisit.AnnotationVisitor structurally; this package does not import
// jbvisit to avoid a cycle (jbvisit already imports jbattr for the
// TypeReference/TypePath parameter types).
type AnnotationBuilder struct {
	table *jbsym.SymbolTable

	// Exactly one of target/arraySlot is set: target for a named
	// annotation body, arraySlot while building the members of a
	// visit_array element value.
	target    *Annotation
	arraySlot *[]ElementValue
}

// NewAnnotationBuilder returns a builder appending parsed element values
// onto target's element_value_pairs.
func NewAnnotationBuilder(table *jbsym.SymbolTable, target *Annotation) *AnnotationBuilder {
	return &AnnotationBuilder{table: table, target: target}
}

func newArrayBuilder(table *jbsym.SymbolTable, slot *[]ElementValue) *AnnotationBuilder {
	return &AnnotationBuilder{table: table, arraySlot: slot}
}

func (b *AnnotationBuilder) emit(name string, v ElementValue) error {
	if b.arraySlot != nil {
		*b.arraySlot = append(*b.arraySlot, v)
		return nil
	}
	nameIdx, err := b.table.AddUTF8(name)
	if err != nil {
		return err
	}
	b.target.ElementValues = append(b.target.ElementValues, NamedElementValue{NameIndex: nameIdx.Index, Value: v})
	return nil
}

// Visit handles a primitive/string constant element value. Supported Go
// types: bool, int32, int64, float32, float64, string.
func (b *AnnotationBuilder) Visit(name string, value any) error {
	switch v := value.(type) {
	case bool:
		i := int32(0)
		if v {
			i = 1
		}
		idx, err := b.table.AddInteger(i)
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVBoolean, ConstValueIndex: idx.Index})
	case int32:
		idx, err := b.table.AddInteger(v)
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVInt, ConstValueIndex: idx.Index})
	case int64:
		idx, err := b.table.AddLong(v)
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVLong, ConstValueIndex: idx.Index})
	case float32:
		idx, err := b.table.AddFloat(math.Float32bits(v))
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVFloat, ConstValueIndex: idx.Index})
	case float64:
		idx, err := b.table.AddDouble(math.Float64bits(v))
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVDouble, ConstValueIndex: idx.Index})
	case string:
		idx, err := b.table.AddUTF8(v)
		if err != nil {
			return err
		}
		return b.emit(name, ElementValue{Kind: EVString, ConstValueIndex: idx.Index})
	default:
		return jerrors.New(jerrors.InvalidArgument, "unsupported annotation element value type %T", value)
	}
}

// VisitEnum records an enum-constant element value (JVMS 4.7.16.1 'e').
func (b *AnnotationBuilder) VisitEnum(name, descriptor, value string) error {
	typeIdx, err := b.table.AddUTF8(descriptor)
	if err != nil {
		return err
	}
	valueIdx, err := b.table.AddUTF8(value)
	if err != nil {
		return err
	}
	return b.emit(name, ElementValue{Kind: EVEnum, EnumTypeNameIndex: typeIdx.Index, EnumConstNameIndex: valueIdx.Index})
}

// VisitAnnotation starts a nested annotation element value (JVMS
// 4.7.16.1 '@') and returns a builder for its own element values.
func (b *AnnotationBuilder) VisitAnnotation(name, descriptor string) (*AnnotationBuilder, error) {
	typeIdx, err := b.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	nested := &Annotation{TypeIndex: typeIdx.Index}
	if err := b.emit(name, ElementValue{Kind: EVAnnotation, Nested: nested}); err != nil {
		return nil, err
	}
	return NewAnnotationBuilder(b.table, nested), nil
}

// VisitArray starts an array element value (JVMS 4.7.16.1 '[') and
// returns a builder whose own Visit/VisitEnum/VisitAnnotation calls
// append into the array instead of into a named pair list.
func (b *AnnotationBuilder) VisitArray(name string) (*AnnotationBuilder, error) {
	arr := &ElementValue{Kind: EVArray}
	if err := b.emit(name, *arr); err != nil {
		return nil, err
	}
	var slot *[]ElementValue
	if b.arraySlot != nil {
		slot = &(*b.arraySlot)[len(*b.arraySlot)-1].Array
	} else {
		slot = &b.target.ElementValues[len(b.target.ElementValues)-1].Value.Array
	}
	return newArrayBuilder(b.table, slot), nil
}

// VisitEnd is a no-op; every element value is already written into its
// owner as it was visited.
func (b *AnnotationBuilder) VisitEnd() error { return nil }
