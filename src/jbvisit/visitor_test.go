package jbvisit

import (
	"testing"

	"jbasm/src/jbattr"
)

// noopClassVisitor is a minimal stand-in used only to confirm the
// ClassVisitor grammar is satisfiable by a concrete type; jbclass's own
// tests exercise real behavior.
type noopClassVisitor struct{}

var _ ClassVisitor = noopClassVisitor{}

func (noopClassVisitor) VisitHeader(version, access int, thisName, signature, superName string, interfaces []string) error {
	return nil
}
func (noopClassVisitor) VisitSource(source, debug string) error { return nil }
func (noopClassVisitor) VisitModule(name string, access int, version string) (ModuleVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitNestHost(nestHost string) error                 { return nil }
func (noopClassVisitor) VisitOuterClass(owner, name, descriptor string) error { return nil }
func (noopClassVisitor) VisitAnnotation(descriptor string, visible bool) (AnnotationVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitAttribute(attr *jbattr.Attribute) error { return nil }
func (noopClassVisitor) VisitNestMember(nestMember string) error     { return nil }
func (noopClassVisitor) VisitPermittedSubclass(name string) error    { return nil }
func (noopClassVisitor) VisitInnerClass(name, outerName, innerName string, access int) error {
	return nil
}
func (noopClassVisitor) VisitRecordComponent(name, descriptor, signature string) (RecordComponentVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitField(access int, name, descriptor, signature string, value any) (FieldVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitMethod(access int, name, descriptor, signature string, exceptions []string) (MethodVisitor, error) {
	return nil, nil
}
func (noopClassVisitor) VisitEnd() error { return nil }

func TestLabelAndBootstrapHandleAcceptArbitraryValues(t *testing.T) {
	var l Label = 42
	var b BootstrapHandle = "handle"
	if l != 42 || b != "handle" {
		t.Fatal("Label/BootstrapHandle should be transparent opaque aliases")
	}
}
