// Package jbvisit defines the visitor event surface every writer in this
// module implements (section 6 "Visitor event surface"). Callers
// drive a ClassVisitor (nearly always a *jbclass.ClassWriter) through the
// fixed grammar documented on each interface; out-of-order calls are
// rejected by the concrete writer with an InvalidState error rather than
// by the interface itself, the same way classloader.go's consumers defer
// order validation to the receiving state machine.
package jbvisit

import "jbasm/src/jbattr"

// ClassVisitor receives one class's worth of events in the order:
//
//	visit
//	(visit_source | visit_module | visit_nest_host | visit_outer_class |
//	 visit_annotation | visit_type_annotation | visit_attribute |
//	 visit_nest_member | visit_permitted_subclass | visit_inner_class |
//	 visit_field | visit_method | visit_record_component)*
//	visit_end
type ClassVisitor interface {
	VisitHeader(version, access int, thisName, signature string, superName string, interfaces []string) error
	VisitSource(source, debug string) error
	VisitModule(name string, access int, version string) (ModuleVisitor, error)
	VisitNestHost(nestHost string) error
	VisitOuterClass(owner, name, descriptor string) error
	VisitAnnotation(descriptor string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitAttribute(attr *jbattr.Attribute) error
	VisitNestMember(nestMember string) error
	VisitPermittedSubclass(name string) error
	VisitInnerClass(name, outerName, innerName string, access int) error
	VisitRecordComponent(name, descriptor, signature string) (RecordComponentVisitor, error)
	VisitField(access int, name, descriptor, signature string, value any) (FieldVisitor, error)
	VisitMethod(access int, name, descriptor, signature string, exceptions []string) (MethodVisitor, error)
	VisitEnd() error
}

// FieldVisitor receives:
//
//	(visit_annotation | visit_type_annotation | visit_attribute)* visit_end
type FieldVisitor interface {
	VisitAnnotation(descriptor string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitAttribute(attr *jbattr.Attribute) error
	VisitEnd() error
}

// RecordComponentVisitor has the same event grammar as FieldVisitor
// (section 4.6 "Mirror MethodWriter in event discipline").
type RecordComponentVisitor interface {
	VisitAnnotation(descriptor string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitAttribute(attr *jbattr.Attribute) error
	VisitEnd() error
}

// MethodVisitor receives:
//
//	visit_parameter*
//	[visit_annotation_default]
//	(visit_annotation | visit_annotable_parameter_count | visit_parameter_annotation |
//	 visit_type_annotation | visit_attribute)*
//	[visit_code
//	   (visit_frame | visit_X_insn | visit_label | visit_insn_annotation |
//	    visit_try_catch_block | visit_try_catch_annotation | visit_local_variable |
//	    visit_local_variable_annotation | visit_line_number)*
//	 visit_maxs]
//	visit_end
type MethodVisitor interface {
	VisitParameter(name string, access int) error
	VisitAnnotationDefault() (AnnotationVisitor, error)
	VisitAnnotation(descriptor string, visible bool) (AnnotationVisitor, error)
	VisitAnnotableParameterCount(count int, visible bool) error
	VisitParameterAnnotation(parameter int, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitAttribute(attr *jbattr.Attribute) error

	VisitCode() error
	VisitFrame(locals, stack []any) error
	VisitInsn(opcode int) error
	VisitIntInsn(opcode, operand int) error
	VisitVarInsn(opcode, localIndex int) error
	VisitTypeInsn(opcode int, internalName string) error
	VisitFieldInsn(opcode int, owner, name, descriptor string) error
	VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) error
	VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle BootstrapHandle, bootstrapArgs []any) error
	VisitJumpInsn(opcode int, label Label) error
	VisitLabel(label Label) error
	VisitLdcInsn(value any) error
	VisitIincInsn(localIndex, increment int) error
	VisitTableSwitchInsn(min, max int, dflt Label, labels []Label) error
	VisitLookupSwitchInsn(dflt Label, keys []int, labels []Label) error
	VisitMultiANewArrayInsn(descriptor string, dims int) error
	VisitInsnAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitTryCatchBlock(start, end, handler Label, catchType string) error
	VisitTryCatchAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitLocalVariable(name, descriptor, signature string, start, end Label, index int) error
	VisitLocalVariableAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, start, end []Label, index []int, descriptor string, visible bool) (AnnotationVisitor, error)
	VisitLineNumber(line int, start Label) error
	VisitMaxs(maxStack, maxLocals int) error
	VisitEnd() error
}

// Label is an opaque handle a MethodVisitor caller threads through jump
// and local-variable-range events; concrete writers type-assert it back
// to *jblabel.Label.
type Label any

// BootstrapHandle is an opaque handle naming a MethodHandle constant used
// as an invokedynamic call site's bootstrap method; concrete writers
// resolve it against their SymbolTable.
type BootstrapHandle any

// AnnotationVisitor receives:
//
//	(visit | visit_enum | visit_annotation | visit_array)* visit_end
type AnnotationVisitor interface {
	Visit(name string, value any) error
	VisitEnum(name, descriptor, value string) error
	VisitAnnotation(name, descriptor string) (AnnotationVisitor, error)
	VisitArray(name string) (AnnotationVisitor, error)
	VisitEnd() error
}

// ModuleVisitor receives the module-info declaration's sub-events; order
// is unconstrained beyond ending with visit_end (JVMS 4.7.25).
type ModuleVisitor interface {
	VisitMainClass(mainClass string) error
	VisitPackage(packaze string) error
	VisitRequire(module string, access int, version string) error
	VisitExport(packaze string, access int, modules []string) error
	VisitOpen(packaze string, access int, modules []string) error
	VisitUse(service string) error
	VisitProvide(service string, providers []string) error
	VisitEnd() error
}
