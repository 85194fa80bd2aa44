// Package jbclass implements ClassWriter, the top-level driver that owns
// a SymbolTable, dispatches visit events to field/method/record-component
// sub-writers, and sequences the final ClassFile byte layout on Put
// (section 4.7).
package jbclass

import (
	"jbasm/src/jbattr"
	"jbasm/src/jbbytes"
	"jbasm/src/jbfield"
	"jbasm/src/jbmethod"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbsym"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

const magic = 0xCAFEBABE

type state int

const (
	stateCreated state = iota
	stateHeaderVisited
	stateEnded
)

type innerClass struct {
	name, outerName, innerName string
	access                     int
}

// Options carries construction-time configuration (section 3
// "Configuration": construction-time options, no environment/file layer).
type Options struct {
	// ComputeMode is forwarded to every MethodWriter this ClassWriter creates.
	ComputeMode jbmethod.ComputeMode
	// CommonSuperClass resolves the nearest common ancestor of two
	// internal names for the type-table merger (section 4.2). A
	// nil value falls back to java/lang/Object for every merge.
	CommonSuperClass jbsym.CommonSuperClassFunc
}

// ClassWriter assembles one ClassFile, driven by the ClassVisitor event
// grammar (section 6).
type ClassWriter struct {
	table        *jbsym.SymbolTable
	adoptedTable *jbsym.SymbolTable
	options      Options

	version          int
	access           int
	thisIndex        int
	thisInternalName string
	superIndex       int
	signature        string
	interfaceIndices []int

	source, debug string

	module       *moduleWriter
	nestHost     string
	outerOwner   string
	outerName    string
	outerDesc    string

	visibleAnnotations   []*jbattr.Annotation
	invisibleAnnotations []*jbattr.Annotation
	visibleTypeAnns      []*jbattr.TypeAnnotation
	invisibleTypeAnns    []*jbattr.TypeAnnotation
	attrs                *jbattr.Attribute

	nestMembers         []string
	permittedSubclasses []string
	innerClasses        []innerClass

	fields           []*jbfield.FieldWriter
	methods          []*jbmethod.MethodWriter
	recordComponents []*jbfield.RecordComponentWriter
	isRecord         bool

	st state
}

var _ jbvisit.ClassVisitor = (*ClassWriter)(nil)

// NewClassWriter constructs an empty ClassWriter. The SymbolTable it owns
// is exclusive to this instance and must not be shared with another
// ClassWriter (section 5 "Shared resource policy").
func NewClassWriter(opts Options) *ClassWriter {
	return &ClassWriter{options: opts}
}

func (cw *ClassWriter) fail(kind jerrors.Kind, format string, args ...any) error {
	return jerrors.New(kind, format, args...).WithClass(cw.thisInternalName)
}

// AdoptPool configures cw to reuse an already-serialized constant pool
// and BootstrapMethods array (built with jbsym.NewSymbolTableFromPool)
// instead of starting empty in visit_header. A caller pairing this writer
// with a jbreader.ClassReader passes it r.NewPairedSymbolTable() for the
// copy-through shortcut (section 4.5): an unchanged method's Code attribute can then be replayed
// as a raw attribute without its embedded constant-pool indices going
// stale. Must be called before VisitHeader.
func (cw *ClassWriter) AdoptPool(table *jbsym.SymbolTable) {
	cw.adoptedTable = table
}

// VisitHeader opens the class declaration (JVMS 4.1), interning the
// ClassFile's own constant-pool header entries and creating the
// SymbolTable that every subsequent sub-writer shares.
func (cw *ClassWriter) VisitHeader(version, access int, thisName, signature string, superName string, interfaces []string) error {
	if cw.st != stateCreated {
		return cw.fail(jerrors.InvalidState, "visit_header called twice")
	}
	table := cw.adoptedTable
	if table == nil {
		table = jbsym.NewSymbolTable(version)
	}
	table.CommonSuperClass = cw.options.CommonSuperClass
	cw.table = table

	thisSym, err := table.AddClass(thisName)
	if err != nil {
		return err
	}
	cw.thisIndex = thisSym.Index
	cw.thisInternalName = thisName

	if superName != "" {
		superSym, err := table.AddClass(superName)
		if err != nil {
			return err
		}
		cw.superIndex = superSym.Index
	}
	for _, iface := range interfaces {
		ifaceSym, err := table.AddClass(iface)
		if err != nil {
			return err
		}
		cw.interfaceIndices = append(cw.interfaceIndices, ifaceSym.Index)
	}

	cw.version = version
	cw.access = access
	cw.signature = signature
	cw.st = stateHeaderVisited
	return nil
}

func (cw *ClassWriter) requireHeaderVisited() error {
	if cw.st != stateHeaderVisited {
		return cw.fail(jerrors.InvalidState, "class visit event requires visit_header first")
	}
	return nil
}

// VisitSource records the SourceFile/SourceDebugExtension attributes
// (JVMS 4.7.10/4.7.11).
func (cw *ClassWriter) VisitSource(source, debug string) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.source = source
	cw.debug = debug
	return nil
}

// VisitModule opens the module-info declaration (JVMS 4.7.25).
func (cw *ClassWriter) VisitModule(name string, access int, version string) (jbvisit.ModuleVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	nameSym, err := cw.table.AddModule(name)
	if err != nil {
		return nil, err
	}
	mw := newModuleWriter(cw.table, nameSym.Index, access, version)
	cw.module = mw
	return mw, nil
}

// VisitNestHost records the NestHost attribute (JVMS 4.7.28).
func (cw *ClassWriter) VisitNestHost(nestHost string) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.nestHost = nestHost
	return nil
}

// VisitOuterClass records the EnclosingMethod attribute (JVMS 4.7.7).
func (cw *ClassWriter) VisitOuterClass(owner, name, descriptor string) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.outerOwner = owner
	cw.outerName = name
	cw.outerDesc = descriptor
	return nil
}

// VisitAnnotation buffers a class-level runtime (in)visible annotation.
func (cw *ClassWriter) VisitAnnotation(descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	typeIdx, err := cw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ann := &jbattr.Annotation{TypeIndex: typeIdx.Index}
	if visible {
		cw.visibleAnnotations = append(cw.visibleAnnotations, ann)
	} else {
		cw.invisibleAnnotations = append(cw.invisibleAnnotations, ann)
	}
	return jbattr.NewAnnotationBuilder(cw.table, ann), nil
}

// VisitTypeAnnotation buffers a class-level type annotation (JVMS
// 4.7.20.1 target_type 0x10-0x17).
func (cw *ClassWriter) VisitTypeAnnotation(typeRef jbattr.TypeReference, typePath []jbattr.TypePath, descriptor string, visible bool) (jbvisit.AnnotationVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	typeIdx, err := cw.table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	ta := &jbattr.TypeAnnotation{Target: typeRef, Path: typePath, Payload: jbattr.Annotation{TypeIndex: typeIdx.Index}}
	if visible {
		cw.visibleTypeAnns = append(cw.visibleTypeAnns, ta)
	} else {
		cw.invisibleTypeAnns = append(cw.invisibleTypeAnns, ta)
	}
	return jbattr.NewAnnotationBuilder(cw.table, &ta.Payload), nil
}

// VisitAttribute appends a user-supplied or pre-serialized class attribute.
func (cw *ClassWriter) VisitAttribute(attr *jbattr.Attribute) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	attr.Next = cw.attrs
	cw.attrs = attr
	return nil
}

// VisitNestMember adds one NestMembers entry (JVMS 4.7.29).
func (cw *ClassWriter) VisitNestMember(nestMember string) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.nestMembers = append(cw.nestMembers, nestMember)
	return nil
}

// VisitPermittedSubclass adds one PermittedSubclasses entry (JVMS 4.7.31).
func (cw *ClassWriter) VisitPermittedSubclass(name string) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.permittedSubclasses = append(cw.permittedSubclasses, name)
	return nil
}

// VisitInnerClass adds one InnerClasses entry (JVMS 4.7.6).
func (cw *ClassWriter) VisitInnerClass(name, outerName, innerName string, access int) error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.innerClasses = append(cw.innerClasses, innerClass{name: name, outerName: outerName, innerName: innerName, access: access})
	return nil
}

// VisitRecordComponent opens one record_component_info (JVMS 4.7.30),
// marking this class as a record for attribute-emission purposes.
func (cw *ClassWriter) VisitRecordComponent(name, descriptor, signature string) (jbvisit.RecordComponentVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	rw, err := jbfield.NewRecordComponentWriter(cw.table, name, descriptor, signature)
	if err != nil {
		return nil, err
	}
	cw.isRecord = true
	cw.recordComponents = append(cw.recordComponents, rw)
	return rw, nil
}

// VisitField opens one field_info (JVMS 4.5).
func (cw *ClassWriter) VisitField(access int, name, descriptor, signature string, value any) (jbvisit.FieldVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	fw, err := jbfield.NewFieldWriter(cw.table, access, name, descriptor, signature, value)
	if err != nil {
		return nil, err
	}
	cw.fields = append(cw.fields, fw)
	return fw, nil
}

// VisitMethod opens one method_info, wiring the ComputeMode this
// ClassWriter was configured with (section 4.5).
func (cw *ClassWriter) VisitMethod(access int, name, descriptor, signature string, exceptions []string) (jbvisit.MethodVisitor, error) {
	if err := cw.requireHeaderVisited(); err != nil {
		return nil, err
	}
	mw, err := jbmethod.NewMethodWriter(cw.table, cw.options.ComputeMode, cw.thisInternalName, access, name, descriptor, signature, exceptions)
	if err != nil {
		return nil, err
	}
	cw.methods = append(cw.methods, mw)
	return mw, nil
}

func classAttrCount(cw *ClassWriter) int {
	n := 0
	if cw.source != "" || cw.debug != "" {
		n++
	}
	if cw.module != nil {
		n++
		if cw.module.mainClassIndex != 0 {
			n++
		}
		if len(cw.module.packageIndices) > 0 {
			n++
		}
	}
	if cw.nestHost != "" {
		n++
	}
	if cw.outerOwner != "" {
		n++
	}
	if cw.signature != "" {
		n++
	}
	if len(cw.visibleAnnotations) > 0 {
		n++
	}
	if len(cw.invisibleAnnotations) > 0 {
		n++
	}
	if len(cw.visibleTypeAnns) > 0 {
		n++
	}
	if len(cw.invisibleTypeAnns) > 0 {
		n++
	}
	if len(cw.nestMembers) > 0 {
		n++
	}
	if len(cw.permittedSubclasses) > 0 {
		n++
	}
	if len(cw.innerClasses) > 0 {
		n++
	}
	if cw.isRecord {
		n++
	}
	if cw.hasBootstrapMethods() {
		n++
	}
	for a := cw.attrs; a != nil; a = a.Next {
		n++
	}
	return n
}

// VisitEnd finalizes the class; further visit calls are rejected.
func (cw *ClassWriter) VisitEnd() error {
	if err := cw.requireHeaderVisited(); err != nil {
		return err
	}
	cw.st = stateEnded
	return nil
}

// Put serializes the complete ClassFile structure into out (JVMS 4.1).
func (cw *ClassWriter) Put(out *jbbytes.ByteVector) error {
	if cw.st != stateEnded {
		return cw.fail(jerrors.InvalidState, "to_bytes called before visit_end")
	}

	out.PutU32(magic)
	out.PutU16(jbopcodes.MinorVersion(cw.version))
	out.PutU16(jbopcodes.MajorVersion(cw.version))
	cw.table.PutConstantPool(out)
	out.PutU16(cw.access)
	out.PutU16(cw.thisIndex)
	out.PutU16(cw.superIndex)

	out.PutU16(len(cw.interfaceIndices))
	for _, idx := range cw.interfaceIndices {
		out.PutU16(idx)
	}

	out.PutU16(len(cw.fields))
	for _, fw := range cw.fields {
		if err := fw.Put(out); err != nil {
			return err
		}
	}

	out.PutU16(len(cw.methods))
	for _, mw := range cw.methods {
		if err := mw.Put(out, cw.version); err != nil {
			return err
		}
	}

	out.PutU16(classAttrCount(cw))
	return cw.putClassAttributes(out)
}

func (cw *ClassWriter) putClassAttributes(out *jbbytes.ByteVector) error {
	if cw.source != "" || cw.debug != "" {
		if err := cw.putNamedAttr(out, "SourceFile", func(body *jbbytes.ByteVector) error {
			srcIdx, err := cw.table.AddUTF8(cw.source)
			if err != nil {
				return err
			}
			body.PutU16(srcIdx.Index)
			return nil
		}); err != nil {
			return err
		}
		if cw.debug != "" {
			if err := cw.putNamedAttr(out, "SourceDebugExtension", func(body *jbbytes.ByteVector) error {
				body.PutBytes([]byte(cw.debug))
				return nil
			}); err != nil {
				return err
			}
		}
	}
	if cw.module != nil {
		if err := cw.putNamedAttr(out, "Module", func(body *jbbytes.ByteVector) error {
			cw.module.put(body)
			return nil
		}); err != nil {
			return err
		}
		if cw.module.mainClassIndex != 0 {
			if err := cw.putNamedAttr(out, "ModuleMainClass", func(body *jbbytes.ByteVector) error {
				body.PutU16(cw.module.mainClassIndex)
				return nil
			}); err != nil {
				return err
			}
		}
		if len(cw.module.packageIndices) > 0 {
			if err := cw.putNamedAttr(out, "ModulePackages", func(body *jbbytes.ByteVector) error {
				body.PutU16(len(cw.module.packageIndices))
				for _, idx := range cw.module.packageIndices {
					body.PutU16(idx)
				}
				return nil
			}); err != nil {
				return err
			}
		}
	}
	if cw.nestHost != "" {
		if err := cw.putNamedAttr(out, "NestHost", func(body *jbbytes.ByteVector) error {
			sym, err := cw.table.AddClass(cw.nestHost)
			if err != nil {
				return err
			}
			body.PutU16(sym.Index)
			return nil
		}); err != nil {
			return err
		}
	}
	if cw.outerOwner != "" {
		if err := cw.putNamedAttr(out, "EnclosingMethod", func(body *jbbytes.ByteVector) error {
			classSym, err := cw.table.AddClass(cw.outerOwner)
			if err != nil {
				return err
			}
			body.PutU16(classSym.Index)
			if cw.outerName == "" {
				body.PutU16(0)
				return nil
			}
			natSym, err := cw.table.AddNameAndType(cw.outerName, cw.outerDesc)
			if err != nil {
				return err
			}
			body.PutU16(natSym.Index)
			return nil
		}); err != nil {
			return err
		}
	}
	if cw.signature != "" {
		if err := cw.putNamedAttr(out, "Signature", func(body *jbbytes.ByteVector) error {
			sigIdx, err := cw.table.AddUTF8(cw.signature)
			if err != nil {
				return err
			}
			body.PutU16(sigIdx.Index)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.visibleAnnotations) > 0 {
		if err := cw.putNamedAttr(out, "RuntimeVisibleAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutAnnotations(body, cw.visibleAnnotations)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.invisibleAnnotations) > 0 {
		if err := cw.putNamedAttr(out, "RuntimeInvisibleAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutAnnotations(body, cw.invisibleAnnotations)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.visibleTypeAnns) > 0 {
		if err := cw.putNamedAttr(out, "RuntimeVisibleTypeAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutTypeAnnotations(body, cw.visibleTypeAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.invisibleTypeAnns) > 0 {
		if err := cw.putNamedAttr(out, "RuntimeInvisibleTypeAnnotations", func(body *jbbytes.ByteVector) error {
			jbattr.PutTypeAnnotations(body, cw.invisibleTypeAnns)
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.nestMembers) > 0 {
		if err := cw.putNamedAttr(out, "NestMembers", func(body *jbbytes.ByteVector) error {
			body.PutU16(len(cw.nestMembers))
			for _, m := range cw.nestMembers {
				sym, err := cw.table.AddClass(m)
				if err != nil {
					return err
				}
				body.PutU16(sym.Index)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.permittedSubclasses) > 0 {
		if err := cw.putNamedAttr(out, "PermittedSubclasses", func(body *jbbytes.ByteVector) error {
			body.PutU16(len(cw.permittedSubclasses))
			for _, p := range cw.permittedSubclasses {
				sym, err := cw.table.AddClass(p)
				if err != nil {
					return err
				}
				body.PutU16(sym.Index)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if len(cw.innerClasses) > 0 {
		if err := cw.putNamedAttr(out, "InnerClasses", func(body *jbbytes.ByteVector) error {
			body.PutU16(len(cw.innerClasses))
			for _, ic := range cw.innerClasses {
				innerSym, err := cw.table.AddClass(ic.name)
				if err != nil {
					return err
				}
				outerIdx := 0
				if ic.outerName != "" {
					outerSym, err := cw.table.AddClass(ic.outerName)
					if err != nil {
						return err
					}
					outerIdx = outerSym.Index
				}
				nameIdx := 0
				if ic.innerName != "" {
					sym, err := cw.table.AddUTF8(ic.innerName)
					if err != nil {
						return err
					}
					nameIdx = sym.Index
				}
				body.PutU16(innerSym.Index)
				body.PutU16(outerIdx)
				body.PutU16(nameIdx)
				body.PutU16(ic.access)
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if cw.isRecord {
		if err := cw.putNamedAttr(out, "Record", func(body *jbbytes.ByteVector) error {
			body.PutU16(len(cw.recordComponents))
			for _, rw := range cw.recordComponents {
				if err := rw.Put(body); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if cw.hasBootstrapMethods() {
		if err := cw.putNamedAttr(out, "BootstrapMethods", func(body *jbbytes.ByteVector) error {
			cw.table.PutBootstrapMethods(body)
			return nil
		}); err != nil {
			return err
		}
	}
	for a := cw.attrs; a != nil; a = a.Next {
		nameIdx, err := cw.table.AddUTF8(a.Name)
		if err != nil {
			return err
		}
		out.PutU16(nameIdx.Index)
		a.PutBody(out)
	}
	return nil
}

func (cw *ClassWriter) hasBootstrapMethods() bool {
	return cw.table != nil && cw.table.HasBootstrapMethods()
}

func (cw *ClassWriter) putNamedAttr(out *jbbytes.ByteVector, name string, write func(*jbbytes.ByteVector) error) error {
	nameIdx, err := cw.table.AddUTF8(name)
	if err != nil {
		return err
	}
	body := jbbytes.NewByteVector(16)
	if err := write(body); err != nil {
		return err
	}
	out.PutU16(nameIdx.Index)
	out.PutU32(uint32(body.Len()))
	out.PutBytes(body.Bytes())
	return nil
}
