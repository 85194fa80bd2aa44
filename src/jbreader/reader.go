package jbreader

import (
	"math"

	"jbasm/src/jbbytes"
	"jbasm/src/jbsym"
	"jbasm/src/jerrors"
)

const magic = 0xCAFEBABE

type rawAttr struct {
	name string
	info []byte
}

type paramInfo struct {
	name   string
	access int
}

type fieldInfo struct {
	access           int
	name, descriptor string
	signature        string
	deprecated       bool
	constantValue    any
	attrs            []rawAttr // annotations and anything else not given a dedicated visitor call
}

type methodInfo struct {
	access           int
	name, descriptor string
	signature        string
	deprecated       bool
	exceptions       []string
	parameters       []paramInfo
	hasParameters    bool
	code             *rawAttr // the Code attribute's raw body, nil if absent (abstract/native)
	attrs            []rawAttr
}

type innerClassInfo struct {
	name, outerName, innerName string
	access                     int
}

type requireInfo struct {
	module, version string
	access          int
}

type exportInfo struct {
	pkg     string
	access  int
	modules []string
}

type provideInfo struct {
	service   string
	providers []string
}

type moduleInfo struct {
	name, version string
	access        int
	mainClass     string
	packages      []string
	requires      []requireInfo
	exports       []exportInfo
	opens         []exportInfo
	uses          []string
	provides      []provideInfo
}

// ClassReader holds the fully decoded structure of one class file, ready
// to be replayed through a jbvisit.ClassVisitor by Accept. It does not
// disassemble bytecode: a method's Code attribute is kept as its raw
// attribute bytes and replayed through VisitAttribute, which is what the
// copy-through shortcut (section 4.5) and invariant #1 (round-trip identity, section 8) actually
// exercises for this reader's scope.
type ClassReader struct {
	res *resolver

	poolCount      int
	poolRaw        []byte
	bootstrapCount int
	bootstrapRaw   []byte

	version    int
	access     int
	thisName   string
	superName  string
	interfaces []string

	signature   string
	sourceFile  string
	sourceDebug bool
	sourceDebugExt string
	deprecated  bool

	nestHost            string
	nestMembers         []string
	permittedSubclasses []string
	innerClasses        []innerClassInfo

	hasOuter             bool
	outerOwner, outerName, outerDesc string

	module *moduleInfo

	isRecord   bool
	recordAttr *rawAttr
	attrs      []rawAttr // annotations and anything else not given a dedicated visitor call

	fields  []fieldInfo
	methods []methodInfo
}

// Parse decodes data as a complete ClassFile (JVMS 4.1).
func Parse(data []byte) (*ClassReader, error) {
	c := &cursor{data: data}

	magicWord, err := c.u32()
	if err != nil {
		return nil, err
	}
	if magicWord != magic {
		return nil, jerrors.New(jerrors.InvalidArgument, "bad magic %#x", magicWord)
	}
	minor, err := c.u16()
	if err != nil {
		return nil, err
	}
	major, err := c.u16()
	if err != nil {
		return nil, err
	}

	poolStart := c.pos
	pool, err := decodePool(c)
	if err != nil {
		return nil, err
	}
	poolRaw := append([]byte(nil), c.data[poolStart+2:c.pos]...)
	res := &resolver{pool: pool}

	r := &ClassReader{
		res:       res,
		poolCount: len(pool),
		poolRaw:   poolRaw,
		version:   minor<<16 | major,
	}

	access, err := c.u16()
	if err != nil {
		return nil, err
	}
	r.access = access

	thisIdx, err := c.u16()
	if err != nil {
		return nil, err
	}
	r.thisName, err = res.class(thisIdx)
	if err != nil {
		return nil, err
	}

	superIdx, err := c.u16()
	if err != nil {
		return nil, err
	}
	if superIdx != 0 {
		r.superName, err = res.class(superIdx)
		if err != nil {
			return nil, err
		}
	}

	ifaceCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < ifaceCount; i++ {
		idx, err := c.u16()
		if err != nil {
			return nil, err
		}
		name, err := res.class(idx)
		if err != nil {
			return nil, err
		}
		r.interfaces = append(r.interfaces, name)
	}

	if err := r.parseFields(c); err != nil {
		return nil, err
	}
	if err := r.parseMethods(c); err != nil {
		return nil, err
	}
	if err := r.parseClassAttributes(c); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ClassReader) parseFields(c *cursor) error {
	count, err := c.u16()
	if err != nil {
		return err
	}
	r.fields = make([]fieldInfo, 0, count)
	for i := 0; i < count; i++ {
		fi, err := r.parseField(c)
		if err != nil {
			return err
		}
		r.fields = append(r.fields, fi)
	}
	return nil
}

func (r *ClassReader) parseField(c *cursor) (fieldInfo, error) {
	var fi fieldInfo
	access, err := c.u16()
	if err != nil {
		return fi, err
	}
	nameIdx, err := c.u16()
	if err != nil {
		return fi, err
	}
	descIdx, err := c.u16()
	if err != nil {
		return fi, err
	}
	fi.access = access
	if fi.name, err = r.res.utf8(nameIdx); err != nil {
		return fi, err
	}
	if fi.descriptor, err = r.res.utf8(descIdx); err != nil {
		return fi, err
	}

	attrs, err := r.readAttrList(c)
	if err != nil {
		return fi, err
	}
	for _, a := range attrs {
		switch a.name {
		case "ConstantValue":
			if len(a.info) != 2 {
				return fi, jerrors.New(jerrors.InvalidArgument, "malformed ConstantValue attribute on field %s", fi.name)
			}
			idx := int(a.info[0])<<8 | int(a.info[1])
			v, err := r.res.constantValue(idx)
			if err != nil {
				return fi, err
			}
			fi.constantValue = v
		case "Signature":
			fi.signature, err = r.decodeNameIndexUTF8(a.info)
			if err != nil {
				return fi, err
			}
		case "Deprecated":
			fi.deprecated = true
		default:
			// Annotation attributes and anything else unrecognized pass
			// through verbatim via VisitAttribute.
			fi.attrs = append(fi.attrs, a)
		}
	}
	return fi, nil
}

func (r *ClassReader) decodeNameIndexUTF8(info []byte) (string, error) {
	if len(info) != 2 {
		return "", jerrors.New(jerrors.InvalidArgument, "malformed u2-index attribute body")
	}
	idx := int(info[0])<<8 | int(info[1])
	return r.res.utf8(idx)
}

func (r *ClassReader) parseMethods(c *cursor) error {
	count, err := c.u16()
	if err != nil {
		return err
	}
	r.methods = make([]methodInfo, 0, count)
	for i := 0; i < count; i++ {
		mi, err := r.parseMethod(c)
		if err != nil {
			return err
		}
		r.methods = append(r.methods, mi)
	}
	return nil
}

func (r *ClassReader) parseMethod(c *cursor) (methodInfo, error) {
	var mi methodInfo
	access, err := c.u16()
	if err != nil {
		return mi, err
	}
	nameIdx, err := c.u16()
	if err != nil {
		return mi, err
	}
	descIdx, err := c.u16()
	if err != nil {
		return mi, err
	}
	mi.access = access
	if mi.name, err = r.res.utf8(nameIdx); err != nil {
		return mi, err
	}
	if mi.descriptor, err = r.res.utf8(descIdx); err != nil {
		return mi, err
	}

	attrs, err := r.readAttrList(c)
	if err != nil {
		return mi, err
	}
	for _, a := range attrs {
		switch a.name {
		case "Code":
			body := a
			mi.code = &body
		case "Exceptions":
			if len(a.info) < 2 {
				return mi, jerrors.New(jerrors.InvalidArgument, "malformed Exceptions attribute on %s", mi.name)
			}
			n := int(a.info[0])<<8 | int(a.info[1])
			pos := 2
			for i := 0; i < n; i++ {
				if pos+2 > len(a.info) {
					return mi, jerrors.New(jerrors.InvalidArgument, "truncated Exceptions attribute on %s", mi.name)
				}
				idx := int(a.info[pos])<<8 | int(a.info[pos+1])
				pos += 2
				name, err := r.res.class(idx)
				if err != nil {
					return mi, err
				}
				mi.exceptions = append(mi.exceptions, name)
			}
		case "Signature":
			mi.signature, err = r.decodeNameIndexUTF8(a.info)
			if err != nil {
				return mi, err
			}
		case "Deprecated":
			mi.deprecated = true
		case "MethodParameters":
			if len(a.info) < 1 {
				return mi, jerrors.New(jerrors.InvalidArgument, "malformed MethodParameters attribute on %s", mi.name)
			}
			n := int(a.info[0])
			pos := 1
			mi.hasParameters = true
			for i := 0; i < n; i++ {
				if pos+4 > len(a.info) {
					return mi, jerrors.New(jerrors.InvalidArgument, "truncated MethodParameters attribute on %s", mi.name)
				}
				nameIdx := int(a.info[pos])<<8 | int(a.info[pos+1])
				paramAccess := int(a.info[pos+2])<<8 | int(a.info[pos+3])
				pos += 4
				name := ""
				if nameIdx != 0 {
					name, err = r.res.utf8(nameIdx)
					if err != nil {
						return mi, err
					}
				}
				mi.parameters = append(mi.parameters, paramInfo{name: name, access: paramAccess})
			}
		default:
			mi.attrs = append(mi.attrs, a)
		}
	}
	return mi, nil
}

func (r *ClassReader) parseClassAttributes(c *cursor) error {
	attrs, err := r.readAttrList(c)
	if err != nil {
		return err
	}
	for _, a := range attrs {
		switch a.name {
		case "SourceFile":
			r.sourceFile, err = r.decodeNameIndexUTF8(a.info)
			if err != nil {
				return err
			}
		case "SourceDebugExtension":
			r.sourceDebug = true
			r.sourceDebugExt = jbbytes.DecodeModifiedUTF8(a.info)
		case "Signature":
			r.signature, err = r.decodeNameIndexUTF8(a.info)
			if err != nil {
				return err
			}
		case "Deprecated":
			r.deprecated = true
		case "NestHost":
			idx, derr := u16At(a.info, 0)
			if derr != nil {
				return derr
			}
			r.nestHost, err = r.res.class(idx)
			if err != nil {
				return err
			}
		case "NestMembers":
			names, derr := r.decodeClassList(a.info)
			if derr != nil {
				return derr
			}
			r.nestMembers = names
		case "PermittedSubclasses":
			names, derr := r.decodeClassList(a.info)
			if derr != nil {
				return derr
			}
			r.permittedSubclasses = names
		case "EnclosingMethod":
			if len(a.info) != 4 {
				return jerrors.New(jerrors.InvalidArgument, "malformed EnclosingMethod attribute")
			}
			classIdx := int(a.info[0])<<8 | int(a.info[1])
			natIdx := int(a.info[2])<<8 | int(a.info[3])
			r.hasOuter = true
			r.outerOwner, err = r.res.class(classIdx)
			if err != nil {
				return err
			}
			if natIdx != 0 {
				r.outerName, r.outerDesc, err = r.res.nameAndType(natIdx)
				if err != nil {
					return err
				}
			}
		case "InnerClasses":
			if err := r.decodeInnerClasses(a.info); err != nil {
				return err
			}
		case "Record":
			body := a
			r.isRecord = true
			r.recordAttr = &body
		case "BootstrapMethods":
			if err := r.decodeBootstrapMethods(a.info); err != nil {
				return err
			}
		case "Module":
			if err := r.decodeModule(a.info); err != nil {
				return err
			}
		case "ModuleMainClass":
			idx, derr := u16At(a.info, 0)
			if derr != nil {
				return derr
			}
			name, derr := r.res.class(idx)
			if derr != nil {
				return derr
			}
			r.ensureModule().mainClass = name
		case "ModulePackages":
			if len(a.info) < 2 {
				return jerrors.New(jerrors.InvalidArgument, "malformed ModulePackages attribute")
			}
			n := int(a.info[0])<<8 | int(a.info[1])
			pos := 2
			mod := r.ensureModule()
			for i := 0; i < n; i++ {
				idx, derr := u16At(a.info, pos)
				if derr != nil {
					return derr
				}
				pos += 2
				pkg, derr := r.res.utf8(r.res.pool[idx].idxA)
				if derr != nil {
					return derr
				}
				mod.packages = append(mod.packages, pkg)
			}
		default:
			r.attrs = append(r.attrs, a)
		}
	}
	return nil
}

func (r *ClassReader) ensureModule() *moduleInfo {
	if r.module == nil {
		r.module = &moduleInfo{}
	}
	return r.module
}

func (r *ClassReader) decodeClassList(info []byte) ([]string, error) {
	if len(info) < 2 {
		return nil, jerrors.New(jerrors.InvalidArgument, "malformed class-index-list attribute")
	}
	n := int(info[0])<<8 | int(info[1])
	pos := 2
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx, err := u16At(info, pos)
		if err != nil {
			return nil, err
		}
		pos += 2
		name, err := r.res.class(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (r *ClassReader) decodeInnerClasses(info []byte) error {
	if len(info) < 2 {
		return jerrors.New(jerrors.InvalidArgument, "malformed InnerClasses attribute")
	}
	n := int(info[0])<<8 | int(info[1])
	pos := 2
	for i := 0; i < n; i++ {
		if pos+8 > len(info) {
			return jerrors.New(jerrors.InvalidArgument, "truncated InnerClasses attribute")
		}
		innerIdx := int(info[pos])<<8 | int(info[pos+1])
		outerIdx := int(info[pos+2])<<8 | int(info[pos+3])
		nameIdx := int(info[pos+4])<<8 | int(info[pos+5])
		access := int(info[pos+6])<<8 | int(info[pos+7])
		pos += 8
		inner, err := r.res.class(innerIdx)
		if err != nil {
			return err
		}
		var outer, name string
		if outerIdx != 0 {
			if outer, err = r.res.class(outerIdx); err != nil {
				return err
			}
		}
		if nameIdx != 0 {
			if name, err = r.res.utf8(nameIdx); err != nil {
				return err
			}
		}
		r.innerClasses = append(r.innerClasses, innerClassInfo{name: inner, outerName: outer, innerName: name, access: access})
	}
	return nil
}

// decodeBootstrapMethods keeps the attribute's raw bytes for pairing
// (jbsym.NewSymbolTableFromPool adopts them verbatim) and records the
// count; both are exposed through BootstrapMethods and NewPairedSymbolTable.
func (r *ClassReader) decodeBootstrapMethods(info []byte) error {
	if len(info) < 2 {
		return jerrors.New(jerrors.InvalidArgument, "malformed BootstrapMethods attribute")
	}
	n := int(info[0])<<8 | int(info[1])
	r.bootstrapCount = n
	r.bootstrapRaw = append([]byte(nil), info[2:]...)
	return nil
}

func (r *ClassReader) decodeModule(info []byte) error {
	c := &cursor{data: info}
	nameIdx, err := c.u16()
	if err != nil {
		return err
	}
	access, err := c.u16()
	if err != nil {
		return err
	}
	versionIdx, err := c.u16()
	if err != nil {
		return err
	}
	mod := r.ensureModule()
	mod.name, err = r.res.utf8(r.res.pool[nameIdx].idxA)
	if err != nil {
		return err
	}
	mod.access = access
	if versionIdx != 0 {
		if mod.version, err = r.res.utf8(versionIdx); err != nil {
			return err
		}
	}

	requireCount, err := c.u16()
	if err != nil {
		return err
	}
	for i := 0; i < requireCount; i++ {
		modIdx, err := c.u16()
		if err != nil {
			return err
		}
		reqAccess, err := c.u16()
		if err != nil {
			return err
		}
		verIdx, err := c.u16()
		if err != nil {
			return err
		}
		name, err := r.res.utf8(r.res.pool[modIdx].idxA)
		if err != nil {
			return err
		}
		var ver string
		if verIdx != 0 {
			if ver, err = r.res.utf8(verIdx); err != nil {
				return err
			}
		}
		mod.requires = append(mod.requires, requireInfo{module: name, access: reqAccess, version: ver})
	}

	if mod.exports, err = r.decodeExportsOrOpens(c); err != nil {
		return err
	}
	if mod.opens, err = r.decodeExportsOrOpens(c); err != nil {
		return err
	}

	useCount, err := c.u16()
	if err != nil {
		return err
	}
	for i := 0; i < useCount; i++ {
		idx, err := c.u16()
		if err != nil {
			return err
		}
		name, err := r.res.class(idx)
		if err != nil {
			return err
		}
		mod.uses = append(mod.uses, name)
	}

	provideCount, err := c.u16()
	if err != nil {
		return err
	}
	for i := 0; i < provideCount; i++ {
		svcIdx, err := c.u16()
		if err != nil {
			return err
		}
		svc, err := r.res.class(svcIdx)
		if err != nil {
			return err
		}
		providerCount, err := c.u16()
		if err != nil {
			return err
		}
		var providers []string
		for j := 0; j < providerCount; j++ {
			pIdx, err := c.u16()
			if err != nil {
				return err
			}
			p, err := r.res.class(pIdx)
			if err != nil {
				return err
			}
			providers = append(providers, p)
		}
		mod.provides = append(mod.provides, provideInfo{service: svc, providers: providers})
	}
	return nil
}

func (r *ClassReader) decodeExportsOrOpens(c *cursor) ([]exportInfo, error) {
	count, err := c.u16()
	if err != nil {
		return nil, err
	}
	out := make([]exportInfo, 0, count)
	for i := 0; i < count; i++ {
		pkgIdx, err := c.u16()
		if err != nil {
			return nil, err
		}
		access, err := c.u16()
		if err != nil {
			return nil, err
		}
		pkg, err := r.res.utf8(r.res.pool[pkgIdx].idxA)
		if err != nil {
			return nil, err
		}
		targetCount, err := c.u16()
		if err != nil {
			return nil, err
		}
		var targets []string
		for j := 0; j < targetCount; j++ {
			modIdx, err := c.u16()
			if err != nil {
				return nil, err
			}
			name, err := r.res.utf8(r.res.pool[modIdx].idxA)
			if err != nil {
				return nil, err
			}
			targets = append(targets, name)
		}
		out = append(out, exportInfo{pkg: pkg, access: access, modules: targets})
	}
	return out, nil
}

// readAttrList reads an attribute_count followed by that many
// (name_index, length, info) records, resolving each name against the
// pool but leaving info as an opaque byte slice for the caller to
// interpret (JVMS 4.7's generic attribute shape).
func (r *ClassReader) readAttrList(c *cursor) ([]rawAttr, error) {
	count, err := c.u16()
	if err != nil {
		return nil, err
	}
	out := make([]rawAttr, 0, count)
	for i := 0; i < count; i++ {
		nameIdx, err := c.u16()
		if err != nil {
			return nil, err
		}
		length, err := c.u32()
		if err != nil {
			return nil, err
		}
		info, err := c.bytes(int(length))
		if err != nil {
			return nil, err
		}
		name, err := r.res.utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		out = append(out, rawAttr{name: name, info: append([]byte(nil), info...)})
	}
	return out, nil
}

func u16At(b []byte, pos int) (int, error) {
	if pos+2 > len(b) {
		return 0, jerrors.New(jerrors.InvalidArgument, "truncated attribute body")
	}
	return int(b[pos])<<8 | int(b[pos+1]), nil
}

// constantValue resolves a ConstantValue attribute's index to the Go
// value jbfield.NewFieldWriter expects (int32/int64/float32/float64/string).
func (res *resolver) constantValue(idx int) (any, error) {
	if idx <= 0 || idx >= len(res.pool) {
		return nil, jerrors.New(jerrors.InvalidArgument, "ConstantValue index %d out of range", idx)
	}
	entry := res.pool[idx]
	switch entry.tag {
	case jbsym.Integer:
		return int32(entry.num32), nil
	case jbsym.Long:
		return int64(entry.num64), nil
	case jbsym.Float:
		return math.Float32frombits(entry.num32), nil
	case jbsym.Double:
		return math.Float64frombits(entry.num64), nil
	case jbsym.String:
		return res.utf8(entry.idxA)
	default:
		return nil, jerrors.New(jerrors.InvalidArgument, "constant pool index %d is not a valid ConstantValue tag %s", idx, entry.tag)
	}
}

// Pool exposes the original class's constant pool count and raw bytes
// (everything after constant_pool_count), for pairing a ClassWriter via
// jbsym.NewSymbolTableFromPool and jbclass.ClassWriter.AdoptPool.
func (r *ClassReader) Pool() (count int, raw []byte) { return r.poolCount, r.poolRaw }

// BootstrapMethods exposes the original class's BootstrapMethods count
// and raw entry bytes (everything after num_bootstrap_methods), or
// (0, nil) if the class has none.
func (r *ClassReader) BootstrapMethods() (count int, raw []byte) { return r.bootstrapCount, r.bootstrapRaw }

// Version is the packed minor<<16|major class file version (JVMS 4.1),
// matching jbopcodes.MajorVersion/MinorVersion's packing convention.
func (r *ClassReader) Version() int { return r.version }

// NewPairedSymbolTable builds a SymbolTable that adopts this reader's
// constant pool and bootstrap methods verbatim, ready to hand to
// (*jbclass.ClassWriter).AdoptPool before replaying this class's events.
func (r *ClassReader) NewPairedSymbolTable() *jbsym.SymbolTable {
	return jbsym.NewSymbolTableFromPool(r.version, r.poolCount, r.poolRaw, r.bootstrapCount, r.bootstrapRaw)
}

// FieldSummary is a read-only view of one parsed field, exposed for
// tooling that inspects a class without driving a full ClassVisitor walk
// (the roundtrip package's comparisons, jbasmtool's dump command).
type FieldSummary struct {
	Access        int
	Name          string
	Descriptor    string
	ConstantValue any
}

// MethodSummary is a read-only view of one parsed method. Code is the
// raw Code attribute body (nil for abstract or native methods).
type MethodSummary struct {
	Access     int
	Name       string
	Descriptor string
	Exceptions []string
	Code       []byte
}

// ClassSummary is a read-only snapshot of the parsed header plus every
// field and method summary, in declaration order.
type ClassSummary struct {
	Version    int
	Access     int
	ThisName   string
	SuperName  string
	Interfaces []string
	SourceFile string
	Fields     []FieldSummary
	Methods    []MethodSummary
}

// Summary returns a read-only snapshot of the parsed class.
func (r *ClassReader) Summary() ClassSummary {
	s := ClassSummary{
		Version:    r.version,
		Access:     r.access,
		ThisName:   r.thisName,
		SuperName:  r.superName,
		Interfaces: append([]string(nil), r.interfaces...),
		SourceFile: r.sourceFile,
	}
	for _, f := range r.fields {
		s.Fields = append(s.Fields, FieldSummary{
			Access:        f.access,
			Name:          f.name,
			Descriptor:    f.descriptor,
			ConstantValue: f.constantValue,
		})
	}
	for _, m := range r.methods {
		var code []byte
		if m.code != nil {
			code = m.code.info
		}
		s.Methods = append(s.Methods, MethodSummary{
			Access:     m.access,
			Name:       m.name,
			Descriptor: m.descriptor,
			Exceptions: append([]string(nil), m.exceptions...),
			Code:       code,
		})
	}
	return s
}
