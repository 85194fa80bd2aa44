// Package jbsym implements SymbolTable, the deduplicating interner for
// every constant pool kind defined by JVMS section 4.4, the
// BootstrapMethods attribute, and an auxiliary type table of abstract
// verification types (section 4.2). It mirrors ParsedClass's
// constant-pool slices (classRefs, fieldRefs, methodRefs, ...)
// but as a write side: every add_* call both allocates a dense index and
// appends the entry's bytes to an owned ByteVector.
package jbsym

import (
	"jbasm/src/jbbytes"
	"jbasm/src/jbopcodes"
	"jbasm/src/jerrors"
)

// CommonSuperClassFunc resolves the nearest common ancestor of two
// internal names, consulted only when merging two distinct reference
// types in the type table (section 4.2 "Type table"). The core
// holds no locks while invoking it (section 5).
type CommonSuperClassFunc func(a, b string) string

// SymbolTable owns the constant-pool byte stream, a hash set of Symbols
// keyed by (tag, key-fields), the BootstrapMethods byte stream, and the
// type table.
type SymbolTable struct {
	ClassVersion int

	constantPool   *jbbytes.ByteVector
	byKey          map[key]*Symbol
	nextIndex      int // next one-based constant-pool index to allocate
	constantCount  int // number of live slots, including long/double's second slot

	bootstrapBytes   *jbbytes.ByteVector
	bootstrapByKey   map[string]*Symbol
	bootstrapCount   int

	typeTable     []*Symbol // dense, 0-indexed
	typeByName    map[string]int
	uninitByOffset map[int]int
	mergedByPair  map[[2]int]int

	CommonSuperClass CommonSuperClassFunc
}

// NewSymbolTable creates an empty interner. index 0 of the constant pool
// is the unused dummy entry JVMS reserves; the first real entry is index 1.
func NewSymbolTable(classVersion int) *SymbolTable {
	return &SymbolTable{
		ClassVersion:   classVersion,
		constantPool:   jbbytes.NewByteVector(256),
		byKey:          make(map[key]*Symbol),
		nextIndex:      1,
		bootstrapBytes: jbbytes.NewByteVector(0),
		bootstrapByKey: make(map[string]*Symbol),
		typeByName:     make(map[string]int),
		uninitByOffset: make(map[int]int),
		mergedByPair:   make(map[[2]int]int),
	}
}

// NewSymbolTableFromPool adopts an already-serialized constant pool and
// BootstrapMethods array verbatim, for the paired reader/writer
// copy-through path (section 4.5 "Copy-through shortcut"): a
// jbreader.ClassReader hands its input class's raw pool bytes straight
// through instead of re-interning every entry, so the indices embedded in
// an unchanged method's Code bytes keep resolving correctly. Entries
// adopted this way are not registered in byKey, so a later Add* call for
// a constant that already exists verbatim in rawPool appends a duplicate
// rather than deduplicating against it -- acceptable for a reader/writer
// pairing where the common case adds nothing new at all.
func NewSymbolTableFromPool(classVersion, count int, rawPool []byte, bootstrapCount int, rawBootstrap []byte) *SymbolTable {
	t := NewSymbolTable(classVersion)
	t.constantPool = jbbytes.NewByteVector(len(rawPool))
	t.constantPool.PutBytes(rawPool)
	t.nextIndex = count
	if bootstrapCount > 0 {
		t.bootstrapBytes = jbbytes.NewByteVector(len(rawBootstrap))
		t.bootstrapBytes.PutBytes(rawBootstrap)
		t.bootstrapCount = bootstrapCount
	}
	return t
}

// ConstantCount is the constant_pool_count field value: one more than the
// number of slots actually used (JVMS 4.1).
func (t *SymbolTable) ConstantCount() int { return t.nextIndex }

func (t *SymbolTable) intern(tag Tag, s *Symbol, encode func(index int)) (*Symbol, error) {
	k := s.key()
	if existing, ok := t.byKey[k]; ok {
		return existing, nil
	}
	if t.nextIndex > 65535 {
		return nil, jerrors.New(jerrors.ClassFormatTooLarge, "constant pool exceeds 65535 entries")
	}
	s.Index = t.nextIndex
	encode(s.Index)
	t.nextIndex++
	if tag.TwoSlot() {
		t.nextIndex++ // long/double occupy two indices, JVMS 4.4.5
	}
	t.byKey[k] = s
	return s, nil
}

// AddUTF8 interns a UTF-8 constant (JVMS 4.4.7).
func (t *SymbolTable) AddUTF8(value string) (*Symbol, error) {
	s := &Symbol{Tag: UTF8, Value: value}
	return t.intern(UTF8, s, func(index int) {
		t.constantPool.PutU8(int(UTF8))
		if err := t.constantPool.PutUTF8(value); err != nil {
			// PutUTF8 only fails past 65535 bytes; surfaced to the
			// caller via the returned Symbol being nil is not possible
			// here since intern's encode has no error return, so the
			// length has already been checked by the caller of AddUTF8
			// in practice (jbmethod/jbclass validate string lengths
			// before calling AddUTF8). Truncation would corrupt the
			// pool, so panic instead of silently emitting bad bytes.
			panic(err)
		}
	})
}

func (t *SymbolTable) utf8Index(s string) (int, error) {
	sym, err := t.AddUTF8(s)
	if err != nil {
		return 0, err
	}
	return sym.Index, nil
}

// AddClass interns a CONSTANT_Class_info for internalName (JVMS 4.4.1).
func (t *SymbolTable) AddClass(internalName string) (*Symbol, error) {
	nameIdx, err := t.utf8Index(internalName)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: Class, Name: internalName}
	return t.intern(Class, s, func(index int) {
		t.constantPool.PutU8U16(int(Class), nameIdx)
	})
}

// AddNameAndType interns a CONSTANT_NameAndType_info (JVMS 4.4.6).
func (t *SymbolTable) AddNameAndType(name, descriptor string) (*Symbol, error) {
	nameIdx, err := t.utf8Index(name)
	if err != nil {
		return nil, err
	}
	descIdx, err := t.utf8Index(descriptor)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: NameAndType, Name: name, Value: descriptor}
	return t.intern(NameAndType, s, func(index int) {
		t.constantPool.PutU8U16U16(int(NameAndType), nameIdx, descIdx)
	})
}

// AddInteger interns a CONSTANT_Integer_info (JVMS 4.4.4).
func (t *SymbolTable) AddInteger(v int32) (*Symbol, error) {
	s := &Symbol{Tag: Integer, Data: int64(uint32(v))}
	return t.intern(Integer, s, func(index int) {
		t.constantPool.PutU8(int(Integer)).PutU32(uint32(v))
	})
}

// AddFloat interns a CONSTANT_Float_info, keyed by the IEEE-754 bit pattern.
func (t *SymbolTable) AddFloat(bits uint32) (*Symbol, error) {
	s := &Symbol{Tag: Float, Data: int64(bits)}
	return t.intern(Float, s, func(index int) {
		t.constantPool.PutU8(int(Float)).PutU32(bits)
	})
}

// AddLong interns a CONSTANT_Long_info (two constant-pool slots).
func (t *SymbolTable) AddLong(v int64) (*Symbol, error) {
	s := &Symbol{Tag: Long, Data: v}
	return t.intern(Long, s, func(index int) {
		t.constantPool.PutU8(int(Long)).PutU64(uint64(v))
	})
}

// AddDouble interns a CONSTANT_Double_info, keyed by the IEEE-754 bit pattern.
func (t *SymbolTable) AddDouble(bits uint64) (*Symbol, error) {
	s := &Symbol{Tag: Double, Data: int64(bits)}
	return t.intern(Double, s, func(index int) {
		t.constantPool.PutU8(int(Double)).PutU64(bits)
	})
}

// AddString interns a CONSTANT_String_info referencing value's UTF-8 entry.
func (t *SymbolTable) AddString(value string) (*Symbol, error) {
	idx, err := t.utf8Index(value)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: String, Value: value}
	return t.intern(String, s, func(index int) {
		t.constantPool.PutU8(int(String)).PutU16(idx)
	})
}

// AddFieldref interns a CONSTANT_Fieldref_info. Per section 4.2
// re-entrance rule, it first recursively adds the owning class and the
// name-and-type entries.
func (t *SymbolTable) AddFieldref(owner, name, descriptor string) (*Symbol, error) {
	return t.addMemberRef(Fieldref, owner, name, descriptor)
}

// AddMethodref interns a CONSTANT_Methodref_info.
func (t *SymbolTable) AddMethodref(owner, name, descriptor string) (*Symbol, error) {
	return t.addMemberRef(Methodref, owner, name, descriptor)
}

// AddInterfaceMethodref interns a CONSTANT_InterfaceMethodref_info.
func (t *SymbolTable) AddInterfaceMethodref(owner, name, descriptor string) (*Symbol, error) {
	return t.addMemberRef(InterfaceMethodref, owner, name, descriptor)
}

func (t *SymbolTable) addMemberRef(tag Tag, owner, name, descriptor string) (*Symbol, error) {
	classSym, err := t.AddClass(owner)
	if err != nil {
		return nil, err
	}
	natSym, err := t.AddNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: tag, Owner: owner, Name: name, Value: descriptor,
		ClassIndex: classSym.Index, NameAndTypeIndex: natSym.Index}
	return t.intern(tag, s, func(index int) {
		t.constantPool.PutU8U16U16(int(tag), classSym.Index, natSym.Index)
	})
}

// AddMethodHandle interns a CONSTANT_MethodHandle_info (JVMS 4.4.8).
// referenceKind is one of the jbopcodes.RefXxx constants; refIndex is the
// already-interned constant-pool index of the referenced Fieldref,
// Methodref, or InterfaceMethodref.
func (t *SymbolTable) AddMethodHandle(referenceKind int, refIndex int) (*Symbol, error) {
	if referenceKind < jbopcodes.RefGetField || referenceKind > jbopcodes.RefInvokeInterface {
		return nil, jerrors.New(jerrors.InvalidArgument, "invalid MethodHandle reference kind %d", referenceKind)
	}
	s := &Symbol{Tag: MethodHandle, Data: int64(referenceKind), ClassIndex: refIndex}
	return t.intern(MethodHandle, s, func(index int) {
		t.constantPool.PutU8(int(MethodHandle)).PutU8(referenceKind).PutU16(refIndex)
	})
}

// AddMethodType interns a CONSTANT_MethodType_info.
func (t *SymbolTable) AddMethodType(descriptor string) (*Symbol, error) {
	idx, err := t.utf8Index(descriptor)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: MethodType, Value: descriptor}
	return t.intern(MethodType, s, func(index int) {
		t.constantPool.PutU8(int(MethodType)).PutU16(idx)
	})
}

// AddBootstrapMethod interns a BootstrapMethods array entry keyed by
// byte-exact (handle, args) encoding and returns its bootstrap-table
// index (0-based, as stored in Dynamic/InvokeDynamic's
// bootstrap_method_attr_index).
func (t *SymbolTable) AddBootstrapMethod(methodHandleIndex int, argIndices []int) (*Symbol, error) {
	bk := bootstrapKey(methodHandleIndex, argIndices)
	if existing, ok := t.bootstrapByKey[bk]; ok {
		return existing, nil
	}
	s := &Symbol{Tag: BootstrapMethod, Data: int64(t.bootstrapBytes.Len()),
		ClassIndex: methodHandleIndex, BootstrapArgs: argIndices, Index: t.bootstrapCount}
	t.bootstrapBytes.PutU16(methodHandleIndex).PutU16(len(argIndices))
	for _, a := range argIndices {
		t.bootstrapBytes.PutU16(a)
	}
	t.bootstrapByKey[bk] = s
	t.bootstrapCount++
	return s, nil
}

// AddDynamic interns a CONSTANT_Dynamic_info (JVMS 4.4.10, class file
// version >= 55, section 6).
func (t *SymbolTable) AddDynamic(bootstrapIndex int, name, descriptor string) (*Symbol, error) {
	if jbopcodes.MajorVersion(t.ClassVersion) < jbopcodes.MajorVersion(jbopcodes.V11) {
		return nil, jerrors.New(jerrors.UnsupportedFeature, "CONSTANT_Dynamic requires class file version >= 55 (v11), got %d", jbopcodes.MajorVersion(t.ClassVersion))
	}
	natSym, err := t.AddNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: Dynamic, Name: name, Value: descriptor,
		Data: int64(bootstrapIndex), NameAndTypeIndex: natSym.Index}
	return t.intern(Dynamic, s, func(index int) {
		t.constantPool.PutU8U16U16(int(Dynamic), bootstrapIndex, natSym.Index)
	})
}

// AddInvokeDynamic interns a CONSTANT_InvokeDynamic_info (JVMS 4.4.10,
// class file version >= 51, section 6).
func (t *SymbolTable) AddInvokeDynamic(bootstrapIndex int, name, descriptor string) (*Symbol, error) {
	if jbopcodes.MajorVersion(t.ClassVersion) < jbopcodes.MajorVersion(jbopcodes.V1_7) {
		return nil, jerrors.New(jerrors.UnsupportedFeature, "invokedynamic requires class file version >= 51 (v1.7), got %d", jbopcodes.MajorVersion(t.ClassVersion))
	}
	natSym, err := t.AddNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: InvokeDynamic, Name: name, Value: descriptor,
		Data: int64(bootstrapIndex), NameAndTypeIndex: natSym.Index}
	return t.intern(InvokeDynamic, s, func(index int) {
		t.constantPool.PutU8U16U16(int(InvokeDynamic), bootstrapIndex, natSym.Index)
	})
}

// AddModule interns a CONSTANT_Module_info (version >= 53 per JVMS 4.4.11).
func (t *SymbolTable) AddModule(name string) (*Symbol, error) {
	idx, err := t.utf8Index(name)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: Module, Name: name}
	return t.intern(Module, s, func(index int) {
		t.constantPool.PutU8(int(Module)).PutU16(idx)
	})
}

// AddPackage interns a CONSTANT_Package_info (JVMS 4.4.12).
func (t *SymbolTable) AddPackage(name string) (*Symbol, error) {
	idx, err := t.utf8Index(name)
	if err != nil {
		return nil, err
	}
	s := &Symbol{Tag: Package, Name: name}
	return t.intern(Package, s, func(index int) {
		t.constantPool.PutU8(int(Package)).PutU16(idx)
	})
}

// PutConstantPool writes constant_pool_count followed by every interned
// entry's bytes, in index order, into out.
func (t *SymbolTable) PutConstantPool(out *jbbytes.ByteVector) {
	out.PutU16(t.nextIndex)
	out.PutBytes(t.constantPool.Bytes())
}

// HasBootstrapMethods reports whether any bootstrap method was ever
// interned, letting a caller decide whether to emit the attribute at all
// without paying for a throwaway PutBootstrapMethods call.
func (t *SymbolTable) HasBootstrapMethods() bool { return t.bootstrapCount > 0 }

// PutBootstrapMethods writes the BootstrapMethods attribute body (the u2
// count followed by each entry) into out. Returns false if no bootstrap
// methods were ever added, so the caller can skip the attribute entirely.
func (t *SymbolTable) PutBootstrapMethods(out *jbbytes.ByteVector) bool {
	if t.bootstrapCount == 0 {
		return false
	}
	out.PutU16(t.bootstrapCount)
	out.PutBytes(t.bootstrapBytes.Bytes())
	return true
}

// The type table holds abstract verification types consulted only by
// jbframe's stack map computation (section 4.4 "Type table"). It
// is independent of the constant pool's index space: a type-table index
// is never written to the class file directly, only embedded in the
// synthesized Frame locals/stack entries that reference object types by
// table position instead of by constant-pool Class index, so that two
// frames computed against the same uninitialized-NEW offset agree
// without re-resolving the owning class name each time.

// AddType interns a plain reference type (internalName) in the type
// table and returns its dense index.
func (t *SymbolTable) AddType(internalName string) int {
	if idx, ok := t.typeByName[internalName]; ok {
		return idx
	}
	idx := len(t.typeTable)
	t.typeTable = append(t.typeTable, &Symbol{Tag: TypeTableType, Name: internalName, Index: idx})
	t.typeByName[internalName] = idx
	return idx
}

// AddUninitializedType interns the verification type of an object
// produced by `new` at bytecode offset newOffset, before its constructor
// has run (JVMS 4.10.1.4 Uninitialized). Two NEW instructions at the
// same offset (impossible in valid bytecode, but frame merging may
// still ask) share a table slot.
func (t *SymbolTable) AddUninitializedType(internalName string, newOffset int) int {
	if idx, ok := t.uninitByOffset[newOffset]; ok {
		return idx
	}
	idx := len(t.typeTable)
	t.typeTable = append(t.typeTable, &Symbol{Tag: Uninitialized, Name: internalName, Data: int64(newOffset), Index: idx})
	t.uninitByOffset[newOffset] = idx
	return idx
}

// AddMergedType returns the type-table index of the nearest common
// ancestor of the two reference types at indices typeIndex1 and
// typeIndex2, consulting CommonSuperClass and memoizing by the
// unordered pair so repeated merges of the same pair during frame merging
// (section 4.4 "Merge") don't re-invoke the callback.
func (t *SymbolTable) AddMergedType(typeIndex1, typeIndex2 int) int {
	if typeIndex1 == typeIndex2 {
		return typeIndex1
	}
	pair := [2]int{typeIndex1, typeIndex2}
	if pair[0] > pair[1] {
		pair[0], pair[1] = pair[1], pair[0]
	}
	if idx, ok := t.mergedByPair[pair]; ok {
		return idx
	}
	a := t.typeTable[typeIndex1].Name
	b := t.typeTable[typeIndex2].Name
	super := "java/lang/Object"
	if t.CommonSuperClass != nil {
		super = t.CommonSuperClass(a, b)
	}
	idx := t.AddType(super)
	t.mergedByPair[pair] = idx
	return idx
}

// GetType returns the Symbol stored at a type-table index.
func (t *SymbolTable) GetType(index int) *Symbol {
	return t.typeTable[index]
}
