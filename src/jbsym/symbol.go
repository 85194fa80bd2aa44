package jbsym

// Symbol is one entry of the constant pool, the BootstrapMethods array,
// or the type table (section 3 "Symbol"). It is a flat value
// struct carrying every tag-specific payload field a Symbol might need,
// the way CPutils.go's CpType struct substitutes a tagged struct for a
// discriminated union.
type Symbol struct {
	Tag   Tag
	Index int // one-based in its table; dense and monotonically increasing

	Owner string // internal name of the owning class, for ref-kind tags
	Name  string // member/method name, class internal name, or module/package name
	Value string // descriptor, or the UTF-8 payload itself for Tag==UTF8

	// Data packs whichever single 64-bit scalar this tag needs:
	//   Integer/Long: the numeric value (Float/Double are bit-reinterpreted)
	//   MethodHandle: reference-kind byte
	//   Dynamic/InvokeDynamic: bootstrap-method table index
	//   BootstrapMethod: offset into the bootstrap byte stream
	//   Uninitialized: the bytecode offset of the originating NEW
	//   MergedType: packed pair of type-table indices (hi<<32|lo)
	Data int64

	// NameAndTypeIndex/ClassIndex hold already-resolved constant-pool
	// indices for compound entries (Fieldref/Methodref/
	// InterfaceMethodref/Dynamic/InvokeDynamic/MethodHandle), so the
	// second pass that writes constant_pool bytes never has to re-resolve
	// a dependency.
	ClassIndex       int
	NameAndTypeIndex int
	DescriptorIndex  int // UTF-8 index, used by NameAndType entries

	// BootstrapArgs holds the constant-pool indices of a bootstrap
	// method's static arguments, in order (only on Tag==BootstrapMethod).
	BootstrapArgs []int
}

// key is the structural identity the interner hashes and compares by
// (section 3 invariant: "distinct Symbols never have structurally
// equal key fields"). It must stay comparable (usable as a map key).
type key struct {
	tag              Tag
	owner            string
	name             string
	value            string
	data             int64
	classIndex       int
	nameAndTypeIndex int
}

func (s *Symbol) key() key {
	return key{
		tag: s.Tag, owner: s.Owner, name: s.Name, value: s.Value, data: s.Data,
		classIndex: s.ClassIndex, nameAndTypeIndex: s.NameAndTypeIndex,
	}
}

// bootstrapKey dedupes BootstrapMethods entries by byte-exact encoding,
// since their identity is "same handle, same argument list in order" --
// a plain key{} with a slice field wouldn't be comparable, so bootstrap
// methods are keyed separately by their serialized form (see table.go).
func bootstrapKey(handleIndex int, args []int) string {
	buf := make([]byte, 0, 2+2*len(args))
	buf = append(buf, byte(handleIndex>>8), byte(handleIndex))
	for _, a := range args {
		buf = append(buf, byte(a>>8), byte(a))
	}
	return string(buf)
}
