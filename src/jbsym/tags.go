package jbsym

// Tag discriminates one entry of the constant pool, the BootstrapMethods
// array, or the type table (section 6 "Constant kinds"). Tags
// 1..20 are written verbatim to the class file per JVMS 4.4; tags 64,
// 128, 129, 130 are internal to the interner and never emitted.
type Tag int

const (
	UTF8               Tag = 1
	Integer            Tag = 3
	Float              Tag = 4
	Long               Tag = 5 // occupies two constant-pool indices
	Double             Tag = 6 // occupies two constant-pool indices
	Class              Tag = 7
	String             Tag = 8
	Fieldref           Tag = 9
	Methodref          Tag = 10
	InterfaceMethodref Tag = 11
	NameAndType        Tag = 12
	MethodHandle       Tag = 15
	MethodType         Tag = 16
	Dynamic            Tag = 17
	InvokeDynamic      Tag = 18
	Module             Tag = 19
	Package            Tag = 20

	// Internal-only tags, never written to the output class file.
	BootstrapMethod Tag = 64
	TypeTableType   Tag = 128
	Uninitialized   Tag = 129
	MergedType      Tag = 130
)

func (t Tag) String() string {
	switch t {
	case UTF8:
		return "UTF8"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Long:
		return "Long"
	case Double:
		return "Double"
	case Class:
		return "Class"
	case String:
		return "String"
	case Fieldref:
		return "Fieldref"
	case Methodref:
		return "Methodref"
	case InterfaceMethodref:
		return "InterfaceMethodref"
	case NameAndType:
		return "NameAndType"
	case MethodHandle:
		return "MethodHandle"
	case MethodType:
		return "MethodType"
	case Dynamic:
		return "Dynamic"
	case InvokeDynamic:
		return "InvokeDynamic"
	case Module:
		return "Module"
	case Package:
		return "Package"
	case BootstrapMethod:
		return "BootstrapMethod"
	case TypeTableType:
		return "Type"
	case Uninitialized:
		return "UninitializedType"
	case MergedType:
		return "MergedType"
	default:
		return "Unknown"
	}
}

// TwoSlot reports whether a constant-pool entry of this tag occupies two
// indices (JVMS 4.4.5 Long/Double: "the next usable index is index+2").
func (t Tag) TwoSlot() bool { return t == Long || t == Double }
