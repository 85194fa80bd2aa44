package main

import "jbasm/src/jbopcodes"

// insnCategory groups mnemonics by which MethodVisitor call assembles
// them. Jumps, switches, and invokedynamic are left out: a flat JSON
// instruction list has no natural way to express labels or bootstrap
// method handles, so assemble only covers straight-line bytecode.
type insnCategory int

const (
	catUnknown insnCategory = iota
	catInsn                 // no operand
	catVar                  // local variable index
	catInt                  // numeric operand (bipush/sipush/newarray)
	catType                 // internal class/array type name
	catField                // owner + name + descriptor
	catMethod               // owner + name + descriptor + interface flag
	catLdc                  // a single constant
	catIinc                 // local index + increment
)

var noOperandOpcodes = map[string]int{
	"nop": jbopcodes.NOP, "aconst_null": jbopcodes.ACONST_NULL,
	"iconst_m1": jbopcodes.ICONST_M1, "iconst_0": jbopcodes.ICONST_0,
	"iconst_1": jbopcodes.ICONST_1, "iconst_2": jbopcodes.ICONST_2,
	"iconst_3": jbopcodes.ICONST_3, "iconst_4": jbopcodes.ICONST_4,
	"iconst_5": jbopcodes.ICONST_5, "lconst_0": jbopcodes.LCONST_0,
	"lconst_1": jbopcodes.LCONST_1, "fconst_0": jbopcodes.FCONST_0,
	"fconst_1": jbopcodes.FCONST_1, "fconst_2": jbopcodes.FCONST_2,
	"dconst_0": jbopcodes.DCONST_0, "dconst_1": jbopcodes.DCONST_1,
	"iaload": jbopcodes.IALOAD, "laload": jbopcodes.LALOAD,
	"faload": jbopcodes.FALOAD, "daload": jbopcodes.DALOAD,
	"aaload": jbopcodes.AALOAD, "baload": jbopcodes.BALOAD,
	"caload": jbopcodes.CALOAD, "saload": jbopcodes.SALOAD,
	"iastore": jbopcodes.IASTORE, "lastore": jbopcodes.LASTORE,
	"fastore": jbopcodes.FASTORE, "dastore": jbopcodes.DASTORE,
	"aastore": jbopcodes.AASTORE, "bastore": jbopcodes.BASTORE,
	"castore": jbopcodes.CASTORE, "sastore": jbopcodes.SASTORE,
	"pop": jbopcodes.POP, "pop2": jbopcodes.POP2, "dup": jbopcodes.DUP,
	"dup_x1": jbopcodes.DUP_X1, "dup_x2": jbopcodes.DUP_X2,
	"dup2": jbopcodes.DUP2, "dup2_x1": jbopcodes.DUP2_X1, "dup2_x2": jbopcodes.DUP2_X2,
	"swap": jbopcodes.SWAP,
	"iadd": jbopcodes.IADD, "ladd": jbopcodes.LADD, "fadd": jbopcodes.FADD, "dadd": jbopcodes.DADD,
	"isub": jbopcodes.ISUB, "lsub": jbopcodes.LSUB, "fsub": jbopcodes.FSUB, "dsub": jbopcodes.DSUB,
	"imul": jbopcodes.IMUL, "lmul": jbopcodes.LMUL, "fmul": jbopcodes.FMUL, "dmul": jbopcodes.DMUL,
	"idiv": jbopcodes.IDIV, "ldiv": jbopcodes.LDIV, "fdiv": jbopcodes.FDIV, "ddiv": jbopcodes.DDIV,
	"irem": jbopcodes.IREM, "lrem": jbopcodes.LREM, "frem": jbopcodes.FREM, "drem": jbopcodes.DREM,
	"ineg": jbopcodes.INEG, "lneg": jbopcodes.LNEG, "fneg": jbopcodes.FNEG, "dneg": jbopcodes.DNEG,
	"ishl": jbopcodes.ISHL, "lshl": jbopcodes.LSHL, "ishr": jbopcodes.ISHR, "lshr": jbopcodes.LSHR,
	"iushr": jbopcodes.IUSHR, "lushr": jbopcodes.LUSHR,
	"iand": jbopcodes.IAND, "land": jbopcodes.LAND, "ior": jbopcodes.IOR, "lor": jbopcodes.LOR,
	"ixor": jbopcodes.IXOR, "lxor": jbopcodes.LXOR,
	"i2l": jbopcodes.I2L, "i2f": jbopcodes.I2F, "i2d": jbopcodes.I2D,
	"l2i": jbopcodes.L2I, "l2f": jbopcodes.L2F, "l2d": jbopcodes.L2D,
	"f2i": jbopcodes.F2I, "f2l": jbopcodes.F2L, "f2d": jbopcodes.F2D,
	"d2i": jbopcodes.D2I, "d2l": jbopcodes.D2L, "d2f": jbopcodes.D2F,
	"i2b": jbopcodes.I2B, "i2c": jbopcodes.I2C, "i2s": jbopcodes.I2S,
	"lcmp": jbopcodes.LCMP, "fcmpl": jbopcodes.FCMPL, "fcmpg": jbopcodes.FCMPG,
	"dcmpl": jbopcodes.DCMPL, "dcmpg": jbopcodes.DCMPG,
	"ireturn": jbopcodes.IRETURN, "lreturn": jbopcodes.LRETURN, "freturn": jbopcodes.FRETURN,
	"dreturn": jbopcodes.DRETURN, "areturn": jbopcodes.ARETURN, "return": jbopcodes.RETURN,
	"arraylength": jbopcodes.ARRAYLENGTH, "athrow": jbopcodes.ATHROW,
	"monitorenter": jbopcodes.MONITORENTER, "monitorexit": jbopcodes.MONITOREXIT,
}

var varOpcodes = map[string]int{
	"iload": jbopcodes.ILOAD, "lload": jbopcodes.LLOAD, "fload": jbopcodes.FLOAD,
	"dload": jbopcodes.DLOAD, "aload": jbopcodes.ALOAD,
	"istore": jbopcodes.ISTORE, "lstore": jbopcodes.LSTORE, "fstore": jbopcodes.FSTORE,
	"dstore": jbopcodes.DSTORE, "astore": jbopcodes.ASTORE,
	"ret": jbopcodes.RET,
}

var intOpcodes = map[string]int{
	"bipush": jbopcodes.BIPUSH, "sipush": jbopcodes.SIPUSH, "newarray": jbopcodes.NEWARRAY,
}

var typeOpcodes = map[string]int{
	"new": jbopcodes.NEW, "anewarray": jbopcodes.ANEWARRAY,
	"checkcast": jbopcodes.CHECKCAST, "instanceof": jbopcodes.INSTANCEOF,
}

var fieldOpcodes = map[string]int{
	"getstatic": jbopcodes.GETSTATIC, "putstatic": jbopcodes.PUTSTATIC,
	"getfield": jbopcodes.GETFIELD, "putfield": jbopcodes.PUTFIELD,
}

var methodOpcodes = map[string]int{
	"invokevirtual": jbopcodes.INVOKEVIRTUAL, "invokespecial": jbopcodes.INVOKESPECIAL,
	"invokestatic": jbopcodes.INVOKESTATIC, "invokeinterface": jbopcodes.INVOKEINTERFACE,
}

func classify(mnemonic string) (insnCategory, int) {
	if op, ok := noOperandOpcodes[mnemonic]; ok {
		return catInsn, op
	}
	if op, ok := varOpcodes[mnemonic]; ok {
		return catVar, op
	}
	if op, ok := intOpcodes[mnemonic]; ok {
		return catInt, op
	}
	if op, ok := typeOpcodes[mnemonic]; ok {
		return catType, op
	}
	if op, ok := fieldOpcodes[mnemonic]; ok {
		return catField, op
	}
	if op, ok := methodOpcodes[mnemonic]; ok {
		return catMethod, op
	}
	if mnemonic == "ldc" {
		return catLdc, jbopcodes.LDC
	}
	if mnemonic == "iinc" {
		return catIinc, jbopcodes.IINC
	}
	return catUnknown, 0
}

var classVersions = map[string]int{
	"V1_1": jbopcodes.V1_1, "V1_2": jbopcodes.V1_2, "V1_3": jbopcodes.V1_3,
	"V1_4": jbopcodes.V1_4, "V1_5": jbopcodes.V1_5, "V1_6": jbopcodes.V1_6,
	"V1_7": jbopcodes.V1_7, "V1_8": jbopcodes.V1_8,
	"V9": jbopcodes.V9, "V10": jbopcodes.V10, "V11": jbopcodes.V11,
	"V12": jbopcodes.V12, "V13": jbopcodes.V13, "V14": jbopcodes.V14,
	"V15": jbopcodes.V15, "V16": jbopcodes.V16, "V17": jbopcodes.V17,
	"V18": jbopcodes.V18, "V19": jbopcodes.V19, "V20": jbopcodes.V20, "V21": jbopcodes.V21,
}

var accessFlags = map[string]int{
	"public": jbopcodes.AccPublic, "private": jbopcodes.AccPrivate,
	"protected": jbopcodes.AccProtected, "static": jbopcodes.AccStatic,
	"final": jbopcodes.AccFinal, "super": jbopcodes.AccSuper,
	"volatile": jbopcodes.AccVolatile, "transient": jbopcodes.AccTransient,
	"native": jbopcodes.AccNative, "interface": jbopcodes.AccInterface,
	"abstract": jbopcodes.AccAbstract, "strict": jbopcodes.AccStrict,
	"synthetic": jbopcodes.AccSynthetic, "annotation": jbopcodes.AccAnnotation,
	"enum": jbopcodes.AccEnum, "varargs": jbopcodes.AccVarargs,
	"bridge": jbopcodes.AccBridge, "synchronized": jbopcodes.AccSynchronized,
}

func flagsOf(names []string) int {
	var flags int
	for _, n := range names {
		flags |= accessFlags[n]
	}
	return flags
}
