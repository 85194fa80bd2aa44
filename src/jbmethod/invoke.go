package jbmethod

import (
	"jbasm/src/jbdesc"
	"jbasm/src/jbframe"
	"jbasm/src/jbopcodes"
	"jbasm/src/jbvisit"
	"jbasm/src/jerrors"
)

// BootstrapArgIndex wraps an already-interned constant-pool index (for a
// CONSTANT_MethodHandle_info or CONSTANT_MethodType_info bootstrap
// argument) so VisitInvokeDynamicInsn can tell it apart from a loadable
// constant that still needs interning.
type BootstrapArgIndex int

// resolveBootstrapArg interns one invokedynamic bootstrap argument. Plain
// Go constant types (int32, int64, float32, float64, string) are resolved
// the same way VisitLdcInsn resolves them; a BootstrapArgIndex is used
// as-is, for MethodHandle/MethodType arguments the caller already interned.
func (mw *MethodWriter) resolveBootstrapArg(v any) (int, error) {
	if idx, ok := v.(BootstrapArgIndex); ok {
		return int(idx), nil
	}
	return ldcConstantIndex(mw, v)
}

// VisitInvokeDynamicInsn emits an invokedynamic instruction (JVMS 6.5).
// bootstrapMethodHandle must be an int (or BootstrapArgIndex) naming the
// constant pool index of a CONSTANT_MethodHandle_info the caller already
// interned via the table, e.g. through mw's owning ClassWriter.
func (mw *MethodWriter) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethodHandle jbvisit.BootstrapHandle, bootstrapArgs []any) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	handleIndex, ok := asIndex(bootstrapMethodHandle)
	if !ok {
		return mw.fail(jerrors.InvalidArgument, "bootstrap method handle must resolve to a constant pool index, got %T", bootstrapMethodHandle)
	}
	argIndices := make([]int, 0, len(bootstrapArgs))
	for _, a := range bootstrapArgs {
		idx, err := mw.resolveBootstrapArg(a)
		if err != nil {
			return err
		}
		argIndices = append(argIndices, idx)
	}
	bsm, err := mw.table.AddBootstrapMethod(handleIndex, argIndices)
	if err != nil {
		return err
	}
	sym, err := mw.table.AddInvokeDynamic(bsm.Index, name, descriptor)
	if err != nil {
		return err
	}
	mw.code.PutU8U16(jbopcodes.INVOKEDYNAMIC, sym.Index)
	mw.code.PutU16(0) // reserved, JVMS 6.5 invokedynamic
	var retType jbframe.VType
	if !jbdesc.ReturnsVoid(descriptor) {
		retType = mw.fieldOrReturnRefType(methodReturnDescriptor(descriptor))
	}
	return mw.execute(jbframe.Insn{Opcode: jbopcodes.INVOKEDYNAMIC, Descriptor: descriptor, RefType: retType})
}

func asIndex(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case BootstrapArgIndex:
		return int(x), true
	default:
		return 0, false
	}
}
