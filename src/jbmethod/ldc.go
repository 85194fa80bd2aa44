package jbmethod

import (
	"jbasm/src/jbframe"
	"jbasm/src/jbopcodes"
	"jbasm/src/jerrors"
	"math"
)

// ldcConstantIndex interns value as a loadable constant-pool entry and
// returns its index. Accepted Go types: int32, int64, float32, float64,
// string; a string longer than the modified-UTF-8-encodable maximum is
// rejected by AddUTF8/AddString further down the call chain.
func ldcConstantIndex(mw *MethodWriter, value any) (int, error) {
	switch v := value.(type) {
	case int32:
		sym, err := mw.table.AddInteger(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case int64:
		sym, err := mw.table.AddLong(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case float32:
		sym, err := mw.table.AddFloat(math.Float32bits(v))
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case float64:
		sym, err := mw.table.AddDouble(math.Float64bits(v))
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	case string:
		sym, err := mw.table.AddString(v)
		if err != nil {
			return 0, err
		}
		return sym.Index, nil
	default:
		return 0, jerrors.New(jerrors.InvalidArgument, "unsupported LDC constant type %T", value)
	}
}

func ldcVType(value any) jbframe.VType {
	switch value.(type) {
	case int32:
		return jbframe.Integer
	case int64:
		return jbframe.Long
	case float32:
		return jbframe.Float
	case float64:
		return jbframe.Double
	case string:
		return jbframe.Top // a real string/class/methodtype ref type needs the writer's type table; Top is safe since no caller narrows on it
	default:
		return jbframe.Top
	}
}

// VisitLdcInsn pushes a constant, selecting LDC, LDC_W, or LDC2_W by the
// constant's category and the resolved index's width (JVMS 6.5 ldc/
// ldc_w/ldc2_w).
func (mw *MethodWriter) VisitLdcInsn(value any) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	idx, err := ldcConstantIndex(mw, value)
	if err != nil {
		return err
	}
	twoWord := false
	switch value.(type) {
	case int64, float64:
		twoWord = true
	}
	switch {
	case twoWord:
		mw.code.PutU8U16(jbopcodes.LDC2_W, idx)
	case idx <= 255:
		mw.code.PutU8(jbopcodes.LDC)
		mw.code.PutU8(idx)
	default:
		mw.code.PutU8U16(jbopcodes.LDC_W, idx)
	}
	return mw.execute(jbframe.Insn{Opcode: jbopcodes.LDC, ConstType: ldcVType(value)})
}

// VisitIincInsn emits IINC, inserting a WIDE prefix with 2-byte operands
// when either the local index or the increment exceeds a signed byte.
func (mw *MethodWriter) VisitIincInsn(index, increment int) error {
	if err := mw.requireCodeOpen(); err != nil {
		return err
	}
	if index > 255 || increment < -128 || increment > 127 {
		mw.code.PutU8(jbopcodes.WIDE)
		mw.code.PutU8(jbopcodes.IINC)
		mw.code.PutU16(index)
		mw.code.PutU16(increment)
		mw.hasAsmInsns = true
	} else {
		mw.code.PutU8(jbopcodes.IINC)
		mw.code.PutU8(index)
		mw.code.PutU8(increment)
	}
	return mw.execute(jbframe.Insn{Opcode: jbopcodes.IINC, LocalIndex: index, IntOperand: increment})
}
