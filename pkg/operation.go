package ember

import "math"

// The functions in this file hold no state of their own. The emitting ones
// take the function builder they append to; with a nil builder only constant
// operands are accepted, which is how global initializers are folded.

func bitWidth(t Type) uint {
	switch t.Kind {
	case KindBool:
		return 1
	case KindChar:
		return 8
	case KindShort:
		return 16
	case KindInt:
		return 32
	}

	return 64
}

// CastOpFor picks the conversion from one type to another. The caller handles
// identical types.
func CastOpFor(from, to Type) (CastOp, bool) {
	switch {
	case from.IsInteger() && to.IsInteger():
		if bitWidth(to) < bitWidth(from) {
			return CastTrunc, true
		}
		if from.Kind == KindBool {
			return CastZExt, true
		}
		return CastSExt, true
	case from.IsInteger() && to.IsFloat():
		if from.Kind == KindBool {
			return CastUIToFP, true
		}
		return CastSIToFP, true
	case from.IsFloat() && to.IsInteger():
		// Any nonzero float is true, so bool is not a truncation.
		if to.Kind == KindBool {
			return CastFPToBool, true
		}
		return CastFPToSI, true
	case from.IsFloat() && to.IsFloat():
		if Precedence(to) > Precedence(from) {
			return CastFPExt, true
		}
		return CastFPTrunc, true
	case from.IsPointer() && to.IsPointer():
		return CastBitcast, true
	}

	return 0, false
}

// Promote returns the operand type that wins in a mixed numeric operation.
func Promote(a, b Type) Type {
	if Precedence(a) >= Precedence(b) {
		return a
	}

	return b
}

// ArithResult checks an arithmetic operator against its operand types and
// returns the type of the result.
func ArithResult(loc Location, op BinaryOp, l, r Type) (Type, error) {
	switch {
	case l.IsNumeric() && r.IsNumeric():
		return Promote(l, r), nil
	case l.IsPointer() && r.IsInteger() && (op == BinaryAddition || op == BinarySubtraction):
		if l.Elem.IsVoid() {
			return Type{}, semanticErrorf(loc, "arithmetic on a void pointer")
		}
		return l, nil
	case l.IsInteger() && r.IsPointer() && op == BinaryAddition:
		if r.Elem.IsVoid() {
			return Type{}, semanticErrorf(loc, "arithmetic on a void pointer")
		}
		return r, nil
	case l.IsPointer() && r.IsPointer() && op == BinarySubtraction:
		return Type{}, semanticErrorf(loc, "pointer difference is not supported")
	}

	return Type{}, &UndefinedOperationError{Loc: loc, Op: op, Type1: l, Type2: r}
}

var arithOps = map[BinaryOp]ArithOp{
	BinaryAddition:       OpAdd,
	BinarySubtraction:    OpSub,
	BinaryMultiplication: OpMul,
	BinaryDivision:       OpDiv,
}

func notConstant(loc Location) error {
	return semanticErrorf(loc, "initializer is not a constant expression")
}

// Cast converts v to the target type, folding constants.
func Cast(b *FuncBuilder, loc Location, v Value, to Type) (Value, error) {
	from := v.Type()
	if from.Equals(to) {
		return v, nil
	}

	op, ok := CastOpFor(from, to)
	if !ok {
		return nil, &CastError{Loc: loc, From: from, To: to}
	}

	if c, ok := v.(Constant); ok {
		if folded, ok := foldCast(c, to); ok {
			return folded, nil
		}
	}

	if b == nil {
		return nil, notConstant(loc)
	}

	return b.Convert(op, v, to), nil
}

// PrecCast lifts the lower ranked of two differing numeric operands to the
// type of the other.
func PrecCast(b *FuncBuilder, loc Location, l, r Value) (Value, Value, error) {
	lt, rt := l.Type(), r.Type()
	if !lt.IsNumeric() || !rt.IsNumeric() || lt.Equals(rt) {
		return l, r, nil
	}

	var err error
	if Precedence(lt) < Precedence(rt) {
		l, err = Cast(b, loc, l, rt)
	} else {
		r, err = Cast(b, loc, r, lt)
	}

	return l, r, err
}

// Arith emits a binary arithmetic operation, including scaled pointer
// offsets.
func Arith(b *FuncBuilder, loc Location, op BinaryOp, l, r Value) (Value, error) {
	if _, err := ArithResult(loc, op, l.Type(), r.Type()); err != nil {
		return nil, err
	}

	if l.Type().IsPointer() || r.Type().IsPointer() {
		base, index := l, r
		if r.Type().IsPointer() {
			base, index = r, l
		}

		if b == nil {
			return nil, notConstant(loc)
		}

		index, err := Cast(b, loc, index, Long)
		if err != nil {
			return nil, err
		}

		if op == BinarySubtraction {
			if index, err = Arith(b, loc, BinarySubtraction, &IntConst{Typ: Long}, index); err != nil {
				return nil, err
			}
		}

		return b.Offset(base, index), nil
	}

	l, r, err := PrecCast(b, loc, l, r)
	if err != nil {
		return nil, err
	}

	lc, lok := l.(Constant)
	rc, rok := r.(Constant)
	if lok && rok {
		return foldArith(loc, arithOps[op], lc, rc)
	}

	if b == nil {
		return nil, notConstant(loc)
	}

	return b.Arith(arithOps[op], l, r), nil
}

// Assign stores rvalue through the lvalue pointer and yields the stored
// value.
func Assign(b *FuncBuilder, loc Location, lvalue, rvalue Value) (Value, error) {
	dst := lvalue.Type()
	if !dst.IsPointer() {
		return nil, internalErrorf(loc, "assignment target of type %s is not addressable", dst)
	}

	v, err := Cast(b, loc, rvalue, *dst.Elem)
	if err != nil {
		return nil, err
	}

	b.Store(v, lvalue)
	return v, nil
}

// wrapInt truncates v to the width of t and sign extends it back.
func wrapInt(v int64, t Type) int64 {
	if t.Kind == KindBool {
		return v & 1
	}

	shift := 64 - bitWidth(t)
	return v << shift >> shift
}

func roundFloat(v float64, t Type) float64 {
	if t.Kind == KindFloat {
		return float64(float32(v))
	}

	return v
}

func foldCast(c Constant, to Type) (Constant, bool) {
	switch v := c.(type) {
	case *IntConst:
		switch {
		case to.IsInteger():
			return &IntConst{Typ: to, Value: wrapInt(v.Value, to)}, true
		case to.IsFloat():
			return &FloatConst{Typ: to, Value: roundFloat(float64(v.Value), to)}, true
		}
	case *FloatConst:
		switch {
		case to.IsInteger():
			if to.Kind == KindBool {
				if v.Value != 0 {
					return &IntConst{Typ: to, Value: 1}, true
				}
				return &IntConst{Typ: to}, true
			}
			return &IntConst{Typ: to, Value: wrapInt(int64(math.Trunc(v.Value)), to)}, true
		case to.IsFloat():
			return &FloatConst{Typ: to, Value: roundFloat(v.Value, to)}, true
		}
	case *NullConst:
		if to.IsPointer() {
			return &NullConst{Typ: to}, true
		}
	case *GlobalAddr, *BitcastConst:
		if to.IsPointer() {
			return &BitcastConst{X: c, Typ: to}, true
		}
	}

	return nil, false
}

func foldArith(loc Location, op ArithOp, x, y Constant) (Constant, error) {
	switch xv := x.(type) {
	case *IntConst:
		yv, ok := y.(*IntConst)
		if !ok {
			break
		}

		var v int64
		switch op {
		case OpAdd:
			v = xv.Value + yv.Value
		case OpSub:
			v = xv.Value - yv.Value
		case OpMul:
			v = xv.Value * yv.Value
		case OpDiv:
			if yv.Value == 0 {
				return nil, semanticErrorf(loc, "integer division by zero")
			}
			v = xv.Value / yv.Value
		}

		return &IntConst{Typ: xv.Typ, Value: wrapInt(v, xv.Typ)}, nil
	case *FloatConst:
		yv, ok := y.(*FloatConst)
		if !ok {
			break
		}

		var v float64
		switch op {
		case OpAdd:
			v = xv.Value + yv.Value
		case OpSub:
			v = xv.Value - yv.Value
		case OpMul:
			v = xv.Value * yv.Value
		case OpDiv:
			v = xv.Value / yv.Value
		}

		return &FloatConst{Typ: xv.Typ, Value: roundFloat(v, xv.Typ)}, nil
	}

	return nil, internalErrorf(loc, "cannot fold %s of %s and %s", op, x.Type(), y.Type())
}
