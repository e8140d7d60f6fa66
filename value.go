package conditional

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Kind identifies the variant of a Value.
type Kind int8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindReal
	KindStr
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindStr:
		return "str"
	default:
		return "invalid"
	}
}

// Value is the result of evaluating an expression or any of its
// subexpressions. Every Value is one of Bool, Int, Real, or Str.
type Value interface {
	// Kind returns the variant of the value.
	Kind() Kind
	// String formats the value. Strings are returned verbatim.
	String() string

	value()
}

type (
	// Bool is a boolean value.
	Bool bool
	// Int is an integer value.
	Int int64
	// Real is a floating-point value.
	Real float64
	// Str is a string value.
	Str string
)

func (Bool) Kind() Kind { return KindBool }
func (Int) Kind() Kind  { return KindInt }
func (Real) Kind() Kind { return KindReal }
func (Str) Kind() Kind  { return KindStr }

func (Bool) value() {}
func (Int) value()  {}
func (Real) value() {}
func (Str) value()  {}

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }
func (v Int) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Real) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Str) String() string  { return string(v) }

// kindOf is Kind that tolerates nil.
func kindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}

// cmpIntReal compares an Int to a non-NaN Real exactly, without rounding a to
// the nearest float64.
func cmpIntReal(a Int, b Real) int {
	if math.IsInf(float64(b), 0) {
		if b > 0 {
			return -1
		}
		return 1
	}
	x := new(big.Float).SetInt64(int64(a))
	return x.Cmp(big.NewFloat(float64(b)))
}

// Equal reports whether two values are equal. Values of the same kind compare
// by value, and an Int equals a Real with the same numeric value. Values of
// any other pair of kinds are never equal.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Real:
			return !math.IsNaN(float64(b)) && cmpIntReal(a, b) == 0
		}
	case Real:
		switch b := b.(type) {
		case Int:
			return !math.IsNaN(float64(a)) && cmpIntReal(b, a) == 0
		case Real:
			return a == b
		}
	}
	return false
}

// ValueOf converts a Go scalar to a Value. Booleans, integers, floats, and
// strings are supported.
func ValueOf(x any) (Value, error) {
	switch x := x.(type) {
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint64:
		return uintValue(x)
	case float32:
		return Real(x), nil
	case float64:
		return Real(x), nil
	case string:
		return Str(x), nil
	default:
		return nil, fmt.Errorf("conditional: cannot use %T as a value", x)
	}
}

func uintValue(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return nil, &OverflowError{Op: "conversion"}
	}
	return Int(x), nil
}
