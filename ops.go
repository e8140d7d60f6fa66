package conditional

import (
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// opcode identifies an operator.
type opcode int8

const (
	opNone opcode = iota

	opPos
	opNeg

	opMul
	opPow
	opDiv
	opFloorDiv
	opMod

	opAdd
	opSub

	opLT
	opLE
	opGT
	opGE
	opEq
	opNE
	opIs

	opNot
	opAnd
	opOr
)

var opnames = [...]string{
	opNone:     "<none>",
	opPos:      "+",
	opNeg:      "-",
	opMul:      "*",
	opPow:      "**",
	opDiv:      "/",
	opFloorDiv: "//",
	opMod:      "%",
	opAdd:      "+",
	opSub:      "-",
	opLT:       "<",
	opLE:       "<=",
	opGT:       ">",
	opGE:       ">=",
	opEq:       "==",
	opNE:       "!=",
	opIs:       "is",
	opNot:      "not",
	opAnd:      "and",
	opOr:       "or",
}

func (op opcode) String() string {
	if op < 0 || int(op) >= len(opnames) {
		return "opcode(" + strconv.Itoa(int(op)) + ")"
	}
	return opnames[op]
}

// powprec is the precision in bits of intermediate results of real powers.
const powprec = 128

// sign applies a unary + or -.
func sign(op opcode, v Value) (Value, error) {
	switch v := v.(type) {
	case Int:
		if op == opPos {
			return v, nil
		}
		if v == math.MinInt64 {
			return nil, &OverflowError{Op: op.String()}
		}
		return -v, nil
	case Real:
		if op == opPos {
			return v, nil
		}
		return -v, nil
	default:
		return nil, &TypeError{Op: op.String(), Right: kindOf(v)}
	}
}

// arith applies a multiplicative or additive operator. Two Ints give an Int
// except for true division and negative powers; any Real operand gives a
// Real.
func arith(op opcode, l, r Value) (Value, error) {
	switch lv := l.(type) {
	case Int:
		switch rv := r.(type) {
		case Int:
			return intArith(op, lv, rv)
		case Real:
			return realArith(op, Real(lv), rv)
		}
	case Real:
		switch rv := r.(type) {
		case Int:
			return realArith(op, lv, Real(rv))
		case Real:
			return realArith(op, lv, rv)
		}
	}
	return nil, &TypeError{Op: op.String(), Left: kindOf(l), Right: kindOf(r)}
}

func intArith(op opcode, a, b Int) (Value, error) {
	x, y := big.NewInt(int64(a)), big.NewInt(int64(b))
	switch op {
	case opAdd:
		return intResult(op, x.Add(x, y))
	case opSub:
		return intResult(op, x.Sub(x, y))
	case opMul:
		return intResult(op, x.Mul(x, y))
	case opPow:
		if b < 0 {
			return realPow(Real(a), Real(b))
		}
		if b > 64 && (a > 1 || a < -1) {
			// |a|**b cannot fit in 64 bits.
			return nil, &OverflowError{Op: op.String()}
		}
		return intResult(op, x.Exp(x, y, nil))
	case opDiv:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		return Real(float64(a) / float64(b)), nil
	case opFloorDiv:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		if a == math.MinInt64 && b == -1 {
			return nil, &OverflowError{Op: op.String()}
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return q, nil
	case opMod:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	default:
		panic("conditional: invalid arithmetic operator " + op.String())
	}
}

// intResult converts an exact result to an Int if it fits.
func intResult(op opcode, z *big.Int) (Value, error) {
	if !z.IsInt64() {
		return nil, &OverflowError{Op: op.String()}
	}
	return Int(z.Int64()), nil
}

func realArith(op opcode, a, b Real) (Value, error) {
	switch op {
	case opAdd:
		return a + b, nil
	case opSub:
		return a - b, nil
	case opMul:
		return a * b, nil
	case opPow:
		return realPow(a, b)
	case opDiv:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		return a / b, nil
	case opFloorDiv:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		return Real(math.Floor(float64(a / b))), nil
	case opMod:
		if b == 0 {
			return nil, &DomainError{X: b, Op: op.String()}
		}
		m := math.Mod(float64(a), float64(b))
		if m != 0 && (m < 0) != (b < 0) {
			m += float64(b)
		}
		return Real(m), nil
	default:
		panic("conditional: invalid arithmetic operator " + op.String())
	}
}

// realPow computes a**b. Powers of finite positive bases are computed at
// extended precision and rounded.
func realPow(a, b Real) (r Value, err error) {
	x, y := float64(a), float64(b)
	switch {
	case y == 0:
		return Real(1), nil
	case math.IsInf(x, 0), math.IsInf(y, 0), math.IsNaN(x), math.IsNaN(y):
		return Real(math.Pow(x, y)), nil
	case x == 0:
		if y < 0 {
			return nil, &DomainError{X: a, Op: "**"}
		}
		return Real(0), nil
	case x < 0:
		// Negative bases only have real powers for integer exponents.
		if y != math.Trunc(y) {
			return nil, &DomainError{X: a, Op: "**"}
		}
		return powResult(math.Pow(x, y))
	}
	if l := y * math.Log(x); l > 710 || l < -746 {
		// The result is out of float64 range whatever the precision.
		return powResult(math.Pow(x, y))
	}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if _, ok := p.(big.ErrNaN); ok {
			r, err = nil, &DomainError{X: a, Op: "**"}
			return
		}
		panic(p)
	}()
	z := new(big.Float).SetPrec(powprec)
	bigfloat.Pow(z, new(big.Float).SetPrec(powprec).SetFloat64(x), new(big.Float).SetPrec(powprec).SetFloat64(y))
	f, _ := z.Float64()
	return powResult(f)
}

func powResult(f float64) (Value, error) {
	if math.IsInf(f, 0) {
		return nil, &OverflowError{Op: "**"}
	}
	return Real(f), nil
}

// compare applies a comparison operator.
func compare(op opcode, l, r Value) (bool, error) {
	switch op {
	case opEq, opIs:
		return Equal(l, r), nil
	case opNE:
		return !Equal(l, r), nil
	}
	switch a := l.(type) {
	case Int:
		switch b := r.(type) {
		case Int:
			return order(op, cmpInt(a, b)), nil
		case Real:
			if math.IsNaN(float64(b)) {
				return false, nil
			}
			return order(op, cmpIntReal(a, b)), nil
		}
	case Real:
		switch b := r.(type) {
		case Int:
			if math.IsNaN(float64(a)) {
				return false, nil
			}
			return order(op, -cmpIntReal(b, a)), nil
		case Real:
			if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
				return false, nil
			}
			return order(op, cmpReal(a, b)), nil
		}
	}
	return false, &TypeError{Op: op.String(), Left: kindOf(l), Right: kindOf(r)}
}

// cmpReal compares two reals, neither of which is NaN.
func cmpReal(a, b Real) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b Int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// order interprets a three-way comparison result for an ordering operator.
func order(op opcode, c int) bool {
	switch op {
	case opLT:
		return c < 0
	case opLE:
		return c <= 0
	case opGT:
		return c > 0
	case opGE:
		return c >= 0
	default:
		panic("conditional: invalid comparison operator " + op.String())
	}
}

// logic applies and or or.
func logic(op opcode, l, r Value) (Value, error) {
	a, lok := l.(Bool)
	b, rok := r.(Bool)
	if !lok || !rok {
		return nil, &TypeError{Op: op.String(), Left: kindOf(l), Right: kindOf(r)}
	}
	if op == opAnd {
		return a && b, nil
	}
	return a || b, nil
}

// TypeError is an error indicating an operator applied to values of kinds it
// does not support, e.g. "not 1" or "'a' + 'b'".
type TypeError struct {
	// Op is the operator.
	Op string
	// Left is the kind of the left operand. It is KindInvalid for unary
	// operators.
	Left Kind
	// Right is the kind of the right or only operand.
	Right Kind
}

func (err *TypeError) Error() string {
	if err.Left == KindInvalid {
		return "unsupported operand kind for " + err.Op + ": " + err.Right.String()
	}
	return "unsupported operand kinds for " + err.Op + ": " + err.Left.String() + " and " + err.Right.String()
}

// DomainError is an error returned when an operator is applied to an operand
// outside its domain, such as division by zero.
type DomainError struct {
	// X is the out-of-domain operand.
	X Value
	// Op is the operator.
	Op string
}

func (err *DomainError) Error() string {
	return literal(err.X) + " outside domain of " + err.Op
}

// OverflowError is an error returned when the result of an operator is too
// large to represent.
type OverflowError struct {
	// Op is the operator.
	Op string
}

func (err *OverflowError) Error() string {
	return "overflow in " + err.Op
}
