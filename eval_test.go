package conditional_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/jbohren-forks/conditional"
)

// sample is the parameter set used by the launch file conditionals.
var sample = conditional.Params{
	"FRP":       conditional.Int(100),
	"satellite": conditional.Str("A"),
}

// same reports whether two values have the same kind and value.
func same(a, b conditional.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && conditional.Equal(a, b)
}

func TestEval(t *testing.T) {
	type (
		B = conditional.Bool
		I = conditional.Int
		R = conditional.Real
		S = conditional.Str
	)
	cases := []struct {
		name string
		src  string
		env  conditional.Params
		r    conditional.Value
	}{
		// conditionals from launch files
		{"not-true", "not True", sample, B(false)},
		{"not-false", "not False", sample, B(true)},
		{"div-gt", "199 / 2 > FRP", sample, B(false)},
		{"prec-gt", "5 + 45 * 2 > FRP", sample, B(false)},
		{"sign-lt", "-5+5 < FRP", sample, B(true)},
		{"is-n", "satellite is 'N'", sample, B(false)},
		{"is-a", "satellite is 'A'", sample, B(true)},
		{"sub-eq", "FRP - 100 == 0", sample, B(true)},
		{"and", "FRP == 1 and satellite == 'T'", sample, B(false)},
		{"and-not", "FRP != 1 and not satellite == 'T'", sample, B(true)},
		{"nested", "(FRP == 1) and ((satellite == 'T') or (satellite is 'A'))", sample, B(false)},

		// literals and names
		{"int", "42", nil, I(42)},
		{"real", "2.5", nil, R(2.5)},
		{"real-exp", "1e3", nil, R(1000)},
		{"str", "'FRP'", sample, S("FRP")},
		{"dquote", `"A"`, nil, S("A")},
		{"bool", "TRUE", nil, B(true)},
		{"name", "FRP", sample, I(100)},
		{"name-real", "x", conditional.Params{"x": R(2.5)}, R(2.5)},
		{"undefined", "nope", sample, S("")},

		// sign
		{"plus", "+3", nil, I(3)},
		{"neg", "-FRP", sample, I(-100)},
		{"negneg", "--3", nil, I(3)},
		{"neg-real", "-2.5", nil, R(-2.5)},
		{"neg-binds-tightest", "-2 ** 2", nil, I(4)},

		// multiplicative
		{"mul", "4*5*6", nil, I(120)},
		{"div", "4 / 2", nil, R(2)},
		{"div-real", "199 / 2", nil, R(99.5)},
		{"floordiv", "7 // 2", nil, I(3)},
		{"floordiv-neg", "-7 // 2", nil, I(-4)},
		{"floordiv-real", "7.5 // 2", nil, R(3)},
		{"mod", "7 % 3", nil, I(1)},
		{"mod-neg-lhs", "-7 % 3", nil, I(2)},
		{"mod-neg-rhs", "7 % -3", nil, I(-2)},
		{"mod-real", "-7.5 % 2", nil, R(0.5)},
		{"pow", "2 ** 10", nil, I(1024)},
		{"pow-neg-base", "(-2) ** 63", nil, I(math.MinInt64)},
		{"pow-fold", "2 ** 3 ** 2", nil, I(64)},
		{"mul-pow-fold", "2 * 3 ** 2", nil, I(36)},
		{"mixed", "2 * 1.5", nil, R(3)},

		// additive
		{"add", "4+5+6", nil, I(15)},
		{"sub", "10-2-3", nil, I(5)},
		{"add-real", "1 + 2.5", nil, R(3.5)},
		{"add-mul", "1 + 2 * 3", nil, I(7)},

		// comparison
		{"lt", "1 < 2", nil, B(true)},
		{"le", "2 <= 2", nil, B(true)},
		{"gt", "1 > 2", nil, B(false)},
		{"ge", "2.5 >= 2", nil, B(true)},
		{"chain", "1 < 2 < 3", nil, B(true)},
		{"chain-desc", "3 > 2 > 1", nil, B(true)},
		{"chain-false", "1 < 3 < 2", nil, B(false)},
		{"chain-eq", "1 < 2 == 2", nil, B(true)},
		{"chain-stops", "1 > 2 < 'x'", nil, B(false)},
		{"eq-int-real", "1 == 1.0", nil, B(true)},
		{"eq-int-str", "1 == '1'", nil, B(false)},
		{"ne-int-str", "1 != '1'", nil, B(true)},
		{"eq-bool-int", "true == 1", nil, B(false)},
		{"eq-str", "'a' == \"a\"", nil, B(true)},
		{"is-str", "'x' is 'x'", nil, B(true)},
		{"is-int", "FRP is 100", sample, B(true)},
		{"eq-undefined", "nope == ''", sample, B(true)},

		// boolean
		{"and-true", "TRUE and true", nil, B(true)},
		{"or-false", "false or False", nil, B(false)},
		{"or-and", "true or false and false", nil, B(true)},
		{"and-fold", "true and true and false", nil, B(false)},
		{"or-fold", "false or false or true", nil, B(true)},
		{"notnot", "not not true", nil, B(true)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := conditional.ParseString(c.src)
			if err != nil {
				t.Fatal(c.src, "failed to parse:", err)
			}
			r, err := a.Eval(c.env)
			if err != nil {
				t.Fatal("evaluation error:", err)
			}
			if !same(r, c.r) {
				t.Errorf("wrong result for %q: want %v (%v), got %v (%v)", c.src, c.r, c.r.Kind(), r, r.Kind())
			}
		})
	}
}

func TestEvalPow(t *testing.T) {
	cases := []struct {
		src string
		r   float64
	}{
		{"2 ** 0.5", math.Sqrt2},
		{"2.0 ** 3", 8},
		{"2 ** -1", 0.5},
		{"4 ** 0.5", 2},
		{"10 ** -2", 0.01},
		{"(-2) ** 3.0", -8},
		{"(-2) ** -2", 0.25},
		{"0 ** 2.5", 0},
		{"2.5 ** 0", 1},
		{"1e308 ** 0.5", 1e154},
	}
	for _, c := range cases {
		r, err := conditional.EvalString(c.src, nil)
		if err != nil {
			t.Errorf("%q: evaluation error: %v", c.src, err)
			continue
		}
		f, ok := r.(conditional.Real)
		if !ok {
			t.Errorf("%q: want real, got %v (%v)", c.src, r, r.Kind())
			continue
		}
		if d := math.Abs(float64(f) - c.r); d > 1e-12*math.Max(1, math.Abs(c.r)) {
			t.Errorf("%q: want %g, got %g", c.src, c.r, f)
		}
	}
}

func TestEvalTypeError(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		op    string
		left  conditional.Kind
		right conditional.Kind
	}{
		{"not-int", "not 1", "not", conditional.KindInvalid, conditional.KindInt},
		{"not-str", "not 'a'", "not", conditional.KindInvalid, conditional.KindStr},
		{"not-undefined", "not nope", "not", conditional.KindInvalid, conditional.KindStr},
		{"neg-str", "-'a'", "-", conditional.KindInvalid, conditional.KindStr},
		{"plus-bool", "+true", "+", conditional.KindInvalid, conditional.KindBool},
		{"concat", "'a' + 'b'", "+", conditional.KindStr, conditional.KindStr},
		{"add-str", "1 + 'b'", "+", conditional.KindInt, conditional.KindStr},
		{"add-undefined", "nope + 1", "+", conditional.KindStr, conditional.KindInt},
		{"mul-bool", "1 * true", "*", conditional.KindInt, conditional.KindBool},
		{"pow-str", "'a' ** 2", "**", conditional.KindStr, conditional.KindInt},
		{"lt-str", "'a' < 'b'", "<", conditional.KindStr, conditional.KindStr},
		{"lt-mixed", "1 < 'b'", "<", conditional.KindInt, conditional.KindStr},
		{"ge-bool", "true >= false", ">=", conditional.KindBool, conditional.KindBool},
		{"chain-late", "2 > 1 > 'x'", ">", conditional.KindInt, conditional.KindStr},
		{"and-int", "1 and true", "and", conditional.KindInt, conditional.KindBool},
		{"or-str", "true or 'x'", "or", conditional.KindBool, conditional.KindStr},
		{"and-decided", "false and 1", "and", conditional.KindBool, conditional.KindInt},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := conditional.EvalString(c.src, sample)
			if err == nil {
				t.Fatalf("%q gave %v with no error", c.src, r)
			}
			if r != nil {
				t.Errorf("%q gave a result %v with error %v", c.src, r, err)
			}
			var te *conditional.TypeError
			if !errors.As(err, &te) {
				t.Fatalf("%q gave %#v, not *TypeError", c.src, err)
			}
			if te.Op != c.op || te.Left != c.left || te.Right != c.right {
				t.Errorf("%q: want %s %v %v, got %s %v %v", c.src, c.op, c.left, c.right, te.Op, te.Left, te.Right)
			}
			var se conditional.SyntaxError
			if errors.As(err, &se) {
				t.Errorf("%q: type error %v is also a syntax error", c.src, err)
			}
		})
	}
}

func TestEvalOpError(t *testing.T) {
	cases := []struct {
		name     string
		src      string
		overflow bool
	}{
		{"div-zero", "1 / 0", false},
		{"div-zero-real", "1.0 / 0.0", false},
		{"floordiv-zero", "1 // 0", false},
		{"mod-zero", "1 % 0", false},
		{"mod-zero-real", "1.5 % 0", false},
		{"pow-zero-neg", "0 ** -1", false},
		{"pow-neg-frac", "(-8) ** 0.5", false},
		{"add-overflow", "9223372036854775807 + 1", true},
		{"sub-overflow", "-9223372036854775807 - 2", true},
		{"mul-overflow", "3037000500 * 3037000500", true},
		{"pow-overflow", "2 ** 63", true},
		{"pow-huge", "2 ** 1000", true},
		{"pow-real-overflow", "10.0 ** 400", true},
		{"neg-overflow", "-(-9223372036854775807 - 1)", true},
		{"floordiv-overflow", "(-9223372036854775807 - 1) // -1", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := conditional.EvalString(c.src, nil)
			if err == nil {
				t.Fatalf("%q gave %v with no error", c.src, r)
			}
			if c.overflow {
				if !errors.As(err, new(*conditional.OverflowError)) {
					t.Errorf("%q gave %#v, not *OverflowError", c.src, err)
				}
				return
			}
			if !errors.As(err, new(*conditional.DomainError)) {
				t.Errorf("%q gave %#v, not *DomainError", c.src, err)
			}
		})
	}
}

func TestEvalUndefNames(t *testing.T) {
	names := []string{"x", "FRP_", "_", "satellite2", "True_"}
	envs := map[string]conditional.Env{
		"nil":    nil,
		"empty":  conditional.Params{},
		"sample": sample,
		"func": conditional.EnvFunc(func(string) (conditional.Value, bool) {
			return nil, false
		}),
	}
	for ename, env := range envs {
		for _, name := range names {
			r, err := conditional.EvalString(name, env)
			if err != nil {
				t.Errorf("%s env: evaluating %q gave error %v", ename, name, err)
				continue
			}
			if !same(r, conditional.Str("")) {
				t.Errorf("%s env: evaluating %q gave %v (%v), not empty string", ename, name, r, r.Kind())
			}
		}
	}
}

// recorder is an Env that records the names it is asked for.
type recorder struct {
	mu     sync.Mutex
	params conditional.Params
	seen   map[string]int
}

func (r *recorder) Lookup(name string) (conditional.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]int)
	}
	r.seen[name]++
	return r.params.Lookup(name)
}

func TestEvalNoShortCircuit(t *testing.T) {
	cases := []struct {
		src   string
		r     bool
		names []string
	}{
		{"f and u == ''", false, []string{"f", "u"}},
		{"t or u == ''", true, []string{"t", "u"}},
		{"f and t and u == ''", false, []string{"f", "t", "u"}},
		{"t or (f and u == '')", true, []string{"t", "f", "u"}},
		{"not (f and u == '')", true, []string{"f", "u"}},
		{"u == 'x' and t", false, []string{"u", "t"}},
	}
	for _, c := range cases {
		env := &recorder{params: conditional.Params{
			"t": conditional.Bool(true),
			"f": conditional.Bool(false),
		}}
		r, err := conditional.EvalString(c.src, env)
		if err != nil {
			t.Errorf("%q: evaluation error: %v", c.src, err)
			continue
		}
		if !same(r, conditional.Bool(c.r)) {
			t.Errorf("%q: want %v, got %v", c.src, c.r, r)
		}
		for _, name := range c.names {
			if env.seen[name] != 1 {
				t.Errorf("%q: %s looked up %d times, want 1", c.src, name, env.seen[name])
			}
		}
	}
}

func TestChainedComparisons(t *testing.T) {
	vals := []conditional.Value{
		conditional.Int(-1),
		conditional.Int(0),
		conditional.Int(1),
		conditional.Real(0.5),
		conditional.Real(1),
	}
	ops := []string{"<", "<=", ">", ">=", "==", "!=", "is"}
	for _, a := range vals {
		for _, b := range vals {
			for _, c := range vals {
				env := conditional.Params{"a": a, "b": b, "c": c}
				for _, op1 := range ops {
					for _, op2 := range ops {
						chain := fmt.Sprintf("a %s b %s c", op1, op2)
						r, err := conditional.EvalString(chain, env)
						if err != nil {
							t.Fatalf("%q with %v: %v", chain, env, err)
						}
						x, err := conditional.EvalString("a "+op1+" b", env)
						if err != nil {
							t.Fatal(err)
						}
						y, err := conditional.EvalString("b "+op2+" c", env)
						if err != nil {
							t.Fatal(err)
						}
						want := x.(conditional.Bool) && y.(conditional.Bool)
						if !same(r, want) {
							t.Errorf("%q with a=%v b=%v c=%v: chain gave %v, pairs gave %v", chain, a, b, c, r, want)
						}
					}
				}
			}
		}
	}
}

func TestCompareIntReal(t *testing.T) {
	// 2**53+1 has no float64 representation, so it must not compare as 2**53.
	cases := []struct {
		src string
		r   bool
	}{
		{"9007199254740993 == 9007199254740992.0", false},
		{"9007199254740993 != 9007199254740992.0", true},
		{"9007199254740993 > 9007199254740992.0", true},
		{"9007199254740993 >= 9007199254740992.0", true},
		{"9007199254740993 < 9007199254740992.0", false},
		{"9007199254740992.0 < 9007199254740993", true},
		{"9007199254740992.0 == 9007199254740993", false},
		{"9007199254740992 == 9007199254740992.0", true},
		{"9007199254740992 is 9007199254740992.0", true},
		{"9223372036854775807 < 9223372036854775808.0", true},
		{"9223372036854775807 == 9223372036854775808.0", false},
		{"1 < 1.5 < 2", true},
		{"x < 1", false},
		{"x > 1", false},
		{"1 >= x", false},
		{"x == 1", false},
		{"x != 1", true},
		{"1 < y", true},
		{"y > 9223372036854775807", true},
		{"-9223372036854775807 > -y", true},
	}
	env := conditional.Params{
		"x": conditional.Real(math.NaN()),
		"y": conditional.Real(math.Inf(1)),
	}
	for _, c := range cases {
		r, err := conditional.EvalString(c.src, env)
		if err != nil {
			t.Errorf("%q: %v", c.src, err)
			continue
		}
		if !same(r, conditional.Bool(c.r)) {
			t.Errorf("%q gave %v, want %v", c.src, r, c.r)
		}
	}
	if conditional.Equal(conditional.Int(9007199254740993), conditional.Real(9007199254740992)) {
		t.Error("Equal rounded an Int to a Real")
	}
	if !conditional.Equal(conditional.Real(-3), conditional.Int(-3)) {
		t.Error("Equal(-3.0, -3) is false")
	}
}

func TestEvalDeterministic(t *testing.T) {
	srcs := []string{
		"FRP == 1 and satellite == 'T'",
		"199 / 2 > FRP",
		"2 ** 0.5",
		"not 1",
		"1 / 0",
		"nope",
	}
	for _, src := range srcs {
		a, err := conditional.ParseString(src)
		if err != nil {
			t.Fatalf("%q failed to parse: %v", src, err)
		}
		r1, err1 := a.Eval(sample)
		r2, err2 := a.Eval(sample)
		r3, err3 := conditional.EvalString(src, sample)
		if !same(r1, r2) || !same(r1, r3) {
			t.Errorf("%q: results differ: %v, %v, %v", src, r1, r2, r3)
		}
		if fmt.Sprintf("%T", err1) != fmt.Sprintf("%T", err2) || fmt.Sprintf("%T", err1) != fmt.Sprintf("%T", err3) {
			t.Errorf("%q: errors differ: %v, %v, %v", src, err1, err2, err3)
		}
	}
}

func TestEvalConcurrent(t *testing.T) {
	a, err := conditional.ParseString("(FRP == 1) and ((satellite == 'T') or (satellite is 'A'))")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r, err := a.Eval(sample)
				if err != nil || !same(r, conditional.Bool(false)) {
					t.Errorf("got %v, %v", r, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestValueOf(t *testing.T) {
	cases := []struct {
		x any
		r conditional.Value
	}{
		{true, conditional.Bool(true)},
		{7, conditional.Int(7)},
		{int8(-3), conditional.Int(-3)},
		{uint16(9), conditional.Int(9)},
		{uint64(1 << 40), conditional.Int(1 << 40)},
		{float32(0.5), conditional.Real(0.5)},
		{2.25, conditional.Real(2.25)},
		{"A", conditional.Str("A")},
		{conditional.Str("B"), conditional.Str("B")},
	}
	for _, c := range cases {
		r, err := conditional.ValueOf(c.x)
		if err != nil {
			t.Errorf("%#v: %v", c.x, err)
			continue
		}
		if !same(r, c.r) {
			t.Errorf("%#v: want %v (%v), got %v (%v)", c.x, c.r, c.r.Kind(), r, r.Kind())
		}
	}
	for _, x := range []any{nil, []int{1}, map[string]any{}, uint64(math.MaxUint64)} {
		if r, err := conditional.ValueOf(x); err == nil {
			t.Errorf("%#v: want error, got %v", x, r)
		}
	}
}
