package conditional

import (
	"io"
	"strings"
)

// Env is a read-only source of parameter values. Evaluation only calls
// Lookup; it never modifies an Env.
type Env interface {
	// Lookup returns the value of a parameter and whether it is defined.
	Lookup(name string) (Value, bool)
}

// Params is an Env holding parameters in a map.
type Params map[string]Value

// Lookup implements Env.
func (p Params) Lookup(name string) (Value, bool) {
	v, ok := p[name]
	return v, ok
}

// EnvFunc adapts a function to an Env.
type EnvFunc func(name string) (Value, bool)

// Lookup implements Env.
func (f EnvFunc) Lookup(name string) (Value, bool) {
	return f(name)
}

// Eval evaluates the expression with parameters from env, which may be nil.
// A parameter that env does not define evaluates to the empty string. If an
// operator is applied to values it does not support, the error is a
// *TypeError; other failures are *DomainError or *OverflowError.
func (e *Expr) Eval(env Env) (Value, error) {
	return e.n.eval(env)
}

// eval reduces the node to a value. All operands of a node are reduced before
// any of its operators apply.
func (n *node) eval(env Env) (Value, error) {
	switch n.kind {
	case nodeLit:
		return n.val, nil
	case nodeName:
		return lookup(env, n.name), nil
	case nodeSign:
		v, err := n.left.eval(env)
		if err != nil {
			return nil, err
		}
		return sign(n.op, v)
	case nodeNot:
		v, err := n.left.eval(env)
		if err != nil {
			return nil, err
		}
		b, ok := v.(Bool)
		if !ok {
			return nil, &TypeError{Op: n.op.String(), Right: kindOf(v)}
		}
		return !b, nil
	case nodeMul, nodeAdd:
		vals, err := n.operands(env)
		if err != nil {
			return nil, err
		}
		r := vals[0]
		for i, t := range n.terms {
			if r, err = arith(t.op, r, vals[i+1]); err != nil {
				return nil, err
			}
		}
		return r, nil
	case nodeCmp:
		vals, err := n.operands(env)
		if err != nil {
			return nil, err
		}
		// The first false comparison decides the chain. Later comparisons
		// are not applied, so they cannot fail.
		for i, t := range n.terms {
			ok, err := compare(t.op, vals[i], vals[i+1])
			if err != nil {
				return nil, err
			}
			if !ok {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	case nodeAnd, nodeOr:
		// No short circuit: every operand is evaluated even after the result
		// is decided.
		vals, err := n.operands(env)
		if err != nil {
			return nil, err
		}
		r := vals[0]
		for i, t := range n.terms {
			if r, err = logic(t.op, r, vals[i+1]); err != nil {
				return nil, err
			}
		}
		return r, nil
	default:
		panic("conditional: invalid AST node " + n.kind.String())
	}
}

// operands evaluates every operand of a fold node in order.
func (n *node) operands(env Env) ([]Value, error) {
	vals := make([]Value, 0, len(n.terms)+1)
	v, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	vals = append(vals, v)
	for _, t := range n.terms {
		v, err := t.n.eval(env)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// lookup resolves a parameter. Undefined parameters are the empty string.
func lookup(env Env, name string) Value {
	if env == nil {
		return Str("")
	}
	v, ok := env.Lookup(name)
	if !ok || v == nil {
		return Str("")
	}
	return v
}

// Eval is a shortcut to parse an expression and evaluate it with env.
func Eval(src io.RuneScanner, env Env) (Value, error) {
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return a.Eval(env)
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, env Env) (Value, error) {
	return Eval(strings.NewReader(src), env)
}
