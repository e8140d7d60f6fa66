package conditional

import (
	"math"
	"strconv"
	"strings"
)

// node is a node in the abstract syntax tree of an expression.
type node struct {
	kind nodeKind

	// val is the value of a literal.
	val Value
	// name is the parameter name of a nodeName.
	name string
	// op is the operator of a unary node.
	op opcode

	// left is the operand of a unary node or the first operand of a fold.
	left *node
	// terms are the remaining operators and operands of a fold.
	terms []term
}

// term is one operator and its right operand in a fold.
type term struct {
	op opcode
	n  *node
}

type nodeKind int8

const (
	nodeNone nodeKind = iota

	nodeLit  // push val
	nodeName // push lookup(name)

	nodeSign // evaluate left, apply + or -
	nodeMul  // fold * ** / // % over left and terms
	nodeAdd  // fold + - over left and terms
	nodeCmp  // chain comparisons over left and terms
	nodeNot  // evaluate left, negate
	nodeAnd  // fold and over left and terms
	nodeOr   // fold or over left and terms
)

func (k nodeKind) String() string {
	switch k {
	case nodeNone:
		return "None"
	case nodeLit:
		return "Lit"
	case nodeName:
		return "Name"
	case nodeSign:
		return "Sign"
	case nodeMul:
		return "Mul"
	case nodeAdd:
		return "Add"
	case nodeCmp:
		return "Cmp"
	case nodeNot:
		return "Not"
	case nodeAnd:
		return "And"
	case nodeOr:
		return "Or"
	default:
		return "nodeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// fold reports whether the node kind applies a sequence of binary operators.
func (k nodeKind) fold() bool {
	return nodeMul <= k && k <= nodeCmp || k == nodeAnd || k == nodeOr
}

func (n *node) String() string {
	var b strings.Builder
	n.fmt(&b)
	return b.String()
}

// fmt writes the node with every term in parentheses, so that the result
// parses to the same tree.
func (n *node) fmt(b *strings.Builder) {
	b.WriteByte('(')
	defer b.WriteByte(')')
	switch n.kind {
	case nodeNone:
		// Invalid nodes use invalid characters.
		b.WriteByte('$')
		if n.left != nil {
			n.left.fmt(b)
		}
		b.WriteByte('$')
	case nodeLit:
		b.WriteString(literal(n.val))
	case nodeName:
		b.WriteString(n.name)
	case nodeSign:
		b.WriteString(n.op.String())
		n.left.fmt(b)
	case nodeNot:
		b.WriteString("not ")
		n.left.fmt(b)
	case nodeMul, nodeAdd, nodeCmp, nodeAnd, nodeOr:
		n.left.fmt(b)
		for _, t := range n.terms {
			b.WriteByte(' ')
			b.WriteString(t.op.String())
			b.WriteByte(' ')
			t.n.fmt(b)
		}
	default:
		panic("conditional: invalid node kind " + n.kind.String() + " after writing " + b.String())
	}
}

// literal formats a value so that it lexes back to the same value.
func literal(v Value) string {
	switch v := v.(type) {
	case Str:
		if strings.ContainsRune(string(v), '\'') {
			return `"` + string(v) + `"`
		}
		return "'" + string(v) + "'"
	case Real:
		if math.IsInf(float64(v), 1) {
			// Literals too large for a float64 parse as infinity.
			return "1e999"
		}
		s := v.String()
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case nil:
		return "<nil>"
	default:
		return v.String()
	}
}
