package conditional

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// Expr  = Or
// Or    = And { 'or' And }
// And   = Not { 'and' Not }
// Not   = 'not' Not | Cmp
// Cmp   = Add { ('<' | '<=' | '>' | '>=' | '==' | '!=' | 'is') Add }
// Add   = Mul { ('+' | '-') Mul }
// Mul   = Sign { ('*' | '**' | '/' | '//' | '%') Sign }
// Sign  = ('+' | '-') Sign | Atom
// Atom  = int | real | string | bool | name | '(' Expr ')'

// Expr is a parsed expression that can be evaluated with an Env. An Expr is
// never modified after parsing, so it is safe to evaluate concurrently.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the list of parameter names used in the expression.
	names []string
}

// Parse parses an expression so it can be evaluated. Unless a StopOn option
// says otherwise, the entire input must form one expression; anything left
// over is an error. Every error resulting from invalid input implements
// SyntaxError.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	scan := lex(src)
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	p.names = make(map[string]bool)
	n, err := parsetier(scan, &p, len(tiers)-1)
	if err != nil {
		return nil, err
	}
	tok, err := scan.next(p.wseof)
	if err != nil {
		return nil, err
	}
	if tok.kind != tokenEOF {
		return nil, itShouldNotHaveEndedThisWay(tok)
	}
	ex := Expr{
		n:     n,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sortstrs(ex.names)
	return &ex, nil
}

// ParseString is a shortcut to parse a string expression.
func ParseString(src string) (*Expr, error) {
	return Parse(strings.NewReader(src))
}

// sortstrs sorts a string slice without using package sort because that has
// reflection and allocation problems.
func sortstrs(names []string) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
}

// parsetier parses an expression at the given index into tiers. If there is
// no error, then parsetier pushes the last token it scans, including EOF.
func parsetier(scan *lexer, p *parsectx, level int) (*node, error) {
	if level < 0 {
		return parseatom(scan, p)
	}
	t := &tiers[level]
	if t.unary {
		tok, err := scan.next("")
		if err != nil {
			return nil, err
		}
		op, ok := t.match(tok)
		if !ok {
			scan.push(tok)
			return parsetier(scan, p, level-1)
		}
		// Unary operators are right-associative: - - x -> -(-(x))
		operand, err := parsetier(scan, p, level)
		if err != nil {
			return nil, err
		}
		return &node{kind: t.kind, op: op, left: operand}, nil
	}
	n, err := parsetier(scan, p, level-1)
	if err != nil {
		return nil, err
	}
	var fold *node
	for {
		// Stop characters only end the expression between operands.
		tok, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		op, ok := t.match(tok)
		if !ok {
			scan.push(tok)
			break
		}
		rhs, err := parsetier(scan, p, level-1)
		if err != nil {
			return nil, err
		}
		// Every operator in the tier joins one flat sequence rather than
		// nesting, so a < b < c is a single chain.
		if fold == nil {
			fold = &node{kind: t.kind, left: n}
		}
		fold.terms = append(fold.terms, term{op: op, n: rhs})
	}
	if fold == nil {
		return n, nil
	}
	return fold, nil
}

// parseatom parses a literal, a parameter name, or a parenthesized
// expression. Operators are never valid here.
func parseatom(scan *lexer, p *parsectx) (*node, error) {
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokenInt:
		x, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return nil, &NumberError{Col: tok.pos, Text: tok.text, Err: err}
		}
		return &node{kind: nodeLit, val: Int(x)}, nil
	case tokenReal:
		x, err := strconv.ParseFloat(tok.text, 64)
		// Reals too large to represent become infinities.
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, &NumberError{Col: tok.pos, Text: tok.text, Err: err}
		}
		return &node{kind: nodeLit, val: Real(x)}, nil
	case tokenStr:
		return &node{kind: nodeLit, val: Str(tok.text)}, nil
	case tokenBool:
		return &node{kind: nodeLit, val: Bool(strings.EqualFold(tok.text, "true"))}, nil
	case tokenIdent:
		p.names[tok.text] = true
		return &node{kind: nodeName, name: tok.text}, nil
	case tokenOpen:
		n, err := parsetier(scan, p, len(tiers)-1)
		if err != nil {
			return nil, err
		}
		end, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		switch end.kind {
		case tokenClose:
			return n, nil
		case tokenEOF:
			return nil, &BracketError{Col: end.pos, Left: "(", Right: ""}
		default:
			return nil, &TrailingError{Col: end.pos, Text: end.text}
		}
	case tokenClose:
		return nil, &EmptyExpressionError{Col: tok.pos, End: tok.text}
	case tokenEOF:
		return nil, &EmptyExpressionError{Col: tok.pos, End: ""}
	case tokenOp:
		return nil, &OperatorError{Col: tok.pos, Operator: tok.text}
	default:
		panic("conditional: unknown token: " + tok.String())
	}
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token following a complete expression.
func itShouldNotHaveEndedThisWay(tok lexToken) error {
	switch tok.kind {
	case tokenClose:
		return &BracketError{Col: tok.pos, Left: "", Right: tok.text}
	case tokenEOF:
		panic("conditional: it really should have ended this way: " + tok.String())
	default:
		return &TrailingError{Col: tok.pos, Text: tok.text}
	}
}

// Vars returns the parameter names used when evaluating the expression.
func (e *Expr) Vars() []string {
	return append(([]string)(nil), e.names...)
}

// String creates a string representation of the parsed expression with each
// term parenthesized. The result parses to the same expression.
func (e *Expr) String() string {
	return e.n.String()
}

// tier is one precedence level of the grammar.
type tier struct {
	// kind is the node kind built from operators in this tier.
	kind nodeKind
	// unary indicates a right-associative prefix operator tier. Other tiers
	// are left-associative binary operators.
	unary bool
	// ops maps operator token text to operators.
	ops map[string]opcode
}

// match gets the operator for a token if it belongs to the tier.
func (t *tier) match(tok lexToken) (opcode, bool) {
	if tok.kind != tokenOp {
		return opNone, false
	}
	op, ok := t.ops[tok.text]
	return op, ok
}

// tiers lists the precedence levels from most to least binding.
var tiers = [...]tier{
	{kind: nodeSign, unary: true, ops: map[string]opcode{
		"+": opPos,
		"-": opNeg,
	}},
	{kind: nodeMul, ops: map[string]opcode{
		"*":  opMul,
		"**": opPow,
		"/":  opDiv,
		"//": opFloorDiv,
		"%":  opMod,
	}},
	{kind: nodeAdd, ops: map[string]opcode{
		"+": opAdd,
		"-": opSub,
	}},
	{kind: nodeCmp, ops: map[string]opcode{
		"<":  opLT,
		"<=": opLE,
		">":  opGT,
		">=": opGE,
		"==": opEq,
		"!=": opNE,
		"is": opIs,
	}},
	{kind: nodeNot, unary: true, ops: map[string]opcode{
		"not": opNot,
	}},
	{kind: nodeAnd, ops: map[string]opcode{
		"and": opAnd,
	}},
	{kind: nodeOr, ops: map[string]opcode{
		"or": opOr,
	}},
}
