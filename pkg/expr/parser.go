package expr

import (
	"fmt"
	"slices"
	"sort"
)

// SyntaxError reports an expression that cannot be parsed.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

// UndefinedVariableError reports a reference to a name that was not bound.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

type node interface {
	eval(vars map[string]bool) bool
}

type identNode struct{ name string }
type literalNode struct{ value bool }
type notNode struct{ operand node }
type andNode struct{ left, right node }
type orNode struct{ left, right node }

func (n identNode) eval(vars map[string]bool) bool { return vars[n.name] }
func (n literalNode) eval(map[string]bool) bool    { return n.value }
func (n notNode) eval(vars map[string]bool) bool   { return !n.operand.eval(vars) }
func (n andNode) eval(vars map[string]bool) bool   { return n.left.eval(vars) && n.right.eval(vars) }
func (n orNode) eval(vars map[string]bool) bool    { return n.left.eval(vars) || n.right.eval(vars) }

// Expr is a compiled expression.
type Expr struct {
	source string
	root   node
	vars   []string
}

// String returns the source text.
func (e *Expr) String() string {
	return e.source
}

// Variables returns the distinct identifiers referenced, sorted.
func (e *Expr) Variables() []string {
	return slices.Clone(e.vars)
}

// Eval evaluates the expression against vars. Every referenced name must be
// bound, even when short-circuiting would skip it.
func (e *Expr) Eval(vars map[string]bool) (bool, error) {
	for _, name := range e.vars {
		if _, ok := vars[name]; !ok {
			return false, &UndefinedVariableError{Name: name}
		}
	}
	return e.root.eval(vars), nil
}

// Compile parses source into an Expr.
func Compile(source string) (*Expr, error) {
	p := &parser{lex: newLexer(source), seen: map[string]struct{}{}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.typ == tokenEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.typ != tokenEOF {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: fmt.Sprintf("unexpected %s %q", p.cur.typ, p.cur.value)}
	}

	vars := make([]string, 0, len(p.seen))
	for name := range p.seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return &Expr{source: source, root: root, vars: vars}, nil
}

// Evaluate compiles and evaluates expression in one call.
func Evaluate(expression string, vars map[string]bool) (bool, error) {
	e, err := Compile(expression)
	if err != nil {
		return false, err
	}
	return e.Eval(vars)
}

type parser struct {
	lex  *lexer
	cur  token
	seen map[string]struct{}
}

func (p *parser) advance() error {
	tok, err := p.lex.nextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.typ == tokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.cur.typ == tokenNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (node, error) {
	tok := p.cur
	switch tok.typ {
	case tokenIdent:
		p.seen[tok.value] = struct{}{}
		return identNode{name: tok.value}, p.advance()
	case tokenTrue:
		return literalNode{value: true}, p.advance()
	case tokenFalse:
		return literalNode{value: false}, p.advance()
	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.typ != tokenRParen {
			return nil, &SyntaxError{Pos: p.cur.pos, Msg: fmt.Sprintf("expected ')', got %s", p.cur.typ)}
		}
		return inner, p.advance()
	}
	return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected operand, got %s", tok.typ)}
}
