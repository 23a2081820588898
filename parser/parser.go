// Package parser implements the bracket-syntax grammar of §4.1: a
// hand-written recursive-descent tokenizer/parser, in the idiom of the
// teacher's own non-vendored parser/sqldef.go rather than its vendored SQL
// tokenizer, which has no bearing on this grammar.
package parser

import (
	"fmt"
	"iter"
	"unicode"

	"github.com/qcount/quantityer/ast"
	"github.com/qcount/quantityer/qerr"
)

// RedefinitionPolicy controls what happens when an @id definition shadows
// an existing one.
type RedefinitionPolicy int

const (
	// RedefinitionWarn logs a warning and lets the redefinition proceed.
	// This is the spec's default (see SPEC_FULL.md §9, Open Questions).
	RedefinitionWarn RedefinitionPolicy = iota
	// RedefinitionError makes a redefinition a fatal ParseError.
	RedefinitionError
)

// Warner receives non-fatal parser diagnostics (currently only
// redefinition warnings). A nil Warner silently allows redefinition.
type Warner interface {
	Warn(msg string, line, col int)
}

// Query is one parsed top-level expression together with its derived name.
type Query struct {
	Name string
	Expr ast.Node
}

// Parser holds state that must persist across every query parsed from the
// same logical stream: the symbol table and the named-expression
// environment. Create one Parser per input stream (or one shared Parser
// across several streams, if literal/name sharing across them is wanted).
type Parser struct {
	Symbols    *ast.SymbolTable
	Redefine   RedefinitionPolicy
	Warn       Warner
	names      map[string]ast.Node
}

// New returns a Parser with a fresh symbol table and named-expression
// environment.
func New(redefine RedefinitionPolicy, warn Warner) *Parser {
	return &Parser{
		Symbols:  ast.NewSymbolTable(),
		Redefine: redefine,
		Warn:     warn,
		names:    make(map[string]ast.Node),
	}
}

// Parse returns a lazy sequence of (query_name, expression_tree) for every
// top-level expression found in text. query_name is "{namespace}.{i}"
// where i is a 1-based counter local to this call. Whitespace separates
// top-level queries. On a grammar violation the sequence yields one
// (zero-value, error) pair and stops.
func (p *Parser) Parse(text string, namespace string) iter.Seq2[Query, error] {
	return func(yield func(Query, error) bool) {
		s := newScanner(text)
		i := 0
		for {
			s.skipSpace()
			if s.eof() {
				return
			}
			i++
			expr, err := p.parseExpression(s)
			if err != nil {
				yield(Query{}, err)
				return
			}
			q := Query{Name: fmt.Sprintf("%s.%d", namespace, i), Expr: expr}
			if !yield(q, nil) {
				return
			}
		}
	}
}

func (p *Parser) parseExpression(s *scanner) (ast.Node, error) {
	s.skipSpace()
	if s.eof() {
		line, col := s.position()
		return nil, &qerr.ParseError{Line: line, Col: col, Rule: "expression", Msg: "unexpected end of input"}
	}
	switch s.current() {
	case conjunctionInit:
		return p.parseGroup(s, true)
	case disjunctionInit:
		return p.parseGroup(s, false)
	case negationOp:
		return p.parseNegation(s)
	case referentInit:
		return p.parseNamed(s)
	case expressionRefInit:
		return p.parseReference(s)
	default:
		return p.parseLiteral(s)
	}
}

// parseGroup parses a conjunction ("[" …) or disjunction ("{" …), both of
// which require at least two expression operands before the closing
// bracket, per the grammar.
func (p *Parser) parseGroup(s *scanner, conjunction bool) (ast.Node, error) {
	close := rune(conjunctionEnd)
	rule := "conjunction"
	if !conjunction {
		close = disjunctionEnd
		rule = "disjunction"
	}
	s.advance() // consume opening bracket

	first, err := p.parseExpression(s)
	if err != nil {
		return nil, err
	}
	second, err := p.parseExpression(s)
	if err != nil {
		return nil, err
	}
	children := []ast.Node{first, second}

	for {
		s.skipSpace()
		if s.eof() {
			line, col := s.position()
			return nil, &qerr.ParseError{Line: line, Col: col, Rule: rule, Msg: fmt.Sprintf("'%c' expected", close)}
		}
		if s.current() == close {
			break
		}
		child, err := p.parseExpression(s)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	s.advance() // consume closing bracket

	if conjunction {
		n, _ := ast.NewAnd(children...)
		return n, nil
	}
	n, _ := ast.NewOr(children...)
	return n, nil
}

func (p *Parser) parseNegation(s *scanner) (ast.Node, error) {
	s.advance() // consume '~'
	child, err := p.parseExpression(s)
	if err != nil {
		return nil, err
	}
	return ast.NewNot(child), nil
}

func (p *Parser) parseNamed(s *scanner) (ast.Node, error) {
	s.advance() // consume '@'
	line, col := s.position()
	name, err := p.matchID(s)
	if err != nil {
		return nil, err
	}
	if _, exists := p.names[name]; exists {
		if p.Redefine == RedefinitionError {
			return nil, &qerr.ParseError{Line: line, Col: col, Rule: "named", Msg: fmt.Sprintf("identifier %q has already been defined", name)}
		}
		if p.Warn != nil {
			p.Warn.Warn(fmt.Sprintf("identifier %q has already been defined", name), line, col)
		}
	}
	sub, err := p.parseExpression(s)
	if err != nil {
		return nil, err
	}
	p.names[name] = sub
	// @id expr defines id := expr *and* evaluates to expr.
	return sub, nil
}

func (p *Parser) parseReference(s *scanner) (ast.Node, error) {
	s.advance() // consume '$'
	line, col := s.position()
	name, err := p.matchID(s)
	if err != nil {
		return nil, err
	}
	sub, ok := p.names[name]
	if !ok {
		return nil, &qerr.ParseError{Line: line, Col: col, Rule: "reference", Msg: fmt.Sprintf("identifier %q has not been defined", name)}
	}
	// $id substitutes by value: clone so a later redefinition of id never
	// retroactively changes this reference.
	return ast.Clone(sub), nil
}

func (p *Parser) matchID(s *scanner) (string, error) {
	line, col := s.position()
	if s.eof() || !isIDStart(s.current()) {
		return "", &qerr.ParseError{Line: line, Col: col, Rule: "id", Msg: "identifier expected"}
	}
	start := s.pos
	s.advance()
	for !s.eof() && isIDPart(s.current()) {
		s.advance()
	}
	return string(s.runes[start:s.pos]), nil
}

func (p *Parser) parseLiteral(s *scanner) (ast.Node, error) {
	line, col := s.position()
	if s.current() == quote {
		text, err := p.matchQuotedLiteral(s)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteral(p.Symbols.Intern(text)), nil
	}
	if isStructural(s.current()) {
		return nil, &qerr.ParseError{Line: line, Col: col, Rule: "literal", Msg: "literal expected"}
	}
	start := s.pos
	for !s.eof() && !isStructural(s.current()) && !unicode.IsSpace(s.current()) {
		s.advance()
	}
	text := string(s.runes[start:s.pos])
	return ast.NewLiteral(p.Symbols.Intern(text)), nil
}

func (p *Parser) matchQuotedLiteral(s *scanner) (string, error) {
	s.advance() // consume opening quote
	start := s.pos
	for !s.eof() && s.current() != quote {
		s.advance()
	}
	if s.eof() {
		line, col := s.position()
		return "", &qerr.ParseError{Line: line, Col: col, Rule: "quoted literal", Msg: "unterminated quoted literal, '\"' expected"}
	}
	text := string(s.runes[start:s.pos])
	s.advance() // consume closing quote
	return text, nil
}
