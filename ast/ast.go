// Package ast defines the Boolean expression tree produced by the parser
// and consumed by the DNF rewriter and decomposer.
package ast

import "fmt"

// Node is one of Literal, Not, And or Or.
type Node interface {
	isNode()
}

// Literal is an opaque search term, represented by its short symbol (v0, v1, …).
// The original text is recoverable through the parser's SymbolTable.
type Literal struct {
	Symbol string
}

// Not negates exactly one child.
type Not struct {
	Child Node
}

// And requires at least two children (enforced by NewAnd).
type And struct {
	Children []Node
}

// Or requires at least two children (enforced by NewOr).
type Or struct {
	Children []Node
}

func (*Literal) isNode() {}
func (*Not) isNode()     {}
func (*And) isNode()     {}
func (*Or) isNode()      {}

// NewLiteral builds a Literal node for the given symbol.
func NewLiteral(symbol string) *Literal {
	return &Literal{Symbol: symbol}
}

// NewNot builds a Not node wrapping child.
func NewNot(child Node) *Not {
	return &Not{Child: child}
}

// NewAnd builds an And node. It returns an error if fewer than two children
// are given, matching the grammar's requirement that a conjunction have at
// least two operands.
func NewAnd(children ...Node) (*And, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("ast: And requires at least 2 children, got %d", len(children))
	}
	return &And{Children: children}, nil
}

// NewOr builds an Or node. It returns an error if fewer than two children
// are given.
func NewOr(children ...Node) (*Or, error) {
	if len(children) < 2 {
		return nil, fmt.Errorf("ast: Or requires at least 2 children, got %d", len(children))
	}
	return &Or{Children: children}, nil
}

// Clone makes a deep copy of n. Named-expression references ($id) clone the
// referenced subtree by value so that a later @id redefinition never
// retroactively changes an earlier reference, per the snapshot semantics
// spelled out by the grammar's `named`/`reference` rules.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Literal:
		return &Literal{Symbol: v.Symbol}
	case *Not:
		return &Not{Child: Clone(v.Child)}
	case *And:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = Clone(c)
		}
		return &And{Children: children}
	case *Or:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = Clone(c)
		}
		return &Or{Children: children}
	default:
		panic(fmt.Sprintf("ast: Clone: unknown node type %T", n))
	}
}
