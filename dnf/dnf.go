package dnf

import (
	"github.com/qcount/quantityer/ast"
)

// Options controls the rewriter's optional behavior.
type Options struct {
	// DeepSimplify enables an extra consensus-based
	// minimization pass that can shrink the disjunct count below what
	// absorption/idempotence alone achieve. Off by default — keep off
	// for interactive use, per spec.md §4.2.
	DeepSimplify bool
}

// unsatSymbol marks the placeholder literal termsFromSlice emits for an
// unsatisfiable expression (zero DNF terms), so Terms can recognize and
// unwrap it back to an empty term list instead of reading it as a real
// single-literal disjunct.
const unsatSymbol = "\x00false"

// RewriteToTerms is the term-level equivalent of ToDNF: it rewrites expr
// into DNF and returns its disjuncts directly, without round-tripping
// through an ast.Node reconstruction. Callers that only need the term list
// (the decomposer, the engine) should prefer this over Terms(ToDNF(...)).
func RewriteToTerms(expr ast.Node, opts Options) []Term {
	terms := toTerms(expr)
	if opts.DeepSimplify {
		terms = consensusMinimize(terms)
	}
	return terms
}

// ToDNF rewrites expr into disjunctive normal form: a bare literal, a
// single conjunction of (possibly negated) literals, or a disjunction of
// such conjunctions. It pushes negations to the literals (De Morgan),
// distributes AND over OR, and simplifies via absorption and idempotence.
func ToDNF(expr ast.Node, opts Options) ast.Node {
	return termsFromSlice(RewriteToTerms(expr, opts))
}

// Terms extracts the uniform term list (one per DNF disjunct) from a node
// already produced by ToDNF — or from any node, which is first rewritten.
// A bare Literal/Not(Literal) yields one single-literal term; an And
// yields one multi-literal term; an Or yields one term per child. An
// unsatisfiable ToDNF result (the zero-term sentinel) yields nil.
func Terms(expr ast.Node) []Term {
	switch v := expr.(type) {
	case *ast.Literal:
		return []Term{{{Symbol: v.Symbol, Negated: false}}}
	case *ast.Not:
		if lit, ok := v.Child.(*ast.Literal); ok {
			if lit.Symbol == unsatSymbol {
				return nil
			}
			return []Term{{{Symbol: lit.Symbol, Negated: true}}}
		}
		return toTerms(expr)
	case *ast.And:
		if t, ok := termFromConjunction(v); ok {
			return []Term{t}
		}
		// Not a flat conjunction of literals (caller passed something
		// that was never run through ToDNF): fall back to full rewriting.
		return toTerms(expr)
	case *ast.Or:
		var out []Term
		for _, c := range v.Children {
			out = append(out, Terms(c)...)
		}
		return out
	default:
		return toTerms(expr)
	}
}

// termFromConjunction reads off the term directly when every child of a is
// a bare Literal or Not(Literal), as guaranteed by ToDNF's output shape.
// ok is false if a child is itself compound, signaling the caller to fall
// back to full rewriting.
func termFromConjunction(a *ast.And) (Term, bool) {
	acc := Term{}
	for _, c := range a.Children {
		var lit SignedLiteral
		switch v := c.(type) {
		case *ast.Literal:
			lit = SignedLiteral{Symbol: v.Symbol}
		case *ast.Not:
			inner, ok := v.Child.(*ast.Literal)
			if !ok {
				return nil, false
			}
			lit = SignedLiteral{Symbol: inner.Symbol, Negated: true}
		default:
			return nil, false
		}
		merged, ok := Merge(acc, Term{lit})
		if !ok {
			return nil, true // contradiction: valid conjunction shape, unsatisfiable
		}
		acc = merged
	}
	return acc, true
}

func termsFromSlice(terms []Term) ast.Node {
	if len(terms) == 0 {
		// Unsatisfiable expression (e.g. a literal ANDed with its own
		// negation, as in the query "[a ~a]"). Terms() unwraps this
		// sentinel back to zero terms.
		return ast.NewNot(ast.NewLiteral(unsatSymbol))
	}
	if len(terms) == 1 {
		return termToNode(terms[0])
	}
	children := make([]ast.Node, len(terms))
	for i, t := range terms {
		children[i] = termToNode(t)
	}
	n, _ := ast.NewOr(children...)
	return n
}

// toTerms is the core NNF+distribute rewrite: it walks expr bottom-up,
// returning the list of DNF terms (conjunctions of signed literals) that
// the subtree denotes.
func toTerms(expr ast.Node) []Term {
	switch v := expr.(type) {
	case *ast.Literal:
		return []Term{{{Symbol: v.Symbol, Negated: false}}}
	case *ast.Not:
		return notTerms(v.Child)
	case *ast.And:
		acc := []Term{{}}
		for _, c := range v.Children {
			acc = crossProduct(acc, toTerms(c))
		}
		return simplifyTerms(acc)
	case *ast.Or:
		var all []Term
		for _, c := range v.Children {
			all = append(all, toTerms(c)...)
		}
		return simplifyTerms(all)
	default:
		return nil
	}
}

// notTerms computes the DNF terms for NOT(n), pushing the negation inward
// via De Morgan's laws instead of leaving a Not wrapping a compound node.
func notTerms(n ast.Node) []Term {
	switch v := n.(type) {
	case *ast.Literal:
		return []Term{{{Symbol: v.Symbol, Negated: true}}}
	case *ast.Not:
		// Double negation cancels.
		return toTerms(v.Child)
	case *ast.And:
		// NOT(A ∧ B ∧ …) = NOT A ∨ NOT B ∨ …
		var all []Term
		for _, c := range v.Children {
			all = append(all, notTerms(c)...)
		}
		return simplifyTerms(all)
	case *ast.Or:
		// NOT(A ∨ B ∨ …) = NOT A ∧ NOT B ∧ …
		acc := []Term{{}}
		for _, c := range v.Children {
			acc = crossProduct(acc, notTerms(c))
		}
		return simplifyTerms(acc)
	default:
		return nil
	}
}

func crossProduct(a, b []Term) []Term {
	out := make([]Term, 0, len(a)*len(b))
	for _, ta := range a {
		for _, tb := range b {
			merged, ok := Merge(ta, tb)
			if !ok {
				continue // contradiction: this combination contributes nothing
			}
			out = append(out, merged)
		}
	}
	return out
}

// ReplaceOrWithAnd returns an upper bound on the worst-case sub-query
// length: every Or in expr (assumed already in DNF) is replaced with an
// And of the same children, and the result is flattened/deduplicated the
// same way a conjunction would be. The engine uses this to detect, before
// issuing anything, whether any real sub-query could exceed the server's
// length limit.
func ReplaceOrWithAnd(expr ast.Node) ast.Node {
	replaced := replaceOrWithAnd(expr)
	terms := toTerms(replaced)
	return termsFromSlice(terms)
}

func replaceOrWithAnd(n ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Or:
		children := make([]ast.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = replaceOrWithAnd(c)
		}
		a, err := ast.NewAnd(children...)
		if err != nil {
			return children[0]
		}
		return a
	case *ast.And:
		children := make([]ast.Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = replaceOrWithAnd(c)
		}
		a, err := ast.NewAnd(children...)
		if err != nil {
			return children[0]
		}
		return a
	default:
		return n
	}
}
