// Package dnf rewrites a Boolean expression tree into disjunctive normal
// form and provides the longest-subexpression probe used to pre-flight
// the server's query-length cap. The rewriting is hand-rolled tree
// manipulation rather than a dependency on a symbolic-algebra library (see
// DESIGN.md): the pack carries no Boolean-algebra package, and the
// expressions this domain produces are small enough that a direct
// De Morgan + distribution + absorption pass is the right tool, per the
// design note in spec.md §9.
package dnf

import (
	"sort"

	"github.com/qcount/quantityer/ast"
)

// SignedLiteral is one atom of a conjunction: a symbol and whether it is
// negated.
type SignedLiteral struct {
	Symbol  string
	Negated bool
}

// Term is a conjunction of signed literals — one DNF disjunct, or a
// rendered sub-query's atom list, depending on context. A nil Term (as
// opposed to an empty, non-nil one) denotes a contradiction: a conjunction
// that can never be satisfied because it contains both a symbol and its
// negation.
type Term []SignedLiteral

// key returns a canonical string for deduplication/absorption comparisons.
func (t Term) key() string {
	sorted := make(Term, len(t))
	copy(sorted, t)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return !sorted[i].Negated && sorted[j].Negated
	})
	out := make([]byte, 0, len(sorted)*3)
	for _, l := range sorted {
		if l.Negated {
			out = append(out, '!')
		}
		out = append(out, l.Symbol...)
		out = append(out, ',')
	}
	return string(out)
}

func (t Term) sorted() Term {
	out := make(Term, len(t))
	copy(out, t)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// subsetOf reports whether every literal of t also appears (with the same
// sign) in other — used for DNF absorption (A ∨ (A∧B) = A).
func (t Term) subsetOf(other Term) bool {
	m := make(map[SignedLiteral]bool, len(other))
	for _, l := range other {
		m[l] = true
	}
	for _, l := range t {
		if !m[l] {
			return false
		}
	}
	return true
}

// Merge ANDs two terms together, deduplicating shared literals. It
// reports false if the result would be a contradiction (a symbol appearing
// both negated and un-negated).
func Merge(a, b Term) (Term, bool) {
	signs := make(map[string]bool, len(a)+len(b))
	order := make([]string, 0, len(a)+len(b))
	for _, l := range a {
		if _, ok := signs[l.Symbol]; !ok {
			order = append(order, l.Symbol)
		}
		signs[l.Symbol] = l.Negated
	}
	for _, l := range b {
		if neg, ok := signs[l.Symbol]; ok {
			if neg != l.Negated {
				return nil, false
			}
			continue
		}
		signs[l.Symbol] = l.Negated
		order = append(order, l.Symbol)
	}
	out := make(Term, 0, len(order))
	for _, sym := range order {
		out = append(out, SignedLiteral{Symbol: sym, Negated: signs[sym]})
	}
	return out.sorted(), true
}

// literalNode renders one signed literal back into an ast.Node.
func literalNode(l SignedLiteral) ast.Node {
	if l.Negated {
		return ast.NewNot(ast.NewLiteral(l.Symbol))
	}
	return ast.NewLiteral(l.Symbol)
}

func termToNode(t Term) ast.Node {
	t = t.sorted()
	if len(t) == 1 {
		return literalNode(t[0])
	}
	children := make([]ast.Node, len(t))
	for i, l := range t {
		children[i] = literalNode(l)
	}
	n, _ := ast.NewAnd(children...)
	return n
}

// simplifyTerms removes duplicate and absorbed terms (A ∨ (A∧B) = A),
// dropping any nil (contradictory) term.
func simplifyTerms(terms []Term) []Term {
	var kept []Term
	seen := make(map[string]bool)
	for _, t := range terms {
		if t == nil {
			continue
		}
		k := t.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, t)
	}
	var result []Term
	for i, t := range kept {
		absorbed := false
		for j, other := range kept {
			if i == j {
				continue
			}
			if len(other) < len(t) && other.subsetOf(t) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			result = append(result, t)
		}
	}
	return result
}
