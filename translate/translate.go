// Package translate renders a conjunction of signed literal symbols into
// the server's wire query syntax, per §4.4. The rendered form is also the
// cache key, so it must be canonical: atoms sorted lexicographically by
// their recovered literal text, independent of the order they were ANDed
// in.
package translate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qcount/quantityer/dnf"
	"github.com/qcount/quantityer/qerr"
)

// Translator renders a dnf.Term into the server's wire syntax.
type Translator interface {
	Render(t dnf.Term) (string, error)
}

// Symbols recovers literal text for an interned symbol, satisfied by
// *ast.SymbolTable.
type Symbols interface {
	Lookup(symbol string) (string, bool)
}

// Spaces is the default translator: atoms sorted by their literal text,
// negated atoms rendered as "NOT <literal>", joined with single spaces.
type Spaces struct {
	Symbols Symbols
}

// NewSpaces returns a Spaces translator reading literal text from symbols.
func NewSpaces(symbols Symbols) *Spaces {
	return &Spaces{Symbols: symbols}
}

type atom struct {
	literal string
	negated bool
}

// Render looks up each symbol's literal text, sorts atoms lexicographically
// by that text, and joins "<literal>" or "NOT <literal>" with single
// spaces. An unknown symbol (never interned by this translator's table) is
// an EngineError, not expected in well-formed use.
func (s *Spaces) Render(t dnf.Term) (string, error) {
	atoms := make([]atom, 0, len(t))
	for _, l := range t {
		lit, ok := s.Symbols.Lookup(l.Symbol)
		if !ok {
			return "", &qerr.EngineError{Msg: fmt.Sprintf("translate: unknown symbol %s", l.Symbol)}
		}
		atoms = append(atoms, atom{literal: lit, negated: l.Negated})
	}
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].literal < atoms[j].literal })

	parts := make([]string, len(atoms))
	for i, a := range atoms {
		if a.negated {
			parts[i] = "NOT " + a.literal
		} else {
			parts[i] = a.literal
		}
	}
	return strings.Join(parts, " "), nil
}
