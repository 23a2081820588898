package ast

import (
	"fmt"
	"sort"
)

// SymbolTable is the bijective mapping between the short symbolic names
// (v0, v1, …) assigned to literals and the user-supplied literal text.
// One SymbolTable lives as long as a single Parser instance, so named
// sub-expressions and literals defined in one query may be referenced by
// later queries sharing that parser.
type SymbolTable struct {
	bySymbol  map[string]string
	byLiteral map[string]string
	next      int
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		bySymbol:  make(map[string]string),
		byLiteral: make(map[string]string),
	}
}

// Intern returns the symbol for literal, assigning a fresh one (v_k, k
// monotonically increasing across the table's lifetime) the first time a
// given literal text is seen.
func (t *SymbolTable) Intern(literal string) string {
	if sym, ok := t.byLiteral[literal]; ok {
		return sym
	}
	sym := fmt.Sprintf("v%d", t.next)
	t.next++
	t.byLiteral[literal] = sym
	t.bySymbol[sym] = literal
	return sym
}

// Lookup recovers the original literal text for a symbol.
func (t *SymbolTable) Lookup(symbol string) (string, bool) {
	lit, ok := t.bySymbol[symbol]
	return lit, ok
}

// Len reports how many distinct literals have been interned.
func (t *SymbolTable) Len() int {
	return len(t.bySymbol)
}

// Symbols returns every interned symbol in deterministic (sorted) order,
// mainly useful for diagnostics and tests.
func (t *SymbolTable) Symbols() []string {
	out := make([]string, 0, len(t.bySymbol))
	for s := range t.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
