package dnf

// consensusMinimize applies the consensus rule (X∧L) ∨ (X∧¬L) = X
// repeatedly until no further reduction is possible, shrinking the
// disjunct count beyond what plain absorption/idempotence achieve. This
// backs the deep_simplify flag of spec.md §4.2. Each round compares every
// pair of terms and removes at least one term, so the cost is polynomial
// in the term count; the pass is skipped, returning its input unchanged,
// when more than consensusMaxLiterals distinct symbols appear.
const consensusMaxLiterals = 16

func consensusMinimize(terms []Term) []Term {
	literals := map[string]bool{}
	for _, t := range terms {
		for _, l := range t {
			literals[l.Symbol] = true
		}
	}
	if len(literals) > consensusMaxLiterals {
		return terms
	}

	current := terms
	for {
		next, changed := consensusRound(current)
		if !changed {
			return current
		}
		current = next
	}
}

// consensusRound looks for one pair of terms differing by exactly one
// literal's negation and folds them into their consensus term, then
// re-simplifies via absorption/idempotence.
func consensusRound(terms []Term) ([]Term, bool) {
	for i := range terms {
		for j := range terms {
			if i == j {
				continue
			}
			if consensus, ok := combine(terms[i], terms[j]); ok {
				out := make([]Term, 0, len(terms))
				out = append(out, consensus)
				for k, t := range terms {
					if k == i || k == j {
						continue
					}
					out = append(out, t)
				}
				return simplifyTerms(out), true
			}
		}
	}
	return terms, false
}

// combine implements the consensus rule: if a and b contain the same
// literal set except for exactly one symbol that is negated in one and
// not the other, the pair collapses to the shared remainder.
func combine(a, b Term) (Term, bool) {
	if len(a) != len(b) {
		return nil, false
	}
	bySymbol := make(map[string]bool, len(b))
	for _, l := range b {
		bySymbol[l.Symbol] = l.Negated
	}
	var diffSymbol string
	diffCount := 0
	for _, l := range a {
		neg, ok := bySymbol[l.Symbol]
		if !ok {
			return nil, false // different literal sets entirely
		}
		if neg != l.Negated {
			diffCount++
			diffSymbol = l.Symbol
		}
	}
	if diffCount != 1 || len(a) < 2 {
		// len(a) < 2 would leave an empty remainder (a tautology); the
		// ast has no "always true" node, so such pairs are left alone.
		return nil, false
	}
	out := make(Term, 0, len(a)-1)
	for _, l := range a {
		if l.Symbol == diffSymbol {
			continue
		}
		out = append(out, l)
	}
	return out.sorted(), true
}
