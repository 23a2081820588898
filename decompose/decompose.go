// Package decompose implements the inclusion–exclusion decomposition of
// §4.3: given the DNF disjuncts T1..Tn of a query, it lazily enumerates
// the 2^n-1 non-empty subsets, each yielding one conjunctive sub-query
// with its inclusion–exclusion sign.
package decompose

import (
	"iter"

	"github.com/qcount/quantityer/dnf"
)

// SubQuery is one sub-query derived from a non-empty subset of the DNF
// terms: its 1-based sequence number, the AND-combination of the chosen
// terms' literals, its inclusion–exclusion sign, and whether the
// combination is provably unsatisfiable (a literal ANDed with its own
// negation), in which case it is never rendered or issued — its
// contribution is a known zero.
type SubQuery struct {
	Index         int
	Sign          int
	Literals      dnf.Term
	Unsatisfiable bool
}

// Total reports 2^n-1, the number of sub-queries that Enumerate will
// yield for n DNF terms. It is 0 when n is 0 (an unsatisfiable top-level
// expression).
func Total(n int) int {
	if n <= 0 {
		return 0
	}
	return (1 << uint(n)) - 1
}

// Enumerate lazily yields one SubQuery per non-empty subset of terms, in
// the order: all size-1 subsets (sign +1), then all size-2 subsets
// (sign -1), … up to the single size-n subset, each size's subsets
// visited in lexicographic combination order over term indices. Memory
// is O(n): subsets are generated on the fly, never materialized as a
// full 2^n list.
func Enumerate(terms []dnf.Term) iter.Seq[SubQuery] {
	return func(yield func(SubQuery) bool) {
		n := len(terms)
		if n == 0 {
			return
		}
		index := 0
		sign := 1
		for p := 1; p <= n; p++ {
			ok := forEachCombination(n, p, func(idxs []int) bool {
				index++
				sq := buildSubQuery(terms, idxs, index, sign)
				return yield(sq)
			})
			if !ok {
				return
			}
			sign = -sign
		}
	}
}

func buildSubQuery(terms []dnf.Term, idxs []int, index, sign int) SubQuery {
	acc := dnf.Term{}
	for _, i := range idxs {
		if terms[i] == nil {
			return SubQuery{Index: index, Sign: sign, Unsatisfiable: true}
		}
		merged, ok := dnf.Merge(acc, terms[i])
		if !ok {
			return SubQuery{Index: index, Sign: sign, Unsatisfiable: true}
		}
		acc = merged
	}
	return SubQuery{Index: index, Sign: sign, Literals: acc}
}

// forEachCombination calls f with every p-sized, strictly-increasing index
// combination drawn from [0, n), in lexicographic order, stopping early if
// f returns false. It returns false if the caller stopped iteration early.
func forEachCombination(n, p int, f func(idxs []int) bool) bool {
	idxs := make([]int, p)
	for i := range idxs {
		idxs[i] = i
	}
	for {
		if !f(idxs) {
			return false
		}
		i := p - 1
		for i >= 0 && idxs[i] == n-p+i {
			i--
		}
		if i < 0 {
			return true
		}
		idxs[i]++
		for j := i + 1; j < p; j++ {
			idxs[j] = idxs[j-1] + 1
		}
	}
}
