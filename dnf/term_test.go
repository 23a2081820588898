package dnf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeDeduplicatesSharedLiterals(t *testing.T) {
	a := Term{{Symbol: "v0"}, {Symbol: "v1"}}
	b := Term{{Symbol: "v1"}, {Symbol: "v2"}}

	merged, ok := Merge(a, b)
	assert.True(t, ok)
	assert.Len(t, merged, 3)
}

func TestMergeDetectsContradiction(t *testing.T) {
	a := Term{{Symbol: "v0"}}
	b := Term{{Symbol: "v0", Negated: true}}

	merged, ok := Merge(a, b)
	assert.False(t, ok)
	assert.Nil(t, merged)
}

func TestTermKeyOrderInsensitive(t *testing.T) {
	a := Term{{Symbol: "v1"}, {Symbol: "v0"}}
	b := Term{{Symbol: "v0"}, {Symbol: "v1"}}
	assert.Equal(t, a.key(), b.key())
}

func TestSubsetOf(t *testing.T) {
	small := Term{{Symbol: "v0"}}
	big := Term{{Symbol: "v0"}, {Symbol: "v1"}}
	assert.True(t, small.subsetOf(big))
	assert.False(t, big.subsetOf(small))
}

func TestSimplifyTermsDropsContradictionsAndDuplicates(t *testing.T) {
	terms := []Term{
		{{Symbol: "v0"}},
		nil,
		{{Symbol: "v0"}},
	}
	result := simplifyTerms(terms)
	assert.Len(t, result, 1)
}

func TestSimplifyTermsAbsorption(t *testing.T) {
	terms := []Term{
		{{Symbol: "v0"}},
		{{Symbol: "v0"}, {Symbol: "v1"}},
	}
	result := simplifyTerms(terms)
	assert.Len(t, result, 1)
	assert.Equal(t, "v0,", result[0].key())
}
