package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternDedupsByLiteralText(t *testing.T) {
	st := NewSymbolTable()

	s1 := st.Intern("golang")
	s2 := st.Intern("rust")
	s3 := st.Intern("golang")

	assert.Equal(t, s1, s3)
	assert.NotEqual(t, s1, s2)
	assert.Equal(t, 2, st.Len())
}

func TestInternAssignsMonotonicSymbols(t *testing.T) {
	st := NewSymbolTable()

	assert.Equal(t, "v0", st.Intern("a"))
	assert.Equal(t, "v1", st.Intern("b"))
	assert.Equal(t, "v0", st.Intern("a"))
	assert.Equal(t, "v2", st.Intern("c"))
}

func TestLookupRecoversLiteralText(t *testing.T) {
	st := NewSymbolTable()
	sym := st.Intern("hello world")

	lit, ok := st.Lookup(sym)
	assert.True(t, ok)
	assert.Equal(t, "hello world", lit)

	_, ok = st.Lookup("v999")
	assert.False(t, ok)
}

func TestSymbolsSorted(t *testing.T) {
	st := NewSymbolTable()
	st.Intern("c")
	st.Intern("a")
	st.Intern("b")

	assert.Equal(t, []string{"v0", "v1", "v2"}, st.Symbols())
}
