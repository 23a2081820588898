package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcount/quantityer/ast"
	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/issuer"
	"github.com/qcount/quantityer/qerr"
	"github.com/qcount/quantityer/translate"
)

// fakeIssuer mirrors the real Issuer's contract (issuer/issuer.go): a
// semantic rejection surfaces as a *qerr.QueryError unless the fake is
// asked to pre-tolerate it (notOk, mimicking admit_incomplete already
// having been applied inside the issuer), auth failures always surface as
// a *qerr.AuthError, and neither is ever a bare untyped error.
type fakeIssuer struct {
	counts   map[string]int
	fail     map[string]bool // *qerr.QueryError
	authFail map[string]bool // *qerr.AuthError, always fatal
	notOk    map[string]bool // (false, 0, nil): issuer already tolerated this one
}

func (f *fakeIssuer) Issue(ctx context.Context, kind issuer.Kind, name, rendered string) (bool, int, error) {
	if f.authFail[rendered] {
		return false, 0, &qerr.AuthError{Err: assert.AnError}
	}
	if f.fail[rendered] {
		return false, 0, &qerr.QueryError{Name: name, Query: rendered, Err: assert.AnError}
	}
	if f.notOk[rendered] {
		return false, 0, nil
	}
	return true, f.counts[rendered], nil
}

func (f *fakeIssuer) Reseed(seed int64) {}

func TestEvaluateTwoTermInclusionExclusion(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	symB := symbols.Intern("rust")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{counts: map[string]int{
		"golang":      10,
		"rust":        5,
		"golang rust": 2,
	}}
	e := New(cache.NewMemory(), iss, translator, Options{})

	or, err := ast.NewOr(ast.NewLiteral(symA), ast.NewLiteral(symB))
	require.NoError(t, err)

	result, stats, _, err := e.Evaluate(context.Background(), "q.1", or)
	require.NoError(t, err)
	assert.Equal(t, 10+5-2, result)
	assert.Equal(t, 3, stats.TotalSubqueries)
	assert.Equal(t, 3, stats.Issued)
	assert.Equal(t, 0, stats.CacheHits)
}

func TestEvaluateCachesRepeatedSubqueries(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{counts: map[string]int{"golang": 10}}
	c := cache.NewMemory()
	e := New(c, iss, translator, Options{})

	result, _, _, err := e.Evaluate(context.Background(), "q.1", ast.NewLiteral(symA))
	require.NoError(t, err)
	assert.Equal(t, 10, result)
	assert.True(t, c.Contains("golang"))

	// Second query repeats the same sub-query; should come from cache.
	result2, stats2, _, err := e.Evaluate(context.Background(), "q.2", ast.NewLiteral(symA))
	require.NoError(t, err)
	assert.Equal(t, 10, result2)
	assert.Equal(t, 1, stats2.CacheHits)
	assert.Equal(t, 0, stats2.Issued)
}

func TestEvaluateSimulationNeverCallsIssuer(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	symB := symbols.Intern("rust")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{fail: map[string]bool{"golang": true, "rust": true, "golang rust": true}}
	e := New(cache.NewMemory(), iss, translator, Options{Simulate: true})

	or, err := ast.NewOr(ast.NewLiteral(symA), ast.NewLiteral(symB))
	require.NoError(t, err)

	result, stats, _, err := e.Evaluate(context.Background(), "q.1", or)
	require.NoError(t, err)
	assert.Equal(t, 0, result)
	assert.Equal(t, 3, stats.Issued) // "would-be-issued"
}

func TestResolveSimulationDedupsRepeatedRenders(t *testing.T) {
	symbols := ast.NewSymbolTable()
	translator := translate.NewSpaces(symbols)
	e := New(cache.NewMemory(), &fakeIssuer{}, translator, Options{Simulate: true})
	simCache := cache.NewMemory()

	_, counted1, hit1, notOk1, err := e.resolve(context.Background(), "q.1", "golang", simCache)
	require.NoError(t, err)
	assert.False(t, counted1)
	assert.False(t, hit1)
	assert.False(t, notOk1)

	_, counted2, hit2, notOk2, err := e.resolve(context.Background(), "q.1", "golang", simCache)
	require.NoError(t, err)
	assert.False(t, counted2)
	assert.True(t, hit2)
	assert.False(t, notOk2)
}

func TestEvaluateSimulationDoesNotMutateRealCache(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	c := cache.NewMemory()
	e := New(c, &fakeIssuer{}, translator, Options{Simulate: true})

	_, _, _, err := e.Evaluate(context.Background(), "q.1", ast.NewLiteral(symA))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestEvaluateAdmitIncompleteTracksSignedErrors(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	symB := symbols.Intern("rust")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{
		counts: map[string]int{"golang": 10, "rust": 5},
		fail:   map[string]bool{"golang rust": true},
	}
	e := New(cache.NewMemory(), iss, translator, Options{AdmitIncomplete: true})

	or, err := ast.NewOr(ast.NewLiteral(symA), ast.NewLiteral(symB))
	require.NoError(t, err)

	result, stats, _, err := e.Evaluate(context.Background(), "q.1", or)
	require.NoError(t, err)
	assert.Equal(t, 15, result) // the size-2 subtraction never landed
	assert.Equal(t, 1, stats.NegativeErrors)
	assert.Equal(t, 0, stats.PositiveErrors)
	assert.Equal(t, 3, stats.Issued)
}

func TestEvaluateFatalWithoutAdmitIncomplete(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{fail: map[string]bool{"golang": true}}
	e := New(cache.NewMemory(), iss, translator, Options{})

	_, _, _, err := e.Evaluate(context.Background(), "q.1", ast.NewLiteral(symA))
	assert.Error(t, err)
}

// TestEvaluateAuthErrorAlwaysFatalEvenWithAdmitIncomplete guards against
// admit_incomplete absorbing anything but a semantic rejection: spec.md §7
// marks authentication and connection failures unconditionally fatal.
func TestEvaluateAuthErrorAlwaysFatalEvenWithAdmitIncomplete(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{authFail: map[string]bool{"golang": true}}
	e := New(cache.NewMemory(), iss, translator, Options{AdmitIncomplete: true})

	_, _, _, err := e.Evaluate(context.Background(), "q.1", ast.NewLiteral(symA))
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*qerr.AuthError))
}

// TestEvaluateNotOkBucketsSignedErrors exercises the real issuer contract:
// a tolerated rejection comes back as (ok=false, err=nil), never an error
// value, and must still land in the signed error counters rather than
// being silently counted as a successful issue.
func TestEvaluateNotOkBucketsSignedErrors(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	symB := symbols.Intern("rust")
	translator := translate.NewSpaces(symbols)

	iss := &fakeIssuer{
		counts: map[string]int{"golang": 10, "rust": 5},
		notOk:  map[string]bool{"golang rust": true},
	}
	e := New(cache.NewMemory(), iss, translator, Options{AdmitIncomplete: true})

	or, err := ast.NewOr(ast.NewLiteral(symA), ast.NewLiteral(symB))
	require.NoError(t, err)

	result, stats, _, err := e.Evaluate(context.Background(), "q.1", or)
	require.NoError(t, err)
	assert.Equal(t, 15, result)
	assert.Equal(t, 1, stats.NegativeErrors)
	assert.Equal(t, 0, stats.PositiveErrors)
	assert.Equal(t, 3, stats.Issued)
}

func TestEvaluateUnsatisfiableSubqueryIsSkipped(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	// Or(a, NOT a) yields two top-level DNF terms {a} and {NOT a}; their
	// size-2 combination is a contradiction and must be skipped, not
	// issued or counted.
	or, err := ast.NewOr(ast.NewLiteral(symA), ast.NewNot(ast.NewLiteral(symA)))
	require.NoError(t, err)

	iss := &fakeIssuer{counts: map[string]int{"golang": 10, "NOT golang": 4}}
	e := New(cache.NewMemory(), iss, translator, Options{})
	result, stats, _, err := e.Evaluate(context.Background(), "q.1", or)
	require.NoError(t, err)
	assert.Equal(t, 10+4, result)
	assert.Equal(t, 1, stats.UnsatisfiableSkipped)
}

func TestEvaluateFullContradictionYieldsZero(t *testing.T) {
	symbols := ast.NewSymbolTable()
	symA := symbols.Intern("golang")
	translator := translate.NewSpaces(symbols)

	and, err := ast.NewAnd(ast.NewLiteral(symA), ast.NewNot(ast.NewLiteral(symA)))
	require.NoError(t, err)

	e := New(cache.NewMemory(), &fakeIssuer{}, translator, Options{})
	result, stats, _, err := e.Evaluate(context.Background(), "q.1", and)
	require.NoError(t, err)
	assert.Equal(t, 0, result)
	assert.Equal(t, 0, stats.TotalSubqueries)
}
