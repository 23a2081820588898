// Package engine drives one top-level query through the state machine of
// §4.7: DNF rewrite, lazy sub-query enumeration, cache-or-issue per
// sub-query, and signed accumulation into a final result, modeled
// structurally on schema.Generator's single run-method state machine.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/qcount/quantityer/ast"
	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/decompose"
	"github.com/qcount/quantityer/dnf"
	"github.com/qcount/quantityer/issuer"
	"github.com/qcount/quantityer/qerr"
	"github.com/qcount/quantityer/translate"
)

// Options configures one Engine's behavior.
type Options struct {
	// Kind selects which remote search endpoint sub-queries target.
	Kind issuer.Kind
	// Simulate runs the full control flow but never calls the issuer;
	// every sub-query is treated as (false, 0) and deduplicated against a
	// one-shot simulation cache instead of the real cache.
	Simulate bool
	// AdmitIncomplete tolerates a rejected sub-query (*qerr.QueryError) by
	// excluding it from the sum and counting it, instead of aborting the
	// run. Every other issuer error still aborts the run.
	AdmitIncomplete bool
	// ResetCache drops every entry of the real cache before evaluation.
	// Entries that were merged in from input caches are dropped as well;
	// the engine does not re-apply them.
	ResetCache bool
	// DeepSimplify enables the expensive consensus-based DNF minimizer.
	DeepSimplify bool
	// Seed reseeds the issuer's jitter PRNG at the start of every
	// top-level query, per spec.md §4.7's reseeding policy.
	Seed int64
}

// RunStats reports the bookkeeping the engine accumulates while evaluating
// one top-level query.
type RunStats struct {
	TotalSubqueries      int
	CacheHits            int
	Issued               int // or "would-be-issued" in simulation mode
	PositiveErrors       int // sub-queries with sign +1 that could not be counted
	NegativeErrors       int // sub-queries with sign -1 that could not be counted
	UnsatisfiableSkipped int
	DNFRewriteTime       time.Duration
	EvaluationTime       time.Duration
}

// Issuer is the subset of *issuer.Issuer the engine needs, narrowed to an
// interface so simulation-mode runs (which never touch it) and tests don't
// need a real rate-limited transport.
type Issuer interface {
	Issue(ctx context.Context, kind issuer.Kind, name, rendered string) (ok bool, count int, err error)
	Reseed(seed int64)
}

// Engine evaluates one top-level query at a time against a cache and an
// issuer.
type Engine struct {
	cache      cache.Cache
	issuer     Issuer
	translator translate.Translator
	opts       Options
}

// New returns an Engine driving expressions through cache c and issuer iss,
// rendering sub-queries with translator. iss may be nil only when opts
// always sets Simulate (the issuer is never dereferenced in that mode).
func New(c cache.Cache, iss Issuer, translator translate.Translator, opts Options) *Engine {
	return &Engine{cache: c, issuer: iss, translator: translator, opts: opts}
}

// Evaluate runs the state machine of §4.7 for one parsed top-level
// expression, returning the signed sub-count total, run statistics, and the
// textual form of the longest sub-query actually rendered (for diagnostics
// of near-cap queries).
func (e *Engine) Evaluate(ctx context.Context, name string, expr ast.Node) (int, RunStats, string, error) {
	var stats RunStats

	if e.opts.ResetCache && !e.opts.Simulate {
		if err := e.cache.Reset(); err != nil {
			return 0, stats, "", err
		}
	}
	if e.issuer != nil {
		e.issuer.Reseed(e.opts.Seed)
	}

	dnfStart := time.Now()
	terms := dnf.RewriteToTerms(expr, dnf.Options{DeepSimplify: e.opts.DeepSimplify})
	stats.DNFRewriteTime = time.Since(dnfStart)

	stats.TotalSubqueries = decompose.Total(len(terms))

	var simCache cache.Cache
	if e.opts.Simulate {
		simCache = cache.NewMemory()
	}

	evalStart := time.Now()
	result := 0
	longest := ""

	for sq := range decompose.Enumerate(terms) {
		if err := ctx.Err(); err != nil {
			return result, stats, longest, err
		}

		if sq.Unsatisfiable {
			stats.UnsatisfiableSkipped++
			continue
		}

		rendered, err := e.translator.Render(sq.Literals)
		if err != nil {
			return result, stats, longest, err
		}
		if len(rendered) > len(longest) {
			longest = rendered
		}

		count, counted, hit, notOk, err := e.resolve(ctx, name, rendered, simCache)
		if err != nil {
			var qe *qerr.QueryError
			if !e.opts.AdmitIncomplete || !errors.As(err, &qe) {
				// Auth/Connection/Length errors, and any QueryError outside
				// admit_incomplete, are always fatal.
				return result, stats, longest, err
			}
			stats.Issued++
			if sq.Sign > 0 {
				stats.PositiveErrors++
			} else {
				stats.NegativeErrors++
			}
			continue
		}
		if hit {
			stats.CacheHits++
		} else {
			stats.Issued++
		}
		if notOk {
			// ok=false, err=nil: the issuer itself already tolerated a
			// semantic rejection or over-length query (admit_incomplete /
			// admit_long_query).
			if sq.Sign > 0 {
				stats.PositiveErrors++
			} else {
				stats.NegativeErrors++
			}
			continue
		}
		if !counted {
			continue
		}
		result += sq.Sign * count
	}
	stats.EvaluationTime = time.Since(evalStart)

	return result, stats, longest, nil
}

// ProbeLongestUpperBound renders the worst-case sub-query — every
// disjunction collapsed into a conjunction, per dnf.ReplaceOrWithAnd — so
// the runner can warn about a length-cap violation at the DNF_READY
// transition, before any sub-query is actually enumerated or issued.
func (e *Engine) ProbeLongestUpperBound(expr ast.Node) (string, error) {
	terms := dnf.Terms(dnf.ReplaceOrWithAnd(expr))
	if len(terms) == 0 {
		return "", nil
	}
	return e.translator.Render(terms[0])
}

// resolve looks up rendered in the appropriate cache, issuing it (or
// simulating the issue) on a miss. counted is false when the sub-query
// contributes nothing to result (simulation mode, or a tolerated issuer
// failure handled by the caller); hit distinguishes a cache hit from an
// issue (real or simulated); notOk reports the issuer's own (ok=false,
// err=nil) tolerance transition, which the caller must bucket into the
// signed error counters rather than treating as a successful issue.
func (e *Engine) resolve(ctx context.Context, name, rendered string, simCache cache.Cache) (count int, counted, hit, notOk bool, err error) {
	if e.opts.Simulate {
		if simCache.Contains(rendered) {
			return 0, false, true, false, nil
		}
		_ = simCache.Put(rendered, 0)
		return 0, false, false, false, nil
	}

	if cached, ok := e.cache.Get(rendered); ok {
		return cached, true, true, false, nil
	}

	ok, count, err := e.issuer.Issue(ctx, e.opts.Kind, name, rendered)
	if err != nil {
		return 0, false, false, false, err
	}
	if !ok {
		return 0, false, false, true, nil
	}
	if err := e.cache.Put(rendered, count); err != nil {
		return 0, false, false, false, err
	}
	return count, true, false, false, nil
}
