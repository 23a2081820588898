package runner

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/qcount/quantityer/ast"
	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/engine"
	"github.com/qcount/quantityer/parser"
)

// Job is one parsed top-level query awaiting evaluation.
type Job struct {
	Name string
	Expr ast.Node
}

// Result is the outcome of evaluating one Job.
type Result struct {
	Job      Job
	Count    int
	Stats    engine.RunStats
	Longest  string
	Err      error
	Simulate bool
}

// Output receives one Result at a time, in the original job order,
// regardless of the order evaluation actually completed in.
type Output interface {
	Write(r Result) error
}

// CollectJobs parses every source in order with p, accumulating every
// top-level query each source yields. Parsing is always sequential: the
// parser's symbol table and named-expression environment are shared
// state, and sources are parsed in the order they were given. Every
// source is parsed with the same p, so a later source's $ref can see an
// earlier source's @def, and literal symbols are shared across sources.
func CollectJobs(p *parser.Parser, sources []Source) ([]Job, error) {
	var jobs []Job
	for _, src := range sources {
		for q, err := range p.Parse(src.Text, src.Namespace) {
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, Job{Name: q.Name, Expr: q.Expr})
		}
	}
	return jobs, nil
}

// Runner drives an Engine over a batch of jobs and fans each result out to
// every configured Output.
type Runner struct {
	Engine      *engine.Engine
	Cache       cache.Cache
	Outputs     []Output
	Concurrency int
	Simulate    bool
}

// Run evaluates every job, in bounded concurrency no greater than
// r.Concurrency (0 or 1 meaning strictly sequential), and writes each
// result to every output in original job order. The cache is synced once
// after each job's evaluation completes. When Concurrency > 1 that sync can
// run while other jobs are still evaluating and writing, so the caller
// must supply a cache wrapped in cache.Synchronized, which serializes each
// Sync with those writes; one Cache is shared by every
// concurrently-running Engine.Evaluate call.
//
// The first job to return a non-AdmitIncomplete-tolerated error cancels
// the context of the remaining jobs and is returned as err. Every job
// still yields a Result: jobs evaluated after the cancellation carry the
// context's error. All results are delivered to outputs in job order.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}

	type ordered struct {
		index  int
		result Result
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	out := make(chan ordered, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		eg.Go(func() error {
			count, stats, longest, err := r.Engine.Evaluate(egCtx, job.Name, job.Expr)
			res := Result{Job: job, Count: count, Stats: stats, Longest: longest, Err: err, Simulate: r.Simulate}
			if syncErr := r.Cache.Sync(); syncErr != nil && err == nil {
				res.Err = syncErr
			}
			out <- ordered{index: i, result: res}
			if err != nil {
				return err
			}
			return nil
		})
	}

	runErr := eg.Wait()
	close(out)

	results := make([]ordered, 0, len(jobs))
	for o := range out {
		results = append(results, o)
	}
	slices.SortFunc(results, func(a, b ordered) int { return cmp.Compare(a.index, b.index) })

	final := make([]Result, len(results))
	for i, o := range results {
		final[i] = o.result
		for _, output := range r.Outputs {
			if writeErr := output.Write(o.result); writeErr != nil && runErr == nil {
				runErr = writeErr
			}
		}
	}

	return final, runErr
}
