package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/engine"
	"github.com/qcount/quantityer/issuer"
	"github.com/qcount/quantityer/parser"
	"github.com/qcount/quantityer/translate"
)

type fakeIssuer struct{ counts map[string]int }

func (f *fakeIssuer) Issue(ctx context.Context, kind issuer.Kind, name, rendered string) (bool, int, error) {
	return true, f.counts[rendered], nil
}
func (f *fakeIssuer) Reseed(seed int64) {}

func TestCollectPositional(t *testing.T) {
	srcs := CollectPositional([]string{"a", "b"})
	require.Len(t, srcs, 1)
	assert.Equal(t, "CONSOLE", srcs[0].Namespace)
	assert.Equal(t, "a b", srcs[0].Text)

	assert.Empty(t, CollectPositional(nil))
}

func TestCollectPathsFileAndDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.in"), []byte("golang"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.in"), []byte("rust"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("nope"), 0644))

	single := filepath.Join(t.TempDir(), "single.in")
	require.NoError(t, os.WriteFile(single, []byte("golang"), 0644))

	srcs, err := CollectPaths([]string{single, dir})
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, single, srcs[0].Namespace)
	// directory scan is sorted: a.in before b.in
	assert.Equal(t, filepath.Join(dir, "a.in"), srcs[1].Namespace)
	assert.Equal(t, "rust", srcs[1].Text)
	assert.Equal(t, filepath.Join(dir, "b.in"), srcs[2].Namespace)
}

func TestCollectJobsAssignsSequentialNames(t *testing.T) {
	p := parser.New(parser.RedefinitionWarn, nil)
	jobs, err := CollectJobs(p, []Source{{Namespace: "CONSOLE", Text: "golang rust"}})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "CONSOLE.1", jobs[0].Name)
	assert.Equal(t, "CONSOLE.2", jobs[1].Name)
}

func TestCollectJobsPropagatesParseError(t *testing.T) {
	p := parser.New(parser.RedefinitionWarn, nil)
	_, err := CollectJobs(p, []Source{{Namespace: "CONSOLE", Text: "["}})
	assert.Error(t, err)
}

func newTestRunner(t *testing.T, concurrency int) (*Runner, *parser.Parser) {
	t.Helper()
	p := parser.New(parser.RedefinitionWarn, nil)
	translator := translate.NewSpaces(p.Symbols)
	iss := &fakeIssuer{counts: map[string]int{"golang": 10, "rust": 5}}
	c := cache.NewMemory()
	var sharedCache cache.Cache = c
	if concurrency > 1 {
		sharedCache = cache.Synchronized(c)
	}
	e := engine.New(sharedCache, iss, translator, engine.Options{})
	return &Runner{Engine: e, Cache: sharedCache, Concurrency: concurrency}, p
}

func TestRunSequentialPreservesOrder(t *testing.T) {
	r, p := newTestRunner(t, 1)
	jobs, err := CollectJobs(p, []Source{{Namespace: "CONSOLE", Text: "golang rust"}})
	require.NoError(t, err)

	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CONSOLE.1", results[0].Job.Name)
	assert.Equal(t, 10, results[0].Count)
	assert.Equal(t, "CONSOLE.2", results[1].Job.Name)
	assert.Equal(t, 5, results[1].Count)
}

func TestRunConcurrentPreservesOrder(t *testing.T) {
	r, p := newTestRunner(t, 4)
	var literals []string
	for i := 0; i < 20; i++ {
		literals = append(literals, "golang")
	}
	jobs, err := CollectJobs(p, []Source{{Namespace: "CONSOLE", Text: joinSpace(literals)}})
	require.NoError(t, err)

	results, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("CONSOLE.%d", i+1), res.Job.Name)
		assert.Equal(t, 10, res.Count)
	}
}

func TestRunWritesToOutputs(t *testing.T) {
	r, p := newTestRunner(t, 1)
	jobs, err := CollectJobs(p, []Source{{Namespace: "CONSOLE", Text: "golang"}})
	require.NoError(t, err)

	dir := t.TempDir()
	r.Outputs = []Output{&FileOutput{Dir: dir}}

	_, err = r.Run(context.Background(), jobs)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "CONSOLE.1.out"))
	require.NoError(t, err)
	assert.Equal(t, "10\n", string(data))
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
