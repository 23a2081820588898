package runner

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qcount/quantityer/qerr"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// ConsoleOutput writes one colorized summary line per query to W, the way
// §4.8's console destination presents a run's results. ANSI color codes are
// emitted only when Color is true; callers wanting TTY-gated color set
// Color from github.com/mattn/go-isatty and wrap W with go-colorable.
type ConsoleOutput struct {
	W     io.Writer
	Color bool
}

func (c *ConsoleOutput) Write(r Result) error {
	if r.Err != nil {
		line := fmt.Sprintf("%s: error: %v\n", r.Job.Name, r.Err)
		if c.Color {
			line = ansiRed + line + ansiReset
		}
		_, err := io.WriteString(c.W, line)
		return err
	}

	label := "count"
	value := r.Count
	if r.Simulate {
		label = "simulated subqueries"
		value = r.Stats.Issued
	}
	line := fmt.Sprintf("%s: %s=%d issued=%d cache_hits=%d\n", r.Job.Name, label, value, r.Stats.Issued, r.Stats.CacheHits)
	if c.Color {
		line = ansiGreen + line + ansiReset
	}
	_, err := io.WriteString(c.W, line)
	return err
}

// FileOutput writes one file per query into Dir, named after the query's
// namespace-derived name with extension ".out" (or "-simulation.out" in
// simulation mode), per §4.8.
type FileOutput struct {
	Dir string
}

func (f *FileOutput) Write(r Result) error {
	if r.Err != nil {
		return nil // only the console/log sinks report failures; file output is result-only
	}

	ext := ".out"
	if r.Simulate {
		ext = "-simulation.out"
	}
	name := strings.ReplaceAll(r.Job.Name, string(os.PathSeparator), "_")
	path := filepath.Join(f.Dir, name+ext)

	content := fmt.Sprintf("%d\n", r.Count)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &qerr.FileError{Path: path, Err: err}
	}
	return nil
}
