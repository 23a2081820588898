// Package runner iterates the input sources of §4.8 (positional queries,
// files, directories), drives the engine over every top-level query it
// finds, and fans each result out to the configured outputs. Concurrency
// across top-level queries is modeled on the teacher's
// database.ConcurrentMapFuncWithError: a bounded errgroup plus an
// order-preserving reassembly step.
package runner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qcount/quantityer/qerr"
)

// Source is one block of query text to parse under a given namespace.
type Source struct {
	Namespace string
	Text      string
}

// CollectPositional joins the command line's positional query arguments
// into a single source under the namespace CONSOLE, per §4.8.
func CollectPositional(args []string) []Source {
	if len(args) == 0 {
		return nil
	}
	return []Source{{Namespace: "CONSOLE", Text: strings.Join(args, " ")}}
}

// CollectPaths turns each input path into one Source per regular file
// (namespace = file path) or, for a directory, one Source per "*.in" file
// found by a shallow, sorted scan of its immediate contents.
func CollectPaths(paths []string) ([]Source, error) {
	var sources []Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &qerr.FileError{Path: p, Err: err}
		}
		if info.IsDir() {
			dirSources, err := collectDir(p)
			if err != nil {
				return nil, err
			}
			sources = append(sources, dirSources...)
			continue
		}
		src, err := readSource(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func collectDir(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &qerr.FileError{Path: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".in" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var sources []Source
	for _, name := range names {
		src, err := readSource(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func readSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, &qerr.FileError{Path: path, Err: err}
	}
	return Source{Namespace: path, Text: string(data)}, nil
}
