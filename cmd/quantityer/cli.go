// Command quantityer counts the cardinality of a union-query result set
// against a conjunction-only remote search API, using the
// inclusion-exclusion decomposition implemented by this module's core
// packages. Wiring modeled on cmd/mysqldef/mysqldef.go: parseOptions
// builds a go-flags parser and parses the arguments; main handles
// --help/--version/--*-info up front, and runMain merges in the YAML
// config file and executes the run.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/config"
	"github.com/qcount/quantityer/issuer"
	"github.com/qcount/quantityer/logging"
	"github.com/qcount/quantityer/parser"
	"github.com/qcount/quantityer/runner"
)

var version = "dev"

func parseOptions(args []string) (config.Options, *flags.Parser, error) {
	var opts config.Options
	p := flags.NewParser(&opts, flags.None)
	p.Usage = "[options] [query...]"

	if _, err := p.ParseArgs(args); err != nil {
		return opts, p, err
	}
	return opts, p, nil
}

func printInfo(name string, infos []config.BackendInfo) {
	fmt.Printf("%s backends:\n", name)
	for _, info := range infos {
		fmt.Printf("  %-12s %s\n", info.Name, info.Description)
	}
}

// slogWarner adapts the parser's Warner interface onto the configured
// slog.Logger, so a redefinition warning reaches the same sinks as every
// other diagnostic instead of being silently dropped.
type slogWarner struct{ logger *slog.Logger }

func (w slogWarner) Warn(msg string, line, col int) {
	w.logger.Warn(msg, "line", line, "col", col)
}

func buildParser(opts config.Options, logger *slog.Logger) *parser.Parser {
	return parser.New(parser.RedefinitionWarn, slogWarner{logger: logger})
}

func buildCache(opts config.Options) (cache.Cache, error) {
	switch opts.Cache {
	case "", "memory":
		return cache.NewMemory(), nil
	case "bolt":
		kv := config.KVMap(opts.CacheOpts)
		path := kv["path"]
		if path == "" {
			path = "quantityer.cache"
		}
		mode := cache.ModeNew
		switch kv["mode"] {
		case "read":
			mode = cache.ModeRead
		case "write":
			mode = cache.ModeWrite
		case "update":
			mode = cache.ModeUpdate
		}
		return cache.Open(path, mode)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Cache)
	}
}

// mergeInputCaches opens every --input-cache and folds it into c, per
// §4.6's "update(other_cache)" bulk import.
func mergeInputCaches(c cache.Cache, inputs []config.InputCache) error {
	for _, ic := range inputs {
		if ic.Type != "bolt" {
			return fmt.Errorf("unsupported input-cache type %q", ic.Type)
		}
		src, err := cache.Open(ic.Path, cache.ModeRead)
		if err != nil {
			return err
		}
		updateErr := c.Update(src)
		closeErr := src.Close()
		if updateErr != nil {
			return updateErr
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

func buildIssuer(opts config.Options) (*issuer.Issuer, issuer.Kind, error) {
	kv := config.KVMap(opts.EngineOpts)

	kind := issuer.KindRepositories
	switch kv["kind"] {
	case "", "repositories":
		kind = issuer.KindRepositories
	case "code":
		kind = issuer.KindCode
	case "commits":
		kind = issuer.KindCommits
	case "issues":
		kind = issuer.KindIssues
	case "users":
		kind = issuer.KindUsers
	case "topics":
		kind = issuer.KindTopics
	default:
		return nil, 0, fmt.Errorf("unknown engine kind %q", kv["kind"])
	}

	token := kv["token"]
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	client := issuer.NewGitHubClient(context.Background(), token)

	issOpts := issuer.Options{
		ServerRatePerMinute: parseFloatDefault(kv["rate_per_minute"], 30),
		WaitingFactor:       parseFloatDefault(kv["waiting_factor"], 1),
		MaxLength:           int(parseFloatDefault(kv["max_length"], 256)),
		AdmitLongQuery:      kv["admit_long_query"] == "true",
		AdmitIncomplete:     opts.Approximate,
		MaxRetries:          int(parseFloatDefault(kv["max_retries"], 5)),
	}
	return issuer.New(client, issOpts), kind, nil
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func buildLogSinks(opts config.Options) ([]logging.Sink, error) {
	var sinks []logging.Sink
	for _, lf := range opts.LogFiles {
		level, err := logging.ParseLevel(lf.Level)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, logging.Sink{Level: level, Path: lf.Path})
	}
	return sinks, nil
}

func buildOutputs(opts config.Options) []runner.Output {
	var outputs []runner.Output

	if !opts.Silent {
		var w = colorable.NewColorableStdout()
		outputs = append(outputs, &runner.ConsoleOutput{W: w, Color: isatty.IsTerminal(os.Stdout.Fd())})
	}
	if opts.Output != "" {
		outputs = append(outputs, &runner.FileOutput{Dir: opts.Output})
	}
	return outputs
}

// reseedSource derives a process-lifetime-stable but still
// run-to-run-varying seed for the issuer's jitter sampler when the caller
// hasn't pinned one; time.Now().UnixNano() is the idiomatic stdlib seed
// source sqldef itself never needed (it has no randomized delays).
func reseedSource() int64 {
	return time.Now().UnixNano()
}
