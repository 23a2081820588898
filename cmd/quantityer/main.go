package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/qcount/quantityer/cache"
	"github.com/qcount/quantityer/config"
	"github.com/qcount/quantityer/engine"
	"github.com/qcount/quantityer/logging"
	"github.com/qcount/quantityer/qerr"
	"github.com/qcount/quantityer/runner"
	"github.com/qcount/quantityer/translate"
)

func main() {
	opts, p, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit((&qerr.ConfigError{Option: "args", Msg: err.Error()}).ExitCode())
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	if opts.EngineInfo {
		printInfo("engine", config.Engines)
		os.Exit(0)
	}
	if opts.ParserInfo {
		printInfo("parser", config.Syntaxes)
		os.Exit(0)
	}
	if opts.CacheInfo {
		printInfo("cache", config.Caches)
		os.Exit(0)
	}
	if opts.Help {
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if err := runMain(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ec qerr.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}

func runMain(opts config.Options) error {
	fc, err := config.ParseFileConfig(opts.Config)
	if err != nil {
		return err
	}
	opts = config.Merge(opts, fc)

	consoleLevel := logging.LevelInfo
	if opts.Silent {
		consoleLevel = logging.LevelCritical
	} else if opts.Verbosity != "" {
		consoleLevel, err = logging.ParseLevel(opts.Verbosity)
		if err != nil {
			return err
		}
	}
	sinks, err := buildLogSinks(opts)
	if err != nil {
		return err
	}
	logger, closer, err := logging.Setup(consoleLevel, sinks)
	if err != nil {
		return err
	}
	defer closer.Close()

	p := buildParser(opts, logger)

	sources := runner.CollectPositional(opts.Positional.Queries)
	fileSources, err := runner.CollectPaths(opts.Input)
	if err != nil {
		return err
	}
	sources = append(sources, fileSources...)

	jobs, err := runner.CollectJobs(p, sources)
	if err != nil {
		return err
	}
	logger.Info("collected queries", "count", len(jobs))

	c, err := buildCache(opts)
	if err != nil {
		return err
	}
	if err := mergeInputCaches(c, opts.InputCaches); err != nil {
		return err
	}
	if opts.Concurrency > 1 {
		c = cache.Synchronized(c)
	}
	defer c.Close()

	iss, kind, err := buildIssuer(opts)
	if err != nil {
		return err
	}

	translator := translate.NewSpaces(p.Symbols)
	eng := engine.New(c, iss, translator, engine.Options{
		Kind:            kind,
		Simulate:        opts.Simulate,
		AdmitIncomplete: opts.Approximate,
		Seed:            reseedSource(),
	})

	r := &runner.Runner{
		Engine:      eng,
		Cache:       c,
		Outputs:     buildOutputs(opts),
		Concurrency: opts.Concurrency,
		Simulate:    opts.Simulate,
	}

	results, err := r.Run(context.Background(), jobs)
	for _, res := range results {
		if res.Err != nil {
			logger.Error("query failed", "name", res.Job.Name, "error", res.Err)
		}
	}
	return err
}
