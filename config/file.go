package config

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qcount/quantityer/qerr"
)

// FileConfig mirrors the subset of Options a YAML file may set defaults
// for, grounded on database.parseGeneratorConfigFromBytes's decode-into-
// an-explicit-struct style (strict, via dec.KnownFields(true)).
type FileConfig struct {
	Engine     string            `yaml:"engine"`
	EngineOpts map[string]string `yaml:"engine_options"`

	Syntax     string            `yaml:"syntax"`
	SyntaxOpts map[string]string `yaml:"syntax_options"`

	Cache     string            `yaml:"cache"`
	CacheOpts map[string]string `yaml:"cache_options"`

	Concurrency int      `yaml:"concurrency"`
	Verbosity   string   `yaml:"verbosity"`
	LogFiles    []string `yaml:"log_files"` // each "level:path", same shape as --log-file
}

// ParseFileConfig reads and strictly decodes the YAML file at path. An
// empty path returns a zero-value FileConfig, matching
// database.ParseGeneratorConfig's empty-configFile short-circuit.
func ParseFileConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, &qerr.FileError{Path: path, Err: err}
	}

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, &qerr.ConfigError{Option: "--config", Msg: err.Error()}
	}
	return fc, nil
}

// Merge applies fc's values as defaults for opts, wherever opts still
// holds its CLI default value (engine "github", syntax "brackets", cache
// "memory", concurrency 1, verbosity "info", or an empty list) — the
// reverse precedence of database.MergeGeneratorConfig, since here the file
// is the base and CLI flags are the override. A flag set explicitly to its
// default value cannot be told apart from an unset one, so the file's
// value replaces it.
func Merge(opts Options, fc FileConfig) Options {
	result := opts

	if fc.Engine != "" && result.Engine == "github" {
		result.Engine = fc.Engine
	}
	if len(result.EngineOpts) == 0 && len(fc.EngineOpts) > 0 {
		result.EngineOpts = kvSliceFromMap(fc.EngineOpts)
	}

	if fc.Syntax != "" && result.Syntax == "brackets" {
		result.Syntax = fc.Syntax
	}
	if len(result.SyntaxOpts) == 0 && len(fc.SyntaxOpts) > 0 {
		result.SyntaxOpts = kvSliceFromMap(fc.SyntaxOpts)
	}

	if fc.Cache != "" && result.Cache == "memory" {
		result.Cache = fc.Cache
	}
	if len(result.CacheOpts) == 0 && len(fc.CacheOpts) > 0 {
		result.CacheOpts = kvSliceFromMap(fc.CacheOpts)
	}

	if fc.Concurrency != 0 && result.Concurrency == 1 {
		result.Concurrency = fc.Concurrency
	}
	if fc.Verbosity != "" && result.Verbosity == "info" {
		result.Verbosity = fc.Verbosity
	}

	if len(result.LogFiles) == 0 {
		for _, raw := range fc.LogFiles {
			var sink LogSink
			if err := sink.UnmarshalFlag(raw); err == nil {
				result.LogFiles = append(result.LogFiles, sink)
			}
		}
	}

	return result
}

func kvSliceFromMap(m map[string]string) []KV {
	kvs := make([]KV, 0, len(m))
	for k, v := range m {
		kvs = append(kvs, KV{Key: k, Value: v})
	}
	return kvs
}
