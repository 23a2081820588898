// Package config implements the CLI and YAML configuration surface of §6:
// a github.com/jessevdk/go-flags option struct in the shape of the
// teacher's cmd/mysqldef/mysqldef.go, plus a gopkg.in/yaml.v3 file layer
// merged under it the way database.MergeGeneratorConfig merges configs.
package config

import (
	"fmt"
	"strings"
)

// KV is one "key=value" engine/cache/syntax option, parsed from a single
// repeatable flag occurrence.
type KV struct {
	Key, Value string
}

// UnmarshalFlag implements flags.Unmarshaler so go-flags can parse each
// repeated "--engine-opt key=value" occurrence directly into a KV.
func (kv *KV) UnmarshalFlag(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	kv.Key, kv.Value = key, val
	return nil
}

// KVMap flattens a []KV into a map, last write wins for duplicate keys.
func KVMap(kvs []KV) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

// InputCache names one persistent cache to merge in before evaluation,
// parsed from "type:path" (e.g. "bolt:./seen.cache").
type InputCache struct {
	Type, Path string
}

func (c *InputCache) UnmarshalFlag(value string) error {
	typ, path, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("expected type:path, got %q", value)
	}
	c.Type, c.Path = typ, path
	return nil
}

// LogSink names one log file destination at a given verbosity, parsed
// from "level:path" (e.g. "warning:./run.log").
type LogSink struct {
	Level, Path string
}

func (s *LogSink) UnmarshalFlag(value string) error {
	level, path, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("expected level:path, got %q", value)
	}
	s.Level, s.Path = level, path
	return nil
}

// Options is the full CLI surface of §6, parsed by github.com/jessevdk/
// go-flags the way cmd/mysqldef/mysqldef.go's opts struct is.
type Options struct {
	Input  []string `short:"i" long:"input" description:"add input file(s)/directory(ies)" value-name:"path"`
	Output string   `short:"o" long:"output" description:"output directory (one file per query)" value-name:"dir"`

	Simulate    bool `short:"s" long:"simulate" description:"simulation mode: count sub-queries without issuing them"`
	Approximate bool `short:"p" long:"approximate" description:"admit incomplete results instead of failing on a rejected sub-query"`

	Engine     string `short:"e" long:"engine" default:"github" description:"remote search engine backend" value-name:"name"`
	EngineOpts []KV   `long:"engine-opt" description:"engine option key=value (repeatable)"`

	Syntax     string `short:"x" long:"syntax" default:"brackets" description:"query grammar" value-name:"name"`
	SyntaxOpts []KV   `long:"syntax-opt" description:"syntax option key=value (repeatable)"`

	Cache     string `short:"c" long:"cache" default:"memory" description:"cache backend" value-name:"name"`
	CacheOpts []KV   `long:"cache-opt" description:"cache option key=value (repeatable)"`

	InputCaches []InputCache `long:"input-cache" description:"merge a persistent cache before evaluation (type:path, repeatable)"`

	LogFiles []LogSink `long:"log-file" description:"add a log sink (level:path, repeatable)"`

	Verbosity string `short:"v" long:"verbosity" default:"info" description:"console log verbosity"`
	Silent    bool   `long:"silent" description:"suppress all console logging"`

	Concurrency int `short:"j" long:"concurrency" default:"1" description:"top-level-query concurrency"`

	Config string `long:"config" description:"YAML option file, merged under CLI flags" value-name:"path"`

	EngineInfo bool `long:"engine-info" description:"list registered engine backends and exit"`
	ParserInfo bool `long:"parser-info" description:"list registered query syntaxes and exit"`
	CacheInfo  bool `long:"cache-info" description:"list registered cache backends and exit"`

	Version bool `long:"version" description:"show version and exit"`
	Help    bool `short:"h" long:"help" description:"show this help"`

	Positional struct {
		Queries []string `positional-arg-name:"query" description:"in-line bracket-syntax quer(y|ies), namespace CONSOLE"`
	} `positional-args:"yes"`
}
