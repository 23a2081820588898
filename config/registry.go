package config

// BackendInfo names one registered engine/cache/syntax backend, for the
// --engine-info/--parser-info/--cache-info introspection flags.
type BackendInfo struct {
	Name        string
	Description string
}

// Engines lists the remote search backends quantityer can issue
// sub-queries through.
var Engines = []BackendInfo{
	{Name: "github", Description: "google/go-github-backed search over repositories, code, commits, issues, users, and topics"},
}

// Caches lists the cache backends that can store rendered-sub-query
// counts.
var Caches = []BackendInfo{
	{Name: "memory", Description: "in-memory map, discarded at process exit"},
	{Name: "bolt", Description: "go.etcd.io/bbolt-backed persistent key/value store"},
}

// Syntaxes lists the query grammars the parser can be configured for.
var Syntaxes = []BackendInfo{
	{Name: "brackets", Description: "bracket-syntax Boolean query language ([and] {or} ~not @def $ref)"},
}
