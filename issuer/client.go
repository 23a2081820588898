// Package issuer implements the rate-limited, retrying sub-query issuer of
// §4.5: it sends an already-rendered sub-query to the remote server,
// respects the server's rate limit and length cap, retries failed search
// calls through cenkalti/backoff/v5, and forces materialization of the
// server's (possibly lazily computed) total count.
package issuer

import "context"

// Kind selects which of the remote server's search endpoints a sub-query
// targets — the server exposes several independently conjunction-only
// search surfaces, each with its own result type but an identical
// rate-limit/pagination contract.
type Kind int

const (
	KindRepositories Kind = iota
	KindCode
	KindCommits
	KindIssues
	KindUsers
	KindTopics
)

func (k Kind) String() string {
	switch k {
	case KindRepositories:
		return "repositories"
	case KindCode:
		return "code"
	case KindCommits:
		return "commits"
	case KindIssues:
		return "issues"
	case KindUsers:
		return "users"
	case KindTopics:
		return "topics"
	default:
		return "unknown"
	}
}

// SearchResult is the information the issuer needs out of one search call:
// the total match count and whether at least one result item was returned
// (forcing lazy total-count computation on backends that defer it until
// the first page is read).
type SearchResult struct {
	TotalCount int
	HasItem    bool
}

// RateLimitInfo mirrors the server's rate-limit introspection response.
type RateLimitInfo struct {
	Limit       int
	Remaining   int
	ResetAt     int64 // unix seconds
	ServerDate  int64 // unix seconds, the Date header as reported by the server
}

// SearchClient abstracts the remote conjunction-only search API, decoupling
// the issuer from any one concrete HTTP client the way database.Database
// decouples schema.Generator from a concrete SQL driver.
type SearchClient interface {
	// Search issues one conjunctive query against the given kind's search
	// endpoint and returns its total match count.
	Search(ctx context.Context, kind Kind, query string) (SearchResult, error)
	// RateLimit reports the client's current rate-limit state.
	RateLimit(ctx context.Context) (RateLimitInfo, error)
	// Now reports the server's clock (Issuer.ServerNow). The reset wait
	// does not call it; it uses RateLimitInfo.ServerDate instead.
	Now(ctx context.Context) (int64, error)
}
