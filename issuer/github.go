package issuer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/qcount/quantityer/qerr"
)

// GitHubClient is the default SearchClient, backed by google/go-github.
type GitHubClient struct {
	gh *github.Client
}

// NewGitHubClient builds a GitHubClient authenticating with token (an
// empty token issues unauthenticated, more heavily rate-limited requests).
func NewGitHubClient(ctx context.Context, token string) *GitHubClient {
	if token == "" {
		return &GitHubClient{gh: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubClient{gh: github.NewClient(oauth2.NewClient(ctx, ts))}
}

func (c *GitHubClient) Search(ctx context.Context, kind Kind, query string) (SearchResult, error) {
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}

	var total int
	var hasItem bool
	var resp *github.Response
	var err error

	switch kind {
	case KindRepositories:
		var result *github.RepositoriesSearchResult
		result, resp, err = c.gh.Search.Repositories(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.Repositories) > 0
		}
	case KindCode:
		var result *github.CodeSearchResult
		result, resp, err = c.gh.Search.Code(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.CodeResults) > 0
		}
	case KindCommits:
		var result *github.CommitsSearchResult
		result, resp, err = c.gh.Search.Commits(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.Commits) > 0
		}
	case KindIssues:
		var result *github.IssuesSearchResult
		result, resp, err = c.gh.Search.Issues(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.Issues) > 0
		}
	case KindUsers:
		var result *github.UsersSearchResult
		result, resp, err = c.gh.Search.Users(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.Users) > 0
		}
	case KindTopics:
		var result *github.TopicsSearchResult
		result, resp, err = c.gh.Search.Topics(ctx, query, opts)
		if result != nil {
			total, hasItem = result.GetTotal(), len(result.Topics) > 0
		}
	default:
		return SearchResult{}, &qerr.EngineError{Msg: fmt.Sprintf("issuer: unknown search kind %v", kind)}
	}

	if err != nil {
		return SearchResult{}, &classifiedError{kind: classify(err), cause: err}
	}
	return SearchResult{TotalCount: total, HasItem: hasItem}, nil
}

func (c *GitHubClient) RateLimit(ctx context.Context) (RateLimitInfo, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return RateLimitInfo{}, &classifiedError{kind: classify(err), cause: err}
	}
	search := limits.GetSearch()
	info := RateLimitInfo{
		Limit:     search.Limit,
		Remaining: search.Remaining,
		ResetAt:   search.Reset.Unix(),
	}
	if resp != nil && resp.Response != nil {
		if date, err := http.ParseTime(resp.Response.Header.Get("Date")); err == nil {
			info.ServerDate = date.Unix()
		}
	}
	if info.ServerDate == 0 {
		info.ServerDate = time.Now().Unix()
	}
	return info, nil
}

func (c *GitHubClient) Now(ctx context.Context) (int64, error) {
	info, err := c.RateLimit(ctx)
	if err != nil {
		return 0, err
	}
	return info.ServerDate, nil
}

// errorKind classifies a transport/API error so the issuer can decide, with
// the name and rendered query it alone knows, which qerr type to surface:
// authentication and connection failures are always fatal; a 422
// (semantically rejected sub-query) is fatal only outside admit_incomplete;
// a rate-limit rejection is retried like any other connection hiccup
// rather than treated as a permanent auth failure.
type errorKind int

const (
	errKindConnection errorKind = iota
	errKindAuth
	errKindQueryRejected
	errKindRateLimited
)

// classifiedError carries an errorKind alongside the original error so
// issuer.go can translate it into the right qerr type without losing the
// underlying cause.
type classifiedError struct {
	kind  errorKind
	cause error
}

func (e *classifiedError) Error() string { return e.cause.Error() }
func (e *classifiedError) Unwrap() error { return e.cause }

// classify distinguishes 401 (genuine auth failure, never retried) from
// 403, which GitHub's search API also returns for primary/secondary rate
// limiting and abuse detection; per the status-force-list, 403 belongs in
// the retryable bucket alongside plain connection errors, not the
// permanent-auth bucket.
func classify(err error) errorKind {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return errKindAuth
		case http.StatusForbidden:
			return errKindRateLimited
		case http.StatusUnprocessableEntity:
			return errKindQueryRejected
		}
	}
	return errKindConnection
}
