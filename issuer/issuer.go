package issuer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/qcount/quantityer/qerr"
)

// Options configures an Issuer's rate-limit, retry, and length-cap policy,
// per spec.md §4.5/§6.
type Options struct {
	// ServerRatePerMinute sets delay = 60/ServerRatePerMinute, the
	// triangular distribution's lower bound and mode.
	ServerRatePerMinute float64
	// WaitingFactor sets the triangular distribution's upper bound as a
	// multiple of delay. Must be >= 1; 1 disables jitter entirely.
	WaitingFactor float64
	MaxLength     int
	// AdmitLongQuery degrades an over-length sub-query to (false, 0)
	// instead of raising a fatal LengthError.
	AdmitLongQuery bool
	// AdmitIncomplete degrades a semantically rejected sub-query (422) to
	// (false, 0) instead of raising a fatal QueryError.
	AdmitIncomplete bool
	// MaxRetries bounds the number of Search attempts made by the
	// cenkalti/backoff/v5 retry loop in issueWithRetry.
	MaxRetries int
}

// Sleeper abstracts time.Sleep so the rate-limit protocol can be exercised
// in tests without actually waiting.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Issuer enforces the rate-limit, retry, and length-cap protocol of §4.5
// around one SearchClient.
type Issuer struct {
	client  SearchClient
	opts    Options
	delay   time.Duration
	limiter *rate.Limiter
	rng     *rand.Rand
	sleeper Sleeper
}

// New returns an Issuer wrapping client under opts. delay = 60/
// server_rate_per_minute is computed once here, per spec.md §4.5. The
// rate.Limiter enforces that delay as a hard floor between requests; the
// triangular jitter sampled on top is what actually varies per request.
func New(client SearchClient, opts Options) *Issuer {
	if opts.WaitingFactor < 1 {
		opts.WaitingFactor = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	delay := time.Duration(float64(time.Minute) / opts.ServerRatePerMinute)
	return &Issuer{
		client:  client,
		opts:    opts,
		delay:   delay,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		rng:     rand.New(rand.NewSource(1)),
		sleeper: realSleeper{},
	}
}

// Reseed reinitializes the triangular-jitter sampler's PRNG. The engine
// calls this once per top-level query so delay sequences are reproducible
// across runs given the same seed, per the reseeding policy of spec.md §6.
func (iss *Issuer) Reseed(seed int64) {
	iss.rng = rand.New(rand.NewSource(seed))
}

// CheckLength reports whether query fits under the configured maximum
// length.
func (iss *Issuer) CheckLength(query string) bool {
	return len(query) <= iss.opts.MaxLength
}

// EstimatedTime returns a wall-clock (min, max) estimate for issuing n
// sub-queries, from the triangular distribution's support.
func (iss *Issuer) EstimatedTime(n int) (time.Duration, time.Duration) {
	lo := time.Duration(float64(iss.delay) * float64(n))
	hi := time.Duration(float64(iss.delay) * iss.opts.WaitingFactor * float64(n))
	return lo, hi
}

// ServerNow reports the remote server's clock.
func (iss *Issuer) ServerNow(ctx context.Context) (time.Time, error) {
	ts, err := iss.client.Now(ctx)
	if err != nil {
		return time.Time{}, classifyToQerr(err, "", "")
	}
	return time.Unix(ts, 0), nil
}

// Issue issues one already-rendered sub-query, applying the rate-limit wait,
// the length check, and the delegated retry loop, per spec.md §4.5. ok is
// false without an error only when a tolerated condition (over-length
// under admit_long_query, or a semantic rejection under admit_incomplete)
// degrades the sub-query's contribution to zero.
func (iss *Issuer) Issue(ctx context.Context, kind Kind, name, query string) (ok bool, count int, err error) {
	if !iss.CheckLength(query) {
		if iss.opts.AdmitLongQuery {
			return false, 0, nil
		}
		return false, 0, &qerr.LengthError{Name: name, Length: len(query), Max: iss.opts.MaxLength}
	}

	if err := iss.waitForRateLimit(ctx); err != nil {
		return false, 0, err
	}

	result, err := iss.issueWithRetry(ctx, kind, query)
	if err != nil {
		var ce *classifiedError
		if errors.As(err, &ce) && ce.kind == errKindQueryRejected && iss.opts.AdmitIncomplete {
			return false, 0, nil
		}
		return false, 0, classifyToQerr(err, name, query)
	}
	_ = result.HasItem // the PerPage:1 fetch above already forced total_count materialization
	return true, result.TotalCount, nil
}

// waitForRateLimit implements the reset-wait + triangular-jitter protocol:
// wait on the hard-floor limiter, then add a randomized extra delay; if the
// server reports its quota exhausted, sleep until its reported reset time
// and re-check before issuing.
func (iss *Issuer) waitForRateLimit(ctx context.Context) error {
	if err := iss.limiter.Wait(ctx); err != nil {
		return &qerr.ConnectionError{Err: err}
	}
	jitter := iss.triangularSample() - iss.delay
	if jitter > 0 {
		iss.sleeper.Sleep(jitter)
	}

	for {
		info, err := iss.client.RateLimit(ctx)
		if err != nil {
			return classifyToQerr(err, "", "")
		}
		if info.Remaining > 0 {
			return nil
		}
		wait := time.Duration(info.ResetAt-info.ServerDate) * time.Second
		if wait <= 0 {
			return nil
		}
		iss.sleeper.Sleep(wait)
	}
}

// triangularSample draws one value from the triangular distribution on
// [delay, delay*waiting_factor] with mode delay, via inverse-transform
// sampling.
func (iss *Issuer) triangularSample() time.Duration {
	a := float64(iss.delay)
	b := a * iss.opts.WaitingFactor
	if b <= a {
		return iss.delay
	}
	c := a // mode == delay, per spec.md §4.5
	u := iss.rng.Float64()
	fc := (c - a) / (b - a)
	var x float64
	if u < fc {
		x = a + math.Sqrt(u*(b-a)*(c-a))
	} else {
		x = b - math.Sqrt((1-u)*(b-a)*(b-c))
	}
	return time.Duration(x)
}

// issueWithRetry retries the Search call itself, through one
// cenkalti/backoff/v5 Retry with exponential back-off, up to MaxRetries
// attempts in all; the SearchClient is not relied on to retry. Retry-After
// headers are not read. Auth and semantic-rejection errors are classified
// backoff.Permanent so they surface on the first attempt instead of being
// retried.
func (iss *Issuer) issueWithRetry(ctx context.Context, kind Kind, query string) (SearchResult, error) {
	b := backoff.NewExponentialBackOff()
	return backoff.Retry(ctx, func() (SearchResult, error) {
		result, err := iss.client.Search(ctx, kind, query)
		if err != nil {
			var ce *classifiedError
			if errors.As(err, &ce) && (ce.kind == errKindAuth || ce.kind == errKindQueryRejected) {
				return SearchResult{}, backoff.Permanent(err)
			}
			return SearchResult{}, err
		}
		return result, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(iss.opts.MaxRetries)))
}

func classifyToQerr(err error, name, query string) error {
	var ce *classifiedError
	if errors.As(err, &ce) {
		switch ce.kind {
		case errKindAuth:
			return &qerr.AuthError{Err: ce.cause}
		case errKindQueryRejected:
			return &qerr.QueryError{Name: name, Query: query, Err: ce.cause}
		default:
			return &qerr.ConnectionError{Err: ce.cause}
		}
	}
	return &qerr.ConnectionError{Err: err}
}
