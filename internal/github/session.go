package github

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/repomine/repomine/internal/metrics"
)

// DefaultTimeout is the HTTP request timeout for API calls.
const DefaultTimeout = 30 * time.Second

// Session is an authenticated connection to one GitHub repository. It owns
// the rate limiter shared by every collection it hands out.
type Session struct {
	gh      *gh.Client
	limiter *RateLimiter
	log     zerolog.Logger
	owner   string
	repo    string
}

// NewSession creates a session for repo ("owner/name") authenticated with a
// personal access token.
func NewSession(ctx context.Context, token, repo string, log zerolog.Logger) (*Session, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	return &Session{
		gh:      gh.NewClient(tc),
		limiter: NewRateLimiter(),
		log:     log,
		owner:   owner,
		repo:    name,
	}, nil
}

// Repo returns the owner/name the session is bound to.
func (s *Session) Repo() string {
	return s.owner + "/" + s.repo
}

// Validate checks the token by fetching the authenticated user.
func (s *Session) Validate(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	user, resp, err := s.gh.Users.Get(ctx, "")
	metrics.APIRequests.WithLabelValues("get_user").Inc()
	if err != nil {
		return s.wrapError(err, "validate credentials")
	}
	s.update(resp)

	s.log.Debug().Str("login", user.GetLogin()).Msg("credentials validated")
	return nil
}

// Remaining returns the API calls left in the current quota window.
func (s *Session) Remaining() int {
	return s.limiter.Remaining()
}

// WaitForReset blocks until the quota window resets.
func (s *Session) WaitForReset(ctx context.Context) error {
	resetAt := s.limiter.ResetTime()
	s.log.Info().Time("reset_at", resetAt).Msg("sleeping until rate limit reset")
	return s.limiter.WaitForReset(ctx)
}

// update refreshes rate-limit state from a response.
func (s *Session) update(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	s.limiter.UpdateFromResponse(resp.Response)
}

// wrapError converts go-github errors into the session's typed errors.
// Primary and secondary rate limits both become *RateLimitError so the
// extraction loop treats them uniformly.
func (s *Session) wrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &RateLimitError{
			ResetAt:   rateLimitErr.Rate.Reset.Time,
			Remaining: rateLimitErr.Rate.Remaining,
			Limit:     rateLimitErr.Rate.Limit,
		}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		resetAt := time.Now().Add(time.Minute)
		if abuseErr.RetryAfter != nil {
			resetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{
			ResetAt:   resetAt,
			Remaining: s.limiter.Remaining(),
			Limit:     s.limiter.Limit(),
		}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		url := ""
		if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
			url = ghErr.Response.Request.URL.String()
		}
		return &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
			URL:        url,
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}
