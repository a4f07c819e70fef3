// Package transport decorates http.RoundTripper with the cross-cutting
// behaviour every authenticated API call needs: credential stamping,
// a single coordinated refresh-and-retry on 401, request correlation IDs
// and request logging. Decorators are composed outside-in, so a retried
// request passes back through the credential layer and picks up the
// refreshed token.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"
	bearerPrefix        = "Bearer "
)

// TokenSource provides the current bearer credential. An empty string means
// no credential is held and the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// RefreshCoordinator couples the shared token refresh with terminal session
// teardown. Refresh must be safe under concurrent callers: every caller of an
// in-flight refresh shares its one result. Invalidate is called when a
// request still reports unauthorized after a successful refresh, which means
// the session is beyond recovery.
type RefreshCoordinator interface {
	Refresh(ctx context.Context) (string, error)
	Invalidate()
}

type credentialTransport struct {
	next   http.RoundTripper
	source TokenSource
}

// Credential stamps the Authorization header with the source's current token.
// Requests are cloned before mutation; without a token the request passes
// through unmodified.
func Credential(next http.RoundTripper, source TokenSource) http.RoundTripper {
	return &credentialTransport{next: next, source: source}
}

func (t *credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := t.source.Token(req.Context())
	if tok == "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(authorizationHeader, bearerPrefix+tok)
	return t.next.RoundTrip(clone)
}

type retryTransport struct {
	next        http.RoundTripper
	coordinator RefreshCoordinator
}

// RetryUnauthorized replays a request at most once after a 401, behind the
// coordinator's shared refresh. A failed refresh propagates the original 401;
// a second 401 after replay invalidates the session and propagates - there is
// no loop. Transport errors and timeouts bypass the refresh path entirely:
// they are network faults, not credential expiry.
func RetryUnauthorized(next http.RoundTripper, coordinator RefreshCoordinator) http.RoundTripper {
	return &retryTransport{next: next, coordinator: coordinator}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// A request whose body cannot be re-materialised cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	if _, rerr := t.coordinator.Refresh(req.Context()); rerr != nil {
		// Failed refresh: surface the original 401. The coordinator already
		// tore the session down if the failure was terminal.
		return resp, nil
	}

	// Drain and close the stale response before reusing the connection.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return resp, nil
		}
		retry.Body = body
	}
	// Drop the stale credential; the credential layer below re-stamps the
	// refreshed token on the way back down.
	retry.Header.Del(authorizationHeader)

	replayResp, replayErr := t.next.RoundTrip(retry)
	if replayErr == nil && replayResp.StatusCode == http.StatusUnauthorized {
		// Unauthorized even with a fresh credential: give up on the session.
		t.coordinator.Invalidate()
	}
	return replayResp, replayErr
}

type requestIDTransport struct {
	next http.RoundTripper
}

// RequestID stamps a correlation ID on every outgoing request, preserving one
// already set by the caller.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return &requestIDTransport{next: next}
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(requestIDHeader) != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set(requestIDHeader, uuid.New().String())
	return t.next.RoundTrip(clone)
}

type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

// Logger emits a debug line per request with method, path, status and
// duration.
func Logger(next http.RoundTripper, logger zerolog.Logger) http.RoundTripper {
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	event := t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("request failed")
		return resp, err
	}
	event.Int("status", resp.StatusCode).Msg("request")
	return resp, err
}
