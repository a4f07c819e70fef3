package transport_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/blockport/blockport-go/transport"
)

type fakeSource struct {
	token string
}

func (s *fakeSource) Token(context.Context) string { return s.token }

type fakeCoordinator struct {
	source      *fakeSource
	token       string
	err         error
	calls       atomic.Int32
	invalidated atomic.Int32
}

// Refresh rotates the shared source, mirroring how the session manager hands
// the new token to the credential layer.
func (c *fakeCoordinator) Refresh(context.Context) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	if c.source != nil {
		c.source.token = c.token
	}
	return c.token, nil
}

func (c *fakeCoordinator) Invalidate() { c.invalidated.Add(1) }

// recordingTransport scripts one response per call and records every request
// it sees, with bodies read eagerly so replays can be asserted on.
type recordingTransport struct {
	responses []*http.Response
	err       error
	requests  []*http.Request
	bodies    []string
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.requests = append(rt.requests, req)
	body := ""
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(raw)
	}
	rt.bodies = append(rt.bodies, body)

	if rt.err != nil {
		return nil, rt.err
	}
	resp := rt.responses[0]
	if len(rt.responses) > 1 {
		rt.responses = rt.responses[1:]
	}
	return resp, nil
}

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     http.Header{},
	}
}

func newRequest(t *testing.T, method, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, "http://api.test/contracts", reader)
	require.NoError(t, err)
	return req
}

func TestCredentialStampsBearer(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusOK)}}
	rt := transport.Credential(next, &fakeSource{token: "tok-1"})

	req := newRequest(t, http.MethodGet, "")
	resp, err := rt.RoundTrip(req)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bearer tok-1", next.requests[0].Header.Get("Authorization"))
	// The caller's request is cloned, never mutated.
	require.Empty(t, req.Header.Get("Authorization"))
}

func TestCredentialPassthroughWithoutToken(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusOK)}}
	rt := transport.Credential(next, &fakeSource{})

	_, err := rt.RoundTrip(newRequest(t, http.MethodGet, ""))

	require.NoError(t, err)
	require.Empty(t, next.requests[0].Header.Get("Authorization"))
}

func TestRetryReplaysOnceWithRefreshedToken(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{
		response(http.StatusUnauthorized),
		response(http.StatusOK),
	}}
	source := &fakeSource{token: "stale"}
	coordinator := &fakeCoordinator{source: source, token: "fresh"}
	rt := transport.RetryUnauthorized(transport.Credential(next, source), coordinator)

	resp, err := rt.RoundTrip(newRequest(t, http.MethodPost, `{"amount":10}`))

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(1), coordinator.calls.Load())
	require.Len(t, next.requests, 2)
	require.Equal(t, "Bearer stale", next.requests[0].Header.Get("Authorization"))
	require.Equal(t, "Bearer fresh", next.requests[1].Header.Get("Authorization"))
	// The replay carries the same body as the original.
	require.Equal(t, `{"amount":10}`, next.bodies[0])
	require.Equal(t, `{"amount":10}`, next.bodies[1])
	require.Equal(t, int32(0), coordinator.invalidated.Load())
}

func TestRetryGivesUpAfterSecondUnauthorized(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{
		response(http.StatusUnauthorized),
		response(http.StatusUnauthorized),
	}}
	source := &fakeSource{token: "stale"}
	coordinator := &fakeCoordinator{source: source, token: "fresh"}
	rt := transport.RetryUnauthorized(transport.Credential(next, source), coordinator)

	resp, err := rt.RoundTrip(newRequest(t, http.MethodGet, ""))

	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, next.requests, 2)
	require.Equal(t, int32(1), coordinator.calls.Load())
	require.Equal(t, int32(1), coordinator.invalidated.Load())
}

func TestRetryRefreshFailureReturnsOriginalResponse(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusUnauthorized)}}
	coordinator := &fakeCoordinator{err: errors.New("session expired")}
	rt := transport.RetryUnauthorized(next, coordinator)

	resp, err := rt.RoundTrip(newRequest(t, http.MethodGet, ""))

	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, next.requests, 1)
	require.Equal(t, int32(1), coordinator.calls.Load())
	require.Equal(t, int32(0), coordinator.invalidated.Load())
}

func TestRetrySkipsTransportErrors(t *testing.T) {
	next := &recordingTransport{err: errors.New("connection refused")}
	coordinator := &fakeCoordinator{token: "fresh"}
	rt := transport.RetryUnauthorized(next, coordinator)

	_, err := rt.RoundTrip(newRequest(t, http.MethodGet, ""))

	require.Error(t, err)
	require.Equal(t, int32(0), coordinator.calls.Load())
}

func TestRetrySkipsNonReplayableBody(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusUnauthorized)}}
	coordinator := &fakeCoordinator{token: "fresh"}
	rt := transport.RetryUnauthorized(next, coordinator)

	// A raw reader leaves GetBody unset, so the body cannot be rebuilt.
	req, err := http.NewRequest(http.MethodPost, "http://api.test/upload", io.LimitReader(strings.NewReader("stream"), 6))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)

	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, next.requests, 1)
	require.Equal(t, int32(0), coordinator.calls.Load())
}

func TestRequestIDStamped(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusOK)}}
	rt := transport.RequestID(next)

	_, err := rt.RoundTrip(newRequest(t, http.MethodGet, ""))

	require.NoError(t, err)
	require.NotEmpty(t, next.requests[0].Header.Get("X-Request-ID"))
}

func TestRequestIDPreserved(t *testing.T) {
	next := &recordingTransport{responses: []*http.Response{response(http.StatusOK)}}
	rt := transport.RequestID(next)

	req := newRequest(t, http.MethodGet, "")
	req.Header.Set("X-Request-ID", "caller-chosen")
	_, err := rt.RoundTrip(req)

	require.NoError(t, err)
	require.Equal(t, "caller-chosen", next.requests[0].Header.Get("X-Request-ID"))
}
