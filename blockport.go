// Package blockport wires the BlockPort client SDK together: configuration,
// the persisted session store, the session manager, and the authenticated
// API client with its transport stack.
package blockport

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/blockport/blockport-go/api"
	"github.com/blockport/blockport-go/internal/config"
	"github.com/blockport/blockport-go/session"
	"github.com/blockport/blockport-go/session/storage"
	"github.com/blockport/blockport-go/session/storage/filestore"
	"github.com/blockport/blockport-go/transport"
)

// Client is the assembled SDK. Session is the only component allowed to read
// or write tokens; API calls are authenticated transparently through the
// transport stack.
type Client struct {
	Session *session.Manager
	API     *api.Client
}

type settings struct {
	store         storage.Store
	logger        zerolog.Logger
	baseTransport http.RoundTripper
}

// Option defines a function type to modify the SDK assembly.
type Option func(*settings)

// WithStore substitutes the session persistence backend. Defaults to the
// file store at the configured session file path.
func WithStore(store storage.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithLogger sets the logger shared by the session manager and transport.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithBaseTransport substitutes the innermost http.RoundTripper (primarily
// for testing).
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.baseTransport = rt
	}
}

// New assembles the SDK from configuration. The returned client has already
// hydrated the session from persisted storage; callers that want cross-tab
// consistency additionally start Watch.
func New(cfg config.Config, options ...Option) (*Client, error) {
	s := settings{
		logger:        zerolog.Nop(),
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range options {
		opt(&s)
	}

	if s.store == nil {
		var storeOptions []filestore.Option
		if passphrase := cfg.GetSessionPassphrase(); passphrase != "" {
			storeOptions = append(storeOptions, filestore.WithPassphrase(passphrase))
		}
		s.store = filestore.New(cfg.GetSessionFile(), storeOptions...)
	}

	// Auth endpoints go through a plain stack - no credential stamping, no
	// retry-on-401 - so a rejected refresh can never recurse into itself.
	logged := transport.Logger(s.baseTransport, s.logger)
	authHTTP := &http.Client{
		Transport: transport.RequestID(logged),
		Timeout:   cfg.GetHTTPTimeout(),
	}
	authAPI := api.New(cfg.GetAPIBaseURL(), authHTTP, api.WithUserAgent(cfg.GetUserAgent()))

	manager, err := session.NewManager(authAPI, s.store,
		session.WithRefreshSkew(cfg.GetRefreshSkew()),
		session.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}

	// Resource calls carry the credential and the coordinated
	// refresh-and-retry behaviour. Credential sits inside the retry layer so
	// a replayed request picks up the refreshed token.
	stack := transport.RequestID(
		transport.RetryUnauthorized(
			transport.Credential(logged, manager),
			manager,
		),
	)
	apiHTTP := &http.Client{
		Transport: stack,
		Timeout:   cfg.GetHTTPTimeout(),
	}
	resourceAPI := api.New(cfg.GetAPIBaseURL(), apiHTTP, api.WithUserAgent(cfg.GetUserAgent()))

	manager.Hydrate()

	return &Client{
		Session: manager,
		API:     resourceAPI,
	}, nil
}

// WatchSession starts cross-process session watching on the client's store.
func (c *Client) WatchSession(ctx context.Context) error {
	return c.Session.Watch(ctx)
}
