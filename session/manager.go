package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/blockport/blockport-go/api"
	interrors "github.com/blockport/blockport-go/internal/errors"
	"github.com/blockport/blockport-go/session/storage"
	"github.com/blockport/blockport-go/token"
)

const genericErrMessage = "request failed, please try again"

// AuthAPI is the wire surface the Manager depends on. *api.Client satisfies
// it; tests substitute a fake.
type AuthAPI interface {
	LoginForm(ctx context.Context, email, password string) (*api.TokenPair, error)
	Register(ctx context.Context, reg api.Registration) (*api.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*api.TokenPair, error)
	LogoutNotify(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (*api.User, error)
}

// Manager owns the session lifecycle: token acquisition, persistence,
// coordinated refresh and teardown. It is process-scoped - it outlives any
// view or request and applies operation results even when nobody is watching.
//
// All state mutations happen under one lock acquisition, so no observer ever
// sees a half-updated session (tokens set, profile missing). The persisted
// record is a projection of memory: writes always go memory-first.
type Manager struct {
	authAPI AuthAPI
	store   storage.Store

	mu        sync.RWMutex
	current   Session
	loading   bool
	lastErr   error
	onExpired func()

	refreshGroup singleflight.Group

	nowTime     func() time.Time
	refreshSkew time.Duration
	logger      zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithRefreshSkew sets how close to expiry the access token may get before
// Token refreshes it ahead of the next request. Zero disables proactive
// refresh, leaving the 401 path as the only trigger.
func WithRefreshSkew(skew time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshSkew = skew
	}
}

// WithLogger sets the logger used for non-fatal session events.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager initializes a Manager with required dependencies.
// Optional configuration can be provided via options (e.g. WithNowTime for testing).
func NewManager(authAPI AuthAPI, store storage.Store, options ...ManagerOption) (*Manager, error) {
	if authAPI == nil {
		return nil, errors.New("[NewManager] authAPI is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	manager := &Manager{
		authAPI: authAPI,
		store:   store,
		nowTime: time.Now,
		logger:  zerolog.Nop(),
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Hydrate rebuilds the in-memory session from the persisted record. An absent
// or corrupt record leaves the session anonymous; hydration never fails the
// caller, so app startup cannot be blocked by bad persisted state.
func (m *Manager) Hydrate() {
	record, err := m.store.Load()
	if err != nil {
		m.logger.Warn().Err(err).Msg("session hydration failed, starting anonymous")
		return
	}
	m.apply(record)
	if record != nil {
		m.logger.Debug().Msg("session hydrated from storage")
	}
}

// Login exchanges credentials for a token pair, fetches the profile, and
// marks the session authenticated. On failure the session stays anonymous and
// the error is retained for ErrorMessage.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.beginOp()

	pair, err := m.authAPI.LoginForm(ctx, email, password)
	if err != nil {
		return m.failOp(errors.Wrap(err, "[Manager.Login] LoginForm"))
	}

	// The profile is fetched before the session is marked authenticated, so
	// tokens and user commit together.
	user, err := m.authAPI.Me(ctx, pair.AccessToken)
	if err != nil {
		return m.failOp(errors.Wrap(err, "[Manager.Login] Me"))
	}

	m.commit(Session{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		User:            user,
		IsAuthenticated: true,
	})
	return nil
}

// Register validates the submission client-side, creates the account, then
// chains into Login. Auto-login after registration is the policy: a created
// account is immediately usable. A retried submission against an existing
// account surfaces EmailTakenErr rather than creating a duplicate.
func (m *Manager) Register(ctx context.Context, reg api.Registration) error {
	if reg.Password != reg.ConfirmPassword {
		// Fails fast: no network call is made for a mismatched confirmation.
		m.setErr(PasswordMismatchErr)
		return PasswordMismatchErr
	}

	m.beginOp()
	if _, err := m.authAPI.Register(ctx, reg); err != nil {
		if api.IsConflict(err) {
			return m.failOp(interrors.Wrapf(EmailTakenErr, "[Manager.Register]"))
		}
		return m.failOp(errors.Wrap(err, "[Manager.Register] Register"))
	}

	return m.Login(ctx, reg.Email, reg.Password)
}

// Logout notifies the server best-effort and always tears the session down
// locally, whatever the network outcome. Logging out an anonymous session is
// a no-op.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	accessToken := m.current.AccessToken
	m.mu.RUnlock()

	if accessToken != "" {
		if err := m.authAPI.LogoutNotify(ctx, accessToken); err != nil {
			m.logger.Debug().Err(err).Msg("logout notify failed")
		}
	}

	m.teardown(false)
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers share a single in-flight exchange; only the first triggers the
// network call. A 401 from the refresh endpoint is terminal: the session is
// torn down, the expiry hook fires once, and SessionExpiredErr is returned to
// every waiting caller. Transport failures leave the session untouched.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	result, err, _ := m.refreshGroup.Do("refresh", func() (interface{}, error) {
		m.mu.RLock()
		refreshToken := m.current.RefreshToken
		m.mu.RUnlock()

		if refreshToken == "" {
			return "", NotAuthenticatedErr
		}

		m.setLoading(true)
		defer m.setLoading(false)

		pair, err := m.authAPI.RefreshToken(ctx, refreshToken)
		if err != nil {
			if api.IsUnauthorized(err) {
				m.logger.Info().Msg("refresh token rejected, session expired")
				m.teardown(true)
				return "", SessionExpiredErr
			}
			return "", errors.Wrap(err, "[Manager.Refresh] RefreshToken")
		}

		m.mu.Lock()
		m.current.AccessToken = pair.AccessToken
		if pair.RefreshToken != "" { // rotated
			m.current.RefreshToken = pair.RefreshToken
		}
		m.persistLocked()
		m.mu.Unlock()

		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate tears the session down and fires the expiry hook. The transport
// layer calls it when a request is rejected even after a successful refresh.
func (m *Manager) Invalidate() {
	m.logger.Info().Msg("session invalidated")
	m.teardown(true)
}

// Token returns the bearer credential for outgoing requests, refreshing ahead
// of time when the held access token expires within the configured skew.
// Opaque tokens skip the proactive path; the server's 401 stays authoritative.
func (m *Manager) Token(ctx context.Context) string {
	m.mu.RLock()
	accessToken := m.current.AccessToken
	refreshToken := m.current.RefreshToken
	m.mu.RUnlock()

	if accessToken == "" {
		return ""
	}
	if refreshToken != "" && m.refreshSkew > 0 && token.ExpiresWithin(accessToken, m.refreshSkew, m.nowTime()) {
		if refreshed, err := m.Refresh(ctx); err == nil {
			return refreshed
		}
	}
	return accessToken
}

// Watch re-hydrates the in-memory session whenever the shared persisted
// record changes, so a logout in another tab or process is observed here.
// Last write wins; the watcher ends when ctx is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	changes, err := m.store.Watch(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.Watch] store.Watch")
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				record, err := m.store.Load()
				if err != nil {
					m.logger.Warn().Err(err).Msg("re-hydration failed after storage change")
					continue
				}
				m.apply(record)
				m.logger.Debug().Msg("session re-hydrated from storage change")
			}
		}
	}()
	return nil
}

// OnSessionExpired registers the hook invoked when a refresh fails
// terminally. The UI layer uses it to redirect to the login screen.
func (m *Manager) OnSessionExpired(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = hook
}

// Current returns a copy of the session state.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.copy()
}

// AccessToken returns the held access token without any refresh attempt.
// Transport code wanting expiry-aware behaviour uses Token instead.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

// CurrentUser returns a copy of the cached profile, or nil when anonymous.
func (m *Manager) CurrentUser() *api.User {
	return m.Current().User
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.IsAuthenticated
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Err returns the last operation's failure, or nil.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// ErrorMessage normalizes the last failure into a user-facing message:
// the server's detail when available, the validation message for client-side
// failures, and a generic fallback for anything unexpected.
func (m *Manager) ErrorMessage() string {
	err := m.Err()
	if err == nil {
		return ""
	}

	var apiErr *api.Error
	if interrors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}

	for _, known := range []error{PasswordMismatchErr, EmailTakenErr, SessionExpiredErr, NotAuthenticatedErr} {
		if interrors.Is(err, known) {
			return known.Error()
		}
	}
	return genericErrMessage
}

// ClearError discards the retained failure. The UI calls this when the user
// dismisses the message or starts a new form.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = nil
}

// beginOp marks an operation in flight and clears any prior failure.
func (m *Manager) beginOp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = true
	m.lastErr = nil
}

// failOp retains the failure, ends the operation, and returns err unchanged.
// The session itself is left as it was.
func (m *Manager) failOp(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	m.lastErr = err
	return err
}

// commit atomically installs the new session and persists its projection.
func (m *Manager) commit(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = sess
	m.loading = false
	m.lastErr = nil
	m.persistLocked()
}

// teardown clears memory and the persisted record. fireHook distinguishes a
// terminal refresh failure (redirect to login) from a plain logout.
func (m *Manager) teardown(fireHook bool) {
	m.mu.Lock()
	m.current = Session{}
	m.loading = false
	m.lastErr = nil
	hook := m.onExpired
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("clearing persisted session failed")
	}

	if fireHook && hook != nil {
		hook()
	}
}

func (m *Manager) apply(record *storage.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = fromRecord(record)
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// persistLocked writes the current session's projection. Persistence failures
// are logged, not fatal: memory remains the source of truth.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.current.record()); err != nil {
		m.logger.Warn().Err(err).Msg("persisting session failed")
	}
}
