package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/syllabus-tracker/clock"
	"github.com/jrsteele09/syllabus-tracker/identity"
	"github.com/jrsteele09/syllabus-tracker/internal/config"
	apperrors "github.com/jrsteele09/syllabus-tracker/internal/errors"
	"github.com/jrsteele09/syllabus-tracker/kvstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Storage keys used by the two apps
const (
	StudentSessionKey = "igcse_user_session"
	TeacherSessionKey = "igcse_teacher_session"
)

const LogoutPrompt = "Are you sure you want to log out? Your progress will be saved."

// Confirmer asks the user a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt, for non-interactive embedding.
var AlwaysConfirm = ConfirmerFunc(func(context.Context, string) (bool, error) { return true, nil })

// LoginHook runs after a session becomes active through Login or a first Restore.
type LoginHook func(ctx context.Context, s Session)

// Manager owns the single local session of a profile and its expiry timer.
type Manager struct {
	store      kvstore.Repo
	auth       identity.Authenticator
	codec      *blobCodec
	timeout    time.Duration
	storageKey string
	clock      clock.Clock
	confirm    Confirmer
	hooks      []LoginHook
	logger     zerolog.Logger

	mu      sync.Mutex
	current *Session
	timer   clock.Timer
	gen     uint64 // bumped on every (re)schedule so stale timer callbacks are ignored
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithClock(c clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithConfirmer(c Confirmer) ManagerOption {
	return func(m *Manager) {
		m.confirm = c
	}
}

// WithStorageKey selects the key the session blob is stored under (default StudentSessionKey).
func WithStorageKey(key string) ManagerOption {
	return func(m *Manager) {
		m.storageKey = key
	}
}

func WithLoginHook(hook LoginHook) ManagerOption {
	return func(m *Manager) {
		m.hooks = append(m.hooks, hook)
	}
}

// NewManager initializes a Manager with required dependencies.
func NewManager(store kvstore.Repo, auth identity.Authenticator, cfg config.SessionConfig, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if auth == nil {
		return nil, errors.New("[NewManager] authenticator is required")
	}
	if cfg == nil || cfg.GetSessionTimeout() <= 0 {
		return nil, errors.New("[NewManager] a positive session timeout is required")
	}
	codec, err := newBlobCodec(cfg.GetSessionSecret())
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager]")
	}

	m := &Manager{
		store:      store,
		auth:       auth,
		codec:      codec,
		timeout:    cfg.GetSessionTimeout(),
		storageKey: StudentSessionKey,
		clock:      clock.Real(),
		confirm:    AlwaysConfirm,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Login exchanges a provider response for a new session and persists it.
func (m *Manager) Login(ctx context.Context, token *oauth2.Token) (Session, error) {
	if token == nil || token.AccessToken == "" {
		return Session{}, apperrors.Mark(errors.New("[Manager.Login] invalid response from identity provider"), apperrors.ErrAuth)
	}
	user, err := m.auth.Authenticate(ctx, token)
	if err != nil {
		return Session{}, apperrors.Mark(errors.Wrap(err, "[Manager.Login]"), apperrors.ErrAuth)
	}
	if !user.Complete() {
		return Session{}, apperrors.Mark(errors.New("[Manager.Login] incomplete identity"), apperrors.ErrAuth)
	}

	// the persisted exp claim has whole-second precision
	s := Session{User: user, ExpiresAt: m.clock.Now().Add(m.timeout).Truncate(time.Second)}
	m.persist(ctx, s)

	m.mu.Lock()
	m.current = &s
	m.scheduleExpiryLocked(s.ExpiresAt)
	m.mu.Unlock()

	m.logger.Info().Str("email", user.Email).Time("expires_at", s.ExpiresAt).Msg("signed in")
	m.runHooks(ctx, s)
	return s, nil
}

// Restore reads the persisted session. An expired or unreadable blob is removed and nil
// returned. A valid session gets its expiry timer rescheduled. When the store itself fails
// the blob is left alone.
func (m *Manager) Restore(ctx context.Context) *Session {
	blob, err := m.store.Get(ctx, m.storageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		m.clear(ctx)
		return nil
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("reading persisted session")
		return nil
	}

	now := m.clock.Now()
	s, err := m.codec.decode(blob, now)
	if err != nil || !s.ValidAt(now) || !s.User.Complete() {
		m.logger.Info().Err(err).Msg("discarding persisted session")
		m.clear(ctx)
		return nil
	}

	m.mu.Lock()
	activated := m.current == nil || m.current.User.ID != s.User.ID || m.current.User.Email != s.User.Email
	if activated {
		m.current = &s
	}
	restored := *m.current
	m.scheduleExpiryLocked(restored.ExpiresAt)
	m.mu.Unlock()

	if activated {
		m.runHooks(ctx, restored)
	}
	return &restored
}

// Foreground re-validates the session when the app becomes active again.
func (m *Manager) Foreground(ctx context.Context) *Session {
	if !m.Authenticated() {
		return nil
	}
	return m.Restore(ctx)
}

// Logout asks for confirmation and, when given, destroys the session.
func (m *Manager) Logout(ctx context.Context) (bool, error) {
	ok, err := m.confirm.Confirm(ctx, LogoutPrompt)
	if err != nil {
		return false, errors.Wrap(err, "[Manager.Logout] confirmation")
	}
	if !ok {
		return false, nil
	}
	m.clear(ctx)
	m.logger.Info().Msg("signed out")
	return true, nil
}

// Current returns the active session, clearing it first if it has expired.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	if !s.ValidAt(m.clock.Now()) {
		m.clear(context.Background())
		return nil
	}
	out := *s
	return &out
}

func (m *Manager) Authenticated() bool {
	return m.Current() != nil
}

// Stop cancels the expiry timer without touching the session, for teardown.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
}

func (m *Manager) persist(ctx context.Context, s Session) {
	blob, err := m.codec.encode(s)
	if err != nil {
		m.logger.Warn().Err(err).Msg("encoding session")
		return
	}
	if err := m.store.Set(ctx, m.storageKey, blob); err != nil {
		m.logger.Warn().Err(err).Msg("persisting session")
	}
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.store.Delete(ctx, m.storageKey); err != nil {
		m.logger.Warn().Err(err).Msg("removing persisted session")
	}
	m.mu.Lock()
	m.current = nil
	m.stopTimerLocked()
	m.mu.Unlock()
}

func (m *Manager) scheduleExpiryLocked(at time.Time) {
	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(at.Sub(m.clock.Now()), func() {
		m.expire(gen)
	})
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.current == nil {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.timer = nil
	m.mu.Unlock()

	m.logger.Info().Msg("session expired")
	if err := m.store.Delete(context.Background(), m.storageKey); err != nil {
		m.logger.Warn().Err(err).Msg("removing expired session")
	}
}

func (m *Manager) runHooks(ctx context.Context, s Session) {
	for _, hook := range m.hooks {
		hook(ctx, s)
	}
}
