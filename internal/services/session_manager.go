package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
)

// SessionProvider obtains a fresh portal session from certificate credentials
type SessionProvider interface {
	Login(ctx context.Context, creds *config.Credentials) (Session, error)
}

// CredentialSource supplies the certificate bundle used for logins
type CredentialSource interface {
	Credentials() (*config.Credentials, error)
}

// SessionManager caches one portal session and transparently logs in again
// when an operation reports that the session expired.
type SessionManager struct {
	provider    SessionProvider
	credentials CredentialSource
	metrics     *PortalMetrics
	logger      *logrus.Logger

	// mu is held for the whole of Ensure so concurrent callers share a
	// single login
	mu      sync.Mutex
	session *Session
}

// NewSessionManager creates a new session manager
func NewSessionManager(provider SessionProvider, credentials CredentialSource, metrics *PortalMetrics, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		provider:    provider,
		credentials: credentials,
		metrics:     metrics,
		logger:      logger,
	}
}

// Ensure returns the cached session, logging in first when there is none
func (m *SessionManager) Ensure(ctx context.Context) (Session, error) {
	const op = "session"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return *m.session, nil
	}

	if m.credentials == nil {
		return Session{}, newAppError(op, "certificate credentials are not configured", nil)
	}
	creds, err := m.credentials.Credentials()
	if err != nil {
		return Session{}, newAppError(op, "certificate credentials are not available", err)
	}

	session, err := m.provider.Login(ctx, creds)
	if err != nil {
		var appErr *ApplicationError
		if errors.As(err, &appErr) {
			return Session{}, err
		}
		return Session{}, newAppError(op, "login failed", err)
	}
	if session.Empty() {
		return Session{}, newAppError(op, "login returned no session cookies", nil)
	}

	m.session = &session
	m.logger.Debug("Portal session established")
	return session, nil
}

// Invalidate drops the cached session
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// invalidateStale drops the cached session only if it is still the one that
// expired, so a session refreshed by a concurrent caller survives
func (m *SessionManager) invalidateStale(stale Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.Header() == stale.Header() {
		m.session = nil
	}
}

// WithAutoLogin runs action with a valid session. When action reports an
// expired session it is retried exactly once with a fresh login; a second
// expiry is returned to the caller.
func (m *SessionManager) WithAutoLogin(ctx context.Context, action func(context.Context, Session) error) error {
	session, err := m.Ensure(ctx)
	if err != nil {
		return err
	}

	err = action(ctx, session)
	if !IsUnauthenticated(err) {
		return err
	}

	m.logger.WithError(err).Info("Portal session expired, logging in again")
	m.metrics.RecordReauth()
	m.invalidateStale(session)

	session, err = m.Ensure(ctx)
	if err != nil {
		return err
	}
	return action(ctx, session)
}

// Call is WithAutoLogin for actions that produce a value
func Call[T any](ctx context.Context, m *SessionManager, action func(context.Context, Session) (T, error)) (T, error) {
	var result T
	err := m.WithAutoLogin(ctx, func(ctx context.Context, session Session) error {
		value, err := action(ctx, session)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// Cached reports whether a session is currently held
func (m *SessionManager) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}
