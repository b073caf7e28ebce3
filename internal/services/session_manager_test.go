package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/nfse-api/internal/config"
	"github.com/nexconsult/nfse-api/internal/logger"
)

type fakeProvider struct {
	logins  atomic.Int32
	session func(n int32) (Session, error)
}

func (p *fakeProvider) Login(ctx context.Context, creds *config.Credentials) (Session, error) {
	n := p.logins.Add(1)
	if p.session != nil {
		return p.session(n)
	}
	return Session{Cookies: []string{fmt.Sprintf("sid=%d", n)}}, nil
}

func newTestManager(provider SessionProvider) *SessionManager {
	creds := staticCredentials{creds: &config.Credentials{Bundle: []byte("pfx"), Passphrase: "x"}}
	return NewSessionManager(provider, creds, nil, logger.NewDiscard())
}

func TestSessionManager_EnsureCaches(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	first, err := manager.Ensure(context.Background())
	require.NoError(t, err)
	second, err := manager.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, provider.logins.Load())
	assert.True(t, manager.Cached())

	manager.Invalidate()
	assert.False(t, manager.Cached())
	third, err := manager.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sid=2", third.Header())
}

func TestSessionManager_EnsureConcurrentCallersShareLogin(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Ensure(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, provider.logins.Load())
}

func TestSessionManager_EnsureFailures(t *testing.T) {
	t.Run("credentials unavailable", func(t *testing.T) {
		provider := &fakeProvider{}
		manager := NewSessionManager(provider, staticCredentials{err: errors.New("NFSE_CERT_PATH is not set")}, nil, logger.NewDiscard())

		_, err := manager.Ensure(context.Background())
		var appErr *ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, err.Error(), "NFSE_CERT_PATH")
		assert.EqualValues(t, 0, provider.logins.Load())
	})

	t.Run("no credential source", func(t *testing.T) {
		manager := NewSessionManager(&fakeProvider{}, nil, nil, logger.NewDiscard())
		_, err := manager.Ensure(context.Background())
		var appErr *ApplicationError
		assert.ErrorAs(t, err, &appErr)
	})

	t.Run("empty session", func(t *testing.T) {
		provider := &fakeProvider{session: func(int32) (Session, error) { return Session{}, nil }}
		manager := newTestManager(provider)

		_, err := manager.Ensure(context.Background())
		var appErr *ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.False(t, manager.Cached())
	})

	t.Run("login error is wrapped", func(t *testing.T) {
		provider := &fakeProvider{session: func(int32) (Session, error) { return Session{}, errors.New("tls: handshake failure") }}
		_, err := newTestManager(provider).Ensure(context.Background())
		var appErr *ApplicationError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, err.Error(), "handshake")
	})
}

func TestSessionManager_WithAutoLoginRetriesOnce(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	var attempts []string
	err := manager.WithAutoLogin(context.Background(), func(ctx context.Context, s Session) error {
		attempts = append(attempts, s.Header())
		if len(attempts) == 1 {
			return newUnauthenticatedError("test", "/Login")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"sid=1", "sid=2"}, attempts)
	assert.EqualValues(t, 2, provider.logins.Load())
}

func TestSessionManager_WithAutoLoginSecondExpiryPropagates(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	attempts := 0
	err := manager.WithAutoLogin(context.Background(), func(ctx context.Context, s Session) error {
		attempts++
		return newUnauthenticatedError("test", "/Login")
	})

	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, 2, attempts)
	assert.EqualValues(t, 2, provider.logins.Load())
}

func TestSessionManager_WithAutoLoginOtherErrorsNotRetried(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)
	boom := errors.New("portal answered with status 500")

	attempts := 0
	err := manager.WithAutoLogin(context.Background(), func(ctx context.Context, s Session) error {
		attempts++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.EqualValues(t, 1, provider.logins.Load())
	assert.True(t, manager.Cached(), "the session is kept on unrelated failures")
}

func TestSessionManager_StaleInvalidationKeepsFreshSession(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	stale, err := manager.Ensure(context.Background())
	require.NoError(t, err)

	manager.Invalidate()
	fresh, err := manager.Ensure(context.Background())
	require.NoError(t, err)

	manager.invalidateStale(stale)
	cached, err := manager.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, cached)
	assert.EqualValues(t, 2, provider.logins.Load())
}

func TestCall_ReturnsValue(t *testing.T) {
	provider := &fakeProvider{}
	manager := newTestManager(provider)

	calls := 0
	value, err := Call(context.Background(), manager, func(ctx context.Context, s Session) (string, error) {
		calls++
		if calls == 1 {
			return "", newUnauthenticatedError("test", "")
		}
		return "ok:" + s.Header(), nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok:sid=2", value)
}
