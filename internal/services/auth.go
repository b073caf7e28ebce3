package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	pkcs12 "software.sslmate.com/src/go-pkcs12"

	"github.com/nexconsult/nfse-api/internal/config"
)

// Authenticator performs the certificate login against the portal
type Authenticator struct {
	config  config.PortalConfig
	rootCAs *x509.CertPool
	metrics *PortalMetrics
	logger  *logrus.Logger
}

// NewAuthenticator creates a new authenticator. A nil rootCAs uses the system
// trust store.
func NewAuthenticator(cfg config.PortalConfig, rootCAs *x509.CertPool, metrics *PortalMetrics, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		config:  cfg,
		rootCAs: rootCAs,
		metrics: metrics,
		logger:  logger,
	}
}

// Login presents the client certificate to the portal and returns the cookie
// set it hands out. The login only counts as successful when the portal
// redirects to the dashboard.
func (a *Authenticator) Login(ctx context.Context, creds *config.Credentials) (Session, error) {
	const op = "login"

	if creds == nil {
		return Session{}, newAppError(op, "certificate credentials are missing", nil)
	}

	cert, err := loadClientCertificate(creds.Bundle, creds.Passphrase)
	if err != nil {
		a.metrics.RecordLogin(false)
		return Session{}, newAppError(op, "failed to load client certificate", err)
	}

	client := NewPortalClient(ClientOptions{
		Timeout:         a.config.HTTPTimeout,
		FollowRedirects: false,
		TLSConfig: &tls.Config{
			Certificates:  []tls.Certificate{cert},
			RootCAs:       a.rootCAs,
			MinVersion:    tls.VersionTLS12,
			Renegotiation: tls.RenegotiateOnceAsClient,
		},
	})
	// the transport carries this login's certificate and is not reused
	defer client.CloseIdleConnections()

	target := a.config.BaseURL + certificateLoginPath
	req, err := newPortalRequest(ctx, target, Session{}, a.config.UserAgent)
	if err != nil {
		return Session{}, newAppError(op, "failed to build login request", err)
	}

	a.logger.WithField("url", target).Debug("Starting certificate login")

	resp, err := client.Do(req)
	if err != nil {
		a.metrics.RecordLogin(false)
		return Session{}, newAppError(op, "certificate login request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	location := resp.Header.Get("Location")
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		a.metrics.RecordLogin(false)
		return Session{}, newAppError(op, fmt.Sprintf("portal answered login with status %d", resp.StatusCode), nil)
	}
	if !redirectsToDashboard(location) {
		a.metrics.RecordLogin(false)
		return Session{}, newAppError(op, fmt.Sprintf("login did not redirect to the dashboard (location %q)", location), nil)
	}

	session := sessionFromResponse(resp)
	if session.Empty() {
		a.logger.Warn("Certificate login succeeded but the portal set no cookies")
	}

	a.metrics.RecordLogin(true)
	a.logger.WithField("cookies", len(session.Cookies)).Info("Certificate login completed")

	return session, nil
}

func redirectsToDashboard(location string) bool {
	if location == "" {
		return false
	}
	path := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		path = u.Path
	}
	return strings.HasSuffix(strings.TrimRight(path, "/"), dashboardPath)
}

// loadClientCertificate decodes a PKCS#12 bundle into a TLS certificate
// carrying the leaf and any intermediates
func loadClientCertificate(bundle []byte, passphrase string) (tls.Certificate, error) {
	if len(bundle) == 0 {
		return tls.Certificate{}, fmt.Errorf("certificate bundle is empty")
	}

	key, leaf, chain, err := pkcs12.DecodeChain(bundle, passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode PKCS#12 bundle: %w", err)
	}

	der := make([][]byte, 0, len(chain)+1)
	der = append(der, leaf.Raw)
	for _, ca := range chain {
		der = append(der, ca.Raw)
	}

	return tls.Certificate{
		Certificate: der,
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}
