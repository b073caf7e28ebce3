package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Portal paths, relative to the configured base URL
const (
	certificateLoginPath = "/Certificado"
	dashboardPath        = "/Dashboard"
	loginPath            = "/Login"
	listingPath          = "/Notas/Emitidas"
	xmlDownloadPath      = "/Notas/Download/NFSe/"
	pdfDownloadPath      = "/Notas/Download/DANFSe/"
)

// HTTPClient allows swapping the portal transport in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOptions configures a portal HTTP client
type ClientOptions struct {
	Timeout         time.Duration
	FollowRedirects bool
	TLSConfig       *tls.Config
}

// NewPortalClient creates an HTTP client for the portal. A zero timeout keeps
// the transport default.
func NewPortalClient(opts ClientOptions) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 5
	transport.IdleConnTimeout = 30 * time.Second
	if opts.TLSConfig != nil {
		transport.TLSClientConfig = opts.TLSConfig
	}

	client := &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// LoadRootCAs returns the system pool extended with the PEM certificates in
// path. An empty path returns nil, which makes crypto/tls use the system pool.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, nil
	}

	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificates %s: %w", path, err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, fmt.Errorf("no PEM certificates found in %s", path)
	}
	return pool, nil
}

// SessionExpiryDetector decides whether a portal response means the session
// is no longer valid
type SessionExpiryDetector interface {
	Expired(resp *http.Response) bool
}

// LoginRedirectDetector flags responses that ended on, or point to, the
// portal login page
type LoginRedirectDetector struct {
	LoginPath string
}

// Expired implements SessionExpiryDetector
func (d LoginRedirectDetector) Expired(resp *http.Response) bool {
	return expiryTarget(d.LoginPath, resp) != ""
}

func expiryTarget(login string, resp *http.Response) string {
	if login == "" {
		login = loginPath
	}
	login = strings.ToLower(login)

	if resp.Request != nil && resp.Request.URL != nil && strings.Contains(strings.ToLower(resp.Request.URL.Path), login) {
		return resp.Request.URL.String()
	}
	if location := resp.Header.Get("Location"); strings.Contains(strings.ToLower(location), login) {
		return location
	}
	return ""
}

func newPortalRequest(ctx context.Context, target string, session Session, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if !session.Empty() {
		req.Header.Set("Cookie", session.Header())
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")
	return req, nil
}
