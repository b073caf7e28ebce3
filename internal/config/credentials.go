package config

import (
	"errors"
	"fmt"
	"os"
)

// Credentials is a password protected PKCS#12 certificate bundle
type Credentials struct {
	Bundle     []byte
	Passphrase string
}

// FileCredentials reads the certificate bundle from disk on every call so a
// replaced certificate is picked up on the next login.
type FileCredentials struct {
	Path       string
	Passphrase string
}

// NewFileCredentials creates a credential source from the portal configuration
func NewFileCredentials(cfg PortalConfig) *FileCredentials {
	return &FileCredentials{
		Path:       cfg.CertPath,
		Passphrase: cfg.CertPassword,
	}
}

// Credentials loads and validates the certificate bundle
func (f *FileCredentials) Credentials() (*Credentials, error) {
	if f.Path == "" {
		return nil, errors.New("NFSE_CERT_PATH is not configured")
	}
	if f.Passphrase == "" {
		return nil, errors.New("NFSE_CERT_PASSWORD is not configured")
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, fmt.Errorf("certificate not found at %s: %w", f.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("certificate path %s is a directory", f.Path)
	}

	bundle, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", f.Path, err)
	}

	return &Credentials{Bundle: bundle, Passphrase: f.Passphrase}, nil
}
