// Package truststore resolves the CA trust anchors used to verify TLS
// connections to the download server. Resolution prefers an explicitly
// supplied bundle, then the environment, then well-known OS locations, and
// finally materializes the embedded fallback bundle into the per-user
// installer directory.
package truststore

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/puli/installer/internal/paths"
)

// ConfigError indicates unusable trust configuration. It is fatal: the
// installer never retries configuration failures.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trust configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("trust configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config describes the trust anchors the transport should use. File and
// directory anchors are tracked distinctly because the TLS client configures
// them differently.
type Config struct {
	TLSEnabled  bool
	CAPath      string
	IsDirectory bool
}

// CertFileEnvVar names an alternate CA bundle file, checked before the
// well-known OS locations.
const CertFileEnvVar = "SSL_CERT_FILE"

// Well-known CA bundle locations probed in order. Mirrors the lists shipped
// by mainstream distributions.
var (
	caBundleFiles = []string{
		"/etc/pki/tls/certs/ca-bundle.crt",
		"/etc/ssl/certs/ca-certificates.crt",
		"/etc/ssl/ca-bundle.pem",
		"/usr/local/share/certs/ca-root-nss.crt",
		"/usr/ssl/certs/ca-bundle.crt",
		"/opt/local/share/curl/curl-ca-bundle.crt",
		"/usr/share/ssl/certs/ca-bundle.crt",
		"/etc/pki/tls/cacert.pem",
	}
	caBundleDirs = []string{
		"/etc/ssl/certs",
		"/etc/pki/tls/certs",
		"/usr/local/share/certs",
		"/etc/openssl/certs",
	}
)

// Resolve determines the trust configuration for this run. An explicit CA
// path must exist and parse; a missing or unparseable explicit path is a
// fatal ConfigError. With TLS disabled no probing happens at all.
func Resolve(explicitCAPath string, tlsEnabled bool, home paths.Home) (Config, error) {
	if !tlsEnabled {
		return Config{TLSEnabled: false}, nil
	}

	if explicitCAPath != "" {
		return resolveExplicit(explicitCAPath)
	}

	if envPath := os.Getenv(CertFileEnvVar); envPath != "" {
		if ok, _ := paths.FileExists(envPath); ok && fileHasCertificates(envPath) {
			return Config{TLSEnabled: true, CAPath: envPath}, nil
		}
	}

	for _, candidate := range caBundleFiles {
		if ok, _ := paths.FileExists(candidate); ok && fileHasCertificates(candidate) {
			return Config{TLSEnabled: true, CAPath: candidate}, nil
		}
	}

	for _, candidate := range caBundleDirs {
		if ok, _ := paths.DirExists(candidate); ok && dirHasCertificates(candidate) {
			return Config{TLSEnabled: true, CAPath: candidate, IsDirectory: true}, nil
		}
	}

	fallback, err := materializeFallbackBundle(home)
	if err != nil {
		return Config{}, err
	}
	return Config{TLSEnabled: true, CAPath: fallback}, nil
}

func resolveExplicit(caPath string) (Config, error) {
	info, err := os.Stat(caPath)
	if err != nil {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("CA path %q is unreadable", caPath), Err: err}
	}

	if info.IsDir() {
		if !dirHasCertificates(caPath) {
			return Config{}, &ConfigError{Reason: fmt.Sprintf("CA directory %q contains no usable certificates", caPath)}
		}
		return Config{TLSEnabled: true, CAPath: caPath, IsDirectory: true}, nil
	}

	if !fileHasCertificates(caPath) {
		return Config{}, &ConfigError{Reason: fmt.Sprintf("CA file %q does not contain valid certificates", caPath)}
	}
	return Config{TLSEnabled: true, CAPath: caPath}, nil
}

// fileHasCertificates reports whether the file parses as PEM-encoded X.509
// content a certificate pool would accept.
func fileHasCertificates(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pool := x509.NewCertPool()
	return pool.AppendCertsFromPEM(data)
}

// dirHasCertificates reports whether any .pem or .crt entry in the directory
// parses as certificate content. Symlinked hash entries common in
// /etc/ssl/certs resolve through os.ReadFile.
func dirHasCertificates(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".pem" && ext != ".crt" {
			continue
		}
		if fileHasCertificates(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}
