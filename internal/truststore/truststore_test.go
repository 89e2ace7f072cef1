package truststore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/puli/installer/internal/paths"
)

func testHome(t *testing.T) paths.Home {
	t.Helper()
	t.Setenv(paths.HomeEnvVar, t.TempDir())
	home, err := paths.ResolveHome()
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	return home
}

// selfSignedPEM generates a throwaway certificate for trust-source tests.
func selfSignedPEM(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "puli-installer-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestResolveTLSDisabled(t *testing.T) {
	cfg, err := Resolve("", false, testHome(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.TLSEnabled {
		t.Fatal("expected TLS disabled config")
	}
	if cfg.CAPath != "" {
		t.Fatalf("expected no CA path, got %q", cfg.CAPath)
	}
}

func TestResolveExplicitFile(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, selfSignedPEM(t), 0o644); err != nil {
		t.Fatalf("write ca file: %v", err)
	}

	cfg, err := Resolve(caFile, true, testHome(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.CAPath != caFile || cfg.IsDirectory {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestResolveExplicitDirectory(t *testing.T) {
	caDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(caDir, "ca.crt"), selfSignedPEM(t), 0o644); err != nil {
		t.Fatalf("write ca file: %v", err)
	}

	cfg, err := Resolve(caDir, true, testHome(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.CAPath != caDir || !cfg.IsDirectory {
		t.Fatalf("expected directory anchor, got %+v", cfg)
	}
}

func TestResolveExplicitUnreadable(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "missing.pem"), true, testHome(t))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestResolveExplicitUnparseable(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(caFile, []byte("not a certificate"), 0o644); err != nil {
		t.Fatalf("write ca file: %v", err)
	}

	_, err := Resolve(caFile, true, testHome(t))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestResolveEnvOverride(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "env.pem")
	if err := os.WriteFile(caFile, selfSignedPEM(t), 0o644); err != nil {
		t.Fatalf("write ca file: %v", err)
	}
	t.Setenv(CertFileEnvVar, caFile)

	cfg, err := Resolve("", true, testHome(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.CAPath != caFile {
		t.Fatalf("expected env CA path %q, got %q", caFile, cfg.CAPath)
	}
}

func TestMaterializeFallbackBundle(t *testing.T) {
	home := testHome(t)

	path, err := materializeFallbackBundle(home)
	if err != nil {
		t.Fatalf("materializeFallbackBundle: %v", err)
	}
	if path != home.CACertFile {
		t.Fatalf("expected bundle at %q, got %q", home.CACertFile, path)
	}
	if !fileHasCertificates(path) {
		t.Fatal("materialized bundle does not parse as certificates")
	}

	// A second call reuses the existing file.
	again, err := materializeFallbackBundle(home)
	if err != nil {
		t.Fatalf("second materializeFallbackBundle: %v", err)
	}
	if again != path {
		t.Fatalf("expected same path on reuse, got %q", again)
	}
}

func TestMaterializeFallbackRewritesStaleBundle(t *testing.T) {
	home := testHome(t)
	if err := home.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	if err := os.WriteFile(home.CACertFile, []byte("truncated"), 0o644); err != nil {
		t.Fatalf("write stale bundle: %v", err)
	}

	path, err := materializeFallbackBundle(home)
	if err != nil {
		t.Fatalf("materializeFallbackBundle: %v", err)
	}
	if !fileHasCertificates(path) {
		t.Fatal("stale bundle was not rewritten")
	}
}

func TestEmbeddedBundleParses(t *testing.T) {
	if len(fallbackBundle) == 0 {
		t.Fatal("embedded bundle is empty")
	}
	caFile := filepath.Join(t.TempDir(), "bundle.pem")
	if err := os.WriteFile(caFile, fallbackBundle, 0o644); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	if !fileHasCertificates(caFile) {
		t.Fatal("embedded bundle does not parse")
	}
}
