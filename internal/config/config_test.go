package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "installer.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "installer.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRequiredMissingFileFails(t *testing.T) {
	_, err := LoadRequired(filepath.Join(t.TempDir(), "installer.yaml"))
	if err == nil {
		t.Fatal("expected error for explicitly named missing file")
	}
}

func TestLoadRequiredReadsExistingFile(t *testing.T) {
	cfg, err := LoadRequired(writeConfig(t, "install_dir: /opt/tools\n"))
	if err != nil {
		t.Fatalf("LoadRequired: %v", err)
	}
	if cfg.InstallDir != "/opt/tools" {
		t.Fatalf("install_dir: %q", cfg.InstallDir)
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadReadsAllFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
install_dir: /opt/tools
filename: puli.phar
version: 1.0.0-beta9
cafile: /etc/ssl/corp-ca.pem
quiet: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstallDir != "/opt/tools" {
		t.Fatalf("install_dir: %q", cfg.InstallDir)
	}
	if cfg.Version != "1.0.0-beta9" {
		t.Fatalf("version: %q", cfg.Version)
	}
	if cfg.CAFile != "/etc/ssl/corp-ca.pem" {
		t.Fatalf("cafile: %q", cfg.CAFile)
	}
	if !cfg.Quiet {
		t.Fatal("quiet should be true")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "instal_dir: /opt/tools\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "install_dir: [unclosed\n"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidateRejectsFilenameWithSeparator(t *testing.T) {
	_, err := Load(writeConfig(t, "filename: bin/puli.phar\n"))
	if err == nil || !strings.Contains(err.Error(), "path separators") {
		t.Fatalf("expected path separator error, got %v", err)
	}
}

func TestValidateRejectsVersionWithUnstable(t *testing.T) {
	cfg := Config{Version: "1.0.0", Unstable: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for version with unstable")
	}
}
