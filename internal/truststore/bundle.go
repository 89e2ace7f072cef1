package truststore

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/puli/installer/internal/paths"
)

// fallbackBundle is the bundled root certificate set written to disk when no
// usable system trust source is found.
//
//go:embed cacert.pem
var fallbackBundle []byte

// materializeFallbackBundle writes the embedded bundle into the per-user
// installer directory and returns its path. The file is created with O_EXCL
// so two concurrent installer processes never interleave writes; an existing
// file is reused when it still parses and rewritten otherwise.
func materializeFallbackBundle(home paths.Home) (string, error) {
	if err := home.EnsureRoot(); err != nil {
		return "", &ConfigError{Reason: "cannot create directory for fallback CA bundle", Err: err}
	}

	target := home.CACertFile
	if ok, _ := paths.FileExists(target); ok {
		if fileHasCertificates(target) {
			return target, nil
		}
		// Stale or truncated bundle from an earlier run.
		if err := os.Remove(target); err != nil {
			return "", &ConfigError{Reason: "cannot replace stale fallback CA bundle", Err: err}
		}
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another installer process won the race; trust its copy if valid.
			if fileHasCertificates(target) {
				return target, nil
			}
			return "", &ConfigError{Reason: fmt.Sprintf("concurrent write left invalid CA bundle at %q", target)}
		}
		return "", &ConfigError{Reason: "cannot write fallback CA bundle", Err: err}
	}

	if _, err := file.Write(fallbackBundle); err != nil {
		file.Close()
		os.Remove(target)
		return "", &ConfigError{Reason: "cannot write fallback CA bundle", Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(target)
		return "", &ConfigError{Reason: "cannot write fallback CA bundle", Err: err}
	}

	return target, nil
}
