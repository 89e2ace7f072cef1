package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the per-user installer directory location. When unset
// the directory lives under the OS user home.
const HomeEnvVar = "PULI_HOME"

// Home captures canonical per-user locations used by the installer.
type Home struct {
	Root       string
	LogsDir    string
	CACertFile string
}

// ResolveHome determines the per-user installer directory, honoring the
// PULI_HOME override.
func ResolveHome() (Home, error) {
	if override := os.Getenv(HomeEnvVar); override != "" {
		root, err := filepath.Abs(override)
		if err != nil {
			return Home{}, fmt.Errorf("resolve %s: %w", HomeEnvVar, err)
		}
		return newHome(root), nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return Home{}, fmt.Errorf("detect user home: %w", err)
	}
	return newHome(filepath.Join(userHome, ".puli")), nil
}

func newHome(root string) Home {
	return Home{
		Root:       root,
		LogsDir:    filepath.Join(root, "logs"),
		CACertFile: filepath.Join(root, "cacert.pem"),
	}
}

// EnsureRoot makes sure the installer home directory exists on disk.
func (h Home) EnsureRoot() error {
	if err := os.MkdirAll(h.Root, 0o755); err != nil {
		return fmt.Errorf("create installer home: %w", err)
	}
	return nil
}

// EnsureLogsDir creates the logs directory alongside the home root.
func (h Home) EnsureLogsDir() error {
	if err := os.MkdirAll(h.LogsDir, 0o755); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}
	return nil
}

// ConfigFile returns the default location of the optional installer
// configuration file.
func (h Home) ConfigFile() string {
	return filepath.Join(h.Root, "installer.yaml")
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
