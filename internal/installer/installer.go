// Package installer sequences catalog retrieval, version selection, artifact
// download, and validation into one resilient acquisition pipeline with
// bounded retries and atomic placement of the final executable.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/puli/installer/internal/artifact"
	"github.com/puli/installer/internal/catalog"
	"github.com/puli/installer/internal/paths"
	"github.com/puli/installer/internal/transport"
	"github.com/puli/installer/internal/truststore"
)

const (
	// DefaultFilename is the conventional name of the installed artifact.
	DefaultFilename = "puli.phar"
	// DefaultDownloadURLTemplate expands with the selected version.
	DefaultDownloadURLTemplate = "https://puli.io/download/%s/puli.phar"

	// maxAttempts bounds both the catalog and the download+validate phases.
	maxAttempts = 3

	executableMode = os.FileMode(0o755)
)

// Options configures a single installation run. The CLI layer fills it from
// flags and the optional defaults file.
type Options struct {
	// InstallDir receives the artifact; empty means the working directory.
	InstallDir string
	// Filename of the installed artifact; empty means DefaultFilename.
	Filename string
	// Version pins an exact catalog entry. Empty selects by stability.
	Version string
	// Unstable accepts pre-release versions when no version is pinned.
	Unstable bool
	// CAFile points at an explicit trust anchor file or directory.
	CAFile string
	// InsecureSkipTLS disables certificate verification entirely.
	InsecureSkipTLS bool

	// CatalogURL and DownloadURLTemplate override the fixed endpoints, used
	// by tests.
	CatalogURL          string
	DownloadURLTemplate string
}

// Fetcher is the transport seam used for both catalog and artifact fetches.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Installer runs the acquisition pipeline.
type Installer struct {
	opts     Options
	reporter Reporter

	// Seams swapped in tests.
	newFetcher   func(truststore.Config) Fetcher
	resolveTrust func(explicitCA string, tlsEnabled bool, home paths.Home) (truststore.Config, error)
	validate     func(path string) error
}

// New creates an installer for the given options. A nil reporter silences
// progress output.
func New(opts Options, reporter Reporter) *Installer {
	if reporter == nil {
		reporter = NopReporter()
	}
	return &Installer{
		opts:     opts,
		reporter: reporter,
		newFetcher: func(trust truststore.Config) Fetcher {
			return transport.NewClient(trust)
		},
		resolveTrust: truststore.Resolve,
		validate:     artifact.Validate,
	}
}

// Run executes the pipeline: resolve options and trust, fetch the catalog,
// select a version, download and validate the artifact, then finalize it
// with executable permissions. Run never leaves a failed artifact at the
// target path.
func (inst *Installer) Run(ctx context.Context) Result {
	targetPath, err := inst.resolveTarget()
	if err != nil {
		return Result{Status: StatusInvalidOptions, Err: err}
	}

	home, err := paths.ResolveHome()
	if err != nil {
		return Result{Status: StatusInvalidOptions, Err: err}
	}

	// Trust is resolved once per run; the transport reuses it for the
	// catalog fetch and every download attempt.
	trust, err := inst.resolveTrust(inst.opts.CAFile, !inst.opts.InsecureSkipTLS, home)
	if err != nil {
		return Result{Status: StatusInvalidOptions, Err: err}
	}
	fetcher := inst.newFetcher(trust)

	cat, result := inst.fetchCatalog(ctx, fetcher)
	if result != nil {
		return *result
	}

	version, result := inst.selectVersion(cat)
	if result != nil {
		return *result
	}
	inst.reporter.Step("Installing version %s", version)

	if result := inst.downloadAndValidate(ctx, fetcher, version, targetPath); result != nil {
		return *result
	}

	if err := os.Chmod(targetPath, executableMode); err != nil {
		os.Remove(targetPath)
		return Result{Status: StatusAborted, Version: version, Err: fmt.Errorf("set executable permissions: %w", err)}
	}

	return Result{Status: StatusOK, Version: version, Path: targetPath}
}

// resolveTarget validates the install directory and filename and returns the
// absolute target path, creating the directory when missing.
func (inst *Installer) resolveTarget() (string, error) {
	dir := inst.opts.InstallDir
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve install directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create install directory: %w", err)
	}

	filename := inst.opts.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	if strings.ContainsRune(filename, os.PathSeparator) || filename == "." || filename == ".." {
		return "", fmt.Errorf("invalid artifact filename %q", filename)
	}

	return filepath.Join(absDir, filename), nil
}

// fetchCatalog retrieves a non-empty catalog within the bounded attempts.
func (inst *Installer) fetchCatalog(ctx context.Context, fetcher Fetcher) (catalog.Catalog, *Result) {
	client := catalog.NewClient(fetcher, inst.opts.CatalogURL)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		inst.reporter.Step("Resolving available versions (attempt %d/%d)", attempt, maxAttempts)

		cat, err := client.Fetch(ctx)
		if err != nil {
			if fatal := fatalResult(err); fatal != nil {
				return catalog.Catalog{}, fatal
			}
			lastErr = err
			continue
		}

		if cat.IsEmpty() {
			return catalog.Catalog{}, &Result{
				Status: StatusCatalogUnavailable,
				Err:    errors.New("version catalog is empty"),
			}
		}
		return cat, nil
	}

	return catalog.Catalog{}, &Result{Status: StatusCatalogUnavailable, Err: lastErr}
}

func (inst *Installer) selectVersion(cat catalog.Catalog) (string, *Result) {
	policy := catalog.MostRecentStable()
	switch {
	case inst.opts.Version != "":
		policy = catalog.Explicit(inst.opts.Version)
	case inst.opts.Unstable:
		policy = catalog.MostRecentAny()
	}

	version, err := catalog.Select(policy, cat)
	if err != nil {
		return "", &Result{Status: StatusNoMatchingVersion, Err: err}
	}
	return version, nil
}

// downloadAndValidate places a validated artifact at targetPath within the
// bounded attempts. Each attempt starts from a clean slate: any file left at
// the target is removed before the next download.
func (inst *Installer) downloadAndValidate(ctx context.Context, fetcher Fetcher, version, targetPath string) *Result {
	url := inst.downloadURL(version)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := removeIfPresent(targetPath); err != nil {
			return &Result{Status: StatusAborted, Version: version, Err: err}
		}

		inst.reporter.Step("Downloading %s (attempt %d/%d)", url, attempt, maxAttempts)
		data, err := fetcher.Fetch(ctx, url)
		if err != nil {
			if fatal := fatalResult(err); fatal != nil {
				fatal.Version = version
				return fatal
			}
			lastErr = err
			continue
		}

		if err := writeFileAtomic(targetPath, data); err != nil {
			return &Result{Status: StatusAborted, Version: version, Err: err}
		}

		err = inst.validate(targetPath)
		if err == nil {
			return nil
		}

		var verr *artifact.ValidationError
		if !errors.As(err, &verr) {
			// Environment defect, not transit corruption: abort without
			// retrying, leaving no unvalidated artifact behind.
			os.Remove(targetPath)
			return &Result{Status: StatusAborted, Version: version, Err: err}
		}

		inst.reporter.Step("Downloaded artifact is corrupt, retrying")
		if err := removeIfPresent(targetPath); err != nil {
			return &Result{Status: StatusAborted, Version: version, Err: err}
		}
		lastErr = verr
	}

	return &Result{Status: StatusCorruptDownload, Version: version, Err: lastErr}
}

func (inst *Installer) downloadURL(version string) string {
	template := inst.opts.DownloadURLTemplate
	if template == "" {
		template = DefaultDownloadURLTemplate
	}
	return fmt.Sprintf(template, version)
}

// fatalResult classifies errors that must never be retried: trust and proxy
// misconfiguration surface as invalid options regardless of which phase
// tripped them.
func fatalResult(err error) *Result {
	var trustErr *truststore.ConfigError
	var proxyErr *transport.ConfigError
	if errors.As(err, &trustErr) || errors.As(err, &proxyErr) {
		return &Result{Status: StatusInvalidOptions, Err: err}
	}
	return nil
}

func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale artifact: %w", err)
	}
	return nil
}

// writeFileAtomic lands the payload through a temp file and rename so a
// crash mid-write never leaves a half-written artifact at the target path.
func writeFileAtomic(targetPath string, data []byte) error {
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(targetPath)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}
