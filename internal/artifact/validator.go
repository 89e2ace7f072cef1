// Package artifact confirms that a downloaded file is a structurally valid
// archive package before it is allowed to land as the installed executable.
package artifact

import (
	"archive/tar"
	"archive/zip"
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RequiredExtension is the file extension the archive loader insists on.
// Candidates without it are validated through a temporary renamed copy.
const RequiredExtension = ".phar"

// ValidationError indicates the file is not a well-formed archive. The
// orchestrator treats it as transit corruption: the file is deleted and the
// download retried. Any other error from Validate is fatal.
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks that the file at path opens as a valid archive package
// (zip, tar, or gzip-compressed tar). The candidate file is never modified
// or removed: when the required extension is missing, a temporary sibling
// copy carries it for the duration of the check and is removed afterward
// regardless of outcome.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() == 0 {
		return &ValidationError{Path: path, Reason: "file is empty"}
	}

	candidate := path
	if !strings.EqualFold(filepath.Ext(path), RequiredExtension) {
		copyPath, err := copyWithExtension(path)
		if err != nil {
			return err
		}
		defer os.Remove(copyPath)
		candidate = copyPath
	}

	if err := validateArchive(candidate); err != nil {
		// Report the original path, not the throwaway copy.
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return err
	}
	return nil
}

// copyWithExtension copies the candidate content to a temporary sibling path
// carrying the required extension.
func copyWithExtension(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*"+RequiredExtension)
	if err != nil {
		return "", fmt.Errorf("create validation copy: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write validation copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close validation copy: %w", err)
	}
	return dst.Name(), nil
}

// validateArchive tries the supported package formats in order: zip central
// directory first, then (optionally gzip-compressed) tar.
func validateArchive(path string) error {
	zipErr := validateZip(path)
	if zipErr == nil {
		return nil
	}
	var verr *ValidationError
	if !errors.As(zipErr, &verr) {
		return zipErr // I/O failure, fatal
	}

	return validateTar(path)
}

func validateZip(path string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) {
			return &ValidationError{Path: path, Reason: "not a zip archive", Err: err}
		}
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	// The central directory alone does not prove the payload survived
	// transit; every entry must decompress cleanly.
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("unreadable entry %s", file.Name), Err: err}
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return &ValidationError{Path: path, Reason: fmt.Sprintf("corrupt entry %s", file.Name), Err: err}
		}
	}
	return nil
}

func validateTar(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	gz, err := gzip.NewReader(file)
	switch {
	case err == nil:
		defer gz.Close()
		reader = gz
	case isCorruption(err):
		// Not gzip content; rewind and read as a plain tar stream.
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind archive: %w", seekErr)
		}
	default:
		return fmt.Errorf("read archive: %w", err)
	}

	tr := tar.NewReader(reader)
	entries := 0
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isCorruption(err) {
				return &ValidationError{Path: path, Reason: "malformed tar content", Err: err}
			}
			return fmt.Errorf("read archive: %w", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			if isCorruption(err) {
				return &ValidationError{Path: path, Reason: "truncated tar entry", Err: err}
			}
			return fmt.Errorf("read archive: %w", err)
		}
		entries++
	}
	if entries == 0 {
		return &ValidationError{Path: path, Reason: "archive has no entries"}
	}
	return nil
}

// isCorruption reports whether the error signals malformed or truncated
// archive bytes rather than an environment defect.
func isCorruption(err error) bool {
	if errors.Is(err, gzip.ErrHeader) || errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, tar.ErrHeader) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var flateErr flate.CorruptInputError
	return errors.As(err, &flateErr)
}
