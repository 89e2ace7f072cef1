package installer

// Status is the outcome of an installation run. Callers map it to a process
// exit code; message wording stays with the caller.
type Status int

const (
	// StatusOK means the artifact was installed and made executable.
	StatusOK Status = iota
	// StatusInvalidOptions means the environment or supplied options are
	// unusable (bad install directory, broken trust or proxy configuration).
	// Never retried.
	StatusInvalidOptions
	// StatusCatalogUnavailable means the version manifest could not be
	// fetched and parsed within the bounded attempts, or was empty.
	StatusCatalogUnavailable
	// StatusNoMatchingVersion means the catalog holds no version satisfying
	// the selection policy.
	StatusNoMatchingVersion
	// StatusCorruptDownload means every bounded download attempt ended in a
	// transport failure or a malformed artifact.
	StatusCorruptDownload
	// StatusAborted means validation hit an unexpected environment defect;
	// the run stopped immediately without retrying.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidOptions:
		return "invalid options"
	case StatusCatalogUnavailable:
		return "catalog unavailable"
	case StatusNoMatchingVersion:
		return "no matching version"
	case StatusCorruptDownload:
		return "corrupt download"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ExitCode maps the status to the conventional process exit code: 0 for
// success, 2 for invalid options or environment, 1 for every other failure.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return 0
	case StatusInvalidOptions:
		return 2
	default:
		return 1
	}
}

// Result carries the terminal state of a run.
type Result struct {
	Status  Status
	Version string
	Path    string
	Err     error
}
