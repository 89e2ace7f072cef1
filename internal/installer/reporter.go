package installer

// Reporter receives progress notifications as the pipeline advances. The
// core never writes to the console directly.
type Reporter interface {
	Step(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Step(string, ...any) {}

// NopReporter returns a reporter that discards all progress output, used for
// quiet runs and tests.
func NopReporter() Reporter { return nopReporter{} }
