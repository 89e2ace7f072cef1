package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/puli/installer/internal/paths"
)

// New creates a logger that writes to a timestamped file inside the per-user
// logs directory. Each run is tagged with a short run id so interleaved
// installs remain attributable. The returned closer should be closed when
// logging is no longer needed.
func New(home paths.Home) (*log.Logger, io.Closer, error) {
	if err := home.EnsureLogsDir(); err != nil {
		return nil, nil, err
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(home.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	runID := uuid.NewString()[:8]
	logger := log.New(file, fmt.Sprintf("[%s] ", runID), log.LstdFlags|log.Lmicroseconds)
	return logger, file, nil
}
