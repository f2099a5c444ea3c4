package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger appends timestamped lines to <output dir>/seqbench.log so a
// long sweep can be inspected while it runs and after it finishes.
type Logger struct {
	out io.Writer
	f   *os.File
}

// New creates (or reuses) the log file inside the output directory.
func New(outputDir string) (*Logger, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure output dir: %w", err)
	}
	path := filepath.Join(outputDir, "seqbench.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	return &Logger{out: f, f: f}, nil
}

// NewWriter logs to an arbitrary writer, for tests and the pilot mode
// where stderr is enough.
func NewWriter(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}

	return l.f.Close()
}

// Printf writes a single timestamped line. A nil logger discards.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(l.out, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
}
