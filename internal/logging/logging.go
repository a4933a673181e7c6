package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxRetentionDays = 7

// New creates a *slog.Logger writing JSON to stdout and, when logDir is set,
// to a daily file app-YYYY-MM-DD.log inside it. The logger becomes the slog
// default. The returned cleanup func closes the current log file.
func New(level, logDir string, retentionDays int) (*slog.Logger, func(), error) {
	writers := []io.Writer{os.Stdout}
	cleanup := func() {}

	if logDir != "" {
		rw, err := NewRotatingWriter(logDir, retentionDays)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rw)
		cleanup = func() { _ = rw.Close() }
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(level)})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RotatingWriter appends to one file per calendar day and prunes files older
// than the retention window whenever it rolls over.
type RotatingWriter struct {
	dir           string
	retentionDays int
	now           func() time.Time

	mu          sync.Mutex
	currentDate string
	file        *os.File
}

func NewRotatingWriter(dir string, retentionDays int) (*RotatingWriter, error) {
	if retentionDays <= 0 || retentionDays > maxRetentionDays {
		retentionDays = maxRetentionDays
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &RotatingWriter{dir: dir, retentionDays: retentionDays, now: time.Now}
	if err := w.rotate(w.now().Format("2006-01-02")); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if date := w.now().Format("2006-01-02"); date != w.currentDate {
		if err := w.rotate(date); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) rotate(date string) error {
	f, err := os.OpenFile(filepath.Join(w.dir, fmt.Sprintf("app-%s.log", date)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.currentDate = date
	cleanupOldLogs(w.dir, w.retentionDays, w.now())
	return nil
}

func cleanupOldLogs(dir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	today, _ := time.Parse("2006-01-02", now.Format("2006-01-02"))
	cutoff := today.AddDate(0, 0, -(retentionDays - 1))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		logDate, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log"))
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}
