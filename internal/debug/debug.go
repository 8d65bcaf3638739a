// Package debug is the console's diagnostic channel.
//
// When enabled via --debug (or OXYADMIN_DEBUG=1), every API round-trip, store
// load, notification and controller transition is appended to a single .log
// file under ~/.oxyadmin/debug/. Lines carry a timestamp, the elapsed time
// since start, the component and the caller so a session can be replayed from
// the log alone.
//
// When disabled (the default), all logging functions are no-ops.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	logger   *Logger
	loggerMu sync.RWMutex
)

const (
	// EnvEnabled toggles the diagnostic log without the --debug flag.
	EnvEnabled = "OXYADMIN_DEBUG"
	// EnvLogPath appends to an existing file instead of creating a new one.
	EnvLogPath = "OXYADMIN_DEBUG_LOG"
)

// Logger writes structured debug lines to a file.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	startedAt time.Time
}

// Init opens the diagnostic log and returns its path. Calling Init twice
// returns the already-open path.
func Init() (string, error) {
	loggerMu.RLock()
	if logger != nil {
		p := logger.path
		loggerMu.RUnlock()
		return p, nil
	}
	loggerMu.RUnlock()

	path, logID, err := resolveLogPath()
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("debug: open log %s: %w", path, err)
	}

	now := time.Now()
	l := &Logger{file: f, path: path, startedAt: now}
	fmt.Fprintf(f, "=== OXYADMIN DEBUG LOG ===\nStarted: %s\nPID: %d\nLog ID: %s\n===\n\n",
		now.Format(time.RFC3339Nano), os.Getpid(), logID)

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		_ = f.Close()
		return logger.path, nil
	}
	logger = l
	return path, nil
}

// Close flushes and closes the debug log. Safe to call when not initialized.
func Close() {
	loggerMu.Lock()
	l := logger
	logger = nil
	loggerMu.Unlock()

	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "\n=== DEBUG LOG CLOSED === (duration=%s)\n", time.Since(l.startedAt).Truncate(time.Millisecond))
	l.file.Close()
}

// Enabled reports whether the diagnostic log is open.
func Enabled() bool {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger != nil
}

// Path returns the log file path, or "" if not enabled.
func Path() string {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return ""
	}
	return logger.path
}

// ShouldEnableFromEnv reports whether the environment asks for debug logging.
func ShouldEnableFromEnv() bool {
	path := strings.TrimSpace(os.Getenv(EnvLogPath))
	switch strings.TrimSpace(strings.ToLower(os.Getenv(EnvEnabled))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return path != ""
	}
}

// Log writes a debug line. No-op when debug is disabled.
func Log(component, msg string) {
	if l := current(); l != nil {
		l.write(component, msg)
	}
}

// Logf writes a formatted debug line. No-op when debug is disabled.
func Logf(component, format string, args ...any) {
	if l := current(); l != nil {
		l.write(component, fmt.Sprintf(format, args...))
	}
}

// LogKV writes a debug line with key-value context pairs.
// Usage: debug.LogKV("api", "request failed", "method", "GET", "status", 404)
func LogKV(component, msg string, kvs ...any) {
	l := current()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kvs[i], kvs[i+1])
	}
	l.write(component, b.String())
}

func current() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// write is always called two frames below the public entry point.
func (l *Logger) write(component, msg string) {
	now := time.Now()

	caller := "??:0"
	if _, file, line, ok := runtime.Caller(2); ok {
		if idx := strings.LastIndex(file, "/internal/"); idx >= 0 {
			file = file[idx+len("/internal/"):]
		} else {
			file = filepath.Base(file)
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	// Format: TIMESTAMP +ELAPSED [COMPONENT] CALLER | MESSAGE
	line := fmt.Sprintf("%s +%12s [%-10s] %-32s | %s\n",
		now.Format("15:04:05.000000"),
		now.Sub(l.startedAt).Truncate(time.Microsecond),
		component,
		caller,
		msg,
	)

	l.mu.Lock()
	l.file.WriteString(line)
	l.mu.Unlock()
}

func resolveLogPath() (path, logID string, err error) {
	if inherited := strings.TrimSpace(os.Getenv(EnvLogPath)); inherited != "" {
		if dir := filepath.Dir(inherited); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", "", fmt.Errorf("debug: create dir %s: %w", dir, err)
			}
		}
		return inherited, "inherited", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("debug: user home dir: %w", err)
	}
	dir := filepath.Join(home, ".oxyadmin", "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("debug: create dir %s: %w", dir, err)
	}

	logID = uuid.NewString()[:8]
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("20060102T150405"), logID)
	return filepath.Join(dir, filename), logID, nil
}
