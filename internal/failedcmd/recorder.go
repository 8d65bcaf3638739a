// Package failedcmd keeps a record of command lines oxyadmin rejected, so
// scripts that drive the CLI can be debugged after the fact.
package failedcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/hexid"
)

const (
	defaultDirName = "failed-commands"
	schemaVersion  = 1

	// EnvRecord turns recording on when set to a true value.
	EnvRecord = "OXYADMIN_RECORD_FAILURES"
)

// Kind identifies why a command line was rejected.
type Kind string

const (
	KindUnknownCommand   Kind = "unknown_command"
	KindInvalidArguments Kind = "invalid_arguments"
)

// Recorder writes failure records to disk.
type Recorder struct {
	dir string
}

// Record is one rejected invocation.
type Record struct {
	Version    int       `json:"version"`
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`

	Kind  Kind   `json:"kind"`
	Error string `json:"error"`

	Executable string   `json:"executable"`
	Args       []string `json:"args,omitempty"`
	Command    string   `json:"command"`
	WorkingDir string   `json:"working_dir,omitempty"`

	// Env holds the OXYADMIN_* variables in effect.
	Env map[string]string `json:"env,omitempty"`
}

// Enabled reports whether EnvRecord asks for recording.
func Enabled() bool {
	on, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvRecord)))
	return err == nil && on
}

// Default returns a recorder rooted at ~/.oxyadmin/failed-commands.
func Default() *Recorder {
	return &Recorder{dir: filepath.Join(config.Dir(), defaultDirName)}
}

func New(dir string) *Recorder {
	return &Recorder{dir: strings.TrimSpace(dir)}
}

func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

// Record classifies err and writes one JSON file when it is a usage error.
// Runtime failures such as an unreachable backend return (nil, "", nil).
func (r *Recorder) Record(err error, argv []string) (*Record, string, error) {
	kind, ok := Classify(err)
	if !ok {
		return nil, "", nil
	}
	rec := buildRecord(kind, err, argv)
	path, writeErr := r.write(rec)
	if writeErr != nil {
		return nil, "", writeErr
	}
	return rec, path, nil
}

// Classify reports whether err is an unknown command or a bad argument.
func Classify(err error) (Kind, bool) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return "", false
	}

	var notExist *pflag.NotExistError
	var valueRequired *pflag.ValueRequiredError
	var invalidValue *pflag.InvalidValueError
	var invalidSyntax *pflag.InvalidSyntaxError
	if errors.As(err, &notExist) || errors.As(err, &valueRequired) ||
		errors.As(err, &invalidValue) || errors.As(err, &invalidSyntax) {
		return KindInvalidArguments, true
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case msg == "":
		return "", false
	case strings.Contains(msg, "unknown command ") && strings.Contains(msg, ` for "oxyadmin`):
		return KindUnknownCommand, true
	case isInvalidArgumentMessage(msg):
		return KindInvalidArguments, true
	}
	return "", false
}

func isInvalidArgumentMessage(msg string) bool {
	for _, marker := range []string{
		"unknown flag:",
		"unknown shorthand flag:",
		"flag needs an argument:",
		"invalid argument ",
		"bad flag syntax:",
		"required flag(s)",
		"invalid --",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	if strings.Contains(msg, "arg(s), received") &&
		(strings.Contains(msg, "accepts ") || strings.Contains(msg, "requires at least ")) {
		return true
	}
	// Command-level checks: "refusing to delete agent 3 without --yes".
	return strings.HasPrefix(msg, "refusing to ") && strings.Contains(msg, "without --")
}

func buildRecord(kind Kind, err error, argv []string) *Record {
	now := time.Now().UTC()
	if len(argv) == 0 {
		argv = os.Args
	}
	argv = append([]string(nil), argv...)

	rec := &Record{
		Version:    schemaVersion,
		ID:         fmt.Sprintf("%s-%s", now.Format("20060102T150405.000000000Z"), hexid.New()),
		RecordedAt: now,
		Kind:       kind,
		Error:      strings.TrimSpace(err.Error()),
		Executable: argv[0],
		Command:    formatCommand(argv),
		Env:        collectEnv(),
	}
	if len(argv) > 1 {
		rec.Args = argv[1:]
	}
	if cwd, cwdErr := os.Getwd(); cwdErr == nil {
		rec.WorkingDir = cwd
	}
	return rec
}

func (r *Recorder) write(rec *Record) (string, error) {
	if r == nil || strings.TrimSpace(r.dir) == "" {
		return "", fmt.Errorf("failed command output dir is empty")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating failed command dir: %w", err)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s-%d.json", rec.ID, os.Getpid()))
	tmp := path + ".tmp"
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding failed command record: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("writing failed command temp record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("replacing failed command record: %w", err)
	}
	return path, nil
}

// collectEnv returns OXYADMIN_* variables; the token is masked.
func collectEnv() map[string]string {
	env := make(map[string]string)
	for _, pair := range os.Environ() {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || !strings.HasPrefix(key, "OXYADMIN_") {
			continue
		}
		if strings.Contains(key, "TOKEN") {
			value = strings.Repeat("*", len(value))
		}
		env[key] = value
	}
	if len(env) == 0 {
		return nil
	}
	return env
}

func formatCommand(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, arg := range argv {
		parts = append(parts, quoteShellArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteShellArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if strings.ContainsAny(arg, " \t\n\"'\\$") {
		return strconv.Quote(arg)
	}
	return arg
}
