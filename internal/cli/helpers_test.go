package cli

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/webserver"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	defer func() {
		_ = w.Close()
		os.Stdout = origStdout
	}()

	done := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		done <- data
	}()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("closing stdout writer: %v", err)
	}
	return string(<-done)
}

// newTestCommand returns a command carrying the root's persistent flags,
// pointed at url.
func newTestCommand(t *testing.T, url string) *cobra.Command {
	return withConnFlags(t, &cobra.Command{}, url)
}

// subcommand finds name under parent and gives it the connection flags.
func subcommand(t *testing.T, parent *cobra.Command, name, url string) *cobra.Command {
	t.Helper()
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return withConnFlags(t, c, url)
		}
	}
	t.Fatalf("%s has no %q subcommand", parent.Name(), name)
	return nil
}

func withConnFlags(t *testing.T, cmd *cobra.Command, url string) *cobra.Command {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvURL, "")

	cmd.Flags().String("url", url, "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("token", "", "")
	cmd.Flags().String("prefix", "", "")
	cmd.Flags().String("timeout", "5s", "")
	cmd.Flags().String("demo-fallback", "off", "")
	cmd.SetContext(context.Background())
	return cmd
}

// startBackend serves a demo backend for the duration of the test.
func startBackend(t *testing.T) (*webserver.Server, string) {
	t.Helper()
	backend := webserver.New(webserver.Options{})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)
	return backend, srv.URL
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer value", 8, "a lon..."},
		{"héllo wörld", 7, "héll..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestStripAnsi(t *testing.T) {
	if got := stripAnsi(colorGreen + "[active]" + colorReset); got != "[active]" {
		t.Fatalf("stripAnsi() = %q", got)
	}
	if got := stripAnsi(statusBadge("invalid")); got != "[invalid]" {
		t.Fatalf("stripAnsi(statusBadge) = %q", got)
	}
}

func TestReadJSONArg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.json")
	if err := os.WriteFile(path, []byte(`{"name":"from_file"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := readJSONArg(`{"name":"inline"}`, path)
	if err != nil {
		t.Fatalf("readJSONArg(file) error = %v", err)
	}
	if string(got) != `{"name":"from_file"}` {
		t.Fatalf("file should win over inline, got %s", got)
	}

	got, err = readJSONArg(`{"name":"inline"}`, "")
	if err != nil || string(got) != `{"name":"inline"}` {
		t.Fatalf("readJSONArg(inline) = %s, %v", got, err)
	}

	if _, err := readJSONArg("", ""); err == nil {
		t.Fatal("readJSONArg with nothing should fail")
	}
	if _, err := readJSONArg("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("readJSONArg with a missing file should fail")
	}
}

func TestFormatUptime(t *testing.T) {
	tests := map[float64]string{
		42.9:  "42s",
		125:   "2m 5s",
		7380:  "2h 3m",
		86400: "24h 0m",
	}
	for in, want := range tests {
		if got := formatUptime(in); got != want {
			t.Errorf("formatUptime(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordFailedCommand(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	dir := filepath.Join(config.Dir(), "failed-commands")

	t.Setenv("OXYADMIN_RECORD_FAILURES", "")
	recordFailedCommand(errors.New(`unknown command "agnets" for "oxyadmin"`), []string{"oxyadmin", "agnets"})
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("recorded while disabled, stat err = %v", err)
	}

	t.Setenv("OXYADMIN_RECORD_FAILURES", "1")
	recordFailedCommand(errors.New("listing agents: HTTP 500: boom"), []string{"oxyadmin", "agents", "list"})
	recordFailedCommand(errors.New(`unknown command "agnets" for "oxyadmin"`), []string{"oxyadmin", "agnets"})
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	if len(entries) != 1 {
		t.Fatalf("failed command files = %d, want 1", len(entries))
	}
}
