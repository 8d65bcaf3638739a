package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/config"
)

func TestBackendAddUseRemove(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())

	add := &cobra.Command{}
	add.Flags().Bool("default", false, "")
	captureStdout(t, func() {
		if err := runBackendAdd(add, []string{"local", ":8000"}); err != nil {
			t.Fatalf("add local: %v", err)
		}
		if err := runBackendAdd(add, []string{"staging", "staging.example.com/"}); err != nil {
			t.Fatalf("add staging: %v", err)
		}
	})
	if err := runBackendAdd(add, []string{"LOCAL", ":9000"}); err == nil {
		t.Fatal("duplicate backend name accepted")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultBackend != "local" {
		t.Fatalf("DefaultBackend = %q, want first added", cfg.DefaultBackend)
	}
	if b := cfg.FindBackend("staging"); b == nil || b.URL != "http://staging.example.com" {
		t.Fatalf("staging = %+v", b)
	}

	out := stripAnsi(captureStdout(t, func() {
		if err := runBackendUse(&cobra.Command{}, []string{"staging"}); err != nil {
			t.Fatalf("use: %v", err)
		}
	}))
	if !strings.Contains(out, "Default backend is now staging") {
		t.Fatalf("use output = %q", out)
	}
	if err := runBackendUse(&cobra.Command{}, []string{"nope"}); err == nil {
		t.Fatal("use of an unknown backend accepted")
	}

	out = stripAnsi(captureStdout(t, func() {
		if err := runBackendList(&cobra.Command{}, nil); err != nil {
			t.Fatalf("list: %v", err)
		}
	}))
	if !strings.Contains(out, "*  staging") || !strings.Contains(out, "http://127.0.0.1:8000") {
		t.Fatalf("list output:\n%s", out)
	}

	captureStdout(t, func() {
		if err := runBackendRemove(&cobra.Command{}, []string{"staging"}); err != nil {
			t.Fatalf("remove: %v", err)
		}
	})
	cfg, _ = config.Load()
	if len(cfg.Backends) != 1 || cfg.DefaultBackend != "local" {
		t.Fatalf("after remove: %+v", cfg)
	}
	if err := runBackendRemove(&cobra.Command{}, []string{"staging"}); err == nil {
		t.Fatal("removing twice should fail")
	}
}

func TestResolveConnectionPrefersFlags(t *testing.T) {
	cmd := newTestCommand(t, "")
	cfg := &config.Config{APIPrefix: "/custom", Timeout: "3s"}
	if err := cfg.AddBackend(config.Backend{Name: "lab", URL: "lab:9000"}); err != nil {
		t.Fatal(err)
	}
	if err := config.Save(cfg); err != nil {
		t.Fatal(err)
	}

	conn, err := resolveConnection(cmd, "")
	if err != nil {
		t.Fatalf("resolveConnection() error = %v", err)
	}
	if conn.baseURL != "http://lab:9000" || conn.prefix != "/custom" {
		t.Fatalf("conn = %+v", conn)
	}
	if conn.timeout.String() != "5s" || conn.fallback != config.FallbackOff {
		t.Fatalf("flag overrides ignored: timeout=%s fallback=%s", conn.timeout, conn.fallback)
	}

	conn, err = resolveConnection(cmd, "http://10.0.0.7:8000")
	if err != nil {
		t.Fatal(err)
	}
	if conn.baseURL != "http://10.0.0.7:8000" {
		t.Fatalf("discovered URL ignored: %s", conn.baseURL)
	}

	cmd.Flags().Set("backend", "missing")
	if _, err := resolveConnection(cmd, ""); err == nil {
		t.Fatal("unknown --backend accepted")
	}

	cmd.Flags().Set("backend", "")
	cmd.Flags().Set("timeout", "soon")
	if _, err := resolveConnection(cmd, ""); err == nil {
		t.Fatal("invalid --timeout accepted")
	}
}
