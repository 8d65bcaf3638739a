package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/buildinfo"
	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/notify"
)

// connection is everything a command needs to talk to one backend.
type connection struct {
	cfg      *config.Config
	baseURL  string
	prefix   string
	token    string
	timeout  time.Duration
	fallback config.FallbackMode
}

// resolveConnection merges persistent flags over the stored config.
// discovered, when non-empty, replaces the configured URL.
func resolveConnection(cmd *cobra.Command, discovered string) (*connection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flagURL, _ := cmd.Flags().GetString("url")
	if strings.TrimSpace(flagURL) == "" {
		flagURL = discovered
	}
	backendName, _ := cmd.Flags().GetString("backend")
	baseURL, err := cfg.ResolveURL(flagURL, backendName)
	if err != nil {
		return nil, err
	}

	conn := &connection{cfg: cfg, baseURL: baseURL, prefix: cfg.APIPrefix, fallback: cfg.DemoFallback}
	if v, _ := cmd.Flags().GetString("prefix"); strings.TrimSpace(v) != "" {
		conn.prefix = v
	}
	conn.token, _ = cmd.Flags().GetString("token")

	conn.timeout, err = cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("timeout"); strings.TrimSpace(v) != "" {
		conn.timeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", v, err)
		}
	}
	if v, _ := cmd.Flags().GetString("demo-fallback"); strings.TrimSpace(v) != "" {
		conn.fallback, err = config.ParseFallbackMode(v)
		if err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// client builds an API client; n receives failure notices (nil drops them).
func (c *connection) client(n notify.Notifier) *apiclient.Client {
	opts := []apiclient.Option{
		apiclient.WithPrefix(c.prefix),
		apiclient.WithUserAgent(buildinfo.Current().UserAgent()),
	}
	if n != nil {
		opts = append(opts, apiclient.WithNotifier(n))
	}
	if c.token != "" {
		opts = append(opts, apiclient.WithToken(c.token))
	}
	if c.timeout > 0 {
		opts = append(opts, apiclient.WithTimeout(c.timeout))
	}
	return apiclient.New(c.baseURL, opts...)
}
