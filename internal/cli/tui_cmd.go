package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/discovery"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive console",
	Long: `Opens the full-screen console: one tab per resource kind plus the
system configuration editor.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	addTUIFlags(tuiCmd)
	rootCmd.AddCommand(tuiCmd)
}

func addTUIFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("live", false, "Reload lists when the backend reports changes")
	cmd.Flags().Bool("discover", false, "Find a backend on the local network via mDNS")
}

func runTUI(cmd *cobra.Command, args []string) error {
	discovered := ""
	if on, _ := cmd.Flags().GetBool("discover"); on {
		b, err := discoverBackend(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%sUsing %s at %s%s\n", colorDim, b.Name, b.URL, colorReset)
		discovered = b.URL
	}

	conn, err := resolveConnection(cmd, discovered)
	if err != nil {
		return err
	}

	center := notify.New(conn.cfg.NoticeTTL())
	c := console.New(conn.client(center), center, console.Options{Fallback: conn.fallback})

	opts := tui.Options{Backend: conn.baseURL}
	live, _ := cmd.Flags().GetBool("live")
	if live || conn.cfg.LiveUpdates {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, err := livefeed.Subscribe(ctx, conn.baseURL, conn.token)
		if err != nil {
			center.Notify("Live updates unavailable: "+err.Error(), notify.SeverityWarning)
		} else {
			opts.Live = events
		}
	}

	return tui.Run(c, center, opts)
}

// discoverBackend returns the first backend answering on the local network.
func discoverBackend(ctx context.Context) (discovery.Backend, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	found, err := discovery.Lookup(ctx, discovery.DefaultTimeout)
	if err != nil {
		return discovery.Backend{}, fmt.Errorf("discovering backends: %w", err)
	}
	if len(found) == 0 {
		return discovery.Backend{}, fmt.Errorf("no backend found on the local network (%s)", discovery.ServiceType)
	}
	return found[0], nil
}
