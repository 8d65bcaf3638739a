package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/pushover"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"watch"},
	Short:   "Stream change events from the backend",
	Long: `Connects to the backend's websocket change feed and prints one line
per event until interrupted. Only backends that serve ` + livefeed.Path + `
support this.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().Bool("push", false, "Forward each event as a Pushover notification")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}

	var push *pushover.Client
	if on, _ := cmd.Flags().GetBool("push"); on {
		if !conn.cfg.Pushover.Configured() {
			return fmt.Errorf("--push needs credentials: run 'oxyadmin pushover setup' first")
		}
		push = newPushoverClient(conn.cfg.Pushover)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := livefeed.Subscribe(ctx, conn.baseURL, conn.token)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%sWatching %s%s\n", colorDim, livefeed.FeedURL(conn.baseURL), colorReset)

	for ev := range events {
		color := colorBlue
		if ev.Type == livefeed.TypeDeleted {
			color = colorRed
		}
		target := string(ev.Kind)
		if ev.ID != "" {
			target += " " + ev.ID
		}
		fmt.Printf("%s  %s%-8s%s %s\n", time.Now().Format("15:04:05"), color, ev.Type, colorReset, target)
		if push != nil {
			if err := push.Send(ctx, eventMessage(conn.baseURL, ev)); err != nil {
				fmt.Fprintf(os.Stderr, "%sWarning: %v%s\n", colorYellow, err, colorReset)
			}
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("live feed closed by the backend")
}

// eventMessage phrases ev for a phone notification; deletions are raised
// to high priority.
func eventMessage(backend string, ev livefeed.Event) pushover.Message {
	subject := ev.Kind.Title()
	if ev.ID != "" {
		subject += " " + ev.ID
	}
	msg := pushover.Message{
		Title:    "oxyadmin: " + subject + " " + ev.Type,
		Body:     fmt.Sprintf("%s was %s on %s", subject, ev.Type, backend),
		Priority: pushover.PriorityLow,
	}
	if ev.Type == livefeed.TypeDeleted {
		msg.Priority = pushover.PriorityHigh
	}
	return msg
}
