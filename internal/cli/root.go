package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/buildinfo"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/failedcmd"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorWhite  = "\033[37m"

	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldYellow = "\033[1;33m"
	styleBoldWhite  = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "oxyadmin",
	Short: "Terminal admin console for multi-agent platforms",
	Long: colorBold + `oxyadmin` + colorReset + ` v` + buildinfo.Current().Version + `

  Manage the agents, tools, workflows and system configuration of a
  multi-agent platform through its admin API.

` + colorBold + `Getting Started:` + colorReset + `
  oxyadmin serve                          Start the demo backend
  oxyadmin backend add local :8000        Remember a backend
  oxyadmin                                Launch the interactive console
  oxyadmin agents list                    List agents
  oxyadmin workflows validate 1           Check a workflow definition`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			return runTUI(cmd, args)
		}
		return cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	pf := rootCmd.PersistentFlags()
	pf.Bool("debug", false, "Enable verbose debug logging to ~/.oxyadmin/debug/")
	pf.String("url", "", "Backend base URL (overrides config and OXYADMIN_URL)")
	pf.String("backend", "", "Named backend from the config")
	pf.String("token", "", "Bearer token sent with every request")
	pf.String("prefix", "", "API path prefix (default from config, /api/v1)")
	pf.String("timeout", "", "Request timeout, e.g. 10s (default from config)")
	pf.String("demo-fallback", "", "Show demo data when loads fail: off, initial or always")

	// The root command launches the console, so it shares the tui flags.
	addTUIFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "oxyadmin starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"build_date", bi.BuildDate,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		recordFailedCommand(err, os.Args)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}

// recordFailedCommand keeps usage errors on disk when OXYADMIN_RECORD_FAILURES
// is set.
func recordFailedCommand(err error, argv []string) {
	if !failedcmd.Enabled() {
		return
	}
	_, path, recErr := failedcmd.Default().Record(err, argv)
	if recErr != nil {
		debug.Logf("cli", "recording failed command: %v", recErr)
		return
	}
	if path != "" {
		debug.LogKV("cli", "failed command recorded", "path", path)
	}
}
