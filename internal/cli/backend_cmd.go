package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/discovery"
)

var backendCmd = &cobra.Command{
	Use:     "backend",
	Aliases: []string{"backends"},
	Short:   "Manage saved backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var backendListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved backends",
	Args:    cobra.NoArgs,
	RunE:    runBackendList,
}

var backendAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Save a backend",
	Long: `Saves a named backend. Bare host:port and :port values get an
http:// scheme. The first backend saved becomes the default.`,
	Args: cobra.ExactArgs(2),
	RunE: runBackendAdd,
}

var backendRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Forget a saved backend",
	Args:    cobra.ExactArgs(1),
	RunE:    runBackendRemove,
}

var backendUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a saved backend the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackendUse,
}

var backendDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find backends advertised on the local network",
	Args:  cobra.NoArgs,
	RunE:  runBackendDiscover,
}

func init() {
	backendAddCmd.Flags().Bool("default", false, "Also make it the default backend")
	backendDiscoverCmd.Flags().Duration("wait", discovery.DefaultTimeout, "How long to listen for announcements")
	backendDiscoverCmd.Flags().Bool("save", false, "Save every backend found")

	backendCmd.AddCommand(backendListCmd, backendAddCmd, backendRemoveCmd, backendUseCmd, backendDiscoverCmd)
	rootCmd.AddCommand(backendCmd)
}

func runBackendList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printHeader("Backends")
	rows := make([][]string, 0, len(cfg.Backends))
	for _, b := range cfg.Backends {
		mark := ""
		if strings.EqualFold(b.Name, cfg.DefaultBackend) {
			mark = colorGreen + "*" + colorReset
		}
		rows = append(rows, []string{mark, b.Name, b.URL})
	}
	printTable([]string{"", "NAME", "URL"}, rows)
	if len(cfg.Backends) == 0 {
		fmt.Printf("\n  %sWithout a saved backend oxyadmin uses %s%s\n", colorDim, config.DefaultBackendURL, colorReset)
	}
	fmt.Println()
	return nil
}

func runBackendAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.AddBackend(config.Backend{Name: args[0], URL: args[1]}); err != nil {
		return err
	}
	if makeDefault, _ := cmd.Flags().GetBool("default"); makeDefault {
		cfg.DefaultBackend = strings.TrimSpace(args[0])
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	b := cfg.FindBackend(args[0])
	fmt.Printf("Backend %s%s%s saved (%s).\n", styleBoldWhite, b.Name, colorReset, b.URL)
	return nil
}

func runBackendRemove(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.FindBackend(args[0]) == nil {
		return fmt.Errorf("unknown backend %q", args[0])
	}
	cfg.RemoveBackend(args[0])
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Backend %s removed.\n", args[0])
	return nil
}

func runBackendUse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	b := cfg.FindBackend(args[0])
	if b == nil {
		return fmt.Errorf("unknown backend %q", args[0])
	}
	cfg.DefaultBackend = b.Name
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Default backend is now %s%s%s (%s).\n", styleBoldWhite, b.Name, colorReset, b.URL)
	return nil
}

func runBackendDiscover(cmd *cobra.Command, args []string) error {
	wait, _ := cmd.Flags().GetDuration("wait")
	save, _ := cmd.Flags().GetBool("save")

	fmt.Printf("%sListening for backends for %s...%s\n", colorDim, wait, colorReset)
	found, err := discovery.Lookup(cmd.Context(), wait)
	if err != nil {
		return err
	}

	printHeader("Discovered Backends")
	rows := make([][]string, 0, len(found))
	for _, b := range found {
		rows = append(rows, []string{b.Name, b.URL})
	}
	printTable([]string{"NAME", "URL"}, rows)
	fmt.Println()
	if !save || len(found) == 0 {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	added := 0
	for _, b := range found {
		if cfg.FindBackend(b.Name) != nil {
			continue
		}
		if err := cfg.AddBackend(config.Backend{Name: b.Name, URL: b.URL}); err != nil {
			fmt.Printf("  %sskipping %s: %v%s\n", colorYellow, b.Name, err, colorReset)
			continue
		}
		added++
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Saved %d new backend(s).\n", added)
	return nil
}
