package cli

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

var systemCmd = &cobra.Command{
	Use:     "system",
	Aliases: []string{"sys"},
	Short:   "Inspect and control the backend system",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var systemConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the system configuration",
	Args:  cobra.NoArgs,
	RunE:  runSystemConfig,
}

var systemStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend status and resource counts",
	Args:  cobra.NoArgs,
	RunE:  runSystemStatus,
}

var systemExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the system configuration as json, yaml or toml",
	Long: `Asks the backend to prepare an export, then renders the current
configuration locally in the requested format. Without --output the
document is written to stdout.`,
	Args: cobra.NoArgs,
	RunE: runSystemExport,
}

var systemRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the backend",
	Args:  cobra.NoArgs,
	RunE:  runSystemRestart,
}

var systemImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the system configuration from a json, yaml or toml file",
	Long: `Uploads a configuration file, such as one written by "system export".
The format follows the file extension. The file is parsed locally first so
a malformed document never reaches the backend.`,
	Args: cobra.ExactArgs(1),
	RunE: runSystemImport,
}

func init() {
	systemConfigCmd.Flags().Bool("json", false, "Print the configuration as JSON")
	systemConfigCmd.Flags().Bool("show-secrets", false, "Print API keys unmasked")
	systemExportCmd.Flags().String("format", "json", "Output format: "+strings.Join(resource.ExportFormats, ", "))
	systemExportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	systemRestartCmd.Flags().BoolP("yes", "y", false, "Confirm the restart")

	systemCmd.AddCommand(systemConfigCmd, systemStatusCmd, systemExportCmd, systemImportCmd, systemRestartCmd)
	rootCmd.AddCommand(systemCmd)
}

func runSystemConfig(cmd *cobra.Command, args []string) error {
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}
	cfg, err := conn.client(nil).GetSystemConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading system config: %w", err)
	}
	if show, _ := cmd.Flags().GetBool("show-secrets"); !show {
		cfg = cfg.Clone()
		for i := range cfg.LLMConfigs {
			cfg.LLMConfigs[i].APIKey = cfg.LLMConfigs[i].MaskedAPIKey()
		}
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cfg)
	}

	printHeader("System Configuration")
	printField("Log Level", cfg.LogLevel)
	printField("Cache Dir", cfg.CacheDir)

	fmt.Printf("\n  %sLLMs%s\n", styleBoldWhite, colorReset)
	rows := make([][]string, 0, len(cfg.LLMConfigs))
	for _, l := range cfg.LLMConfigs {
		rows = append(rows, []string{l.Name, l.ModelName, l.BaseURL, l.APIKey})
	}
	printTable([]string{"NAME", "MODEL", "BASE URL", "API KEY"}, rows)

	fmt.Printf("\n  %sDatabases%s\n", styleBoldWhite, colorReset)
	rows = rows[:0]
	for _, d := range cfg.DatabaseConfigs {
		rows = append(rows, []string{d.Type, truncate(d.ConnectionString, 48)})
	}
	printTable([]string{"TYPE", "CONNECTION"}, rows)

	if len(cfg.AdditionalConfig) > 0 {
		fmt.Printf("\n  %sAdditional%s\n", styleBoldWhite, colorReset)
		for _, k := range slices.Sorted(maps.Keys(cfg.AdditionalConfig)) {
			printField(k, fmt.Sprint(cfg.AdditionalConfig[k]))
		}
	}
	fmt.Println()
	return nil
}

func runSystemStatus(cmd *cobra.Command, args []string) error {
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}
	st, err := conn.client(nil).SystemStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading system status: %w", err)
	}

	printHeader("System Status")
	printField("Backend", conn.baseURL)
	printField("Version", st.Version)
	printField("Status", statusBadge(st.Status))
	printField("Uptime", formatUptime(st.Uptime))
	printField("Active MAS", fmt.Sprint(st.ActiveMASCount))
	printField("Agents", fmt.Sprint(st.RegisteredAgentsCount))
	printField("Tools", fmt.Sprint(st.RegisteredToolsCount))
	printField("Workflows", fmt.Sprint(st.RegisteredWorkflowsCount))
	fmt.Println()
	return nil
}

func runSystemExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}
	client := conn.client(nil)
	info, err := client.ExportConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("exporting config: %w", err)
	}
	cfg, err := client.GetSystemConfig(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading system config: %w", err)
	}
	data, err := resource.EncodeConfig(cfg, format)
	if err != nil {
		return err
	}

	if output == "" {
		os.Stdout.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("\n  %s%s%s\n", styleBoldGreen, info.Message, colorReset)
	printField("File", output)
	if info.DownloadURL != "" {
		printField("Download URL", client.BaseURL+info.DownloadURL)
	}
	fmt.Println()
	return nil
}

func runSystemRestart(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("refusing to restart the backend without --yes")
	}
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}
	info, err := conn.client(nil).Restart(cmd.Context())
	if err != nil {
		return fmt.Errorf("restarting backend: %w", err)
	}
	fmt.Printf("\n  %s%s%s\n\n", styleBoldYellow, info.Message, colorReset)
	return nil
}

func formatUptime(seconds float64) string {
	s := int(seconds)
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	}
}

func runSystemImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if _, err := resource.DecodeConfig(data, resource.FormatOf(path)); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return err
	}
	info, err := conn.client(nil).ImportConfig(cmd.Context(), path, data)
	if err != nil {
		return fmt.Errorf("importing %s: %w", path, err)
	}
	fmt.Printf("\n  %s%s%s\n\n", styleBoldGreen, info.Message, colorReset)
	return nil
}
