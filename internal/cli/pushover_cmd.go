package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/pushover"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// newPushoverClient is swapped in tests.
var newPushoverClient = pushover.New

var pushoverCmd = &cobra.Command{
	Use:   "pushover",
	Short: "Manage Pushover notification settings",
	Long:  "Configure Pushover credentials so 'oxyadmin events --push' can forward backend changes to your phone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var pushoverSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure Pushover credentials",
	Long: `Set up Pushover integration by providing your User Key and Application Token.

You can find these at https://pushover.net:
  - User Key: shown on your Pushover dashboard
  - App Token: create an application at https://pushover.net/apps/build`,
	Args: cobra.NoArgs,
	RunE: pushoverSetup,
}

var pushoverTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test Pushover notification",
	Args:  cobra.NoArgs,
	RunE:  pushoverTest,
}

var pushoverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Pushover configuration status",
	Args:  cobra.NoArgs,
	RunE:  pushoverStatus,
}

func init() {
	pushoverSetupCmd.Flags().String("user-key", "", "Pushover user key")
	pushoverSetupCmd.Flags().String("app-token", "", "Pushover application token")
	pushoverCmd.AddCommand(pushoverSetupCmd, pushoverTestCmd, pushoverStatusCmd)
	rootCmd.AddCommand(pushoverCmd)
}

func pushoverSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	userKey, _ := cmd.Flags().GetString("user-key")
	appToken, _ := cmd.Flags().GetString("app-token")

	reader := bufio.NewReader(os.Stdin)
	if userKey == "" {
		userKey = promptWithCurrent(reader, "Pushover User Key", cfg.Pushover.UserKey)
	}
	if appToken == "" {
		appToken = promptWithCurrent(reader, "Pushover App Token", cfg.Pushover.AppToken)
	}
	if userKey == "" || appToken == "" {
		return fmt.Errorf("both user key and app token are required")
	}

	cfg.Pushover = config.PushoverConfig{UserKey: userKey, AppToken: appToken}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\n  %sPushover credentials saved to %s%s\n", styleBoldGreen, config.Dir(), colorReset)
	return nil
}

// promptWithCurrent asks for a value, keeping current on an empty answer.
func promptWithCurrent(reader *bufio.Reader, label, current string) string {
	prompt := "  " + label
	if current != "" {
		prompt += fmt.Sprintf(" [%s]", resource.MaskSecret(current))
	}
	fmt.Print(prompt + ": ")
	input, _ := reader.ReadString('\n')
	if input = strings.TrimSpace(input); input != "" {
		return input
	}
	return current
}

func pushoverTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Pushover.Configured() {
		return fmt.Errorf("pushover not configured: run 'oxyadmin pushover setup' first")
	}

	msg := pushover.Message{
		Title:    "oxyadmin test",
		Body:     "This is a test notification from oxyadmin.",
		Priority: pushover.PriorityNormal,
	}
	fmt.Print("  Sending test notification... ")
	if err := newPushoverClient(cfg.Pushover).Send(cmd.Context(), msg); err != nil {
		fmt.Println()
		return fmt.Errorf("test failed: %w", err)
	}
	fmt.Printf("%sOK%s\n", styleBoldGreen, colorReset)
	return nil
}

func pushoverStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printHeader("Pushover")
	if cfg.Pushover.Configured() {
		printField("User Key", resource.MaskSecret(cfg.Pushover.UserKey))
		printField("App Token", resource.MaskSecret(cfg.Pushover.AppToken))
		printField("Status", colorGreen+"configured"+colorReset)
	} else {
		printField("Status", colorYellow+"not configured"+colorReset)
		fmt.Println()
		fmt.Printf("  Run %soxyadmin pushover setup%s to configure.\n", styleBoldWhite, colorReset)
	}
	fmt.Println()
	return nil
}
