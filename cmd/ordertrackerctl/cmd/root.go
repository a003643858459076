package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"ordertracker/internal/api"
	cliapi "ordertracker/internal/cli"
)

var (
	serverURL       string
	format          string
	quiet           bool
	noColor         bool
	skipHealthCheck bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:                        "ordertrackerctl",
	Short:                      "Admin CLI for the order tracker daemon",
	Long:                       `ordertrackerctl manages a running ordertrackerd instance: module enable/disable, mailbox watcher status and restart, and job queue inspection.`,
	Version:                    "1.0.0",
	SuggestionsMinimumDistance: 2,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Daemon API address")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (minimal output)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVar(&skipHealthCheck, "skip-health-check", false, "Skip API health check for faster execution")
}

// initConfig initializes configuration and environment variable binding
func initConfig() {
	if serverURL == "" {
		serverURL = getEnvOrDefault("ORDERTRACKER_SERVER", "http://localhost:8080")
	}
	if format == "" {
		format = getEnvOrDefault("ORDERTRACKER_FORMAT", "table")
	}

	if os.Getenv("ORDERTRACKER_QUIET") == "true" && !rootCmd.PersistentFlags().Changed("quiet") {
		quiet = true
	}
	if (os.Getenv("NO_COLOR") != "" || os.Getenv("ORDERTRACKER_NO_COLOR") == "true") && !rootCmd.PersistentFlags().Changed("no-color") {
		noColor = true
	}
	if os.Getenv("ORDERTRACKER_SKIP_HEALTH_CHECK") == "true" && !rootCmd.PersistentFlags().Changed("skip-health-check") {
		skipHealthCheck = true
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(envVar, defaultVal string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultVal
}

// initializeClient sets up configuration, formatter, and API client
func initializeClient() (*cliapi.Config, *cliapi.OutputFormatter, *api.Client, error) {
	config, err := cliapi.LoadConfig(serverURL, format, quiet)
	if err != nil {
		return nil, nil, nil, err
	}

	formatter := cliapi.NewOutputFormatterWithColor(config.Format, config.Quiet, noColor)
	client := api.NewClient(&api.ClientConfig{
		BaseURL: config.ServerURL,
		Timeout: config.RequestTimeout,
	})

	if !skipHealthCheck {
		if err := client.HealthCheck(); err != nil {
			formatter.PrintError(err)
			return nil, nil, nil, err
		}
	}

	return config, formatter, client, nil
}
