package cmd

import (
	"github.com/spf13/cobra"
)

var watchersCmd = &cobra.Command{
	Use:   "watchers",
	Short: "Inspect and manage mailbox watchers",
}

var watchersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every running mailbox watcher",
	RunE:    runWatchersList,
}

var watchersRestartCmd = &cobra.Command{
	Use:   "restart <mailbox-id>",
	Short: "Restart a mailbox watcher",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchersRestart,
}

func init() {
	watchersCmd.AddCommand(watchersListCmd, watchersRestartCmd)
	rootCmd.AddCommand(watchersCmd)
}

func runWatchersList(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	status, err := client.GetStatus()
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintWatchers(status.Watchers)
}

func runWatchersRestart(cmd *cobra.Command, args []string) error {
	config, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	if err := client.RestartWatcher(args[0]); err != nil {
		formatter.PrintError(err)
		return err
	}
	if !config.Quiet {
		formatter.PrintSuccess("watcher " + args[0] + " restarted")
	}
	return nil
}
