package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show combined daemon status",
	Long:  `Shows registered modules, mailbox watchers, job queue depth, and scheduler jobs in one view.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	status, err := client.GetStatus()
	if err != nil {
		formatter.PrintError(err)
		return err
	}

	if err := formatter.PrintModules(status.Modules); err != nil {
		return err
	}
	if err := formatter.PrintWatchers(status.Watchers); err != nil {
		return err
	}
	return formatter.PrintQueueStatus(&status.Queue)
}
