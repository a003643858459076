package cmd

import (
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the job queue",
}

var queuePeekCmd = &cobra.Command{
	Use:   "peek",
	Short: "Show current queue depth by status",
	RunE:  runQueuePeek,
}

func init() {
	queueCmd.AddCommand(queuePeekCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueuePeek(cmd *cobra.Command, args []string) error {
	_, formatter, client, err := initializeClient()
	if err != nil {
		return err
	}

	status, err := client.PeekQueue()
	if err != nil {
		formatter.PrintError(err)
		return err
	}
	return formatter.PrintQueueStatus(status)
}
