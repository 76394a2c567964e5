package cmd

import (
	"github.com/spf13/cobra"

	"github.com/routerops/routerops/internal/task"
)

var backupNote string

// backupCmd enqueues a configuration backup for one router.
var backupCmd = &cobra.Command{
	Use:   "backup <router-ip>",
	Short: "Enqueue a configuration backup for a router",
	Long: `Enqueue an asynchronous configuration backup. A worker pulls the
running configuration over SSH and archives it; check the task with
"routerctl tasks get <id>".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(task.OpBackup, args[0], backupNote)
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupNote, "note", "", "free-form note attached to the task and its notification")
	rootCmd.AddCommand(backupCmd)
}
