package cmd

import (
	"github.com/spf13/cobra"

	"github.com/routerops/routerops/internal/task"
)

// healthCheckCmd enqueues a health audit for one router.
var healthCheckCmd = &cobra.Command{
	Use:   "health-check <router-ip>",
	Short: "Enqueue a health check for a router",
	Long: `Enqueue an asynchronous health audit. A worker fetches the hostname,
interface states, and static routes over RESTCONF and stores a summary on
the task record.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(task.OpHealthCheck, args[0], "")
	},
}

func init() {
	rootCmd.AddCommand(healthCheckCmd)
}
