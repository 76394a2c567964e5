package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/routerops/routerops/internal/task"
)

var tasksLimit int

// tasksCmd groups task inspection subcommands.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect queued and finished tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tasks for the guild, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGuild(); err != nil {
			return err
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			tasks, err := task.NewPGStore(pool).List(ctx, guildID, tasksLimit)
			if err != nil {
				return err
			}
			if outputJSON {
				printOutput(tasks)
				return nil
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks found")
				return nil
			}
			for _, t := range tasks {
				fmt.Printf("%s  %-12s  %-9s  %-15s  %s\n",
					t.CreatedAt.Format("2006-01-02 15:04:05"), t.Type, t.Status, t.RouterHost, t.ID)
			}
			return nil
		})
	},
}

var tasksGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show one task with its result and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			t, err := task.NewPGStore(pool).Get(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				printOutput(t)
				return nil
			}
			fmt.Printf("Task:    %s\n", t.ID)
			fmt.Printf("Type:    %s\n", t.Type)
			fmt.Printf("Router:  %s\n", t.Label())
			fmt.Printf("Status:  %s\n", t.Status)
			fmt.Printf("Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Updated: %s\n", t.UpdatedAt.Format("2006-01-02 15:04:05"))
			if t.Result != "" {
				fmt.Printf("Result:\n  %s\n", strings.ReplaceAll(t.Result, "\n", "\n  "))
			}
			if len(t.Metadata) > 0 {
				fmt.Println("Metadata:")
				for k, v := range t.Metadata {
					fmt.Printf("  %s: %s\n", k, v)
				}
			}
			return nil
		})
	},
}

func init() {
	tasksListCmd.Flags().IntVar(&tasksLimit, "limit", 20, "maximum number of tasks to list")
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksGetCmd)
	rootCmd.AddCommand(tasksCmd)
}
