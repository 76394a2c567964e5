package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/routerops/routerops/internal/router"
)

var (
	routerName     string
	routerHostname string
	routerUsername string
	routerPassword string
)

// routersCmd groups router profile management subcommands.
var routersCmd = &cobra.Command{
	Use:   "routers",
	Short: "Manage registered router profiles",
}

var routersAddCmd = &cobra.Command{
	Use:   "add <router-ip>",
	Short: "Register a router or replace its stored credentials",
	Long: `Register a router for the guild. Re-adding an existing address
replaces the stored credentials and resets the health verdict so the fleet
monitor re-evaluates the device.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGuild(); err != nil {
			return err
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			p := &router.Profile{
				GuildID:  guildID,
				IP:       args[0],
				Name:     routerName,
				Hostname: routerHostname,
				Username: routerUsername,
				Password: routerPassword,
			}
			if err := router.NewPGStore(pool).Upsert(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Registered router %s\n", p.Label())
			return nil
		})
	},
}

var routersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List routers registered for the guild",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGuild(); err != nil {
			return err
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			profiles, err := router.NewPGStore(pool).List(ctx, guildID)
			if err != nil {
				return err
			}
			if outputJSON {
				printOutput(profiles)
				return nil
			}
			if len(profiles) == 0 {
				fmt.Println("No routers registered")
				return nil
			}
			for _, p := range profiles {
				lastSeen := "never"
				if p.LastSeen != nil {
					lastSeen = p.LastSeen.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%-15s  %-11s  last seen %s  %s\n", p.IP, p.Status, lastSeen, p.Label())
			}
			return nil
		})
	},
}

var routersRemoveCmd = &cobra.Command{
	Use:   "remove <router-ip>",
	Short: "Remove a router profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireGuild(); err != nil {
			return err
		}
		return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
			if err := router.NewPGStore(pool).Delete(ctx, guildID, args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed router %s\n", args[0])
			return nil
		})
	},
}

func init() {
	routersAddCmd.Flags().StringVar(&routerName, "name", "", "display name for the router")
	routersAddCmd.Flags().StringVar(&routerHostname, "hostname", "", "device hostname, if known")
	routersAddCmd.Flags().StringVar(&routerUsername, "username", "", "management username")
	routersAddCmd.Flags().StringVar(&routerPassword, "password", "", "management password")

	routersCmd.AddCommand(routersAddCmd)
	routersCmd.AddCommand(routersListCmd)
	routersCmd.AddCommand(routersRemoveCmd)
	rootCmd.AddCommand(routersCmd)
}
