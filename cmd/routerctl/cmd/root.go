package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nsqio/go-nsq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/routerops/routerops/internal/config"
	"github.com/routerops/routerops/internal/db"
	"github.com/routerops/routerops/internal/logging"
	"github.com/routerops/routerops/internal/task"
)

var (
	cfgFile    string
	guildID    int64
	timeout    time.Duration
	outputJSON bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "routerctl",
	Short: "RouterOps CLI - Manage routers and asynchronous device operations",
	Long: `RouterOps CLI (routerctl) is a command line tool for the RouterOps
device operations backend.

You can use it to register router profiles, enqueue configuration backups
and health checks, and inspect task outcomes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.routerctl.yaml)")
	rootCmd.PersistentFlags().Int64Var(&guildID, "guild", 0, "tenant guild ID that scopes routers and tasks")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	// Bind flags to viper
	viper.BindPFlag("guild", rootCmd.PersistentFlags().Lookup("guild"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".routerctl")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Override global variables with config values if flags weren't explicitly set
	if !rootCmd.PersistentFlags().Changed("guild") {
		if g := viper.GetInt64("guild"); g != 0 {
			guildID = g
		}
	}
	if !rootCmd.PersistentFlags().Changed("timeout") {
		if d := viper.GetDuration("timeout"); d > 0 {
			timeout = d
		}
	}
	if !rootCmd.PersistentFlags().Changed("json") {
		outputJSON = viper.GetBool("json")
	}
}

// requireGuild rejects commands that would otherwise operate on guild 0.
func requireGuild() error {
	if guildID == 0 {
		return fmt.Errorf("a tenant is required: pass --guild or set guild in %s", "$HOME/.routerctl.yaml")
	}
	return nil
}

// withPool runs fn against a fresh connection pool bound to the command
// timeout.
func withPool(fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	cfg := config.FromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("database connect failed: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}

// enqueue persists and publishes one task, then reports its ID.
func enqueue(opType, routerIP, note string) error {
	if err := requireGuild(); err != nil {
		return err
	}
	cfg := config.FromEnv()
	return withPool(func(ctx context.Context, pool *pgxpool.Pool) error {
		queue, err := nsq.NewProducer(cfg.NSQ.NsqdTCPAddr, nsq.NewConfig())
		if err != nil {
			return fmt.Errorf("queue connect failed: %w", err)
		}
		defer queue.Stop()

		producer := task.NewProducer(task.NewPGStore(pool), queue, cfg.NSQ.TaskTopic, logging.New("routerctl"))
		meta := map[string]string{}
		if note != "" {
			meta["note"] = note
		}
		t, err := producer.Enqueue(ctx, task.Request{
			Type:       opType,
			RouterHost: routerIP,
			GuildID:    guildID,
			Metadata:   meta,
		})
		if err != nil {
			return err
		}

		if outputJSON {
			printOutput(t)
		} else {
			fmt.Printf("Enqueued %s task %s for %s\n", t.Type, t.ID, t.RouterHost)
		}
		return nil
	})
}

// printOutput prints the response in the requested format
func printOutput(v any) {
	if outputJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling to JSON: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%+v\n", v)
}
