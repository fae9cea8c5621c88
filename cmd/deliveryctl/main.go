// Command deliveryctl runs engine operations from the shell: date-driven
// refreshes, review generation, KPIs, claims and template catalog imports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/YusovID/bim-delivery-service/internal/app"
	"github.com/YusovID/bim-delivery-service/internal/config"
	"github.com/YusovID/bim-delivery-service/pkg/logger/slogpretty"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "deliveryctl",
	Short: "Operate the BIM delivery review and billing engine",
	Long: `deliveryctl talks to the same database as the delivery service.
Date-driven status changes only happen when you run "deliveryctl refresh";
there is no background scheduler.`,
	SilenceUsage: true,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the service config file")
	registerCommands()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func registerCommands() {
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(kpisCmd())
	rootCmd.AddCommand(reviewsCmd())
	rootCmd.AddCommand(claimCmd())
	rootCmd.AddCommand(templatesCmd())
}

// withApp builds the engine from config, runs fn and closes the pool.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	if configPath == "" {
		return fmt.Errorf("config path is not set; use --config or CONFIG_PATH")
	}

	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}

	log := slogpretty.NewLogger(cfg.Env, os.Stderr)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

// parseDay parses an optional YYYY-MM-DD flag; empty means today.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}

	return t, nil
}

func requireDay(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}

	return parseDay(s)
}
