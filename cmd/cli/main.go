package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"artdiscover/internal/bans"
	"artdiscover/pkg/utils"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "artdiscover",
		Short:         "Discover random paintings from the Harvard Art Museums",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $ARTDISCOVER_CONFIG or ./artdiscover.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDiscoverCmd(),
		newBrowseCmd(),
		newWatchCmd(),
		newRemoteCmd(),
		newJournalCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the layered configuration and builds a logger for
// commands that talk to the catalog directly.
func loadConfig() (utils.Config, *zap.Logger, error) {
	cfg, err := utils.LoadConfig(configPath)
	if err != nil {
		return utils.Config{}, nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	log, err := utils.NewLogger(cfg.Log)
	if err != nil {
		return utils.Config{}, nil, err
	}
	return cfg, log, nil
}

func guardFor(cfg utils.Config) bans.Guard {
	if cfg.Bans.GuardAllSentinels {
		return bans.GuardAllPlaceholders
	}
	return bans.GuardCultureOnly
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	fmt.Println(string(b))
	return nil
}
