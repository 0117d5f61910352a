package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Value screener - 절대 기준 + 섹터 상대 평가 스크리닝",
	Long: `Quantitative equity screener.

Screens an index or ticker list on P/E, PEG, ROE and D/E with a
strict absolute track and a sector-relative percentile track, caches
provider metrics for 24h (failures for 1h) and stores every batch.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen --universe sp500 --mode dual
  go run ./cmd/screener screen --tickers AAPL,MSFT,BRK.B --mode absolute
  go run ./cmd/screener results latest --tag dual
  go run ./cmd/screener cache status
  go run ./cmd/screener serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Ctrl+C cancels the command context so a running batch stops and flushes.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load before the environment (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig applies the global flags and reads the environment
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}
	if env != "" {
		if err := os.Setenv("ENV", env); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
