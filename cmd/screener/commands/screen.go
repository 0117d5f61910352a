package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/internal/brain"
	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/screenconfig"
	"github.com/ddwolfer/Financial-Assistant/internal/universe"
	"github.com/ddwolfer/Financial-Assistant/pkg/config"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "유니버스 스크리닝 실행",
	Long: `Screens a universe and stores the batch.

Modes:
  absolute   strict limits (P/E < 15, PEG < 1, ROE >= 15%, D/E <= 0.5)
  sector     top sector percentile on every available metric
  dual       lenient safety net AND sector percentile (default)

Universes:
  sp500 | sp400 | sp600 | sp1500 | file:<path.json>
  --tickers overrides the universe with an explicit list.

Example:
  go run ./cmd/screener screen --universe sp500
  go run ./cmd/screener screen --universe sp1500 --mode sector --percentile-threshold 0.2
  go run ./cmd/screener screen --tickers AAPL,MSFT,JNJ --mode absolute --force-refresh
  go run ./cmd/screener screen --universe file:data/watchlist.json --thresholds thresholds.yaml`,
	RunE: runScreen,
}

// screenFlags is the CLI parameter set of one run
type screenFlags struct {
	universe     string
	mode         string
	forceRefresh bool
	percentile   float64
	tickers      []string
	thresholds   string
	tag          string
	delay        time.Duration
	timeout      time.Duration
	workers      int
	showFailed   bool
	jsonOutput   bool
}

var screenOpts screenFlags

func init() {
	rootCmd.AddCommand(screenCmd)

	f := screenCmd.Flags()
	f.StringVar(&screenOpts.universe, "universe", "sp500", "universe: sp500|sp400|sp600|sp1500|file:<path>")
	f.StringVar(&screenOpts.mode, "mode", string(contracts.ModeDual), "screening mode: absolute|sector|dual")
	f.BoolVar(&screenOpts.forceRefresh, "force-refresh", false, "ignore cached metrics and fetch every instrument")
	f.Float64Var(&screenOpts.percentile, "percentile-threshold", 0, "top sector fraction kept (default from thresholds, 0.30)")
	f.StringSliceVar(&screenOpts.tickers, "tickers", nil, "explicit identifiers, overrides --universe")
	f.StringVar(&screenOpts.thresholds, "thresholds", "", "thresholds YAML file (default THRESHOLDS_FILE)")
	f.StringVar(&screenOpts.tag, "tag", "", "results tag (default: the mode)")
	f.DurationVar(&screenOpts.delay, "delay", 0, "minimum spacing between provider calls (default FETCH_DELAY)")
	f.DurationVar(&screenOpts.timeout, "timeout", 0, "per-call provider timeout (default FETCH_TIMEOUT)")
	f.IntVar(&screenOpts.workers, "workers", 0, "parallel fetch workers (default FETCH_WORKERS)")
	f.BoolVar(&screenOpts.showFailed, "all", false, "also print failed instruments with reasons")
	f.BoolVar(&screenOpts.jsonOutput, "json", false, "print the batch as JSON")
}

// applyFetchOverrides copies explicitly set fetch flags onto cfg
func applyFetchOverrides(cmd *cobra.Command, opts screenFlags, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("delay") {
		if opts.delay < 0 {
			return fmt.Errorf("--delay must not be negative")
		}
		cfg.Fetch.Delay = opts.delay
	}
	if flags.Changed("timeout") {
		if opts.timeout <= 0 {
			return fmt.Errorf("--timeout must be positive")
		}
		cfg.Fetch.Timeout = opts.timeout
	}
	if flags.Changed("workers") {
		if opts.workers < 1 {
			return fmt.Errorf("--workers must be >= 1")
		}
		cfg.Fetch.Workers = opts.workers
	}
	return nil
}

// loadThresholds reads the thresholds file and applies --percentile-threshold
func loadThresholds(cmd *cobra.Command, opts screenFlags, cfg *config.Config) (screenconfig.Thresholds, error) {
	path := opts.thresholds
	if path == "" {
		path = cfg.ThresholdsFile
	}

	t, err := screenconfig.Load(path)
	if err != nil {
		return screenconfig.Thresholds{}, err
	}

	if cmd.Flags().Changed("percentile-threshold") {
		t = t.WithPercentileThreshold(opts.percentile)
		if err := screenconfig.Validate(t); err != nil {
			return screenconfig.Thresholds{}, err
		}
	}
	return t, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	opts := screenOpts

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFetchOverrides(cmd, opts, cfg); err != nil {
		return err
	}

	// 1. Thresholds and mode are checked before anything touches the network
	thresholds, err := loadThresholds(cmd, opts, cfg)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	mode, err := contracts.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	// 2. Dependencies
	d, err := initDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	for _, w := range screenconfig.Warn(thresholds) {
		d.log.WithField("code", w.Code).Warn(w.Message)
	}

	// 3. Universe
	universeName := opts.universe
	var instruments []contracts.Instrument
	if len(opts.tickers) > 0 {
		instruments = universe.Static(opts.tickers)
		universeName = "custom"
	} else {
		instruments, err = d.registry.List(ctx, universeName)
		if err != nil {
			return fmt.Errorf("list universe: %w", err)
		}
	}
	if len(instruments) == 0 {
		return fmt.Errorf("universe %s is empty", universeName)
	}

	if !opts.jsonOutput {
		printHeader(out, "Screening")
		printKeyValue(out, "Universe", fmt.Sprintf("%s (%d)", universeName, len(instruments)))
		printKeyValue(out, "Mode", string(mode))
		printKeyValue(out, "Refresh", fmt.Sprintf("%v", opts.forceRefresh))
		printKeyValue(out, "Cache", d.cacheLocation())
		fmt.Fprintln(out, singleLine)
	}

	// 4. Run
	batch, runErr := d.orchestrator().Run(ctx, instruments, thresholds, brain.RunOptions{
		Mode:         mode,
		ForceRefresh: opts.forceRefresh,
		Tag:          opts.tag,
		Universe:     universeName,
		Progress:     progressPrinter(cmd.ErrOrStderr(), opts.jsonOutput),
	})
	if batch == nil {
		return fmt.Errorf("screening failed: %w", runErr)
	}

	// 5. Output (persist 실패여도 결과는 출력)
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			return err
		}
	} else {
		printBatchSummary(out, batch, opts.showFailed)
		fmt.Fprintln(out)
		if runErr == nil {
			printSuccess(out, fmt.Sprintf("%d of %d passed", batch.TotalPassed, batch.TotalScreened))
		}
	}

	if runErr != nil {
		printWarning(cmd.ErrOrStderr(), runErr.Error())
		return runErr
	}
	return nil
}

// progressPrinter reports each resolved instrument on one rewritten line
func progressPrinter(w io.Writer, quiet bool) brain.ProgressFunc {
	if quiet {
		return nil
	}
	return func(p brain.Progress) {
		fmt.Fprintf(w, "\r[screen] %d/%d %-8s %-8s", p.Done, p.Total, p.Symbol, p.Source)
		if p.Done == p.Total {
			fmt.Fprintln(w)
		}
	}
}
