package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/internal/metriccache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "지표 캐시 관리",
	Long: `Inspects and maintains the metric cache.

Successful fetches live for CACHE_SUCCESS_TTL (24h), failure markers
for CACHE_FAILURE_TTL (1h).

Example:
  go run ./cmd/screener cache status
  go run ./cmd/screener cache show AAPL
  go run ./cmd/screener cache prune
  go run ./cmd/screener cache clear --yes`,
}

var (
	cacheStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "캐시 통계",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatus,
	}

	cacheShowCmd = &cobra.Command{
		Use:   "show <symbol>",
		Short: "종목 캐시 항목 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheShow,
	}

	cachePruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "만료 항목 삭제",
		Args:  cobra.NoArgs,
		RunE:  runCachePrune,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "캐시 전체 삭제",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	}

	cacheClearYes bool
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatusCmd, cacheShowCmd, cachePruneCmd, cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearYes, "yes", false, "confirm deleting every entry")
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	printCacheStats(cmd.OutOrStdout(), d.cacheLocation(), d.cache.TTLs(), d.cache.Stats())
	return nil
}

func printCacheStats(w io.Writer, location string, ttls metriccache.TTLs, s metriccache.Stats) {
	printHeader(w, "Metric Cache")
	printKeyValue(w, "Location", location)
	printKeyValue(w, "TTL", fmt.Sprintf("success %s, failure %s", ttls.Success, ttls.Failure))
	fmt.Fprintln(w, singleLine)
	printKeyValue(w, "Entries", fmt.Sprintf("%d", s.Total))
	printKeyValue(w, "Live hits", fmt.Sprintf("%d", s.LiveHits))
	printKeyValue(w, "Failures", fmt.Sprintf("%d", s.LiveFailures))
	printKeyValue(w, "Expired", fmt.Sprintf("%d", s.Expired))
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	symbol := metriccache.NormalizeKey(args[0])
	out := cmd.OutOrStdout()

	record, ok := d.cache.Peek(symbol)
	if !ok {
		printInfo(out, fmt.Sprintf("%s is not cached", symbol))
		return nil
	}

	ttls := d.cache.TTLs()
	state := d.cache.Get(symbol).State.String()
	if !record.Live(time.Now(), ttls) {
		state = "expired"
	}

	printHeader(out, "Cache Entry: "+symbol)
	printKeyValue(out, "State", state)
	printKeyValue(out, "Kind", string(record.Kind))
	printKeyValue(out, "Fetched", formatTime(record.FetchedAt))
	printKeyValue(out, "Expires", formatTime(record.ExpiresAt(ttls)))
	if record.Error != "" {
		printKeyValue(out, "Error", record.Error)
	}
	fmt.Fprintln(out, singleLine)

	if record.Payload != nil {
		data, err := json.MarshalIndent(record.Payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	}
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	removed := d.cache.Prune()
	if err := d.cache.Flush(cmd.Context()); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Pruned %d expired entries", removed))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	if !cacheClearYes {
		return fmt.Errorf("refusing to clear the cache without --yes")
	}

	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	total := d.cache.Stats().Total
	if err := d.cache.Clear(cmd.Context()); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cleared %d entries from %s", total, d.cacheLocation()))
	return nil
}

// openDeps loads config and builds dependencies for a subcommand
func openDeps(cmd *cobra.Command) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return initDeps(cmd.Context(), cfg)
}
