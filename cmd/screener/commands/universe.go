package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/internal/universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "유니버스 조회 및 티커 캐시 갱신",
	Long: `Resolves a universe name to its instruments.

Index constituents are scraped from Wikipedia once and cached to
DATA_DIR/<name>_tickers.json.

Example:
  go run ./cmd/screener universe list sp500
  go run ./cmd/screener universe list file:data/watchlist.json --symbols
  go run ./cmd/screener universe refresh sp1500`,
}

var (
	universeListCmd = &cobra.Command{
		Use:   "list <name>",
		Short: "유니버스 구성 종목 요약",
		Args:  cobra.ExactArgs(1),
		RunE:  runUniverseList,
	}

	universeRefreshCmd = &cobra.Command{
		Use:   "refresh [index...]",
		Short: "지수 구성 종목 재수집",
		RunE:  runUniverseRefresh,
	}

	universeSymbols bool
)

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeListCmd, universeRefreshCmd)

	universeListCmd.Flags().BoolVar(&universeSymbols, "symbols", false, "print every symbol")
}

func runUniverseList(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	instruments, err := d.registry.List(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, fmt.Sprintf("Universe %s (%d)", args[0], len(instruments)))

	rows := sectorCounts(instruments)
	printTable(out, []string{"Sector", "Count"}, []int{28, 5}, rows)

	if universeSymbols {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(contracts.Symbols(instruments), " "))
	}
	return nil
}

// sectorCounts returns (sector, count) rows, largest first
func sectorCounts(instruments []contracts.Instrument) [][]string {
	counts := make(map[string]int)
	for _, inst := range instruments {
		sector := inst.Sector
		if sector == "" {
			sector = "(unknown)"
		}
		counts[sector]++
	}

	sectors := make([]string, 0, len(counts))
	for s := range counts {
		sectors = append(sectors, s)
	}
	sort.Slice(sectors, func(i, j int) bool {
		if counts[sectors[i]] != counts[sectors[j]] {
			return counts[sectors[i]] > counts[sectors[j]]
		}
		return sectors[i] < sectors[j]
	})

	rows := make([][]string, len(sectors))
	for i, s := range sectors {
		rows[i] = []string{s, fmt.Sprintf("%d", counts[s])}
	}
	return rows
}

func runUniverseRefresh(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = []string{"sp500"}
	}
	for _, name := range names {
		if !universe.IsIndex(name) {
			return fmt.Errorf("unknown index %q (want %s)", name, strings.Join(universe.Indexes(), ", "))
		}
	}

	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	provider := d.index.WithRefresh(true)
	out := cmd.OutOrStdout()

	for _, name := range names {
		instruments, err := provider.List(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", name, err)
		}
		printSuccess(out, fmt.Sprintf("%s: %d instruments -> %s", name, len(instruments), provider.CachePath(name)))
	}
	return nil
}
