package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "저장된 스크리닝 결과 조회",
	Long: `Reads stored screening batches (RESULTS_BACKEND=file|postgres).

Example:
  go run ./cmd/screener results latest
  go run ./cmd/screener results latest --tag sector --all
  go run ./cmd/screener results list --limit 10`,
}

var (
	resultsLatestCmd = &cobra.Command{
		Use:   "latest",
		Short: "최신 배치 조회",
		Args:  cobra.NoArgs,
		RunE:  runResultsLatest,
	}

	resultsListCmd = &cobra.Command{
		Use:   "list",
		Short: "배치 목록 (최신순)",
		Args:  cobra.NoArgs,
		RunE:  runResultsList,
	}

	resultsTag   string
	resultsAll   bool
	resultsJSON  bool
	resultsLimit int
)

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsLatestCmd, resultsListCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsTag, "tag", "", "only batches with this tag")
	resultsLatestCmd.Flags().BoolVar(&resultsAll, "all", false, "also print failed instruments with reasons")
	resultsLatestCmd.Flags().BoolVar(&resultsJSON, "json", false, "print the batch as JSON")
	resultsListCmd.Flags().IntVar(&resultsLimit, "limit", 20, "maximum batches listed (0 = all)")
}

func runResultsLatest(cmd *cobra.Command, args []string) error {
	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()

	batch, err := d.results.Latest(cmd.Context(), resultsTag)
	if errors.Is(err, contracts.ErrNoBatch) {
		printInfo(out, "No stored batch"+tagSuffix(resultsTag))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load latest batch: %w", err)
	}

	if resultsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}

	printBatchSummary(out, batch, resultsAll)
	return nil
}

func runResultsList(cmd *cobra.Command, args []string) error {
	if resultsLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	d, err := openDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()

	refs, err := d.results.List(cmd.Context(), resultsTag)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}
	if len(refs) == 0 {
		printInfo(out, "No stored batch"+tagSuffix(resultsTag))
		return nil
	}

	total := len(refs)
	if resultsLimit > 0 && len(refs) > resultsLimit {
		refs = refs[:resultsLimit]
	}

	printHeader(out, fmt.Sprintf("Screening Batches (%d of %d)", len(refs), total))
	printBatchRefs(out, refs)
	return nil
}

func tagSuffix(tag string) string {
	if tag == "" {
		return ""
	}
	return fmt.Sprintf(" with tag %q", tag)
}
