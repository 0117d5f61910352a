package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// printHeader prints a boxed section title
func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// printKeyValue prints one aligned key-value line
func printKeyValue(w io.Writer, key string, value string) {
	fmt.Fprintf(w, "  %-10s: %s\n", key, value)
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

func printInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// printTable prints columns padded to widths
func printTable(w io.Writer, columns []string, widths []int, rows [][]string) {
	printTableRow(w, columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", total))

	for _, row := range rows {
		printTableRow(w, row, widths)
	}
}

func printTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		if i == len(values)-1 {
			fmt.Fprint(w, val)
			break
		}
		fmt.Fprintf(w, "%-*s  ", widths[i], val)
	}
	fmt.Fprintln(w)
}

// formatFloat renders an optional value, "-" when unknown
func formatFloat(v *float64, decimals int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

// formatRatioPct renders a ratio (0.153) as a percentage (15.3%)
func formatRatioPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// formatSignedPct renders a value already in percent, with its sign
func formatSignedPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatTracks(tracks []contracts.Track) string {
	if len(tracks) == 0 {
		return "-"
	}
	names := make([]string, len(tracks))
	for i, t := range tracks {
		names[i] = string(t)
	}
	return strings.Join(names, "+")
}

func reasonMessages(reasons []contracts.Reason) string {
	msgs := make([]string, len(reasons))
	for i, r := range reasons {
		msgs[i] = r.Message
	}
	return strings.Join(msgs, "; ")
}

var passedColumns = []string{"Symbol", "Sector", "P/E", "PEG", "ROE", "D/E", "Graham", "MOS", "Tracks"}
var passedWidths = []int{8, 24, 7, 6, 7, 6, 9, 8, 20}

// passedRows builds the summary table rows of passing instruments
func passedRows(batch *contracts.ScreeningBatch) [][]string {
	passed := batch.Passed()
	rows := make([][]string, 0, len(passed))
	for _, r := range passed {
		var s contracts.MetricSnapshot
		if r.Snapshot != nil {
			s = *r.Snapshot
		}
		rows = append(rows, []string{
			r.Symbol,
			truncate(r.Sector, passedWidths[1]),
			formatFloat(s.TrailingPE, 1),
			formatFloat(s.PEG, 2),
			formatRatioPct(s.ROE),
			formatFloat(s.DebtToEquity, 2),
			formatFloat(r.GrahamNumber, 2),
			formatSignedPct(r.MarginOfSafety),
			formatTracks(r.PassedTracks),
		})
	}
	return rows
}

// printBatchSummary prints the batch header, the passed table and
// optionally every failed instrument with its reasons
func printBatchSummary(w io.Writer, batch *contracts.ScreeningBatch, showFailed bool) {
	printHeader(w, "Screening Batch")
	printKeyValue(w, "Run ID", batch.RunID)
	printKeyValue(w, "Tag", batch.Tag)
	printKeyValue(w, "Mode", string(batch.Mode))
	if batch.Universe != "" {
		printKeyValue(w, "Universe", batch.Universe)
	}
	printKeyValue(w, "Time", formatTime(batch.Timestamp))
	printKeyValue(w, "Screened", fmt.Sprintf("%d", batch.TotalScreened))
	printKeyValue(w, "Passed", fmt.Sprintf("%d", batch.TotalPassed))
	fmt.Fprintln(w, singleLine)

	if batch.TotalPassed == 0 {
		printInfo(w, "No instrument passed")
	} else {
		fmt.Fprintln(w)
		printTable(w, passedColumns, passedWidths, passedRows(batch))
	}

	if !showFailed {
		return
	}

	fmt.Fprintln(w)
	for _, r := range batch.Results {
		if r.Passed {
			continue
		}
		fmt.Fprintf(w, "   ✗ %-8s %s\n", r.Symbol, reasonMessages(r.Reasons))
	}
}

// printBatchRefs prints a listing of stored batches
func printBatchRefs(w io.Writer, refs []contracts.BatchRef) {
	rows := make([][]string, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, []string{
			formatTime(ref.Timestamp),
			ref.Tag,
			string(ref.Mode),
			fmt.Sprintf("%d/%d", ref.TotalPassed, ref.TotalScreened),
			ref.Location,
		})
	}
	printTable(w,
		[]string{"Time", "Tag", "Mode", "Passed", "Location"},
		[]int{23, 16, 8, 9, 40},
		rows,
	)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
