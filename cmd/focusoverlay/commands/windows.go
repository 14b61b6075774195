package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FocusOverlay/internal/window"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List top-level windows",
	Long: `List the top-level windows the overlay could follow.

Titles are compared after replacing Cyrillic look-alike letters and case
folding, so "РоkеММО" matches a target of "pokemmo".`,
	Example: `  # List windows in table format (default)
  focusoverlay windows

  # List windows in JSON format
  focusoverlay windows --format json

  # Show only windows matching a title
  focusoverlay windows --match "PokeMMO"`,
	Args: cobra.NoArgs,
	RunE: runWindows,
}

var (
	windowsFormat string
	windowsMatch  string
)

// windowRow is one listed window with its match result
type windowRow struct {
	*window.Info
	Match bool `json:"match"`
}

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
	windowsCmd.Flags().StringVarP(&windowsMatch, "match", "m", "", "only show windows matching this title (default is target_window_title)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target := cfg.TargetWindowTitle
	if windowsMatch != "" {
		target = windowsMatch
	}

	lister, err := window.NewLister()
	if err != nil {
		return fmt.Errorf("failed to open window list: %w", err)
	}
	defer lister.Close()

	windows, err := lister.ListWindows()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	rows := matchWindows(windows, window.Matcher{Title: target}, windowsMatch != "")

	switch windowsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "table":
		return printWindowsTable(os.Stdout, rows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", windowsFormat)
	}
}

// matchWindows marks matching windows; with only set, the rest are dropped
func matchWindows(windows []*window.Info, m window.Matcher, only bool) []windowRow {
	rows := make([]windowRow, 0, len(windows))
	for _, w := range windows {
		match := m.Match(w.Title)
		if only && !match {
			continue
		}
		rows = append(rows, windowRow{Info: w, Match: match})
	}
	return rows
}

func printWindowsTable(out io.Writer, rows []windowRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTITLE\tCLASS\tPID\tVISIBLE\tMATCH")
	fmt.Fprintln(w, "--\t-----\t-----\t---\t-------\t-----")

	for _, row := range rows {
		match := ""
		if row.Match {
			match = "*"
		}
		fmt.Fprintf(w, "0x%x\t%s\t%s\t%d\t%t\t%s\n",
			row.ID, row.Title, row.Class, row.PID, row.Visible, match)
	}

	return nil
}
