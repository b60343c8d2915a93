package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show scan history",
	Long: `Display a formatted table of past scans, for one domain or for every
target.

Scans are listed newest-first. Each row shows the scan ID (truncated), start
time, status and result counts. Scans marked "*" were created to hold port
or URL results for a target that had no full scan.

Use --limit to cap the number of rows shown (default: 10).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		var scans []*models.ScanMeta
		title := "all targets"
		if domain != "" {
			scans, err = store.ListScans(domain)
			title = domain
		} else {
			scans, err = store.ListAllScans()
		}
		if err != nil {
			return fmt.Errorf("listing scans for %s: %w", title, err)
		}

		if len(scans) == 0 {
			fmt.Printf("No scan history found for %s\n", title)
			return nil
		}

		if limit > 0 && len(scans) > limit {
			scans = scans[:limit]
		}

		rows := make([][]string, len(scans))
		for i, scan := range scans {
			target := scan.Target
			if scan.Orphan {
				target += " *"
			}
			rows[i] = []string{
				strconv.Itoa(i + 1),
				shortScanID(scan.ID),
				truncate(target, 40),
				scan.StartedAt.UTC().Format("2006-01-02 15:04"),
				string(scan.Status),
				strconv.Itoa(scan.SubdomainsCount),
				strconv.Itoa(scan.LiveHostsCount),
				strconv.Itoa(scan.HistoricalURLCount),
			}
		}

		fmt.Printf("\nScan History for %s\n", title)
		writeTable(os.Stdout, []string{"#", "Scan ID", "Target", "Started", "Status", "Subs", "Live", "URLs"}, rows)
		fmt.Printf("Total: %d scan(s)\n\n", len(scans))

		return nil
	},
}

// shortScanID returns the first 8 characters of a UUID followed by "..." for
// compact table display. Falls back to the full ID when shorter than 8 chars.
func shortScanID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func init() {
	historyCmd.Flags().StringP("domain", "d", "", "Only show scans of this domain")
	historyCmd.Flags().Int("limit", 10, "Maximum number of scans to display")
	rootCmd.AddCommand(historyCmd)
}
