package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "Collect historical URLs for a domain",
	Long: `Collect archived URLs for a domain with gau, falling back to the www
variant and then to the Wayback Machine CDX API. The full list is stored
with the most recent scan of the domain.

Examples:
  reconaug urls -d example.com
  reconaug urls -d example.com --limit 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, stop := signalContext()
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.orch.StartHistoricalURLs(domain)
		if err != nil {
			return err
		}

		fmt.Printf("[*] Collecting historical URLs for %s (job %s)\n", domain, id)
		snap := followJob(ctx, a.registry, id)
		if err := printOutcome(snap); err != nil {
			return err
		}

		urls := snap.URLs
		if limit > 0 && len(urls) > limit {
			urls = urls[:limit]
		}
		if len(urls) > 0 {
			fmt.Println()
			for _, u := range urls {
				fmt.Printf("    %s\n", u)
			}
		}
		if shown := len(urls); shown < snap.URLCount && snap.ScanID != "" {
			fmt.Printf("\n    ... %d more (see 'reconaug show %s --urls')\n", snap.URLCount-shown, snap.ScanID)
		}

		return nil
	},
}

func init() {
	urlsCmd.Flags().StringP("domain", "d", "", "Target domain (required)")
	urlsCmd.Flags().Int("limit", 50, "Maximum number of URLs to print (0 prints all collected)")
	urlsCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(urlsCmd)
}
