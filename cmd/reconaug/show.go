package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/report"
	"github.com/hakim/reconaug/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show the results of a stored scan",
	Long: `Print the subdomains, live hosts and open ports of one scan. Use
--urls to also print its historical URLs, or --report to write the whole
scan as a markdown report.

Examples:
  reconaug show 3f2a9c1e-...
  reconaug show 3f2a9c1e-... --urls
  reconaug show 3f2a9c1e-... --report example.com.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withURLs, _ := cmd.Flags().GetBool("urls")
		reportPath, _ := cmd.Flags().GetString("report")

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		scan, err := store.GetScan(args[0])
		if err != nil {
			return fmt.Errorf("loading scan: %w", err)
		}
		if scan == nil {
			return fmt.Errorf("scan %s not found", args[0])
		}

		urls, err := store.GetHistoricalURLs(scan.ID)
		if err != nil {
			return fmt.Errorf("loading historical URLs: %w", err)
		}

		if reportPath != "" {
			if err := report.WriteScanReport(scan, urls, reportPath); err != nil {
				return err
			}
			fmt.Printf("[+] Report written to %s\n", reportPath)
			return nil
		}

		fmt.Printf("\n[*] Scan %s\n", scan.ID)
		fmt.Printf("    Target:  %s\n", scan.Target)
		fmt.Printf("    Started: %s\n", scan.StartedAt.UTC().Format("2006-01-02 15:04:05"))
		fmt.Printf("    Status:  %s\n", scan.Status)

		fmt.Printf("\n[+] Subdomains (%d)\n", len(scan.Subdomains))
		for _, s := range scan.Subdomains {
			fmt.Printf("    %-50s %s\n", s.Name, s.Source)
		}

		fmt.Printf("\n[+] Live hosts (%d)\n", len(scan.LiveHosts))
		if len(scan.LiveHosts) > 0 {
			rows := make([][]string, len(scan.LiveHosts))
			for i, h := range scan.LiveHosts {
				rows[i] = []string{h.URL, h.StatusCode, truncate(h.Technology, 40), report.FormatPorts(h.Ports)}
			}
			writeTable(os.Stdout, []string{"URL", "Status", "Technology", "Ports"}, rows)
		}

		if withURLs {
			fmt.Printf("\n[+] Historical URLs (%d)\n", len(urls))
			for _, u := range urls {
				fmt.Printf("    %s\n", u)
			}
		}

		fmt.Println()
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("urls", false, "Also print historical URLs")
	showCmd.Flags().String("report", "", "Write a markdown report to this path instead of printing")
	rootCmd.AddCommand(showCmd)
}
