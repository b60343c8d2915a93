package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/pipeline"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover subdomains and probe live hosts",
	Long: `Run a full scan for a target domain: query every available subdomain
source in parallel, merge the results, probe them for live HTTP hosts and
save everything to the database.

Sources are chosen by preset:
  full     every tool and API source (default)
  passive  web API sources only
  tools    subfinder and sublist3r only

Examples:
  reconaug scan -d example.com
  reconaug scan -d example.com --preset passive
  reconaug scan -d example.com --show-hosts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		presetName, _ := cmd.Flags().GetString("preset")
		showHosts, _ := cmd.Flags().GetBool("show-hosts")

		ctx, stop := signalContext()
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.orch.StartScan(pipeline.ScanRequest{Domain: domain, Preset: presetName})
		if err != nil {
			return err
		}

		fmt.Printf("[*] Starting scan for %s (job %s)\n", domain, id)
		snap := followJob(ctx, a.registry, id)
		if err := printOutcome(snap); err != nil {
			return err
		}

		fmt.Printf("    Subdomains: %d\n", snap.SubdomainsCount)
		fmt.Printf("    Live hosts: %d\n", snap.LiveHostsCount)
		if snap.ScanID != "" {
			fmt.Printf("    Scan ID:    %s\n", snap.ScanID)
		}

		if showHosts && len(snap.LiveHosts) > 0 {
			fmt.Println()
			for _, h := range snap.LiveHosts {
				fmt.Printf("    %-50s %-5s %s\n", h.URL, h.StatusCode, h.Technology)
			}
		}

		return nil
	},
}

func init() {
	scanCmd.Flags().StringP("domain", "d", "", "Target domain to scan (required)")
	scanCmd.Flags().String("preset", "", "Source preset: full, passive, tools (default from discovery.preset)")
	scanCmd.Flags().Bool("show-hosts", false, "Print every live host after the scan")

	scanCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(scanCmd)
}
