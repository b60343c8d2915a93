package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Scan a single host for open ports",
	Long: `Run naabu against one host and attach the open ports to the matching
live host of the most recent scan (a new record is created when no scan
covers the host).

The host may be given as a URL, host:port, hostname or IP address.

Examples:
  reconaug ports -H api.example.com
  reconaug ports -H https://www.example.com:8443/login`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")

		ctx, stop := signalContext()
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.orch.StartPortScan(host)
		if err != nil {
			return err
		}

		fmt.Printf("[*] Starting port scan for %s (job %s)\n", host, id)
		snap := followJob(ctx, a.registry, id)
		if err := printOutcome(snap); err != nil {
			return err
		}

		if len(snap.Ports) > 0 {
			fmt.Println()
			fmt.Printf("    %-7s %s\n", "PORT", "SERVICE")
			for _, p := range snap.Ports {
				service := p.Service
				if p.Guessed {
					service += " (guessed)"
				}
				fmt.Printf("    %-7d %s\n", p.Number, service)
			}
		}

		return nil
	},
}

func init() {
	portsCmd.Flags().StringP("host", "H", "", "Host, URL or IP to scan (required)")
	portsCmd.MarkFlagRequired("host")
	rootCmd.AddCommand(portsCmd)
}
