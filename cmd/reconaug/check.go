package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hakim/reconaug/internal/tools"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which external tools and API keys are usable",
	Long: `Verify that the external reconnaissance tools are installed and answer a
version query. Shows installation status, version information, and
installation instructions for missing tools. Every tool is optional: scans
skip whatever is unavailable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		toolList := tools.DefaultTools()
		paths := map[string]string{
			tools.CapSubfinder: cfg.Tools.Subfinder.Path,
			tools.CapSublist3r: cfg.Tools.Sublist3r.Path,
			tools.CapHttpx:     cfg.Tools.Httpx.Path,
			tools.CapGau:       cfg.Tools.Gau.Path,
			tools.CapNaabu:     cfg.Tools.Naabu.Path,
		}
		for i := range toolList {
			if p := paths[toolList[i].Name]; p != "" {
				toolList[i].Binary = p
			}
		}

		results := tools.CheckTools(toolList)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tStatus\tVersion\tPurpose")
		fmt.Fprintln(w, "----\t------\t-------\t-------")

		usable := 0
		for _, result := range results {
			status := "[-]"
			version := "-"

			switch {
			case result.Found && result.Responsive:
				status = "[+]"
				usable++
				if result.Version != "" && result.Version != "unknown" {
					version = result.Version
				}
			case result.Found:
				status = "[!]"
				version = "not responding"
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				result.Tool.Name,
				status,
				version,
				result.Tool.Purpose)
		}

		chaos := "[-]"
		if cfg.APIs.ChaosKey != "" {
			chaos = "[+]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tools.CapChaosAPI, chaos, "-", "Chaos dataset (requires apis.chaos_key)")

		w.Flush()

		// Print installation instructions for missing tools
		fmt.Println()
		missingTools := false
		for _, result := range results {
			if !result.Found {
				if !missingTools {
					fmt.Println("Missing tools:")
					missingTools = true
				}
				fmt.Printf("  %s\n    Install: %s\n",
					result.Tool.Name,
					result.Tool.InstallCmd)
			}
		}

		fmt.Println()
		fmt.Printf("Summary: %d/%d tools usable\n", usable, len(results))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
