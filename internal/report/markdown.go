// Package report renders stored scans as markdown.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hakim/reconaug/internal/models"
)

// maxReportURLs bounds how many historical URLs are listed inline
const maxReportURLs = 200

// RenderScan builds a markdown report for a scan and its historical URLs.
func RenderScan(scan *models.Scan, urls []string) string {
	var b strings.Builder

	// Header
	b.WriteString("# Recon Report\n\n")
	b.WriteString(fmt.Sprintf("**Target:** %s\n", scan.Target))
	b.WriteString(fmt.Sprintf("**Scan ID:** %s\n", scan.ID))
	b.WriteString(fmt.Sprintf("**Date:** %s\n", scan.StartedAt.UTC().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("**Subdomains:** %d | **Live hosts:** %d | **Open ports:** %d | **Historical URLs:** %d\n\n",
		len(scan.Subdomains), len(scan.LiveHosts), countPorts(scan.LiveHosts), len(urls)))

	// Sources section
	b.WriteString("## Sources\n\n")
	sources := countSources(scan.Subdomains)
	if len(sources) > 0 {
		b.WriteString("| Source | Count |\n")
		b.WriteString("|--------|-------|\n")
		for _, sc := range sources {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", sc.name, sc.count))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	// Live HTTP services
	b.WriteString("## Live HTTP Services\n\n")
	if len(scan.LiveHosts) > 0 {
		b.WriteString("| URL | Status | Technology | Ports |\n")
		b.WriteString("|-----|--------|------------|-------|\n")
		for _, h := range scan.LiveHosts {
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				h.URL, orDash(h.StatusCode), orDash(h.Technology), FormatPorts(h.Ports)))
		}
	} else {
		b.WriteString("No live HTTP services discovered.\n")
	}
	b.WriteString("\n")

	// Subdomains
	b.WriteString("## Subdomains\n\n")
	if len(scan.Subdomains) > 0 {
		b.WriteString("| Subdomain | Source |\n")
		b.WriteString("|-----------|--------|\n")
		for _, sub := range scan.Subdomains {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", sub.Name, orDash(sub.Source)))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	// Historical URLs
	b.WriteString("## Historical URLs\n\n")
	if len(urls) > 0 {
		shown := urls
		if len(shown) > maxReportURLs {
			shown = shown[:maxReportURLs]
		}
		for _, u := range shown {
			b.WriteString(fmt.Sprintf("- %s\n", u))
		}
		if len(urls) > len(shown) {
			b.WriteString(fmt.Sprintf("\n_%d more not shown._\n", len(urls)-len(shown)))
		}
	} else {
		b.WriteString("None collected.\n")
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("_Generated %s_\n", time.Now().UTC().Format("2006-01-02 15:04:05")))

	return b.String()
}

// WriteScanReport renders scan and writes it to outputPath.
func WriteScanReport(scan *models.Scan, urls []string, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte(RenderScan(scan, urls)), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}

type sourceCount struct {
	name  string
	count int
}

// countSources tallies subdomains per source, largest first.
func countSources(subdomains []models.Subdomain) []sourceCount {
	counts := map[string]int{}
	for _, sub := range subdomains {
		counts[orDash(sub.Source)]++
	}

	out := make([]sourceCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, sourceCount{name: name, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

func countPorts(hosts []models.LiveHost) int {
	n := 0
	for _, h := range hosts {
		n += len(h.Ports)
	}
	return n
}

// FormatPorts renders ports as "80/HTTP, 443/HTTPS"; guessed ports get a "?".
func FormatPorts(ports []models.Port) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d/%s", p.Number, p.Service)
		if p.Guessed {
			parts[i] += "?"
		}
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
