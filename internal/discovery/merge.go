package discovery

import (
	"sort"

	"github.com/hakim/reconaug/internal/models"
)

// Merge folds source results into one deduplicated subdomain list. The
// first source to report a name is recorded; a name reported by more than
// one source is attributed to models.SourceCombined. Names are compared
// exactly, so case variants stay distinct. Output is sorted by name.
func Merge(results []Result) []models.Subdomain {
	seen := make(map[string]string)

	for _, r := range results {
		if r.Outcome != OutcomeOK {
			continue
		}
		for _, host := range r.Hosts {
			source, exists := seen[host]
			switch {
			case !exists:
				seen[host] = r.Source
			case source != r.Source:
				seen[host] = models.SourceCombined
			}
		}
	}

	subdomains := make([]models.Subdomain, 0, len(seen))
	for name, source := range seen {
		subdomains = append(subdomains, models.Subdomain{Name: name, Source: source})
	}
	sort.Slice(subdomains, func(i, j int) bool {
		return subdomains[i].Name < subdomains[j].Name
	})
	return subdomains
}

// Names returns the hostnames of subdomains in order.
func Names(subdomains []models.Subdomain) []string {
	names := make([]string, len(subdomains))
	for i, s := range subdomains {
		names[i] = s.Name
	}
	return names
}
