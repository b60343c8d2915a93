package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hakim/reconaug/internal/discovery"
	"github.com/hakim/reconaug/internal/tools"
)

// Preset names a set of discovery sources.
type Preset struct {
	Name        string
	Description string
	Sources     []string
}

// builtinPresets is the registry of all known presets.
var builtinPresets = map[string]Preset{
	"full": {
		Name:        "full",
		Description: "Every CLI tool and web API source",
		Sources:     discovery.AllSourceNames(),
	},
	"passive": {
		Name:        "passive",
		Description: "Web API sources only, no local binaries",
		Sources: []string{
			discovery.SourceCrtsh,
			discovery.SourceOTX,
			discovery.SourceChaos,
			discovery.SourceHackerTarget,
		},
	},
	"tools": {
		Name:        "tools",
		Description: "Local CLI tools only (subfinder, sublist3r)",
		Sources:     []string{tools.CapSubfinder, tools.CapSublist3r},
	},
}

// BuiltinPresets returns the available presets sorted by name.
func BuiltinPresets() []Preset {
	out := make([]Preset, 0, len(builtinPresets))
	for _, p := range builtinPresets {
		p.Sources = append([]string{}, p.Sources...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetPreset returns a preset by name, or an error if not found.
func GetPreset(name string) (*Preset, error) {
	p, ok := builtinPresets[name]
	if !ok {
		names := make([]string, 0, len(builtinPresets))
		for n := range builtinPresets {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown preset %q, available: %s", name, strings.Join(names, ", "))
	}
	cp := p
	cp.Sources = append([]string{}, p.Sources...)
	return &cp, nil
}
