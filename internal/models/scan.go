package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanMeta contains the summary of a persisted scan
type ScanMeta struct {
	ID                 string     `json:"id"`
	Target             string     `json:"domain"`
	StartedAt          time.Time  `json:"timestamp"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Status             ScanStatus `json:"status"`
	SubdomainsCount    int        `json:"subdomains_count"`
	LiveHostsCount     int        `json:"live_hosts_count"`
	HistoricalURLCount int        `json:"historical_urls_count"`
	Orphan             bool       `json:"orphan,omitempty"`
}

// Scan represents a complete scan with all discovered data
type Scan struct {
	ScanMeta
	Subdomains []Subdomain `json:"subdomains"`
	LiveHosts  []LiveHost  `json:"live_hosts"`
}

// NewScan creates a new scan instance with initialized metadata
func NewScan(target string) *Scan {
	return &Scan{
		ScanMeta: ScanMeta{
			ID:        uuid.New().String(),
			Target:    target,
			StartedAt: time.Now(),
			Status:    StatusPending,
		},
		Subdomains: []Subdomain{},
		LiveHosts:  []LiveHost{},
	}
}
