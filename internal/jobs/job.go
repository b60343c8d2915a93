// Package jobs tracks in-flight scans and publishes their progress to
// observers.
package jobs

import (
	"errors"
	"time"

	"github.com/hakim/reconaug/internal/models"
)

var (
	// ErrNotFound is returned for unknown or collected job IDs.
	ErrNotFound = errors.New("job not found")
	// ErrTerminal is returned when updating a complete or failed job.
	ErrTerminal = errors.New("job already finished")
)

// Snapshot is a point-in-time copy of a job. It shares no memory with the
// registry.
type Snapshot struct {
	ID       string            `json:"id"`
	Kind     models.JobKind    `json:"kind"`
	Target   string            `json:"target"`
	Status   models.ScanStatus `json:"status"`
	Progress int               `json:"progress"`
	Message  string            `json:"message"`

	Subdomains      []models.Subdomain `json:"subdomains"`
	SubdomainsCount int                `json:"subdomains_count"`
	LiveHosts       []models.LiveHost  `json:"live_hosts"`
	LiveHostsCount  int                `json:"live_hosts_count"`

	Ports    []models.Port `json:"ports,omitempty"`
	URLs     []string      `json:"urls,omitempty"`
	URLCount int           `json:"count,omitempty"`
	Limited  bool          `json:"limited,omitempty"`
	ScanID   string        `json:"scan_id,omitempty"`

	Complete  bool      `json:"complete"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left untouched; Add* fields
// append, the others replace.
type Patch struct {
	Status   *models.ScanStatus
	Progress *int
	Message  *string

	// AddSubdomains unions into the set by name
	AddSubdomains []models.Subdomain
	// Subdomains replaces the whole set when non-nil
	Subdomains   []models.Subdomain
	AddLiveHosts []models.LiveHost

	Ports    []models.Port
	URLs     []string
	URLCount *int
	Limited  *bool
	ScanID   *string
}

// Ptr returns a pointer to v, for filling Patch fields.
func Ptr[T any](v T) *T {
	return &v
}

// job is the registry's mutable record
type job struct {
	snap  Snapshot
	names map[string]int
}

func newJob(id string, kind models.JobKind, target string, now time.Time) *job {
	return &job{
		snap: Snapshot{
			ID:         id,
			Kind:       kind,
			Target:     target,
			Status:     models.StatusPending,
			Subdomains: []models.Subdomain{},
			LiveHosts:  []models.LiveHost{},
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		names: make(map[string]int),
	}
}

func (j *job) apply(p Patch, now time.Time) {
	s := &j.snap

	if p.Progress != nil {
		s.Progress = min(max(s.Progress, *p.Progress, 0), 100)
	}
	if p.Message != nil {
		s.Message = *p.Message
	}

	if p.Subdomains != nil {
		s.Subdomains = []models.Subdomain{}
		clear(j.names)
		j.addSubdomains(p.Subdomains)
	}
	j.addSubdomains(p.AddSubdomains)
	s.LiveHosts = append(s.LiveHosts, p.AddLiveHosts...)

	if p.Ports != nil {
		s.Ports = append([]models.Port{}, p.Ports...)
	}
	if p.URLs != nil {
		s.URLs = append([]string{}, p.URLs...)
	}
	if p.URLCount != nil {
		s.URLCount = *p.URLCount
	}
	if p.Limited != nil {
		s.Limited = *p.Limited
	}
	if p.ScanID != nil {
		s.ScanID = *p.ScanID
	}

	if p.Status != nil {
		s.Status = *p.Status
		s.Complete = s.Status.Terminal()
	}

	s.SubdomainsCount = len(s.Subdomains)
	s.LiveHostsCount = len(s.LiveHosts)
	s.UpdatedAt = now
}

func (j *job) addSubdomains(subs []models.Subdomain) {
	for _, sub := range subs {
		if i, ok := j.names[sub.Name]; ok {
			if j.snap.Subdomains[i].Source != sub.Source {
				j.snap.Subdomains[i].Source = models.SourceCombined
			}
			continue
		}
		j.names[sub.Name] = len(j.snap.Subdomains)
		j.snap.Subdomains = append(j.snap.Subdomains, sub)
	}
}

// copy returns a deep copy of the snapshot
func (j *job) copy() Snapshot {
	s := j.snap
	s.Subdomains = append([]models.Subdomain{}, j.snap.Subdomains...)
	s.LiveHosts = make([]models.LiveHost, len(j.snap.LiveHosts))
	for i, h := range j.snap.LiveHosts {
		h.Ports = clonePorts(h.Ports)
		s.LiveHosts[i] = h
	}
	s.Ports = clonePorts(j.snap.Ports)
	if j.snap.URLs != nil {
		s.URLs = append([]string{}, j.snap.URLs...)
	}
	return s
}

func clonePorts(ports []models.Port) []models.Port {
	if ports == nil {
		return nil
	}
	return append([]models.Port{}, ports...)
}
