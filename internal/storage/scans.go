package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/hakim/reconaug/internal/models"
)

// scanData is the bulk payload stored beside each ScanMeta
type scanData struct {
	Subdomains []models.Subdomain `json:"subdomains"`
	LiveHosts  []models.LiveHost  `json:"live_hosts"`
}

// SaveScan persists a completed scan with its subdomains and live hosts and
// returns the new scan ID.
func (s *Store) SaveScan(target string, subdomains []models.Subdomain, liveHosts []models.LiveHost) (string, error) {
	scan := models.NewScan(target)
	now := time.Now()
	scan.Status = models.StatusComplete
	scan.CompletedAt = &now
	scan.SubdomainsCount = len(subdomains)
	scan.LiveHostsCount = len(liveHosts)

	data := scanData{
		Subdomains: append([]models.Subdomain{}, subdomains...),
		LiveHosts:  make([]models.LiveHost, len(liveHosts)),
	}
	for i, h := range liveHosts {
		h.ID = uuid.New().String()
		data.LiveHosts[i] = h
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putScanMeta(tx, &scan.ScanMeta); err != nil {
			return err
		}
		if err := putScanData(tx, scan.ID, &data); err != nil {
			return err
		}
		for _, h := range data.LiveHosts {
			if err := indexHost(tx, scan.ID, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return scan.ID, nil
}

// GetScan retrieves a scan with its subdomains and live hosts by ID.
// Returns nil without error when the scan does not exist.
func (s *Store) GetScan(id string) (*models.Scan, error) {
	var scan *models.Scan

	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, err := getScanMeta(tx, id)
		if err != nil || meta == nil {
			return err
		}
		data, err := getScanData(tx, id)
		if err != nil {
			return err
		}
		scan = &models.Scan{
			ScanMeta:   *meta,
			Subdomains: data.Subdomains,
			LiveHosts:  data.LiveHosts,
		}
		return nil
	})

	return scan, err
}

// ListScans retrieves all scan metadata records for a target, sorted by StartedAt descending
func (s *Store) ListScans(target string) ([]*models.ScanMeta, error) {
	var scans []*models.ScanMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		scans, err = scansForTarget(tx, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	return scans, nil
}

// ListAllScans returns every scan, newest first
func (s *Store) ListAllScans() ([]*models.ScanMeta, error) {
	var scans []*models.ScanMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketScans)).ForEach(func(_, v []byte) error {
			var meta models.ScanMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			scans = append(scans, &meta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(scans)
	return scans, nil
}

// FindRecentScan returns the ID of the newest scan matching target, trying
// the exact domain, then without a leading "www.", then with one added.
// Returns "" without error when nothing matches.
func (s *Store) FindRecentScan(target string) (string, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta, err := findRecent(tx, target)
		if meta != nil {
			id = meta.ID
		}
		return err
	})
	return id, err
}

// Stats holds record counts across the store
type Stats struct {
	TotalScans          int `json:"total_scans"`
	TotalSubdomains     int `json:"total_subdomains"`
	TotalLiveHosts      int `json:"total_live_hosts"`
	TotalPorts          int `json:"total_ports"`
	TotalHistoricalURLs int `json:"total_historical_urls"`
}

// Stats counts persisted records
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalScans = tx.Bucket([]byte(bucketScans)).Stats().KeyN

		err := tx.Bucket([]byte(bucketScanData)).ForEach(func(_, v []byte) error {
			var data scanData
			if err := json.Unmarshal(v, &data); err != nil {
				return err
			}
			stats.TotalSubdomains += len(data.Subdomains)
			stats.TotalLiveHosts += len(data.LiveHosts)
			for _, h := range data.LiveHosts {
				stats.TotalPorts += len(h.Ports)
			}
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket([]byte(bucketURLs)).ForEach(func(_, v []byte) error {
			var urls []string
			if err := json.Unmarshal(v, &urls); err != nil {
				return err
			}
			stats.TotalHistoricalURLs += len(urls)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ── Transaction helpers ───────────────────────────────────────────────────────

// wwwVariants lists the lookup order used for fuzzy scan association.
func wwwVariants(target string) []string {
	if rest, ok := strings.CutPrefix(target, "www."); ok {
		return []string{target, rest}
	}
	return []string{target, "www." + target}
}

func findRecent(tx *bbolt.Tx, target string) (*models.ScanMeta, error) {
	for _, candidate := range wwwVariants(target) {
		scans, err := scansForTarget(tx, candidate)
		if err != nil {
			return nil, err
		}
		if len(scans) > 0 {
			return scans[0], nil
		}
	}
	return nil, nil
}

func scansForTarget(tx *bbolt.Tx, target string) ([]*models.ScanMeta, error) {
	data := tx.Bucket([]byte(bucketScanIndex)).Get([]byte(target))
	if data == nil {
		return nil, nil
	}

	var scanIDs []string
	if err := json.Unmarshal(data, &scanIDs); err != nil {
		return nil, err
	}

	var scans []*models.ScanMeta
	for _, id := range scanIDs {
		meta, err := getScanMeta(tx, id)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			scans = append(scans, meta)
		}
	}

	sortNewestFirst(scans)
	return scans, nil
}

func sortNewestFirst(scans []*models.ScanMeta) {
	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].StartedAt.After(scans[j].StartedAt)
	})
}

// putScanMeta stores meta and maintains the target -> []scan_id index
func putScanMeta(tx *bbolt.Tx, meta *models.ScanMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := tx.Bucket([]byte(bucketScans)).Put([]byte(meta.ID), data); err != nil {
		return err
	}

	index := tx.Bucket([]byte(bucketScanIndex))
	targetKey := []byte(meta.Target)

	var scanIDs []string
	if existing := index.Get(targetKey); existing != nil {
		if err := json.Unmarshal(existing, &scanIDs); err != nil {
			return err
		}
	}
	for _, id := range scanIDs {
		if id == meta.ID {
			return nil
		}
	}
	scanIDs = append(scanIDs, meta.ID)

	indexData, err := json.Marshal(scanIDs)
	if err != nil {
		return err
	}
	return index.Put(targetKey, indexData)
}

func getScanMeta(tx *bbolt.Tx, id string) (*models.ScanMeta, error) {
	data := tx.Bucket([]byte(bucketScans)).Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	meta := &models.ScanMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func putScanData(tx *bbolt.Tx, id string, data *scanData) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketScanData)).Put([]byte(id), encoded)
}

func getScanData(tx *bbolt.Tx, id string) (*scanData, error) {
	data := &scanData{Subdomains: []models.Subdomain{}, LiveHosts: []models.LiveHost{}}
	raw := tx.Bucket([]byte(bucketScanData)).Get([]byte(id))
	if raw == nil {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

func indexHost(tx *bbolt.Tx, scanID string, h models.LiveHost) error {
	if err := tx.Bucket([]byte(bucketHosts)).Put([]byte(h.ID), []byte(scanID)); err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketHostURLs)).Put([]byte(h.URL), []byte(h.ID))
}

// createOrphanScan records a standalone scan for results that arrived
// without a prior full scan of target.
func createOrphanScan(tx *bbolt.Tx, target string) (*models.ScanMeta, error) {
	scan := models.NewScan(target)
	now := time.Now()
	scan.Status = models.StatusComplete
	scan.CompletedAt = &now
	scan.Orphan = true

	if err := putScanMeta(tx, &scan.ScanMeta); err != nil {
		return nil, err
	}
	if err := putScanData(tx, scan.ID, &scanData{Subdomains: []models.Subdomain{}, LiveHosts: []models.LiveHost{}}); err != nil {
		return nil, err
	}
	return &scan.ScanMeta, nil
}

// findOrCreateScan performs fuzzy association, falling back to an orphan scan.
func findOrCreateScan(tx *bbolt.Tx, target string) (*models.ScanMeta, error) {
	meta, err := findRecent(tx, target)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		return meta, nil
	}
	return createOrphanScan(tx, target)
}
