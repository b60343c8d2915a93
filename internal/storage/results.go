package storage

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/hakim/reconaug/internal/models"
)

// SaveHistoricalURLs attaches urls to the newest scan matching target
// (exact, www-stripped, www-prefixed), replacing any previous URL list of
// that scan. Without a matching scan an orphan scan is created. Returns the
// scan ID the URLs were stored under.
func (s *Store) SaveHistoricalURLs(target string, urls []string) (string, error) {
	var scanID string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := findOrCreateScan(tx, target)
		if err != nil {
			return err
		}
		scanID = meta.ID

		encoded, err := json.Marshal(urls)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(bucketURLs)).Put([]byte(meta.ID), encoded); err != nil {
			return err
		}

		meta.HistoricalURLCount = len(urls)
		return putScanMeta(tx, meta)
	})
	if err != nil {
		return "", err
	}
	return scanID, nil
}

// GetHistoricalURLs returns every URL stored for a scan
func (s *Store) GetHistoricalURLs(scanID string) ([]string, error) {
	urls := []string{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketURLs)).Get([]byte(scanID))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &urls)
	})

	return urls, err
}

// SavePorts replaces the open ports of the live host identified by host.
// host may be a URL or a bare hostname; it is matched against stored live
// host URLs as given, then as https:// and http:// of its bare host. When no
// live host matches, one is created (status "200", technology "Unknown")
// under the fuzzy-matched scan for its domain or a new orphan scan.
func (s *Store) SavePorts(host string, ports []models.Port) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		hostID, scanID, err := lookupHost(tx, host)
		if err != nil {
			return err
		}

		var data *scanData
		if hostID == "" {
			meta, err := findOrCreateScan(tx, bareHost(host))
			if err != nil {
				return err
			}
			scanID = meta.ID

			data, err = getScanData(tx, scanID)
			if err != nil {
				return err
			}

			created := models.LiveHost{
				ID:         uuid.New().String(),
				URL:        host,
				StatusCode: "200",
				Technology: "Unknown",
			}
			data.LiveHosts = append(data.LiveHosts, created)
			hostID = created.ID

			if err := indexHost(tx, scanID, created); err != nil {
				return err
			}

			meta.LiveHostsCount = len(data.LiveHosts)
			if err := putScanMeta(tx, meta); err != nil {
				return err
			}
		} else {
			data, err = getScanData(tx, scanID)
			if err != nil {
				return err
			}
		}

		for i := range data.LiveHosts {
			if data.LiveHosts[i].ID == hostID {
				data.LiveHosts[i].Ports = append([]models.Port{}, ports...)
				return putScanData(tx, scanID, data)
			}
		}
		return fmt.Errorf("live host %s missing from scan %s", hostID, scanID)
	})
}

// GetHost returns a live host with its ports and the scan it belongs to.
// Returns a nil host without error when hostID is unknown.
func (s *Store) GetHost(hostID string) (*models.LiveHost, string, error) {
	var found *models.LiveHost
	var scanID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(bucketHosts)).Get([]byte(hostID))
		if raw == nil {
			return nil
		}
		scanID = string(raw)

		data, err := getScanData(tx, scanID)
		if err != nil {
			return err
		}
		for i := range data.LiveHosts {
			if data.LiveHosts[i].ID == hostID {
				h := data.LiveHosts[i]
				found = &h
				return nil
			}
		}
		return nil
	})

	return found, scanID, err
}

func lookupHost(tx *bbolt.Tx, host string) (hostID, scanID string, err error) {
	urls := tx.Bucket([]byte(bucketHostURLs))
	hosts := tx.Bucket([]byte(bucketHosts))

	bare := bareHost(host)
	for _, candidate := range []string{host, "https://" + bare, "http://" + bare} {
		id := urls.Get([]byte(candidate))
		if id == nil {
			continue
		}
		owner := hosts.Get(id)
		if owner == nil {
			continue
		}
		return string(id), string(owner), nil
	}
	return "", "", nil
}

// bareHost reduces a URL or host:port to its hostname
func bareHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		raw = raw[:i]
	}
	if h, _, err := net.SplitHostPort(raw); err == nil {
		return h
	}
	return raw
}
