package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "reconaug.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveScanRoundTrip(t *testing.T) {
	store := newTestStore(t)

	subs := []models.Subdomain{
		{Name: "a.example.com", Source: "subfinder"},
		{Name: "b.example.com", Source: models.SourceCombined},
	}
	live := []models.LiveHost{{URL: "https://a.example.com", StatusCode: "200", Technology: "nginx"}}

	id, err := store.SaveScan("example.com", subs, live)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	scan, err := store.GetScan(id)
	require.NoError(t, err)
	require.NotNil(t, scan)

	assert.Equal(t, "example.com", scan.Target)
	assert.Equal(t, models.StatusComplete, scan.Status)
	assert.Equal(t, 2, scan.SubdomainsCount)
	assert.Equal(t, 1, scan.LiveHostsCount)
	assert.Equal(t, subs, scan.Subdomains)
	require.Len(t, scan.LiveHosts, 1)
	assert.NotEmpty(t, scan.LiveHosts[0].ID)
	assert.NotNil(t, scan.CompletedAt)
}

func TestGetScanMissing(t *testing.T) {
	store := newTestStore(t)

	scan, err := store.GetScan("nope")
	require.NoError(t, err)
	assert.Nil(t, scan)
}

func TestListScansNewestFirst(t *testing.T) {
	store := newTestStore(t)

	first, err := store.SaveScan("example.com", nil, nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.SaveScan("example.com", nil, nil)
	require.NoError(t, err)
	_, err = store.SaveScan("other.com", nil, nil)
	require.NoError(t, err)

	scans, err := store.ListScans("example.com")
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, second, scans[0].ID)
	assert.Equal(t, first, scans[1].ID)

	all, err := store.ListAllScans()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFindRecentScanFuzzyOrder(t *testing.T) {
	store := newTestStore(t)

	apex, err := store.SaveScan("example.com", nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"exact", "example.com", apex},
		{"www stripped", "www.example.com", apex},
		{"no match", "example.org", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindRecentScan(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	www, err := store.SaveScan("www.shop.com", nil, nil)
	require.NoError(t, err)
	got, err := store.FindRecentScan("shop.com")
	require.NoError(t, err)
	assert.Equal(t, www, got, "www-prefixed variant should match")
}

func TestSaveHistoricalURLsAttachesToApexScan(t *testing.T) {
	store := newTestStore(t)

	apex, err := store.SaveScan("example.com", nil, nil)
	require.NoError(t, err)

	id, err := store.SaveHistoricalURLs("www.example.com", []string{"http://example.com/a", "http://example.com/b"})
	require.NoError(t, err)
	assert.Equal(t, apex, id)

	scans, err := store.ListScans("www.example.com")
	require.NoError(t, err)
	assert.Empty(t, scans, "no orphan scan should be created")

	// a second save replaces the list
	_, err = store.SaveHistoricalURLs("example.com", []string{"http://example.com/c"})
	require.NoError(t, err)

	urls, err := store.GetHistoricalURLs(apex)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/c"}, urls)

	scan, err := store.GetScan(apex)
	require.NoError(t, err)
	assert.Equal(t, 1, scan.HistoricalURLCount)
}

func TestSaveHistoricalURLsCreatesOrphan(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveHistoricalURLs("lonely.com", []string{"http://lonely.com/"})
	require.NoError(t, err)

	scan, err := store.GetScan(id)
	require.NoError(t, err)
	require.NotNil(t, scan)
	assert.True(t, scan.Orphan)
	assert.Equal(t, "lonely.com", scan.Target)
}

func TestSavePortsMatchesExistingHost(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveScan("example.com", nil, []models.LiveHost{
		{URL: "https://api.example.com", StatusCode: "200"},
	})
	require.NoError(t, err)

	ports := []models.Port{{Number: 443, Service: "HTTPS"}}
	require.NoError(t, store.SavePorts("api.example.com", ports))

	scan, err := store.GetScan(id)
	require.NoError(t, err)
	require.Len(t, scan.LiveHosts, 1)
	assert.Equal(t, ports, scan.LiveHosts[0].Ports)

	host, scanID, err := store.GetHost(scan.LiveHosts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, id, scanID)
	assert.Equal(t, ports, host.Ports)
}

func TestSavePortsCreatesHostUnderFuzzyScan(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SaveScan("example.com", nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.SavePorts("https://www.example.com:8443/login", []models.Port{{Number: 8443, Service: "HTTPS-Alt"}}))

	scan, err := store.GetScan(id)
	require.NoError(t, err)
	require.Len(t, scan.LiveHosts, 1)
	assert.Equal(t, "200", scan.LiveHosts[0].StatusCode)
	assert.Equal(t, "Unknown", scan.LiveHosts[0].Technology)
	assert.Equal(t, 1, scan.LiveHostsCount)
}

func TestSavePortsOrphan(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SavePorts("10.0.0.5", []models.Port{{Number: 22, Service: "SSH"}}))

	scans, err := store.ListScans("10.0.0.5")
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.True(t, scans[0].Orphan)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveScan("example.com",
		[]models.Subdomain{{Name: "a.example.com"}, {Name: "b.example.com"}},
		[]models.LiveHost{{URL: "https://a.example.com"}})
	require.NoError(t, err)
	require.NoError(t, store.SavePorts("https://a.example.com", []models.Port{{Number: 80}, {Number: 443}}))
	_, err = store.SaveHistoricalURLs("example.com", []string{"u1", "u2", "u3"})
	require.NoError(t, err)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		TotalScans:          1,
		TotalSubdomains:     2,
		TotalLiveHosts:      1,
		TotalPorts:          2,
		TotalHistoricalURLs: 3,
	}, stats)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)

	scanID, err := store.SaveScan("example.com",
		[]models.Subdomain{{Name: "a.example.com"}},
		[]models.LiveHost{{URL: "https://a.example.com"}})
	require.NoError(t, err)
	require.NoError(t, store.SavePorts("https://a.example.com", []models.Port{{Number: 443}}))
	_, err = store.SaveHistoricalURLs("example.com", []string{"u1"})
	require.NoError(t, err)

	require.NoError(t, store.Clear())

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)

	scan, err := store.GetScan(scanID)
	require.NoError(t, err)
	assert.Nil(t, scan)

	// buckets are usable again
	_, err = store.SaveScan("example.org", nil, nil)
	require.NoError(t, err)
}

func TestBareHost(t *testing.T) {
	assert.Equal(t, "example.com", bareHost("https://example.com:8443/path"))
	assert.Equal(t, "example.com", bareHost("example.com:80"))
	assert.Equal(t, "example.com", bareHost("example.com/x"))
	assert.Equal(t, "10.0.0.5", bareHost("10.0.0.5"))
}

func TestRawOutputPath(t *testing.T) {
	assert.Equal(t, "", RawOutputPath("", "gau", "example.com"))
	assert.Equal(t, filepath.Join("out", "raw", "naabu_https_example.com_8443.txt"),
		RawOutputPath("out", "naabu", "https://example.com:8443"))
}
