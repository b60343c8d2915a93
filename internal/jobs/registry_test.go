package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/logging"
	"github.com/hakim/reconaug/internal/models"
)

func newTestRegistry(opts Options) *Registry {
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	opts.Logger = logging.Discard()
	return NewRegistry(opts)
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(Options{})

	id := r.Create(models.KindScan, "example.com")
	other := r.Create(models.KindScan, "example.com")
	assert.NotEqual(t, id, other)

	snap, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, snap.Status)
	assert.Equal(t, models.KindScan, snap.Kind)
	assert.Equal(t, "example.com", snap.Target)
	assert.Equal(t, 0, snap.Progress)
	assert.False(t, snap.Complete)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestUpdateProgressNeverDecreases(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	for _, p := range []int{5, 40, 20, 150, -3} {
		require.NoError(t, r.Update(id, Patch{Progress: Ptr(p)}))
	}

	snap, _ := r.Get(id)
	assert.Equal(t, 100, snap.Progress)
}

func TestUpdateUnknownJob(t *testing.T) {
	r := newTestRegistry(Options{})
	assert.ErrorIs(t, r.Update("missing", Patch{}), ErrNotFound)
}

func TestTerminalIsImmutable(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	require.NoError(t, r.Update(id, Patch{
		Status:   Ptr(models.StatusComplete),
		Progress: Ptr(100),
		Message:  Ptr("done"),
	}))

	err := r.Update(id, Patch{Status: Ptr(models.StatusRunning), Message: Ptr("again")})
	assert.ErrorIs(t, err, ErrTerminal)

	snap, _ := r.Get(id)
	assert.Equal(t, models.StatusComplete, snap.Status)
	assert.Equal(t, "done", snap.Message)
	assert.True(t, snap.Complete)
}

func TestSubdomainSetSemantics(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	require.NoError(t, r.Update(id, Patch{AddSubdomains: []models.Subdomain{
		{Name: "a.example.com", Source: "crtsh"},
		{Name: "b.example.com", Source: "crtsh"},
	}}))
	require.NoError(t, r.Update(id, Patch{AddSubdomains: []models.Subdomain{
		{Name: "b.example.com", Source: "otx"},
		{Name: "c.example.com", Source: "otx"},
	}}))

	snap, _ := r.Get(id)
	assert.Equal(t, 3, snap.SubdomainsCount)
	assert.Equal(t, models.SourceCombined, snap.Subdomains[1].Source)

	require.NoError(t, r.Update(id, Patch{Subdomains: []models.Subdomain{{Name: "z.example.com", Source: "crtsh"}}}))
	snap, _ = r.Get(id)
	assert.Equal(t, []models.Subdomain{{Name: "z.example.com", Source: "crtsh"}}, snap.Subdomains)
	assert.Equal(t, 1, snap.SubdomainsCount)
}

func TestLiveHostsAppend(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	require.NoError(t, r.Update(id, Patch{AddLiveHosts: []models.LiveHost{{URL: "https://a.example.com"}}}))
	require.NoError(t, r.Update(id, Patch{AddLiveHosts: []models.LiveHost{{URL: "https://b.example.com"}}}))

	snap, _ := r.Get(id)
	assert.Equal(t, 2, snap.LiveHostsCount)
	assert.Equal(t, "https://b.example.com", snap.LiveHosts[1].URL)
}

func TestGetReturnsDeepCopy(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")
	require.NoError(t, r.Update(id, Patch{
		AddSubdomains: []models.Subdomain{{Name: "a.example.com"}},
		AddLiveHosts:  []models.LiveHost{{URL: "https://a.example.com", Ports: []models.Port{{Number: 80}}}},
		URLs:          []string{"http://a.example.com/x"},
	}))

	snap, _ := r.Get(id)
	snap.Subdomains[0].Name = "mutated"
	snap.LiveHosts[0].Ports[0].Number = 1
	snap.URLs[0] = "mutated"

	fresh, _ := r.Get(id)
	assert.Equal(t, "a.example.com", fresh.Subdomains[0].Name)
	assert.Equal(t, 80, fresh.LiveHosts[0].Ports[0].Number)
	assert.Equal(t, "http://a.example.com/x", fresh.URLs[0])
}

func TestConcurrentUpdates(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Update(id, Patch{
				Progress:     Ptr(i),
				AddLiveHosts: []models.LiveHost{{URL: "https://h"}},
			})
			r.Get(id)
		}(i)
	}
	wg.Wait()

	snap, _ := r.Get(id)
	assert.Equal(t, 49, snap.Progress)
	assert.Equal(t, 50, snap.LiveHostsCount)
}

func TestSweep(t *testing.T) {
	r := newTestRegistry(Options{Retention: time.Hour})
	now := time.Now()
	r.now = func() time.Time { return now }

	stale := r.Create(models.KindScan, "old.com")
	now = now.Add(50 * time.Minute)
	fresh := r.Create(models.KindScan, "new.com")
	now = now.Add(11 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	_, ok := r.Get(stale)
	assert.False(t, ok)
	_, ok = r.Get(fresh)
	assert.True(t, ok)
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (s *recordingSink) Publish(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
	return nil
}

func TestSinksReceiveCommittedSnapshots(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRegistry(Options{Sinks: []Sink{sink}})

	id := r.Create(models.KindPortScan, "example.com")
	require.NoError(t, r.Update(id, Patch{Status: Ptr(models.StatusRunning)}))
	require.NoError(t, r.Update(id, Patch{Status: Ptr(models.StatusComplete), Progress: Ptr(100)}))
	assert.ErrorIs(t, r.Update(id, Patch{Progress: Ptr(100)}), ErrTerminal)

	require.Len(t, sink.snaps, 3)
	assert.Equal(t, models.StatusPending, sink.snaps[0].Status)
	assert.Equal(t, models.StatusRunning, sink.snaps[1].Status)
	assert.True(t, sink.snaps[2].Complete)
}
