package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hakim/reconaug/internal/models"
)

const (
	DefaultRetention     = time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultPollInterval  = time.Second
	DefaultHeartbeat     = 15 * time.Second

	sinkTimeout = 5 * time.Second
)

// Sink receives a copy of every committed snapshot
type Sink interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Options configures a Registry. Zero durations take the defaults.
type Options struct {
	Retention     time.Duration
	SweepInterval time.Duration
	PollInterval  time.Duration
	Heartbeat     time.Duration
	Sinks         []Sink
	Logger        logrus.FieldLogger
}

// Registry owns every in-flight job. One mutex guards the table and callers
// only ever receive copies.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*job

	opts Options
	now  func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Registry{
		jobs: make(map[string]*job),
		opts: opts,
		now:  time.Now,
	}
}

// Create registers a pending job and returns its fresh ID.
func (r *Registry) Create(kind models.JobKind, target string) string {
	id := uuid.New().String()

	r.mu.Lock()
	j := newJob(id, kind, target, r.now())
	r.jobs[id] = j
	snap := j.copy()
	r.mu.Unlock()

	r.publish(snap)
	return id
}

// Update merges p into the job. Progress never decreases and is clamped
// to [0,100]. Terminal jobs reject every update with ErrTerminal.
func (r *Registry) Update(id string, p Patch) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if j.snap.Complete {
		r.mu.Unlock()
		return ErrTerminal
	}
	j.apply(p, r.now())
	snap := j.copy()
	r.mu.Unlock()

	r.publish(snap)
	return nil
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return j.copy(), true
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Sweep removes jobs not updated within the retention window and returns
// how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.opts.Retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, j := range r.jobs {
		if j.snap.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired jobs every SweepInterval until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.opts.Logger.WithField("removed", n).Debug("Swept expired jobs")
			}
		}
	}
}

func (r *Registry) publish(snap Snapshot) {
	for _, sink := range r.opts.Sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := sink.Publish(ctx, snap); err != nil {
			r.opts.Logger.WithError(err).WithField("job_id", snap.ID).Debug("Snapshot sink failed")
		}
		cancel()
	}
}
