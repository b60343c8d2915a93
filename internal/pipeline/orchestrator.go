package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/hakim/reconaug/internal/discovery"
	"github.com/hakim/reconaug/internal/historic"
	"github.com/hakim/reconaug/internal/httpprobe"
	"github.com/hakim/reconaug/internal/jobs"
	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/portscan"
)

// ResultStore is the persistence contract required by the orchestrator.
// Using an interface keeps the package testable without a real database.
type ResultStore interface {
	SaveScan(target string, subdomains []models.Subdomain, liveHosts []models.LiveHost) (string, error)
	SavePorts(host string, ports []models.Port) error
	SaveHistoricalURLs(target string, urls []string) (string, error)
	FindRecentScan(target string) (string, error)
}

// Availability reports which producers can run right now.
type Availability interface {
	Available(ctx context.Context) map[string]bool
}

// PortScanner scans a single host.
type PortScanner interface {
	Scan(ctx context.Context, host string) (*portscan.Result, error)
}

// URLFetcher collects historical URLs for a domain.
type URLFetcher interface {
	Fetch(ctx context.Context, domain string) ([]string, error)
}

// SourceFactory builds the discovery adapters named in names.
type SourceFactory func(names []string) []discovery.Source

// Deps wires an Orchestrator. Registry, Store and Sources are required.
type Deps struct {
	Registry *jobs.Registry
	Store    ResultStore
	Probe    Availability
	Sources  SourceFactory

	// Prober is used while ProberCapability is available (or when it is
	// empty); FallbackProber otherwise.
	Prober           httpprobe.Prober
	ProberCapability string
	FallbackProber   httpprobe.Prober

	Scanner  PortScanner
	Fetcher  URLFetcher
	Notifier *Notifier
	Scope    *Scope

	// SourceConcurrency bounds the discovery fan-out (default 4).
	SourceConcurrency int
	// DefaultPreset applies when a request names none (default "full").
	DefaultPreset string
	Logger        logrus.FieldLogger
}

// ScanRequest asks for a full subdomain scan of Domain.
type ScanRequest struct {
	Domain string
	Preset string
}

// Orchestrator drives scans and on-demand sub-jobs, publishing their state
// through the job registry. Jobs run on a context detached from the
// request that started them.
type Orchestrator struct {
	deps Deps
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.SourceConcurrency <= 0 {
		deps.SourceConcurrency = 4
	}
	if deps.DefaultPreset == "" {
		deps.DefaultPreset = "full"
	}
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{deps: deps, log: log, ctx: ctx, cancel: cancel}
}

// Registry exposes the job registry observers read from.
func (o *Orchestrator) Registry() *jobs.Registry {
	return o.deps.Registry
}

// Shutdown cancels running jobs and waits for their goroutines, or for ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ── Scan ──────────────────────────────────────────────────────────────────────

// StartScan validates req, creates a job and runs the scan in the
// background. Returns the job ID.
func (o *Orchestrator) StartScan(req ScanRequest) (string, error) {
	domain, preset, err := o.prepareScan(req)
	if err != nil {
		return "", err
	}

	id := o.deps.Registry.Create(models.KindScan, domain)
	o.goJob(func() { o.runScan(o.ctx, id, domain, preset) })
	return id, nil
}

// RunScan is StartScan run to completion on the caller's goroutine. It
// returns the terminal snapshot.
func (o *Orchestrator) RunScan(ctx context.Context, req ScanRequest) (jobs.Snapshot, error) {
	domain, preset, err := o.prepareScan(req)
	if err != nil {
		return jobs.Snapshot{}, err
	}

	id := o.deps.Registry.Create(models.KindScan, domain)
	o.runScan(ctx, id, domain, preset)

	snap, _ := o.deps.Registry.Get(id)
	return snap, nil
}

func (o *Orchestrator) prepareScan(req ScanRequest) (string, *Preset, error) {
	domain := strings.TrimSpace(req.Domain)
	if err := ValidateDomain(domain); err != nil {
		return "", nil, err
	}
	if err := o.deps.Scope.Check(domain); err != nil {
		return "", nil, err
	}

	name := req.Preset
	if name == "" {
		name = o.deps.DefaultPreset
	}
	preset, err := GetPreset(name)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return domain, preset, nil
}

func (o *Orchestrator) runScan(ctx context.Context, id, domain string, preset *Preset) {
	log := o.log.WithFields(logrus.Fields{"job_id": id, "target": domain, "preset": preset.Name})
	log.Info("Scan started")

	err := runIsolated(func() error { return o.scan(ctx, id, domain, preset, log) })
	if err != nil {
		log.WithError(err).Error("Scan failed")
		o.fail(id, err)
	} else {
		log.Info("Scan complete")
	}

	o.notify(id, log)
}

func (o *Orchestrator) scan(ctx context.Context, id, domain string, preset *Preset, log logrus.FieldLogger) error {
	reg := o.deps.Registry

	// ── 1. Running ────────────────────────────────────────────────────────────
	if err := reg.Update(id, jobs.Patch{
		Status:   jobs.Ptr(models.StatusRunning),
		Progress: jobs.Ptr(5),
		Message:  jobs.Ptr("Starting scan for " + domain),
	}); err != nil {
		return err
	}

	avail := o.available(ctx)

	// ── 2. Fan out discovery sources ──────────────────────────────────────────
	sources := o.selectSources(preset, avail, log)
	results, err := o.discover(ctx, id, domain, sources, log)
	if err != nil {
		return err
	}

	// ── 3. Merge ──────────────────────────────────────────────────────────────
	subdomains := discovery.Merge(results)
	if err := reg.Update(id, jobs.Patch{
		Subdomains: subdomains,
		Progress:   jobs.Ptr(50),
		Message:    jobs.Ptr(fmt.Sprintf("Found %d unique subdomains", len(subdomains))),
	}); err != nil {
		return err
	}

	// ── 4. Probe in batches ───────────────────────────────────────────────────
	live, err := o.probeLive(ctx, id, discovery.Names(subdomains), avail, log)
	if err != nil {
		return err
	}

	// ── 5. Persist ────────────────────────────────────────────────────────────
	message := fmt.Sprintf("Scan complete. Found %d subdomains and %d live hosts.", len(subdomains), len(live))
	patch := jobs.Patch{}

	scanID, err := o.deps.Store.SaveScan(domain, subdomains, live)
	if err != nil {
		log.WithError(err).Warn("Failed to save scan results")
		message += " Note: Failed to save results to database."
	} else {
		message += fmt.Sprintf(" Results saved to database (ID: %s).", scanID)
		patch.ScanID = jobs.Ptr(scanID)
	}

	// ── 6. Complete ───────────────────────────────────────────────────────────
	patch.Status = jobs.Ptr(models.StatusComplete)
	patch.Progress = jobs.Ptr(100)
	patch.Message = jobs.Ptr(message)
	return reg.Update(id, patch)
}

// selectSources builds the preset's adapters, skipping those whose
// capability the probe reported missing.
func (o *Orchestrator) selectSources(preset *Preset, avail map[string]bool, log logrus.FieldLogger) []discovery.Source {
	var names []string
	for _, name := range preset.Sources {
		if c := discovery.Capability(name); c != "" && avail != nil && !avail[c] {
			log.WithField("source", name).Info("Source unavailable, skipping")
			continue
		}
		names = append(names, name)
	}
	return o.deps.Sources(names)
}

// discover runs sources concurrently. Each completion moves progress
// through 10..40 and adds its hosts to the job.
func (o *Orchestrator) discover(ctx context.Context, id, domain string, sources []discovery.Source, log logrus.FieldLogger) ([]discovery.Result, error) {
	total := len(sources)
	if total == 0 {
		log.Warn("No discovery sources available")
		return nil, o.deps.Registry.Update(id, jobs.Patch{
			Progress: jobs.Ptr(40),
			Message:  jobs.Ptr("No discovery sources available"),
		})
	}

	var (
		mu      sync.Mutex
		done    int
		results = make([]discovery.Result, 0, total)
		errs    []error
	)

	p := pool.New().WithMaxGoroutines(min(total, o.deps.SourceConcurrency))
	for _, src := range sources {
		p.Go(func() {
			res := src.Fetch(ctx, domain)
			logResult(log, res)

			added := make([]models.Subdomain, len(res.Hosts))
			for i, h := range res.Hosts {
				added[i] = models.Subdomain{Name: h, Source: res.Source}
			}

			mu.Lock()
			defer mu.Unlock()

			done++
			results = append(results, res)
			err := o.deps.Registry.Update(id, jobs.Patch{
				AddSubdomains: added,
				Progress:      jobs.Ptr(10 + 30*done/total),
				Message:       jobs.Ptr(fmt.Sprintf("%s returned %d subdomains (%d/%d sources)", res.Source, len(res.Hosts), done, total)),
			})
			if err != nil {
				errs = append(errs, err)
			}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

func logResult(log logrus.FieldLogger, res discovery.Result) {
	entry := log.WithField("source", res.Source)
	switch res.Outcome {
	case discovery.OutcomeOK:
		entry.WithField("count", len(res.Hosts)).Info("Source finished")
	case discovery.OutcomeUnavailable:
		entry.WithError(res.Err).Info("Source unavailable")
	default:
		entry.WithError(res.Err).Warn("Source failed")
	}
}

// probeLive probes hosts batch by batch, moving progress through 60..95.
// A failing batch keeps whatever it returned; only cancellation aborts.
func (o *Orchestrator) probeLive(ctx context.Context, id string, hosts []string, avail map[string]bool, log logrus.FieldLogger) ([]models.LiveHost, error) {
	live := []models.LiveHost{}

	prober := o.prober(avail)
	if prober == nil || len(hosts) == 0 {
		if prober == nil && len(hosts) > 0 {
			log.Warn("No live host prober available, skipping probe")
		}
		return live, nil
	}

	batches := httpprobe.SplitBatches(hosts)
	for i, batch := range batches {
		found, err := prober.Probe(ctx, batch)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			log.WithError(err).WithField("batch", i+1).Warn("Probe batch failed")
		}

		live = append(live, found...)
		if err := o.deps.Registry.Update(id, jobs.Patch{
			AddLiveHosts: found,
			Progress:     jobs.Ptr(60 + 35*(i+1)/len(batches)),
			Message:      jobs.Ptr(fmt.Sprintf("Probed batch %d/%d: %d live hosts so far", i+1, len(batches), len(live))),
		}); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func (o *Orchestrator) prober(avail map[string]bool) httpprobe.Prober {
	if o.deps.ProberCapability == "" || avail == nil || avail[o.deps.ProberCapability] {
		if o.deps.Prober != nil {
			return o.deps.Prober
		}
	}
	return o.deps.FallbackProber
}

// ── On-demand sub-jobs ────────────────────────────────────────────────────────

// StartPortScan validates host, creates a port-scan job and runs it in the
// background.
func (o *Orchestrator) StartPortScan(host string) (string, error) {
	bare, err := o.preparePortScan(host)
	if err != nil {
		return "", err
	}

	id := o.deps.Registry.Create(models.KindPortScan, bare)
	o.goJob(func() { o.runSubJob(o.ctx, id, func(ctx context.Context) error { return o.portScan(ctx, id, host, bare) }) })
	return id, nil
}

// RunPortScan is StartPortScan run to completion on the caller's goroutine.
func (o *Orchestrator) RunPortScan(ctx context.Context, host string) (jobs.Snapshot, error) {
	bare, err := o.preparePortScan(host)
	if err != nil {
		return jobs.Snapshot{}, err
	}

	id := o.deps.Registry.Create(models.KindPortScan, bare)
	o.runSubJob(ctx, id, func(ctx context.Context) error { return o.portScan(ctx, id, host, bare) })

	snap, _ := o.deps.Registry.Get(id)
	return snap, nil
}

func (o *Orchestrator) preparePortScan(host string) (string, error) {
	host = strings.TrimSpace(host)
	bare, err := ValidateHost(host)
	if err != nil {
		return "", err
	}
	if err := o.deps.Scope.Check(bare); err != nil {
		return "", err
	}
	if o.deps.Scanner == nil {
		return "", portscan.ErrNaabuUnavailable
	}
	return bare, nil
}

// portScan keeps host as given for persistence so it can match a stored
// live host URL; bare is what naabu scans.
func (o *Orchestrator) portScan(ctx context.Context, id, host, bare string) error {
	reg := o.deps.Registry

	if err := reg.Update(id, jobs.Patch{
		Status:   jobs.Ptr(models.StatusRunning),
		Progress: jobs.Ptr(10),
		Message:  jobs.Ptr("Scanning ports for " + bare),
	}); err != nil {
		return err
	}

	res, err := o.deps.Scanner.Scan(ctx, host)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Found %d open ports for %s", len(res.Ports), bare)
	if res.Guessed {
		message += " (guessed from scanner summary)"
	}
	if err := o.deps.Store.SavePorts(strings.TrimSpace(host), res.Ports); err != nil {
		o.log.WithError(err).WithField("job_id", id).Warn("Failed to save ports")
		message += ". Note: Failed to save results to database."
	}

	return reg.Update(id, jobs.Patch{
		Status:   jobs.Ptr(models.StatusComplete),
		Progress: jobs.Ptr(100),
		Message:  jobs.Ptr(message),
		Ports:    res.Ports,
	})
}

// StartHistoricalURLs validates domain, creates a URL collection job and
// runs it in the background.
func (o *Orchestrator) StartHistoricalURLs(domain string) (string, error) {
	domain, err := o.prepareHistoricalURLs(domain)
	if err != nil {
		return "", err
	}

	id := o.deps.Registry.Create(models.KindHistoricalURLs, domain)
	o.goJob(func() { o.runSubJob(o.ctx, id, func(ctx context.Context) error { return o.historicalURLs(ctx, id, domain) }) })
	return id, nil
}

// RunHistoricalURLs is StartHistoricalURLs run to completion on the
// caller's goroutine.
func (o *Orchestrator) RunHistoricalURLs(ctx context.Context, domain string) (jobs.Snapshot, error) {
	domain, err := o.prepareHistoricalURLs(domain)
	if err != nil {
		return jobs.Snapshot{}, err
	}

	id := o.deps.Registry.Create(models.KindHistoricalURLs, domain)
	o.runSubJob(ctx, id, func(ctx context.Context) error { return o.historicalURLs(ctx, id, domain) })

	snap, _ := o.deps.Registry.Get(id)
	return snap, nil
}

func (o *Orchestrator) prepareHistoricalURLs(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if err := ValidateDomain(domain); err != nil {
		return "", err
	}
	if err := o.deps.Scope.Check(domain); err != nil {
		return "", err
	}
	if o.deps.Fetcher == nil {
		return "", errors.New("historical URL collection is not configured")
	}
	return domain, nil
}

func (o *Orchestrator) historicalURLs(ctx context.Context, id, domain string) error {
	reg := o.deps.Registry

	if err := reg.Update(id, jobs.Patch{
		Status:   jobs.Ptr(models.StatusRunning),
		Progress: jobs.Ptr(10),
		Message:  jobs.Ptr("Collecting historical URLs for " + domain),
	}); err != nil {
		return err
	}

	urls, err := o.deps.Fetcher.Fetch(ctx, domain)
	if err != nil && len(urls) == 0 {
		return err
	}

	capped, limited := historic.Cap(urls)
	message := fmt.Sprintf("Found %d historical URLs for %s", len(urls), domain)
	if limited {
		message += fmt.Sprintf(" (showing first %d)", historic.MaxClientURLs)
	}

	patch := jobs.Patch{
		URLs:     capped,
		URLCount: jobs.Ptr(len(urls)),
		Limited:  jobs.Ptr(limited),
	}
	if len(urls) > 0 {
		scanID, err := o.deps.Store.SaveHistoricalURLs(domain, urls)
		if err != nil {
			o.log.WithError(err).WithField("job_id", id).Warn("Failed to save historical URLs")
			message += ". Note: Failed to save results to database."
		} else {
			patch.ScanID = jobs.Ptr(scanID)
		}
	}

	patch.Status = jobs.Ptr(models.StatusComplete)
	patch.Progress = jobs.Ptr(100)
	patch.Message = jobs.Ptr(message)
	return reg.Update(id, patch)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (o *Orchestrator) goJob(fn func()) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn()
	}()
}

func (o *Orchestrator) runSubJob(ctx context.Context, id string, fn func(ctx context.Context) error) {
	if err := runIsolated(func() error { return fn(ctx) }); err != nil {
		o.log.WithError(err).WithField("job_id", id).Error("Job failed")
		o.fail(id, err)
	}
}

// runIsolated runs fn inside a deferred recover so that a panic is
// returned as an error rather than crashing the process. Panics re-raised
// by a conc pool are unwrapped to their original value.
func runIsolated(fn func() error) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if rp, ok := r.(*panics.Recovered); ok {
				r = rp.Value
			}
			retErr = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// fail moves a job to the error state, keeping the counts it accumulated.
func (o *Orchestrator) fail(id string, cause error) {
	err := o.deps.Registry.Update(id, jobs.Patch{
		Status:   jobs.Ptr(models.StatusError),
		Progress: jobs.Ptr(100),
		Message:  jobs.Ptr("Error: " + cause.Error()),
	})
	if err != nil && !errors.Is(err, jobs.ErrTerminal) {
		o.log.WithError(err).WithField("job_id", id).Warn("Could not record job failure")
	}
}

// available returns nil without a probe, which reads as "everything".
func (o *Orchestrator) available(ctx context.Context) map[string]bool {
	if o.deps.Probe == nil {
		return nil
	}
	return o.deps.Probe.Available(ctx)
}

func (o *Orchestrator) notify(id string, log logrus.FieldLogger) {
	if o.deps.Notifier == nil {
		return
	}
	snap, ok := o.deps.Registry.Get(id)
	if !ok {
		return
	}
	if err := o.deps.Notifier.SendCompletion(o.ctx, snap); err != nil {
		log.WithError(err).Warn("Completion webhook failed")
	}
}
