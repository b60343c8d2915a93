package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hakim/reconaug/internal/jobs"
	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/pipeline"
	"github.com/hakim/reconaug/internal/storage"
)

// app bundles what every job-running command needs
type app struct {
	store    *storage.Store
	registry *jobs.Registry
	orch     *pipeline.Orchestrator
	redis    *jobs.RedisSink
}

// openApp opens the store and wires the orchestrator from cfg. A Redis
// mirror that cannot be reached is reported and skipped.
func openApp(ctx context.Context) (*app, error) {
	if err := storage.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{store: store}

	var sinks []jobs.Sink
	if cfg.Redis.Enabled {
		sink, err := jobs.NewRedisSink(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis progress mirror disabled")
		} else {
			a.redis = sink
			sinks = append(sinks, sink)
		}
	}

	a.registry = jobs.NewRegistry(jobs.Options{
		Retention:     cfg.Jobs.Retention,
		SweepInterval: cfg.Jobs.SweepInterval,
		PollInterval:  cfg.Jobs.PollInterval,
		Heartbeat:     cfg.Jobs.Heartbeat,
		Sinks:         sinks,
		Logger:        logger,
	})
	a.orch = pipeline.NewFromConfig(cfg, store, a.registry, logger)

	return a, nil
}

// Close stops running jobs, then releases the store and Redis client.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.orch.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("Jobs did not stop in time")
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.store.Close()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// followJob prints each progress message of job id until it finishes or ctx
// ends, and returns the last snapshot seen.
func followJob(ctx context.Context, reg *jobs.Registry, id string) jobs.Snapshot {
	var last jobs.Snapshot
	lastMessage := ""

	for ev := range reg.Subscribe(ctx, id) {
		if ev.Type == jobs.EventNotFound {
			break
		}
		last = ev.Snapshot
		if ev.Type == jobs.EventUpdate && last.Message != lastMessage && !last.Complete {
			fmt.Printf("[*] %3d%%  %s\n", last.Progress, last.Message)
			lastMessage = last.Message
		}
	}

	return last
}

// printOutcome prints the final job message with a status marker. Returns
// an error for failed or interrupted jobs so the exit code reflects it.
func printOutcome(snap jobs.Snapshot) error {
	if !snap.Complete {
		fmt.Println("[!] Interrupted before the job finished")
		return fmt.Errorf("job %s interrupted", snap.ID)
	}
	if snap.Status == models.StatusError {
		fmt.Printf("[!] %s\n", snap.Message)
		return fmt.Errorf("job %s failed", snap.ID)
	}
	fmt.Printf("[+] %s\n", snap.Message)
	return nil
}
