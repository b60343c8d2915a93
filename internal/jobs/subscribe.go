package jobs

import (
	"context"
	"time"
)

// EventType distinguishes subscription events
type EventType string

const (
	EventUpdate    EventType = "update"
	EventHeartbeat EventType = "heartbeat"
	EventNotFound  EventType = "not_found"
)

// Event is delivered to subscribers. Snapshot is zero for EventNotFound.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// changeKey holds the fields whose change triggers an update event
type changeKey struct {
	status     string
	progress   int
	message    string
	subdomains int
	liveHosts  int
	ports      int
	urls       int
}

func keyOf(s Snapshot) changeKey {
	return changeKey{
		status:     string(s.Status),
		progress:   s.Progress,
		message:    s.Message,
		subdomains: s.SubdomainsCount,
		liveHosts:  s.LiveHostsCount,
		ports:      len(s.Ports),
		urls:       s.URLCount,
	}
}

// Subscribe polls the job every PollInterval and emits a snapshot whenever
// it changed, or a heartbeat when nothing was sent for Heartbeat. The
// channel closes after the terminal snapshot, after a single EventNotFound,
// or when ctx ends. Cancelling ctx never affects the job itself.
func (r *Registry) Subscribe(ctx context.Context, id string) <-chan Event {
	events := make(chan Event, 1)

	go func() {
		defer close(events)

		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		ticker := time.NewTicker(r.opts.PollInterval)
		defer ticker.Stop()

		var last changeKey
		first := true
		lastSent := time.Now()

		for {
			snap, ok := r.Get(id)
			switch {
			case !ok:
				send(Event{Type: EventNotFound})
				return
			case first || keyOf(snap) != last:
				if !send(Event{Type: EventUpdate, Snapshot: snap}) {
					return
				}
				first = false
				last = keyOf(snap)
				lastSent = time.Now()
			case time.Since(lastSent) >= r.opts.Heartbeat:
				if !send(Event{Type: EventHeartbeat, Snapshot: snap}) {
					return
				}
				lastSent = time.Now()
			}

			if snap.Complete {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return events
}
