package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakim/reconaug/internal/models"
)

func collect(t *testing.T, events <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("subscription did not close within %s", timeout)
			return out
		}
	}
}

func TestSubscribeUnknownJob(t *testing.T) {
	r := newTestRegistry(Options{})

	events := collect(t, r.Subscribe(context.Background(), "missing"), time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, EventNotFound, events[0].Type)
}

func TestSubscribeEndsAfterTerminal(t *testing.T) {
	r := newTestRegistry(Options{})
	id := r.Create(models.KindScan, "example.com")

	sub := r.Subscribe(context.Background(), id)

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.Update(id, Patch{Status: Ptr(models.StatusRunning), Progress: Ptr(5)})
		time.Sleep(20 * time.Millisecond)
		r.Update(id, Patch{Status: Ptr(models.StatusComplete), Progress: Ptr(100)})
	}()

	events := collect(t, sub, 2*time.Second)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, EventUpdate, last.Type)
	assert.True(t, last.Snapshot.Complete)
	assert.Equal(t, 100, last.Snapshot.Progress)

	prev := -1
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Snapshot.Progress, prev)
		prev = ev.Snapshot.Progress
	}
}

func TestSubscribeHeartbeat(t *testing.T) {
	r := newTestRegistry(Options{Heartbeat: 20 * time.Millisecond})
	id := r.Create(models.KindScan, "example.com")

	ctx, cancel := context.WithCancel(context.Background())
	sub := r.Subscribe(ctx, id)

	first := <-sub
	assert.Equal(t, EventUpdate, first.Type)

	select {
	case ev := <-sub:
		assert.Equal(t, EventHeartbeat, ev.Type)
		assert.Equal(t, id, ev.Snapshot.ID)
	case <-time.After(time.Second):
		t.Fatal("no heartbeat")
	}

	cancel()
	collect(t, sub, time.Second)

	_, ok := r.Get(id)
	assert.True(t, ok, "cancelling a subscription must not touch the job")
}

func TestSubscribeJobCollected(t *testing.T) {
	r := newTestRegistry(Options{Retention: time.Minute})
	now := time.Now()
	r.now = func() time.Time { return now }
	id := r.Create(models.KindScan, "example.com")

	sub := r.Subscribe(context.Background(), id)
	<-sub

	now = now.Add(2 * time.Minute)
	require.Equal(t, 1, r.Sweep())

	events := collect(t, sub, time.Second)
	require.NotEmpty(t, events)
	assert.Equal(t, EventNotFound, events[len(events)-1].Type)
}
