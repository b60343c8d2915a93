package tools

import (
	"context"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckToolMissing(t *testing.T) {
	result := CheckTool(ToolRequirement{Name: "ghost", Binary: "reconaug-definitely-not-installed"})
	assert.False(t, result.Found)
	assert.Empty(t, result.Path)
}

func TestProbeReportsEveryCapability(t *testing.T) {
	p := NewProbe(nil, "", time.Minute)
	p.lookup = func(_ context.Context, tool ToolRequirement) bool {
		return tool.Name == CapHttpx
	}

	avail := p.Available(context.Background())
	assert.Equal(t, map[string]bool{
		CapSubfinder: false,
		CapSublist3r: false,
		CapHttpx:     true,
		CapGau:       false,
		CapNaabu:     false,
		CapChaosAPI:  false,
	}, avail)
}

func TestProbeChaosKeyMakesAPIAvailable(t *testing.T) {
	p := NewProbe(nil, "secret", time.Minute)
	p.lookup = func(context.Context, ToolRequirement) bool { return false }

	assert.True(t, p.Available(context.Background())[CapChaosAPI])
}

func TestProbeCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	p := NewProbe(nil, "", time.Hour)
	p.lookup = func(context.Context, ToolRequirement) bool {
		calls.Add(1)
		return true
	}

	first := p.Available(context.Background())
	first[CapGau] = false // callers get copies

	second := p.Available(context.Background())
	assert.True(t, second[CapGau])
	assert.Equal(t, int32(len(DefaultTools())), calls.Load())

	p.Invalidate()
	p.Available(context.Background())
	assert.Equal(t, int32(2*len(DefaultTools())), calls.Load())
}

func TestNewProbeAppliesBinaryOverrides(t *testing.T) {
	p := NewProbe(map[string]string{CapNaabu: "/opt/naabu"}, "", time.Minute)

	var binary string
	p.lookup = func(_ context.Context, tool ToolRequirement) bool {
		if tool.Name == CapNaabu {
			binary = tool.Binary
		}
		return false
	}
	p.Available(context.Background())
	assert.Equal(t, "/opt/naabu", binary)
}

func TestProbeDoesNotCacheCancelledCheck(t *testing.T) {
	var calls atomic.Int32
	p := NewProbe(nil, "", time.Hour)
	p.lookup = func(ctx context.Context, _ ToolRequirement) bool {
		calls.Add(1)
		return ctx.Err() == nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.Available(ctx)[CapHttpx])

	assert.True(t, p.Available(context.Background())[CapHttpx])
	assert.Equal(t, int32(2*len(DefaultTools())), calls.Load())
}

func TestProbeRealBinaryAfterCancelledCaller(t *testing.T) {
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}
	p := NewProbe(map[string]string{CapHttpx: echo}, "", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Available(ctx)

	fresh := p.Available(context.Background())
	require.Contains(t, fresh, CapHttpx)
	assert.True(t, fresh[CapHttpx])
}
