package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// fakeGPU models a device that takes frameCost of simulated time to execute
// one frame. Submissions execute serially.
type fakeGPU struct {
	frameCost float64
	busyUntil float64
	// completion time of every submitted frame, oldest first
	pending []float64
	retired int
}

func (g *fakeGPU) submit(hostClock float64) {
	start := hostClock
	if g.busyUntil > start {
		start = g.busyUntil
	}
	g.busyUntil = start + g.frameCost
	g.pending = append(g.pending, g.busyUntil)
}

// waitOldest blocks the host until the oldest in-flight frame retires.
func (g *fakeGPU) waitOldest(hostClock float64) float64 {
	completion := g.pending[0]
	g.pending = g.pending[1:]
	g.retired++
	if completion > hostClock {
		return completion
	}
	return hostClock
}

type fakeBackend struct {
	gpu     *fakeGPU
	overlap int

	hostClock  float64
	calls      []string
	inFlight   int
	maxLead    int
	bootFrames int
}

func (b *fakeBackend) Initialize() error                 { return nil }
func (b *fakeBackend) Shutdown()                         {}
func (b *fakeBackend) Resized(width, height uint32)      {}
func (b *fakeBackend) WaitIdle() error                   { return nil }

func (b *fakeBackend) PrepareFrame(deltaTime float64) error {
	if b.bootFrames > 0 {
		b.bootFrames--
		return core.ErrSwapchainBooting
	}
	b.calls = append(b.calls, "prepare")
	// Fence wait: the slot about to be recorded must have retired.
	if b.inFlight >= b.overlap {
		b.hostClock = b.gpu.waitOldest(b.hostClock)
		b.inFlight--
	}
	return nil
}

func (b *fakeBackend) UpdateResources(fn func() error) error {
	b.calls = append(b.calls, "update")
	if fn == nil {
		return nil
	}
	return fn()
}

func (b *fakeBackend) BeginRendering() error {
	b.calls = append(b.calls, "begin")
	return nil
}

func (b *fakeBackend) DrawScene(packet *metadata.RenderPacket) error {
	b.calls = append(b.calls, "draw")
	return nil
}

func (b *fakeBackend) EndRendering() error {
	b.calls = append(b.calls, "end")
	return nil
}

func (b *fakeBackend) Present() error {
	b.calls = append(b.calls, "present")
	b.gpu.submit(b.hostClock)
	b.inFlight++
	lead := len(b.gpu.pending)
	if lead > b.maxLead {
		b.maxLead = lead
	}
	return nil
}

func newFakeBackend(overlap int, gpuFrameCost float64) *fakeBackend {
	return &fakeBackend{
		gpu:     &fakeGPU{frameCost: gpuFrameCost},
		overlap: overlap,
	}
}

func TestDrawFrameCallOrder(t *testing.T) {
	backend := newFakeBackend(2, 1.0)
	require.NoError(t, InitializeWithBackend(backend))

	uploadsRan := false
	err := DrawFrame(0.016, &metadata.RenderPacket{}, func() error {
		uploadsRan = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, uploadsRan)
	assert.Equal(t, []string{"prepare", "update", "begin", "draw", "end", "present"}, backend.calls)
	assert.Equal(t, uint64(1), FrameNumber())
}

func TestDrawFrameSkipsWhileSwapchainBoots(t *testing.T) {
	backend := newFakeBackend(2, 1.0)
	require.NoError(t, InitializeWithBackend(backend))
	backend.bootFrames = 3

	for i := 0; i < 3; i++ {
		require.NoError(t, DrawFrame(0.016, &metadata.RenderPacket{}, nil))
	}
	// Booting frames complete without touching the rest of the lifecycle
	// and without counting.
	assert.Empty(t, backend.calls)
	assert.Equal(t, uint64(0), FrameNumber())

	require.NoError(t, DrawFrame(0.016, &metadata.RenderPacket{}, nil))
	assert.Equal(t, uint64(1), FrameNumber())
}

// The host may record at most FrameOverlap frames ahead of the device, and
// once the pipeline is full the host runs at device speed.
func TestFramePipeliningAgainstSlowDevice(t *testing.T) {
	const overlap = 2
	const gpuFrameCost = 10.0
	backend := newFakeBackend(overlap, gpuFrameCost)
	require.NoError(t, InitializeWithBackend(backend))

	const frames = 50
	for i := 0; i < frames; i++ {
		require.NoError(t, DrawFrame(0.0, &metadata.RenderPacket{}, nil))
	}

	assert.LessOrEqual(t, backend.maxLead, overlap, "host recorded more than overlap frames ahead")
	assert.Equal(t, overlap, backend.maxLead, "pipeline never filled")

	// After N submissions the host has waited for frame N-overlap: the host
	// clock tracks the device, minus the overlap frames still in flight.
	expected := float64(frames-overlap) * gpuFrameCost
	assert.InDelta(t, expected, backend.hostClock, 0.001)
	assert.Equal(t, frames-overlap, backend.gpu.retired)
}

// A fast device never blocks the host: every fence is already signaled by
// the time the slot comes around again.
func TestFramePacingAgainstFastDevice(t *testing.T) {
	backend := newFakeBackend(2, 0.0)
	require.NoError(t, InitializeWithBackend(backend))

	for i := 0; i < 20; i++ {
		require.NoError(t, DrawFrame(0.0, &metadata.RenderPacket{}, nil))
	}
	assert.Equal(t, 0.0, backend.hostClock, "host blocked on an idle device")
	assert.Equal(t, uint64(20), FrameNumber())
}
