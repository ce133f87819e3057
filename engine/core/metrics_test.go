package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsFixture(t *testing.T) {
	t.Helper()
	MetricsShutdown()
	require.NoError(t, MetricsInitialize())
	t.Cleanup(MetricsShutdown)
}

func TestMetricsSteadyFrameRate(t *testing.T) {
	newMetricsFixture(t)

	// 10 ms frames, enough of them to fill the window twice over.
	for i := 0; i < 2*frameWindow; i++ {
		MetricsUpdate(0.010)
	}

	assert.InDelta(t, 10.0, MetricsFrameTime(), 1e-6)
	assert.InDelta(t, 100.0, MetricsFPS(), 1e-6)
	assert.Equal(t, uint64(2*frameWindow), MetricsFrameCount())
}

func TestMetricsWindowForgetsOldFrames(t *testing.T) {
	newMetricsFixture(t)

	// A slow stretch followed by a full window of fast frames: the average
	// must converge to the fast rate once every slow sample is evicted.
	for i := 0; i < frameWindow; i++ {
		MetricsUpdate(0.033)
	}
	for i := 0; i < frameWindow; i++ {
		MetricsUpdate(0.008)
	}

	assert.InDelta(t, 8.0, MetricsFrameTime(), 1e-6)
	assert.InDelta(t, 33.0, MetricsWorstFrame(), 1e-6, "the spike stays on record")
}

func TestMetricsPartialWindowAverages(t *testing.T) {
	newMetricsFixture(t)

	MetricsUpdate(0.010)
	MetricsUpdate(0.020)

	assert.InDelta(t, 15.0, MetricsFrameTime(), 1e-6)
}

func TestMetricsZeroBeforeFirstFrame(t *testing.T) {
	newMetricsFixture(t)

	assert.Zero(t, MetricsFrameTime())
	assert.Zero(t, MetricsFPS())

	fps, frameMS := MetricsFrame()
	assert.Zero(t, fps)
	assert.Zero(t, frameMS)
}
