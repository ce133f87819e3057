package core

// frameWindow is how many recent frames the timing average spans. At 60 fps
// the window covers two seconds.
const frameWindow = 120

// MetricsState tracks frame timing over a sliding window of recent frames.
// The running total makes every update O(1).
type MetricsState struct {
	samples [frameWindow]float64
	cursor  int
	filled  int
	totalMS float64
	worstMS float64
	frames  uint64
}

var metricsState *MetricsState

func MetricsInitialize() error {
	metricsState = &MetricsState{}
	return nil
}

func MetricsShutdown() {
	metricsState = nil
}

// MetricsUpdate records one frame. elapsed is the frame time in seconds, as
// reported by the render loop.
func MetricsUpdate(elapsed float64) {
	if metricsState == nil {
		return
	}
	m := metricsState
	ms := elapsed * 1000.0

	if m.filled == frameWindow {
		m.totalMS -= m.samples[m.cursor]
	} else {
		m.filled++
	}
	m.samples[m.cursor] = ms
	m.totalMS += ms
	m.cursor = (m.cursor + 1) % frameWindow

	if ms > m.worstMS {
		m.worstMS = ms
	}
	m.frames++
}

// MetricsFrameTime returns the average frame time over the window, in
// milliseconds. Zero before the first frame lands.
func MetricsFrameTime() float64 {
	if metricsState == nil || metricsState.filled == 0 {
		return 0
	}
	return metricsState.totalMS / float64(metricsState.filled)
}

// MetricsFPS derives frames per second from the window average.
func MetricsFPS() float64 {
	avg := MetricsFrameTime()
	if avg <= 0 {
		return 0
	}
	return 1000.0 / avg
}

// MetricsFrame returns the averaged FPS and frame time together, for the
// run loop's periodic stats line.
func MetricsFrame() (float64, float64) {
	return MetricsFPS(), MetricsFrameTime()
}

// MetricsWorstFrame returns the longest frame seen since initialization,
// in milliseconds.
func MetricsWorstFrame() float64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.worstMS
}

// MetricsFrameCount returns the total number of frames recorded.
func MetricsFrameCount() uint64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.frames
}
