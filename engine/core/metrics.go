package core

import (
	"time"

	"github.com/spaghettifunk/animate/engine/containers"
)

const AVG_COUNT = 30

// FrameMetrics keeps a moving average of frame times and a frames-per-second
// counter refreshed once a second.
type FrameMetrics struct {
	samples     *containers.RingQueue[time.Duration]
	average     time.Duration
	frames      int
	accumulated time.Duration
	fps         int
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{
		samples: containers.NewRingQueue[time.Duration](AVG_COUNT),
	}
}

func (m *FrameMetrics) Update(frameTime time.Duration) {
	if m.samples.IsFull() {
		_, _ = m.samples.Dequeue()
	}
	_ = m.samples.Enqueue(frameTime)

	var sum time.Duration
	m.samples.Each(func(d time.Duration) {
		sum += d
	})
	m.average = sum / time.Duration(m.samples.Len())

	m.frames++
	m.accumulated += frameTime
	if m.accumulated >= time.Second {
		m.fps = m.frames
		m.frames = 0
		m.accumulated -= time.Second
	}
}

func (m *FrameMetrics) FPS() int {
	return m.fps
}

func (m *FrameMetrics) FrameTime() time.Duration {
	return m.average
}
