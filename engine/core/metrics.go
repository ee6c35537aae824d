package core

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type MetricsState struct {
	SetsAllocated       atomic.Uint64
	DescriptorsWritten  atomic.Uint64
	DescriptorsSkipped  atomic.Uint64
	DescriptorsFailed   atomic.Uint64
	ImageViewsCreated   atomic.Uint64
	ImageViewsReused    atomic.Uint64
	ImageViewsReleased  atomic.Uint64
	BufferViewsCreated  atomic.Uint64
	BufferViewsReused   atomic.Uint64
	BufferViewsReleased atomic.Uint64
}

// Metrics is a point-in-time copy of the counters.
type Metrics struct {
	SetsAllocated       uint64
	DescriptorsWritten  uint64
	DescriptorsSkipped  uint64
	DescriptorsFailed   uint64
	ImageViewsCreated   uint64
	ImageViewsReused    uint64
	ImageViewsReleased  uint64
	BufferViewsCreated  uint64
	BufferViewsReused   uint64
	BufferViewsReleased uint64
}

func (m Metrics) String() string {
	return fmt.Sprintf("sets=%d written=%d skipped=%d failed=%d imageViews[created=%d reused=%d released=%d] bufferViews[created=%d reused=%d released=%d]",
		m.SetsAllocated, m.DescriptorsWritten, m.DescriptorsSkipped, m.DescriptorsFailed,
		m.ImageViewsCreated, m.ImageViewsReused, m.ImageViewsReleased,
		m.BufferViewsCreated, m.BufferViewsReused, m.BufferViewsReleased)
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func metrics() *MetricsState {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return metricsState
}

// MetricsCounters gives the heap subsystem direct access to the shared counters.
func MetricsCounters() *MetricsState {
	return metrics()
}

func MetricsSnapshot() Metrics {
	m := metrics()
	return Metrics{
		SetsAllocated:       m.SetsAllocated.Load(),
		DescriptorsWritten:  m.DescriptorsWritten.Load(),
		DescriptorsSkipped:  m.DescriptorsSkipped.Load(),
		DescriptorsFailed:   m.DescriptorsFailed.Load(),
		ImageViewsCreated:   m.ImageViewsCreated.Load(),
		ImageViewsReused:    m.ImageViewsReused.Load(),
		ImageViewsReleased:  m.ImageViewsReleased.Load(),
		BufferViewsCreated:  m.BufferViewsCreated.Load(),
		BufferViewsReused:   m.BufferViewsReused.Load(),
		BufferViewsReleased: m.BufferViewsReleased.Load(),
	}
}

// Sub returns the per-counter difference m - prev.
func (m Metrics) Sub(prev Metrics) Metrics {
	return Metrics{
		SetsAllocated:       m.SetsAllocated - prev.SetsAllocated,
		DescriptorsWritten:  m.DescriptorsWritten - prev.DescriptorsWritten,
		DescriptorsSkipped:  m.DescriptorsSkipped - prev.DescriptorsSkipped,
		DescriptorsFailed:   m.DescriptorsFailed - prev.DescriptorsFailed,
		ImageViewsCreated:   m.ImageViewsCreated - prev.ImageViewsCreated,
		ImageViewsReused:    m.ImageViewsReused - prev.ImageViewsReused,
		ImageViewsReleased:  m.ImageViewsReleased - prev.ImageViewsReleased,
		BufferViewsCreated:  m.BufferViewsCreated - prev.BufferViewsCreated,
		BufferViewsReused:   m.BufferViewsReused - prev.BufferViewsReused,
		BufferViewsReleased: m.BufferViewsReleased - prev.BufferViewsReleased,
	}
}
