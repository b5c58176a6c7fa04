// Package network provides the shared HTTP data source factory and the bandwidth meter it reports to.
package network

import (
	"time"

	"go.uber.org/atomic"
)

// meterWeight is the weight given to the newest sample in the bitrate estimate.
const meterWeight = 0.3

// BandwidthMeter keeps a running estimate of the available bitrate.
// A single meter is meant to be shared by every data source factory and
// engine in the process, so estimation state outlives any one player.
type BandwidthMeter struct {
	estimate   atomic.Float64
	totalBytes atomic.Int64
	samples    atomic.Int64
	onSample   atomic.Value // func(elapsed time.Duration, bytes int64, estimate float64)
}

// DefaultBandwidthMeter is the process-wide meter.
var DefaultBandwidthMeter = &BandwidthMeter{}

// Sample records that bytes were transferred over elapsed.
// Samples with a non-positive duration only count towards the byte total.
func (m *BandwidthMeter) Sample(bytes int64, elapsed time.Duration) {
	if bytes <= 0 {
		return
	}
	m.totalBytes.Add(bytes)
	if elapsed <= 0 {
		return
	}

	bitrate := float64(bytes) * 8 / elapsed.Seconds()
	var next float64
	for {
		prev := m.estimate.Load()
		if m.samples.Load() == 0 {
			next = bitrate
		} else {
			next = prev + meterWeight*(bitrate-prev)
		}
		if m.estimate.CompareAndSwap(prev, next) {
			break
		}
	}
	m.samples.Inc()

	if fn, ok := m.onSample.Load().(func(time.Duration, int64, float64)); ok && fn != nil {
		fn(elapsed, bytes, next)
	}
}

// SampleRate records a rate already measured elsewhere, in bytes per second.
func (m *BandwidthMeter) SampleRate(bytesPerSecond float64) {
	if bytesPerSecond <= 0 {
		return
	}
	m.Sample(int64(bytesPerSecond), time.Second)
}

// BitrateEstimate returns the current estimate in bits per second, 0 when unknown.
func (m *BandwidthMeter) BitrateEstimate() float64 {
	return m.estimate.Load()
}

// TotalBytes returns every byte ever reported to the meter.
func (m *BandwidthMeter) TotalBytes() int64 {
	return m.totalBytes.Load()
}

// OnSample installs a hook called after each timed sample. Passing nil removes it.
func (m *BandwidthMeter) OnSample(fn func(elapsed time.Duration, bytes int64, estimate float64)) {
	m.onSample.Store(fn)
}
