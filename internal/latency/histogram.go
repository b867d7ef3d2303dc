// Package latency implements the fixed-bin latency histogram used by the
// redundant connection manager to pick the slowest connection and by the
// periodic latency-print ticker.
package latency

import "math"

const (
	// BinWidthUS is the width of each histogram bin, in microseconds.
	BinWidthUS = 10
	// NumBins covers 0-30ms at BinWidthUS resolution.
	NumBins = 3000
)

// Collector is a per-connection, single-threaded latency histogram.
// Samples beyond the last bin are clamped into it but still contribute to
// min/max/sum.
type Collector struct {
	bins  [NumBins]uint64
	count uint64
	sum   int64
	min   int64
	max   int64
}

// NewCollector returns a zeroed collector.
func NewCollector() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// Record adds one sample, in microseconds.
func (c *Collector) Record(sampleUS int64) {
	bin := sampleUS / BinWidthUS
	if bin < 0 {
		bin = 0
	}
	if bin >= NumBins {
		bin = NumBins - 1
	}
	c.bins[bin]++
	c.count++
	c.sum += sampleUS
	if c.count == 1 || sampleUS < c.min {
		c.min = sampleUS
	}
	if sampleUS > c.max {
		c.max = sampleUS
	}
}

// Reset zeroes all bins and scalars.
func (c *Collector) Reset() {
	for i := range c.bins {
		c.bins[i] = 0
	}
	c.count = 0
	c.sum = 0
	c.min = 0
	c.max = 0
}

// Count returns the number of recorded samples.
func (c *Collector) Count() uint64 { return c.count }

// Average returns the arithmetic mean sample, or 0 if no samples have
// been recorded.
func (c *Collector) Average() float64 {
	if c.count == 0 {
		return 0
	}
	return float64(c.sum) / float64(c.count)
}

// Min returns the minimum recorded sample.
func (c *Collector) Min() int64 { return c.min }

// Max returns the maximum recorded sample.
func (c *Collector) Max() int64 { return c.max }

// Percentile walks bins cumulatively and returns the approximate sample
// value at the given percentile in [0, 100]. The threshold count is
// ceil(count * pct / 100).
func (c *Collector) Percentile(pct float64) int64 {
	if c.count == 0 {
		return 0
	}
	threshold := uint64(math.Ceil(float64(c.count) * pct / 100))
	if threshold == 0 {
		threshold = 1
	}
	var cum uint64
	for bin, n := range c.bins {
		cum += n
		if cum >= threshold {
			return int64(bin) * BinWidthUS
		}
	}
	return int64(NumBins-1) * BinWidthUS
}
