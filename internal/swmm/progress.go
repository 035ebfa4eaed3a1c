package swmm

import "math"

// ProgressFunc receives the elapsed fraction of the simulated period.
type ProgressFunc func(fraction float64)

// progressReporter turns raw step fractions into a clamped, non-decreasing
// stream and forwards it to the registered callback.
type progressReporter struct {
	fn   ProgressFunc
	last float64
}

func (p *progressReporter) reset() { p.last = 0 }

func (p *progressReporter) report(v float64) float64 {
	if math.IsNaN(v) || v < p.last {
		v = p.last
	}
	if v > 1 {
		v = 1
	}
	p.last = v
	if p.fn != nil {
		p.fn(v)
	}
	return v
}

func (p *progressReporter) finish() float64 {
	return p.report(1)
}
