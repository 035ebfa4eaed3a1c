// Package metrics summarizes probe series as a run progresses.
package metrics

import "math"

// Metric observes one probe value per step. hours is simulation time
// elapsed since the start of the run.
type Metric interface {
	Name() string
	Observe(v, hours float64)
	Value() float64
}

// Standard returns the summaries recorded for every probe.
func Standard(probe string) []Metric {
	return []Metric{
		NewPeak(probe),
		NewMean(probe),
		NewTotal(probe),
	}
}

type Peak struct {
	name    string
	peak    float64
	samples int
}

func NewPeak(probe string) *Peak {
	return &Peak{name: probe + ".peak"}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(v, hours float64) {
	if p.samples == 0 || v > p.peak {
		p.peak = v
	}
	p.samples++
}

func (p *Peak) Value() float64 { return p.peak }

type Mean struct {
	name    string
	sum     float64
	samples int
}

func NewMean(probe string) *Mean {
	return &Mean{name: probe + ".mean"}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(v, hours float64) {
	m.sum += v
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

// Total integrates the probe over simulation time in value-hours. Each
// sample holds until the next one.
type Total struct {
	name  string
	sum   float64
	last  float64
	since float64
	seen  bool
}

func NewTotal(probe string) *Total {
	return &Total{name: probe + ".total"}
}

func (t *Total) Name() string { return t.name }

func (t *Total) Observe(v, hours float64) {
	if !t.seen {
		t.sum += v * hours
	} else {
		t.sum += v * math.Max(hours-t.since, 0)
	}
	t.last, t.since, t.seen = v, hours, true
}

func (t *Total) Value() float64 { return t.sum }

// Exceedance is the fraction of samples whose value is above a threshold.
type Exceedance struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewExceedance(probe string, threshold float64) *Exceedance {
	return &Exceedance{
		name:      probe + ".exceedance",
		threshold: threshold,
	}
}

func (e *Exceedance) Name() string { return e.name }

func (e *Exceedance) Observe(v, hours float64) {
	e.samples++
	if v > e.threshold {
		e.violations++
	}
}

func (e *Exceedance) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return float64(e.violations) / float64(e.samples)
}
