package metrics

import (
	"math"
	"testing"
)

func feed(m Metric, values []float64, step float64) {
	for i, v := range values {
		m.Observe(v, float64(i+1)*step)
	}
}

func TestPeak(t *testing.T) {
	p := NewPeak("runoff")
	feed(p, []float64{-3, -1, -2}, 0.25)
	if p.Value() != -1 {
		t.Errorf("expected peak -1, got %f", p.Value())
	}
	if p.Name() != "runoff.peak" {
		t.Errorf("unexpected name %s", p.Name())
	}
}

func TestMean(t *testing.T) {
	m := NewMean("depth")
	if m.Value() != 0 {
		t.Error("expected zero mean without samples")
	}
	feed(m, []float64{1, 2, 3, 6}, 1)
	if m.Value() != 3 {
		t.Errorf("expected mean 3, got %f", m.Value())
	}
}

func TestTotal(t *testing.T) {
	tot := NewTotal("rain")
	// 0.3 in/hr over twelve five-minute steps
	feed(tot, []float64{0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3, 0.3}, 5.0/60)
	if math.Abs(tot.Value()-0.3) > 1e-9 {
		t.Errorf("expected 0.3 in over one hour, got %f", tot.Value())
	}

	tot = NewTotal("rain")
	tot.Observe(2, 0.5)
	tot.Observe(4, 1.0)
	if tot.Value() != 3 {
		t.Errorf("expected 3, got %f", tot.Value())
	}
}

func TestExceedance(t *testing.T) {
	e := NewExceedance("depth", 1.0)
	feed(e, []float64{0.5, 1.5, 2.0, 0.9}, 1)
	if e.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", e.Value())
	}
	if NewExceedance("depth", 1.0).Value() != 0 {
		t.Error("expected zero without samples")
	}
}

func TestStandard(t *testing.T) {
	ms := Standard("outflow")
	want := []string{"outflow.peak", "outflow.mean", "outflow.total"}
	if len(ms) != len(want) {
		t.Fatalf("expected %d metrics, got %d", len(want), len(ms))
	}
	for i, m := range ms {
		if m.Name() != want[i] {
			t.Errorf("expected %s, got %s", want[i], m.Name())
		}
	}
}
