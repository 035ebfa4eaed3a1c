package swmm

import (
	"math"
	"testing"
)

func TestProgressClampsAndOrders(t *testing.T) {
	var got []float64
	p := progressReporter{fn: func(v float64) { got = append(got, v) }}

	for _, v := range []float64{0.1, 0.05, math.NaN(), 0.4, 1.7} {
		p.report(v)
	}
	want := []float64{0.1, 0.1, 0.1, 0.4, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if p.finish() != 1 {
		t.Error("finish must report exactly 1")
	}

	p.reset()
	if p.report(0.2) != 0.2 {
		t.Error("reset should allow a fresh stream")
	}
}

func TestProgressWithoutCallback(t *testing.T) {
	var p progressReporter
	if v := p.report(0.5); v != 0.5 {
		t.Errorf("expected 0.5, got %v", v)
	}
}
