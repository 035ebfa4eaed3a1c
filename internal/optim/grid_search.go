// Package optim searches override values for the run that best meets a
// metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/logging"
)

var ErrNoFeasiblePoint = errors.New("no grid point completed")

// Param is one swept property. Value in Target is ignored.
type Param struct {
	Target config.Override
	Values []float64
}

// Point is one evaluated combination, values in Param order.
type Point struct {
	Values []float64
	Metric float64
	Err    error
}

type Outcome struct {
	Best   []config.Override
	Value  float64
	Points []Point
}

// Builder turns a set of overrides into a ready-to-run experiment. Each
// call must return an experiment with its own engine.
type Builder func(overrides []config.Override) (*experiment.Experiment, error)

type GridSearch struct {
	params  []Param
	workers int
}

func NewGridSearch(params []Param, workers int) *GridSearch {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &GridSearch{params: params, workers: workers}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.params) == 0 {
		return 0
	}
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// point returns the values of grid point i, last parameter varying
// fastest.
func (g *GridSearch) point(i int) []float64 {
	vals := make([]float64, len(g.params))
	for j := len(g.params) - 1; j >= 0; j-- {
		n := len(g.params[j].Values)
		vals[j] = g.params[j].Values[i%n]
		i /= n
	}
	return vals
}

func (g *GridSearch) overrides(vals []float64) []config.Override {
	out := make([]config.Override, len(g.params))
	for j, p := range g.params {
		out[j] = p.Target
		out[j].Value = vals[j]
	}
	return out
}

// Search runs every grid point and keeps the one with the lowest metric,
// or the highest when maximize is set. Points that fail are recorded and
// skipped. Ties keep the earlier point. Progress goes to the logger carried
// by ctx.
func (g *GridSearch) Search(ctx context.Context, build Builder, metricName string, maximize bool) (*Outcome, error) {
	n := g.Size()
	if n == 0 {
		return nil, fmt.Errorf("empty grid")
	}

	logger := logging.FromContext(ctx)
	logger.Info("grid search started", "points", n, "workers", g.workers, "metric", metricName)

	points := make([]Point, n)
	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup
	for i := range n {
		vals := g.point(i)
		points[i].Values = vals

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			points[idx].Metric, points[idx].Err = g.evaluate(ctx, build, metricName, vals)
			if err := points[idx].Err; err != nil {
				logger.Warn("grid point failed", "point", idx, "values", vals, "err", err)
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := -1
	for i, p := range points {
		if p.Err != nil {
			continue
		}
		if best < 0 || better(p.Metric, points[best].Metric, maximize) {
			best = i
		}
	}
	if best < 0 {
		return &Outcome{Points: points, Value: math.NaN()}, ErrNoFeasiblePoint
	}
	logger.Info("grid search finished", "best", points[best].Values, metricName, points[best].Metric)
	return &Outcome{
		Best:   g.overrides(points[best].Values),
		Value:  points[best].Metric,
		Points: points,
	}, nil
}

func better(a, b float64, maximize bool) bool {
	if maximize {
		return a > b
	}
	return a < b
}

func (g *GridSearch) evaluate(ctx context.Context, build Builder, metricName string, vals []float64) (float64, error) {
	exp, err := build(g.overrides(vals))
	if err != nil {
		return 0, err
	}
	res, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("metric %q not recorded", metricName)
	}
	return v, nil
}
