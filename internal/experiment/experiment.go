package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/metrics"
	"github.com/san-kum/hydrosim/internal/swmm"
)

var ErrNotStarted = errors.New("experiment not started")

// Result is everything recorded while an experiment ran. Series and
// Probes are keyed by probe label; Probes keeps the configured order.
type Result struct {
	Times       []time.Time
	Hours       []float64
	Progress    []float64
	Probes      []string
	Series      map[string][]float64
	Metrics     map[string]float64
	Steps       int
	Warnings    int
	MassBalance *swmm.MassBalance
}

type probe struct {
	label string
	kind  swmm.ObjectKind
	prop  swmm.Property
	index int
	obs   []metrics.Metric
}

// Experiment drives one session from a run configuration: it applies the
// configured overrides once the project is loaded, samples every probe
// after each stride and keeps the summaries current.
type Experiment struct {
	cfg     *config.Config
	session *swmm.Session
	logger  *slog.Logger
	probes  []probe
	result  *Result
	started bool
}

func New(cfg *config.Config, b swmm.Binding, logger *slog.Logger, opts ...swmm.Option) *Experiment {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report, output := cfg.Paths()
	opts = append([]swmm.Option{
		swmm.WithLogger(logger),
		swmm.WithSaveResults(cfg.SaveResults),
	}, opts...)
	if cfg.HotStart != "" {
		opts = append(opts, swmm.WithHotStart(cfg.HotStart))
	}
	return &Experiment{
		cfg:     cfg,
		session: swmm.New(b, cfg.Input, report, output, opts...),
		logger:  logger,
	}
}

func (e *Experiment) Session() *swmm.Session { return e.session }

// Result returns what has been recorded so far, or nil before Start.
func (e *Experiment) Result() *Result { return e.result }

// Start initializes the session, applies overrides and resolves probes.
// The session is closed again if any of that fails.
func (e *Experiment) Start() error {
	if err := e.session.Initialize(); err != nil {
		return err
	}
	if err := e.setup(); err != nil {
		e.session.Close()
		return err
	}
	e.started = true
	e.logger.Info("experiment started",
		"input", e.cfg.Input,
		"start", e.session.StartTime(),
		"end", e.session.EndTime(),
		"probes", len(e.probes))
	return nil
}

func (e *Experiment) setup() error {
	props := e.session.Properties()
	for _, o := range e.cfg.Overrides {
		prop, index, err := e.target(o.Kind, o.Object, o.Property)
		if err != nil {
			return fmt.Errorf("override %s.%s: %w", o.Object, o.Property, err)
		}
		if err := props.Set(o.Kind, prop, index, o.Value); err != nil {
			return err
		}
		if err := e.session.WriteLine(fmt.Sprintf("Override: %s %s %s = %g", o.Kind, o.Object, o.Property, o.Value)); err != nil {
			return err
		}
		e.logger.Debug("override applied", "kind", o.Kind, "object", o.Object, "property", o.Property, "value", o.Value)
	}

	e.probes = e.probes[:0]
	e.result = &Result{
		Series:  make(map[string][]float64, len(e.cfg.Probes)),
		Metrics: make(map[string]float64),
	}
	for _, p := range e.cfg.Probes {
		prop, index, err := e.target(p.Kind, p.Object, p.Property)
		if err != nil {
			return fmt.Errorf("probe %s: %w", p.Label(), err)
		}
		label := p.Label()
		obs := metrics.Standard(label)
		if p.Threshold != nil {
			obs = append(obs, metrics.NewExceedance(label, *p.Threshold))
		}
		e.probes = append(e.probes, probe{
			label: label,
			kind:  p.Kind,
			prop:  prop,
			index: index,
			obs:   obs,
		})
		e.result.Probes = append(e.result.Probes, label)
	}
	return nil
}

func (e *Experiment) target(kind swmm.ObjectKind, object, property string) (swmm.Property, int, error) {
	prop, err := swmm.LookupProperty(kind, property)
	if err != nil {
		return 0, 0, err
	}
	if kind == swmm.System {
		return prop, 0, nil
	}
	index, err := e.session.Registry().IndexOf(kind, object)
	if err != nil {
		return 0, 0, err
	}
	return prop, index, nil
}

// Advance takes one stride and samples the probes. done reports whether
// the simulation has reached its end date.
func (e *Experiment) Advance() (done bool, err error) {
	if !e.started {
		return false, ErrNotStarted
	}
	stride := e.cfg.Stride
	if stride < 1 {
		stride = 1
	}
	p, err := e.session.Stride(stride)
	if err != nil {
		return false, err
	}
	if err := e.sample(p); err != nil {
		return false, err
	}
	return e.session.State() == swmm.Finished, nil
}

func (e *Experiment) sample(progress float64) error {
	hours := e.session.Elapsed() * 24
	r := e.result
	r.Times = append(r.Times, e.session.CurrentTime())
	r.Hours = append(r.Hours, hours)
	r.Progress = append(r.Progress, progress)
	r.Steps++

	props := e.session.Properties()
	for _, p := range e.probes {
		v, err := props.Get(p.kind, p.prop, p.index)
		if err != nil {
			return err
		}
		r.Series[p.label] = append(r.Series[p.label], v)
		for _, m := range p.obs {
			m.Observe(v, hours)
			r.Metrics[m.Name()] = m.Value()
		}
	}
	return nil
}

// Finish finalizes the run, records continuity errors and closes the
// session.
func (e *Experiment) Finish() (err error) {
	defer func() {
		if cerr := e.session.Close(); err == nil {
			err = cerr
		}
	}()
	if !e.started {
		return ErrNotStarted
	}
	if err := e.session.Finalize(); err != nil {
		return err
	}
	mb, err := e.session.MassBalance()
	if err != nil {
		return err
	}
	e.result.MassBalance = &mb
	e.result.Warnings = e.session.Warnings()
	return nil
}

// Close releases the session without finalizing it.
func (e *Experiment) Close() error { return e.session.Close() }

// Run executes the whole experiment. ctx is checked between strides.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.Start(); err != nil {
		return nil, err
	}
	for {
		select {
		case <-ctx.Done():
			e.Close()
			return e.result, ctx.Err()
		default:
		}
		done, err := e.Advance()
		if err != nil {
			e.Close()
			return e.result, err
		}
		if done {
			break
		}
	}
	if err := e.Finish(); err != nil {
		return e.result, err
	}
	e.logger.Info("experiment finished",
		"steps", e.result.Steps,
		"runoff_error", e.result.MassBalance.Runoff,
		"flow_error", e.result.MassBalance.Flow)
	return e.result, nil
}
