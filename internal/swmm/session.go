// Package swmm drives a time-stepped hydrologic/hydraulic engine through its
// lifecycle and gives callers validated, generic access to object
// properties while a run is in progress.
//
// A Session moves through Uninitialized, Initialized, Stepping, Finished
// and Closed. It owns one engine handle and must be driven by a single
// goroutine.
package swmm

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/san-kum/hydrosim/internal/timecodec"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Stepping
	Finished
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Finished:
		return "finished"
	case Closed:
		return "closed"
	}
	return "unknown"
}

type Option func(*Session)

// WithProgress registers the callback invoked after every successful step.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Session) { s.progress.fn = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSaveResults controls whether the engine writes per-period results
// to the output resource. It defaults to true.
func WithSaveResults(save bool) Option {
	return func(s *Session) { s.save = save }
}

// WithHotStart initializes the run from a previously saved hot start file.
func WithHotStart(path string) Option {
	return func(s *Session) { s.hotStart = path }
}

type Session struct {
	binding  Binding
	input    string
	report   string
	output   string
	save     bool
	hotStart string
	logger   *slog.Logger

	state       State
	h           *handle
	finalized   bool
	finalizeErr error
	failed      error
	start       float64
	end         float64
	clock       float64
	progress    progressReporter

	registry Registry
	accessor Accessor
}

// New binds a session to an engine and three resource locations. No engine
// resources are acquired until Initialize.
func New(b Binding, input, report, output string, opts ...Option) *Session {
	s := &Session{
		binding: b,
		input:   input,
		report:  report,
		output:  output,
		save:    true,
		logger:  slog.New(slog.DiscardHandler),
	}
	s.registry.s = s
	s.accessor.s = s
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State           { return s.state }
func (s *Session) InputPath() string      { return s.input }
func (s *Session) ReportPath() string     { return s.report }
func (s *Session) OutputPath() string     { return s.output }
func (s *Session) Registry() *Registry    { return &s.registry }
func (s *Session) Properties() *Accessor  { return &s.accessor }
func (s *Session) Finalized() bool        { return s.finalized }
func (s *Session) Progress() float64      { return s.progress.last }
func (s *Session) StartTime() time.Time   { return timecodec.Decode(s.start) }
func (s *Session) EndTime() time.Time     { return timecodec.Decode(s.end) }
func (s *Session) CurrentTime() time.Time { return timecodec.Decode(s.clock) }

// Clock returns the current simulation time on the engine clock.
func (s *Session) Clock() float64 { return s.clock }

// Elapsed returns simulated days since the start date.
func (s *Session) Elapsed() float64 { return s.clock - s.start }

// Initialize opens the resources, starts the engine and reads the
// simulation period. On failure the engine is released, the session stays
// Uninitialized and Initialize may be retried.
func (s *Session) Initialize() error {
	const op = "initialize"
	switch s.state {
	case Uninitialized:
	case Closed:
		return opError(op, ErrSessionClosed)
	default:
		return opError(op, ErrAlreadyInitialized)
	}

	h, err := acquire(s.binding, s.input, s.report, s.output)
	if err != nil {
		return s.initFailed(err)
	}
	if err := s.prepare(h); err != nil {
		h.release()
		return s.initFailed(err)
	}

	s.h = h
	s.state = Initialized
	s.finalized = false
	s.finalizeErr = nil
	s.failed = nil
	s.clock = s.start
	s.progress.reset()
	s.logger.Info("session initialized",
		"input", s.input,
		"start", s.StartTime(),
		"end", s.EndTime(),
	)
	return nil
}

func (s *Session) prepare(h *handle) error {
	if s.hotStart != "" {
		if err := h.check(h.b.UseHotStart(s.hotStart)); err != nil {
			return err
		}
	}
	if err := h.start(s.save); err != nil {
		return err
	}
	start, code := h.b.Value(int(System), int(SystemStartDate), 0)
	if err := h.check(code); err != nil {
		return err
	}
	end, code := h.b.Value(int(System), int(SystemEndDate), 0)
	if err := h.check(code); err != nil {
		return err
	}
	s.start, s.end = start, end
	return nil
}

func (s *Session) initFailed(err error) error {
	e := opError("initialize", err)
	e.Path = s.input
	s.logger.Warn("initialize failed", "input", s.input, "code", Code(err), "err", err)
	return e
}

// Step advances the engine by one routing step and returns the elapsed
// fraction of the simulated period. The progress callback sees the same
// value before Step returns. The step that reaches the end date moves the
// session to Finished and reports exactly 1. A failed step is fatal: every
// later Step returns the same error and only Finalize, reads and Close
// remain available.
func (s *Session) Step() (float64, error) {
	const op = "step"
	if err := s.steppable(op); err != nil {
		return s.progress.last, err
	}

	elapsed, err := s.h.step()
	if err != nil {
		s.logger.Warn("step failed", "clock", s.clock, "code", Code(err), "err", err)
		s.failed = opError(op, err)
		return s.progress.last, s.failed
	}

	if elapsed <= 0 {
		s.state = Finished
		s.clock = s.end
		s.logger.Debug("simulation finished", "clock", s.clock)
		return s.progress.finish(), nil
	}

	s.state = Stepping
	if t := s.start + elapsed; t > s.clock {
		s.clock = t
	}
	frac := 1.0
	if d := s.end - s.start; d > 0 {
		frac = elapsed / d
	}
	return s.progress.report(frac), nil
}

// Stride takes up to n steps, stopping early when the simulation finishes.
func (s *Session) Stride(n int) (float64, error) {
	if err := s.steppable("stride"); err != nil {
		return s.progress.last, err
	}
	p := s.progress.last
	for i := 0; i < n && s.state != Finished; i++ {
		var err error
		if p, err = s.Step(); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (s *Session) steppable(op string) error {
	switch s.state {
	case Uninitialized:
		return opError(op, ErrSessionNotReady)
	case Finished, Closed:
		return opError(op, ErrAlreadyFinished)
	}
	if s.failed != nil {
		return s.failed
	}
	if s.finalized {
		return opError(op, ErrAlreadyFinished)
	}
	return nil
}

// Finalize ends the run and flushes the report and output resources. It
// leaves the state unchanged and disables further stepping. Repeated calls
// return the outcome of the first one.
func (s *Session) Finalize() error {
	const op = "finalize"
	switch s.state {
	case Uninitialized:
		return opError(op, ErrSessionNotReady)
	case Closed:
		return opError(op, ErrSessionClosed)
	}
	if s.finalized {
		return s.finalizeErr
	}
	s.finalized = true
	if err := s.h.end(); err != nil {
		s.finalizeErr = opError(op, err)
		s.logger.Warn("finalize failed", "code", Code(err), "err", err)
		return s.finalizeErr
	}
	s.logger.Debug("session finalized", "report", s.report, "output", s.output)
	return nil
}

// Close releases the engine handle. It always leaves the session Closed
// and is a no-op on a session that is already closed or was never opened.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	h := s.h
	s.h = nil
	s.state = Closed
	if err := h.release(); err != nil {
		s.logger.Warn("close failed", "code", Code(err), "err", err)
		return opError("close", err)
	}
	s.logger.Debug("session closed", "input", s.input)
	return nil
}

// Execute runs the session to completion: Initialize (unless already
// initialized), Step until Finished, Finalize, Close. The first error is
// returned and Close runs on every path. ctx is checked between steps.
func (s *Session) Execute(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	if s.state == Uninitialized {
		if err := s.Initialize(); err != nil {
			return err
		}
	}
	for s.state != Finished {
		select {
		case <-ctx.Done():
			return opError("execute", ctx.Err())
		default:
		}
		if _, err := s.Step(); err != nil {
			return err
		}
	}
	return s.Finalize()
}

// Times steps the session lazily, yielding the simulation time after each
// step. The sequence ends when the session finishes and does not restart:
// ranging over a finished session yields ErrAlreadyFinished once.
func (s *Session) Times() iter.Seq2[time.Time, error] {
	return func(yield func(time.Time, error) bool) {
		if err := s.steppable("iterate"); err != nil {
			yield(time.Time{}, err)
			return
		}
		for s.state != Finished {
			if _, err := s.Step(); err != nil {
				yield(time.Time{}, err)
				return
			}
			if !yield(s.CurrentTime(), nil) {
				return
			}
		}
	}
}

// Version returns the engine build number.
func (s *Session) Version() int { return s.binding.Version() }

// Warnings returns the number of warnings the engine has issued.
func (s *Session) Warnings() int {
	if s.h == nil {
		return 0
	}
	return s.h.b.Warnings()
}

// MassBalance returns the continuity errors of a finalized run.
func (s *Session) MassBalance() (MassBalance, error) {
	const op = "mass balance"
	if err := s.readable(op); err != nil {
		return MassBalance{}, err
	}
	if !s.finalized {
		return MassBalance{}, opError(op, ErrSessionNotReady)
	}
	r, f, q, code := s.h.b.MassBalance()
	if err := s.h.check(code); err != nil {
		return MassBalance{}, opError(op, err)
	}
	return MassBalance{Runoff: r, Flow: f, Quality: q}, nil
}

// SaveHotStart writes the current engine state so a later run can resume
// from it through WithHotStart.
func (s *Session) SaveHotStart(path string) error {
	const op = "save hot start"
	if err := s.writable(op); err != nil {
		return err
	}
	if err := s.h.check(s.h.b.SaveHotStart(path)); err != nil {
		e := opError(op, err)
		e.Path = path
		return e
	}
	return nil
}

// WriteLine adds a line of text to the report while the project is open.
func (s *Session) WriteLine(line string) error {
	if err := s.readable("write line"); err != nil {
		return err
	}
	s.h.b.WriteLine(line)
	return nil
}

func (s *Session) readable(op string) error {
	switch s.state {
	case Uninitialized:
		return opError(op, ErrSessionNotReady)
	case Closed:
		return opError(op, ErrSessionClosed)
	}
	return nil
}

func (s *Session) writable(op string) error {
	if err := s.readable(op); err != nil {
		return err
	}
	if s.state == Finished || s.finalized {
		return opError(op, ErrAlreadyFinished)
	}
	if s.failed != nil {
		return s.failed
	}
	return nil
}

// Run executes a complete simulation on a fresh session.
func Run(ctx context.Context, b Binding, input, report, output string, opts ...Option) error {
	return New(b, input, report, output, opts...).Execute(ctx)
}
