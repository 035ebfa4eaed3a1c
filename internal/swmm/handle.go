package swmm

// noCopy makes `go vet` flag copies of the struct that embeds it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// handle is the exclusively owned engine resource behind a session. It is
// only ever held by pointer and released at most once.
type handle struct {
	_ noCopy

	b        Binding
	started  bool
	ended    bool
	reported bool
	released bool
}

// acquire opens a project. On failure the binding is closed again so that
// no partially opened files survive, and no handle is returned.
func acquire(b Binding, input, report, output string) (*handle, error) {
	h := &handle{b: b}
	if err := h.check(b.Open(input, report, output)); err != nil {
		b.Close()
		return nil, err
	}
	return h, nil
}

func (h *handle) check(code int) error {
	if code == CodeOK {
		return nil
	}
	return Translate(code, h.b.ErrorMessage(code))
}

func (h *handle) start(save bool) error {
	if err := h.check(h.b.Start(save)); err != nil {
		return err
	}
	h.started = true
	return nil
}

func (h *handle) step() (float64, error) {
	elapsed, code := h.b.Step()
	return elapsed, h.check(code)
}

// end stops a started run and writes the report. Repeated calls are no-ops.
func (h *handle) end() error {
	if h.started && !h.ended {
		h.ended = true
		if err := h.check(h.b.End()); err != nil {
			return err
		}
	}
	if h.started && !h.reported {
		h.reported = true
		return h.check(h.b.Report())
	}
	return nil
}

// release frees the native project regardless of earlier failures.
func (h *handle) release() error {
	if h == nil || h.released {
		return nil
	}
	h.released = true
	var err error
	if h.started && !h.ended {
		h.ended = true
		err = h.check(h.b.End())
	}
	if cerr := h.check(h.b.Close()); err == nil {
		err = cerr
	}
	return err
}
