package swmm

// Registry resolves object kinds, names and indices for an initialized
// session.
type Registry struct {
	s *Session
}

// Count returns the number of objects of kind in the loaded model.
func (r *Registry) Count(kind ObjectKind) (int, error) {
	const op = "count"
	if err := r.s.readable(op); err != nil {
		return 0, err
	}
	return r.count(op, kind)
}

func (r *Registry) count(op string, kind ObjectKind) (int, error) {
	if !kind.Addressable() {
		return 0, kindError(op, kind, ErrInvalidObjectKind)
	}
	n, code := r.s.h.b.Count(int(kind))
	if err := r.s.h.check(code); err != nil {
		return 0, kindError(op, kind, err)
	}
	return n, nil
}

// Names returns object names of kind in engine order.
func (r *Registry) Names(kind ObjectKind) ([]string, error) {
	const op = "names"
	if err := r.s.readable(op); err != nil {
		return nil, err
	}
	n, err := r.count(op, kind)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, code := r.s.h.b.Name(int(kind), i)
		if err := r.s.h.check(code); err != nil {
			e := kindError(op, kind, err)
			e.Index = i
			return nil, e
		}
		names = append(names, name)
	}
	return names, nil
}

// IndexOf resolves name to its zero-based position within kind.
func (r *Registry) IndexOf(kind ObjectKind, name string) (int, error) {
	const op = "index"
	if err := r.s.readable(op); err != nil {
		return -1, err
	}
	return r.indexOf(op, kind, name)
}

func (r *Registry) indexOf(op string, kind ObjectKind, name string) (int, error) {
	if !kind.Addressable() {
		return -1, kindError(op, kind, ErrInvalidObjectKind)
	}
	idx, code := r.s.h.b.Index(int(kind), name)
	err := r.s.h.check(code)
	if err == nil && idx < 0 {
		err = ErrObjectNotFound
	}
	if err != nil {
		e := kindError(op, kind, err)
		e.Name = name
		return -1, e
	}
	return idx, nil
}

// Counts returns the object count of every addressable kind.
func (r *Registry) Counts() (map[ObjectKind]int, error) {
	const op = "counts"
	if err := r.s.readable(op); err != nil {
		return nil, err
	}
	out := make(map[ObjectKind]int, len(objectKinds))
	for _, k := range objectKinds {
		n, err := r.count(op, k)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}
