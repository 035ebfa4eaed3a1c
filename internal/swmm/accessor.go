package swmm

import (
	"time"

	"github.com/san-kum/hydrosim/internal/timecodec"
)

// Accessor reads and writes object properties through the generic
// (kind, property, index) triple.
type Accessor struct {
	s *Session
}

// Get returns the current value of prop on object index of kind. System
// properties are addressed with index 0.
func (a *Accessor) Get(kind ObjectKind, prop Property, index int) (float64, error) {
	const op = "get"
	if err := a.s.readable(op); err != nil {
		return 0, err
	}
	if _, err := a.resolve(op, kind, prop, index); err != nil {
		return 0, err
	}
	v, code := a.s.h.b.Value(int(kind), int(prop), index)
	if err := a.s.h.check(code); err != nil {
		return 0, propError(op, kind, prop, index, err)
	}
	return v, nil
}

// Set writes value to prop on object index of kind after checking the
// property's access flag and value domain. Flag properties are coerced to
// 0 or 1.
func (a *Accessor) Set(kind ObjectKind, prop Property, index int, value float64) error {
	const op = "set"
	if err := a.s.writable(op); err != nil {
		return err
	}
	d, err := a.resolve(op, kind, prop, index)
	if err != nil {
		return err
	}
	if !d.Writable() {
		return propError(op, kind, prop, index, ErrPropertyNotWritable)
	}
	v, err := d.coerce(value)
	if err != nil {
		return propError(op, kind, prop, index, err)
	}
	if err := a.s.h.check(a.s.h.b.SetValue(int(kind), int(prop), index, v)); err != nil {
		return propError(op, kind, prop, index, err)
	}
	a.s.logger.Debug("property set", "kind", kind, "property", d.Name, "index", index, "value", v)
	return nil
}

// GetTime reads a date-valued property as calendar time.
func (a *Accessor) GetTime(kind ObjectKind, prop Property, index int) (time.Time, error) {
	d, err := Describe(kind, prop)
	if err == nil && d.Type != Date {
		err = ErrInvalidPropertyKind
	}
	if err != nil {
		return time.Time{}, propError("get", kind, prop, index, err)
	}
	v, err := a.Get(kind, prop, index)
	if err != nil {
		return time.Time{}, err
	}
	return timecodec.Decode(v), nil
}

// GetByName is Get with the object addressed by name.
func (a *Accessor) GetByName(kind ObjectKind, prop Property, name string) (float64, error) {
	if err := a.s.readable("get"); err != nil {
		return 0, err
	}
	idx, err := a.s.registry.indexOf("get", kind, name)
	if err != nil {
		return 0, err
	}
	return a.Get(kind, prop, idx)
}

// SetByName is Set with the object addressed by name.
func (a *Accessor) SetByName(kind ObjectKind, prop Property, name string, value float64) error {
	if err := a.s.writable("set"); err != nil {
		return err
	}
	idx, err := a.s.registry.indexOf("set", kind, name)
	if err != nil {
		return err
	}
	return a.Set(kind, prop, idx, value)
}

func (a *Accessor) resolve(op string, kind ObjectKind, prop Property, index int) (Descriptor, error) {
	d, err := Describe(kind, prop)
	if err != nil {
		return Descriptor{}, propError(op, kind, prop, index, err)
	}
	if kind == System {
		if index != 0 {
			return Descriptor{}, propError(op, kind, prop, index, ErrIndexOutOfRange)
		}
		return d, nil
	}
	n, err := a.s.registry.count(op, kind)
	if err != nil {
		return Descriptor{}, err
	}
	if index < 0 || index >= n {
		return Descriptor{}, propError(op, kind, prop, index, ErrIndexOutOfRange)
	}
	return d, nil
}
