package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/hydrosim/internal/lumped"
	"github.com/san-kum/hydrosim/internal/swmm"
)

// Factory builds a fresh engine binding for one session.
type Factory func() swmm.Binding

// builtin holds the engines compiled into this binary. Optional engines add
// themselves from build-tagged files.
var builtin = map[string]Factory{
	"lumped": func() swmm.Binding { return lumped.New() },
}

type Registry struct {
	engines map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{engines: make(map[string]Factory, len(builtin))}
	for name, fn := range builtin {
		r.engines[name] = fn
	}
	return r
}

func (r *Registry) Register(name string, fn Factory) {
	r.engines[name] = fn
}

func (r *Registry) GetEngine(name string) (swmm.Binding, error) {
	fn, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListEngines() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
