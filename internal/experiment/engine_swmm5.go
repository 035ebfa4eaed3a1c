//go:build swmm5

package experiment

import (
	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/swmm5"
)

func init() {
	builtin["swmm5"] = func() swmm.Binding { return swmm5.New() }
}
