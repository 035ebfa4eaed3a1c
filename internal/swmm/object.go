package swmm

import (
	"fmt"
	"strings"
)

// ObjectKind is the engine's integer tag for a category of simulation object.
type ObjectKind int

const (
	Gage           ObjectKind = 0
	Subcatch       ObjectKind = 1
	Node           ObjectKind = 2
	Link           ObjectKind = 3
	Pollutant      ObjectKind = 4
	LandUse        ObjectKind = 5
	TimePattern    ObjectKind = 6
	Curve          ObjectKind = 7
	TimeSeries     ObjectKind = 8
	ControlRule    ObjectKind = 9
	Transect       ObjectKind = 10
	Aquifer        ObjectKind = 11
	UnitHydrograph ObjectKind = 12
	Snowpack       ObjectKind = 13
	XSectionShape  ObjectKind = 14
	LIDControl     ObjectKind = 15
	Street         ObjectKind = 16
	Inlet          ObjectKind = 17

	// System holds project-wide values. It has properties but no instances,
	// so it is rejected by count and name queries.
	System ObjectKind = 100
)

var objectKinds = []ObjectKind{
	Gage, Subcatch, Node, Link, Pollutant, LandUse, TimePattern, Curve,
	TimeSeries, ControlRule, Transect, Aquifer, UnitHydrograph, Snowpack,
	XSectionShape, LIDControl, Street, Inlet,
}

var objectKindNames = map[ObjectKind]string{
	Gage:           "gage",
	Subcatch:       "subcatch",
	Node:           "node",
	Link:           "link",
	Pollutant:      "pollutant",
	LandUse:        "landuse",
	TimePattern:    "pattern",
	Curve:          "curve",
	TimeSeries:     "timeseries",
	ControlRule:    "control",
	Transect:       "transect",
	Aquifer:        "aquifer",
	UnitHydrograph: "unithyd",
	Snowpack:       "snowpack",
	XSectionShape:  "shape",
	LIDControl:     "lid",
	Street:         "street",
	Inlet:          "inlet",
	System:         "system",
}

var objectKindAliases = map[string]ObjectKind{
	"raingage":     Gage,
	"rain_gage":    Gage,
	"subcatchment": Subcatch,
	"pollut":       Pollutant,
	"land_use":     LandUse,
	"tseries":      TimeSeries,
	"time_series":  TimeSeries,
	"snowmelt":     Snowpack,
}

func (k ObjectKind) String() string {
	if name, ok := objectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Known reports whether k is in the tag table, System included.
func (k ObjectKind) Known() bool {
	_, ok := objectKindNames[k]
	return ok
}

// Addressable reports whether k has countable, named instances.
func (k ObjectKind) Addressable() bool {
	return k != System && k.Known()
}

// ObjectKinds lists every addressable kind in tag order.
func ObjectKinds() []ObjectKind {
	out := make([]ObjectKind, len(objectKinds))
	copy(out, objectKinds)
	return out
}

func ParseObjectKind(s string) (ObjectKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for k, name := range objectKindNames {
		if name == key {
			return k, nil
		}
	}
	if k, ok := objectKindAliases[key]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidObjectKind, s)
}

func (k ObjectKind) MarshalText() ([]byte, error) {
	if !k.Known() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidObjectKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *ObjectKind) UnmarshalText(b []byte) error {
	v, err := ParseObjectKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
