package swmm

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Property is the engine's integer tag for an object attribute. A tag is
// only meaningful together with the ObjectKind it belongs to.
type Property int

const (
	GageRainfall           Property = 100
	GageSnowfall           Property = 101
	GageTotalPrecipitation Property = 102
)

const (
	SubcatchArea        Property = 200
	SubcatchRainGage    Property = 201
	SubcatchRainfall    Property = 202
	SubcatchEvap        Property = 203
	SubcatchInfil       Property = 204
	SubcatchRunoff      Property = 205
	SubcatchRptFlag     Property = 206
	SubcatchWidth       Property = 207
	SubcatchSlope       Property = 208
	SubcatchCurbLength  Property = 209
	SubcatchAPIRainfall Property = 210
	SubcatchAPISnowfall Property = 211
)

const (
	NodeType           Property = 300
	NodeElev           Property = 301
	NodeMaxDepth       Property = 302
	NodeDepth          Property = 303
	NodeHead           Property = 304
	NodeVolume         Property = 305
	NodeLatFlow        Property = 306
	NodeInflow         Property = 307
	NodeOverflow       Property = 308
	NodeRptFlag        Property = 309
	NodeSurchargeDepth Property = 310
	NodePondedArea     Property = 311
	NodeInitialDepth   Property = 312
)

const (
	LinkType        Property = 400
	LinkNode1       Property = 401
	LinkNode2       Property = 402
	LinkLength      Property = 403
	LinkSlope       Property = 404
	LinkFullDepth   Property = 405
	LinkFullFlow    Property = 406
	LinkSetting     Property = 407
	LinkTimeOpen    Property = 408
	LinkTimeClosed  Property = 409
	LinkFlow        Property = 410
	LinkDepth       Property = 411
	LinkVelocity    Property = 412
	LinkTopWidth    Property = 413
	LinkRptFlag     Property = 414
	LinkOffset1     Property = 415
	LinkOffset2     Property = 416
	LinkInitialFlow Property = 417
	LinkFlowLimit   Property = 418
	LinkInletLoss   Property = 419
	LinkOutletLoss  Property = 420
	LinkAverageLoss Property = 421
	LinkSeepageRate Property = 422
	LinkHasFlapGate Property = 423
)

const (
	SystemStartDate    Property = 0
	SystemCurrentDate  Property = 1
	SystemElapsedTime  Property = 2
	SystemRouteStep    Property = 3
	SystemMaxRouteStep Property = 4
	SystemReportStep   Property = 5
	SystemTotalSteps   Property = 6
	SystemNoReport     Property = 7
	SystemFlowUnits    Property = 8
	SystemEndDate      Property = 9
	SystemReportStart  Property = 10
	SystemUnitSystem   Property = 11
)

type Access uint8

const (
	ReadOnly Access = iota
	ReadWrite
)

func (a Access) String() string {
	if a == ReadWrite {
		return "rw"
	}
	return "ro"
}

// ValueType drives coercion on write and interpretation on read.
type ValueType uint8

const (
	Real ValueType = iota
	Integer
	Flag
	Date
	// Ref is an index into another kind's object list.
	Ref
)

type Unit string

const (
	UnitNone     Unit = ""
	UnitRainRate Unit = "in/hr|mm/hr"
	UnitEvapRate Unit = "in/day|mm/day"
	UnitLength   Unit = "ft|m"
	UnitArea     Unit = "ac|ha"
	UnitFlow     Unit = "flow units"
	UnitVolume   Unit = "ft3|m3"
	UnitDays     Unit = "days"
	UnitHours    Unit = "hours"
	UnitSeconds  Unit = "sec"
	UnitVelocity Unit = "ft/s|m/s"
)

// Descriptor declares the value domain of one (kind, property) pair.
type Descriptor struct {
	Kind     ObjectKind
	Property Property
	Name     string
	Type     ValueType
	Unit     Unit
	Access   Access
	// Min is the smallest accepted write; -Inf when unbounded.
	Min float64
}

func (d Descriptor) Writable() bool { return d.Access == ReadWrite }

type propKey struct {
	kind ObjectKind
	prop Property
}

var (
	unbounded = math.Inf(-1)
	propTable = map[propKey]Descriptor{}
	propNames = map[ObjectKind]map[string]Property{}
)

func declare(kind ObjectKind, prop Property, name string, typ ValueType, unit Unit, access Access, min float64) {
	propTable[propKey{kind, prop}] = Descriptor{
		Kind: kind, Property: prop, Name: name, Type: typ, Unit: unit, Access: access, Min: min,
	}
	if propNames[kind] == nil {
		propNames[kind] = map[string]Property{}
	}
	propNames[kind][name] = prop
}

func init() {
	declare(Gage, GageRainfall, "rainfall", Real, UnitRainRate, ReadWrite, 0)
	declare(Gage, GageSnowfall, "snowfall", Real, UnitRainRate, ReadOnly, 0)
	declare(Gage, GageTotalPrecipitation, "total_precipitation", Real, UnitRainRate, ReadOnly, 0)

	declare(Subcatch, SubcatchArea, "area", Real, UnitArea, ReadWrite, 0)
	declare(Subcatch, SubcatchRainGage, "rain_gage", Ref, UnitNone, ReadOnly, 0)
	declare(Subcatch, SubcatchRainfall, "rainfall", Real, UnitRainRate, ReadOnly, 0)
	declare(Subcatch, SubcatchEvap, "evaporation", Real, UnitEvapRate, ReadOnly, 0)
	declare(Subcatch, SubcatchInfil, "infiltration", Real, UnitRainRate, ReadOnly, 0)
	declare(Subcatch, SubcatchRunoff, "runoff", Real, UnitFlow, ReadOnly, 0)
	declare(Subcatch, SubcatchRptFlag, "report_flag", Flag, UnitNone, ReadWrite, 0)
	declare(Subcatch, SubcatchWidth, "width", Real, UnitLength, ReadWrite, 0)
	declare(Subcatch, SubcatchSlope, "slope", Real, UnitNone, ReadWrite, 0)
	declare(Subcatch, SubcatchCurbLength, "curb_length", Real, UnitLength, ReadWrite, 0)
	declare(Subcatch, SubcatchAPIRainfall, "api_rainfall", Real, UnitRainRate, ReadWrite, 0)
	declare(Subcatch, SubcatchAPISnowfall, "api_snowfall", Real, UnitRainRate, ReadWrite, 0)

	declare(Node, NodeType, "type", Integer, UnitNone, ReadOnly, 0)
	declare(Node, NodeElev, "invert_elevation", Real, UnitLength, ReadWrite, unbounded)
	declare(Node, NodeMaxDepth, "max_depth", Real, UnitLength, ReadWrite, 0)
	declare(Node, NodeDepth, "depth", Real, UnitLength, ReadOnly, 0)
	declare(Node, NodeHead, "head", Real, UnitLength, ReadWrite, unbounded)
	declare(Node, NodeVolume, "volume", Real, UnitVolume, ReadOnly, 0)
	declare(Node, NodeLatFlow, "lateral_inflow", Real, UnitFlow, ReadWrite, unbounded)
	declare(Node, NodeInflow, "total_inflow", Real, UnitFlow, ReadOnly, unbounded)
	declare(Node, NodeOverflow, "overflow", Real, UnitFlow, ReadOnly, 0)
	declare(Node, NodeRptFlag, "report_flag", Flag, UnitNone, ReadWrite, 0)
	declare(Node, NodeSurchargeDepth, "surcharge_depth", Real, UnitLength, ReadWrite, 0)
	declare(Node, NodePondedArea, "ponded_area", Real, UnitArea, ReadWrite, 0)
	declare(Node, NodeInitialDepth, "initial_depth", Real, UnitLength, ReadWrite, 0)

	declare(Link, LinkType, "type", Integer, UnitNone, ReadOnly, 0)
	declare(Link, LinkNode1, "inlet_node", Ref, UnitNone, ReadOnly, 0)
	declare(Link, LinkNode2, "outlet_node", Ref, UnitNone, ReadOnly, 0)
	declare(Link, LinkLength, "length", Real, UnitLength, ReadOnly, 0)
	declare(Link, LinkSlope, "slope", Real, UnitNone, ReadOnly, unbounded)
	declare(Link, LinkFullDepth, "full_depth", Real, UnitLength, ReadOnly, 0)
	declare(Link, LinkFullFlow, "full_flow", Real, UnitFlow, ReadOnly, 0)
	declare(Link, LinkSetting, "setting", Real, UnitNone, ReadWrite, 0)
	declare(Link, LinkTimeOpen, "time_open", Real, UnitHours, ReadOnly, 0)
	declare(Link, LinkTimeClosed, "time_closed", Real, UnitHours, ReadOnly, 0)
	declare(Link, LinkFlow, "flow", Real, UnitFlow, ReadOnly, unbounded)
	declare(Link, LinkDepth, "depth", Real, UnitLength, ReadOnly, 0)
	declare(Link, LinkVelocity, "velocity", Real, UnitVelocity, ReadOnly, unbounded)
	declare(Link, LinkTopWidth, "top_width", Real, UnitLength, ReadOnly, 0)
	declare(Link, LinkRptFlag, "report_flag", Flag, UnitNone, ReadWrite, 0)
	declare(Link, LinkOffset1, "inlet_offset", Real, UnitLength, ReadWrite, unbounded)
	declare(Link, LinkOffset2, "outlet_offset", Real, UnitLength, ReadWrite, unbounded)
	declare(Link, LinkInitialFlow, "initial_flow", Real, UnitFlow, ReadWrite, unbounded)
	declare(Link, LinkFlowLimit, "flow_limit", Real, UnitFlow, ReadWrite, 0)
	declare(Link, LinkInletLoss, "inlet_loss", Real, UnitNone, ReadWrite, 0)
	declare(Link, LinkOutletLoss, "outlet_loss", Real, UnitNone, ReadWrite, 0)
	declare(Link, LinkAverageLoss, "average_loss", Real, UnitNone, ReadWrite, 0)
	declare(Link, LinkSeepageRate, "seepage_rate", Real, UnitRainRate, ReadWrite, 0)
	declare(Link, LinkHasFlapGate, "flap_gate", Flag, UnitNone, ReadWrite, 0)

	declare(System, SystemStartDate, "start_date", Date, UnitDays, ReadOnly, unbounded)
	declare(System, SystemCurrentDate, "current_date", Date, UnitDays, ReadOnly, unbounded)
	declare(System, SystemElapsedTime, "elapsed_time", Real, UnitDays, ReadOnly, 0)
	declare(System, SystemRouteStep, "route_step", Real, UnitSeconds, ReadWrite, 0)
	declare(System, SystemMaxRouteStep, "max_route_step", Real, UnitSeconds, ReadOnly, 0)
	declare(System, SystemReportStep, "report_step", Integer, UnitSeconds, ReadWrite, 1)
	declare(System, SystemTotalSteps, "total_steps", Integer, UnitNone, ReadOnly, 0)
	declare(System, SystemNoReport, "no_report", Flag, UnitNone, ReadWrite, 0)
	declare(System, SystemFlowUnits, "flow_units", Integer, UnitNone, ReadOnly, 0)
	declare(System, SystemEndDate, "end_date", Date, UnitDays, ReadOnly, unbounded)
	declare(System, SystemReportStart, "report_start", Date, UnitDays, ReadOnly, unbounded)
	declare(System, SystemUnitSystem, "unit_system", Integer, UnitNone, ReadOnly, 0)
}

// Describe returns the descriptor of prop on kind. It fails with
// ErrInvalidObjectKind for unknown kinds and ErrInvalidPropertyKind when prop
// is not declared for kind.
func Describe(kind ObjectKind, prop Property) (Descriptor, error) {
	if !kind.Known() {
		return Descriptor{}, ErrInvalidObjectKind
	}
	d, ok := propTable[propKey{kind, prop}]
	if !ok {
		return Descriptor{}, ErrInvalidPropertyKind
	}
	return d, nil
}

// Properties lists the descriptors declared for kind in tag order.
func Properties(kind ObjectKind) []Descriptor {
	var out []Descriptor
	for k, d := range propTable {
		if k.kind == kind {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Property < out[j].Property })
	return out
}

// LookupProperty resolves a property by its snake_case name within kind.
func LookupProperty(kind ObjectKind, name string) (Property, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := propNames[kind][key]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %s has no property %q", ErrInvalidPropertyKind, kind, name)
}

// Name returns the property's name within kind, or its numeric tag when the
// pair is not declared.
func (p Property) Name(kind ObjectKind) string {
	if d, ok := propTable[propKey{kind, p}]; ok {
		return d.Name
	}
	return fmt.Sprintf("prop(%d)", int(p))
}

// coerce validates v against the descriptor and normalizes it for the engine.
func (d Descriptor) coerce(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidPropertyValue
	}
	switch d.Type {
	case Flag:
		if v < 0 {
			return 0, ErrInvalidPropertyValue
		}
		if v > 0 {
			return 1, nil
		}
		return 0, nil
	case Integer, Ref:
		if v != math.Trunc(v) {
			return 0, ErrInvalidPropertyValue
		}
	}
	if v < d.Min {
		return 0, ErrInvalidPropertyValue
	}
	return v, nil
}
