// Package lumped is an in-process reference engine for the swmm control
// layer. It reads a YAML project, steps a lumped rainfall/runoff balance
// with lagged link routing, writes a plain-text report and saves reporting
// period results to a SQLite file.
package lumped

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/timecodec"
)

// Version is the engine build number reported through the binding.
const Version = 52003

// Engine implements swmm.Binding. It holds one project at a time and is not
// safe for concurrent use.
type Engine struct {
	model  *Model
	units  units
	input  string
	report string
	output string

	opened, started, ended bool
	save                   bool
	hotStart               *hotState

	start, end, reportStart float64
	routeStep               float64
	reportStep              int
	noReport                bool

	elapsed    float64
	total      float64
	steps      int
	nextReport float64
	period     int
	warnings   int

	gages []gageState
	subs  []subState
	nodes []nodeState
	links []linkState
	mass  massBalance

	rpt     *os.File
	results *resultWriter
}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Open(input, report, output string) int {
	if e.opened {
		return swmm.CodeNotClosed
	}
	if sameFile(input, report) || sameFile(input, output) || sameFile(report, output) {
		return swmm.CodeFileNames
	}

	m, err := LoadModel(input)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return swmm.CodeInpFile
		}
		if code := e.openReport(report); code != swmm.CodeOK {
			return code
		}
		if e.rpt != nil {
			writeInputError(e.rpt, err)
		}
		return swmm.CodeInputErrors
	}
	if code := e.openReport(report); code != swmm.CodeOK {
		return code
	}
	if output != "" {
		w, err := createResults(output)
		if err != nil {
			return swmm.CodeOutFile
		}
		e.results = w
	}

	e.model = m
	e.units = unitsFor(m.Options.FlowUnits)
	e.input, e.report, e.output = input, report, output
	start, end, rs := m.period()
	e.start = timecodec.Encode(start)
	e.end = timecodec.Encode(end)
	e.reportStart = timecodec.Encode(rs)
	e.total = end.Sub(start).Seconds()
	e.routeStep = m.Options.RouteStep
	e.reportStep = m.Options.ReportStep
	e.build()
	e.opened = true
	return swmm.CodeOK
}

func (e *Engine) openReport(path string) int {
	if path == "" {
		return swmm.CodeOK
	}
	f, err := os.Create(path)
	if err != nil {
		return swmm.CodeRptFile
	}
	e.rpt = f
	return swmm.CodeOK
}

func sameFile(a, b string) bool {
	return a != "" && b != "" && filepath.Clean(a) == filepath.Clean(b)
}

// build creates run state from the model definition.
func (e *Engine) build() {
	m := e.model
	series := names(m.Series, func(s Series) string { return s.Name })
	gages := names(m.Gages, func(g Gage) string { return g.Name })
	nodes := names(m.Nodes, func(n Node) string { return n.Name })

	e.gages = make([]gageState, len(m.Gages))
	for i, g := range m.Gages {
		e.gages[i] = gageState{def: g, api: -1}
		if j := indexOf(series, g.Series); j >= 0 {
			e.gages[i].series = &m.Series[j]
		}
	}
	e.subs = make([]subState, len(m.Subcatchments))
	for i, s := range m.Subcatchments {
		e.subs[i] = subState{def: s, gage: indexOf(gages, s.Gage), outlet: indexOf(nodes, s.Outlet)}
	}
	e.nodes = make([]nodeState, len(m.Nodes))
	for i, n := range m.Nodes {
		e.nodes[i] = nodeState{def: n, typ: nodeTypes[strings.ToLower(n.Type)]}
	}
	e.links = make([]linkState, len(m.Links))
	for i, l := range m.Links {
		from, to := indexOf(nodes, l.From), indexOf(nodes, l.To)
		e.links[i] = linkState{def: l, typ: linkTypes[strings.ToLower(l.Type)], from: from, to: to, setting: 1}
		e.nodes[from].out = append(e.nodes[from].out, i)
	}
}

func (e *Engine) Start(save bool) int {
	if !e.opened {
		return swmm.CodeNotOpen
	}
	if e.started && !e.ended {
		return swmm.CodeAPINotEnded
	}
	e.save = save
	e.started, e.ended = true, false
	e.elapsed, e.steps, e.period = 0, 0, 0
	e.nextReport = math.Max((e.reportStart-e.start)*timecodec.SecondsPerDay, 0) + float64(e.reportStep)
	e.mass = massBalance{}

	for i := range e.gages {
		e.gages[i].update(0)
	}
	for i := range e.subs {
		s := &e.subs[i]
		s.depth, s.runoff, s.totalRain, s.totalRunoff, s.peakRunoff = 0, 0, 0, 0, 0
	}
	for i := range e.nodes {
		n := &e.nodes[i]
		n.depth = n.def.InitDepth
		n.maxDepth, n.maxHead = n.depth, n.head()
		n.flooded = false
	}
	for i := range e.links {
		l := &e.links[i]
		l.flow = l.def.InitFlow / e.units.flow
		l.transit = l.flow * e.routeStep
		l.maxFlow, l.maxVelocity, l.timeOpen, l.timeClosed = 0, 0, 0, 0
	}
	if h := e.hotStart; h != nil {
		h.apply(e)
	}
	e.mass.initStorage = e.storage()
	e.mass.initTransit = e.transit()
	if e.routeStep > float64(e.reportStep) {
		e.warnings++
	}

	if e.results != nil && e.save {
		if err := e.results.begin(e); err != nil {
			return swmm.CodeOutWrite
		}
	}
	return swmm.CodeOK
}

func (e *Engine) Step() (float64, int) {
	if !e.opened {
		return 0, swmm.CodeAPINotOpen
	}
	if !e.started || e.ended {
		return 0, swmm.CodeAPINotStarted
	}
	if e.elapsed >= e.total {
		return 0, swmm.CodeOK
	}

	dt := math.Min(e.routeStep, e.total-e.elapsed)
	e.advance(dt, (e.elapsed+dt)/3600)
	e.elapsed += dt
	e.steps++

	for e.nextReport <= e.elapsed+1e-6 && e.nextReport <= e.total+1e-6 {
		if code := e.savePeriod(); code != swmm.CodeOK {
			return 0, code
		}
		e.nextReport += float64(e.reportStep)
	}

	if e.elapsed < e.total {
		return e.elapsed / timecodec.SecondsPerDay, swmm.CodeOK
	}
	return 0, swmm.CodeOK
}

func (e *Engine) savePeriod() int {
	e.period++
	if e.results == nil || !e.save {
		return swmm.CodeOK
	}
	if err := e.results.savePeriod(e.period, e.start+e.elapsed/timecodec.SecondsPerDay, e.snapshot()); err != nil {
		return swmm.CodeOutWrite
	}
	return swmm.CodeOK
}

func (e *Engine) End() int {
	if !e.opened {
		return swmm.CodeNotOpen
	}
	if !e.started {
		return swmm.CodeAPINotStarted
	}
	e.ended = true
	e.mass.finalStorage = e.storage()
	e.mass.finalTransit = e.transit()
	if e.results != nil && e.save {
		if err := e.results.finish(e.massBalance()); err != nil {
			return swmm.CodeOutWrite
		}
	}
	return swmm.CodeOK
}

func (e *Engine) Report() int {
	if !e.opened {
		return swmm.CodeNotOpen
	}
	if !e.ended {
		return swmm.CodeAPINotEnded
	}
	if e.rpt == nil || e.noReport {
		return swmm.CodeOK
	}
	if err := writeReport(e.rpt, e); err != nil {
		return swmm.CodeRptFile
	}
	return swmm.CodeOK
}

// Close releases files and forgets the project. It may be called any
// number of times.
func (e *Engine) Close() int {
	if e.rpt != nil {
		e.rpt.Close()
		e.rpt = nil
	}
	if e.results != nil {
		e.results.close()
		e.results = nil
	}
	e.opened, e.started, e.ended = false, false, false
	e.model = nil
	e.hotStart = nil
	return swmm.CodeOK
}

// WriteLine appends line to the report file ahead of the summary sections.
func (e *Engine) WriteLine(line string) {
	if !e.opened || e.rpt == nil {
		return
	}
	fmt.Fprintf(e.rpt, "  %s\n", line)
}

func (e *Engine) ErrorMessage(code int) string {
	return swmm.CodeMessage(code)
}

func (e *Engine) Version() int  { return Version }
func (e *Engine) Warnings() int { return e.warnings }

func (e *Engine) massBalance() swmm.MassBalance {
	return swmm.MassBalance{Runoff: e.mass.runoffError(), Flow: e.mass.flowError()}
}

func (e *Engine) MassBalance() (float64, float64, float64, int) {
	if !e.opened {
		return 0, 0, 0, swmm.CodeAPINotOpen
	}
	if !e.ended {
		return 0, 0, 0, swmm.CodeAPINotEnded
	}
	mb := e.massBalance()
	return mb.Runoff, mb.Flow, mb.Quality, swmm.CodeOK
}

// Count reports the number of objects of kind. System and unknown tags
// are rejected.
func (e *Engine) Count(kind int) (int, int) {
	if !e.opened {
		return 0, swmm.CodeAPINotOpen
	}
	n, ok := e.count(swmm.ObjectKind(kind))
	if !ok {
		return 0, swmm.CodeAPIObjType
	}
	return n, swmm.CodeOK
}

func (e *Engine) Name(kind, index int) (string, int) {
	if !e.opened {
		return "", swmm.CodeAPINotOpen
	}
	list, ok := e.objectNames(swmm.ObjectKind(kind))
	if !ok {
		return "", swmm.CodeAPIObjType
	}
	if index < 0 || index >= len(list) {
		return "", swmm.CodeAPIObjIndex
	}
	return list[index], swmm.CodeOK
}

// Index returns -1 without an error code when name is not found.
func (e *Engine) Index(kind int, name string) (int, int) {
	if !e.opened {
		return -1, swmm.CodeAPINotOpen
	}
	list, ok := e.objectNames(swmm.ObjectKind(kind))
	if !ok {
		return -1, swmm.CodeAPIObjType
	}
	return indexOf(list, name), swmm.CodeOK
}

func (e *Engine) count(kind swmm.ObjectKind) (int, bool) {
	list, ok := e.objectNames(kind)
	return len(list), ok
}

func (e *Engine) objectNames(kind swmm.ObjectKind) ([]string, bool) {
	m := e.model
	named := func(list []Named) []string { return names(list, func(n Named) string { return n.Name }) }
	switch kind {
	case swmm.Gage:
		return names(m.Gages, func(g Gage) string { return g.Name }), true
	case swmm.Subcatch:
		return names(m.Subcatchments, func(s Subcatchment) string { return s.Name }), true
	case swmm.Node:
		return names(m.Nodes, func(n Node) string { return n.Name }), true
	case swmm.Link:
		return names(m.Links, func(l Link) string { return l.Name }), true
	case swmm.Pollutant:
		return named(m.Pollutants), true
	case swmm.LandUse:
		return named(m.LandUses), true
	case swmm.TimePattern:
		return named(m.Patterns), true
	case swmm.Curve:
		return named(m.Curves), true
	case swmm.TimeSeries:
		return names(m.Series, func(s Series) string { return s.Name }), true
	case swmm.ControlRule:
		return named(m.Controls), true
	case swmm.Transect:
		return named(m.Transects), true
	case swmm.Aquifer:
		return named(m.Aquifers), true
	case swmm.UnitHydrograph:
		return named(m.UnitHydrographs), true
	case swmm.Snowpack:
		return named(m.Snowpacks), true
	case swmm.XSectionShape:
		return named(m.Shapes), true
	case swmm.LIDControl:
		return named(m.LIDs), true
	case swmm.Street:
		return named(m.Streets), true
	case swmm.Inlet:
		return named(m.Inlets), true
	}
	return nil, false
}
