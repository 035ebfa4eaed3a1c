package lumped

import (
	"math"

	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/timecodec"
)

func (e *Engine) Value(kind, prop, index int) (float64, int) {
	if !e.opened {
		return 0, swmm.CodeAPINotOpen
	}
	k, p := swmm.ObjectKind(kind), swmm.Property(prop)
	if k == swmm.System {
		return e.systemValue(p)
	}
	if code := e.checkIndex(k, index); code != swmm.CodeOK {
		return 0, code
	}
	switch k {
	case swmm.Gage:
		return e.gageValue(&e.gages[index], p)
	case swmm.Subcatch:
		return e.subValue(&e.subs[index], p)
	case swmm.Node:
		return e.nodeValue(&e.nodes[index], p)
	case swmm.Link:
		return e.linkValue(&e.links[index], p)
	}
	return 0, swmm.CodeAPIPropType
}

func (e *Engine) checkIndex(kind swmm.ObjectKind, index int) int {
	n, ok := e.count(kind)
	if !ok {
		return swmm.CodeAPIObjType
	}
	if index < 0 || index >= n {
		return swmm.CodeAPIObjIndex
	}
	return swmm.CodeOK
}

func (e *Engine) systemValue(p swmm.Property) (float64, int) {
	switch p {
	case swmm.SystemStartDate:
		return e.start, swmm.CodeOK
	case swmm.SystemCurrentDate:
		return e.start + e.elapsed/timecodec.SecondsPerDay, swmm.CodeOK
	case swmm.SystemElapsedTime:
		return e.elapsed / timecodec.SecondsPerDay, swmm.CodeOK
	case swmm.SystemRouteStep:
		return e.routeStep, swmm.CodeOK
	case swmm.SystemMaxRouteStep:
		return e.model.Options.RouteStep, swmm.CodeOK
	case swmm.SystemReportStep:
		return float64(e.reportStep), swmm.CodeOK
	case swmm.SystemTotalSteps:
		return float64(e.steps), swmm.CodeOK
	case swmm.SystemNoReport:
		return flag(e.noReport), swmm.CodeOK
	case swmm.SystemFlowUnits:
		return float64(flowUnits[e.model.Options.FlowUnits]), swmm.CodeOK
	case swmm.SystemEndDate:
		return e.end, swmm.CodeOK
	case swmm.SystemReportStart:
		return e.reportStart, swmm.CodeOK
	case swmm.SystemUnitSystem:
		return float64(e.units.system), swmm.CodeOK
	}
	return 0, swmm.CodeAPIPropType
}

func (e *Engine) gageValue(g *gageState, p swmm.Property) (float64, int) {
	switch p {
	case swmm.GageRainfall, swmm.GageTotalPrecipitation:
		return g.rainfall, swmm.CodeOK
	case swmm.GageSnowfall:
		return 0, swmm.CodeOK
	}
	return 0, swmm.CodeAPIPropType
}

func (e *Engine) subValue(s *subState, p swmm.Property) (float64, int) {
	switch p {
	case swmm.SubcatchArea:
		return s.def.Area, swmm.CodeOK
	case swmm.SubcatchRainGage:
		return float64(s.gage), swmm.CodeOK
	case swmm.SubcatchRainfall:
		return s.rainfall, swmm.CodeOK
	case swmm.SubcatchEvap:
		return s.evap, swmm.CodeOK
	case swmm.SubcatchInfil:
		return s.infil, swmm.CodeOK
	case swmm.SubcatchRunoff:
		return s.runoff, swmm.CodeOK
	case swmm.SubcatchRptFlag:
		return flag(s.rptFlag), swmm.CodeOK
	case swmm.SubcatchWidth:
		return s.def.Width, swmm.CodeOK
	case swmm.SubcatchSlope:
		return s.def.Slope, swmm.CodeOK
	case swmm.SubcatchCurbLength:
		return s.def.CurbLength, swmm.CodeOK
	case swmm.SubcatchAPIRainfall:
		return s.apiRain, swmm.CodeOK
	case swmm.SubcatchAPISnowfall:
		return s.apiSnow, swmm.CodeOK
	}
	return 0, swmm.CodeAPIPropType
}

func (e *Engine) nodeValue(n *nodeState, p swmm.Property) (float64, int) {
	f := e.units.flow
	switch p {
	case swmm.NodeType:
		return float64(n.typ), swmm.CodeOK
	case swmm.NodeElev:
		return n.def.Invert, swmm.CodeOK
	case swmm.NodeMaxDepth:
		return n.def.MaxDepth, swmm.CodeOK
	case swmm.NodeDepth:
		return n.depth, swmm.CodeOK
	case swmm.NodeHead:
		return n.head(), swmm.CodeOK
	case swmm.NodeVolume:
		return n.volume(e.units), swmm.CodeOK
	case swmm.NodeLatFlow:
		return n.lateral * f, swmm.CodeOK
	case swmm.NodeInflow:
		return n.inflow * f, swmm.CodeOK
	case swmm.NodeOverflow:
		return n.overflow * f, swmm.CodeOK
	case swmm.NodeRptFlag:
		return flag(n.rptFlag), swmm.CodeOK
	case swmm.NodeSurchargeDepth:
		return n.def.Surcharge, swmm.CodeOK
	case swmm.NodePondedArea:
		return n.def.PondedArea, swmm.CodeOK
	case swmm.NodeInitialDepth:
		return n.def.InitDepth, swmm.CodeOK
	}
	return 0, swmm.CodeAPIPropType
}

func (e *Engine) linkValue(l *linkState, p swmm.Property) (float64, int) {
	f := e.units.flow
	switch p {
	case swmm.LinkType:
		return float64(l.typ), swmm.CodeOK
	case swmm.LinkNode1:
		return float64(l.from), swmm.CodeOK
	case swmm.LinkNode2:
		return float64(l.to), swmm.CodeOK
	case swmm.LinkLength:
		return l.def.Length, swmm.CodeOK
	case swmm.LinkSlope:
		return l.slope(e.nodes), swmm.CodeOK
	case swmm.LinkFullDepth:
		return l.def.Diameter, swmm.CodeOK
	case swmm.LinkFullFlow:
		return l.fullFlow(e.nodes, e.units) * f, swmm.CodeOK
	case swmm.LinkSetting:
		return l.setting, swmm.CodeOK
	case swmm.LinkTimeOpen:
		return l.timeOpen, swmm.CodeOK
	case swmm.LinkTimeClosed:
		return l.timeClosed, swmm.CodeOK
	case swmm.LinkFlow:
		return l.flow * f, swmm.CodeOK
	case swmm.LinkDepth:
		return l.depth, swmm.CodeOK
	case swmm.LinkVelocity:
		return l.velocity, swmm.CodeOK
	case swmm.LinkTopWidth:
		return l.topWidth, swmm.CodeOK
	case swmm.LinkRptFlag:
		return flag(l.rptFlag), swmm.CodeOK
	case swmm.LinkOffset1:
		return l.offset1, swmm.CodeOK
	case swmm.LinkOffset2:
		return l.offset2, swmm.CodeOK
	case swmm.LinkInitialFlow:
		return l.def.InitFlow, swmm.CodeOK
	case swmm.LinkFlowLimit:
		return l.def.FlowLimit, swmm.CodeOK
	case swmm.LinkInletLoss:
		return l.def.InletLoss, swmm.CodeOK
	case swmm.LinkOutletLoss:
		return l.def.OutletLoss, swmm.CodeOK
	case swmm.LinkAverageLoss:
		return l.avgLoss, swmm.CodeOK
	case swmm.LinkSeepageRate:
		return l.seepage, swmm.CodeOK
	case swmm.LinkHasFlapGate:
		return flag(l.def.FlapGate), swmm.CodeOK
	}
	return 0, swmm.CodeAPIPropType
}

// SetValue writes a property. Parameters that fix the run's geometry or
// clock are rejected while a simulation is running.
func (e *Engine) SetValue(kind, prop, index int, v float64) int {
	if !e.opened {
		return swmm.CodeAPINotOpen
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return swmm.CodeAPIPropValue
	}
	k, p := swmm.ObjectKind(kind), swmm.Property(prop)
	if k == swmm.System {
		return e.setSystem(p, v)
	}
	if code := e.checkIndex(k, index); code != swmm.CodeOK {
		return code
	}
	switch k {
	case swmm.Gage:
		return e.setGage(&e.gages[index], p, v)
	case swmm.Subcatch:
		return e.setSub(&e.subs[index], p, v)
	case swmm.Node:
		return e.setNode(&e.nodes[index], p, v)
	case swmm.Link:
		return e.setLink(&e.links[index], p, v)
	}
	return swmm.CodeAPIPropType
}

func (e *Engine) running() bool { return e.started && !e.ended }

func (e *Engine) setSystem(p swmm.Property, v float64) int {
	switch p {
	case swmm.SystemRouteStep:
		if e.running() {
			return swmm.CodeAPIIsRunning
		}
		if v <= 0 {
			return swmm.CodeAPIPropValue
		}
		e.routeStep = v
	case swmm.SystemReportStep:
		if e.running() {
			return swmm.CodeAPIIsRunning
		}
		if v < 1 {
			return swmm.CodeAPIPropValue
		}
		e.reportStep = int(v)
	case swmm.SystemNoReport:
		e.noReport = v != 0
	default:
		return swmm.CodeAPIPropType
	}
	return swmm.CodeOK
}

func (e *Engine) setGage(g *gageState, p swmm.Property, v float64) int {
	if p != swmm.GageRainfall {
		return swmm.CodeAPIPropType
	}
	if v < 0 {
		return swmm.CodeAPIPropValue
	}
	g.api = v
	g.rainfall = v
	return swmm.CodeOK
}

func (e *Engine) setSub(s *subState, p swmm.Property, v float64) int {
	if v < 0 {
		return swmm.CodeAPIPropValue
	}
	switch p {
	case swmm.SubcatchArea:
		if e.running() {
			return swmm.CodeAPIIsRunning
		}
		s.def.Area = v
	case swmm.SubcatchRptFlag:
		s.rptFlag = v != 0
	case swmm.SubcatchWidth:
		s.def.Width = v
	case swmm.SubcatchSlope:
		s.def.Slope = v
	case swmm.SubcatchCurbLength:
		s.def.CurbLength = v
	case swmm.SubcatchAPIRainfall:
		s.apiRain = v
	case swmm.SubcatchAPISnowfall:
		s.apiSnow = v
	default:
		return swmm.CodeAPIPropType
	}
	return swmm.CodeOK
}

func (e *Engine) setNode(n *nodeState, p swmm.Property, v float64) int {
	switch p {
	case swmm.NodeElev:
		if e.running() {
			return swmm.CodeAPIIsRunning
		}
		n.def.Invert = v
		return swmm.CodeOK
	case swmm.NodeHead:
		n.depth = math.Max(v-n.def.Invert, 0)
		return swmm.CodeOK
	case swmm.NodeLatFlow:
		n.extra = v / e.units.flow
		return swmm.CodeOK
	}
	if v < 0 {
		return swmm.CodeAPIPropValue
	}
	switch p {
	case swmm.NodeMaxDepth:
		n.def.MaxDepth = v
	case swmm.NodeRptFlag:
		n.rptFlag = v != 0
	case swmm.NodeSurchargeDepth:
		n.def.Surcharge = v
	case swmm.NodePondedArea:
		n.def.PondedArea = v
	case swmm.NodeInitialDepth:
		n.def.InitDepth = v
	default:
		return swmm.CodeAPIPropType
	}
	return swmm.CodeOK
}

func (e *Engine) setLink(l *linkState, p swmm.Property, v float64) int {
	switch p {
	case swmm.LinkOffset1:
		l.offset1 = v
		return swmm.CodeOK
	case swmm.LinkOffset2:
		l.offset2 = v
		return swmm.CodeOK
	case swmm.LinkInitialFlow:
		l.def.InitFlow = v
		return swmm.CodeOK
	}
	if v < 0 {
		return swmm.CodeAPIPropValue
	}
	switch p {
	case swmm.LinkSetting:
		l.setting = math.Min(v, 1)
	case swmm.LinkRptFlag:
		l.rptFlag = v != 0
	case swmm.LinkFlowLimit:
		l.def.FlowLimit = v
	case swmm.LinkInletLoss:
		l.def.InletLoss = v
	case swmm.LinkOutletLoss:
		l.def.OutletLoss = v
	case swmm.LinkAverageLoss:
		l.avgLoss = v
	case swmm.LinkSeepageRate:
		l.seepage = v
	case swmm.LinkHasFlapGate:
		l.def.FlapGate = v != 0
	default:
		return swmm.CodeAPIPropType
	}
	return swmm.CodeOK
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
