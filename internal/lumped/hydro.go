package lumped

import "math"

// units holds the conversions between project units and the internal
// length/second frame the balance runs in.
type units struct {
	system     int     // 0 US, 1 SI
	flow       float64 // internal flow -> project flow units
	rain       float64 // rain rate -> length per second
	evap       float64 // evaporation rate -> length per second
	depth      float64 // depression storage -> length
	area       float64 // subcatchment area -> square length
	manning    float64
	minSurface float64
}

func unitsFor(flowUnits string) units {
	switch flowUnits {
	case "CMS", "LPS", "MLD":
		u := units{system: 1, rain: 1 / 3.6e6, evap: 1 / 8.64e7, depth: 1e-3, area: 1e4, manning: 1, minSurface: 1.167}
		u.flow = map[string]float64{"CMS": 1, "LPS": 1000, "MLD": 86.4}[flowUnits]
		return u
	}
	u := units{system: 0, rain: 1 / 43200.0, evap: 1 / 1036800.0, depth: 1 / 12.0, area: 43560, manning: 1.486, minSurface: 12.566}
	u.flow = map[string]float64{"CFS": 1, "GPM": 448.831, "MGD": 0.64632}[flowUnits]
	return u
}

var nodeTypes = map[string]int{"junction": 0, "outfall": 1, "storage": 2, "divider": 3}
var linkTypes = map[string]int{"conduit": 0, "pump": 1, "orifice": 2, "weir": 3, "outlet": 4}

type gageState struct {
	def      Gage
	series   *Series
	api      float64 // negative when no override is active
	rainfall float64
}

func (g *gageState) update(hours float64) {
	switch {
	case g.api >= 0:
		g.rainfall = g.api
	case g.series != nil:
		g.rainfall = g.series.At(hours)
	default:
		g.rainfall = g.def.Rainfall
	}
}

type subState struct {
	def     Subcatchment
	gage    int
	outlet  int
	rptFlag bool

	apiRain, apiSnow float64

	depth                  float64
	rainfall, evap, infil  float64
	runoff                 float64
	totalRain, totalRunoff float64
	peakRunoff             float64
}

type nodeState struct {
	def     Node
	typ     int
	rptFlag bool
	out     []int
	extra   float64 // externally imposed lateral inflow

	lateral, inflow, overflow float64
	depth                     float64
	maxDepth, maxHead         float64
	flooded                   bool
}

func (n *nodeState) head() float64 { return n.def.Invert + n.depth }

func (n *nodeState) volume(u units) float64 {
	area := n.def.PondedArea * u.area
	if area <= 0 {
		area = u.minSurface
	}
	return n.depth * area
}

type linkState struct {
	def      Link
	typ      int
	from, to int
	rptFlag  bool
	setting  float64
	offset1  float64
	offset2  float64
	seepage  float64
	avgLoss  float64

	flow, depth, velocity, topWidth float64
	transit                         float64 // volume delivered to the outlet node next step
	timeOpen, timeClosed            float64
	maxFlow, maxVelocity            float64
}

func (l *linkState) slope(nodes []nodeState) float64 {
	if l.def.Length <= 0 {
		return 0
	}
	up := nodes[l.from].def.Invert + l.offset1
	down := nodes[l.to].def.Invert + l.offset2
	return (up - down) / l.def.Length
}

func (l *linkState) fullArea() float64 {
	return math.Pi * l.def.Diameter * l.def.Diameter / 4
}

// fullFlow is Manning's capacity of a circular section running full.
func (l *linkState) fullFlow(nodes []nodeState, u units) float64 {
	d := l.def.Diameter
	if d <= 0 {
		return 0
	}
	n := l.def.Roughness
	if n <= 0 {
		n = 0.013
	}
	s := math.Max(math.Abs(l.slope(nodes)), 1e-4)
	return u.manning / n * l.fullArea() * math.Pow(d/4, 2.0/3.0) * math.Sqrt(s)
}

// setHydraulics derives depth, velocity and top width from the flow using a
// power-law fit of the circular normal-depth curve.
func (l *linkState) setHydraulics(full float64) {
	d := l.def.Diameter
	if d <= 0 || full <= 0 || l.flow <= 0 {
		l.depth, l.velocity, l.topWidth = 0, 0, 0
		return
	}
	r := math.Min(l.flow/full, 1)
	l.depth = d * math.Pow(r, 0.6)
	y := l.depth / d
	l.topWidth = 2 * d * math.Sqrt(math.Max(y*(1-y), 0))
	if area := l.fullArea() * y; area > 0 {
		l.velocity = l.flow / area
	}
}

type massBalance struct {
	rain, infil, evap, runoff  float64
	initStorage, finalStorage  float64
	routeIn, outfall, flooding float64
	initTransit, finalTransit  float64
}

func (m massBalance) runoffError() float64 {
	if m.rain <= 0 {
		return 0
	}
	lost := m.infil + m.evap + m.runoff + m.finalStorage - m.initStorage
	return (m.rain - lost) / m.rain * 100
}

func (m massBalance) flowError() float64 {
	in := m.routeIn + m.initTransit
	if in <= 0 {
		return 0
	}
	return (in - m.outfall - m.flooding - m.finalTransit) / in * 100
}

// advance runs one balance step of dt seconds ending at hours since start.
func (e *Engine) advance(dt, hours float64) {
	u := e.units
	for i := range e.gages {
		e.gages[i].update(hours)
	}

	for i := range e.nodes {
		e.nodes[i].lateral = e.nodes[i].extra
	}

	for i := range e.subs {
		s := &e.subs[i]
		areaL := s.def.Area * u.area
		rain := e.gages[s.gage].rainfall
		if s.apiRain > 0 {
			rain = s.apiRain
		}
		s.rainfall = rain
		rainL := rain * u.rain

		avail := s.depth/dt + rainL
		infil := math.Min(s.def.Infiltration*u.rain, avail)
		evapPot := 0.0
		if s.depth > 0 || rainL > 0 {
			evapPot = e.model.Options.Evaporation * u.evap
		}
		evap := math.Min(evapPot, avail-infil)
		s.depth = math.Max(s.depth+(rainL-infil-evap)*dt, 0)

		q := 0.0
		excess := s.depth - s.def.Storage*u.depth
		if excess > 0 && s.def.Width > 0 && s.def.Slope > 0 {
			n := s.def.Roughness
			if n <= 0 {
				n = 0.01
			}
			q = u.manning / n * s.def.Width * math.Pow(excess, 5.0/3.0) * math.Sqrt(s.def.Slope/100)
			if areaL > 0 {
				q = math.Min(q, excess*areaL/dt)
				s.depth -= q * dt / areaL
			}
		}

		s.infil = infil / u.rain
		s.evap = evap / u.evap
		s.runoff = q * u.flow
		s.totalRain += rainL * dt * areaL
		s.totalRunoff += q * dt
		s.peakRunoff = math.Max(s.peakRunoff, s.runoff)

		e.mass.rain += rainL * dt * areaL
		e.mass.infil += infil * dt * areaL
		e.mass.evap += evap * dt * areaL
		e.mass.runoff += q * dt
		if s.outlet >= 0 {
			e.nodes[s.outlet].lateral += q
		}
	}

	for i := range e.nodes {
		n := &e.nodes[i]
		n.inflow = n.lateral
		e.mass.routeIn += n.lateral * dt
	}
	for i := range e.links {
		l := &e.links[i]
		e.nodes[l.to].inflow += l.transit / dt
		l.transit = 0
	}

	for i := range e.nodes {
		n := &e.nodes[i]
		n.overflow, n.depth = 0, 0
		if n.typ == 1 {
			e.mass.outfall += n.inflow * dt
			continue
		}
		if len(n.out) == 0 {
			n.overflow = n.inflow
		} else {
			share := n.inflow / float64(len(n.out))
			out := 0.0
			for _, li := range n.out {
				l := &e.links[li]
				full := l.fullFlow(e.nodes, u)
				q := share * l.setting
				if l.def.FlowLimit > 0 {
					q = math.Min(q, l.def.FlowLimit/u.flow)
				}
				if full > 0 {
					q = math.Min(q, full)
				}
				l.flow = q
				l.setHydraulics(full)
				l.transit = q * dt
				out += q
				n.depth = math.Max(n.depth, l.depth)
			}
			n.overflow = math.Max(n.inflow-out, 0)
		}
		if n.overflow > 1e-12 {
			if n.def.MaxDepth > 0 {
				n.depth = n.def.MaxDepth
			}
			if !n.flooded {
				n.flooded = true
				e.warnings++
			}
		}
		if n.def.MaxDepth > 0 {
			n.depth = math.Min(n.depth, n.def.MaxDepth)
		}
		e.mass.flooding += n.overflow * dt
	}

	for i := range e.links {
		l := &e.links[i]
		hrs := dt / 3600
		if l.flow > 0 {
			l.timeOpen += hrs
		}
		if l.setting == 0 {
			l.timeClosed += hrs
		}
		l.maxFlow = math.Max(l.maxFlow, l.flow*u.flow)
		l.maxVelocity = math.Max(l.maxVelocity, l.velocity)
	}
	for i := range e.nodes {
		n := &e.nodes[i]
		n.maxDepth = math.Max(n.maxDepth, n.depth)
		n.maxHead = math.Max(n.maxHead, n.head())
	}
}

func (e *Engine) storage() float64 {
	v := 0.0
	for _, s := range e.subs {
		v += s.depth * s.def.Area * e.units.area
	}
	return v
}

func (e *Engine) transit() float64 {
	v := 0.0
	for _, l := range e.links {
		v += l.transit
	}
	return v
}
