package lumped

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Model is the YAML project document read by the engine.
type Model struct {
	Title         string         `yaml:"title"`
	Options       Options        `yaml:"options"`
	Gages         []Gage         `yaml:"gages"`
	Subcatchments []Subcatchment `yaml:"subcatchments"`
	Nodes         []Node         `yaml:"nodes"`
	Links         []Link         `yaml:"links"`
	Pollutants    []Named        `yaml:"pollutants"`
	LandUses      []Named        `yaml:"landuses"`
	Series        []Series       `yaml:"timeseries"`

	Patterns        []Named `yaml:"patterns,omitempty"`
	Curves          []Named `yaml:"curves,omitempty"`
	Controls        []Named `yaml:"controls,omitempty"`
	Transects       []Named `yaml:"transects,omitempty"`
	Aquifers        []Named `yaml:"aquifers,omitempty"`
	UnitHydrographs []Named `yaml:"unit_hydrographs,omitempty"`
	Snowpacks       []Named `yaml:"snowpacks,omitempty"`
	Shapes          []Named `yaml:"shapes,omitempty"`
	LIDs            []Named `yaml:"lid_controls,omitempty"`
	Streets         []Named `yaml:"streets,omitempty"`
	Inlets          []Named `yaml:"inlets,omitempty"`
}

type Options struct {
	FlowUnits   string  `yaml:"flow_units"`
	StartDate   string  `yaml:"start_date"`
	EndDate     string  `yaml:"end_date"`
	ReportStart string  `yaml:"report_start"`
	RouteStep   float64 `yaml:"route_step"`
	ReportStep  int     `yaml:"report_step"`
	// Evaporation is a constant rate in in/day or mm/day.
	Evaporation float64 `yaml:"evaporation"`
}

type Named struct {
	Name string `yaml:"name"`
}

// Gage draws its rate from a time series, or Rainfall when none is named.
type Gage struct {
	Name     string  `yaml:"name"`
	Series   string  `yaml:"series"`
	Rainfall float64 `yaml:"rainfall"`
}

type Subcatchment struct {
	Name       string  `yaml:"name"`
	Gage       string  `yaml:"gage"`
	Outlet     string  `yaml:"outlet"`
	Area       float64 `yaml:"area"`
	Width      float64 `yaml:"width"`
	Slope      float64 `yaml:"slope"`
	CurbLength float64 `yaml:"curb_length"`
	// Roughness is Manning's n of the overland surface.
	Roughness    float64 `yaml:"roughness"`
	Storage      float64 `yaml:"depression_storage"`
	Infiltration float64 `yaml:"infiltration"`
}

type Node struct {
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"`
	Invert     float64 `yaml:"invert"`
	MaxDepth   float64 `yaml:"max_depth"`
	InitDepth  float64 `yaml:"initial_depth"`
	Surcharge  float64 `yaml:"surcharge_depth"`
	PondedArea float64 `yaml:"ponded_area"`
}

type Link struct {
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"`
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Length     float64 `yaml:"length"`
	Roughness  float64 `yaml:"roughness"`
	Diameter   float64 `yaml:"diameter"`
	InitFlow   float64 `yaml:"initial_flow"`
	FlowLimit  float64 `yaml:"flow_limit"`
	InletLoss  float64 `yaml:"inlet_loss"`
	OutletLoss float64 `yaml:"outlet_loss"`
	FlapGate   bool    `yaml:"flap_gate"`
}

// Series is a step function of hours since the start date.
type Series struct {
	Name   string       `yaml:"name"`
	Points [][2]float64 `yaml:"points"`
}

// At returns the value in force at hour h.
func (s Series) At(h float64) float64 {
	v := 0.0
	for _, p := range s.Points {
		if p[0] > h {
			break
		}
		v = p[1]
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

var flowUnits = map[string]int{"CFS": 0, "GPM": 1, "MGD": 2, "CMS": 3, "LPS": 4, "MLD": 5}

var (
	errNoSource = errors.New("lumped: model has no objects")
)

// LoadModel reads and validates a model document.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

func ParseModel(data []byte) (*Model, error) {
	m := &Model{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("lumped: parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks cross references and fills option defaults.
func (m *Model) Validate() error {
	if len(m.Nodes) == 0 && len(m.Subcatchments) == 0 && len(m.Gages) == 0 {
		return errNoSource
	}
	o := &m.Options
	if o.FlowUnits == "" {
		o.FlowUnits = "CFS"
	}
	o.FlowUnits = strings.ToUpper(o.FlowUnits)
	if _, ok := flowUnits[o.FlowUnits]; !ok {
		return fmt.Errorf("lumped: unknown flow units %q", o.FlowUnits)
	}
	if o.RouteStep <= 0 {
		o.RouteStep = 20
	}
	if o.ReportStep <= 0 {
		o.ReportStep = 900
	}
	start, err := parseDate(o.StartDate)
	if err != nil {
		return fmt.Errorf("lumped: start_date: %w", err)
	}
	end, err := parseDate(o.EndDate)
	if err != nil {
		return fmt.Errorf("lumped: end_date: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("lumped: end_date %s not after start_date %s", o.EndDate, o.StartDate)
	}
	if o.ReportStart == "" {
		o.ReportStart = o.StartDate
	} else if _, err := parseDate(o.ReportStart); err != nil {
		return fmt.Errorf("lumped: report_start: %w", err)
	}

	if err := unique("gage", names(m.Gages, func(g Gage) string { return g.Name })); err != nil {
		return err
	}
	if err := unique("subcatchment", names(m.Subcatchments, func(s Subcatchment) string { return s.Name })); err != nil {
		return err
	}
	nodes := names(m.Nodes, func(n Node) string { return n.Name })
	if err := unique("node", nodes); err != nil {
		return err
	}
	if err := unique("link", names(m.Links, func(l Link) string { return l.Name })); err != nil {
		return err
	}
	series := names(m.Series, func(s Series) string { return s.Name })
	gages := names(m.Gages, func(g Gage) string { return g.Name })

	for _, g := range m.Gages {
		if g.Series != "" && indexOf(series, g.Series) < 0 {
			return fmt.Errorf("lumped: gage %s: unknown time series %q", g.Name, g.Series)
		}
	}
	for _, s := range m.Subcatchments {
		if indexOf(gages, s.Gage) < 0 {
			return fmt.Errorf("lumped: subcatchment %s: unknown gage %q", s.Name, s.Gage)
		}
		if s.Outlet != "" && indexOf(nodes, s.Outlet) < 0 {
			return fmt.Errorf("lumped: subcatchment %s: unknown outlet %q", s.Name, s.Outlet)
		}
	}
	for _, l := range m.Links {
		if indexOf(nodes, l.From) < 0 || indexOf(nodes, l.To) < 0 {
			return fmt.Errorf("lumped: link %s: unknown end node", l.Name)
		}
	}
	return nil
}

func (m *Model) period() (start, end, report time.Time) {
	start, _ = parseDate(m.Options.StartDate)
	end, _ = parseDate(m.Options.EndDate)
	report, _ = parseDate(m.Options.ReportStart)
	return start, end, report
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func indexOf(list []string, name string) int {
	for i, n := range list {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func unique(kind string, list []string) error {
	seen := make(map[string]bool, len(list))
	for _, n := range list {
		key := strings.ToUpper(n)
		if n == "" {
			return fmt.Errorf("lumped: %s with empty name", kind)
		}
		if seen[key] {
			return fmt.Errorf("lumped: duplicate %s %q", kind, n)
		}
		seen[key] = true
	}
	return nil
}
