package lumped

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/hydrosim/internal/timecodec"
)

const dateLayout = "2006-01-02 15:04:05"

func writeInputError(w io.Writer, err error) {
	fmt.Fprintf(w, "\n  ERROR 200: one or more errors detected in input file.\n  %v\n", err)
}

func writeReport(w io.Writer, e *Engine) error {
	b := bufio.NewWriter(w)
	m := e.model
	u := e.units

	fmt.Fprintf(b, "\n  Lumped reference engine (build %d)\n", Version)
	fmt.Fprintf(b, "  ------------------------------------\n")
	if m.Title != "" {
		fmt.Fprintf(b, "\n  %s\n", m.Title)
	}

	section(b, "Element Count")
	row(b, "Number of rain gages", len(e.gages))
	row(b, "Number of subcatchments", len(e.subs))
	row(b, "Number of nodes", len(e.nodes))
	row(b, "Number of links", len(e.links))
	row(b, "Number of pollutants", len(m.Pollutants))
	row(b, "Number of land uses", len(m.LandUses))

	section(b, "Analysis Options")
	row(b, "Flow Units", m.Options.FlowUnits)
	row(b, "Starting Date", timecodec.Decode(e.start).Format(dateLayout))
	row(b, "Ending Date", timecodec.Decode(e.end).Format(dateLayout))
	row(b, "Report Time Step", fmt.Sprintf("%d sec", e.reportStep))
	row(b, "Routing Time Step", fmt.Sprintf("%.2f sec", e.routeStep))
	row(b, "Routing Steps Taken", e.steps)

	volUnit := "ft3"
	if u.system == 1 {
		volUnit = "m3"
	}
	mb := e.mass
	section(b, "Runoff Quantity Continuity")
	fmt.Fprintf(b, "  %-32s %14s\n", "", volUnit)
	row(b, "Total Precipitation", fmt.Sprintf("%14.3f", mb.rain))
	row(b, "Infiltration Loss", fmt.Sprintf("%14.3f", mb.infil))
	row(b, "Evaporation Loss", fmt.Sprintf("%14.3f", mb.evap))
	row(b, "Surface Runoff", fmt.Sprintf("%14.3f", mb.runoff))
	row(b, "Initial Storage", fmt.Sprintf("%14.3f", mb.initStorage))
	row(b, "Final Storage", fmt.Sprintf("%14.3f", mb.finalStorage))
	row(b, "Continuity Error (%)", fmt.Sprintf("%14.3f", mb.runoffError()))

	section(b, "Flow Routing Continuity")
	fmt.Fprintf(b, "  %-32s %14s\n", "", volUnit)
	row(b, "Wet Weather Inflow", fmt.Sprintf("%14.3f", mb.routeIn))
	row(b, "Initial Stored Volume", fmt.Sprintf("%14.3f", mb.initTransit))
	row(b, "External Outflow", fmt.Sprintf("%14.3f", mb.outfall))
	row(b, "Flooding Loss", fmt.Sprintf("%14.3f", mb.flooding))
	row(b, "Final Stored Volume", fmt.Sprintf("%14.3f", mb.finalTransit))
	row(b, "Continuity Error (%)", fmt.Sprintf("%14.3f", mb.flowError()))

	section(b, "Subcatchment Runoff Summary")
	fmt.Fprintf(b, "  %-16s %14s %14s %14s\n", "Subcatchment", "Precip "+volUnit, "Runoff "+volUnit, "Peak Runoff")
	for _, s := range e.subs {
		fmt.Fprintf(b, "  %-16s %14.3f %14.3f %14.3f\n", s.def.Name, s.totalRain, s.totalRunoff, s.peakRunoff)
	}

	section(b, "Node Depth Summary")
	fmt.Fprintf(b, "  %-16s %14s %14s %10s\n", "Node", "Max Depth", "Max HGL", "Flooded")
	for _, n := range e.nodes {
		fmt.Fprintf(b, "  %-16s %14.3f %14.3f %10t\n", n.def.Name, n.maxDepth, n.maxHead, n.flooded)
	}

	section(b, "Link Flow Summary")
	fmt.Fprintf(b, "  %-16s %14s %14s %14s\n", "Link", "Max Flow", "Max Velocity", "Hours Open")
	for _, l := range e.links {
		fmt.Fprintf(b, "  %-16s %14.3f %14.3f %14.2f\n", l.def.Name, l.maxFlow, l.maxVelocity, l.timeOpen)
	}

	if e.warnings > 0 {
		fmt.Fprintf(b, "\n  %d warning(s) issued\n", e.warnings)
	}
	return b.Flush()
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n  ****************************\n  %s\n  ****************************\n", title)
}

func row(w io.Writer, label string, v any) {
	dots := 32 - len(label)
	if dots < 2 {
		dots = 2
	}
	fmt.Fprintf(w, "  %s %s %v\n", label, strings.Repeat(".", dots), v)
}
