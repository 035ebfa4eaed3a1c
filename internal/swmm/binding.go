package swmm

// Binding is the native call surface of a simulation engine. Every method
// returns an integer status code where 0 means success; getters return
// their value alongside it. Object kinds and properties are passed as raw
// tags: the session validates them against its own tables before calling.
//
// A Binding drives one project at a time and is not safe for concurrent
// use. Close must be idempotent.
type Binding interface {
	Open(input, report, output string) int
	Start(saveResults bool) int
	// Step advances one routing step and returns elapsed simulation time in
	// days, or 0 once the end of the simulation has been reached.
	Step() (elapsed float64, code int)
	End() int
	Report() int
	Close() int

	Count(kind int) (int, int)
	Name(kind, index int) (string, int)
	Index(kind int, name string) (int, int)
	Value(kind, prop, index int) (float64, int)
	SetValue(kind, prop, index int, value float64) int

	// ErrorMessage returns the engine's text for code, or "" when it has
	// none and the built-in table should be used.
	ErrorMessage(code int) string
	Version() int
	Warnings() int
	MassBalance() (runoff, flow, quality float64, code int)
	SaveHotStart(path string) int
	UseHotStart(path string) int
	// WriteLine appends a line of text to the report. It does nothing
	// while no project is open.
	WriteLine(line string)
}

// MassBalance holds continuity errors in percent, available after a run
// has been finalized.
type MassBalance struct {
	Runoff  float64
	Flow    float64
	Quality float64
}
