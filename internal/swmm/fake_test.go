package swmm_test

import "github.com/san-kum/hydrosim/internal/swmm"

// fakeBinding is a scripted engine for failure injection.
type fakeBinding struct {
	openCode   int
	startCode  int
	endCode    int
	reportCode int
	closeCode  int
	stepCode   int
	failStep   int // 1-based step that returns stepCode
	messages   map[int]string

	steps      int
	start, end float64
	names      map[int][]string

	n      int
	opened bool
	calls  []string
	lines  []string
}

func newFake() *fakeBinding {
	return &fakeBinding{
		steps: 4,
		start: 45292,
		end:   45292.5,
		names: map[int][]string{
			int(swmm.Node): {"A", "B", "C"},
		},
	}
}

func (f *fakeBinding) Open(in, rpt, out string) int {
	f.calls = append(f.calls, "open")
	if f.openCode == 0 {
		f.opened = true
	}
	return f.openCode
}

func (f *fakeBinding) Start(save bool) int {
	f.calls = append(f.calls, "start")
	return f.startCode
}

func (f *fakeBinding) Step() (float64, int) {
	f.calls = append(f.calls, "step")
	f.n++
	if f.n == f.failStep {
		return 0, f.stepCode
	}
	if f.n >= f.steps {
		return 0, 0
	}
	return float64(f.n) * (f.end - f.start) / float64(f.steps), 0
}

func (f *fakeBinding) End() int {
	f.calls = append(f.calls, "end")
	return f.endCode
}

func (f *fakeBinding) Report() int {
	f.calls = append(f.calls, "report")
	return f.reportCode
}

func (f *fakeBinding) Close() int {
	f.calls = append(f.calls, "close")
	f.opened = false
	return f.closeCode
}

func (f *fakeBinding) Count(kind int) (int, int) {
	if kind == int(swmm.System) {
		return 0, swmm.CodeAPIObjType
	}
	return len(f.names[kind]), 0
}

func (f *fakeBinding) Name(kind, index int) (string, int) {
	list := f.names[kind]
	if index < 0 || index >= len(list) {
		return "", swmm.CodeAPIObjIndex
	}
	return list[index], 0
}

func (f *fakeBinding) Index(kind int, name string) (int, int) {
	for i, n := range f.names[kind] {
		if n == name {
			return i, 0
		}
	}
	return -1, 0
}

func (f *fakeBinding) Value(kind, prop, index int) (float64, int) {
	if kind == int(swmm.System) {
		switch swmm.Property(prop) {
		case swmm.SystemStartDate:
			return f.start, 0
		case swmm.SystemEndDate:
			return f.end, 0
		}
	}
	return 0, 0
}

func (f *fakeBinding) SetValue(kind, prop, index int, v float64) int { return 0 }

func (f *fakeBinding) ErrorMessage(code int) string { return f.messages[code] }

func (f *fakeBinding) Version() int  { return 1 }
func (f *fakeBinding) Warnings() int { return 0 }

func (f *fakeBinding) MassBalance() (float64, float64, float64, int) { return 0.1, 0.2, 0, 0 }

func (f *fakeBinding) SaveHotStart(path string) int { return 0 }
func (f *fakeBinding) UseHotStart(path string) int  { return 0 }

func (f *fakeBinding) WriteLine(line string) {
	if f.opened {
		f.lines = append(f.lines, line)
	}
}

func (f *fakeBinding) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}
