//go:build swmm5

// Package swmm5 binds the EPA SWMM 5 shared library. Build with the swmm5
// tag and libswmm5 on the linker path.
package swmm5

/*
#cgo LDFLAGS: -lswmm5
#include <stdlib.h>

int    swmm_open(const char* inputFile, const char* reportFile, const char* outputFile);
int    swmm_start(int saveResults);
int    swmm_step(double* elapsedTime);
int    swmm_end(void);
int    swmm_report(void);
int    swmm_close(void);
int    swmm_getMassBalErr(float* runoffErr, float* flowErr, float* qualErr);
int    swmm_getVersion(void);
int    swmm_getError(char* errMsg, int msgLen);
int    swmm_getWarnings(void);
int    swmm_getCount(int objType);
int    swmm_getName(int objType, int index, char* name, int size);
int    swmm_getIndex(int objType, const char* name);
double swmm_getValueExpanded(int objType, int property, int index, int subIndex);
int    swmm_setValueExpanded(int objType, int property, int index, int subIndex, double value);
int    swmm_useHotStart(const char* hotStartFile);
int    swmm_saveHotStart(const char* hotStartFile);
void   swmm_writeLine(const char* line);
*/
import "C"

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/san-kum/hydrosim/internal/swmm"
)

const (
	maxMsg  = 1024
	maxName = 64
)

// The library keeps its project in process globals, so only one Engine
// may hold it at a time.
var lib sync.Mutex

type Engine struct {
	mu   sync.Mutex
	held bool
}

func New() *Engine { return &Engine{} }

func cstr(s string) (*C.char, func()) {
	p := C.CString(s)
	return p, func() { C.free(unsafe.Pointer(p)) }
}

func (e *Engine) Open(input, report, output string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.held {
		lib.Lock()
		e.held = true
	}
	in, freeIn := cstr(input)
	defer freeIn()
	rpt, freeRpt := cstr(report)
	defer freeRpt()
	out, freeOut := cstr(output)
	defer freeOut()
	return int(C.swmm_open(in, rpt, out))
}

func (e *Engine) Start(save bool) int {
	flag := C.int(0)
	if save {
		flag = 1
	}
	return int(C.swmm_start(flag))
}

func (e *Engine) Step() (float64, int) {
	var elapsed C.double
	code := C.swmm_step(&elapsed)
	return float64(elapsed), int(code)
}

func (e *Engine) End() int    { return int(C.swmm_end()) }
func (e *Engine) Report() int { return int(C.swmm_report()) }

func (e *Engine) Close() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.held {
		return 0
	}
	code := int(C.swmm_close())
	e.held = false
	lib.Unlock()
	return code
}

func (e *Engine) Count(kind int) (int, int) {
	n := int(C.swmm_getCount(C.int(kind)))
	if n < 0 {
		return 0, swmm.CodeAPIObjType
	}
	return n, 0
}

// Name checks the index itself: the library does not.
func (e *Engine) Name(kind, index int) (string, int) {
	n, code := e.Count(kind)
	if code != 0 {
		return "", code
	}
	if index < 0 || index >= n {
		return "", swmm.CodeAPIObjIndex
	}
	buf := (*C.char)(C.malloc(maxName + 1))
	defer C.free(unsafe.Pointer(buf))
	if code := int(C.swmm_getName(C.int(kind), C.int(index), buf, maxName)); code != 0 {
		return "", code
	}
	return C.GoString(buf), 0
}

func (e *Engine) Index(kind int, name string) (int, int) {
	p, free := cstr(name)
	defer free()
	return int(C.swmm_getIndex(C.int(kind), p)), 0
}

// Value reads through the expanded getter. The library reports no status
// for reads, so the session's own range checks are the only guard.
func (e *Engine) Value(kind, prop, index int) (float64, int) {
	if kind != int(swmm.System) {
		n, code := e.Count(kind)
		if code != 0 {
			return 0, code
		}
		if index < 0 || index >= n {
			return 0, swmm.CodeAPIObjIndex
		}
	}
	return float64(C.swmm_getValueExpanded(C.int(kind), C.int(prop), C.int(index), -1)), 0
}

func (e *Engine) SetValue(kind, prop, index int, value float64) int {
	return int(C.swmm_setValueExpanded(C.int(kind), C.int(prop), C.int(index), -1, C.double(value)))
}

// ErrorMessage returns the library's text for its last error when that is
// the code asked about.
func (e *Engine) ErrorMessage(code int) string {
	buf := (*C.char)(C.malloc(maxMsg))
	defer C.free(unsafe.Pointer(buf))
	if int(C.swmm_getError(buf, maxMsg)) != code {
		return ""
	}
	return strings.TrimSpace(C.GoString(buf))
}

func (e *Engine) Version() int  { return int(C.swmm_getVersion()) }
func (e *Engine) Warnings() int { return int(C.swmm_getWarnings()) }

func (e *Engine) MassBalance() (float64, float64, float64, int) {
	var runoff, flow, qual C.float
	code := C.swmm_getMassBalErr(&runoff, &flow, &qual)
	return float64(runoff), float64(flow), float64(qual), int(code)
}

func (e *Engine) SaveHotStart(path string) int {
	p, free := cstr(path)
	defer free()
	return int(C.swmm_saveHotStart(p))
}

func (e *Engine) UseHotStart(path string) int {
	p, free := cstr(path)
	defer free()
	return int(C.swmm_useHotStart(p))
}

func (e *Engine) WriteLine(line string) {
	p, free := cstr(line)
	defer free()
	C.swmm_writeLine(p)
}

var _ swmm.Binding = (*Engine)(nil)
