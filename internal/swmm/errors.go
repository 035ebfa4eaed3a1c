package swmm

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by this package wraps exactly one of
// these, or an *EngineError for native codes outside the taxonomy.
var (
	ErrResourceOpen         = errors.New("swmm: cannot open resource")
	ErrSessionNotReady      = errors.New("swmm: session not ready")
	ErrAlreadyFinished      = errors.New("swmm: simulation already finished")
	ErrAlreadyInitialized   = errors.New("swmm: session already initialized")
	ErrSessionClosed        = errors.New("swmm: session closed")
	ErrInvalidObjectKind    = errors.New("swmm: invalid object kind")
	ErrInvalidPropertyKind  = errors.New("swmm: invalid property kind")
	ErrObjectNotFound       = errors.New("swmm: object not found")
	ErrIndexOutOfRange      = errors.New("swmm: object index out of range")
	ErrPropertyNotWritable  = errors.New("swmm: property not writable")
	ErrInvalidPropertyValue = errors.New("swmm: invalid property value")
	ErrPropertyLocked       = errors.New("swmm: property cannot change while simulation is running")
)

// Native status codes the translator classifies.
const (
	CodeOK = 0

	CodeMemory        = 101
	CodeTimestep      = 107
	CodeInputErrors   = 200
	CodeFileNames     = 301
	CodeInpFile       = 303
	CodeRptFile       = 305
	CodeOutFile       = 307
	CodeOutWrite      = 309
	CodeOutRead       = 311
	CodeRainScratch   = 313
	CodeRainIface     = 315
	CodeRainData      = 317
	CodeHotstartOpen  = 331
	CodeSystem        = 401
	CodeNotClosed     = 402
	CodeNotOpen       = 403
	CodeAPINotOpen    = 501
	CodeAPINotStarted = 502
	CodeAPINotEnded   = 503
	CodeAPIObjType    = 504
	CodeAPIObjIndex   = 505
	CodeAPIObjName    = 506
	CodeAPIPropType   = 507
	CodeAPIPropValue  = 508
	CodeAPITimePeriod = 509
	CodeAPIHotstart   = 510
	CodeAPIIsRunning  = 511
)

var codeMessages = map[int]string{
	CodeMemory:        "ERROR 101: memory allocation error.",
	CodeTimestep:      "ERROR 107: cannot compute a valid time step.",
	CodeInputErrors:   "ERROR 200: one or more errors detected in input file.",
	CodeFileNames:     "ERROR 301: files share same names.",
	CodeInpFile:       "ERROR 303: cannot open input file.",
	CodeRptFile:       "ERROR 305: cannot open report file.",
	CodeOutFile:       "ERROR 307: cannot open binary results file.",
	CodeOutWrite:      "ERROR 309: error writing to binary results file.",
	CodeOutRead:       "ERROR 311: error reading from binary results file.",
	CodeRainScratch:   "ERROR 313: cannot open scratch rainfall interface file.",
	CodeRainIface:     "ERROR 315: cannot open rainfall interface file.",
	CodeRainData:      "ERROR 317: cannot open rainfall data file.",
	CodeHotstartOpen:  "ERROR 331: cannot open hot start file.",
	CodeSystem:        "ERROR 401: general system error.",
	CodeNotClosed:     "ERROR 402: cannot open new project while current project still open.",
	CodeNotOpen:       "ERROR 403: project not open or last run not ended.",
	CodeAPINotOpen:    "API Error 501: project not opened.",
	CodeAPINotStarted: "API Error 502: simulation not started.",
	CodeAPINotEnded:   "API Error 503: simulation not ended.",
	CodeAPIObjType:    "API Error 504: invalid object type.",
	CodeAPIObjIndex:   "API Error 505: invalid object index.",
	CodeAPIObjName:    "API Error 506: invalid object name.",
	CodeAPIPropType:   "API Error 507: invalid property type.",
	CodeAPIPropValue:  "API Error 508: invalid property value.",
	CodeAPITimePeriod: "API Error 509: invalid time period.",
	CodeAPIHotstart:   "API Error 510: invalid hot start file.",
	CodeAPIIsRunning:  "API Error 511: property cannot be changed while simulation is running.",
}

var codeClasses = map[int]error{
	CodeFileNames:     ErrResourceOpen,
	CodeInpFile:       ErrResourceOpen,
	CodeRptFile:       ErrResourceOpen,
	CodeOutFile:       ErrResourceOpen,
	CodeRainScratch:   ErrResourceOpen,
	CodeRainIface:     ErrResourceOpen,
	CodeRainData:      ErrResourceOpen,
	CodeHotstartOpen:  ErrResourceOpen,
	CodeAPINotOpen:    ErrSessionNotReady,
	CodeAPINotStarted: ErrSessionNotReady,
	CodeAPINotEnded:   ErrSessionNotReady,
	CodeAPIObjType:    ErrInvalidObjectKind,
	CodeAPIObjIndex:   ErrIndexOutOfRange,
	CodeAPIObjName:    ErrObjectNotFound,
	CodeAPIPropType:   ErrInvalidPropertyKind,
	CodeAPIPropValue:  ErrInvalidPropertyValue,
	CodeAPIIsRunning:  ErrPropertyLocked,
}

// CodeMessage returns the built-in text for a native status code.
func CodeMessage(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("ERROR %d: unrecognized engine error.", code)
}

// EngineError carries a native status code verbatim.
type EngineError struct {
	Code    int
	Message string
}

func (e *EngineError) Error() string {
	return e.Message
}

// Is lets classified engine errors match their class sentinel.
func (e *EngineError) Is(target error) bool {
	class, ok := codeClasses[e.Code]
	return ok && class == target
}

// Translate maps a native status code to an error. Zero is success. msg is
// the engine-supplied message; the built-in table is used when it is blank.
func Translate(code int, msg string) error {
	if code == CodeOK {
		return nil
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = CodeMessage(code)
	}
	return &EngineError{Code: code, Message: msg}
}

// Error adds call context to a classified failure.
type Error struct {
	Op       string
	Kind     ObjectKind
	Property Property
	Index    int
	Name     string
	Path     string
	Err      error

	hasTarget bool
	hasProp   bool
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("swmm: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.hasTarget {
		b.WriteString(" ")
		b.WriteString(e.Kind.String())
		if e.hasProp {
			b.WriteString(".")
			b.WriteString(e.Property.Name(e.Kind))
		}
		switch {
		case e.Name != "":
			fmt.Fprintf(&b, "[%q]", e.Name)
		case e.Index >= 0:
			fmt.Fprintf(&b, "[%d]", e.Index)
		}
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimPrefix(e.Err.Error(), "swmm: "))
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, err error) *Error {
	return &Error{Op: op, Index: -1, Err: err}
}

func kindError(op string, kind ObjectKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Index: -1, Err: err, hasTarget: true}
}

func propError(op string, kind ObjectKind, prop Property, index int, err error) *Error {
	return &Error{Op: op, Kind: kind, Property: prop, Index: index, Err: err, hasTarget: true, hasProp: true}
}

// Code extracts the native status code from any error produced by this
// package. It returns 0 when err carries none.
func Code(err error) int {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeOK
}
