package swmm

import (
	"errors"
	"testing"
)

func TestTranslateSuccess(t *testing.T) {
	if err := Translate(0, "anything"); err != nil {
		t.Errorf("expected nil for code 0, got %v", err)
	}
}

func TestTranslateClasses(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{CodeFileNames, ErrResourceOpen},
		{CodeInpFile, ErrResourceOpen},
		{CodeRptFile, ErrResourceOpen},
		{CodeOutFile, ErrResourceOpen},
		{CodeRainScratch, ErrResourceOpen},
		{CodeRainIface, ErrResourceOpen},
		{CodeRainData, ErrResourceOpen},
		{CodeHotstartOpen, ErrResourceOpen},
		{CodeAPINotOpen, ErrSessionNotReady},
		{CodeAPINotStarted, ErrSessionNotReady},
		{CodeAPINotEnded, ErrSessionNotReady},
		{CodeAPIObjType, ErrInvalidObjectKind},
		{CodeAPIObjIndex, ErrIndexOutOfRange},
		{CodeAPIObjName, ErrObjectNotFound},
		{CodeAPIPropType, ErrInvalidPropertyKind},
		{CodeAPIPropValue, ErrInvalidPropertyValue},
		{CodeAPIIsRunning, ErrPropertyLocked},
	}

	for _, tt := range tests {
		err := Translate(tt.code, "")
		if !errors.Is(err, tt.want) {
			t.Errorf("code %d: expected %v, got %v", tt.code, tt.want, err)
		}
		if Code(err) != tt.code {
			t.Errorf("code %d: Code() returned %d", tt.code, Code(err))
		}
	}
}

func TestTranslateUnclassified(t *testing.T) {
	for _, code := range []int{CodeMemory, CodeTimestep, CodeInputErrors, CodeOutWrite, CodeSystem, 12345} {
		err := Translate(code, "")
		var ee *EngineError
		if !errors.As(err, &ee) {
			t.Fatalf("code %d: expected *EngineError, got %T", code, err)
		}
		if ee.Code != code {
			t.Errorf("expected code %d, got %d", code, ee.Code)
		}
		for _, class := range []error{ErrResourceOpen, ErrSessionNotReady, ErrObjectNotFound, ErrIndexOutOfRange} {
			if errors.Is(err, class) {
				t.Errorf("code %d should not match %v", code, class)
			}
		}
	}
}

func TestTranslateMessages(t *testing.T) {
	if got := Translate(CodeInpFile, "").Error(); got != "ERROR 303: cannot open input file." {
		t.Errorf("unexpected table message %q", got)
	}
	if got := Translate(CodeInpFile, "  ERROR 303: cannot open input file x.inp \n").Error(); got != "ERROR 303: cannot open input file x.inp" {
		t.Errorf("engine message not preserved: %q", got)
	}
	if got := Translate(777, "").Error(); got != "ERROR 777: unrecognized engine error." {
		t.Errorf("unexpected generic message %q", got)
	}
}

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{opError("step", ErrSessionNotReady), "swmm: step: session not ready"},
		{kindError("count", System, ErrInvalidObjectKind), "swmm: count system: invalid object kind"},
		{propError("set", Subcatch, SubcatchWidth, 3, ErrInvalidPropertyValue), "swmm: set subcatch.width[3]: invalid property value"},
		{propError("get", Link, Property(999), 0, ErrInvalidPropertyKind), "swmm: get link.prop(999)[0]: invalid property kind"},
		{&Error{Op: "initialize", Path: "a.inp", Index: -1, Err: Translate(CodeInpFile, "")}, "swmm: initialize a.inp: ERROR 303: cannot open input file."},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := error(propError("get", Node, NodeDepth, 1, Translate(CodeAPIObjIndex, "")))
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Error("expected wrapped engine error to match its class")
	}
	if Code(err) != CodeAPIObjIndex {
		t.Errorf("expected code %d, got %d", CodeAPIObjIndex, Code(err))
	}
	if Code(opError("step", ErrAlreadyFinished)) != CodeOK {
		t.Error("sentinel errors carry no native code")
	}
}
