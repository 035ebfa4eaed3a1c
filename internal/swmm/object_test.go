package swmm

import (
	"errors"
	"testing"
)

func TestObjectKindTags(t *testing.T) {
	tests := []struct {
		kind ObjectKind
		tag  int
		name string
	}{
		{Gage, 0, "gage"},
		{Subcatch, 1, "subcatch"},
		{Node, 2, "node"},
		{Link, 3, "link"},
		{Aquifer, 11, "aquifer"},
		{Inlet, 17, "inlet"},
		{System, 100, "system"},
	}
	for _, tt := range tests {
		if int(tt.kind) != tt.tag {
			t.Errorf("%s: expected tag %d, got %d", tt.name, tt.tag, int(tt.kind))
		}
		if tt.kind.String() != tt.name {
			t.Errorf("expected name %s, got %s", tt.name, tt.kind)
		}
	}
}

func TestAddressable(t *testing.T) {
	if System.Addressable() {
		t.Error("system must not be addressable")
	}
	if !System.Known() {
		t.Error("system is a known kind")
	}
	if ObjectKind(18).Known() {
		t.Error("tag 18 is not defined")
	}
	for _, k := range ObjectKinds() {
		if !k.Addressable() {
			t.Errorf("%s should be addressable", k)
		}
	}
	if n := len(ObjectKinds()); n != 18 {
		t.Errorf("expected 18 addressable kinds, got %d", n)
	}
}

func TestParseObjectKind(t *testing.T) {
	for in, want := range map[string]ObjectKind{
		"node":         Node,
		" LINK ":       Link,
		"raingage":     Gage,
		"subcatchment": Subcatch,
		"lid":          LIDControl,
	} {
		got, err := ParseObjectKind(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s, %v", in, want, got, err)
		}
	}
	if _, err := ParseObjectKind("pipe"); !errors.Is(err, ErrInvalidObjectKind) {
		t.Errorf("expected ErrInvalidObjectKind, got %v", err)
	}
}

func TestObjectKindText(t *testing.T) {
	var k ObjectKind
	if err := k.UnmarshalText([]byte("timeseries")); err != nil || k != TimeSeries {
		t.Errorf("unmarshal: %s, %v", k, err)
	}
	b, err := Street.MarshalText()
	if err != nil || string(b) != "street" {
		t.Errorf("marshal: %s, %v", b, err)
	}
	if _, err := ObjectKind(55).MarshalText(); err == nil {
		t.Error("expected error for unknown kind")
	}
}
