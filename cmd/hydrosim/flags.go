package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/optim"
	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/timecodec"
)

// parseTarget splits "kind:object:property". System targets may leave the
// object empty ("system::route_step").
func parseTarget(s string) (swmm.ObjectKind, string, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("target %q: want kind:object:property", s)
	}
	kind, err := swmm.ParseObjectKind(parts[0])
	if err != nil {
		return 0, "", "", err
	}
	return kind, parts[1], parts[2], nil
}

// parseOverride reads "kind:object:property=value".
func parseOverride(s string) (config.Override, error) {
	target, raw, ok := strings.Cut(s, "=")
	if !ok {
		return config.Override{}, fmt.Errorf("override %q: want kind:object:property=value", s)
	}
	kind, object, prop, err := parseTarget(target)
	if err != nil {
		return config.Override{}, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return config.Override{}, fmt.Errorf("override %q: %w", s, err)
	}
	return config.Override{Kind: kind, Object: object, Property: prop, Value: v}, nil
}

// parseProbe reads "[name=]kind:object:property[>threshold]".
func parseProbe(s string) (config.Probe, error) {
	var name string
	if n, rest, ok := strings.Cut(s, "="); ok {
		name, s = n, rest
	}
	var limit *float64
	if target, raw, ok := strings.Cut(s, ">"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return config.Probe{}, fmt.Errorf("probe %q: threshold: %w", s, err)
		}
		s, limit = target, &v
	}
	kind, object, prop, err := parseTarget(s)
	if err != nil {
		return config.Probe{}, err
	}
	return config.Probe{Name: name, Kind: kind, Object: object, Property: prop, Threshold: limit}, nil
}

// parseParam reads "kind:object:property=v1,v2,...".
func parseParam(s string) (optim.Param, error) {
	target, raw, ok := strings.Cut(s, "=")
	if !ok || raw == "" {
		return optim.Param{}, fmt.Errorf("param %q: want kind:object:property=v1,v2,...", s)
	}
	kind, object, prop, err := parseTarget(target)
	if err != nil {
		return optim.Param{}, err
	}
	var values []float64
	for _, f := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Param{}, fmt.Errorf("param %q: %w", s, err)
		}
		values = append(values, v)
	}
	return optim.Param{
		Target: config.Override{Kind: kind, Object: object, Property: prop},
		Values: values,
	}, nil
}

// parsePreset splits "model/preset". A bare name selects a preset of the
// bundled site drainage model.
func parsePreset(s string) (*config.Config, error) {
	model, name, ok := strings.Cut(s, "/")
	if !ok {
		model, name = "site_drainage", s
	}
	cfg := config.GetPreset(model, name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", s, config.ListPresets(model))
	}
	return cfg, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if !timecodec.InRange(t) {
				return time.Time{}, fmt.Errorf("date %q outside years %d-%d", s, timecodec.MinYear, timecodec.MaxYear)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// resolveDataDir layers the run directory the same way resolveConfig does:
// default, then .env and HYDROSIM_DATA, then an explicit --data.
func resolveDataDir(flagSet bool, flagDir string) string {
	cfg := config.DefaultConfig()
	cfg.ApplyEnv()
	if flagSet {
		cfg.DataDir = flagDir
	}
	return cfg.DataDir
}
