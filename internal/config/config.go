package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hydrosim/internal/swmm"
)

const (
	DefaultEngine    = "lumped"
	DefaultDataDir   = "./data"
	DefaultStride    = 1
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Environment variables read by ApplyEnv.
const (
	EnvEngine    = "HYDROSIM_ENGINE"
	EnvDataDir   = "HYDROSIM_DATA"
	EnvLogLevel  = "HYDROSIM_LOG_LEVEL"
	EnvLogFormat = "HYDROSIM_LOG_FORMAT"
)

type Config struct {
	Engine      string     `yaml:"engine"`
	Input       string     `yaml:"input"`
	Report      string     `yaml:"report,omitempty"`
	Output      string     `yaml:"output,omitempty"`
	SaveResults bool       `yaml:"save_results"`
	Stride      int        `yaml:"stride"`
	HotStart    string     `yaml:"hot_start,omitempty"`
	DataDir     string     `yaml:"data_dir"`
	Overrides   []Override `yaml:"overrides,omitempty"`
	Probes      []Probe    `yaml:"probes,omitempty"`
	Log         LogConfig  `yaml:"log"`
}

// Override is a property write applied right after initialization.
type Override struct {
	Kind     swmm.ObjectKind `yaml:"kind" json:"kind"`
	Object   string          `yaml:"object,omitempty" json:"object,omitempty"`
	Property string          `yaml:"property" json:"property"`
	Value    float64         `yaml:"value" json:"value"`
}

// Probe is a property sampled after every step. A Threshold adds an
// exceedance summary alongside the standard ones.
type Probe struct {
	Name      string          `yaml:"name,omitempty"`
	Kind      swmm.ObjectKind `yaml:"kind"`
	Object    string          `yaml:"object,omitempty"`
	Property  string          `yaml:"property"`
	Threshold *float64        `yaml:"threshold,omitempty"`
}

func (p Probe) Label() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Object == "" {
		return p.Kind.String() + "." + p.Property
	}
	return p.Kind.String() + "." + p.Object + "." + p.Property
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine:      DefaultEngine,
		SaveResults: true,
		Stride:      DefaultStride,
		DataDir:     DefaultDataDir,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv loads the given .env files (./.env when none are named) and
// lets HYDROSIM_* variables override the file settings. Missing .env files
// are not an error.
func (c *Config) ApplyEnv(files ...string) {
	godotenv.Load(files...)

	if v := os.Getenv(EnvEngine); v != "" {
		c.Engine = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Paths returns the report and output locations, deriving them from the
// input path when they are not set.
func (c *Config) Paths() (report, output string) {
	base := strings.TrimSuffix(c.Input, filepath.Ext(c.Input))
	report, output = c.Report, c.Output
	if report == "" {
		report = base + ".rpt"
	}
	if output == "" {
		output = base + ".db"
	}
	return report, output
}

func (c *Config) Validate() error {
	var errs []error
	if c.Engine == "" {
		errs = append(errs, errors.New("engine is required"))
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if c.Stride < 1 {
		errs = append(errs, fmt.Errorf("stride must be at least 1, got %d", c.Stride))
	}
	for i, o := range c.Overrides {
		if err := checkTarget(o.Kind, o.Object, o.Property); err != nil {
			errs = append(errs, fmt.Errorf("overrides[%d]: %w", i, err))
		}
	}
	for i, p := range c.Probes {
		if err := checkTarget(p.Kind, p.Object, p.Property); err != nil {
			errs = append(errs, fmt.Errorf("probes[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func checkTarget(kind swmm.ObjectKind, object, property string) error {
	if !kind.Known() {
		return fmt.Errorf("%w: %d", swmm.ErrInvalidObjectKind, int(kind))
	}
	if kind != swmm.System && object == "" {
		return fmt.Errorf("%s property %q needs an object name", kind, property)
	}
	_, err := swmm.LookupProperty(kind, property)
	return err
}
