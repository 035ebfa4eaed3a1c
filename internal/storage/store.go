package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/swmm"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Engine      string             `json:"engine"`
	Input       string             `json:"input"`
	Timestamp   time.Time          `json:"timestamp"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	Stride      int                `json:"stride"`
	Steps       int                `json:"steps"`
	Probes      []string           `json:"probes"`
	Overrides   []config.Override  `json:"overrides,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	MassBalance *swmm.MassBalance  `json:"mass_balance,omitempty"`
	Warnings    int                `json:"warnings"`
}

// Trace is the per-sample table of a stored run. Values[i] holds one
// column per probe, in Probes order.
type Trace struct {
	Probes []string
	Times  []time.Time
	Hours  []float64
	Values [][]float64
}

// Column returns the series recorded for probe.
func (t *Trace) Column(probe string) ([]float64, bool) {
	for j, p := range t.Probes {
		if p != probe {
			continue
		}
		col := make([]float64, len(t.Values))
		for i, row := range t.Values {
			col[i] = row[j]
		}
		return col, true
	}
	return nil, false
}

func (s *Store) Save(cfg *config.Config, res *experiment.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Engine:      cfg.Engine,
		Input:       cfg.Input,
		Timestamp:   time.Now(),
		Stride:      cfg.Stride,
		Steps:       res.Steps,
		Probes:      res.Probes,
		Overrides:   cfg.Overrides,
		Metrics:     res.Metrics,
		MassBalance: res.MassBalance,
		Warnings:    res.Warnings,
	}
	if n := len(res.Times); n > 0 {
		meta.Start = res.Times[0].Add(-hoursDuration(res.Hours[0]))
		meta.End = res.Times[n-1]
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrace(filepath.Join(runDir, traceFile), res); err != nil {
		return "", err
	}
	return runID, nil
}

func hoursDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour)).Round(time.Millisecond)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrace(path string, res *experiment.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"time", "hours"}, res.Probes...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := range res.Times {
		row := []string{
			res.Times[i].Format(time.RFC3339),
			strconv.FormatFloat(res.Hours[i], 'f', 6, 64),
		}
		for _, p := range res.Probes {
			row = append(row, strconv.FormatFloat(res.Series[p][i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadTrace(runID string) (*Trace, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Trace{}, nil
	}

	tr := &Trace{Probes: records[0][2:]}
	for line, record := range records[1:] {
		t, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line+2, err)
		}
		h, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line+2, err)
		}
		row := make([]float64, len(record)-2)
		for j := range row {
			if row[j], err = strconv.ParseFloat(record[j+2], 64); err != nil {
				return nil, fmt.Errorf("trace line %d: %w", line+2, err)
			}
		}
		tr.Times = append(tr.Times, t)
		tr.Hours = append(tr.Hours, h)
		tr.Values = append(tr.Values, row)
	}
	return tr, nil
}

// ExportData is the JSON document written by ExportJSON.
type ExportData struct {
	RunMetadata
	Hours  []float64            `json:"hours"`
	Times  []time.Time          `json:"times"`
	Series map[string][]float64 `json:"series"`
}

// ExportJSON writes a stored run, metadata and trace together, to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Hours:       tr.Hours,
		Times:       tr.Times,
		Series:      make(map[string][]float64, len(tr.Probes)),
	}
	for _, p := range tr.Probes {
		data.Series[p], _ = tr.Column(p)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
