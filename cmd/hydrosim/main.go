package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/logging"
	"github.com/san-kum/hydrosim/internal/lumped"
	"github.com/san-kum/hydrosim/internal/optim"
	"github.com/san-kum/hydrosim/internal/storage"
	"github.com/san-kum/hydrosim/internal/swmm"
	"github.com/san-kum/hydrosim/internal/timecodec"
	"github.com/san-kum/hydrosim/internal/tui"
)

const cliVersion = "0.3.0"

var (
	dataDir    string
	logLevel   string
	logFormat  string
	configFile string
	preset     string
	engine     string
	reportPath string
	outputPath string
	hotStart   string
	stride     int
	noSave     bool
	noStore    bool
	sets       []string
	probes     []string
	probeName  string
	exportPath string
	sweepArgs  []string
	metricName string
	maximize   bool
	workers    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hydrosim",
		Short:         "step and inspect stormwater simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory for stored runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [input]",
		Short: "run a simulation to completion",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "do not record the run in the data directory")

	liveCmd := &cobra.Command{
		Use:   "live [input]",
		Short: "step a simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect [input]",
		Short: "list the objects of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  inspectProject,
	}
	addRunFlags(inspectCmd)

	getCmd := &cobra.Command{
		Use:   "get [input] [kind:object:property]",
		Short: "read one property after initialization",
		Args:  cobra.ExactArgs(2),
		RunE:  getProperty,
	}
	addRunFlags(getCmd)

	resultsCmd := &cobra.Command{
		Use:   "results [results.db] [kind:object:property]",
		Short: "print a saved series from a results file",
		Args:  cobra.ExactArgs(2),
		RunE:  showResults,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot probe traces of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&probeName, "probe", "", "plot only this probe")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, m := range config.ListModels() {
					fmt.Printf("%s: %v\n", m, config.ListPresets(m))
				}
				return nil
			}
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print CLI and engine versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hydrosim %s\n", cliVersion)
			reg := experiment.NewRegistry()
			for _, name := range reg.ListEngines() {
				b, _ := reg.GetEngine(name)
				fmt.Printf("  %-8s %d\n", name, b.Version())
			}
		},
	}

	encodeCmd := &cobra.Command{
		Use:   "encode-date [date]",
		Short: "convert a calendar date to an engine date number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseDate(args[0])
			if err != nil {
				return err
			}
			fmt.Println(strconv.FormatFloat(timecodec.Encode(t), 'f', -1, 64))
			return nil
		},
	}

	decodeCmd := &cobra.Command{
		Use:   "decode-date [number]",
		Short: "convert an engine date number to a calendar date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			p := timecodec.DecodeParts(v)
			fmt.Printf("%s (%s)\n", timecodec.Decode(v).Format("2006-01-02 15:04:05"), time.Weekday(p.DayOfWeek-1))
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [input]",
		Short: "grid-search override values against a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepArgs, "param", nil, "swept property kind:object:property=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "outflow.peak", "metric to optimize")
	sweepCmd.Flags().BoolVar(&maximize, "maximize", false, "keep the highest metric instead of the lowest")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (default GOMAXPROCS)")

	rootCmd.AddCommand(runCmd, liveCmd, inspectCmd, getCmd, resultsCmd, listCmd, plotCmd, exportCmd, presetsCmd, versionCmd, encodeCmd, decodeCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (model/preset)")
	cmd.Flags().StringVar(&engine, "engine", config.DefaultEngine, "simulation engine")
	cmd.Flags().StringVar(&reportPath, "report", "", "report file (default: input with .rpt)")
	cmd.Flags().StringVar(&outputPath, "output", "", "results file (default: input with .db)")
	cmd.Flags().StringVar(&hotStart, "hotstart", "", "hot start file to initialize from")
	cmd.Flags().IntVar(&stride, "stride", config.DefaultStride, "routing steps per sample")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the results file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "property override kind:object:property=value (repeatable)")
	cmd.Flags().StringArrayVar(&probes, "probe", nil, "sampled property [name=]kind:object:property[>threshold] (repeatable)")
}

// resolveConfig layers preset, config file, environment and flags, in that
// order, and installs the resulting logger in the command context.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, *slog.Logger, error) {
	cfg := config.DefaultConfig()
	if preset == "" && configFile == "" && len(args) == 0 {
		// Nothing named: run the bundled model with its probes.
		preset = "site_drainage/default"
	}
	if preset != "" {
		p, err := parsePreset(preset)
		if err != nil {
			return nil, nil, err
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if flags.Changed("engine") {
		cfg.Engine = engine
	}
	if flags.Changed("report") {
		cfg.Report = reportPath
	}
	if flags.Changed("output") {
		cfg.Output = outputPath
	}
	if flags.Changed("hotstart") {
		cfg.HotStart = hotStart
	}
	if flags.Changed("stride") {
		cfg.Stride = stride
	}
	if flags.Changed("no-save") {
		cfg.SaveResults = !noSave
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	for _, s := range sets {
		o, err := parseOverride(s)
		if err != nil {
			return nil, nil, err
		}
		cfg.Overrides = append(cfg.Overrides, o)
	}
	for _, s := range probes {
		p, err := parseProbe(s)
		if err != nil {
			return nil, nil, err
		}
		cfg.Probes = append(cfg.Probes, p)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
	return cfg, logger, nil
}

func newExperiment(cfg *config.Config, logger *slog.Logger, opts ...swmm.Option) (*experiment.Experiment, error) {
	b, err := experiment.NewRegistry().GetEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	return experiment.New(cfg, b, logger, opts...), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, logger, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("running %s with %s engine...\n", cfg.Input, cfg.Engine)
	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("samples: %d\n", result.Steps)
	if !noStore {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	printSummary(result)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, logger, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(sweepArgs) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	params := make([]optim.Param, 0, len(sweepArgs))
	for _, s := range sweepArgs {
		p, err := parseParam(s)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	dir, err := os.MkdirTemp("", "hydrosim-sweep-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	reg := experiment.NewRegistry()
	var seq atomic.Int64
	build := func(overrides []config.Override) (*experiment.Experiment, error) {
		b, err := reg.GetEngine(cfg.Engine)
		if err != nil {
			return nil, err
		}
		id := seq.Add(1)
		point := *cfg
		point.Report = filepath.Join(dir, fmt.Sprintf("point%d.rpt", id))
		point.Output = filepath.Join(dir, fmt.Sprintf("point%d.db", id))
		point.SaveResults = false
		point.Overrides = append(append([]config.Override(nil), cfg.Overrides...), overrides...)
		return experiment.New(&point, b, logger.With("point", id)), nil
	}

	g := optim.NewGridSearch(params, workers)
	fmt.Printf("sweeping %d points...\n", g.Size())
	out, err := g.Search(cmd.Context(), build, metricName, maximize)
	if out != nil {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, p := range params {
			fmt.Fprintf(w, "%s.%s\t", p.Target.Object, p.Target.Property)
		}
		fmt.Fprintln(w, strings.ToUpper(metricName))
		for _, pt := range out.Points {
			for _, v := range pt.Values {
				fmt.Fprintf(w, "%g\t", v)
			}
			if pt.Err != nil {
				fmt.Fprintf(w, "error: %v\n", pt.Err)
			} else {
				fmt.Fprintf(w, "%.6f\n", pt.Metric)
			}
		}
		w.Flush()
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest %s = %.6f with", metricName, out.Value)
	for _, o := range out.Best {
		fmt.Printf(" %s:%s:%s=%g", o.Kind, o.Object, o.Property, o.Value)
	}
	fmt.Println()
	return nil
}

func printSummary(result *experiment.Result) {
	if mb := result.MassBalance; mb != nil {
		fmt.Printf("continuity error: runoff %.3f%%  flow %.3f%%  quality %.3f%%\n", mb.Runoff, mb.Flow, mb.Quality)
	}
	if result.Warnings > 0 {
		fmt.Printf("warnings: %d\n", result.Warnings)
	}
	if len(result.Metrics) == 0 {
		return
	}
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, logger, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// Logging to the terminal would tear the view.
	logger = slog.New(slog.DiscardHandler)
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}
	if err := exp.Start(); err != nil {
		return err
	}

	final, err := tui.Run(tui.NewModel(exp, cfg.Input))
	if err != nil {
		exp.Close()
		return err
	}
	if final.Err() != nil {
		exp.Close()
		return final.Err()
	}
	if !final.Done() {
		return exp.Close()
	}
	if err := exp.Finish(); err != nil {
		return err
	}
	printSummary(exp.Result())
	return nil
}

func inspectProject(cmd *cobra.Command, args []string) error {
	cfg, logger, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}
	s := exp.Session()
	if err := s.Initialize(); err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("input:   %s\n", s.InputPath())
	fmt.Printf("engine:  %s (version %d)\n", cfg.Engine, s.Version())
	fmt.Printf("period:  %s to %s\n\n", s.StartTime().Format("2006-01-02 15:04:05"), s.EndTime().Format("2006-01-02 15:04:05"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tCOUNT\tNAMES")
	for _, kind := range swmm.ObjectKinds() {
		names, err := s.Registry().Names(kind)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%v\n", kind, len(names), names)
	}
	return w.Flush()
}

func getProperty(cmd *cobra.Command, args []string) error {
	cfg, logger, err := resolveConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	kind, object, name, err := parseTarget(args[1])
	if err != nil {
		return err
	}
	prop, err := swmm.LookupProperty(kind, name)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg, logger)
	if err != nil {
		return err
	}
	s := exp.Session()
	if err := s.Initialize(); err != nil {
		return err
	}
	defer s.Close()

	index := 0
	if kind != swmm.System {
		if index, err = s.Registry().IndexOf(kind, object); err != nil {
			return err
		}
	}
	d, err := swmm.Describe(kind, prop)
	if err != nil {
		return err
	}
	if d.Type == swmm.Date {
		t, err := s.Properties().GetTime(kind, prop, index)
		if err != nil {
			return err
		}
		fmt.Println(t.Format("2006-01-02 15:04:05"))
		return nil
	}
	v, err := s.Properties().Get(kind, prop, index)
	if err != nil {
		return err
	}
	fmt.Printf("%g %s\n", v, d.Unit)
	return nil
}

func showResults(cmd *cobra.Command, args []string) error {
	kind, object, name, err := parseTarget(args[1])
	if err != nil {
		return err
	}
	prop, err := swmm.LookupProperty(kind, name)
	if err != nil {
		return err
	}
	r, err := lumped.OpenResults(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	names, err := r.Names(kind)
	if err != nil {
		return err
	}
	index := -1
	for i, n := range names {
		if n == object {
			index = i
		}
	}
	if index < 0 {
		return fmt.Errorf("%s %q not in results", kind, object)
	}
	series, err := r.Series(kind, prop, index)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: %s", lumped.ErrNoResult, args[1])
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tTIME\tVALUE")
	for i, v := range series {
		t, err := r.PeriodTime(i + 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%g\n", i+1, t.Format("2006-01-02 15:04:05"), v)
	}
	if mb, err := r.MassBalance(); err == nil {
		fmt.Fprintf(w, "\ncontinuity\trunoff %.3f%%\tflow %.3f%%\n", mb.Runoff, mb.Flow)
	} else if !errors.Is(err, lumped.ErrNoResult) {
		return err
	}
	return w.Flush()
}

func openStore(cmd *cobra.Command) *storage.Store {
	return storage.New(resolveDataDir(cmd.Flags().Changed("data"), dataDir))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := openStore(cmd)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINPUT\tENGINE\tTIME\tSAMPLES\tFLOW ERR")
	for _, run := range runs {
		flowErr := "-"
		if run.MassBalance != nil {
			flowErr = fmt.Sprintf("%.3f%%", run.MassBalance.Flow)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.Input,
			run.Engine,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			flowErr,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := openStore(cmd)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(tr.Values) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("input: %s\n", meta.Input)
	fmt.Printf("samples: %d\n\n", len(tr.Values))

	plotted := 0
	for _, p := range tr.Probes {
		if probeName != "" && p != probeName {
			continue
		}
		data, _ := tr.Column(p)
		if len(data) < 2 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption(fmt.Sprintf("%s vs time (%.2f h)", p, tr.Hours[len(tr.Hours)-1])),
		)
		fmt.Println(graph)
		fmt.Println()
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no probe %q in run %s", probeName, runID)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := openStore(cmd)
	if exportPath == "" {
		return st.ExportJSON(os.Stdout, args[0])
	}
	f, err := os.Create(exportPath)
	if err != nil {
		return err
	}
	if err := st.ExportJSON(f, args[0]); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], exportPath)
	return nil
}
