package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mbsim/internal/analysis"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/metrics"
	"github.com/san-kum/mbsim/internal/sim"
	"github.com/san-kum/mbsim/internal/storage"
	"github.com/san-kum/mbsim/internal/tui"
	"github.com/san-kum/mbsim/internal/viz"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	links      int
	angle      float64
	integrator string
	configFile string
	live       bool
	frameRate  int
	bodyIdx    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mbsim",
		Short: "constrained multibody dynamics lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mbsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&dt, "dt", 0, "timestep override")
	runCmd.Flags().Float64Var(&duration, "time", 0, "duration override")
	runCmd.Flags().IntVar(&links, "links", 0, "chain length override")
	runCmd.Flags().Float64Var(&angle, "angle", math.NaN(), "initial roll angle in degrees")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "integrator override (rk4, euler)")
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	runCmd.Flags().BoolVar(&live, "live", false, "render the run in the terminal")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "live view frame rate")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one body's trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&bodyIdx, "body", -1, "body index (default: last)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print run states as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	watchCmd := &cobra.Command{
		Use:   "watch [preset]",
		Short: "interactive live view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchSimulation,
	}
	watchCmd.Flags().IntVar(&links, "links", 0, "chain length override")
	watchCmd.Flags().Float64Var(&angle, "angle", math.NaN(), "initial roll angle in degrees")
	watchCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark chain lengths and step sizes",
		RunE:  benchChains,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "compare integrators on the same scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareIntegrators,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.PresetNames() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd,
		watchCmd, benchCmd, compareCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig builds the scenario from a config file or preset name,
// then layers the command-line overrides on top.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config

	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	case len(args) > 0:
		preset, ok := config.Preset(args[0])
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %v)", args[0], config.PresetNames())
		}
		cfg = preset
	default:
		cfg = config.Default()
	}

	if cmd.Flags().Changed("links") || cmd.Flags().Changed("angle") {
		n := len(cfg.Joints)
		if cmd.Flags().Changed("links") {
			n = links
		}
		a := -3 * math.Pi / 180
		if cmd.Flags().Changed("angle") {
			a = angle * math.Pi / 180
		}
		rebuilt := config.Chain(n, a)
		if n == 1 {
			rebuilt = config.Pendulum(a)
		}
		rebuilt.Dt, rebuilt.Duration, rebuilt.Integrator = cfg.Dt, cfg.Duration, cfg.Integrator
		cfg = rebuilt
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	sys, err := cfg.Build()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	simulator := sim.New(sys, cfg.NewIntegrator())
	simulator.AddMetric(metrics.NewEnergyDrift(sys))
	simulator.AddMetric(metrics.NewConstraintViolation(sys))

	var renderer *tui.LiveRenderer
	if live {
		renderer = tui.NewLiveRenderer(cfg.Name, float64(sys.JointCount()), frameRate)
		renderer.Start()
		defer renderer.Stop()
		simulator.AddObserver(renderer)
	}

	fmt.Printf("running %s (%d bodies, %d joints)...\n", cfg.Name, sys.BodyCount(), sys.JointCount())
	start := time.Now()

	result, err := simulator.Run(context.Background(), sys.InitialState(), simConfig(cfg))
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunMetadata{
		Model:      cfg.Name,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Bodies:     sys.BodyCount(),
		Joints:     sys.JointCount(),
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6e\n", name, val)
	}

	return nil
}

// simConfig maps a scenario config onto the simulation-loop defaults.
func simConfig(cfg *config.Config) dynamo.Config {
	sc := dynamo.DefaultConfig()
	sc.Dt = cfg.Dt
	sc.Duration = cfg.Duration
	return sc
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tINTEG\tBODIES\tJOINTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Bodies,
			run.Joints,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	const block = 12
	bodies := len(states[0]) / block
	b := bodyIdx
	if b < 0 {
		b = bodies - 1
	}
	if b < 1 || b >= bodies {
		return fmt.Errorf("body index %d out of range (1..%d)", b, bodies-1)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s, body %d of %d, samples: %d\n\n", meta.Model, b, bodies-1, len(states))

	series := []struct {
		caption string
		index   int
	}{
		{"y position", block*b + 1},
		{"z position", block*b + 2},
		{"roll angle", block*b + 6},
	}

	for _, sr := range series {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][sr.index]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	rolls := make([]float64, len(states))
	for i := range states {
		rolls[i] = states[i][block*b+6]
	}
	if period, err := analysis.EstimatePeriod(times, rolls); err == nil {
		fmt.Printf("roll period: %.4f s (%.4f hz)\n", period, 1/period)
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range states[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := []string{strconv.FormatFloat(times[i], 'f', 6, 64)}
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func benchChains(cmd *cobra.Command, args []string) error {
	lengths := []int{1, 5, 10, 20}
	dts := []float64{0.0005, 0.001, 0.002}

	fmt.Println("benchmarking chains (1s simulated each)")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINKS\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, n := range lengths {
		for _, stepSize := range dts {
			cfg := config.Chain(n, -3*math.Pi/180)
			cfg.Dt = stepSize
			sys, err := cfg.Build()
			if err != nil {
				return err
			}

			simulator := sim.New(sys, cfg.NewIntegrator())
			benchCfg := simConfig(cfg)
			benchCfg.Duration = 1.0
			start := time.Now()
			result, err := simulator.Run(context.Background(), sys.InitialState(), benchCfg)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%d\t%.4fs\t%d\t%v\t%.0f\n",
				n, stepSize, result.StepsTaken, elapsed,
				float64(result.StepsTaken)/elapsed.Seconds())
		}
	}

	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	name := "pendulum"
	if len(args) > 0 {
		name = args[0]
	}

	fmt.Printf("comparing integrators on %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tENERGY_DRIFT\tWORST_GAP\tTIME")

	for _, integName := range []string{"rk4", "euler"} {
		cfg, ok := config.Preset(name)
		if !ok {
			return fmt.Errorf("unknown preset %q", name)
		}
		cfg.Integrator = integName

		sys, err := cfg.Build()
		if err != nil {
			return err
		}

		simulator := sim.New(sys, cfg.NewIntegrator())
		simulator.AddMetric(metrics.NewEnergyDrift(sys))
		simulator.AddMetric(metrics.NewConstraintViolation(sys))

		start := time.Now()
		result, err := simulator.Run(context.Background(), sys.InitialState(), simConfig(cfg))
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", integName, err)
			continue
		}

		fmt.Fprintf(w, "%s\t%.3e\t%.3e\t%v\n",
			integName,
			result.Metrics["energy_drift"],
			result.Metrics["constraint_violation"],
			elapsed)
	}

	return w.Flush()
}
