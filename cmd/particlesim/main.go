package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landcbrown/ParticleSim/internal/config"
	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/experiment"
	"github.com/landcbrown/ParticleSim/internal/logging"
	"github.com/landcbrown/ParticleSim/internal/server"
	"github.com/landcbrown/ParticleSim/internal/sim"
	"github.com/landcbrown/ParticleSim/internal/storage"
	"github.com/landcbrown/ParticleSim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logDev     bool

	logger = zap.NewNop()

	// Simulation overrides; applied only when set on the command line.
	scenario    string
	count       int
	dt          float64
	duration    float64
	seed        int64
	width       float64
	height      float64
	cellSize    float64
	sampleEvery int
	temperature float64

	// live
	frameRate int
	theme     string

	// serve
	addr           string
	broadcastEvery int

	// bench / ensemble
	benchSteps  int
	benchCounts []int
	numRuns     int
	parallel    int
)

// main wires up the particlesim CLI. With no subcommand it opens the preset
// picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "particlesim",
		Short:         "elastic collisions of circular bodies in a box",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logDev)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".particlesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human-readable console logs")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "watch a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 60, "frame rate")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run a simulation behind an HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().IntVar(&broadcastEvery, "broadcast-every", 2, "ticks per websocket frame")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure step throughput at several body counts",
		Args:  cobra.NoArgs,
		RunE:  benchEngine,
	}
	addSimFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchSteps, "steps", 1000, "steps per measurement")
	benchCmd.Flags().IntSliceVar(&benchCounts, "counts", []int{50, 200, 800, 3200}, "body counts")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run several seeds of one configuration in parallel",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeds")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 0, "runs in flight (default GOMAXPROCS, 0 = unlimited)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tSCENARIO\tBODIES\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, cfg.Scenario, cfg.Bodies.Count, config.Presets[name].Description)
			}
			return w.Flush()
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list seeding scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tDESCRIPTION")
			for _, s := range experiment.NewRegistry().List() {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
			}
			return w.Flush()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the effective configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addSimFlags(initCmd)

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, benchCmd, ensembleCmd, presetsCmd, scenariosCmd, initCmd)
	rootCmd.AddCommand(runsCommands()...)
	rootCmd.AddCommand(batchCommands()...)

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&scenario, "scenario", config.DefaultScenario, "seeding scenario")
	f.IntVar(&count, "bodies", config.DefaultCount, "number of bodies")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.Float64Var(&width, "width", config.DefaultWidth, "arena width")
	f.Float64Var(&height, "height", config.DefaultHeight, "arena height")
	f.Float64Var(&cellSize, "cell", config.DefaultCellSize, "grid cell size")
	f.IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "ticks between recorded samples")
	f.Float64Var(&temperature, "temperature", config.DefaultTemperature, "reference temperature of the seeded velocities")
}

// resolveConfig layers defaults, then a preset, then a config file, then
// any flags set explicitly on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("scenario") {
		cfg.Scenario = scenario
	}
	if flags.Changed("bodies") {
		cfg.Bodies.Count = count
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("width") {
		cfg.Arena.Width = width
	}
	if flags.Changed("height") {
		cfg.Arena.Height = height
	}
	if flags.Changed("cell") {
		cfg.Arena.CellSize = cellSize
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("temperature") {
		cfg.Temperature.Reference = temperature
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ecfg := cfg.Experiment()
	exp := experiment.New(ecfg, logger)
	if err := exp.Setup(experiment.DefaultMetrics(ecfg)); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("running %s with %d bodies...\n", cfg.Scenario, exp.Engine().Len())
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunInfo{
		Scenario: cfg.Scenario,
		Width:    cfg.Arena.Width,
		Height:   cfg.Arena.Height,
		CellSize: cfg.Arena.CellSize,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Seed:     cfg.Seed,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("contacts: %d  wall hits: %d  degenerate: %d\n",
		result.Stats.TotalContacts, result.Stats.TotalWallHits, result.Stats.Degenerate)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

// liveModel builds the live view for cfg. Each reset reseeds with the next
// seed so r shows a new arrangement.
func liveModel(cfg *config.Config, title string) (viz.Model, error) {
	reg := experiment.NewRegistry()
	ecfg := cfg.Experiment()
	eng, err := experiment.Build(reg, ecfg)
	if err != nil {
		return viz.Model{}, err
	}
	next := ecfg.Seed
	restart := func() (*engine.Engine, error) {
		next++
		c := ecfg
		c.Seed = next
		return experiment.Build(reg, c)
	}
	return viz.NewModel(eng, viz.Options{
		Title:    title,
		Dt:       cfg.Dt,
		TempStep: cfg.Temperature.Step,
		Theme:    theme,
		FPS:      frameRate,
		Restart:  restart,
	}), nil
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		preset = args[0]
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	title := cfg.Scenario
	if preset != "" {
		title = preset
	}
	m, err := liveModel(cfg, title)
	if err != nil {
		return err
	}
	return viz.Run(m)
}

func runPicker() error {
	names := config.ListPresets()
	choices := make([]viz.Choice, len(names))
	for i, name := range names {
		choices[i] = viz.Choice{Name: name, Description: config.Presets[name].Description}
	}
	return viz.RunPicker(viz.NewPicker(choices, func(name string) (viz.Model, error) {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return viz.Model{}, fmt.Errorf("unknown preset: %s", name)
		}
		return liveModel(cfg, name)
	}))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := experiment.Build(experiment.NewRegistry(), cfg.Experiment(), engine.WithLogger(logger.Named("engine")))
	if err != nil {
		return err
	}

	srv := server.New(eng, server.Config{
		Addr:           cfg.Server.Addr,
		Dt:             cfg.Dt,
		TickInterval:   cfg.Server.TickInterval,
		BroadcastEvery: broadcastEvery,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RPS,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, logger)

	ctx, stop := signalContext()
	defer stop()
	fmt.Printf("serving %s (%d bodies) on %s\n", cfg.Scenario, eng.Len(), cfg.Server.Addr)
	return srv.Run(ctx)
}

func benchEngine(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if benchSteps < 1 {
		return fmt.Errorf("steps must be positive")
	}
	reg := experiment.NewRegistry()

	fmt.Printf("benchmarking %s, %d steps per run\n\n", cfg.Scenario, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODIES\tARENA\tSTEPS\tTIME\tSTEPS/SEC\tCONTACTS/TICK")

	for _, n := range benchCounts {
		// Keep the density of the base configuration.
		ecfg := cfg.Experiment()
		scale := math.Sqrt(float64(n) / float64(max(cfg.Bodies.Count, 1)))
		ecfg.Count = n
		ecfg.Width *= scale
		ecfg.Height *= scale

		eng, err := experiment.Build(reg, ecfg)
		if err != nil {
			return fmt.Errorf("%d bodies: %w", n, err)
		}
		start := time.Now()
		for range benchSteps {
			if err := eng.Step(ecfg.Dt); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		stats := eng.Stats()

		fmt.Fprintf(w, "%d\t%.0fx%.0f\t%d\t%v\t%.0f\t%.2f\n",
			n, ecfg.Width, ecfg.Height, benchSteps, elapsed.Round(time.Microsecond),
			float64(benchSteps)/elapsed.Seconds(),
			float64(stats.TotalContacts)/float64(benchSteps))
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if numRuns < 1 {
		return fmt.Errorf("runs must be positive")
	}
	ecfg := cfg.Experiment()
	exp := experiment.New(ecfg, logger)

	ens := sim.NewEnsemble(exp.Builder(), func() []sim.Metric { return experiment.DefaultMetrics(ecfg) }, numRuns, cfg.Seed)
	if cmd.Flags().Changed("parallel") {
		ens.SetLimit(parallel)
	}

	ctx, stop := signalContext()
	defer stop()

	start := time.Now()
	results, err := ens.Run(ctx, sim.Config{Dt: cfg.Dt, Duration: cfg.Duration, SampleEvery: cfg.SampleEvery})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tCONTACTS\tWALL HITS\tENERGY DRIFT\tCONTACTS/TICK")
	var drift, rate float64
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.3e\t%.3f\n",
			r.Seed, r.StepsTaken, r.Stats.TotalContacts, r.Stats.TotalWallHits,
			r.EnergyDrift, r.Metrics["contacts_per_tick"])
		drift = max(drift, r.EnergyDrift)
		rate += r.Metrics["contacts_per_tick"]
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d runs in %v, worst energy drift %.3e, mean contacts/tick %.3f\n",
		len(results), elapsed.Round(time.Millisecond), drift, rate/float64(len(results)))
	return nil
}
