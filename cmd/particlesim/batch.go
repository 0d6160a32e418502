package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/landcbrown/ParticleSim/internal/automation"
	"github.com/landcbrown/ParticleSim/internal/experiment"
	"github.com/landcbrown/ParticleSim/internal/optim"
	"github.com/landcbrown/ParticleSim/internal/storage"
)

var (
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
	sweepMetric string

	searchGrid   []string
	searchMetric string

	scriptSave bool
)

func batchCommands() []*cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one parameter and tabulate the metrics",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "temperature", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.5, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 2, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 4, "number of values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "contacts_per_tick", "metric to plot")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "points in flight (0 = GOMAXPROCS)")

	searchCmd := &cobra.Command{
		Use:     "search",
		Short:   "grid search for the parameters minimising a metric",
		Example: "  particlesim search --grid bodies=20,40,80 --grid radius=4,8 --metric energy_drift",
		Args:    cobra.NoArgs,
		RunE:    runSearch,
	}
	addSimFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&searchGrid, "grid", nil, "name=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&searchMetric, "metric", "energy_drift", "metric to minimise")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run the steps of a YAML script in order",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	scriptCmd.Flags().BoolVar(&scriptSave, "save", true, "store every finished step")

	return []*cobra.Command{sweepCmd, searchCmd, scriptCmd}
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.Sweep{
		Base:  cfg.Experiment(),
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
		Limit: parallel,
	}, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tCONTACTS\tWALL HITS\tENERGY DRIFT\n", strings.ToUpper(sweepParam), strings.ToUpper(sweepMetric))
	for _, r := range results {
		v, ok := r.Metrics[sweepMetric]
		if !ok {
			return fmt.Errorf("unknown metric %s", sweepMetric)
		}
		fmt.Fprintf(w, "%g\t%.6f\t%d\t%d\t%.3e\n", r.Value, v, r.TotalContacts, r.TotalWallHits, r.EnergyDrift)
	}
	return w.Flush()
}

// parseGrid reads name=v1,v2 entries in the order given.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid entry %q, want name=v1,v2", e)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(searchGrid) == 0 {
		return fmt.Errorf("at least one --grid is required (parameters: %s)", strings.Join(experiment.ParamNames(), ", "))
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(searchGrid)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	out, err := g.Search(ctx, cfg.Experiment(), searchMetric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d points, skipped %d\n", out.Evaluated, out.Skipped)
	fmt.Printf("best %s: %.6g\n", searchMetric, out.Value)
	keys := make([]string, 0, len(out.Params))
	for k := range out.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %g\n", k, out.Params[k])
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	results, runErr := automation.RunScript(ctx, script, logger)

	st := storage.New(dataDir)
	if scriptSave && len(results) > 0 {
		if err := st.Init(); err != nil {
			return err
		}
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tBODIES\tSTEPS\tCONTACTS\tENERGY DRIFT\tRUN ID")
	for _, r := range results {
		id := "-"
		if scriptSave {
			c := r.Config
			id, err = st.Save(storage.RunInfo{
				Scenario: c.Scenario,
				Width:    c.Width,
				Height:   c.Height,
				CellSize: c.CellSize,
				Dt:       c.Dt,
				Duration: c.Duration,
				Seed:     c.Seed,
			}, r.Result)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.3e\t%s\n",
			r.Name, r.Config.Scenario, r.Config.Count, r.Result.StepsTaken,
			r.Result.Stats.TotalContacts, r.Result.EnergyDrift, id)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}
