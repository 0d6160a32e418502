package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/landcbrown/ParticleSim/internal/export"
	"github.com/landcbrown/ParticleSim/internal/storage"
)

var (
	jsonOut      string
	renderOut    string
	withFrames   bool
	csvWhat      string
	plotSVG      string
	renderFrame  int
	colorBySpeed bool
	renderScale  float64
)

// runsCommands are the commands that read stored runs.
func runsCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run-id]",
		Short: "plot energy, momentum and contacts of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotSVG, "svg", "", "also write the kinetic energy curve to this SVG file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run-id]",
		Short: "export a run as one JSON document",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&jsonOut, "out", "o", "", "output file (default stdout)")
	exportJSONCmd.Flags().BoolVar(&withFrames, "frames", false, "include every recorded body")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run-id]",
		Short: "write a run's series or frames CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).CopyCSV(args[0], csvWhat, os.Stdout)
		},
	}
	exportCSVCmd.Flags().StringVar(&csvWhat, "what", "series", "series or frames")

	renderCmd := &cobra.Command{
		Use:   "render [run-id]",
		Short: "draw one recorded frame as SVG or PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "frame.svg", "output file (.svg or .png)")
	renderCmd.Flags().IntVar(&renderFrame, "frame", -1, "frame index (negative counts from the end)")
	renderCmd.Flags().BoolVar(&colorBySpeed, "color-by-speed", true, "shade bodies by speed")
	renderCmd.Flags().Float64Var(&renderScale, "scale", 1, "pixels per arena unit")

	return []*cobra.Command{listCmd, plotCmd, exportJSONCmd, exportCSVCmd, renderCmd}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tBODIES\tSTEPS\tCONTACTS\tDRIFT\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2e\t%s\n",
			r.ID, r.Scenario, r.Bodies, r.Steps, r.Stats.TotalContacts, r.EnergyDrift,
			r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(rows) < 2 {
		return fmt.Errorf("run %s has too few samples to plot", args[0])
	}

	energy := make([]float64, len(rows))
	momentum := make([]float64, len(rows))
	contacts := make([]float64, len(rows))
	for i, r := range rows {
		energy[i] = r.KineticEnergy
		momentum[i] = r.Momentum.Len()
		contacts[i] = float64(r.Contacts)
	}

	fmt.Printf("%s  %s, %d bodies, %d steps\n\n", meta.ID, meta.Scenario, meta.Bodies, meta.Steps)
	for _, s := range []struct {
		title  string
		values []float64
	}{
		{"kinetic energy", energy},
		{"|momentum|", momentum},
		{"contacts per tick", contacts},
	} {
		fmt.Println(asciigraph.Plot(s.values,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(s.title),
		))
		fmt.Println()
	}

	if plotSVG != "" {
		svg := export.SeriesToSVG(energy, 800, 300, "#00cccc")
		if err := os.WriteFile(plotSVG, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", plotSVG)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	data, err := storage.New(dataDir).Export(args[0], withFrames)
	if err != nil {
		return err
	}
	if jsonOut == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(jsonOut, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", jsonOut)
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames", args[0])
	}
	i := renderFrame
	if i < 0 {
		i += len(frames)
	}
	if i < 0 || i >= len(frames) {
		return fmt.Errorf("frame %d out of range (run has %d)", renderFrame, len(frames))
	}
	frame := frames[i]

	style := export.DefaultStyle()
	style.ColorBySpeed = colorBySpeed
	style.Scale = renderScale

	switch strings.ToLower(filepath.Ext(renderOut)) {
	case ".png":
		err = export.SavePNG(renderOut, frame.Bodies, meta.Width, meta.Height, style)
	case ".svg":
		svg := export.SnapshotToSVG(frame.Bodies, meta.Width, meta.Height, style)
		err = os.WriteFile(renderOut, []byte(svg), 0644)
	default:
		return fmt.Errorf("unsupported output format %q (want .svg or .png)", filepath.Ext(renderOut))
	}
	if err != nil {
		return err
	}
	fmt.Printf("rendered tick %d (t=%.3f) to %s\n", frame.Tick, frame.Time, renderOut)
	return nil
}
