package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
	"github.com/landcbrown/ParticleSim/internal/engine"
	"github.com/landcbrown/ParticleSim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	seriesFile   = "series.csv"
)

var (
	framesHeader = []string{"tick", "time", "body", "x", "y", "vx", "vy", "radius", "mass"}
	seriesHeader = []string{"tick", "time", "kinetic_energy", "momentum_x", "momentum_y", "contacts"}
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a run was configured.
type RunInfo struct {
	Scenario string
	Width    float64
	Height   float64
	CellSize float64
	Dt       float64
	Duration float64
	Seed     int64
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	CellSize    float64            `json:"cell_size"`
	Bodies      int                `json:"bodies"`
	Steps       int                `json:"steps"`
	EnergyDrift float64            `json:"energy_drift"`
	Stats       engine.Stats       `json:"stats"`
	Metrics     map[string]float64 `json:"metrics"`
}

// SeriesRow is one line of series.csv.
type SeriesRow struct {
	Tick          uint64     `json:"tick"`
	Time          float64    `json:"time"`
	KineticEnergy float64    `json:"kinetic_energy"`
	Momentum      dynamo.Vec `json:"momentum"`
	Contacts      int        `json:"contacts"`
}

// Frame is every body at one recorded tick.
type Frame struct {
	Tick   uint64        `json:"tick"`
	Time   float64       `json:"time"`
	Bodies []dynamo.Body `json:"-"`
}

// Save writes a run directory holding metadata.json, frames.csv and
// series.csv, and returns the run ID.
func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	runID, runDir, err := s.newRunDir(info)
	if err != nil {
		return "", err
	}

	bodies := 0
	if final, ok := result.Final(); ok {
		bodies = len(final.Bodies)
	}

	meta := RunMetadata{
		ID:          runID,
		Scenario:    info.Scenario,
		Timestamp:   time.Now(),
		Seed:        info.Seed,
		Dt:          info.Dt,
		Duration:    info.Duration,
		Width:       info.Width,
		Height:      info.Height,
		CellSize:    info.CellSize,
		Bodies:      bodies,
		Steps:       result.StepsTaken,
		EnergyDrift: result.EnergyDrift,
		Stats:       result.Stats,
		Metrics:     result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, framesFile), result.Samples); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

// newRunDir creates <scenario>_<unix>_<seed>, adding a numeric suffix if a
// run with the same name already exists.
func (s *Store) newRunDir(info RunInfo) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d_%d", info.Scenario, time.Now().Unix(), info.Seed)
	id := base
	for i := 1; ; i++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
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

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func writeFrames(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(framesHeader); err != nil {
		return err
	}
	for _, s := range samples {
		tick := strconv.FormatUint(s.Tick, 10)
		for i, b := range s.Bodies {
			row := []string{
				tick, ff(s.Time), strconv.Itoa(i),
				ff(b.Pos.X), ff(b.Pos.Y), ff(b.Vel.X), ff(b.Vel.Y),
				ff(b.Radius()), ff(b.Mass()),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func writeSeries(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(seriesHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatUint(s.Tick, 10), ff(s.Time), ff(s.KineticEnergy),
			ff(s.Momentum.X), ff(s.Momentum.Y), strconv.Itoa(s.Contacts),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func (s *Store) LoadSeries(runID string) ([]SeriesRow, error) {
	records, err := s.readCSV(runID, seriesFile)
	if err != nil {
		return nil, err
	}

	rows := make([]SeriesRow, 0, len(records))
	for line, rec := range records {
		var p parser
		row := SeriesRow{
			Tick:          p.uint(rec[0]),
			Time:          p.float(rec[1]),
			KineticEnergy: p.float(rec[2]),
			Momentum:      dynamo.Vec{X: p.float(rec[3]), Y: p.float(rec[4])},
			Contacts:      p.int(rec[5]),
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", seriesFile, line+2, p.err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadFrames rebuilds the recorded bodies, grouped by tick in file order.
func (s *Store) LoadFrames(runID string) ([]Frame, error) {
	records, err := s.readCSV(runID, framesFile)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0)
	for line, rec := range records {
		var p parser
		tick := p.uint(rec[0])
		t := p.float(rec[1])
		x, y := p.float(rec[3]), p.float(rec[4])
		vx, vy := p.float(rec[5]), p.float(rec[6])
		r, m := p.float(rec[7]), p.float(rec[8])
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, line+2, p.err)
		}

		b, err := dynamo.NewBody(x, y, vx, vy, r, m)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, line+2, err)
		}

		if n := len(frames); n == 0 || frames[n-1].Tick != tick {
			frames = append(frames, Frame{Tick: tick, Time: t})
		}
		last := &frames[len(frames)-1]
		last.Bodies = append(last.Bodies, b)
	}
	return frames, nil
}

// parser keeps the first conversion error so a row can be parsed in one go.
type parser struct{ err error }

func (p *parser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) uint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) int(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}
