package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type BodyState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Radius float64 `json:"r"`
	Mass   float64 `json:"m"`
}

type ExportFrame struct {
	Tick   uint64      `json:"tick"`
	Time   float64     `json:"time"`
	Bodies []BodyState `json:"bodies"`
}

type ExportData struct {
	Run    RunMetadata   `json:"run"`
	Series []SeriesRow   `json:"series"`
	Frames []ExportFrame `json:"frames,omitempty"`
}

// Export gathers a stored run into one document. Frames are included only
// when withFrames is set; they dominate the size.
func (s *Store) Export(runID string, withFrames bool) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	series, err := s.LoadSeries(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{Run: *meta, Series: series}
	if !withFrames {
		return data, nil
	}

	frames, err := s.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	data.Frames = make([]ExportFrame, len(frames))
	for i, f := range frames {
		ef := ExportFrame{Tick: f.Tick, Time: f.Time, Bodies: make([]BodyState, len(f.Bodies))}
		for j, b := range f.Bodies {
			ef.Bodies[j] = BodyState{
				X: b.Pos.X, Y: b.Pos.Y,
				VX: b.Vel.X, VY: b.Vel.Y,
				Radius: b.Radius(), Mass: b.Mass(),
			}
		}
		data.Frames[i] = ef
	}
	return data, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

// CopyCSV streams one of the run's CSV files ("frames" or "series") to w.
func (s *Store) CopyCSV(runID, which string, w io.Writer) error {
	var name string
	switch which {
	case "frames":
		name = framesFile
	case "series":
		name = seriesFile
	default:
		return fmt.Errorf("unknown csv %q (want frames or series)", which)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
