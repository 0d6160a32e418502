package export

import (
	"io"

	"github.com/fogleman/gg"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
)

// SnapshotToPNG rasterizes the same picture as SnapshotToSVG and encodes it
// as PNG.
func SnapshotToPNG(w io.Writer, bodies []dynamo.Body, width, height float64, style Style) error {
	return newSnapshotContext(bodies, width, height, style).EncodePNG(w)
}

// SavePNG writes a snapshot PNG to path.
func SavePNG(path string, bodies []dynamo.Body, width, height float64, style Style) error {
	return newSnapshotContext(bodies, width, height, style).SavePNG(path)
}

func newSnapshotContext(bodies []dynamo.Body, width, height float64, style Style) *gg.Context {
	if style.Scale <= 0 {
		style.Scale = 1
	}
	s := style.Scale
	w, h := max(1, int(width*s+0.5)), max(1, int(height*s+0.5))

	dc := gg.NewContext(w, h)
	dc.SetRGB(0.04, 0.04, 0.08)
	dc.Clear()

	dc.SetRGB(0.19, 0.19, 0.28)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(w)-1, float64(h)-1)
	dc.Stroke()

	maxSpeed := maxSpeedOf(bodies)
	for i := range bodies {
		b := &bodies[i]
		if style.ColorBySpeed {
			dc.SetRGB(speedColor(b.Vel.Len(), maxSpeed))
		} else {
			dc.SetHexColor(defaultFill)
		}
		dc.DrawCircle(b.Pos.X*s, b.Pos.Y*s, b.Radius()*s)
		dc.Fill()
	}
	return dc
}
