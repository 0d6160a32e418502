package export

import (
	"fmt"
	"strings"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
)

// Style controls snapshot rendering.
type Style struct {
	// Scale is output pixels per arena unit.
	Scale float64
	// ColorBySpeed shades bodies from blue (slow) to red (fast).
	ColorBySpeed bool
}

func DefaultStyle() Style {
	return Style{Scale: 1, ColorBySpeed: true}
}

const defaultFill = "#4fc3f7"

// SnapshotToSVG draws every body as a filled circle of radius r centered at
// (x, y) inside the arena rectangle.
func SnapshotToSVG(bodies []dynamo.Body, width, height float64, style Style) string {
	if style.Scale <= 0 {
		style.Scale = 1
	}
	s := style.Scale
	w, h := width*s, height*s

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a14"/>
<rect x="0.5" y="0.5" width="%.1f" height="%.1f" fill="none" stroke="#303048"/>
<g>
`, w, h, w, h, w-1, h-1))

	maxSpeed := maxSpeedOf(bodies)
	for i := range bodies {
		b := &bodies[i]
		fill := defaultFill
		if style.ColorBySpeed {
			r, g, bl := speedColor(b.Vel.Len(), maxSpeed)
			fill = fmt.Sprintf("#%02x%02x%02x", to8(r), to8(g), to8(bl))
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>
`, b.Pos.X*s, b.Pos.Y*s, b.Radius()*s, fill))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesToSVG draws a polyline of values against their index, e.g. kinetic
// energy per recorded sample.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = min(minV, v)
		maxV = max(maxV, v)
	}

	rangeV := maxV - minV
	if rangeV == 0 {
		rangeV = 1
	}
	minV -= rangeV * 0.1
	maxV += rangeV * 0.1
	rangeV = maxV - minV

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a14"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	last := float64(len(values) - 1)
	for i, v := range values {
		x := float64(i) / last * float64(width)
		y := float64(height) - (v-minV)/rangeV*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func maxSpeedOf(bodies []dynamo.Body) float64 {
	m := 0.0
	for i := range bodies {
		m = max(m, bodies[i].Vel.Len())
	}
	return m
}

// speedColor interpolates from blue to red as speed approaches maxSpeed.
func speedColor(speed, maxSpeed float64) (r, g, b float64) {
	t := 0.0
	if maxSpeed > 0 {
		t = min(1, speed/maxSpeed)
	}
	return 0.2 + 0.75*t, 0.45 - 0.2*t, 0.95 - 0.75*t
}

func to8(v float64) uint8 {
	return uint8(max(0, min(255, v*255+0.5)))
}
