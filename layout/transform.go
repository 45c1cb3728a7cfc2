package layout

import (
	"fmt"
	"math"
)

// ScaleExtent bounds the zoom factor.
type ScaleExtent struct {
	Min, Max float64
}

// DefaultScaleExtent allows zooming from half to double size.
var DefaultScaleExtent = ScaleExtent{Min: 0.5, Max: 2}

// Clamp limits k to the extent.
func (e ScaleExtent) Clamp(k float64) float64 {
	if e.Min > 0 && k < e.Min {
		return e.Min
	}
	if e.Max > 0 && k > e.Max {
		return e.Max
	}
	return k
}

// Transform is a pan/zoom applied at draw time: screen = layout*K + (X,Y).
type Transform struct {
	X, Y, K float64
}

// Identity is the untransformed view.
var Identity = Transform{K: 1}

// Apply maps a point into screen space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point back into layout space.
func (t Transform) Invert(x, y float64) (float64, float64) {
	k := t.K
	if k == 0 {
		k = 1
	}
	return (x - t.X) / k, (y - t.Y) / k
}

// ScaleBy zooms by factor around the screen point (cx, cy), keeping that point fixed.
func (t Transform) ScaleBy(factor, cx, cy float64, extent ScaleExtent) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	k := extent.Clamp(t.K * factor)
	px, py := t.Invert(cx, cy)
	return Transform{X: cx - px*k, Y: cy - py*k, K: k}
}

// Translate pans by (dx, dy) screen units.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{X: t.X + dx, Y: t.Y + dy, K: t.K}
}

// String renders the transform as an SVG transform attribute.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", formatFloat(t.X), formatFloat(t.Y), formatFloat(t.K))
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6g", v)
}
