package overlay

import "math"

// Rotation snapping.
const (
	// SnapThreshold is the distance in degrees within which a rotation
	// snaps to one of SnapAngles.
	SnapThreshold = 5.0
)

// SnapAngles are the rotations that attract a rotating annotation, in the
// order they are tried.
var SnapAngles = []float64{0, 90, 180, 270, -90, -180, -270}

// Snap returns the first snap angle within SnapThreshold of angle, or angle
// itself when none is close enough.
func Snap(angle float64) float64 {
	for _, s := range SnapAngles {
		if math.Abs(angle-s) < SnapThreshold {
			return s
		}
	}
	return angle
}

// Clamp limits v to [lo, hi]. When hi < lo the lower bound wins, which pins
// oversized annotations to the canvas origin.
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// PointerAngle returns the angle in degrees of the vector from (cx, cy) to
// (px, py), in screen coordinates (y grows downward).
func PointerAngle(cx, cy, px, py float64) float64 {
	return math.Atan2(py-cy, px-cx) * 180 / math.Pi
}

// toLocal maps a canvas point into the annotation's unrotated frame, with the
// origin at the annotation's top-left corner.
func toLocal(a Annotation, px, py float64) (x, y float64) {
	cx, cy := a.Center()
	rad := -a.Rotation * math.Pi / 180
	dx, dy := px-cx, py-cy
	sin, cos := math.Sincos(rad)
	return dx*cos - dy*sin + a.Width/2, dx*sin + dy*cos + a.Height/2
}

// ToCanvas maps a point in the annotation's unrotated frame back onto the
// canvas. It is the inverse of the hit-test transform.
func (a Annotation) ToCanvas(x, y float64) (px, py float64) {
	cx, cy := a.Center()
	rad := a.Rotation * math.Pi / 180
	dx, dy := x-a.Width/2, y-a.Height/2
	sin, cos := math.Sincos(rad)
	return dx*cos - dy*sin + cx, dx*sin + dy*cos + cy
}

// Corners returns the canvas positions of the nw, ne, se and sw corners.
func (a Annotation) Corners() [4][2]float64 {
	var out [4][2]float64
	for i, p := range [4][2]float64{{0, 0}, {a.Width, 0}, {a.Width, a.Height}, {0, a.Height}} {
		out[i][0], out[i][1] = a.ToCanvas(p[0], p[1])
	}
	return out
}
