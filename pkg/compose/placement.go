package compose

import (
	"math"

	"github.com/matzehuels/memeforge/pkg/overlay"
)

// MinStrokeWidth is the thinnest outline drawn around text, in native pixels.
const MinStrokeWidth = 2.0

// strokeDivisor relates font size to outline width.
const strokeDivisor = 15.0

// Placement is an annotation's geometry in native image space.
type Placement struct {
	X, Y, Width, Height float64
	CenterX, CenterY    float64
	FontSize            float64
	StrokeWidth         float64
	Radians             float64
}

// Place scales a preview-space annotation by (scaleX, scaleY).
func Place(a overlay.Annotation, scaleX, scaleY float64) Placement {
	p := Placement{
		X:        a.X * scaleX,
		Y:        a.Y * scaleY,
		Width:    a.Width * scaleX,
		Height:   a.Height * scaleY,
		FontSize: float64(a.FontSize) * math.Min(scaleX, scaleY),
		Radians:  a.Rotation * math.Pi / 180,
	}
	p.CenterX = p.X + p.Width/2
	p.CenterY = p.Y + p.Height/2
	p.StrokeWidth = math.Max(MinStrokeWidth, p.FontSize/strokeDivisor)
	return p
}
