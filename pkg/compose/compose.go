package compose

import (
	"context"
	"image"
	"image/color"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/observability"
	"github.com/matzehuels/memeforge/pkg/overlay"
)

// Options configures a Compositor.
type Options struct {
	Fonts  *FontSet    // nil uses the bundled fonts
	Logger *log.Logger // nil discards
}

// Compositor renders annotations onto base images. It holds no per-render
// state and is safe for concurrent use.
type Compositor struct {
	fonts  *FontSet
	logger *log.Logger
}

// New creates a Compositor.
func New(opts Options) *Compositor {
	if opts.Fonts == nil {
		opts.Fonts = NewFontSet()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Compositor{fonts: opts.Fonts, logger: opts.Logger}
}

// Render draws anns over base at the base image's native size. Annotation
// geometry is interpreted relative to a preview of previewW x previewH.
func (c *Compositor) Render(ctx context.Context, base image.Image, anns []overlay.Annotation, previewW, previewH float64) (*image.RGBA, error) {
	hooks := observability.Render()
	hooks.OnRenderStart(ctx, len(anns))
	start := time.Now()

	img, err := c.render(base, anns, previewW, previewH)

	var w, h int
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	hooks.OnRenderComplete(ctx, w, h, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("composited meme",
		"width", w,
		"height", h,
		"annotations", len(anns),
		"duration", time.Since(start))
	return img, nil
}

// RenderDataURL renders and encodes in one step.
func (c *Compositor) RenderDataURL(ctx context.Context, base image.Image, anns []overlay.Annotation, previewW, previewH float64, format Format, quality int) (string, error) {
	img, err := c.Render(ctx, base, anns, previewW, previewH)
	if err != nil {
		return "", err
	}
	return Encode(img, format, quality)
}

func (c *Compositor) render(base image.Image, anns []overlay.Annotation, previewW, previewH float64) (*image.RGBA, error) {
	if base == nil {
		return nil, errs.New(errs.ErrCodeNoBaseImage, "no base image loaded")
	}
	b := base.Bounds()
	if b.Empty() {
		return nil, errs.New(errs.ErrCodeNoBaseImage, "base image is empty")
	}
	if previewW <= 0 || previewH <= 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "preview size must be positive, got %gx%g", previewW, previewH)
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	dc := gg.NewContextForRGBA(dst)
	dc.DrawImage(base, -b.Min.X, -b.Min.Y)

	scaleX := float64(b.Dx()) / previewW
	scaleY := float64(b.Dy()) / previewH
	for _, a := range anns {
		if err := c.draw(dc, a, Place(a, scaleX, scaleY)); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// draw renders one annotation inside its own Push/Pop so the transform
// does not carry over to the next annotation.
func (c *Compositor) draw(dc *gg.Context, a overlay.Annotation, p Placement) error {
	if strings.TrimSpace(a.Text) == "" || p.FontSize <= 0 {
		return nil
	}
	face, err := c.fonts.Face(a.FontFamily, p.FontSize)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "load font %s", a.FontFamily.Label())
	}
	defer face.Close()

	dc.Push()
	defer dc.Pop()
	dc.Translate(p.CenterX, p.CenterY)
	dc.Rotate(p.Radians)
	dc.SetFontFace(face)

	// Centre the block of lines on the origin using the face metrics, so the
	// middle of the ascent/descent box sits on the centre like a canvas
	// "middle" baseline.
	m := face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	lineHeight := float64(m.Height) / 64
	lines := strings.Split(a.Text, "\n")
	first := -lineHeight*float64(len(lines)-1)/2 + (ascent-descent)/2

	dc.SetColor(color.Black)
	for _, off := range outlineOffsets(p.StrokeWidth / 2) {
		for i, line := range lines {
			dc.DrawStringAnchored(line, off.X, first+float64(i)*lineHeight+off.Y, 0.5, 0)
		}
	}

	setTextColor(dc, a.Color)
	for i, line := range lines {
		dc.DrawStringAnchored(line, 0, first+float64(i)*lineHeight, 0.5, 0)
	}
	return nil
}

// outlineOffsets returns the positions at which the outline copy of the text
// is stamped. Points on a circle give the round joins of a stroked path.
func outlineOffsets(r float64) []gg.Point {
	if r <= 0 {
		return nil
	}
	var pts []gg.Point
	for _, radius := range []float64{r, r / 2} {
		n := max(8, int(math.Ceil(2*math.Pi*radius)))
		for i := range n {
			t := 2 * math.Pi * float64(i) / float64(n)
			pts = append(pts, gg.Point{X: radius * math.Cos(t), Y: radius * math.Sin(t)})
		}
	}
	return pts
}

// setTextColor selects a #rgb or #rrggbb fill, falling back to the default
// annotation color.
func setTextColor(dc *gg.Context, s string) {
	if errs.ValidateColor(s) != nil {
		s = overlay.DefaultColor
	}
	dc.SetHexColor(s)
}
