package compose

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/fogleman/gg"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/overlay"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

var blue = color.RGBA{0, 0, 255, 255}

func annotation(text string, x, y, w, h float64, size int) overlay.Annotation {
	return overlay.Annotation{
		ID:     1,
		X:      x,
		Y:      y,
		Width:  w,
		Height: h,
		Text:   text,
		Style: overlay.Style{
			Color:      "#ffffff",
			FontSize:   size,
			FontFamily: overlay.FontImpact,
		},
	}
}

// changedBounds returns the bounding box of pixels that differ from base.
func changedBounds(img, base *image.RGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != base.RGBAAt(x, y) {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestPlace(t *testing.T) {
	a := annotation("Top", 100, 50, 200, 60, 32)
	a.Rotation = 90

	tests := []struct {
		name           string
		scaleX, scaleY float64
		want           Placement
	}{
		{
			name:   "identity",
			scaleX: 1, scaleY: 1,
			want: Placement{X: 100, Y: 50, Width: 200, Height: 60, CenterX: 200, CenterY: 80, FontSize: 32, StrokeWidth: 32.0 / 15},
		},
		{
			name:   "uniform",
			scaleX: 2, scaleY: 2,
			want: Placement{X: 200, Y: 100, Width: 400, Height: 120, CenterX: 400, CenterY: 160, FontSize: 64, StrokeWidth: 64.0 / 15},
		},
		{
			name:   "non-uniform uses the smaller scale for text",
			scaleX: 2, scaleY: 3,
			want: Placement{X: 200, Y: 150, Width: 400, Height: 180, CenterX: 400, CenterY: 240, FontSize: 64, StrokeWidth: 64.0 / 15},
		},
		{
			name:   "downscale hits the minimum stroke",
			scaleX: 0.5, scaleY: 0.5,
			want: Placement{X: 50, Y: 25, Width: 100, Height: 30, CenterX: 100, CenterY: 40, FontSize: 16, StrokeWidth: MinStrokeWidth},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Radians = math.Pi / 2
			got := Place(a, tt.scaleX, tt.scaleY)
			if !placementEqual(got, tt.want) {
				t.Errorf("Place() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func placementEqual(a, b Placement) bool {
	eq := func(x, y float64) bool { return math.Abs(x-y) < 1e-9 }
	return eq(a.X, b.X) && eq(a.Y, b.Y) && eq(a.Width, b.Width) && eq(a.Height, b.Height) &&
		eq(a.CenterX, b.CenterX) && eq(a.CenterY, b.CenterY) && eq(a.FontSize, b.FontSize) &&
		eq(a.StrokeWidth, b.StrokeWidth) && eq(a.Radians, b.Radians)
}

func TestStrokeWidth(t *testing.T) {
	tests := []struct {
		size int
		want float64
	}{
		{12, 2},
		{30, 2},
		{45, 3},
		{120, 8},
	}
	for _, tt := range tests {
		got := Place(annotation("x", 0, 0, 10, 10, tt.size), 1, 1).StrokeWidth
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("StrokeWidth(size %d) = %v, want %v", tt.size, got, tt.want)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	c := New(Options{})
	ctx := context.Background()

	_, err := c.Render(ctx, nil, nil, 700, 500)
	if !errs.Is(err, errs.ErrCodeNoBaseImage) {
		t.Errorf("Render(nil base) error = %v, want NO_BASE_IMAGE", err)
	}

	_, err = c.Render(ctx, solid(10, 10, blue), nil, 0, 500)
	if !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Render(zero preview) error = %v, want INVALID_INPUT", err)
	}
}

func TestRenderNativeSizeWithoutAnnotations(t *testing.T) {
	base := solid(300, 200, blue)
	got, err := New(Options{}).Render(context.Background(), base, nil, 150, 100)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != base.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), base.Bounds())
	}
	if !bytes.Equal(got.Pix, base.Pix) {
		t.Error("base image should be drawn unscaled and unchanged")
	}
}

func TestRenderDrawsOutlinedText(t *testing.T) {
	base := solid(400, 200, blue)
	a := annotation("MEME", 100, 50, 200, 100, 48)
	got, err := New(Options{}).Render(context.Background(), base, []overlay.Annotation{a}, 400, 200)
	if err != nil {
		t.Fatal(err)
	}

	var fill, outline int
	for y := range 200 {
		for x := range 400 {
			c := got.RGBAAt(x, y)
			if c.R > 240 && c.G > 240 && c.B > 240 {
				fill++
			}
			if c.R < 16 && c.G < 16 && c.B < 16 {
				outline++
			}
		}
	}
	if fill == 0 {
		t.Error("expected fill-colored pixels")
	}
	if outline == 0 {
		t.Error("expected outline pixels")
	}
}

func TestRenderScalesToNative(t *testing.T) {
	// Preview 200x100 over an 800x400 image: scale 4 in both axes.
	base := solid(800, 400, blue)
	a := annotation("XX", 20, 10, 100, 40, 20)
	got, err := New(Options{}).Render(context.Background(), base, []overlay.Annotation{a}, 200, 100)
	if err != nil {
		t.Fatal(err)
	}

	r := changedBounds(got, base)
	if r.Empty() {
		t.Fatal("nothing drawn")
	}
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	if math.Abs(cx-280) > 10 || math.Abs(cy-120) > 10 {
		t.Errorf("text centred at (%.0f, %.0f), want near (280, 120)", cx, cy)
	}
	// 80px text: well over 40px tall once scaled.
	if r.Dy() < 40 {
		t.Errorf("text height %d, want scaled font", r.Dy())
	}
}

func TestRenderAppliesRotation(t *testing.T) {
	base := solid(400, 400, blue)
	a := annotation("IIIIIIIIII", 100, 170, 200, 60, 40)

	flat, err := New(Options{}).Render(context.Background(), base, []overlay.Annotation{a}, 400, 400)
	if err != nil {
		t.Fatal(err)
	}
	a.Rotation = 90
	rotated, err := New(Options{}).Render(context.Background(), base, []overlay.Annotation{a}, 400, 400)
	if err != nil {
		t.Fatal(err)
	}

	fr := changedBounds(flat, base)
	rr := changedBounds(rotated, base)
	if fr.Dx() <= fr.Dy() {
		t.Fatalf("unrotated text bounds %v should be wider than tall", fr)
	}
	if rr.Dy() <= rr.Dx() {
		t.Errorf("rotated text bounds %v should be taller than wide", rr)
	}
}

func TestRenderRotationDoesNotLeak(t *testing.T) {
	base := solid(600, 300, blue)
	rotated := annotation("AB", 20, 20, 160, 60, 30)
	rotated.Rotation = 45
	plain := annotation("CD", 380, 200, 160, 60, 30)
	plain.ID = 2

	c := New(Options{})
	both, err := c.Render(context.Background(), base, []overlay.Annotation{rotated, plain}, 600, 300)
	if err != nil {
		t.Fatal(err)
	}
	alone, err := c.Render(context.Background(), base, []overlay.Annotation{plain}, 600, 300)
	if err != nil {
		t.Fatal(err)
	}

	region := image.Rect(300, 150, 600, 300)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if both.RGBAAt(x, y) != alone.RGBAAt(x, y) {
				t.Fatalf("pixel (%d, %d) differs: earlier transform leaked into later annotation", x, y)
			}
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	base := solid(320, 240, blue)
	anns := []overlay.Annotation{
		annotation("Top\ntext", 10, 10, 200, 60, 28),
		annotation("Bottom", 60, 150, 200, 60, 36),
	}
	anns[1].ID = 2
	anns[1].Rotation = 30
	anns[1].Color = "#f00"
	anns[1].FontFamily = overlay.FontComicSans

	c := New(Options{})
	a, err := c.Render(context.Background(), base, anns, 320, 240)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Render(context.Background(), base, anns, 320, 240)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical inputs produced different pixels")
	}
}

func TestRenderSkipsBlankText(t *testing.T) {
	base := solid(100, 100, blue)
	a := annotation("   ", 10, 10, 50, 50, 32)
	got, err := New(Options{}).Render(context.Background(), base, []overlay.Annotation{a}, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Pix, base.Pix) {
		t.Error("blank annotation should draw nothing")
	}
}

func TestSetTextColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#ffffff", color.RGBA{255, 255, 255, 255}},
		{"#F00", color.RGBA{255, 0, 0, 255}},
		{"#1a2B3c", color.RGBA{0x1a, 0x2b, 0x3c, 255}},
		{"red", color.RGBA{255, 255, 255, 255}},
		{"", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dc := gg.NewContext(1, 1)
			setTextColor(dc, tt.in)
			dc.Clear()
			if got := dc.Image().At(0, 0); got != tt.want {
				t.Errorf("setTextColor(%q) painted %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderDataURL(t *testing.T) {
	base := solid(64, 64, blue)
	url, err := New(Options{}).RenderDataURL(context.Background(), base, nil, 64, 64, FormatPNG, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("RenderDataURL() = %.30q..., want PNG data URL", url)
	}
}
