package cli

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
)

// canvas maps the preview onto terminal cells. Each cell shows two
// vertically stacked thumbnail pixels with the upper half block, so a cell
// covers pw/cols by ph/rows preview pixels.
type canvas struct {
	top        int // first terminal row of the canvas
	cols, rows int
	pw, ph     float64
}

// fitCanvas sizes a canvas for a pw x ph preview within availCols x
// availRows cells, keeping the preview's aspect ratio.
func fitCanvas(pw, ph float64, availCols, availRows, top int) canvas {
	if pw <= 0 || ph <= 0 || availCols <= 0 || availRows <= 0 {
		return canvas{top: top}
	}
	scale := math.Min(float64(availCols)/pw, float64(2*availRows)/ph)
	cols := max(1, int(pw*scale))
	rows := max(1, (int(ph*scale)+1)/2)
	return canvas{top: top, cols: cols, rows: rows, pw: pw, ph: ph}
}

func (c canvas) empty() bool { return c.cols == 0 || c.rows == 0 }

// toPreview maps the centre of terminal cell (x, y) into preview space.
// ok is false outside the canvas.
func (c canvas) toPreview(x, y int) (px, py float64, ok bool) {
	cx, cy := x, y-c.top
	if c.empty() || cx < 0 || cy < 0 || cx >= c.cols || cy >= c.rows {
		return 0, 0, false
	}
	return (float64(cx) + 0.5) * c.pw / float64(c.cols), (float64(cy) + 0.5) * c.ph / float64(c.rows), true
}

// clampedPreview is toPreview for drags, which may leave the canvas.
func (c canvas) clampedPreview(x, y int) (px, py float64) {
	x = max(0, min(x, c.cols-1))
	y = max(c.top, min(y, c.top+c.rows-1))
	px, py, _ = c.toPreview(x, y)
	return px, py
}

// toCell maps a preview point to canvas-relative cell coordinates.
func (c canvas) toCell(px, py float64) (x, y int) {
	return int(math.Floor(px * float64(c.cols) / c.pw)), int(math.Floor(py * float64(c.rows) / c.ph))
}

// cell is one terminal character of the canvas.
type cell struct {
	ch     rune
	fg, bg lipgloss.Color
}

// paintBackground fills a grid with the half-block rendering of img.
func (c canvas) paintBackground(img image.Image) [][]cell {
	grid := make([][]cell, c.rows)
	var thumb image.Image
	if img != nil {
		thumb = imagesource.Thumbnail(img, c.cols, 2*c.rows)
	}
	for y := range grid {
		grid[y] = make([]cell, c.cols)
		for x := range grid[y] {
			if thumb == nil {
				grid[y][x] = cell{ch: ' ', bg: lipgloss.Color("236")}
				continue
			}
			grid[y][x] = cell{
				ch: '▀',
				fg: hexColor(sample(thumb, x, 2*y, c.cols, 2*c.rows)),
				bg: hexColor(sample(thumb, x, 2*y+1, c.cols, 2*c.rows)),
			}
		}
	}
	return grid
}

// sample picks the pixel of img nearest to (x, y) on a w x h grid.
func sample(img image.Image, x, y, w, h int) color.Color {
	b := img.Bounds()
	sx := b.Min.X + min(b.Dx()-1, x*b.Dx()/w)
	sy := b.Min.Y + min(b.Dy()-1, y*b.Dy()/h)
	return img.At(sx, sy)
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// paintAnnotation draws a's outline and text into grid. Rotated boxes are
// outlined by sampling their edges; the text is drawn horizontally at the
// box centre.
func (c canvas) paintAnnotation(grid [][]cell, a overlay.Annotation, selected bool) {
	fg := lipgloss.Color("255")
	if selected {
		fg = colorCyan
	}
	set := func(px, py float64, ch rune) {
		x, y := c.toCell(px, py)
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
			grid[y][x] = cell{ch: ch, fg: fg, bg: grid[y][x].bg}
		}
	}

	corners := a.Corners()
	edge := '·'
	if selected {
		edge = '•'
	}
	for i := range corners {
		p, q := corners[i], corners[(i+1)%4]
		steps := max(1, int(math.Hypot(q[0]-p[0], q[1]-p[1])/(c.pw/float64(c.cols))))
		for s := 0; s <= steps; s++ {
			f := float64(s) / float64(steps)
			set(p[0]+(q[0]-p[0])*f, p[1]+(q[1]-p[1])*f, edge)
		}
	}

	cx, cy := a.Center()
	x, y := c.toCell(cx, cy)
	text := []rune(strings.ReplaceAll(a.Text, "\n", " "))
	span := max(1, int(a.Width*float64(c.cols)/c.pw)-2)
	if len(text) > span {
		text = append(text[:max(0, span-1)], '…')
	}
	if y >= 0 && y < len(grid) {
		start := x - len(text)/2
		for i, r := range text {
			if col := start + i; col >= 0 && col < len(grid[y]) {
				grid[y][col] = cell{ch: r, fg: lipgloss.Color(a.Color), bg: grid[y][col].bg}
			}
		}
	}

	if !selected {
		return
	}
	for _, p := range corners {
		set(p[0], p[1], '■')
	}
	rx, ry := a.ToCanvas(-overlay.RotateKnobOffset, a.Height+overlay.RotateKnobOffset)
	set(rx, ry, '↻')
	dx, dy := a.ToCanvas(a.Width+overlay.DeleteButtonOffset, -overlay.DeleteButtonOffset)
	set(dx, dy, '×')
}

// renderGrid turns a grid into styled terminal lines.
func renderGrid(grid [][]cell) string {
	var b strings.Builder
	for y, row := range grid {
		for _, cl := range row {
			st := lipgloss.NewStyle()
			if cl.fg != "" {
				st = st.Foreground(cl.fg)
			}
			if cl.bg != "" {
				st = st.Background(cl.bg)
			}
			b.WriteString(st.Render(string(cl.ch)))
		}
		if y < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
