package overlay

import (
	"fmt"
	"strings"
)

// Geometry and style defaults for new annotations.
const (
	MinWidth  = 100.0
	MinHeight = 40.0

	DefaultWidth  = 200.0
	DefaultHeight = 60.0

	DefaultText     = "Text"
	DefaultColor    = "#ffffff"
	DefaultFontSize = 32
	MinFontSize     = 12
	MaxFontSize     = 120
)

// FontFamily is one of the font stacks offered by the editor.
// The value is the CSS font-family list the browser editor uses, which keeps
// drafts interchangeable with the web client.
type FontFamily string

// Supported font families.
const (
	FontImpact        FontFamily = "Impact, Arial Black, sans-serif"
	FontArialBlack    FontFamily = "Arial Black, sans-serif"
	FontComicSans     FontFamily = "Comic Sans MS, cursive"
	FontGeorgia       FontFamily = "Georgia, serif"
	FontTimesNewRoman FontFamily = "Times New Roman, serif"
	FontCourierNew    FontFamily = "Courier New, monospace"
	FontVerdana       FontFamily = "Verdana, sans-serif"
	FontTrebuchet     FontFamily = "Trebuchet MS, sans-serif"
)

// DefaultFontFamily is the family new sessions start with.
const DefaultFontFamily = FontImpact

// FontFamilies lists the supported families in menu order.
var FontFamilies = []FontFamily{
	FontImpact,
	FontArialBlack,
	FontComicSans,
	FontGeorgia,
	FontTimesNewRoman,
	FontCourierNew,
	FontVerdana,
	FontTrebuchet,
}

var fontLabels = map[FontFamily]string{
	FontImpact:        "Impact",
	FontArialBlack:    "Arial Black",
	FontComicSans:     "Comic Sans",
	FontGeorgia:       "Georgia",
	FontTimesNewRoman: "Times New Roman",
	FontCourierNew:    "Courier New",
	FontVerdana:       "Verdana",
	FontTrebuchet:     "Trebuchet MS",
}

// Valid reports whether f is one of the supported families.
func (f FontFamily) Valid() bool {
	_, ok := fontLabels[f]
	return ok
}

// Label returns the short menu name ("Impact", "Comic Sans", ...).
func (f FontFamily) Label() string {
	if l, ok := fontLabels[f]; ok {
		return l
	}
	return string(f)
}

// ParseFontFamily accepts either a menu label or a full font stack,
// case-insensitively.
func ParseFontFamily(s string) (FontFamily, error) {
	s = strings.TrimSpace(s)
	for _, f := range FontFamilies {
		if strings.EqualFold(s, string(f)) || strings.EqualFold(s, f.Label()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown font family: %q", s)
}

// Style holds the text styling of an annotation.
type Style struct {
	Color      string     `json:"color"`
	FontSize   int        `json:"fontSize"`
	FontFamily FontFamily `json:"fontFamily"`
}

// DefaultStyle returns the style new editing sessions start with.
func DefaultStyle() Style {
	return Style{
		Color:      DefaultColor,
		FontSize:   DefaultFontSize,
		FontFamily: DefaultFontFamily,
	}
}

// Annotation is a positioned, styled text overlay. Geometry is expressed in
// preview-space pixels; Rotation is in degrees about the box centre.
type Annotation struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Text     string  `json:"text"`
	Style
}

// Center returns the centre of the annotation's bounding box.
func (a Annotation) Center() (x, y float64) {
	return a.X + a.Width/2, a.Y + a.Height/2
}

// Handle identifies one of the four corner resize handles.
type Handle string

// Corner handles.
const (
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// Handles lists the corner handles.
var Handles = []Handle{HandleNW, HandleNE, HandleSE, HandleSW}

// ParseHandle converts a handle name into a Handle.
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(strings.ToLower(strings.TrimSpace(s))); h {
	case HandleNW, HandleNE, HandleSE, HandleSW:
		return h, nil
	}
	return "", fmt.Errorf("unknown resize handle: %q", s)
}
