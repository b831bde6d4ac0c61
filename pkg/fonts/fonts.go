// Package fonts provides the bundled TrueType fonts used to draw meme text.
//
// The browser editor names CSS font stacks (Impact, Comic Sans, ...) that are
// not redistributable. Each stack is mapped onto one of the Go fonts, which
// are compiled into the binary, so rendering works without system fonts.
package fonts

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gosmallcaps"

	"github.com/matzehuels/memeforge/pkg/overlay"
)

// Meme text is drawn bold, so every family maps to a heavy Go font.
var bundled = map[overlay.FontFamily][]byte{
	overlay.FontImpact:        gobold.TTF,
	overlay.FontArialBlack:    gobold.TTF,
	overlay.FontComicSans:     gobolditalic.TTF,
	overlay.FontGeorgia:       gosmallcaps.TTF,
	overlay.FontTimesNewRoman: gomedium.TTF,
	overlay.FontCourierNew:    gomonobold.TTF,
	overlay.FontVerdana:       gobold.TTF,
	overlay.FontTrebuchet:     gomedium.TTF,
}

// TTF returns the bundled font data for family, falling back to the Impact
// replacement for unknown families.
func TTF(family overlay.FontFamily) []byte {
	if b, ok := bundled[family]; ok {
		return b
	}
	return bundled[overlay.DefaultFontFamily]
}

// Cache for parsed fonts (each family is parsed once on first access).
var (
	parsedMu sync.Mutex
	parsed   = map[overlay.FontFamily]*truetype.Font{}
)

// Parse returns the parsed bundled font for family.
// The result is cached after first computation.
func Parse(family overlay.FontFamily) (*truetype.Font, error) {
	if !family.Valid() {
		family = overlay.DefaultFontFamily
	}
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[family]; ok {
		return f, nil
	}
	f, err := truetype.Parse(TTF(family))
	if err != nil {
		return nil, err
	}
	parsed[family] = f
	return f, nil
}
