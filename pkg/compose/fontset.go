package compose

import (
	"fmt"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/matzehuels/memeforge/pkg/fonts"
	"github.com/matzehuels/memeforge/pkg/overlay"
)

// FontSet resolves annotation font families to TrueType fonts. Families
// without an override use the bundled fonts. Safe for concurrent use.
type FontSet struct {
	mu        sync.RWMutex
	overrides map[overlay.FontFamily]*truetype.Font
}

// NewFontSet returns a font set using only the bundled fonts.
func NewFontSet() *FontSet {
	return &FontSet{overrides: map[overlay.FontFamily]*truetype.Font{}}
}

// LoadFontSet builds a font set with TTF overrides. Keys may be family
// labels ("Impact") or full font stacks.
func LoadFontSet(paths map[string]string) (*FontSet, error) {
	fs := NewFontSet()
	for name, path := range paths {
		family, err := overlay.ParseFontFamily(name)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", family.Label(), err)
		}
		if err := fs.Override(family, data); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Override replaces the font used for family with the given TTF data.
func (fs *FontSet) Override(family overlay.FontFamily, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("font %s: %w", family.Label(), err)
	}
	fs.mu.Lock()
	fs.overrides[family] = f
	fs.mu.Unlock()
	return nil
}

// Font returns the parsed font for family.
func (fs *FontSet) Font(family overlay.FontFamily) (*truetype.Font, error) {
	fs.mu.RLock()
	f, ok := fs.overrides[family]
	fs.mu.RUnlock()
	if ok {
		return f, nil
	}
	return fonts.Parse(family)
}

// Face returns a new face for family at size pixels. Faces hold glyph
// caches and must not be shared between goroutines.
func (fs *FontSet) Face(family overlay.FontFamily, size float64) (font.Face, error) {
	f, err := fs.Font(family)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
