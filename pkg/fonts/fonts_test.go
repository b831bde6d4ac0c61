package fonts

import (
	"testing"

	"github.com/matzehuels/memeforge/pkg/overlay"
)

func TestEveryFamilyIsBundled(t *testing.T) {
	for _, f := range overlay.FontFamilies {
		if len(TTF(f)) == 0 {
			t.Errorf("no bundled font for %s", f.Label())
		}
		font, err := Parse(f)
		if err != nil {
			t.Fatalf("Parse(%s): %v", f.Label(), err)
		}
		if font == nil {
			t.Fatalf("Parse(%s) returned nil", f.Label())
		}
	}
}

func TestParseIsCached(t *testing.T) {
	a, err := Parse(overlay.FontImpact)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Parse(overlay.FontImpact)
	if a != b {
		t.Error("Parse should return the cached font")
	}
}

func TestUnknownFamilyFallsBack(t *testing.T) {
	got := TTF("Papyrus, fantasy")
	want := TTF(overlay.DefaultFontFamily)
	if len(got) != len(want) {
		t.Error("unknown family should fall back to the default font")
	}
	if _, err := Parse("Papyrus, fantasy"); err != nil {
		t.Errorf("Parse(unknown) = %v, want fallback", err)
	}
}
