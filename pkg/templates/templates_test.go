package templates

import (
	"strings"
	"testing"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

func TestAll(t *testing.T) {
	got := All()
	if len(got) != 17 {
		t.Fatalf("len(All()) = %d, want 17", len(got))
	}
	seen := map[string]bool{}
	for _, tmpl := range got {
		if seen[tmpl.Name] {
			t.Errorf("duplicate template %q", tmpl.Name)
		}
		seen[tmpl.Name] = true
		if !strings.HasPrefix(tmpl.URL, "https://i.imgflip.com/") || !strings.HasSuffix(tmpl.URL, ".jpg") {
			t.Errorf("%s: unexpected URL %q", tmpl.Name, tmpl.URL)
		}
	}

	got[0].Name = "changed"
	if All()[0].Name != "Drake" {
		t.Error("All() should return a copy")
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Drake", "https://i.imgflip.com/30b1gx.jpg", false},
		{"  drake ", "https://i.imgflip.com/30b1gx.jpg", false},
		{"success-kid", "https://i.imgflip.com/1bhk.jpg", false},
		{"is_this_a_pigeon", "https://i.imgflip.com/1o00in.jpg", false},
		{"Nyan Cat", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Find(tt.in)
			if tt.wantErr {
				if !errs.Is(err, errs.ErrCodeNotFound) {
					t.Errorf("Find(%q) error = %v, want NOT_FOUND", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.URL != tt.want {
				t.Errorf("Find(%q).URL = %q, want %q", tt.in, got.URL, tt.want)
			}
		})
	}
}
