// Package templates lists the bundled meme templates offered by the editor.
package templates

import (
	"strings"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

// Template is a named base image hosted by imgflip.
type Template struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const imgflipBase = "https://i.imgflip.com/"

func imgflip(name, id string) Template {
	return Template{Name: name, URL: imgflipBase + id + ".jpg"}
}

var all = []Template{
	imgflip("Drake", "30b1gx"),
	imgflip("Distracted Boyfriend", "1ur9b0"),
	imgflip("Expanding Brain", "1jhljt"),
	imgflip("Woman Yelling at Cat", "345v97"),
	imgflip("This is Fine", "26am"),
	imgflip("Change My Mind", "24y43o"),
	imgflip("Two Buttons", "1g8my4"),
	imgflip("Running Away", "261o3j"),
	imgflip("Success Kid", "1bhk"),
	imgflip("Surprised Pikachu", "2kbn1e"),
	imgflip("Doge", "4t0m5"),
	imgflip("Hide the Pain Harold", "gk5el"),
	imgflip("Disaster Girl", "23ls"),
	imgflip("Mocking Spongebob", "1otk96"),
	imgflip("Left Exit 12", "22bdq6"),
	imgflip("Is This a Pigeon", "1o00in"),
	imgflip("One Does Not Simply", "1bh8"),
}

// All returns the bundled templates in display order.
func All() []Template {
	return append([]Template(nil), all...)
}

// Find looks up a template by name, ignoring case and surrounding space.
// Hyphens and underscores match spaces, so "success-kid" finds "Success Kid".
func Find(name string) (Template, error) {
	want := normalize(name)
	for _, t := range all {
		if normalize(t.Name) == want {
			return t, nil
		}
	}
	return Template{}, errs.New(errs.ErrCodeNotFound, "unknown template %q", name)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", " ", "_", " ").Replace(s)
}
