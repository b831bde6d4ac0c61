package imagesource

import (
	"strings"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/templates"
)

// Kind identifies where a base image comes from.
type Kind string

const (
	KindTemplate Kind = "template"
	KindURL      Kind = "url"
	KindData     Kind = "data"
	KindFile     Kind = "file"
)

const templatePrefix = "template:"

// Source is a parsed base image reference. Value is the URL, data URL or
// file path to read; for templates it is the template's image URL.
type Source struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"` // template name
}

// Parse interprets s as "template:<name>", an http(s) URL, a base64 image
// data URL, or a local file path, in that order.
func Parse(s string) (Source, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Source{}, errs.New(errs.ErrCodeInvalidInput, "image source cannot be empty")
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, templatePrefix):
		t, err := templates.Find(s[len(templatePrefix):])
		if err != nil {
			return Source{}, err
		}
		return FromTemplate(t), nil
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return Source{Kind: KindURL, Value: s}, nil
	case strings.HasPrefix(lower, "data:"):
		if err := errs.ValidateDataURL(s); err != nil {
			return Source{}, err
		}
		return Source{Kind: KindData, Value: s}, nil
	}
	return Source{Kind: KindFile, Value: s}, nil
}

// FromTemplate returns the source for a bundled template.
func FromTemplate(t templates.Template) Source {
	return Source{Kind: KindTemplate, Value: t.URL, Name: t.Name}
}

// String returns the form accepted by Parse.
func (s Source) String() string {
	if s.Kind == KindTemplate {
		return templatePrefix + s.Name
	}
	return s.Value
}

// Label is a short description for logs and status lines. Data URLs are
// not printed in full.
func (s Source) Label() string {
	switch s.Kind {
	case KindTemplate:
		return s.Name
	case KindData:
		head, _, _ := strings.Cut(s.Value, ",")
		return head
	}
	return s.Value
}

// Remote reports whether loading the source needs the network.
func (s Source) Remote() bool {
	return s.Kind == KindTemplate || s.Kind == KindURL
}
