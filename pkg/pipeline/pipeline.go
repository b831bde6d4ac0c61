// Package pipeline provides the load → composite → encode pipeline for memeforge.
//
// This package implements the complete render pipeline that is used by the
// CLI, the terminal editor and the API. By centralizing this logic, every
// entry point produces the same pixels for the same draft and shares the
// same render cache.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Fetch and decode the draft's base image
//  2. Render: Composite the annotations at the image's native size
//  3. Encode: Produce a PNG or JPEG data URL
//
// Rendered data URLs are cached by draft hash and encoder settings, so a
// repeated download or publish of an unchanged draft skips all three stages.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Draft: pipeline.Draft{
//	        Source:      "template:Drake",
//	        Annotations: annotations,
//	    },
//	    Format: "png",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.DataURL)
package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/compose"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Editor
// =============================================================================

const (
	// DefaultFormat is the default output encoding.
	DefaultFormat = compose.FormatPNG

	// DefaultQuality is the JPEG quality used when none is given.
	DefaultQuality = compose.DefaultJPEGQuality

	// DefaultPreviewMaxWidth bounds the preview width derived for drafts
	// that do not carry one.
	DefaultPreviewMaxWidth = float64(imagesource.PreviewMaxWidth)

	// DefaultPreviewMaxHeight bounds the derived preview height.
	DefaultPreviewMaxHeight = float64(imagesource.PreviewMaxHeight)
)

// =============================================================================
// Draft - the serializable editing document
// =============================================================================

// Draft is everything needed to reproduce a meme: the base image source, the
// preview size the annotations were placed in, and the annotations in
// drawing order. It is the document the CLI reads and writes and the body of
// the API's render and publish requests.
type Draft struct {
	Source        string               `json:"source"`
	PreviewWidth  float64              `json:"preview_width,omitempty"`
	PreviewHeight float64              `json:"preview_height,omitempty"`
	Annotations   []overlay.Annotation `json:"annotations"`
}

// ReadDraft decodes a JSON draft.
func ReadDraft(r io.Reader) (Draft, error) {
	var d Draft
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Draft{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "invalid draft")
	}
	return d, nil
}

// WriteDraft encodes d as indented JSON.
func WriteDraft(w io.Writer, d Draft) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Hash returns the content hash of the draft.
func (d Draft) Hash() string {
	data, _ := json.Marshal(d)
	return cache.Hash(data)
}

// Cacheable reports whether renders of the draft may be cached by draft
// hash. A local file can change under the same path, so file sources
// always render fresh.
func (d Draft) Cacheable() bool {
	src, err := imagesource.Parse(d.Source)
	return err == nil && src.Kind != imagesource.KindFile
}

// Validate checks the source and every annotation. Font sizes are
// normalized in place the way the editor normalizes typed sizes.
func (d *Draft) Validate() error {
	if _, err := imagesource.Parse(d.Source); err != nil {
		return err
	}
	if d.PreviewWidth < 0 || d.PreviewHeight < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "preview size cannot be negative")
	}
	for i := range d.Annotations {
		a := &d.Annotations[i]
		if err := errs.ValidateCaption(a.Text); err != nil {
			return err
		}
		if err := errs.ValidateColor(a.Color); err != nil {
			return err
		}
		if !a.FontFamily.Valid() {
			return errs.New(errs.ErrCodeInvalidFont, "unsupported font family %q", string(a.FontFamily))
		}
		if a.Width <= 0 || a.Height <= 0 {
			return errs.New(errs.ErrCodeInvalidInput, "annotation %d has no area", a.ID)
		}
		a.FontSize = overlay.NormalizeFontSize(a.FontSize)
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one render.
// This struct supports JSON serialization for API requests.
type Options struct {
	Draft

	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`
	Refresh bool   `json:"refresh,omitempty"` // bypass the render cache

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// DataURL is the encoded meme.
	DataURL string

	// DraftHash is the content hash of the rendered draft, including the
	// resolved preview size.
	DraftHash string

	// Width and Height are the native output dimensions. They are zero when
	// the result came from cache.
	Width, Height int

	// PreviewWidth and PreviewHeight are the preview size the annotations
	// were scaled from.
	PreviewWidth, PreviewHeight float64

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the render came from cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Annotations int
	Bytes       int
	LoadTime    time.Duration
	RenderTime  time.Duration
	EncodeTime  time.Duration
}

// CacheInfo tracks cache hits.
type CacheInfo struct {
	RenderHit bool // Whether the data URL came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.Draft.Validate(); err != nil {
		return err
	}
	format, err := compose.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = string(format)
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errs.New(errs.ErrCodeInvalidInput, "quality must be between 1 and 100, got %d", o.Quality)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// HasPreview reports whether the draft carries its preview size.
func (o *Options) HasPreview() bool {
	return o.PreviewWidth > 0 && o.PreviewHeight > 0
}

// RenderKeyOpts returns cache key options for the encoded output.
func (o *Options) RenderKeyOpts() cache.RenderKeyOpts {
	opts := cache.RenderKeyOpts{Format: o.Format}
	if compose.Format(o.Format) == compose.FormatJPEG {
		opts.Quality = o.Quality
	}
	return opts
}
