// Package editor ties the overlay engine, the base image and the render
// pipeline into one editing session.
//
// Pointer events arrive on the caller's goroutine while image loads finish
// on their own, so every operation goes through the session's mutex.
//
// Loads are asynchronous and the last load started wins: when loads
// overlap, only the most recently started one is applied, whatever order
// they finish in. A failed load leaves the previous image and its
// annotations in place. A successful load replaces the image and clears
// all annotations.
//
// Publishing is one-shot: while a publish is outstanding a second request
// fails with PUBLISH_IN_PROGRESS. There is no timeout or retry.
package editor

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/auth"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
)

// ErrSuperseded is reported to a load whose result was discarded because a
// newer load was started.
var ErrSuperseded = errors.New("image load superseded by a newer load")

// Options configures a Session.
type Options struct {
	Runner    *pipeline.Runner   // required
	Publisher *publish.Publisher // nil disables Publish

	PreviewMaxWidth  float64 // 0 uses imagesource.PreviewMaxWidth
	PreviewMaxHeight float64 // 0 uses imagesource.PreviewMaxHeight

	Format  string // output format for Render and Publish
	Quality int

	Logger *log.Logger
}

// Session is one user's editing state.
type Session struct {
	runner    *pipeline.Runner
	publisher *publish.Publisher
	maxW      float64
	maxH      float64
	format    string
	quality   int
	logger    *log.Logger

	mu         sync.Mutex
	engine     *overlay.Engine
	base       *imagesource.BaseImage
	loadSeq    uint64
	publishing bool
}

// New creates a session with no image.
func New(opts Options) *Session {
	if opts.PreviewMaxWidth <= 0 {
		opts.PreviewMaxWidth = imagesource.PreviewMaxWidth
	}
	if opts.PreviewMaxHeight <= 0 {
		opts.PreviewMaxHeight = imagesource.PreviewMaxHeight
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Session{
		runner:    opts.Runner,
		publisher: opts.Publisher,
		maxW:      opts.PreviewMaxWidth,
		maxH:      opts.PreviewMaxHeight,
		format:    opts.Format,
		quality:   opts.Quality,
		logger:    opts.Logger,
		engine:    overlay.NewEngine(),
	}
}

// =============================================================================
// Image loading
// =============================================================================

// BeginLoad starts loading src in the background and returns the load's
// token. done, if non-nil, is called from the loading goroutine with nil on
// success, ErrSuperseded if a newer load was started meanwhile, or the load
// error.
func (s *Session) BeginLoad(ctx context.Context, src imagesource.Source, done func(error)) uint64 {
	token := s.nextLoad()
	go func() {
		img, err := s.runner.Loader.Load(ctx, src)
		err = s.completeLoad(token, img, err)
		if done != nil {
			done(err)
		}
	}()
	return token
}

// Load loads src and waits for it. The last-started rule still applies: if
// another load is started before this one finishes, ErrSuperseded is
// returned and the image is not applied.
func (s *Session) Load(ctx context.Context, src imagesource.Source) error {
	token := s.nextLoad()
	img, err := s.runner.Loader.Load(ctx, src)
	return s.completeLoad(token, img, err)
}

// LoadDraft loads the draft's image and restores its annotations.
func (s *Session) LoadDraft(ctx context.Context, d pipeline.Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	src, err := imagesource.Parse(d.Source)
	if err != nil {
		return err
	}
	if err := s.Load(ctx, src); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, h := s.engine.Canvas()
	if d.PreviewWidth > 0 && d.PreviewHeight > 0 {
		w, h = d.PreviewWidth, d.PreviewHeight
	}
	s.engine.Restore(overlay.Snapshot{
		CanvasWidth:  w,
		CanvasHeight: h,
		Annotations:  d.Annotations,
	})
	return nil
}

func (s *Session) nextLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSeq++
	return s.loadSeq
}

func (s *Session) completeLoad(token uint64, img *imagesource.BaseImage, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.loadSeq {
		s.logger.Debug("discarding superseded load", "token", token, "latest", s.loadSeq)
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	s.base = img
	w, h := img.Preview(s.maxW, s.maxH)
	s.engine.SetCanvas(w, h)
	s.logger.Debug("image applied", "source", img.Source.Label(), "preview_width", w, "preview_height", h)
	return nil
}

// Base returns the current base image, or nil before the first load.
func (s *Session) Base() *imagesource.BaseImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Preview returns the preview size, zero before the first load.
func (s *Session) Preview() (width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Canvas()
}

// =============================================================================
// Pointer and editing operations
// =============================================================================

// PointerDown presses at preview coordinates (x, y).
func (s *Session) PointerDown(x, y float64) overlay.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PointerDown(x, y)
}

// PointerMove moves the pointer while a gesture may be in progress.
func (s *Session) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.PointerMove(x, y)
}

// PointerUp ends the current gesture.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.EndInteraction()
}

// HitTest classifies (x, y) without changing state.
func (s *Session) HitTest(x, y float64) overlay.Hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.HitTest(x, y)
}

// Add creates an annotation with its top-left corner at (x, y).
func (s *Session) Add(x, y float64) (overlay.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CreateAnnotation(x, y)
}

// SetText replaces an annotation's text.
func (s *Session) SetText(id int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SetText(id, text)
}

// UpdateStyle changes the active style and the selected annotation.
func (s *Session) UpdateStyle(u overlay.StyleUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.UpdateStyle(u)
}

// Delete removes an annotation. It reports whether one was removed.
func (s *Session) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.DeleteAnnotation(id)
}

// Select selects an annotation and makes its style the active style.
func (s *Session) Select(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Select(id)
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Deselect()
}

// Selected returns the selected annotation.
func (s *Session) Selected() (overlay.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Selected()
}

// Annotations returns a copy of the annotations in drawing order.
func (s *Session) Annotations() []overlay.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Annotations()
}

// ActiveStyle returns the style new annotations get.
func (s *Session) ActiveStyle() overlay.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.ActiveStyle()
}

// State returns the current gesture.
func (s *Session) State() overlay.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.State()
}

// =============================================================================
// Drafts, rendering and publishing
// =============================================================================

// Snapshot returns the session as a draft. The source is empty before the
// first load.
func (s *Session) Snapshot() pipeline.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() pipeline.Draft {
	d := pipeline.Draft{Annotations: s.engine.Annotations()}
	if s.base != nil {
		d.Source = s.base.Source.String()
	}
	d.PreviewWidth, d.PreviewHeight = s.engine.Canvas()
	return d
}

// Render composites the current annotations over the base image and
// returns the encoded data URL.
func (s *Session) Render(ctx context.Context) (string, error) {
	s.mu.Lock()
	base, draft := s.base, s.snapshotLocked()
	s.mu.Unlock()
	return s.render(ctx, base, draft)
}

func (s *Session) render(ctx context.Context, base *imagesource.BaseImage, draft pipeline.Draft) (string, error) {
	if base == nil {
		return "", errs.New(errs.ErrCodeNoBaseImage, "load an image first")
	}
	return s.runner.Render(ctx, base, pipeline.Options{
		Draft:   draft,
		Format:  s.format,
		Quality: s.quality,
	})
}

// Publish renders the session and publishes it as id's meme. Only one
// publish may be outstanding at a time.
func (s *Session) Publish(ctx context.Context, id auth.Identity) (feed.Meme, error) {
	if s.publisher == nil {
		return feed.Meme{}, errs.New(errs.ErrCodeUnsupported, "publishing is not configured")
	}

	s.mu.Lock()
	if s.publishing {
		s.mu.Unlock()
		return feed.Meme{}, errs.New(errs.ErrCodePublishInProgress, "already publishing, please wait")
	}
	if s.base == nil {
		s.mu.Unlock()
		return feed.Meme{}, errs.New(errs.ErrCodeNoBaseImage, "load an image first")
	}
	s.publishing = true
	base, draft := s.base, s.snapshotLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.publishing = false
		s.mu.Unlock()
	}()

	dataURL, err := s.render(ctx, base, draft)
	if err != nil {
		return feed.Meme{}, err
	}
	return s.publisher.PublishEncoded(ctx, id, dataURL, draft.Annotations)
}

// Publishing reports whether a publish is outstanding.
func (s *Session) Publishing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishing
}
