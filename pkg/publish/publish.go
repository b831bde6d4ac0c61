// Package publish turns a finished draft into a feed entry.
//
// Publishing renders the draft, checks the encoded image against the size
// ceiling, takes the captions from the first two annotations and writes a
// single meme record. Nothing is written if any step fails, and a failed
// publish is never retried automatically.
package publish

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/auth"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/observability"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
)

// DefaultMaxEncodedLength is the largest data URL accepted, in characters.
const DefaultMaxEncodedLength = 400000

// TooLargeMessage is the user-facing message for oversized images.
const TooLargeMessage = "Image is too large. Please use a smaller image or fewer text boxes."

// Creator stores a new meme. *feed.Service satisfies it.
type Creator interface {
	CreateMeme(ctx context.Context, m feed.Meme) (feed.Meme, error)
}

// Options configures a Publisher.
type Options struct {
	MaxEncodedLength int         // 0 uses DefaultMaxEncodedLength
	Logger           *log.Logger // nil discards
}

// Publisher renders and stores memes.
type Publisher struct {
	creator Creator
	runner  *pipeline.Runner
	maxLen  int
	logger  *log.Logger
}

// New creates a Publisher. runner may be nil if only PublishEncoded is used.
func New(creator Creator, runner *pipeline.Runner, opts Options) *Publisher {
	if opts.MaxEncodedLength <= 0 {
		opts.MaxEncodedLength = DefaultMaxEncodedLength
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Publisher{creator: creator, runner: runner, maxLen: opts.MaxEncodedLength, logger: opts.Logger}
}

// MaxEncodedLength returns the size ceiling in characters.
func (p *Publisher) MaxEncodedLength() int { return p.maxLen }

// CheckSize rejects data URLs longer than maxLen characters.
func CheckSize(dataURL string, maxLen int) error {
	if len(dataURL) > maxLen {
		return errs.New(errs.ErrCodeImageTooLarge, TooLargeMessage)
	}
	return nil
}

// Captions returns the text of the first and second annotations. Missing
// annotations give empty captions.
func Captions(anns []overlay.Annotation) (top, bottom string) {
	if len(anns) > 0 {
		top = anns[0].Text
	}
	if len(anns) > 1 {
		bottom = anns[1].Text
	}
	return top, bottom
}

// Publish renders the draft in opts and stores it as id's meme.
func (p *Publisher) Publish(ctx context.Context, id auth.Identity, opts pipeline.Options) (feed.Meme, error) {
	if id.IsZero() {
		return feed.Meme{}, errs.New(errs.ErrCodeUnauthorized, "sign in to publish")
	}
	if p.runner == nil {
		return feed.Meme{}, errs.New(errs.ErrCodeInternal, "publisher has no renderer")
	}
	res, err := p.runner.Execute(ctx, opts)
	if err != nil {
		return feed.Meme{}, err
	}
	return p.PublishEncoded(ctx, id, res.DataURL, opts.Annotations)
}

// PublishEncoded stores an already encoded image with captions taken from
// anns.
func (p *Publisher) PublishEncoded(ctx context.Context, id auth.Identity, dataURL string, anns []overlay.Annotation) (feed.Meme, error) {
	m, err := p.publishEncoded(ctx, id, dataURL, anns)
	observability.Feed().OnPublish(ctx, m.ID, len(dataURL), err)
	if err != nil {
		p.logger.Warn("publish failed", "author", id.Email, "bytes", len(dataURL), "error", err)
		return feed.Meme{}, err
	}
	return m, nil
}

func (p *Publisher) publishEncoded(ctx context.Context, id auth.Identity, dataURL string, anns []overlay.Annotation) (feed.Meme, error) {
	if id.IsZero() {
		return feed.Meme{}, errs.New(errs.ErrCodeUnauthorized, "sign in to publish")
	}
	if err := errs.ValidateDataURL(dataURL); err != nil {
		return feed.Meme{}, err
	}
	if err := CheckSize(dataURL, p.maxLen); err != nil {
		return feed.Meme{}, err
	}
	top, bottom := Captions(anns)
	for _, c := range []string{top, bottom} {
		if err := errs.ValidateCaption(c); err != nil {
			return feed.Meme{}, err
		}
	}
	return p.creator.CreateMeme(ctx, feed.Meme{
		ImageBase64: dataURL,
		TopText:     top,
		BottomText:  bottom,
		AuthorID:    id.UserID,
		AuthorEmail: id.Email,
	})
}
