package publish

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/compose"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
)

type recordingCreator struct {
	calls []feed.Meme
}

func (c *recordingCreator) CreateMeme(ctx context.Context, m feed.Meme) (feed.Meme, error) {
	m.ID = "meme-1"
	c.calls = append(c.calls, m)
	return m, nil
}

var alice = auth.Identity{UserID: "user-alice", Email: "alice@example.com"}

const prefix = "data:image/png;base64,"

func dataURLOfLength(n int) string {
	return prefix + strings.Repeat("A", n-len(prefix))
}

func annotations(texts ...string) []overlay.Annotation {
	out := make([]overlay.Annotation, len(texts))
	for i, text := range texts {
		out[i] = overlay.Annotation{ID: i + 1, Width: 200, Height: 60, Text: text, Style: overlay.DefaultStyle()}
	}
	return out
}

func TestCaptions(t *testing.T) {
	tests := []struct {
		name        string
		texts       []string
		top, bottom string
	}{
		{"none", nil, "", ""},
		{"one", []string{"Top"}, "Top", ""},
		{"two", []string{"Top", "Bottom"}, "Top", "Bottom"},
		{"three", []string{"Top", "Bottom", "Extra"}, "Top", "Bottom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, bottom := Captions(annotations(tt.texts...))
			if top != tt.top || bottom != tt.bottom {
				t.Errorf("Captions() = (%q, %q), want (%q, %q)", top, bottom, tt.top, tt.bottom)
			}
		})
	}
}

func TestPublishEncodedTooLarge(t *testing.T) {
	c := &recordingCreator{}
	p := New(c, nil, Options{})

	_, err := p.PublishEncoded(context.Background(), alice, dataURLOfLength(DefaultMaxEncodedLength+1), annotations("Top"))
	if !errs.Is(err, errs.ErrCodeImageTooLarge) {
		t.Fatalf("error = %v, want IMAGE_TOO_LARGE", err)
	}
	if errs.UserMessage(err) != TooLargeMessage {
		t.Errorf("UserMessage() = %q", errs.UserMessage(err))
	}
	if len(c.calls) != 0 {
		t.Errorf("store called %d times, want 0", len(c.calls))
	}
}

func TestPublishEncodedAtLimit(t *testing.T) {
	c := &recordingCreator{}
	p := New(c, nil, Options{})

	m, err := p.PublishEncoded(context.Background(), alice, dataURLOfLength(DefaultMaxEncodedLength), annotations("Top", "Bottom"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.calls) != 1 {
		t.Fatalf("store called %d times, want 1", len(c.calls))
	}
	got := c.calls[0]
	if got.TopText != "Top" || got.BottomText != "Bottom" || got.AuthorID != alice.UserID || got.AuthorEmail != alice.Email {
		t.Errorf("stored meme = %+v", got)
	}
	if m.ID != "meme-1" {
		t.Errorf("returned meme ID = %q", m.ID)
	}
}

func TestPublishEncodedRejects(t *testing.T) {
	tests := []struct {
		name    string
		id      auth.Identity
		dataURL string
		want    errs.Code
	}{
		{"anonymous", auth.Identity{}, dataURLOfLength(100), errs.ErrCodeUnauthorized},
		{"not a data url", alice, "https://example.com/a.png", errs.ErrCodeInvalidFormat},
		{"empty", alice, "", errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &recordingCreator{}
			_, err := New(c, nil, Options{}).PublishEncoded(context.Background(), tt.id, tt.dataURL, nil)
			if !errs.Is(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
			if len(c.calls) != 0 {
				t.Error("store should not be called")
			}
		})
	}
}

func TestPublishRendersDraft(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	c := &recordingCreator{}
	p := New(c, pipeline.NewRunner(nil, nil, nil), Options{})
	opts := pipeline.Options{Draft: pipeline.Draft{
		Source:      compose.EncodeDataURL("image/png", buf.Bytes()),
		Annotations: annotations("Hello"),
	}}
	if _, err := p.Publish(context.Background(), alice, opts); err != nil {
		t.Fatal(err)
	}
	if len(c.calls) != 1 || !strings.HasPrefix(c.calls[0].ImageBase64, prefix) || c.calls[0].TopText != "Hello" {
		t.Errorf("stored = %+v", c.calls)
	}
}

func TestPublishRenderedTooLarge(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	c := &recordingCreator{}
	p := New(c, pipeline.NewRunner(nil, nil, nil), Options{MaxEncodedLength: 64})
	opts := pipeline.Options{Draft: pipeline.Draft{
		Source:      compose.EncodeDataURL("image/png", buf.Bytes()),
		Annotations: annotations("Hello"),
	}}
	if _, err := p.Publish(context.Background(), alice, opts); !errs.Is(err, errs.ErrCodeImageTooLarge) {
		t.Fatalf("error = %v, want IMAGE_TOO_LARGE", err)
	}
	if len(c.calls) != 0 {
		t.Error("store should not be called")
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize("data:image/png;base64,AAAA", 26); err != nil {
		t.Errorf("at limit: %v", err)
	}
	err := CheckSize("data:image/png;base64,AAAA", 25)
	if !errs.Is(err, errs.ErrCodeImageTooLarge) {
		t.Errorf("over limit: %v", err)
	}
}
