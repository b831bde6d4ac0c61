package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/auth"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func dataSource(t *testing.T, w, h int) imagesource.Source {
	t.Helper()
	src, err := imagesource.Parse("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, w, h)))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func newSession(t *testing.T, publisher *publish.Publisher) *Session {
	t.Helper()
	quiet := log.NewWithOptions(&bytes.Buffer{}, log.Options{})
	return New(Options{
		Runner:    pipeline.NewRunner(nil, nil, quiet),
		Publisher: publisher,
	})
}

func TestLoadSetsPreviewAndClearsAnnotations(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()

	if err := s.Load(ctx, dataSource(t, 1400, 700)); err != nil {
		t.Fatal(err)
	}
	if w, h := s.Preview(); w != 700 || h != 350 {
		t.Errorf("Preview() = %vx%v, want 700x350", w, h)
	}
	if _, ok := s.Add(10, 10); !ok {
		t.Fatal("Add() failed after load")
	}

	if err := s.Load(ctx, dataSource(t, 100, 100)); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Annotations()); n != 0 {
		t.Errorf("annotations after new load = %d, want 0", n)
	}
	if w, h := s.Preview(); w != 100 || h != 100 {
		t.Errorf("Preview() = %vx%v, want 100x100", w, h)
	}
}

func TestFailedLoadKeepsPreviousImage(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()

	good := dataSource(t, 200, 100)
	if err := s.Load(ctx, good); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Add(10, 10)

	bad := imagesource.Source{Kind: imagesource.KindData, Value: "data:image/png;base64,%%"}
	err := s.Load(ctx, bad)
	if !errs.Is(err, errs.ErrCodeImageLoad) {
		t.Fatalf("error = %v, want IMAGE_LOAD_FAILED", err)
	}
	if errs.UserMessage(err) != imagesource.LoadFailedMessage {
		t.Errorf("UserMessage() = %q", errs.UserMessage(err))
	}
	if s.Base().Source != good {
		t.Error("failed load replaced the base image")
	}
	anns := s.Annotations()
	if len(anns) != 1 || anns[0].ID != a.ID {
		t.Errorf("annotations after failed load = %+v", anns)
	}
}

func TestLastStartedLoadWins(t *testing.T) {
	slowBody := pngBytes(t, 300, 300)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write(slowBody)
	}))
	defer srv.Close()

	s := newSession(t, nil)
	s.runner.Loader = imagesource.NewLoader(imagesource.LoaderOptions{HTTPClient: srv.Client()})
	ctx := context.Background()

	slow, err := imagesource.Parse(srv.URL + "/slow.png")
	if err != nil {
		t.Fatal(err)
	}
	fast := dataSource(t, 40, 20)

	slowDone := make(chan error, 1)
	fastDone := make(chan error, 1)
	first := s.BeginLoad(ctx, slow, func(err error) { slowDone <- err })
	second := s.BeginLoad(ctx, fast, func(err error) { fastDone <- err })
	if second <= first {
		t.Errorf("tokens = %d, %d; want increasing", first, second)
	}

	if err := <-fastDone; err != nil {
		t.Fatalf("newer load: %v", err)
	}
	close(release)
	if err := <-slowDone; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("older load error = %v, want ErrSuperseded", err)
	}

	if got := s.Base().Source; got != fast {
		t.Errorf("base source = %s, want the newer load", got.Label())
	}
	if w, h := s.Preview(); w != 40 || h != 20 {
		t.Errorf("Preview() = %vx%v, want 40x20", w, h)
	}
}

func TestSupersededFailureIsIgnored(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	s := newSession(t, nil)
	s.runner.Loader = imagesource.NewLoader(imagesource.LoaderOptions{HTTPClient: srv.Client()})
	ctx := context.Background()

	broken, _ := imagesource.Parse(srv.URL + "/broken.png")
	done := make(chan error, 1)
	s.BeginLoad(ctx, broken, func(err error) { done <- err })

	good := dataSource(t, 50, 50)
	if err := s.Load(ctx, good); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("older load error = %v, want ErrSuperseded", err)
	}
	if s.Base().Source != good {
		t.Error("superseded failure changed the base image")
	}
}

func TestPointerPlumbing(t *testing.T) {
	s := newSession(t, nil)
	if err := s.Load(context.Background(), dataSource(t, 400, 300)); err != nil {
		t.Fatal(err)
	}

	hit := s.PointerDown(20, 20)
	if hit.Kind != overlay.HitNone {
		t.Fatalf("first press kind = %v, want none (create)", hit.Kind)
	}
	a, ok := s.Selected()
	if !ok || a.ID != hit.ID {
		t.Fatalf("created annotation not selected: %+v", a)
	}
	s.PointerUp()

	cx, cy := a.Center()
	if hit := s.PointerDown(cx, cy); hit.Kind != overlay.HitBody {
		t.Fatalf("press on body kind = %v", hit.Kind)
	}
	if _, ok := s.State().(overlay.Dragging); !ok {
		t.Fatalf("state = %s, want dragging", overlay.Name(s.State()))
	}
	s.PointerMove(cx+15, cy+5)
	s.PointerUp()
	if !overlay.IsIdle(s.State()) {
		t.Error("state not idle after PointerUp")
	}

	moved, _ := s.Selected()
	if moved.X != a.X+15 || moved.Y != a.Y+5 {
		t.Errorf("position = (%v, %v), want (%v, %v)", moved.X, moved.Y, a.X+15, a.Y+5)
	}
	if moved.Width != a.Width || moved.Height != a.Height {
		t.Error("drag changed the size")
	}
}

func TestSnapshotAndLoadDraft(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	if err := s.Load(ctx, dataSource(t, 300, 200)); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Add(10, 10)
	if err := s.SetText(a.ID, "Top text"); err != nil {
		t.Fatal(err)
	}
	size := 48
	if _, err := s.UpdateStyle(overlay.StyleUpdate{FontSize: &size}); err != nil {
		t.Fatal(err)
	}

	d := s.Snapshot()
	if d.PreviewWidth != 300 || d.PreviewHeight != 200 {
		t.Errorf("draft preview = %vx%v", d.PreviewWidth, d.PreviewHeight)
	}
	if len(d.Annotations) != 1 || d.Annotations[0].Text != "Top text" || d.Annotations[0].FontSize != 48 {
		t.Fatalf("draft annotations = %+v", d.Annotations)
	}

	restored := newSession(t, nil)
	if err := restored.LoadDraft(ctx, d); err != nil {
		t.Fatal(err)
	}
	got := restored.Annotations()
	if len(got) != 1 || got[0] != d.Annotations[0] {
		t.Errorf("restored annotations = %+v, want %+v", got, d.Annotations)
	}
	if next, _ := restored.Add(100, 100); next.ID <= a.ID {
		t.Errorf("new id %d reuses a restored id", next.ID)
	}
}

func TestRenderWithoutImage(t *testing.T) {
	s := newSession(t, nil)
	_, err := s.Render(context.Background())
	if !errs.Is(err, errs.ErrCodeNoBaseImage) {
		t.Errorf("error = %v, want NO_BASE_IMAGE", err)
	}
}

func TestRender(t *testing.T) {
	s := newSession(t, nil)
	ctx := context.Background()
	if err := s.Load(ctx, dataSource(t, 120, 80)); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Add(5, 5)
	_ = s.SetText(a.ID, "Hi")

	url, err := s.Render(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix([]byte(url), []byte("data:image/png;base64,")) {
		t.Errorf("Render() = %.40q..., want a PNG data URL", url)
	}
}

// blockingCreator holds CreateMeme until released.
type blockingCreator struct {
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCreator) CreateMeme(ctx context.Context, m feed.Meme) (feed.Meme, error) {
	close(c.entered)
	<-c.release
	m.ID = "meme-1"
	return m, nil
}

func TestPublishIsOneShot(t *testing.T) {
	creator := &blockingCreator{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSession(t, nil)
	s.publisher = publish.New(creator, s.runner, publish.Options{})
	ctx := context.Background()
	if err := s.Load(ctx, dataSource(t, 60, 40)); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Add(2, 2)
	_ = s.SetText(a.ID, "Top")

	id := auth.Identity{UserID: "u1", Email: "a@example.com"}
	type result struct {
		m   feed.Meme
		err error
	}
	first := make(chan result, 1)
	go func() {
		m, err := s.Publish(ctx, id)
		first <- result{m, err}
	}()

	select {
	case <-creator.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first publish never reached the store")
	}
	if !s.Publishing() {
		t.Error("Publishing() = false during publish")
	}
	if _, err := s.Publish(ctx, id); !errs.Is(err, errs.ErrCodePublishInProgress) {
		t.Errorf("second publish error = %v, want PUBLISH_IN_PROGRESS", err)
	}

	close(creator.release)
	r := <-first
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.m.TopText != "Top" || r.m.AuthorID != "u1" {
		t.Errorf("published meme = %+v", r.m)
	}
	if s.Publishing() {
		t.Error("Publishing() = true after publish finished")
	}
}

func TestPublishRequiresImage(t *testing.T) {
	s := newSession(t, nil)
	s.publisher = publish.New(&blockingCreator{}, s.runner, publish.Options{})
	_, err := s.Publish(context.Background(), auth.Identity{UserID: "u1"})
	if !errs.Is(err, errs.ErrCodeNoBaseImage) {
		t.Errorf("error = %v, want NO_BASE_IMAGE", err)
	}
}

func TestPublishNotConfigured(t *testing.T) {
	s := newSession(t, nil)
	if _, err := s.Publish(context.Background(), auth.Identity{UserID: "u1"}); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("error = %v, want UNSUPPORTED", err)
	}
}
