package cli

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/api"
	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
)

type testServer struct {
	url    string
	mailer *auth.RecordingMailer
	feed   *feed.Service
}

// startServer runs an in-memory API server and points c at it.
func startServer(t *testing.T, c *CLI) *testServer {
	t.Helper()
	quiet := log.NewWithOptions(io.Discard, log.Options{})
	mailer := &auth.RecordingMailer{}
	fs := feed.NewService(feed.NewMemoryStore(), nil, quiet)
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, quiet)
	srv := api.New(api.Options{
		Auth:      auth.NewService(auth.Options{Mailer: mailer}),
		Feed:      fs,
		Runner:    runner,
		Publisher: publish.New(fs, runner, publish.Options{}),
		Logger:    quiet,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	c.cfg.Client.Server = ts.URL
	return &testServer{url: ts.URL, mailer: mailer, feed: fs}
}

// login signs email in through the CLI flow.
func (s *testServer) login(t *testing.T, c *CLI, email string) {
	t.Helper()
	ctx := context.Background()
	if err := api.NewClient(s.url, "").RequestCode(ctx, email); err != nil {
		t.Fatal(err)
	}
	if _, err := c.runLogin(ctx, strings.NewReader(""), email, s.mailer.Last(email)); err != nil {
		t.Fatalf("runLogin() error: %v", err)
	}
}

func TestLoginStoresSession(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	s.login(t, c, "alice@example.com")

	sess, err := c.storedSession(context.Background())
	if err != nil || sess == nil {
		t.Fatalf("stored session = %v, %v", sess, err)
	}
	if sess.Email != "alice@example.com" || sess.Server != s.url || sess.AccessToken == "" {
		t.Errorf("session = %+v", sess)
	}

	client, err := c.authedClient(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	id, err := client.Me(context.Background())
	if err != nil || id.Email != "alice@example.com" {
		t.Errorf("Me() = %+v, %v", id, err)
	}
}

func TestLoginPromptsForEmail(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	ctx := context.Background()
	if err := api.NewClient(s.url, "").RequestCode(ctx, "bob@example.com"); err != nil {
		t.Fatal(err)
	}

	in := strings.NewReader("bob@example.com\n")
	sess, err := c.runLogin(ctx, in, "", s.mailer.Last("bob@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if sess.Email != "bob@example.com" {
		t.Errorf("email = %q", sess.Email)
	}
}

func TestLoginRejectsWrongCode(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	ctx := context.Background()
	if err := api.NewClient(s.url, "").RequestCode(ctx, "eve@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.runLogin(ctx, strings.NewReader(""), "eve@example.com", "000000x"); err == nil {
		t.Fatal("expected a wrong code to fail")
	}
	if sess, _ := c.storedSession(ctx); sess != nil {
		t.Error("a failed login should not store a session")
	}
}

func TestLogout(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	s.login(t, c, "alice@example.com")
	token := func() string {
		sess, _ := c.storedSession(context.Background())
		return sess.AccessToken
	}()

	if err := c.runLogout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sess, _ := c.storedSession(context.Background()); sess != nil {
		t.Error("logout should remove the stored session")
	}
	if _, err := api.NewClient(s.url, token).Me(context.Background()); err == nil {
		t.Error("logout should revoke the token on the server")
	}
	if err := c.runLogout(context.Background()); err != nil {
		t.Errorf("second logout: %v", err)
	}
}

func TestAuthedClientRequiresLogin(t *testing.T) {
	c := testCLI(t)
	startServer(t, c)
	if _, err := c.authedClient(context.Background()); err == nil {
		t.Fatal("expected an error before login")
	}
}

func TestPublishDraftAndImage(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	s.login(t, c, "alice@example.com")
	ctx := context.Background()

	dir := t.TempDir()
	draftPath := filepath.Join(dir, "draft.json")
	d := withQuickCaptions(pipeline.Draft{Source: pngDataURL(t, 120, 80), PreviewWidth: 120, PreviewHeight: 80},
		"top", "bottom", overlay.DefaultStyle())
	if err := writeDraftFile(draftPath, d); err != nil {
		t.Fatal(err)
	}

	if err := c.runPublish(ctx, draftPath, publishOpts{}); err != nil {
		t.Fatalf("server-rendered publish: %v", err)
	}
	if err := c.runPublish(ctx, draftPath, publishOpts{local: true, noCache: true}); err != nil {
		t.Fatalf("local publish: %v", err)
	}

	entries, err := s.feed.Feed(ctx, "", feed.SortNewest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("feed has %d memes, want 2", len(entries))
	}
	for _, e := range entries {
		if e.TopText != "top" || e.BottomText != "bottom" || e.AuthorEmail != "alice@example.com" {
			t.Errorf("meme = %+v", e.Meme)
		}
	}

	if err := c.runPublish(ctx, "", publishOpts{}); err == nil {
		t.Error("publish without a draft or image should fail")
	}
}

func TestPublishDraftWithLocalFile(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	s.login(t, c, "alice@example.com")
	ctx := context.Background()

	draftPath := filepath.Join(t.TempDir(), "draft.json")
	d := withQuickCaptions(pipeline.Draft{Source: writePNGFile(t, 120, 80), PreviewWidth: 120, PreviewHeight: 80},
		"local", "", overlay.DefaultStyle())
	if err := writeDraftFile(draftPath, d); err != nil {
		t.Fatal(err)
	}
	if err := c.runPublish(ctx, draftPath, publishOpts{}); err != nil {
		t.Fatalf("runPublish() error: %v", err)
	}
	entries, err := s.feed.Feed(ctx, "", feed.SortNewest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TopText != "local" {
		t.Errorf("feed = %+v, want one meme captioned local", entries)
	}
}

func TestPublishTooLargeFailsLocally(t *testing.T) {
	c := testCLI(t)
	s := startServer(t, c)
	s.login(t, c, "alice@example.com")
	c.cfg.Limits.MaxEncodedLength = 32

	path := filepath.Join(t.TempDir(), "meme.png")
	d := pipeline.Draft{Source: pngDataURL(t, 64, 64)}
	if err := writeDraftFile(path+".json", d); err != nil {
		t.Fatal(err)
	}
	err := c.runPublish(context.Background(), path+".json", publishOpts{local: true, noCache: true})
	if err == nil || !strings.Contains(err.Error(), publish.TooLargeMessage) {
		t.Fatalf("error = %v, want the too-large message", err)
	}
}
