//go:build integration

package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
)

func connect(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MEMEFORGE_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx := context.Background()
	db := fmt.Sprintf("memeforge_test_%d", time.Now().UnixNano())
	s, err := Connect(ctx, uri, db)
	if err != nil {
		t.Skipf("mongo not available at %s: %v", uri, err)
	}
	t.Cleanup(func() {
		_ = s.client.Database(db).Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestStoreIntegration(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		if err := s.CreateMeme(ctx, feed.Meme{ID: id, AuthorID: "alice", CreatedAt: int64(i + 1)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateMeme(ctx, feed.Meme{ID: "a"}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("duplicate CreateMeme error = %v", err)
	}

	memes, err := s.ListMemes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(memes) != 2 || memes[0].ID != "b" {
		t.Errorf("ListMemes() = %+v, want b first", memes)
	}

	_ = s.CreateUpvote(ctx, feed.Upvote{ID: "u1", MemeID: "a", VoterID: "bob"})
	_ = s.CreateUpvote(ctx, feed.Upvote{ID: "u2", MemeID: "b", VoterID: "bob"})
	ups, _ := s.ListUpvotes(ctx, "a")
	if len(ups) != 1 || ups[0].VoterID != "bob" {
		t.Errorf("ListUpvotes(a) = %+v", ups)
	}

	svc := feed.NewService(s, nil, nil)
	if err := svc.Delete(ctx, "a", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMeme(ctx, "a"); !errs.Is(err, errs.ErrCodeMemeNotFound) {
		t.Errorf("GetMeme after delete error = %v", err)
	}
	all, _ := s.ListUpvotes(ctx, "")
	if len(all) != 1 || all[0].ID != "u2" {
		t.Errorf("remaining upvotes = %+v", all)
	}
}
