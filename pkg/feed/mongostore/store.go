// Package mongostore persists the feed in MongoDB.
//
// Memes and upvotes live in two flat collections, "memes" and "upvotes",
// keyed by their string IDs.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
)

// Collection names.
const (
	MemesCollection   = "memes"
	UpvotesCollection = "upvotes"
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "memeforge"

const connectTimeout = 10 * time.Second

// Store implements feed.Store on MongoDB.
type Store struct {
	client  *mongo.Client
	memes   *mongo.Collection
	upvotes *mongo.Collection
	owned   bool
}

// Connect dials uri, checks the connection and ensures indexes. The
// returned store owns the client and disconnects it on Close.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := New(client, database)
	s.owned = true
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// New wraps an existing client. The client is not disconnected on Close.
func New(client *mongo.Client, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	db := client.Database(database)
	return &Store{
		client:  client,
		memes:   db.Collection(MemesCollection),
		upvotes: db.Collection(UpvotesCollection),
	}
}

// EnsureIndexes creates the indexes the feed queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.memes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create meme index: %w", err)
	}
	if _, err := s.upvotes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "memeId", Value: 1}}},
		{Keys: bson.D{{Key: "memeId", Value: 1}, {Key: "voterId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create upvote indexes: %w", err)
	}
	return nil
}

func (s *Store) CreateMeme(ctx context.Context, m feed.Meme) error {
	if _, err := s.memes.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.New(errs.ErrCodeInvalidInput, "meme %s already exists", m.ID)
		}
		return fmt.Errorf("insert meme: %w", err)
	}
	return nil
}

func (s *Store) GetMeme(ctx context.Context, id string) (feed.Meme, error) {
	var m feed.Meme
	err := s.memes.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return feed.Meme{}, errs.New(errs.ErrCodeMemeNotFound, "meme %s not found", id)
	}
	if err != nil {
		return feed.Meme{}, fmt.Errorf("find meme: %w", err)
	}
	return m, nil
}

func (s *Store) DeleteMeme(ctx context.Context, id string) error {
	if _, err := s.memes.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete meme: %w", err)
	}
	return nil
}

func (s *Store) ListMemes(ctx context.Context) ([]feed.Meme, error) {
	cur, err := s.memes.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, fmt.Errorf("list memes: %w", err)
	}
	memes := []feed.Meme{}
	if err := cur.All(ctx, &memes); err != nil {
		return nil, fmt.Errorf("decode memes: %w", err)
	}
	return memes, nil
}

func (s *Store) CreateUpvote(ctx context.Context, u feed.Upvote) error {
	if _, err := s.upvotes.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.New(errs.ErrCodeInvalidInput, "upvote %s already exists", u.ID)
		}
		return fmt.Errorf("insert upvote: %w", err)
	}
	return nil
}

func (s *Store) DeleteUpvote(ctx context.Context, id string) error {
	if _, err := s.upvotes.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete upvote: %w", err)
	}
	return nil
}

func (s *Store) ListUpvotes(ctx context.Context, memeID string) ([]feed.Upvote, error) {
	filter := bson.M{}
	if memeID != "" {
		filter["memeId"] = memeID
	}
	cur, err := s.upvotes.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list upvotes: %w", err)
	}
	var upvotes []feed.Upvote
	if err := cur.All(ctx, &upvotes); err != nil {
		return nil, fmt.Errorf("decode upvotes: %w", err)
	}
	return upvotes, nil
}

// Close disconnects the client if the store owns it.
func (s *Store) Close(ctx context.Context) error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ feed.Store = (*Store)(nil)
