package feed

import (
	"context"
	"sort"
	"sync"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

// Store persists memes and upvotes.
type Store interface {
	// CreateMeme inserts a meme. IDs are assigned by the caller.
	CreateMeme(ctx context.Context, m Meme) error

	// GetMeme returns a meme or an error with code MEME_NOT_FOUND.
	GetMeme(ctx context.Context, id string) (Meme, error)

	// DeleteMeme removes a meme. Deleting a missing meme is not an error.
	DeleteMeme(ctx context.Context, id string) error

	// ListMemes returns all memes, newest first.
	ListMemes(ctx context.Context) ([]Meme, error)

	// CreateUpvote inserts an upvote.
	CreateUpvote(ctx context.Context, u Upvote) error

	// DeleteUpvote removes an upvote. Deleting a missing upvote is not an error.
	DeleteUpvote(ctx context.Context, id string) error

	// ListUpvotes returns the upvotes of one meme, or all upvotes when
	// memeID is empty.
	ListUpvotes(ctx context.Context, memeID string) ([]Upvote, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

func memeNotFound(id string) error {
	return errs.New(errs.ErrCodeMemeNotFound, "meme %s not found", id)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	memes   map[string]Meme
	upvotes map[string]Upvote
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		memes:   make(map[string]Meme),
		upvotes: make(map[string]Upvote),
	}
}

func (s *MemoryStore) CreateMeme(ctx context.Context, m Meme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memes[m.ID]; ok {
		return errs.New(errs.ErrCodeInvalidInput, "meme %s already exists", m.ID)
	}
	s.memes[m.ID] = m
	return nil
}

func (s *MemoryStore) GetMeme(ctx context.Context, id string) (Meme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memes[id]
	if !ok {
		return Meme{}, memeNotFound(id)
	}
	return m, nil
}

func (s *MemoryStore) DeleteMeme(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memes, id)
	return nil
}

func (s *MemoryStore) ListMemes(ctx context.Context) ([]Meme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Meme, 0, len(s.memes))
	for _, m := range s.memes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateUpvote(ctx context.Context, u Upvote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.upvotes[u.ID]; ok {
		return errs.New(errs.ErrCodeInvalidInput, "upvote %s already exists", u.ID)
	}
	s.upvotes[u.ID] = u
	return nil
}

func (s *MemoryStore) DeleteUpvote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.upvotes, id)
	return nil
}

func (s *MemoryStore) ListUpvotes(ctx context.Context, memeID string) ([]Upvote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Upvote
	for _, u := range s.upvotes {
		if memeID == "" || u.MemeID == memeID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
