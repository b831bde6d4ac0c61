package feed

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/observability"
)

// Service applies the feed rules over a Store and announces changes on a
// Broker. It is safe for concurrent use if the Store and Broker are.
type Service struct {
	store  Store
	broker Broker
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a Service. A nil broker uses an in-memory one and a
// nil logger discards.
func NewService(store Store, broker Broker, logger *log.Logger) *Service {
	if broker == nil {
		broker = NewMemoryBroker()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Service{
		store:  store,
		broker: broker,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Broker returns the broker events are published on.
func (s *Service) Broker() Broker { return s.broker }

// CreateMeme stores m, assigning an ID and creation time when missing.
func (s *Service) CreateMeme(ctx context.Context, m Meme) (Meme, error) {
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = s.now().UnixMilli()
	}
	if err := s.store.CreateMeme(ctx, m); err != nil {
		return Meme{}, err
	}
	s.logger.Info("meme published", "id", m.ID, "author", m.AuthorEmail, "bytes", len(m.ImageBase64))
	s.publish(ctx, Event{Type: EventMemeCreated, MemeID: m.ID, ActorID: m.AuthorID})
	return m, nil
}

// Feed returns every meme with its upvote aggregate for viewer, ordered by
// sort. viewer may be empty for anonymous readers.
func (s *Service) Feed(ctx context.Context, viewer string, sort Sort) ([]Entry, error) {
	memes, err := s.store.ListMemes(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not load memes")
	}
	upvotes, err := s.store.ListUpvotes(ctx, "")
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not load upvotes")
	}
	entries := Aggregate(memes, upvotes, viewer)
	SortEntries(entries, sort)
	return entries, nil
}

// Entry returns one meme with its upvote aggregate for viewer.
func (s *Service) Entry(ctx context.Context, id, viewer string) (Entry, error) {
	m, err := s.store.GetMeme(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	upvotes, err := s.store.ListUpvotes(ctx, id)
	if err != nil {
		return Entry{}, errs.Wrap(errs.ErrCodeInternal, err, "could not load upvotes")
	}
	return Aggregate([]Meme{m}, upvotes, viewer)[0], nil
}

// ToggleUpvote removes voter's upvote on the meme if there is one,
// otherwise adds one. It reports whether an upvote was added.
func (s *Service) ToggleUpvote(ctx context.Context, memeID, voter string) (bool, error) {
	if voter == "" {
		return false, errs.New(errs.ErrCodeUnauthorized, "sign in to upvote")
	}
	if _, err := s.store.GetMeme(ctx, memeID); err != nil {
		return false, err
	}
	upvotes, err := s.store.ListUpvotes(ctx, memeID)
	if err != nil {
		return false, errs.Wrap(errs.ErrCodeInternal, err, "could not load upvotes")
	}

	for _, u := range upvotes {
		if u.VoterID == voter {
			if err := s.store.DeleteUpvote(ctx, u.ID); err != nil {
				return false, errs.Wrap(errs.ErrCodeInternal, err, "could not remove upvote")
			}
			observability.Feed().OnUpvote(ctx, memeID, false)
			s.publish(ctx, Event{Type: EventUpvoteRemoved, MemeID: memeID, ActorID: voter})
			return false, nil
		}
	}

	u := Upvote{ID: s.newID(), MemeID: memeID, VoterID: voter, CreatedAt: s.now().UnixMilli()}
	if err := s.store.CreateUpvote(ctx, u); err != nil {
		return false, errs.Wrap(errs.ErrCodeInternal, err, "could not add upvote")
	}
	observability.Feed().OnUpvote(ctx, memeID, true)
	s.publish(ctx, Event{Type: EventUpvoteAdded, MemeID: memeID, ActorID: voter})
	return true, nil
}

// Delete removes a meme and its upvotes. Only the author may delete.
func (s *Service) Delete(ctx context.Context, memeID, requester string) error {
	m, err := s.store.GetMeme(ctx, memeID)
	if err != nil {
		return err
	}
	if requester == "" || m.AuthorID != requester {
		return errs.New(errs.ErrCodeForbidden, "only the author can delete this meme")
	}
	upvotes, err := s.store.ListUpvotes(ctx, memeID)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "could not load upvotes")
	}
	for _, u := range upvotes {
		if err := s.store.DeleteUpvote(ctx, u.ID); err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "could not remove upvotes")
		}
	}
	if err := s.store.DeleteMeme(ctx, memeID); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "could not delete meme")
	}
	s.logger.Info("meme deleted", "id", memeID, "upvotes", len(upvotes))
	observability.Feed().OnDelete(ctx, memeID)
	s.publish(ctx, Event{Type: EventMemeDeleted, MemeID: memeID, ActorID: requester})
	return nil
}

// Subscribe forwards to the broker.
func (s *Service) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	return s.broker.Subscribe(ctx)
}

func (s *Service) publish(ctx context.Context, e Event) {
	e.At = s.now().UnixMilli()
	if err := s.broker.Publish(ctx, e); err != nil {
		s.logger.Warn("event not delivered", "type", e.Type, "meme", e.MemeID, "error", err)
	}
}
