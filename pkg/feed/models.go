package feed

import (
	"strings"
	"time"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

// Meme is a published meme. CreatedAt is in Unix milliseconds.
type Meme struct {
	ID          string `json:"id" bson:"_id"`
	ImageBase64 string `json:"imageBase64,omitempty" bson:"imageBase64"`
	TopText     string `json:"topText" bson:"topText"`
	BottomText  string `json:"bottomText" bson:"bottomText"`
	AuthorID    string `json:"authorId" bson:"authorId"`
	AuthorEmail string `json:"authorEmail" bson:"authorEmail"`
	CreatedAt   int64  `json:"createdAt" bson:"createdAt"`
}

// Created returns CreatedAt as a time.
func (m Meme) Created() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// Title joins the captions for display.
func (m Meme) Title() string {
	parts := make([]string, 0, 2)
	for _, s := range []string{m.TopText, m.BottomText} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " / ")
}

// Upvote is one user's vote on a meme.
type Upvote struct {
	ID        string `json:"id" bson:"_id"`
	MemeID    string `json:"memeId" bson:"memeId"`
	VoterID   string `json:"voterId" bson:"voterId"`
	CreatedAt int64  `json:"createdAt" bson:"createdAt"`
}

// Entry is a meme as shown in the feed to a particular viewer.
type Entry struct {
	Meme
	Upvotes      int    `json:"upvotes"`
	HasUpvoted   bool   `json:"hasUpvoted"`
	UserUpvoteID string `json:"userUpvoteId,omitempty"`
}

// Sort selects the feed ordering.
type Sort string

const (
	SortNewest  Sort = "newest"
	SortPopular Sort = "popular"
)

// ParseSort parses a sort name. Empty means newest.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortPopular:
		return SortPopular, nil
	}
	return "", errs.New(errs.ErrCodeInvalidInput, "unknown sort %q (use newest or popular)", s)
}
