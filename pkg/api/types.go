package api

import (
	"time"

	"github.com/matzehuels/memeforge/pkg/buildinfo"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeRequest asks for a sign-in code.
type CodeRequest struct {
	Email string `json:"email"`
}

// VerifyRequest exchanges a sign-in code for a token.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyResponse carries a new session.
type VerifyResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RenderResponse is the result of POST /api/render.
type RenderResponse struct {
	DataURL       string  `json:"data_url"`
	DraftHash     string  `json:"draft_hash"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
	PreviewWidth  float64 `json:"preview_width"`
	PreviewHeight float64 `json:"preview_height"`
	Cached        bool    `json:"cached"`
}

// PublishRequest publishes either a draft, which the server renders, or an
// already encoded image. Captions come from the first two annotations.
type PublishRequest struct {
	Draft       *pipeline.Draft      `json:"draft,omitempty"`
	ImageBase64 string               `json:"imageBase64,omitempty"`
	Annotations []overlay.Annotation `json:"annotations,omitempty"`
}

// MemeView is a feed entry as returned to clients.
type MemeView struct {
	feed.Entry
	ImageURL string `json:"imageUrl"`
	Age      string `json:"age"`
	IsOwner  bool   `json:"isOwner"`
}

// FeedResponse is the result of GET /api/memes.
type FeedResponse struct {
	Sort  feed.Sort  `json:"sort"`
	Memes []MemeView `json:"memes"`
}

// UpvoteResponse is the result of an upvote toggle.
type UpvoteResponse struct {
	Upvoted bool `json:"upvoted"`
	Upvotes int  `json:"upvotes"`
}

// HealthResponse is the result of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}
