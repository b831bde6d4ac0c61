package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/memeforge/pkg/buildinfo"
	"github.com/matzehuels/memeforge/pkg/compose"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/templates"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}

// =============================================================================
// Auth
// =============================================================================

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.RequestCode(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.auth.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Token:     sess.ID,
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identityFrom(r.Context()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), tokenFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Templates and rendering
// =============================================================================

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, templates.All())
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := s.decodeJSON(w, r, &opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkSource(r.Context(), opts.Source); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{
		DataURL:       res.DataURL,
		DraftHash:     res.DraftHash,
		Width:         res.Width,
		Height:        res.Height,
		PreviewWidth:  res.PreviewWidth,
		PreviewHeight: res.PreviewHeight,
		Cached:        res.CacheInfo.RenderHit,
	})
}

// checkSource rejects draft sources the server will not load. Local paths
// are refused for everyone; arbitrary URLs need a signed-in caller.
func checkSource(ctx context.Context, raw string) error {
	src, err := imagesource.Parse(raw)
	if err != nil {
		return err
	}
	switch src.Kind {
	case imagesource.KindFile:
		return imagesource.ErrFilesDisabled
	case imagesource.KindURL:
		if identityFrom(ctx).IsZero() {
			return errs.New(errs.ErrCodeUnauthorized, "sign in to render images from URLs")
		}
	}
	return nil
}

// =============================================================================
// Memes
// =============================================================================

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sort, err := feed.ParseSort(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	images, _ := strconv.ParseBool(r.URL.Query().Get("images"))

	viewer := identityFrom(r.Context()).UserID
	entries, err := s.feed.Feed(r.Context(), viewer, sort)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]MemeView, len(entries))
	for i, e := range entries {
		views[i] = s.view(e, viewer, images)
	}
	writeJSON(w, http.StatusOK, FeedResponse{Sort: sort, Memes: views})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := identityFrom(r.Context())

	var (
		m   feed.Meme
		err error
	)
	switch {
	case req.Draft != nil && req.ImageBase64 != "":
		err = errs.New(errs.ErrCodeInvalidInput, "send either a draft or an encoded image, not both")
	case req.Draft != nil:
		if err = checkSource(r.Context(), req.Draft.Source); err == nil {
			m, err = s.publisher.Publish(r.Context(), id, pipeline.Options{Draft: *req.Draft})
		}
	case req.ImageBase64 != "":
		m, err = s.publisher.PublishEncoded(r.Context(), id, req.ImageBase64, req.Annotations)
	default:
		err = errs.New(errs.ErrCodeNoBaseImage, "nothing to publish")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(feed.Entry{Meme: m}, id.UserID, false))
}

func (s *Server) handleMeme(w http.ResponseWriter, r *http.Request) {
	viewer := identityFrom(r.Context()).UserID
	e, err := s.feed.Entry(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(e, viewer, true))
}

func (s *Server) handleMemeImage(w http.ResponseWriter, r *http.Request) {
	e, err := s.feed.Entry(r.Context(), chi.URLParam(r, "id"), "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mime, data, err := compose.DecodeDataURL(e.ImageBase64)
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "stored image is corrupt"))
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if err := s.feed.Delete(r.Context(), chi.URLParam(r, "id"), id.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	memeID := chi.URLParam(r, "id")
	added, err := s.feed.ToggleUpvote(r.Context(), memeID, id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.feed.Entry(r.Context(), memeID, id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpvoteResponse{Upvoted: added, Upvotes: e.Upvotes})
}

// view prepares an entry for viewer. The image is dropped unless requested;
// clients fetch it from ImageURL instead.
func (s *Server) view(e feed.Entry, viewer string, withImage bool) MemeView {
	if !withImage {
		e.ImageBase64 = ""
	}
	return MemeView{
		Entry:    e,
		ImageURL: "/api/memes/" + e.ID + "/image",
		Age:      feed.RelativeTime(e.Created(), s.now()),
		IsOwner:  viewer != "" && viewer == e.AuthorID,
	}
}
