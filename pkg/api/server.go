package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
)

// Options configures a Server. Auth, Feed, Runner and Publisher are required.
type Options struct {
	Auth      *auth.Service
	Feed      *feed.Service
	Runner    *pipeline.Runner
	Publisher *publish.Publisher

	// MaxBodyBytes bounds JSON request bodies. 0 allows twice the
	// publisher's encoded length limit plus 1 MiB for the draft.
	MaxBodyBytes int64

	// Heartbeat is the SSE keep-alive interval. 0 uses 25s.
	Heartbeat time.Duration

	// NoAuth treats anonymous requests as the local development user.
	NoAuth bool

	Logger *log.Logger
}

// Server is the memeforge HTTP API.
type Server struct {
	auth      *auth.Service
	feed      *feed.Service
	runner    *pipeline.Runner
	publisher *publish.Publisher
	maxBody   int64
	heartbeat time.Duration
	noAuth    bool
	logger    *log.Logger
	router    chi.Router
	now       func() time.Time
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = int64(2*opts.Publisher.MaxEncodedLength()) + 1<<20
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}
	s := &Server{
		auth:      opts.Auth,
		feed:      opts.Feed,
		runner:    opts.Runner,
		publisher: opts.Publisher,
		maxBody:   opts.MaxBodyBytes,
		heartbeat: opts.Heartbeat,
		noAuth:    opts.NoAuth,
		logger:    opts.Logger,
		now:       time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.identify)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/code", s.handleRequestCode)
			r.Post("/verify", s.handleVerify)
			r.With(s.requireAuth).Get("/me", s.handleMe)
			r.With(s.requireAuth).Post("/logout", s.handleLogout)
		})

		r.Get("/templates", s.handleTemplates)
		r.Post("/render", s.handleRender)
		r.Get("/events", s.handleEvents)

		r.Route("/memes", func(r chi.Router) {
			r.Get("/", s.handleFeed)
			r.With(s.requireAuth).Post("/", s.handlePublish)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleMeme)
				r.Get("/image", s.handleMemeImage)
				r.With(s.requireAuth).Delete("/", s.handleDelete)
				r.With(s.requireAuth).Post("/upvote", s.handleUpvote)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Code: "NOT_FOUND", Message: "no such route"})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RunOptions configures the listening socket.
type RunOptions struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run listens on opts.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, opts RunOptions) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      s,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
