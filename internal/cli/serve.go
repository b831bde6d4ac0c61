package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/api"
	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/buildinfo"
	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/feed/mongostore"
	"github.com/matzehuels/memeforge/pkg/feed/redisbroker"
	"github.com/matzehuels/memeforge/pkg/publish"
	"github.com/matzehuels/memeforge/pkg/session"
)

// Key prefixes for server state kept in Redis.
const (
	redisSessionPrefix = "memeforge:session:"
	redisCodePrefix    = "memeforge:code:"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr   string
	noAuth bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the memeforge HTTP API: sign-in, server-side rendering, the meme feed
and its live event stream.

Without [mongo] and [redis] configuration every store lives in memory,
which is enough for local development.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&opts.noAuth, "no-auth", false, "treat anonymous requests as the local development user")

	return cmd
}

// backends are the stores behind the server. close releases whatever was
// opened, in reverse order.
type backends struct {
	auth   *auth.Service
	feed   *feed.Service
	cache  cache.Cache
	closer []func() error
}

func (b *backends) close() error {
	var errs []error
	for i := len(b.closer) - 1; i >= 0; i-- {
		errs = append(errs, b.closer[i]())
	}
	return errors.Join(errs...)
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	registerLogHooks(c.Logger)

	b, err := c.openBackends(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			c.Logger.Warn("closing backends", "error", err)
		}
	}()

	runner, err := c.runnerFor(b.cache, false)
	if err != nil {
		return err
	}
	publisher := publish.New(b.feed, runner, publish.Options{
		MaxEncodedLength: c.cfg.Limits.MaxEncodedLength,
		Logger:           c.Logger,
	})

	srv := api.New(api.Options{
		Auth:      b.auth,
		Feed:      b.feed,
		Runner:    runner,
		Publisher: publisher,
		NoAuth:    opts.noAuth,
		Logger:    c.Logger,
	})

	addr := opts.addr
	if addr == "" {
		addr = c.cfg.Server.Addr
	}
	if opts.noAuth {
		c.Logger.Warn("authentication disabled, anonymous requests act as the local user")
	}
	c.Logger.Info("listening", "addr", addr, "version", buildinfo.Version)
	return srv.Run(ctx, api.RunOptions{
		Addr:            addr,
		ReadTimeout:     c.cfg.Server.ReadTimeout,
		WriteTimeout:    c.cfg.Server.WriteTimeout,
		ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
	})
}

// openBackends connects to Redis and MongoDB when configured and falls back
// to in-memory stores otherwise.
func (c *CLI) openBackends(ctx context.Context) (*backends, error) {
	b := &backends{}
	authOpts := auth.Options{
		CodeTTL:    c.cfg.Auth.CodeTTL,
		SessionTTL: c.cfg.Auth.SessionTTL,
		Logger:     c.Logger,
	}
	var broker feed.Broker

	if c.cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     c.cfg.Redis.Addr,
			Password: c.cfg.Redis.Password,
			DB:       c.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", c.cfg.Redis.Addr, err)
		}
		b.closer = append(b.closer, client.Close)
		c.Logger.Info("using redis", "addr", c.cfg.Redis.Addr)

		authOpts.Sessions = session.NewRedisStore(client, redisSessionPrefix)
		authOpts.Codes = auth.NewRedisCodeStore(client, redisCodePrefix)
		b.cache = cache.Instrumented(cache.NewRedisCache(client), "redis")
		rb := redisbroker.New(client, c.cfg.Redis.Channel, c.Logger)
		b.closer = append(b.closer, rb.Close)
		broker = rb
	} else {
		authOpts.Sessions = session.NewMemoryStore()
		authOpts.Codes = auth.NewMemoryCodeStore()
		ch, err := c.newCache(false)
		if err != nil {
			return nil, err
		}
		b.cache = ch
		broker = feed.NewMemoryBroker()
		b.closer = append(b.closer, broker.Close)
	}
	b.closer = append(b.closer, b.cache.Close)

	store, err := c.openStore(ctx)
	if err != nil {
		_ = b.close()
		return nil, err
	}
	b.closer = append(b.closer, func() error { return store.Close(context.Background()) })

	b.auth = auth.NewService(authOpts)
	b.feed = feed.NewService(store, broker, c.Logger)
	return b, nil
}

func (c *CLI) openStore(ctx context.Context) (feed.Store, error) {
	if c.cfg.Mongo.URI == "" {
		c.Logger.Info("keeping memes in memory")
		return feed.NewMemoryStore(), nil
	}
	store, err := mongostore.Connect(ctx, c.cfg.Mongo.URI, c.cfg.Mongo.Database)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c.Logger.Info("using mongo", "database", c.cfg.Mongo.Database)
	return store, nil
}
