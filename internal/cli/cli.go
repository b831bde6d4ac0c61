package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/api"
	"github.com/matzehuels/memeforge/pkg/buildinfo"
	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/compose"
	"github.com/matzehuels/memeforge/pkg/config"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	// fetchAttempts and fetchDelay control template download retries.
	fetchAttempts = 3
	fetchDelay    = time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
	sessionDir string // empty uses the config directory
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Memeforge makes memes from templates and your own images",
		Long:         `Memeforge places styled, rotatable captions over a base image, renders them at full resolution and publishes the result to a shared feed.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/memeforge/config.toml)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.feedCommand())
	root.AddCommand(c.getCommand())
	root.AddCommand(c.upvoteCommand())
	root.AddCommand(c.deleteCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and environment. The configured log
// level applies unless --verbose already raised it.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if level, err := cfg.LogLevel(); err == nil && level < c.Logger.GetLevel() {
		c.SetLogLevel(level)
	}
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use backed by the file cache.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return c.runnerFor(ch, true)
}

// runnerFor builds a runner on ch using the configured limits and fonts.
// allowFiles lets drafts name local files; the server passes false.
func (c *CLI) runnerFor(ch cache.Cache, allowFiles bool) (*pipeline.Runner, error) {
	fonts, err := compose.LoadFontSet(c.cfg.Fonts)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.Loader = imagesource.NewLoader(imagesource.LoaderOptions{
		Cache:      ch,
		Keyer:      r.Keyer,
		TTL:        c.cfg.Cache.ImageTTL,
		MaxBytes:   c.cfg.Limits.MaxDownloadBytes,
		Logger:     c.Logger,
		AllowFiles: allowFiles,
	}).WithRetry(fetchAttempts, fetchDelay)
	r.Compositor = compose.New(compose.Options{Fonts: fonts, Logger: c.Logger})
	return r, nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrumented(fc, "file"), nil
}

// =============================================================================
// Server Client
// =============================================================================

// sessionStore opens the CLI credential store.
func (c *CLI) sessionStore() (*session.CLIStore, error) {
	dir := c.sessionDir
	if dir == "" {
		cfgDir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(cfgDir, "sessions")
	}
	store, err := session.NewCLIStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}

// client returns an API client for the configured server, authenticated
// with the stored session when there is one for that server.
func (c *CLI) client(ctx context.Context) *api.Client {
	client := api.NewClient(c.cfg.Client.Server, "")
	if sess, _ := c.storedSession(ctx); sess != nil && sess.Server == client.BaseURL() {
		return client.WithToken(sess.AccessToken)
	}
	return client
}

// authedClient is client but fails when no one is logged in.
func (c *CLI) authedClient(ctx context.Context) (*api.Client, error) {
	sess, err := c.storedSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("not logged in (run '%s login' first)", appName)
	}
	client := api.NewClient(c.cfg.Client.Server, "")
	if sess.Server != client.BaseURL() {
		return nil, fmt.Errorf("logged in to %s, not %s (run '%s login' again)", sess.Server, client.BaseURL(), appName)
	}
	return client.WithToken(sess.AccessToken), nil
}

func (c *CLI) storedSession(ctx context.Context) (*session.Session, error) {
	store, err := c.sessionStore()
	if err != nil {
		return nil, err
	}
	sess, err := store.GetSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, ~/.cache/memeforge/ by default.
func (c *CLI) cacheDir() (string, error) {
	return c.cfg.CacheDir()
}
