package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/compose"
	"github.com/matzehuels/memeforge/pkg/imagesource"
)

// Runner encapsulates pipeline execution with caching.
// CLI, editor and API all use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Loader     *imagesource.Loader
	Compositor *compose.Compositor
	Logger     *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The loader and compositor use defaults and may be replaced before use.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Loader:     imagesource.NewLoader(imagesource.LoaderOptions{Cache: c, Keyer: keyer, Logger: logger}),
		Compositor: compose.New(compose.Options{Logger: logger}),
		Logger:     logger,
	}
}

// Execute runs the complete load → render → encode pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	// A draft that carries its preview size can be answered from cache
	// without touching the base image.
	useCache := !opts.Refresh && opts.Cacheable()
	if opts.HasPreview() && useCache {
		if res, ok := r.cached(ctx, opts); ok {
			return res, nil
		}
	}

	// Stage 1: Load
	src, err := imagesource.Parse(opts.Source)
	if err != nil {
		return nil, err
	}
	loadStart := time.Now()
	base, err := r.Loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(loadStart)

	r.Logger.Info("loaded base image",
		"source", src.Label(),
		"width", base.Width,
		"height", base.Height,
		"duration", loadTime)

	if !opts.HasPreview() {
		opts.PreviewWidth, opts.PreviewHeight = base.Preview(DefaultPreviewMaxWidth, DefaultPreviewMaxHeight)
		if useCache {
			if res, ok := r.cached(ctx, opts); ok {
				return res, nil
			}
		}
	}

	res, err := r.RenderWithCacheInfo(ctx, base, opts)
	if err != nil {
		return nil, err
	}
	res.Stats.LoadTime = loadTime
	return res, nil
}

// RenderWithCacheInfo renders opts over an already loaded base image and
// caches the encoded result. The draft's Source is used only for the cache
// key. Cacheable drafts are always written, even when opts.Refresh is set.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, base *imagesource.BaseImage, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if base != nil && !opts.HasPreview() {
		opts.PreviewWidth, opts.PreviewHeight = base.Preview(DefaultPreviewMaxWidth, DefaultPreviewMaxHeight)
	}

	res := &Result{
		DraftHash:     opts.Draft.Hash(),
		PreviewWidth:  opts.PreviewWidth,
		PreviewHeight: opts.PreviewHeight,
	}
	res.Stats.Annotations = len(opts.Annotations)

	// Stage 2: Render
	var baseImage image.Image
	if base != nil {
		baseImage = base.Image
	}
	renderStart := time.Now()
	surface, err := r.Compositor.Render(ctx, baseImage, opts.Annotations, opts.PreviewWidth, opts.PreviewHeight)
	if err != nil {
		return nil, err
	}
	res.Stats.RenderTime = time.Since(renderStart)
	res.Width, res.Height = surface.Bounds().Dx(), surface.Bounds().Dy()

	r.Logger.Info("composited annotations",
		"annotations", res.Stats.Annotations,
		"width", res.Width,
		"height", res.Height,
		"duration", res.Stats.RenderTime)

	// Stage 3: Encode
	encodeStart := time.Now()
	dataURL, err := compose.Encode(surface, compose.Format(opts.Format), opts.Quality)
	if err != nil {
		return nil, err
	}
	res.DataURL = dataURL
	res.Stats.EncodeTime = time.Since(encodeStart)
	res.Stats.Bytes = len(dataURL)

	r.Logger.Info("encoded meme",
		"format", opts.Format,
		"bytes", res.Stats.Bytes,
		"duration", res.Stats.EncodeTime)

	if opts.Cacheable() {
		_ = r.Cache.Set(ctx, r.Keyer.RenderKey(res.DraftHash, opts.RenderKeyOpts()), []byte(dataURL), cache.RenderTTL)
	}
	return res, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and returns only the data URL.
func (r *Runner) Render(ctx context.Context, base *imagesource.BaseImage, opts Options) (string, error) {
	res, err := r.RenderWithCacheInfo(ctx, base, opts)
	if err != nil {
		return "", err
	}
	return res.DataURL, nil
}

func (r *Runner) cached(ctx context.Context, opts Options) (*Result, bool) {
	hash := opts.Draft.Hash()
	data, hit, err := r.Cache.Get(ctx, r.Keyer.RenderKey(hash, opts.RenderKeyOpts()))
	if err != nil || !hit {
		return nil, false
	}
	r.Logger.Debug("render cache hit", "draft", hash[:12])
	return &Result{
		DataURL:       string(data),
		DraftHash:     hash,
		PreviewWidth:  opts.PreviewWidth,
		PreviewHeight: opts.PreviewHeight,
		Stats:         Stats{Annotations: len(opts.Annotations), Bytes: len(data)},
		CacheInfo:     CacheInfo{RenderHit: true},
	}, true
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
