package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/memeforge/pkg/buildinfo"
	"github.com/matzehuels/memeforge/pkg/cache"
	"github.com/matzehuels/memeforge/pkg/compose"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/httputil"
	"github.com/matzehuels/memeforge/pkg/observability"
)

// LoadFailedMessage is the user-facing message for every load failure.
const LoadFailedMessage = "Failed to load image. Please try another image."

// BaseImage is a decoded base image and where it came from.
type BaseImage struct {
	Image  image.Image
	Width  int
	Height int
	Source Source
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Cache      cache.Cache   // remote image bytes; nil disables caching
	Keyer      cache.Keyer   // nil uses the default keyer
	TTL        time.Duration // 0 uses cache.ImageTTL
	MaxBytes   int64         // 0 uses httputil.DefaultMaxBytes
	HTTPClient *http.Client  // nil uses httputil.NewHTTPClient
	Logger     *log.Logger   // nil discards

	// AllowFiles enables KindFile sources. Only loaders acting for the
	// local user should set it; servers never read their own disk.
	AllowFiles bool
}

// Loader fetches and decodes base images. Safe for concurrent use.
type Loader struct {
	client     *httputil.Client
	keyer      cache.Keyer
	maxBytes   int64
	allowFiles bool
	logger     *log.Logger
}

// NewLoader creates a Loader.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL <= 0 {
		opts.TTL = cache.ImageTTL
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = httputil.DefaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	client := httputil.NewClient(opts.Cache, "image", opts.TTL, map[string]string{"User-Agent": buildinfo.UserAgent()}).
		WithMaxBytes(opts.MaxBytes).
		WithKeyer(opts.Keyer)
	if opts.HTTPClient != nil {
		client.WithHTTPClient(opts.HTTPClient)
	}
	return &Loader{
		client:     client,
		keyer:      opts.Keyer,
		maxBytes:   opts.MaxBytes,
		allowFiles: opts.AllowFiles,
		logger:     opts.Logger,
	}
}

// WithRetry sets the attempt count and initial delay for remote fetches.
func (l *Loader) WithRetry(attempts int, delay time.Duration) *Loader {
	l.client.WithRetry(attempts, delay)
	return l
}

// ErrFilesDisabled is returned for file sources on a loader without AllowFiles.
var ErrFilesDisabled = errs.New(errs.ErrCodeInvalidInput, "local file sources are not accepted; send the image as a data URL")

// Load reads and decodes src. EXIF orientation is applied.
func (l *Loader) Load(ctx context.Context, src Source) (*BaseImage, error) {
	if src.Kind == KindFile && !l.allowFiles {
		return nil, ErrFilesDisabled
	}
	hooks := observability.Render()
	hooks.OnLoadStart(ctx, string(src.Kind), src.Label())
	start := time.Now()

	img, err := l.load(ctx, src)

	var w, h int
	if img != nil {
		w, h = img.Width, img.Height
	}
	hooks.OnLoadComplete(ctx, string(src.Kind), src.Label(), w, h, time.Since(start), err)
	if err != nil {
		l.logger.Warn("image load failed", "source", src.Label(), "kind", src.Kind, "error", err)
		return nil, err
	}
	l.logger.Debug("image loaded", "source", src.Label(), "width", w, "height", h, "duration", time.Since(start))
	return img, nil
}

func (l *Loader) load(ctx context.Context, src Source) (*BaseImage, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, loadFailed(err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, loadFailed(fmt.Errorf("decode: %w", err))
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, loadFailed(errors.New("image has no pixels"))
	}
	return &BaseImage{Image: img, Width: b.Dx(), Height: b.Dy(), Source: src}, nil
}

func (l *Loader) read(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind {
	case KindTemplate, KindURL:
		if err := errs.ValidateURL(src.Value); err != nil {
			return nil, err
		}
		return l.client.GetKeyed(ctx, l.keyer.ImageKey(src.Value), src.Value, false)
	case KindData:
		_, data, err := compose.DecodeDataURL(src.Value)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > l.maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", httputil.ErrTooLarge, len(data))
		}
		return data, nil
	case KindFile:
		return l.readFile(src.Value)
	}
	return nil, fmt.Errorf("unknown source kind %q", src.Kind)
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", httputil.ErrTooLarge, path, info.Size())
	}
	return os.ReadFile(path)
}

// loadFailed wraps err in the single user-facing load failure.
// Cancellation passes through so a superseded load is not reported.
func loadFailed(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errs.Wrap(errs.ErrCodeImageLoad, err, LoadFailedMessage)
}
