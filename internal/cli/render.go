package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/compose"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
)

// captionMargin is the gap between quick captions and the image edge, in
// preview pixels.
const captionMargin = 10.0

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string // output file path
	source    string // base image: URL, file, data URL or template:<name>
	template  string // template name, shorthand for --source template:<name>
	top       string // quick mode top caption
	bottom    string // quick mode bottom caption
	color     string
	fontSize  int
	font      string
	format    string // png or jpeg; inferred from --output when empty
	quality   int    // JPEG quality
	noCache   bool
	refresh   bool
	remote    bool   // render on the configured server
	saveDraft string // also write the draft JSON here
}

// renderCommand creates the render command.
//
// With a draft file the draft is rendered as is. Without one, a quick meme
// is built from --template or --source plus --top and --bottom captions.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		color:    overlay.DefaultColor,
		fontSize: overlay.DefaultFontSize,
		font:     overlay.DefaultFontFamily.Label(),
	}

	cmd := &cobra.Command{
		Use:   "render [draft.json|-]",
		Short: "Render a meme to an image file",
		Long: `Render a draft, or a quick meme with top and bottom captions, at the base
image's native resolution.

Examples:
  memeforge render draft.json -o meme.png
  memeforge render --template drake --top "Writing tests" --bottom "Shipping"
  memeforge render --source ./cat.jpg --top "Hello" -o cat.jpg --quality 90`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var draftPath string
			if len(args) == 1 {
				draftPath = args[0]
			}
			return c.runRender(cmd.Context(), draftPath, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (default meme.png or meme.jpg)")
	f.StringVar(&opts.source, "source", "", "base image: URL, file path, data URL or template:<name>")
	f.StringVarP(&opts.template, "template", "t", "", "template name (see 'memeforge templates')")
	f.StringVar(&opts.top, "top", "", "top caption")
	f.StringVar(&opts.bottom, "bottom", "", "bottom caption")
	f.StringVar(&opts.color, "color", opts.color, "caption color (#rgb or #rrggbb)")
	f.IntVar(&opts.fontSize, "size", opts.fontSize, "caption font size in preview pixels")
	f.StringVar(&opts.font, "font", opts.font, "caption font family")
	f.StringVar(&opts.format, "format", "", "output format: png or jpeg")
	f.IntVar(&opts.quality, "quality", 0, "JPEG quality 1-100")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the local cache")
	f.BoolVar(&opts.refresh, "refresh", false, "re-render even when a cached result exists")
	f.BoolVar(&opts.remote, "remote", false, "render on the configured server")
	f.StringVar(&opts.saveDraft, "save-draft", "", "also write the draft JSON to this file")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, draftPath string, opts renderOpts) error {
	prog := newProgress(c.Logger)
	format, err := resolveFormat(opts.format, opts.output, c.cfg.Render.Format)
	if err != nil {
		return err
	}
	if opts.output == "" {
		opts.output = "meme." + extension(format)
	}
	quality := opts.quality
	if quality == 0 {
		quality = c.cfg.Render.JPEGQuality
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var base *imagesource.BaseImage
	var draft pipeline.Draft
	if draftPath != "" {
		if draft, err = readDraftFile(draftPath); err != nil {
			return err
		}
	} else {
		if base, err = c.loadQuickBase(ctx, runner, opts); err != nil {
			return err
		}
		if draft, err = c.quickDraft(base, opts); err != nil {
			return err
		}
	}

	po := pipeline.Options{
		Draft:   draft,
		Format:  string(format),
		Quality: quality,
		Refresh: opts.refresh,
	}
	if opts.saveDraft != "" {
		if err := writeDraftFile(opts.saveDraft, draft); err != nil {
			return err
		}
	}

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	dataURL, w, h, cached, err := c.render(ctx, runner, base, po, opts.remote)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	_, data, err := compose.DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}

	prog.done("Rendered " + opts.output)
	printSuccess("Rendered meme")
	printFile(opts.output)
	printStats(w, h, len(draft.Annotations), len(data), cached)
	if opts.saveDraft != "" {
		printNextStep("Edit it", "memeforge edit "+opts.saveDraft)
	}
	return nil
}

// render runs the draft locally, reusing base when it is already loaded,
// or on the server.
func (c *CLI) render(ctx context.Context, runner *pipeline.Runner, base *imagesource.BaseImage, opts pipeline.Options, remote bool) (dataURL string, w, h int, cached bool, err error) {
	if remote {
		if opts.Draft, err = inlineFileSource(ctx, runner.Loader, base, opts.Draft); err != nil {
			return "", 0, 0, false, err
		}
		res, err := c.client(ctx).Render(ctx, opts)
		if err != nil {
			return "", 0, 0, false, err
		}
		return res.DataURL, res.Width, res.Height, res.Cached, nil
	}
	var res *pipeline.Result
	if base != nil {
		res, err = runner.RenderWithCacheInfo(ctx, base, opts)
	} else {
		res, err = runner.Execute(ctx, opts)
	}
	if err != nil {
		return "", 0, 0, false, err
	}
	return res.DataURL, res.Width, res.Height, res.CacheInfo.RenderHit, nil
}

// inlineFileSource replaces a local file source with a PNG data URL, since
// the server does not read files. base is reused when it is already loaded.
func inlineFileSource(ctx context.Context, loader *imagesource.Loader, base *imagesource.BaseImage, d pipeline.Draft) (pipeline.Draft, error) {
	if base == nil || base.Source.String() != d.Source {
		src, err := imagesource.Parse(d.Source)
		if err != nil || src.Kind != imagesource.KindFile {
			return d, err
		}
		if base, err = loader.Load(ctx, src); err != nil {
			return d, err
		}
	}
	if base.Source.Kind != imagesource.KindFile {
		return d, nil
	}
	dataURL, err := compose.Encode(base.Image, compose.FormatPNG, 0)
	if err != nil {
		return d, err
	}
	d.Source = dataURL
	return d, nil
}

func (c *CLI) loadQuickBase(ctx context.Context, runner *pipeline.Runner, opts renderOpts) (*imagesource.BaseImage, error) {
	raw := opts.source
	if opts.template != "" {
		if raw != "" {
			return nil, fmt.Errorf("use either --template or --source, not both")
		}
		raw = "template:" + opts.template
	}
	if raw == "" {
		return nil, fmt.Errorf("pass a draft file, --template or --source")
	}
	src, err := imagesource.Parse(raw)
	if err != nil {
		return nil, err
	}
	spinner := newSpinnerWithContext(ctx, "Loading "+src.Label()+"...")
	spinner.Start()
	base, err := runner.Loader.Load(ctx, src)
	spinner.Stop()
	return base, err
}

// quickDraft places the top and bottom captions as full-width boxes along
// the top and bottom edges of the preview.
func (c *CLI) quickDraft(base *imagesource.BaseImage, opts renderOpts) (pipeline.Draft, error) {
	family, err := overlay.ParseFontFamily(opts.font)
	if err != nil {
		return pipeline.Draft{}, err
	}
	pw, ph := base.Preview(c.cfg.Editor.PreviewMaxWidth, c.cfg.Editor.PreviewMaxHeight)
	style := overlay.Style{
		Color:      opts.color,
		FontSize:   overlay.NormalizeFontSize(opts.fontSize),
		FontFamily: family,
	}
	d := pipeline.Draft{
		Source:        base.Source.String(),
		PreviewWidth:  pw,
		PreviewHeight: ph,
	}
	return withQuickCaptions(d, opts.top, opts.bottom, style), nil
}

func withQuickCaptions(d pipeline.Draft, top, bottom string, style overlay.Style) pipeline.Draft {
	w := max(overlay.MinWidth, d.PreviewWidth-2*captionMargin)
	h := max(overlay.MinHeight, float64(style.FontSize)*2)
	if top != "" {
		d.Annotations = append(d.Annotations, overlay.Annotation{
			ID: 1, X: captionMargin, Y: captionMargin, Width: w, Height: h,
			Text: top, Style: style,
		})
	}
	if bottom != "" {
		d.Annotations = append(d.Annotations, overlay.Annotation{
			ID: 2, X: captionMargin, Y: max(0, d.PreviewHeight-captionMargin-h), Width: w, Height: h,
			Text: bottom, Style: style,
		})
	}
	return d
}

// resolveFormat picks the explicit format, then the output extension, then
// the configured default.
func resolveFormat(explicit, output, fallback string) (compose.Format, error) {
	if explicit != "" {
		return compose.ParseFormat(explicit)
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".jpg", ".jpeg":
		return compose.FormatJPEG, nil
	case ".png":
		return compose.FormatPNG, nil
	}
	return compose.ParseFormat(fallback)
}

func extension(f compose.Format) string {
	if f == compose.FormatJPEG {
		return "jpg"
	}
	return "png"
}

// readDraftFile reads a draft from path, or stdin for "-".
func readDraftFile(path string) (pipeline.Draft, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return pipeline.Draft{}, fmt.Errorf("open draft: %w", err)
		}
		defer f.Close()
		r = f
	}
	return pipeline.ReadDraft(r)
}

func writeDraftFile(path string, d pipeline.Draft) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	if err := pipeline.WriteDraft(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
