package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/api"
	"github.com/matzehuels/memeforge/pkg/compose"
	"github.com/matzehuels/memeforge/pkg/feed"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
)

// =============================================================================
// feed
// =============================================================================

// feedOpts holds the command-line flags for the feed command.
type feedOpts struct {
	sort   string
	watch  bool
	browse bool
	asJSON bool
}

// feedCommand creates the feed command.
func (c *CLI) feedCommand() *cobra.Command {
	var opts feedOpts

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the meme feed",
		Long: `Show the server's meme feed, newest first or by upvotes.

--browse opens an interactive list where memes can be upvoted, deleted and
saved. --watch prints feed events as they happen.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sort, err := feed.ParseSort(opts.sort)
			if err != nil {
				return err
			}
			client := c.client(ctx)
			if opts.watch {
				return c.watchFeed(ctx, client)
			}
			res, err := client.Feed(ctx, sort)
			if err != nil {
				return err
			}
			switch {
			case opts.asJSON:
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case opts.browse:
				return c.browseFeed(ctx, client, res.Memes)
			}
			if len(res.Memes) == 0 {
				printInfo("The feed is empty")
				printNextStep("Publish one", appName+" publish draft.json")
				return nil
			}
			fmt.Println(feedTable(res.Memes))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sort, "sort", string(feed.SortNewest), "order: newest or popular")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "stream feed events")
	cmd.Flags().BoolVarP(&opts.browse, "browse", "b", false, "browse the feed interactively")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print JSON")

	return cmd
}

func feedTable(memes []api.MemeView) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(memes))
	for i, m := range memes {
		rows[i] = []string{m.ID, m.Title(), m.AuthorEmail, fmt.Sprint(m.Upvotes), m.Age}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Captions", "Author", "▲", "Posted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case memes[row].HasUpvoted && col == 3:
				return StyleSuccess
			case col == 0 || col == 4:
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}

func (c *CLI) watchFeed(ctx context.Context, client *api.Client) error {
	printInfo("Watching %s (ctrl+c to stop)", client.BaseURL())
	err := client.Events(ctx, func(e feed.Event) {
		fmt.Println(formatEvent(e))
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func formatEvent(e feed.Event) string {
	at := time.UnixMilli(e.At).Format("15:04:05")
	var label string
	switch e.Type {
	case feed.EventMemeCreated:
		label = StyleSuccess.Render("new meme")
	case feed.EventMemeDeleted:
		label = StyleWarning.Render("deleted")
	case feed.EventUpvoteAdded:
		label = StyleHighlight.Render("upvoted")
	case feed.EventUpvoteRemoved:
		label = StyleDim.Render("upvote removed")
	default:
		label = string(e.Type)
	}
	return fmt.Sprintf("%s %s %s", StyleDim.Render(at), label, e.MemeID)
}

func (c *CLI) browseFeed(ctx context.Context, client *api.Client, memes []api.MemeView) error {
	if len(memes) == 0 {
		printInfo("The feed is empty")
		return nil
	}
	m := newFeedListModel(ctx, client, memes)
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// publish
// =============================================================================

// publishOpts holds the command-line flags for the publish command.
type publishOpts struct {
	image   string // publish this image file instead of rendering
	local   bool   // render locally and upload the encoded image
	noCache bool
}

// publishCommand creates the publish command.
func (c *CLI) publishCommand() *cobra.Command {
	var opts publishOpts

	cmd := &cobra.Command{
		Use:   "publish [draft.json|-]",
		Short: "Publish a meme to the feed",
		Long: `Publish a draft to the server's feed. The server renders it unless --local
is given, in which case it is rendered here and the image is uploaded.

--image uploads an already rendered file; the draft, if given, only
supplies the captions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var draftPath string
			if len(args) == 1 {
				draftPath = args[0]
			}
			return c.runPublish(cmd.Context(), draftPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "upload this image file")
	cmd.Flags().BoolVar(&opts.local, "local", false, "render locally before uploading")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local cache when rendering with --local")

	return cmd
}

func (c *CLI) runPublish(ctx context.Context, draftPath string, opts publishOpts) error {
	client, err := c.authedClient(ctx)
	if err != nil {
		return err
	}

	var draft *pipeline.Draft
	if draftPath != "" {
		d, err := readDraftFile(draftPath)
		if err != nil {
			return err
		}
		draft = &d
	}

	req, err := c.publishRequest(ctx, draft, opts)
	if err != nil {
		return err
	}
	if err := publish.CheckSize(req.ImageBase64, c.cfg.Limits.MaxEncodedLength); err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Publishing...")
	spinner.Start()
	view, err := client.Publish(ctx, req)
	if err != nil {
		spinner.StopWithError("Publish failed")
		return err
	}
	spinner.Stop()

	printSuccess("Published %s", view.ID)
	if title := view.Title(); title != "" {
		printKeyValue("Captions", title)
	}
	printKeyValue("Image", client.BaseURL()+view.ImageURL)
	printNextStep("See the feed", appName+" feed")
	return nil
}

// publishRequest builds the request body. Without --image or --local the
// draft is sent for the server to render.
func (c *CLI) publishRequest(ctx context.Context, draft *pipeline.Draft, opts publishOpts) (api.PublishRequest, error) {
	switch {
	case opts.image != "":
		data, err := os.ReadFile(opts.image)
		if err != nil {
			return api.PublishRequest{}, fmt.Errorf("read image: %w", err)
		}
		req := api.PublishRequest{ImageBase64: compose.EncodeDataURL(http.DetectContentType(data), data)}
		if draft != nil {
			req.Annotations = draft.Annotations
		}
		return req, nil

	case draft == nil:
		return api.PublishRequest{}, fmt.Errorf("pass a draft file or --image")

	case opts.local:
		runner, err := c.newRunner(opts.noCache)
		if err != nil {
			return api.PublishRequest{}, err
		}
		defer runner.Close()
		res, err := runner.Execute(ctx, pipeline.Options{
			Draft:   *draft,
			Format:  c.cfg.Render.Format,
			Quality: c.cfg.Render.JPEGQuality,
		})
		if err != nil {
			return api.PublishRequest{}, err
		}
		return api.PublishRequest{ImageBase64: res.DataURL, Annotations: draft.Annotations}, nil
	}

	runner, err := c.newRunner(true)
	if err != nil {
		return api.PublishRequest{}, err
	}
	defer runner.Close()
	d, err := inlineFileSource(ctx, runner.Loader, nil, *draft)
	if err != nil {
		return api.PublishRequest{}, err
	}
	return api.PublishRequest{Draft: &d}, nil
}

// =============================================================================
// get, upvote, delete
// =============================================================================

// getCommand creates the get command.
func (c *CLI) getCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <meme-id>",
		Short: "Download a published meme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			view, err := c.client(ctx).Meme(ctx, args[0])
			if err != nil {
				return err
			}
			path, err := saveMemeImage(view, output)
			if err != nil {
				return err
			}
			printSuccess("Saved %s", view.ID)
			printFile(path)
			printKeyValue("Author", view.AuthorEmail)
			printKeyValue("Upvotes", fmt.Sprint(view.Upvotes))
			printKeyValue("Posted", view.Age)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.png or <id>.jpg)")

	return cmd
}

// saveMemeImage writes the meme's image to output, or <id>.<ext>.
func saveMemeImage(view *api.MemeView, output string) (string, error) {
	mime, data, err := compose.DecodeDataURL(view.ImageBase64)
	if err != nil {
		return "", err
	}
	if output == "" {
		ext := "png"
		if mime == compose.FormatJPEG.MIME() {
			ext = "jpg"
		}
		output = view.ID + "." + ext
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", output, err)
	}
	return output, nil
}

// upvoteCommand creates the upvote command.
func (c *CLI) upvoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upvote <meme-id>",
		Short: "Upvote a meme, or remove your upvote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.authedClient(ctx)
			if err != nil {
				return err
			}
			res, err := client.ToggleUpvote(ctx, args[0])
			if err != nil {
				return err
			}
			if res.Upvoted {
				printSuccess("Upvoted %s (%d)", args[0], res.Upvotes)
			} else {
				printInfo("Removed upvote from %s (%d)", args[0], res.Upvotes)
			}
			return nil
		},
	}
}

// deleteCommand creates the delete command.
func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <meme-id>",
		Short: "Delete one of your memes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.authedClient(ctx)
			if err != nil {
				return err
			}
			if err := client.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
