package cli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/auth"
	"github.com/matzehuels/memeforge/pkg/compose"
	"github.com/matzehuels/memeforge/pkg/editor"
	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/imagesource"
	"github.com/matzehuels/memeforge/pkg/overlay"
	"github.com/matzehuels/memeforge/pkg/pipeline"
	"github.com/matzehuels/memeforge/pkg/publish"
	"github.com/matzehuels/memeforge/pkg/templates"
)

// Terminal rows used above and below the canvas.
const (
	editHeaderRows = 2
	editFooterRows = 3
)

// editColors is the palette the c key cycles through.
var editColors = []string{"#ffffff", "#000000", "#ffff00", "#ff0000", "#00ff00", "#00bfff", "#ff69b4"}

// editOpts holds the command-line flags for the edit command.
type editOpts struct {
	source  string
	output  string
	noCache bool
}

// editCommand creates the edit command.
func (c *CLI) editCommand() *cobra.Command {
	opts := editOpts{output: "meme.png"}

	cmd := &cobra.Command{
		Use:   "edit [draft.json]",
		Short: "Edit a meme in the terminal",
		Long: `Open a terminal editor over a draft or a base image.

Click empty space to add a caption. Drag a caption to move it, drag a corner
to resize, drag the ↻ knob to rotate and click × to delete.

Keys:
  enter      edit the selected caption's text
  tab        select the next caption
  x, del     delete the selected caption
  + / -      font size
  c / f      cycle color / font
  t          load the next template
  s          save the draft
  r          render to --output
  p          publish to the configured server
  q          quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var draftPath string
			if len(args) == 1 {
				draftPath = args[0]
			}
			return c.runEdit(cmd.Context(), draftPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "base image: URL, file path, data URL or template:<name>")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "file written by the render key")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local cache")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, draftPath string, opts editOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	sessOpts := editor.Options{
		Runner:           runner,
		PreviewMaxWidth:  c.cfg.Editor.PreviewMaxWidth,
		PreviewMaxHeight: c.cfg.Editor.PreviewMaxHeight,
		Format:           c.cfg.Render.Format,
		Quality:          c.cfg.Render.JPEGQuality,
		Logger:           c.Logger,
	}
	var identity auth.Identity
	if client, err := c.authedClient(ctx); err == nil {
		if sess, _ := c.storedSession(ctx); sess != nil {
			identity = auth.IdentityOf(sess)
		}
		sessOpts.Publisher = publish.New(client, nil, publish.Options{
			MaxEncodedLength: c.cfg.Limits.MaxEncodedLength,
			Logger:           c.Logger,
		})
	}
	sess := editor.New(sessOpts)

	savePath := draftPath
	if savePath == "" {
		savePath = "draft.json"
	}
	m := newEditModel(ctx, sess, savePath, opts.output, identity)

	switch {
	case draftPath != "":
		d, err := readDraftFile(draftPath)
		if err != nil {
			return err
		}
		m.init = loadDraftCmd(ctx, sess, d)
	case opts.source != "":
		src, err := imagesource.Parse(opts.source)
		if err != nil {
			return err
		}
		m.init = loadCmd(ctx, sess, src)
	default:
		m.init = loadCmd(ctx, sess, imagesource.FromTemplate(templates.All()[0]))
	}

	_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// =============================================================================
// editModel - bubbletea model over an editor session
// =============================================================================

type loadedMsg struct {
	label string
	err   error
}

type renderedMsg struct {
	path string
	size int
	err  error
}

type publishedMsg struct {
	id  string
	err error
}

type editModel struct {
	ctx      context.Context
	sess     *editor.Session
	draft    string // path the s key writes
	output   string // path the r key writes
	identity auth.Identity
	init     tea.Cmd

	width, height int
	canvas        canvas
	background    [][]cell // half-block image, repainted on resize and load

	pressed  bool
	editing  bool
	input    []rune
	template int
	status   string
}

func newEditModel(ctx context.Context, sess *editor.Session, draftPath, output string, id auth.Identity) editModel {
	return editModel{
		ctx:      ctx,
		sess:     sess,
		draft:    draftPath,
		output:   output,
		identity: id,
		width:    80,
		height:   24,
		status:   "loading...",
	}
}

func loadCmd(ctx context.Context, sess *editor.Session, src imagesource.Source) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{label: src.Label(), err: sess.Load(ctx, src)}
	}
}

func loadDraftCmd(ctx context.Context, sess *editor.Session, d pipeline.Draft) tea.Cmd {
	return func() tea.Msg {
		label := d.Source
		if src, err := imagesource.Parse(d.Source); err == nil {
			label = src.Label()
		}
		return loadedMsg{label: label, err: sess.LoadDraft(ctx, d)}
	}
}

func (m editModel) Init() tea.Cmd {
	return m.init
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.relayout()
	case loadedMsg:
		return m.handleLoaded(msg), nil
	case renderedMsg:
		if msg.err != nil {
			m.status = "render failed: " + errs.UserMessage(msg.err)
		} else {
			m.status = fmt.Sprintf("rendered %s (%s)", msg.path, formatBytes(msg.size))
		}
	case publishedMsg:
		if msg.err != nil {
			m.status = "publish failed: " + errs.UserMessage(msg.err)
		} else {
			m.status = "published " + msg.id
		}
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	case tea.KeyMsg:
		if m.editing {
			return m.handleTextKey(msg), nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m editModel) handleLoaded(msg loadedMsg) editModel {
	if errors.Is(msg.err, editor.ErrSuperseded) {
		return m
	}
	if msg.err != nil {
		m.status = errs.UserMessage(msg.err)
		return m
	}
	m.status = "loaded " + msg.label
	m.editing = false
	m.relayout()
	return m
}

func (m *editModel) relayout() {
	pw, ph := m.sess.Preview()
	m.canvas = fitCanvas(pw, ph, m.width, m.height-editHeaderRows-editFooterRows, editHeaderRows)
	m.background = m.canvas.paintBackground(m.baseImage())
}

func (m editModel) handleMouse(msg tea.MouseMsg) editModel {
	// A release always ends the interaction, wherever it lands.
	if msg.Action == tea.MouseActionRelease {
		m.sess.PointerUp()
		m.pressed = false
		return m
	}
	if m.canvas.empty() || m.editing {
		return m
	}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		px, py, ok := m.canvas.toPreview(msg.X, msg.Y)
		if !ok {
			return m
		}
		hit := m.sess.PointerDown(px, py)
		m.pressed = true
		m.status = describeHit(hit)
	case tea.MouseActionMotion:
		if m.pressed {
			m.sess.PointerMove(m.canvas.clampedPreview(msg.X, msg.Y))
		}
	}
	return m
}

func describeHit(h overlay.Hit) string {
	switch h.Kind {
	case overlay.HitNone:
		if h.ID != 0 {
			return fmt.Sprintf("added caption %d (enter to type)", h.ID)
		}
		return ""
	case overlay.HitHandle:
		return "resizing"
	case overlay.HitRotate:
		return "rotating"
	case overlay.HitDelete:
		return fmt.Sprintf("deleted caption %d", h.ID)
	}
	return ""
}

func (m editModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel, hasSel := m.sess.Selected()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.sess.Deselect()
	case "enter":
		if hasSel {
			m.editing = true
			m.input = []rune(sel.Text)
			m.status = "editing text (enter to apply, esc to cancel)"
		}
	case "tab":
		m.selectNext(sel.ID, hasSel)
	case "x", "delete":
		if hasSel && m.sess.Delete(sel.ID) {
			m.status = fmt.Sprintf("deleted caption %d", sel.ID)
		}
	case "+", "=":
		m.changeFontSize(2)
	case "-", "_":
		m.changeFontSize(-2)
	case "c":
		next := editColors[(indexOf(editColors, m.sess.ActiveStyle().Color)+1)%len(editColors)]
		m.applyStyle(overlay.StyleUpdate{Color: &next})
	case "f":
		cur := m.sess.ActiveStyle().FontFamily
		next := overlay.FontFamilies[(indexOf(overlay.FontFamilies, cur)+1)%len(overlay.FontFamilies)]
		m.applyStyle(overlay.StyleUpdate{FontFamily: &next})
	case "t":
		all := templates.All()
		m.template = (m.template + 1) % len(all)
		m.status = "loading " + all[m.template].Name + "..."
		return m, loadCmd(m.ctx, m.sess, imagesource.FromTemplate(all[m.template]))
	case "s":
		if err := writeDraftFile(m.draft, m.sess.Snapshot()); err != nil {
			m.status = "save failed: " + err.Error()
		} else {
			m.status = "saved " + m.draft
		}
	case "r":
		m.status = "rendering..."
		return m, m.renderCmd()
	case "p":
		if m.sess.Publishing() {
			m.status = "already publishing, please wait"
			return m, nil
		}
		m.status = "publishing..."
		return m, m.publishCmd()
	}
	return m, nil
}

func (m *editModel) selectNext(current int, hasSel bool) {
	anns := m.sess.Annotations()
	if len(anns) == 0 {
		return
	}
	next := 0
	if hasSel {
		for i, a := range anns {
			if a.ID == current {
				next = (i + 1) % len(anns)
			}
		}
	}
	_ = m.sess.Select(anns[next].ID)
}

func (m *editModel) changeFontSize(delta int) {
	size := m.sess.ActiveStyle().FontSize + delta
	m.applyStyle(overlay.StyleUpdate{FontSize: &size})
}

func (m *editModel) applyStyle(u overlay.StyleUpdate) {
	if _, err := m.sess.UpdateStyle(u); err != nil {
		m.status = errs.UserMessage(err)
		return
	}
	st := m.sess.ActiveStyle()
	m.status = fmt.Sprintf("%s %dpx %s", st.Color, st.FontSize, st.FontFamily.Label())
}

func (m editModel) handleTextKey(msg tea.KeyMsg) editModel {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.status = ""
	case tea.KeyEnter:
		m.editing = false
		if sel, ok := m.sess.Selected(); ok {
			if err := m.sess.SetText(sel.ID, string(m.input)); err != nil {
				m.status = errs.UserMessage(err)
				return m
			}
		}
		m.status = ""
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m
}

func (m editModel) renderCmd() tea.Cmd {
	ctx, sess, path := m.ctx, m.sess, m.output
	return func() tea.Msg {
		dataURL, err := sess.Render(ctx)
		if err != nil {
			return renderedMsg{err: err}
		}
		_, data, err := compose.DecodeDataURL(dataURL)
		if err != nil {
			return renderedMsg{err: err}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return renderedMsg{err: err}
		}
		return renderedMsg{path: path, size: len(data)}
	}
}

func (m editModel) publishCmd() tea.Cmd {
	ctx, sess, id := m.ctx, m.sess, m.identity
	return func() tea.Msg {
		meme, err := sess.Publish(ctx, id)
		return publishedMsg{id: meme.ID, err: err}
	}
}

func (m editModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Memeforge"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render("click add · drag move · enter type · r render · p publish · q quit"))
	b.WriteString("\n\n")

	if m.canvas.empty() {
		b.WriteString(listDimStyle.Render("  " + m.status))
		b.WriteString("\n")
		return b.String()
	}

	grid := make([][]cell, len(m.background))
	for y := range m.background {
		grid[y] = append([]cell(nil), m.background[y]...)
	}
	sel, hasSel := m.sess.Selected()
	for _, a := range m.sess.Annotations() {
		m.canvas.paintAnnotation(grid, a, hasSel && a.ID == sel.ID)
	}
	b.WriteString(renderGrid(grid))
	b.WriteString("\n\n")

	st := m.sess.ActiveStyle()
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s %dpx %s", st.Color, st.FontSize, st.FontFamily.Label())))
	if m.editing {
		b.WriteString("  ")
		b.WriteString(listSelectedStyle.Render("text: " + string(m.input) + "▏"))
	} else if m.status != "" {
		b.WriteString("  ")
		b.WriteString(listSelectedStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m editModel) baseImage() image.Image {
	if base := m.sess.Base(); base != nil {
		return base.Image
	}
	return nil
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
