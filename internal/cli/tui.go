package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/memeforge/pkg/api"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// FeedListModel - Interactive feed browser
// =============================================================================

// feedClient is the part of the API client the feed browser uses.
type feedClient interface {
	ToggleUpvote(ctx context.Context, id string) (*api.UpvoteResponse, error)
	Delete(ctx context.Context, id string) error
	Meme(ctx context.Context, id string) (*api.MemeView, error)
}

type upvotedMsg struct {
	id  string
	res *api.UpvoteResponse
	err error
}

type deletedMsg struct {
	id  string
	err error
}

type savedMsg struct {
	path string
	err  error
}

// FeedListModel is the bubbletea model for browsing the feed.
type FeedListModel struct {
	Memes  []api.MemeView
	Cursor int
	Height int
	Offset int
	Status string

	ctx    context.Context
	client feedClient
}

func newFeedListModel(ctx context.Context, client feedClient, memes []api.MemeView) FeedListModel {
	return FeedListModel{
		Memes:  memes,
		Height: 15,
		ctx:    ctx,
		client: client,
	}
}

func (m FeedListModel) Init() tea.Cmd {
	return nil
}

func (m FeedListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.Height = max(5, msg.Height-8)
	case upvotedMsg:
		if msg.err != nil {
			m.Status = "upvote failed: " + msg.err.Error()
			break
		}
		if i := m.indexOf(msg.id); i >= 0 {
			m.Memes[i].HasUpvoted = msg.res.Upvoted
			m.Memes[i].Upvotes = msg.res.Upvotes
		}
		m.Status = ""
	case deletedMsg:
		if msg.err != nil {
			m.Status = "delete failed: " + msg.err.Error()
			break
		}
		if i := m.indexOf(msg.id); i >= 0 {
			m.Memes = append(m.Memes[:i], m.Memes[i+1:]...)
		}
		if m.Cursor >= len(m.Memes) {
			m.Cursor = max(0, len(m.Memes)-1)
		}
		m.Offset = min(m.Offset, m.Cursor)
		m.Status = "deleted " + msg.id
	case savedMsg:
		if msg.err != nil {
			m.Status = "save failed: " + msg.err.Error()
		} else {
			m.Status = "saved " + msg.path
		}
	}
	return m, nil
}

func (m FeedListModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
		}
	case "down", "j":
		if m.Cursor < len(m.Memes)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	}
	if len(m.Memes) == 0 {
		return m, nil
	}

	cur := m.Memes[m.Cursor]
	switch msg.String() {
	case "u", " ":
		m.Status = "upvoting..."
		return m, func() tea.Msg {
			res, err := m.client.ToggleUpvote(m.ctx, cur.ID)
			return upvotedMsg{id: cur.ID, res: res, err: err}
		}
	case "d":
		if !cur.IsOwner {
			m.Status = "you can only delete your own memes"
			return m, nil
		}
		m.Status = "deleting..."
		return m, func() tea.Msg {
			return deletedMsg{id: cur.ID, err: m.client.Delete(m.ctx, cur.ID)}
		}
	case "s", "enter":
		m.Status = "downloading..."
		return m, func() tea.Msg {
			view, err := m.client.Meme(m.ctx, cur.ID)
			if err != nil {
				return savedMsg{err: err}
			}
			path, err := saveMemeImage(view, "")
			return savedMsg{path: path, err: err}
		}
	}
	return m, nil
}

func (m FeedListModel) indexOf(id string) int {
	for i, v := range m.Memes {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (m FeedListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Meme Feed"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  u upvote  s save  d delete  q quit"))
	b.WriteString("\n\n")

	if len(m.Memes) == 0 {
		b.WriteString(listDimStyle.Render("  The feed is empty"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Memes))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		v := m.Memes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		vote := fmt.Sprintf("▲ %d", v.Upvotes)
		title := v.Title()
		if title == "" {
			title = "—"
		}
		rows = append(rows, []string{cursor, title, v.AuthorEmail, vote, v.Age})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Captions", "Author", "Votes", "Posted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Memes) {
				return lipgloss.NewStyle()
			}
			v := m.Memes[idx]
			base := lipgloss.NewStyle()
			if col == 3 && v.HasUpvoted {
				base = base.Foreground(colorGreen)
			} else if col == 4 {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Memes))))
	if m.Status != "" {
		b.WriteString("  ")
		b.WriteString(listSelectedStyle.Render(m.Status))
	}
	b.WriteString("\n")

	return b.String()
}
