// Package tui is the terminal presenter for a single discovery session.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"artdiscover/internal/discover"
	"artdiscover/pkg/models"
)

// StateMsg carries a session state into the program.
type StateMsg discover.State

// Feed hands session states to the program without blocking the fetch
// goroutine. Only the newest pending state is kept.
type Feed struct {
	ch chan discover.State
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan discover.State, 1)}
}

// Publish is meant for discover.Options.OnChange.
func (f *Feed) Publish(st discover.State) {
	for {
		select {
		case f.ch <- st:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		return StateMsg(<-f.ch)
	}
}

var attrKeys = map[string]models.BanKind{
	"a": models.BanArtist,
	"c": models.BanCentury,
	"u": models.BanCulture,
}

var attrLabels = []struct {
	key   string
	kind  models.BanKind
	label string
}{
	{"a", models.BanArtist, "Artist"},
	{"c", models.BanCentury, "Century"},
	{"u", models.BanCulture, "Culture"},
}

type Model struct {
	session *discover.Session
	feed    *Feed
	state   discover.State
	spinner spinner.Model
	styles  Styles
	width   int
}

// New returns a model over s. feed must be the one s publishes to.
func New(s *discover.Session, feed *Feed, styles Styles) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		session: s,
		feed:    feed,
		state:   s.Snapshot(),
		spinner: sp,
		styles:  styles,
	}
}

// State returns the last state the model has seen.
func (m Model) State() discover.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.next(), m.discover)
}

func (m Model) discover() tea.Msg {
	st, err := m.session.Discover()
	if err != nil {
		return nil
	}
	return StateMsg(st)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.apply(discover.State(msg))
		if msg.Loading {
			return m, tea.Batch(m.feed.next(), m.spinner.Tick)
		}
		return m, m.feed.next()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.state.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// apply keeps the newest state; feed and direct call results may arrive
// out of order.
func (m *Model) apply(st discover.State) {
	if st.Version >= m.state.Version {
		m.state = st
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "d", "enter":
		if m.state.Loading {
			return m, nil
		}
		if st, err := m.session.Discover(); err == nil {
			m.apply(st)
			return m, m.spinner.Tick
		}
		return m, nil
	}

	if kind, ok := attrKeys[key]; ok {
		if m.state.Artwork == nil {
			return m, nil
		}
		return m.toggle(kind, m.state.Artwork.Attribute(kind))
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(m.state.Bans) {
			b := m.state.Bans[i]
			return m.toggle(b.Kind, b.Value)
		}
	}
	return m, nil
}

func (m Model) toggle(kind models.BanKind, value string) (tea.Model, tea.Cmd) {
	st, changed := m.session.Toggle(kind, value)
	if !changed {
		return m, nil
	}
	m.apply(st)
	return m, m.spinner.Tick
}

func (m Model) View() string {
	var b strings.Builder
	st := m.state

	b.WriteString(m.styles.Title.Render("Art Discover"))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Header.Render("Ban List:"))
	b.WriteString("\n")
	if len(st.Bans) == 0 {
		b.WriteString(m.styles.Disabled.Render("No items banned yet"))
		b.WriteString("\n")
	}
	for i, ban := range st.Bans {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, ban.Value, ban.Kind)
	}
	b.WriteString("\n")

	switch {
	case st.Loading:
		fmt.Fprintf(&b, "%s Loading...\n", m.spinner.View())
	case st.Error != "":
		b.WriteString(m.styles.Error.Render(st.Error))
		b.WriteString("\n")
	}

	if st.Artwork != nil {
		b.WriteString(m.styles.Artwork.Render(m.artworkView(st)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("d discover • a/c/u ban artist/century/culture • 1-9 unban • q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) artworkView(st discover.State) string {
	art := st.Artwork
	lines := []string{m.styles.Header.Render(art.Title)}
	if art.HasImage() {
		lines = append(lines, art.ImageURL)
	} else {
		lines = append(lines, m.styles.Disabled.Render("No image available"))
	}
	for _, a := range attrLabels {
		value := art.Attribute(a.kind)
		text := fmt.Sprintf("[%s] %s: %s", a.key, a.label, value)
		switch {
		case st.IsBanned(a.kind, value):
			text = m.styles.Banned.Render(text)
		case !m.session.Bannable(value):
			text = m.styles.Disabled.Render(fmt.Sprintf("    %s: %s", a.label, value))
		default:
			text = m.styles.Attr.Render(text)
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}
