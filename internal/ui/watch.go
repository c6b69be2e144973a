package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyEventMsg is one resolved key event pushed into the watch UI by
// the dispatch loop.
type KeyEventMsg struct {
	Keycode  uint32
	KeyName  string
	Keysyms  []string
	Text     string
	Pressed  bool
	ModsDesc string
}

// KeymapLoadedMsg reports a (re)loaded keymap.
type KeymapLoadedMsg struct {
	Groups int
	Keys   int
}

// ConnectionLostMsg ends the watch session with the failure shown.
type ConnectionLostMsg struct {
	Err error
}

type watchKeyMap struct {
	Clear key.Binding
	Quit  key.Binding
}

var watchKeys = watchKeyMap{
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// WatchModel renders a rolling log of decoded keyboard events.
type WatchModel struct {
	events      []KeyEventMsg
	historySize int
	showText    bool

	keymapInfo string
	width      int
	height     int
	err        error
}

// NewWatchModel creates the watch UI with the configured history size.
func NewWatchModel(historySize int, showText bool) *WatchModel {
	if historySize < 1 {
		historySize = 16
	}
	return &WatchModel{
		historySize: historySize,
		showText:    showText,
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return nil
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, watchKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, watchKeys.Clear):
			m.events = nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case KeyEventMsg:
		m.events = append(m.events, msg)
		if len(m.events) > m.historySize {
			m.events = m.events[len(m.events)-m.historySize:]
		}
	case KeymapLoadedMsg:
		m.keymapInfo = fmt.Sprintf("keymap loaded: %d keys, %d groups", msg.Keys, msg.Groups)
	case ConnectionLostMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *WatchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("wlcore watch"))
	b.WriteString("\n")
	if m.keymapInfo != "" {
		b.WriteString(SubtleStyle.Render(m.keymapInfo))
	} else {
		b.WriteString(MutedStyle.Render("waiting for keymap..."))
	}
	b.WriteString("\n\n")

	if len(m.events) == 0 {
		b.WriteString(MutedStyle.Render("no key events yet (focus a surface of this client)"))
		b.WriteString("\n")
	}
	for _, ev := range m.events {
		state := SuccessStyle.Render("press  ")
		if !ev.Pressed {
			state = SubtleStyle.Render("release")
		}
		line := fmt.Sprintf("%s %-14s %s", state, ev.KeyName, strings.Join(ev.Keysyms, " "))
		if m.showText && ev.Text != "" {
			line += AccentStyle.Render(fmt.Sprintf(" %q", ev.Text))
		}
		if ev.ModsDesc != "" {
			line += MutedStyle.Render(" [" + ev.ModsDesc + "]")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("[c] clear  [q] quit"))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("connection lost: " + m.err.Error()))
	}
	return b.String()
}

// Err returns the connection failure that ended the session, if any.
func (m *WatchModel) Err() error {
	return m.err
}
