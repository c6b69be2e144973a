package ui

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyEvent(i int) KeyEventMsg {
	return KeyEventMsg{
		Keycode: uint32(i),
		KeyName: fmt.Sprintf("KEY_%d", i),
		Keysyms: []string{"a"},
		Text:    "a",
		Pressed: true,
	}
}

func TestWatchHistoryTrimming(t *testing.T) {
	m := NewWatchModel(3, true)

	var model tea.Model = m
	for i := 0; i < 5; i++ {
		model, _ = model.(*WatchModel).Update(keyEvent(i))
	}

	wm := model.(*WatchModel)
	require.Len(t, wm.events, 3)
	// Oldest entries fall off first.
	assert.Equal(t, uint32(2), wm.events[0].Keycode)
	assert.Equal(t, uint32(4), wm.events[2].Keycode)
}

func TestWatchClearKey(t *testing.T) {
	m := NewWatchModel(8, true)
	m.Update(keyEvent(1))
	m.Update(keyEvent(2))
	require.Len(t, m.events, 2)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	assert.Empty(t, m.events)
}

func TestWatchQuitOnConnectionLost(t *testing.T) {
	m := NewWatchModel(8, true)

	lost := fmt.Errorf("display gone")
	_, cmd := m.Update(ConnectionLostMsg{Err: lost})
	require.NotNil(t, cmd)
	assert.Equal(t, lost, m.Err())
}

func TestWatchViewShowsEvents(t *testing.T) {
	m := NewWatchModel(8, true)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(KeymapLoadedMsg{Groups: 2, Keys: 100})
	m.Update(keyEvent(30))

	view := m.View()
	assert.Contains(t, view, "KEY_30")
	assert.Contains(t, view, "keymap loaded: 100 keys, 2 groups")
	assert.Contains(t, view, `"a"`)
}

func TestWatchViewHidesTextWhenDisabled(t *testing.T) {
	m := NewWatchModel(8, false)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(keyEvent(30))

	assert.NotContains(t, m.View(), `"a"`)
}
