package cmd

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/bnema/wlcore/internal/config"
	"github.com/bnema/wlcore/internal/dispatch"
	"github.com/bnema/wlcore/internal/logger"
	"github.com/bnema/wlcore/internal/ui"
	"github.com/bnema/wlcore/internal/wlclient"
	"github.com/bnema/wlcore/internal/xkb"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/holoplot/go-evdev"
	"github.com/spf13/cobra"
)

var watchDisplay string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch resolved keyboard events live",
	Long: `Connect to the display server, bind the seat's keyboard and show every
key event resolved through the compositor's keymap: key name, keysyms,
text and the modifier state in effect.

The compositor only delivers key events to the client holding keyboard
focus, so run this inside a terminal on the target seat.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDisplay, "display", "", "Display name or socket path (default from config / WAYLAND_DISPLAY)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	endpoint := watchDisplay
	if endpoint == "" {
		endpoint = cfg.Display.Endpoint
	}

	conn, err := wlclient.Connect(endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection: %v", err)
		}
	}()

	resolver := xkb.NewResolver()
	if path := cfg.Keyboard.FallbackKeymap; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := resolver.LoadKeymap(xkb.FormatXKBv1, data); err != nil {
			return err
		}
		logger.Debugf("fallback keymap loaded from %s", path)
	}

	model := ui.NewWatchModel(cfg.Watch.HistorySize, cfg.Watch.ShowText)
	program := tea.NewProgram(model, tea.WithAltScreen())

	seat, err := conn.BindSeat()
	if err != nil {
		return err
	}

	var keyboard *wlclient.Keyboard
	seat.Capabilities = func(caps uint32) {
		if caps&wlclient.SeatCapabilityKeyboard == 0 || keyboard != nil {
			return
		}
		kb, err := seat.GetKeyboard()
		if err != nil {
			logger.Errorf("Failed to bind keyboard: %v", err)
			return
		}
		keyboard = kb
		wireKeyboard(kb, resolver, program)
		logger.Debug("keyboard bound")
	}
	seat.Name = func(name string) {
		logger.Debugf("seat name: %s", name)
	}

	conn.SetRoundtripLimit(cfg.Display.RoundtripLimit)

	d := dispatch.New(conn)
	d.SetTimeout(time.Duration(cfg.Display.DispatchTimeout) * time.Millisecond)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			program.Send(ui.ConnectionLostMsg{Err: err})
		}
	}()

	final, err := program.Run()
	cancel()
	if err != nil {
		return err
	}
	if m, ok := final.(*ui.WatchModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

// wireKeyboard routes keyboard events into the resolver and pushes the
// results to the UI. All callbacks run on the dispatch goroutine.
func wireKeyboard(kb *wlclient.Keyboard, resolver *xkb.Resolver, program *tea.Program) {
	kb.Keymap = func(format uint32, fd int, size uint32) {
		if err := resolver.LoadKeymapFD(format, fd, size); err != nil {
			logger.Errorf("Failed to load keymap: %v", err)
			return
		}
		if km := resolver.Keymap(); km != nil {
			program.Send(ui.KeymapLoadedMsg{Groups: km.NumGroups(), Keys: km.NumKeys()})
		}
	}
	kb.Modifiers = func(serial, depressed, latched, locked, group uint32) {
		resolver.SetModifiers(depressed, latched, locked, group)
	}
	kb.Key = func(serial, time, key, state uint32) {
		pressed := state == wlclient.KeyStatePressed
		res := resolver.KeyEvent(key, pressed)

		syms := make([]string, len(res.Keysyms))
		for i, s := range res.Keysyms {
			syms[i] = s.Name()
		}
		program.Send(ui.KeyEventMsg{
			Keycode:  key,
			KeyName:  keyDisplayName(resolver, key),
			Keysyms:  syms,
			Text:     res.Text,
			Pressed:  pressed,
			ModsDesc: xkb.ModMaskString(resolver.ModifierState().Effective()),
		})
	}
	kb.RepeatInfo = func(rate, delay int32) {
		logger.Debugf("key repeat: %d/s after %dms", rate, delay)
	}
}

// keyDisplayName prefers the evdev code name (KEY_A) and falls back to
// the keymap's own key name (<AC01>).
func keyDisplayName(resolver *xkb.Resolver, evdevCode uint32) string {
	name := evdev.CodeName(evdev.EV_KEY, evdev.EvCode(evdevCode))
	if name != "" && !strings.HasPrefix(name, "UNKNOWN") {
		return name
	}
	if km := resolver.Keymap(); km != nil {
		if name := km.KeyName(evdevCode + xkb.EvdevOffset); name != "" {
			return "<" + name + ">"
		}
	}
	return "?"
}
